// Package authz decides which contracts a user may see and whose roles they may manage.
// This package follows Clean Architecture with separated concerns:
// - Policy functions: pure decisions over already-loaded facts
// - Authorizer: loads the current facts and applies the policy, never caching a decision
// - RoleManager: the write/read side of contract roles
// - Repositories: CRUD for organizations, users and contracts
package authz

import (
	"context"

	"github.com/phonginreallife/contracthub/db"
)

// Subject is an acting user together with their resolved organization
type Subject struct {
	User         db.User
	Organization *db.Organization // nil when the user has no organization
}

// IsGeneralDirector reports whether the subject's job title is GD
func (s Subject) IsGeneralDirector() bool {
	return s.User.JobTitle == db.GeneralDirector
}

// ContractScope describes which contracts a subject may list.
// Non-empty fields are OR-ed together.
type ContractScope struct {
	All          bool
	ByRoleOf     string // contracts where this user holds any role
	BySubsidiary string // contracts whose DO is this subsidiary
	ByContractor string // contracts whose PO is this contractor
}

// ContractSet is the result of a listing decision: every contract, or a deduplicated id set
type ContractSet struct {
	All bool
	IDs []string
}

// Contains reports whether id is part of the set
func (s ContractSet) Contains(id string) bool {
	if s.All {
		return true
	}
	for _, v := range s.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// Authorizer answers "is this allowed?" against the current persisted state.
// Every call re-reads the facts it needs.
type Authorizer interface {
	// Subject loads the acting user and their organization
	Subject(ctx context.Context, userID string) (*Subject, error)

	// ListableContracts returns ALL for a system-owner general director,
	// otherwise the union of role contracts and organization contracts
	ListableContracts(ctx context.Context, userID string) (ContractSet, error)

	CanViewContract(ctx context.Context, userID, contractID string) (bool, error)
	CanManageContractRoles(ctx context.Context, userID, contractID string) (bool, error)
}

// ============================================================================
// Policy
// ============================================================================

// IsSystemOwnerDirector is true for a GD whose organization is a system-owner subsidiary
func IsSystemOwnerDirector(s Subject) bool {
	return s.IsGeneralDirector() && s.Organization != nil && s.Organization.IsSystemOwner()
}

// ListScopeFor computes the listing scope of a subject
func ListScopeFor(s Subject) ContractScope {
	if IsSystemOwnerDirector(s) {
		return ContractScope{All: true}
	}

	scope := ContractScope{ByRoleOf: s.User.ID}
	if !s.IsGeneralDirector() || s.Organization == nil {
		return scope
	}

	switch s.Organization.Kind {
	case db.OrgKindSubsidiary:
		scope.BySubsidiary = s.Organization.ID
	case db.OrgKindContractor:
		scope.ByContractor = s.Organization.ID
	}
	return scope
}

// CanViewContract decides visibility given whether the subject holds any role on c
func CanViewContract(s Subject, c db.Contract, hasAnyRole bool) bool {
	if IsSystemOwnerDirector(s) {
		return true
	}
	if s.IsGeneralDirector() && s.Organization != nil && c.Involves(s.Organization.Ref()) {
		return true
	}
	return hasAnyRole
}

// CanManageContractRoles requires the GD role on this contract specifically,
// organizational affiliation alone is not enough.
func CanManageContractRoles(s Subject, hasDirectorRole bool) bool {
	return IsSystemOwnerDirector(s) || hasDirectorRole
}

// IsEligibleRoleTarget reports whether candidate belongs to one of the contract's parties
func IsEligibleRoleTarget(candidate db.User, c db.Contract) bool {
	return candidate.Organization != nil && c.Involves(*candidate.Organization)
}
