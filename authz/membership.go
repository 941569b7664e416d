package authz

import (
	"context"

	"github.com/phonginreallife/contracthub/db"
)

// RoleHolder is a contract role together with the user holding it
type RoleHolder struct {
	Role db.Role
	User db.User
}

// RoleManager manages contract roles.
// It is the write side next to Authorizer, which only reads roles to decide.
type RoleManager interface {
	// AddRole inserts a role; a duplicate (contract, user, role) fails with ErrDuplicateRoleAssignment
	AddRole(ctx context.Context, contractID, userID string, role db.Role) (*db.ContractRole, error)

	// RemoveRole deletes a role; a missing row fails with ErrRoleNotFound
	RemoveRole(ctx context.Context, contractID, userID string, role db.Role) error

	HasRole(ctx context.Context, contractID, userID string, role db.Role) (bool, error)
	HasAnyRole(ctx context.Context, contractID, userID string) (bool, error)

	// ListParticipants returns role holders with their resolved organization
	ListParticipants(ctx context.Context, contractID string) ([]db.Participant, error)

	// ListHolders returns the role rows of a contract with their users
	ListHolders(ctx context.Context, contractID string) ([]RoleHolder, error)

	// ListUserContracts returns the contracts the user holds at least one role in
	ListUserContracts(ctx context.Context, userID string) ([]db.Contract, error)

	// DeleteUserRoles removes the user's roles on the given contracts
	DeleteUserRoles(ctx context.Context, userID string, contractIDs []string) (int64, error)

	// DeleteContractRoles removes the given users' roles on one contract
	DeleteContractRoles(ctx context.Context, contractID string, userIDs []string) (int64, error)
}
