package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/phonginreallife/contracthub/db"
)

// SimpleAuthorizer implements the Authorizer interface using direct SQL queries.
// It ONLY handles permission checks - no CRUD operations.
type SimpleAuthorizer struct {
	db        *sql.DB
	users     *SimpleUserRepository
	orgs      *SimpleOrganizationRepository
	contracts *SimpleContractRepository
	roles     *SimpleRoleManager
}

// NewSimpleAuthorizer creates a new SimpleAuthorizer with the given database connection
func NewSimpleAuthorizer(db *sql.DB) *SimpleAuthorizer {
	return &SimpleAuthorizer{
		db:        db,
		users:     NewSimpleUserRepository(db),
		orgs:      NewSimpleOrganizationRepository(db),
		contracts: NewSimpleContractRepository(db),
		roles:     NewSimpleRoleManager(db),
	}
}

// Ensure SimpleAuthorizer implements Authorizer interface
var _ Authorizer = (*SimpleAuthorizer)(nil)

// ============================================================================
// Subject
// ============================================================================

// Subject loads the user and resolves their organization. A reference to an
// organization that no longer exists resolves to no organization.
func (a *SimpleAuthorizer) Subject(ctx context.Context, userID string) (*Subject, error) {
	user, err := a.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnknownSubject
		}
		return nil, err
	}

	s := &Subject{User: *user}
	if user.Organization == nil {
		return s, nil
	}

	org, err := a.orgs.Resolve(ctx, *user.Organization)
	if err != nil {
		if errors.Is(err, ErrOrganizationNotFound) {
			zerolog.Ctx(ctx).Warn().
				Str("user_id", userID).
				Str("organization", user.Organization.String()).
				Msg("user references a missing organization")
			return s, nil
		}
		return nil, err
	}
	s.Organization = org
	return s, nil
}

// ============================================================================
// Contract listing
// ============================================================================

// ListableContracts returns ALL or the deduplicated union of the scope's sources
func (a *SimpleAuthorizer) ListableContracts(ctx context.Context, userID string) (ContractSet, error) {
	s, err := a.Subject(ctx, userID)
	if err != nil {
		return ContractSet{}, err
	}

	scope := ListScopeFor(*s)
	if scope.All {
		return ContractSet{All: true}, nil
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT contract_id FROM contract_roles WHERE user_id = $1
		UNION
		SELECT id FROM contracts WHERE organization_do_id = $2 OR organization_po_id = $3
	`, scope.ByRoleOf, nullable(scope.BySubsidiary), nullable(scope.ByContractor))
	if err != nil {
		return ContractSet{}, fmt.Errorf("failed to list contracts for user: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	set := ContractSet{IDs: make([]string, 0)}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ContractSet{}, fmt.Errorf("failed to scan contract id: %w", err)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		set.IDs = append(set.IDs, id)
	}
	return set, rows.Err()
}

// ============================================================================
// Contract access
// ============================================================================

// CanViewContract checks visibility of one contract. The role lookup is
// skipped when organizational rules already grant access.
func (a *SimpleAuthorizer) CanViewContract(ctx context.Context, userID, contractID string) (bool, error) {
	s, err := a.Subject(ctx, userID)
	if err != nil {
		return false, err
	}
	contract, err := a.contracts.Get(ctx, contractID)
	if err != nil {
		return false, err
	}

	if CanViewContract(*s, *contract, false) {
		return true, nil
	}

	hasAnyRole, err := a.roles.HasAnyRole(ctx, contractID, userID)
	if err != nil {
		return false, err
	}
	allowed := CanViewContract(*s, *contract, hasAnyRole)
	if !allowed {
		zerolog.Ctx(ctx).Debug().Str("user_id", userID).Str("contract_id", contractID).Msg("contract view denied")
	}
	return allowed, nil
}

// CanManageContractRoles requires a system-owner GD or the GD role on this contract
func (a *SimpleAuthorizer) CanManageContractRoles(ctx context.Context, userID, contractID string) (bool, error) {
	s, err := a.Subject(ctx, userID)
	if err != nil {
		return false, err
	}
	if _, err := a.contracts.Get(ctx, contractID); err != nil {
		return false, err
	}

	if IsSystemOwnerDirector(*s) {
		return true, nil
	}

	hasDirectorRole, err := a.roles.HasRole(ctx, contractID, userID, db.GeneralDirector)
	if err != nil {
		return false, err
	}
	return CanManageContractRoles(*s, hasDirectorRole), nil
}

// nullable maps "" to NULL so the comparison never matches
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
