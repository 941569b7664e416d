package authz

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/phonginreallife/contracthub/db"
)

// SimpleRoleManager implements RoleManager using SQL
type SimpleRoleManager struct {
	db *sql.DB
}

// NewSimpleRoleManager creates a new SimpleRoleManager
func NewSimpleRoleManager(db *sql.DB) *SimpleRoleManager {
	return &SimpleRoleManager{db: db}
}

// Ensure SimpleRoleManager implements RoleManager
var _ RoleManager = (*SimpleRoleManager)(nil)

// AddRole inserts a contract role. The unique constraint on
// (contract_id, user_id, role) rejects concurrent duplicates.
func (m *SimpleRoleManager) AddRole(ctx context.Context, contractID, userID string, role db.Role) (*db.ContractRole, error) {
	cr := &db.ContractRole{
		ID:         uuid.New().String(),
		ContractID: contractID,
		UserID:     userID,
		Role:       role,
		CreatedAt:  time.Now(),
	}

	_, err := conn(ctx, m.db).ExecContext(ctx, `
		INSERT INTO contract_roles (id, contract_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, cr.ID, cr.ContractID, cr.UserID, cr.Role, cr.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateRoleAssignment
		}
		return nil, fmt.Errorf("failed to add contract role: %w", err)
	}
	return cr, nil
}

// RemoveRole deletes one contract role
func (m *SimpleRoleManager) RemoveRole(ctx context.Context, contractID, userID string, role db.Role) error {
	result, err := conn(ctx, m.db).ExecContext(ctx, `
		DELETE FROM contract_roles
		WHERE contract_id = $1 AND user_id = $2 AND role = $3
	`, contractID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to remove contract role: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// HasRole checks for one specific role
func (m *SimpleRoleManager) HasRole(ctx context.Context, contractID, userID string, role db.Role) (bool, error) {
	var exists bool
	err := conn(ctx, m.db).QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM contract_roles
			WHERE contract_id = $1 AND user_id = $2 AND role = $3
		)
	`, contractID, userID, role).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check contract role: %w", err)
	}
	return exists, nil
}

// HasAnyRole checks whether the user holds any role on the contract
func (m *SimpleRoleManager) HasAnyRole(ctx context.Context, contractID, userID string) (bool, error) {
	var exists bool
	err := conn(ctx, m.db).QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM contract_roles
			WHERE contract_id = $1 AND user_id = $2
		)
	`, contractID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check contract roles: %w", err)
	}
	return exists, nil
}

// ListParticipants returns the role holders of a contract with their organization
func (m *SimpleRoleManager) ListParticipants(ctx context.Context, contractID string) ([]db.Participant, error) {
	rows, err := conn(ctx, m.db).QueryContext(ctx, `
		SELECT u.username, u.first_name, u.last_name, cr.role,
			u.organization_kind, COALESCE(s.id::text, c.id::text),
			COALESCE(s.name, c.name, ''), COALESCE(s.is_system_owner, false), COALESCE(c.licensed, false)
		FROM contract_roles cr
		JOIN users u ON u.id = cr.user_id
		LEFT JOIN subsidiaries s ON u.organization_kind = 'subsidiary' AND s.id = u.organization_id
		LEFT JOIN contractors c ON u.organization_kind = 'contractor' AND c.id = u.organization_id
		WHERE cr.contract_id = $1
		ORDER BY u.username, cr.role
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]db.Participant, 0)
	for rows.Next() {
		var (
			user            db.User
			role            db.Role
			kind, orgID     sql.NullString
			orgName         string
			owner, licensed bool
		)
		if err := rows.Scan(&user.Username, &user.FirstName, &user.LastName, &role,
			&kind, &orgID, &orgName, &owner, &licensed); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}

		p := db.Participant{
			Username:     user.Username,
			FullName:     user.FullName(),
			ContractRole: role.Display(),
		}
		if ref := orgRef(kind, orgID); ref != nil {
			if t, ok := organizationTables[ref.Kind]; ok {
				flag := owner
				if ref.Kind == db.OrgKindContractor {
					flag = licensed
				}
				org := t.wrap(db.OrgBase{ID: ref.ID, Name: orgName}, flag)
				p.Organization = &org
			}
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ListHolders returns the role rows of a contract with their users
func (m *SimpleRoleManager) ListHolders(ctx context.Context, contractID string) ([]RoleHolder, error) {
	rows, err := conn(ctx, m.db).QueryContext(ctx, `
		SELECT cr.role, u.id, u.username, u.first_name, u.last_name, u.email, u.job_title,
			u.organization_kind, u.organization_id, u.password_hash, u.is_active, u.created_at, u.updated_at
		FROM contract_roles cr
		JOIN users u ON u.id = cr.user_id
		WHERE cr.contract_id = $1
		ORDER BY u.username, cr.role
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role holders: %w", err)
	}
	defer rows.Close()

	holders := make([]RoleHolder, 0)
	for rows.Next() {
		var h RoleHolder
		var kind, orgID sql.NullString
		if err := rows.Scan(&h.Role, &h.User.ID, &h.User.Username, &h.User.FirstName, &h.User.LastName,
			&h.User.Email, &h.User.JobTitle, &kind, &orgID, &h.User.PasswordHash, &h.User.IsActive,
			&h.User.CreatedAt, &h.User.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role holder: %w", err)
		}
		h.User.Organization = orgRef(kind, orgID)
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

// ListUserContracts returns the distinct contracts the user holds roles in
func (m *SimpleRoleManager) ListUserContracts(ctx context.Context, userID string) ([]db.Contract, error) {
	rows, err := conn(ctx, m.db).QueryContext(ctx, `
		SELECT `+contractColumns+` FROM contracts
		WHERE id IN (SELECT contract_id FROM contract_roles WHERE user_id = $1)
		ORDER BY start_date, title
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user contracts: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// DeleteUserRoles removes the user's roles on the given contracts
func (m *SimpleRoleManager) DeleteUserRoles(ctx context.Context, userID string, contractIDs []string) (int64, error) {
	if len(contractIDs) == 0 {
		return 0, nil
	}
	result, err := conn(ctx, m.db).ExecContext(ctx, `
		DELETE FROM contract_roles
		WHERE user_id = $1 AND contract_id = ANY($2)
	`, userID, pq.Array(contractIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete user roles: %w", err)
	}
	return result.RowsAffected()
}

// DeleteContractRoles removes the given users' roles on one contract
func (m *SimpleRoleManager) DeleteContractRoles(ctx context.Context, contractID string, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result, err := conn(ctx, m.db).ExecContext(ctx, `
		DELETE FROM contract_roles
		WHERE contract_id = $1 AND user_id = ANY($2)
	`, contractID, pq.Array(userIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete contract roles: %w", err)
	}
	return result.RowsAffected()
}
