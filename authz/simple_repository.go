package authz

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/phonginreallife/contracthub/db"
)

// ============================================================================
// SimpleOrganizationRepository - SQL implementation of OrganizationRepository
// ============================================================================

// orgTable describes where one organization kind lives
type orgTable struct {
	table string
	flag  string
	wrap  func(base db.OrgBase, flag bool) db.Organization
}

// organizationTables resolves a polymorphic reference by kind
var organizationTables = map[db.OrgKind]orgTable{
	db.OrgKindSubsidiary: {
		table: "subsidiaries",
		flag:  "is_system_owner",
		wrap: func(base db.OrgBase, flag bool) db.Organization {
			return db.FromSubsidiary(db.Subsidiary{OrgBase: base, IsSystemOwner: flag})
		},
	},
	db.OrgKindContractor: {
		table: "contractors",
		flag:  "licensed",
		wrap: func(base db.OrgBase, flag bool) db.Organization {
			return db.FromContractor(db.Contractor{OrgBase: base, Licensed: flag})
		},
	},
}

// SimpleOrganizationRepository implements OrganizationRepository using SQL
type SimpleOrganizationRepository struct {
	db *sql.DB
}

// NewSimpleOrganizationRepository creates a new SimpleOrganizationRepository
func NewSimpleOrganizationRepository(db *sql.DB) *SimpleOrganizationRepository {
	return &SimpleOrganizationRepository{db: db}
}

// Ensure SimpleOrganizationRepository implements OrganizationRepository
var _ OrganizationRepository = (*SimpleOrganizationRepository)(nil)

// CreateSubsidiary inserts a subsidiary, assigning an id when missing
func (r *SimpleOrganizationRepository) CreateSubsidiary(ctx context.Context, s *db.Subsidiary) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO subsidiaries (id, name, is_system_owner)
		VALUES ($1, $2, $3)
	`, s.ID, s.Name, s.IsSystemOwner)
	if err != nil {
		return fmt.Errorf("failed to create subsidiary: %w", err)
	}
	return nil
}

// CreateContractor inserts a contractor, assigning an id when missing
func (r *SimpleOrganizationRepository) CreateContractor(ctx context.Context, c *db.Contractor) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO contractors (id, name, licensed)
		VALUES ($1, $2, $3)
	`, c.ID, c.Name, c.Licensed)
	if err != nil {
		return fmt.Errorf("failed to create contractor: %w", err)
	}
	return nil
}

// GetSubsidiary retrieves a subsidiary by ID
func (r *SimpleOrganizationRepository) GetSubsidiary(ctx context.Context, id string) (*db.Subsidiary, error) {
	var s db.Subsidiary
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, is_system_owner FROM subsidiaries WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.IsSystemOwner)
	if err != nil {
		if isMissingRow(err) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get subsidiary: %w", err)
	}
	return &s, nil
}

// GetContractor retrieves a contractor by ID
func (r *SimpleOrganizationRepository) GetContractor(ctx context.Context, id string) (*db.Contractor, error) {
	var c db.Contractor
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, name, licensed FROM contractors WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Licensed)
	if err != nil {
		if isMissingRow(err) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get contractor: %w", err)
	}
	return &c, nil
}

// Resolve looks the reference up in the table registered for its kind
func (r *SimpleOrganizationRepository) Resolve(ctx context.Context, ref db.OrgRef) (*db.Organization, error) {
	t, ok := organizationTables[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrOrganizationNotFound, ref.Kind)
	}

	var base db.OrgBase
	var flag bool
	err := conn(ctx, r.db).QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, name, %s FROM %s WHERE id = $1`, t.flag, t.table),
		ref.ID,
	).Scan(&base.ID, &base.Name, &flag)
	if err != nil {
		if isMissingRow(err) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to resolve organization %s: %w", ref, err)
	}

	org := t.wrap(base, flag)
	return &org, nil
}

// ============================================================================
// SimpleUserRepository - SQL implementation of UserRepository
// ============================================================================

const userColumns = `id, username, first_name, last_name, email, job_title,
	organization_kind, organization_id, password_hash, is_active, created_at, updated_at`

// SimpleUserRepository implements UserRepository using SQL
type SimpleUserRepository struct {
	db *sql.DB
}

// NewSimpleUserRepository creates a new SimpleUserRepository
func NewSimpleUserRepository(db *sql.DB) *SimpleUserRepository {
	return &SimpleUserRepository{db: db}
}

var _ UserRepository = (*SimpleUserRepository)(nil)

// Create inserts a user; a taken username fails with ErrUsernameTaken
func (r *SimpleUserRepository) Create(ctx context.Context, user *db.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	kind, orgID := orgArgs(user.Organization)
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name, email, job_title,
			organization_kind, organization_id, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.Username, user.FirstName, user.LastName, user.Email, user.JobTitle,
		kind, orgID, user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID
func (r *SimpleUserRepository) Get(ctx context.Context, id string) (*db.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername retrieves a user by username
func (r *SimpleUserRepository) GetByUsername(ctx context.Context, username string) (*db.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetForUpdate retrieves a user and locks the row
func (r *SimpleUserRepository) GetForUpdate(ctx context.Context, id string) (*db.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (r *SimpleUserRepository) getOne(ctx context.Context, query string, arg string) (*db.User, error) {
	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if isMissingRow(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update writes the user's profile and organization
func (r *SimpleUserRepository) Update(ctx context.Context, user *db.User) error {
	user.UpdatedAt = time.Now()

	kind, orgID := orgArgs(user.Organization)
	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE users
		SET username = $2, first_name = $3, last_name = $4, email = $5, job_title = $6,
			organization_kind = $7, organization_id = $8, is_active = $9, updated_at = $10
		WHERE id = $1
	`, user.ID, user.Username, user.FirstName, user.LastName, user.Email, user.JobTitle,
		kind, orgID, user.IsActive, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user
func (r *SimpleUserRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns every user ordered by username
func (r *SimpleUserRepository) List(ctx context.Context) ([]db.User, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

// ListByOrganizations returns the users of any of refs. Ids compare as text
// so a malformed id matches no one.
func (r *SimpleUserRepository) ListByOrganizations(ctx context.Context, refs ...db.OrgRef) ([]db.User, error) {
	if len(refs) == 0 {
		return []db.User{}, nil
	}

	clauses := make([]string, 0, len(refs))
	args := make([]interface{}, 0, len(refs)*2)
	for _, ref := range refs {
		clauses = append(clauses, fmt.Sprintf("(organization_kind = $%d AND organization_id::text = lower($%d))", len(args)+1, len(args)+2))
		args = append(args, string(ref.Kind), ref.ID)
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+strings.Join(clauses, " OR ")+` ORDER BY username`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*db.User, error) {
	var u db.User
	var kind, orgID sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.JobTitle,
		&kind, &orgID, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Organization = orgRef(kind, orgID)
	return &u, nil
}

// Helper function to scan user rows
func scanUsers(rows *sql.Rows) ([]db.User, error) {
	users := make([]db.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// orgArgs splits an optional reference into its two nullable columns
func orgArgs(ref *db.OrgRef) (interface{}, interface{}) {
	if ref == nil {
		return nil, nil
	}
	return string(ref.Kind), ref.ID
}

func orgRef(kind, id sql.NullString) *db.OrgRef {
	if !kind.Valid || !id.Valid {
		return nil
	}
	return &db.OrgRef{Kind: db.OrgKind(kind.String), ID: id.String}
}

// ============================================================================
// SimpleContractRepository - SQL implementation of ContractRepository
// ============================================================================

const contractColumns = `id, title, start_date, end_date, status,
	organization_do_id, organization_po_id, created_at, updated_at`

// SimpleContractRepository implements ContractRepository using SQL
type SimpleContractRepository struct {
	db *sql.DB
}

// NewSimpleContractRepository creates a new SimpleContractRepository
func NewSimpleContractRepository(db *sql.DB) *SimpleContractRepository {
	return &SimpleContractRepository{db: db}
}

var _ ContractRepository = (*SimpleContractRepository)(nil)

// Create inserts a contract; unknown parties fail with ErrOrganizationNotFound
func (r *SimpleContractRepository) Create(ctx context.Context, c *db.Contract) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO contracts (id, title, start_date, end_date, status,
			organization_do_id, organization_po_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.Title, c.StartDate, c.EndDate, c.Status, c.OrganizationDO, c.OrganizationPO, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

// Get retrieves a contract by ID
func (r *SimpleContractRepository) Get(ctx context.Context, id string) (*db.Contract, error) {
	c, err := scanContract(conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id))
	if err != nil {
		if isMissingRow(err) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

// Update writes every contract field
func (r *SimpleContractRepository) Update(ctx context.Context, c *db.Contract) error {
	c.UpdatedAt = time.Now()

	result, err := conn(ctx, r.db).ExecContext(ctx, `
		UPDATE contracts
		SET title = $2, start_date = $3, end_date = $4, status = $5,
			organization_do_id = $6, organization_po_id = $7, updated_at = $8
		WHERE id = $1
	`, c.ID, c.Title, c.StartDate, c.EndDate, c.Status, c.OrganizationDO, c.OrganizationPO, c.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrOrganizationNotFound
		}
		if isInvalidTextRepresentation(err) {
			return ErrContractNotFound
		}
		return fmt.Errorf("failed to update contract: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrContractNotFound
	}
	return nil
}

// Delete removes a contract and, through the cascade, its roles
func (r *SimpleContractRepository) Delete(ctx context.Context, id string) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		if isInvalidTextRepresentation(err) {
			return ErrContractNotFound
		}
		return fmt.Errorf("failed to delete contract: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrContractNotFound
	}
	return nil
}

// List returns every contract
func (r *SimpleContractRepository) List(ctx context.Context) ([]db.Contract, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts ORDER BY start_date, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// ListByIDs returns the contracts among ids that still exist
func (r *SimpleContractRepository) ListByIDs(ctx context.Context, ids []string) ([]db.Contract, error) {
	if len(ids) == 0 {
		return []db.Contract{}, nil
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = ANY($1) ORDER BY start_date, title`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

func scanContract(row rowScanner) (*db.Contract, error) {
	var c db.Contract
	if err := row.Scan(&c.ID, &c.Title, &c.StartDate, &c.EndDate, &c.Status,
		&c.OrganizationDO, &c.OrganizationPO, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Helper function to scan contract rows
func scanContracts(rows *sql.Rows) ([]db.Contract, error) {
	contracts := make([]db.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

// ============================================================================
// Factory function for convenience
// ============================================================================

// Backend bundles the SQL implementations sharing one connection pool
type Backend struct {
	Authorizer    *SimpleAuthorizer
	Roles         *SimpleRoleManager
	Organizations *SimpleOrganizationRepository
	Users         *SimpleUserRepository
	Contracts     *SimpleContractRepository
	Tx            *TxManager
}

// NewSimpleBackend creates all simple implementations at once
func NewSimpleBackend(db *sql.DB) *Backend {
	return &Backend{
		Authorizer:    NewSimpleAuthorizer(db),
		Roles:         NewSimpleRoleManager(db),
		Organizations: NewSimpleOrganizationRepository(db),
		Users:         NewSimpleUserRepository(db),
		Contracts:     NewSimpleContractRepository(db),
		Tx:            NewTxManager(db),
	}
}
