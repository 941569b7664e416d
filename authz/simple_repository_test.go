package authz

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/phonginreallife/contracthub/db"
)

var (
	uniqueViolation     = &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	foreignKeyViolation = &pq.Error{Code: "23503", Message: "insert or update violates foreign key constraint"}
	malformedUUID       = &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}
)

// ============================================================================
// SimpleOrganizationRepository Tests
// ============================================================================

func TestSimpleOrganizationRepository_Create(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleOrganizationRepository(conn)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO subsidiaries").
		WithArgs(sqlmock.AnyArg(), "North Holdings", true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	sub := &db.Subsidiary{OrgBase: db.OrgBase{Name: "North Holdings"}, IsSystemOwner: true}
	if err := repo.CreateSubsidiary(ctx, sub); err != nil {
		t.Fatalf("CreateSubsidiary() error = %v", err)
	}
	if sub.ID == "" {
		t.Error("expected an id to be generated")
	}

	mock.ExpectExec("INSERT INTO contractors").
		WithArgs("c1", "Builders", false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	con := &db.Contractor{OrgBase: db.OrgBase{ID: "c1", Name: "Builders"}}
	if err := repo.CreateContractor(ctx, con); err != nil {
		t.Fatalf("CreateContractor() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleOrganizationRepository_Resolve(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleOrganizationRepository(conn)
	ctx := context.Background()

	tests := []struct {
		name     string
		ref      db.OrgRef
		mockFunc func()
		wantKind db.OrgKind
		wantFlag bool
		wantErr  error
	}{
		{
			name: "subsidiary",
			ref:  db.OrgRef{Kind: db.OrgKindSubsidiary, ID: "s1"},
			mockFunc: func() {
				mock.ExpectQuery("SELECT id, name, is_system_owner FROM subsidiaries").
					WithArgs("s1").
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_system_owner"}).AddRow("s1", "Head Office", true))
			},
			wantKind: db.OrgKindSubsidiary,
			wantFlag: true,
		},
		{
			name: "contractor",
			ref:  db.OrgRef{Kind: db.OrgKindContractor, ID: "c1"},
			mockFunc: func() {
				mock.ExpectQuery("SELECT id, name, licensed FROM contractors").
					WithArgs("c1").
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "licensed"}).AddRow("c1", "Builders", true))
			},
			wantKind: db.OrgKindContractor,
			wantFlag: true,
		},
		{
			name: "missing row",
			ref:  db.OrgRef{Kind: db.OrgKindContractor, ID: "c404"},
			mockFunc: func() {
				mock.ExpectQuery("SELECT id, name, licensed FROM contractors").
					WithArgs("c404").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrOrganizationNotFound,
		},
		{
			name:     "unknown kind",
			ref:      db.OrgRef{Kind: "vendor", ID: "v1"},
			mockFunc: func() {},
			wantErr:  ErrOrganizationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockFunc()
			org, err := repo.Resolve(ctx, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if org.Kind != tt.wantKind || org.ID != tt.ref.ID {
				t.Errorf("Resolve() = %+v, want kind %s", org, tt.wantKind)
			}
			flag := org.IsSystemOwner()
			if tt.wantKind == db.OrgKindContractor {
				flag = org.IsLicensed()
			}
			if flag != tt.wantFlag {
				t.Errorf("flag = %v, want %v", flag, tt.wantFlag)
			}
		})
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// ============================================================================
// SimpleUserRepository Tests
// ============================================================================

func TestSimpleUserRepository_Create(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleUserRepository(conn)
	ctx := context.Background()

	tests := []struct {
		name     string
		user     *db.User
		mockFunc func()
		wantErr  error
	}{
		{
			name: "user with organization",
			user: &db.User{ID: "u1", Username: "alice", FirstName: "Alice", LastName: "Smith", JobTitle: db.Manager,
				Organization: &db.OrgRef{Kind: db.OrgKindSubsidiary, ID: "s1"}},
			mockFunc: func() {
				mock.ExpectExec("INSERT INTO users").
					WithArgs("u1", "alice", "Alice", "Smith", "", "MN", "subsidiary", "s1", "", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "user without organization",
			user: &db.User{ID: "u2", Username: "bob", FirstName: "Bob", LastName: "Jones", JobTitle: db.Assistant},
			mockFunc: func() {
				mock.ExpectExec("INSERT INTO users").
					WithArgs("u2", "bob", "Bob", "Jones", "", "AS", nil, nil, "", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "username taken",
			user: &db.User{ID: "u3", Username: "alice", FirstName: "Alice", LastName: "Again", JobTitle: db.Manager},
			mockFunc: func() {
				mock.ExpectExec("INSERT INTO users").WillReturnError(uniqueViolation)
			},
			wantErr: ErrUsernameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockFunc()
			err := repo.Create(ctx, tt.user)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Create() error = %v", err)
			}
		})
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleUserRepository_Get(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleUserRepository(conn)
	ctx := context.Background()

	mock.ExpectQuery("FROM users WHERE username").
		WithArgs("u1").
		WillReturnRows(userRow("u1", db.Specialist, db.OrgKindContractor, "c1"))
	user, err := repo.GetByUsername(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	want := &db.OrgRef{Kind: db.OrgKindContractor, ID: "c1"}
	if !db.SameOrgRef(user.Organization, want) || user.JobTitle != db.Specialist {
		t.Errorf("GetByUsername() = %+v", user)
	}

	mock.ExpectQuery("FROM users WHERE id = \\$1 FOR UPDATE").
		WithArgs("u2").
		WillReturnRows(userRow("u2", db.Assistant, "", ""))
	user, err = repo.GetForUpdate(ctx, "u2")
	if err != nil {
		t.Fatalf("GetForUpdate() error = %v", err)
	}
	if user.Organization != nil {
		t.Errorf("expected no organization, got %+v", user.Organization)
	}

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.Get(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Get() error = %v, want ErrUserNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleUserRepository_Update(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleUserRepository(conn)
	ctx := context.Background()

	user := &db.User{ID: "u1", Username: "alice", FirstName: "Alice", LastName: "Smith", JobTitle: db.Manager,
		Organization: &db.OrgRef{Kind: db.OrgKindContractor, ID: "c2"}, IsActive: true}

	mock.ExpectExec("UPDATE users").
		WithArgs("u1", "alice", "Alice", "Smith", "", "MN", "contractor", "c2", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Update(ctx, user); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update() error = %v, want ErrUserNotFound", err)
	}

	mock.ExpectExec("DELETE FROM users").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleUserRepository_ListByOrganizations(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleUserRepository(conn)
	ctx := context.Background()

	rows := sqlmock.NewRows(userCols).
		AddRow("u1", "alice", "Alice", "Smith", "", "GD", "subsidiary", "s1", "", true, fixedTime, fixedTime).
		AddRow("u2", "bob", "Bob", "Jones", "", "SP", "contractor", "c1", "", true, fixedTime, fixedTime)
	mock.ExpectQuery(`organization_kind = \$1 AND organization_id::text = lower\(\$2\)\) OR \(organization_kind = \$3 AND organization_id::text = lower\(\$4\)`).
		WithArgs("subsidiary", "s1", "contractor", "c1").
		WillReturnRows(rows)

	users, err := repo.ListByOrganizations(ctx,
		db.OrgRef{Kind: db.OrgKindSubsidiary, ID: "s1"},
		db.OrgRef{Kind: db.OrgKindContractor, ID: "c1"},
	)
	if err != nil {
		t.Fatalf("ListByOrganizations() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	users, err = repo.ListByOrganizations(ctx)
	if err != nil || len(users) != 0 {
		t.Errorf("no refs should return no users without querying, got %v, %v", users, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// ============================================================================
// SimpleContractRepository Tests
// ============================================================================

func TestSimpleContractRepository_Create(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleContractRepository(conn)
	ctx := context.Background()

	contract := &db.Contract{Title: "Bridge maintenance", Status: db.StatusUnpaid, OrganizationDO: "s1", OrganizationPO: "c1",
		StartDate: db.DateOf(fixedTime), EndDate: db.DateOf(fixedTime.AddDate(0, 6, 0))}

	mock.ExpectExec("INSERT INTO contracts").
		WithArgs(sqlmock.AnyArg(), "Bridge maintenance", "2030-01-01", "2030-07-01", "UP", "s1", "c1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := repo.Create(ctx, contract); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if contract.ID == "" {
		t.Error("expected an id to be generated")
	}

	mock.ExpectExec("INSERT INTO contracts").WillReturnError(foreignKeyViolation)
	if err := repo.Create(ctx, &db.Contract{}); !errors.Is(err, ErrOrganizationNotFound) {
		t.Errorf("Create() error = %v, want ErrOrganizationNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleContractRepository_GetAndDelete(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleContractRepository(conn)
	ctx := context.Background()

	mock.ExpectQuery("FROM contracts WHERE id").WithArgs("k1").WillReturnRows(contractRow("k1", "s1", "c1"))
	c, err := repo.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.StartDate.String() != "2030-01-01" || c.Status != db.StatusUnpaid {
		t.Errorf("Get() = %+v", c)
	}

	mock.ExpectQuery("FROM contracts WHERE id").WithArgs("k404").WillReturnError(sql.ErrNoRows)
	if _, err := repo.Get(ctx, "k404"); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("Get() error = %v, want ErrContractNotFound", err)
	}

	mock.ExpectExec("DELETE FROM contracts").WithArgs("k404").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(ctx, "k404"); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("Delete() error = %v, want ErrContractNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleContractRepository_ListByIDs(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	repo := NewSimpleContractRepository(conn)
	ctx := context.Background()

	rows := contractRow("k1", "s1", "c1").
		AddRow("k2", "Contract k2 title", fixedTime, fixedTime.AddDate(1, 0, 0), "PD", "s1", "c2", fixedTime, fixedTime)
	mock.ExpectQuery("FROM contracts WHERE id = ANY").
		WithArgs(pq.Array([]string{"k1", "k2"})).
		WillReturnRows(rows)

	contracts, err := repo.ListByIDs(ctx, []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("ListByIDs() error = %v", err)
	}
	if len(contracts) != 2 || contracts[1].Status != db.StatusPaid {
		t.Errorf("ListByIDs() = %+v", contracts)
	}

	contracts, err = repo.ListByIDs(ctx, nil)
	if err != nil || len(contracts) != 0 {
		t.Errorf("empty id list should not query, got %v, %v", contracts, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleRepositories_MalformedID(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer conn.Close()

	orgs := NewSimpleOrganizationRepository(conn)
	users := NewSimpleUserRepository(conn)
	contracts := NewSimpleContractRepository(conn)
	ctx := context.Background()

	tests := []struct {
		name    string
		expect  func()
		call    func() error
		wantErr error
	}{
		{
			name:   "contract get",
			expect: func() { mock.ExpectQuery("FROM contracts WHERE id").WithArgs("abc").WillReturnError(malformedUUID) },
			call: func() error {
				_, err := contracts.Get(ctx, "abc")
				return err
			},
			wantErr: ErrContractNotFound,
		},
		{
			name:    "contract delete",
			expect:  func() { mock.ExpectExec("DELETE FROM contracts").WithArgs("abc").WillReturnError(malformedUUID) },
			call:    func() error { return contracts.Delete(ctx, "abc") },
			wantErr: ErrContractNotFound,
		},
		{
			name:   "user get",
			expect: func() { mock.ExpectQuery("FROM users WHERE id").WithArgs("abc").WillReturnError(malformedUUID) },
			call: func() error {
				_, err := users.Get(ctx, "abc")
				return err
			},
			wantErr: ErrUserNotFound,
		},
		{
			name:    "user delete",
			expect:  func() { mock.ExpectExec("DELETE FROM users").WithArgs("abc").WillReturnError(malformedUUID) },
			call:    func() error { return users.Delete(ctx, "abc") },
			wantErr: ErrUserNotFound,
		},
		{
			name:   "subsidiary get",
			expect: func() { mock.ExpectQuery("FROM subsidiaries").WithArgs("abc").WillReturnError(malformedUUID) },
			call: func() error {
				_, err := orgs.GetSubsidiary(ctx, "abc")
				return err
			},
			wantErr: ErrOrganizationNotFound,
		},
		{
			name:   "contractor get",
			expect: func() { mock.ExpectQuery("FROM contractors").WithArgs("abc").WillReturnError(malformedUUID) },
			call: func() error {
				_, err := orgs.GetContractor(ctx, "abc")
				return err
			},
			wantErr: ErrOrganizationNotFound,
		},
		{
			name:   "organization resolve",
			expect: func() { mock.ExpectQuery("FROM contractors").WithArgs("abc").WillReturnError(malformedUUID) },
			call: func() error {
				_, err := orgs.Resolve(ctx, db.OrgRef{Kind: db.OrgKindContractor, ID: "abc"})
				return err
			},
			wantErr: ErrOrganizationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.expect()
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
