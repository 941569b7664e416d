package authz

import (
	"context"

	"github.com/phonginreallife/contracthub/db"
)

// OrganizationRepository handles CRUD operations for subsidiaries and contractors.
// This is purely a data access layer - no authorization logic.
type OrganizationRepository interface {
	CreateSubsidiary(ctx context.Context, s *db.Subsidiary) error
	CreateContractor(ctx context.Context, c *db.Contractor) error

	GetSubsidiary(ctx context.Context, id string) (*db.Subsidiary, error)
	GetContractor(ctx context.Context, id string) (*db.Contractor, error)

	// Resolve looks a polymorphic reference up in the table of its kind
	Resolve(ctx context.Context, ref db.OrgRef) (*db.Organization, error)
}

// UserRepository handles CRUD operations for users
type UserRepository interface {
	Create(ctx context.Context, user *db.User) error

	Get(ctx context.Context, id string) (*db.User, error)
	GetByUsername(ctx context.Context, username string) (*db.User, error)

	// GetForUpdate locks the user row for the rest of the surrounding transaction
	GetForUpdate(ctx context.Context, id string) (*db.User, error)

	// Update writes every field except the password hash
	Update(ctx context.Context, user *db.User) error

	// Delete removes a user (cascades to contract roles)
	Delete(ctx context.Context, id string) error

	List(ctx context.Context) ([]db.User, error)

	// ListByOrganizations returns the users belonging to any of refs
	ListByOrganizations(ctx context.Context, refs ...db.OrgRef) ([]db.User, error)
}

// ContractRepository handles CRUD operations for contracts
type ContractRepository interface {
	Create(ctx context.Context, contract *db.Contract) error
	Get(ctx context.Context, id string) (*db.Contract, error)
	Update(ctx context.Context, contract *db.Contract) error

	// Delete removes a contract (cascades to contract roles)
	Delete(ctx context.Context, id string) error

	List(ctx context.Context) ([]db.Contract, error)
	ListByIDs(ctx context.Context, ids []string) ([]db.Contract, error)
}
