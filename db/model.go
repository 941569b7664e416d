package db

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ===========================
// ORGANIZATION MODELS
// ===========================

// OrgKind tags which concrete organization table a reference points at
type OrgKind string

const (
	OrgKindSubsidiary OrgKind = "subsidiary"
	OrgKindContractor OrgKind = "contractor"
)

// Valid reports whether k is one of the known organization kinds
func (k OrgKind) Valid() bool {
	return k == OrgKindSubsidiary || k == OrgKindContractor
}

// OrgRef is a polymorphic reference to exactly one organization.
// Stored as the (organization_kind, organization_id) column pair on users.
type OrgRef struct {
	Kind OrgKind `json:"kind"`
	ID   string  `json:"id"`
}

func (r OrgRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// ParseOrgRef parses the "kind:id" form used by the CLI and admin tooling
func ParseOrgRef(s string) (OrgRef, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return OrgRef{}, fmt.Errorf("organization reference must look like kind:id, got %q", s)
	}
	ref := OrgRef{Kind: OrgKind(kind), ID: id}
	if !ref.Kind.Valid() {
		return OrgRef{}, fmt.Errorf("unknown organization kind %q", kind)
	}
	return ref, nil
}

// SameOrgRef compares two optional references
func SameOrgRef(a, b *OrgRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// OrgBase holds the fields shared by every organization kind
type OrgBase struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subsidiary is an organization of the group; a system owner's general
// director sees every contract.
type Subsidiary struct {
	OrgBase
	IsSystemOwner bool `json:"is_system_owner"`
}

// Contractor is an external organization working under contracts
type Contractor struct {
	OrgBase
	Licensed bool `json:"licensed"`
}

// NewSubsidiary builds a subsidiary with a validated name
func NewSubsidiary(name string, isSystemOwner bool) (*Subsidiary, error) {
	if err := ValidateOrganizationName(name); err != nil {
		return nil, err
	}
	return &Subsidiary{OrgBase: OrgBase{Name: name}, IsSystemOwner: isSystemOwner}, nil
}

// NewContractor builds a contractor with a validated name
func NewContractor(name string, licensed bool) (*Contractor, error) {
	if err := ValidateOrganizationName(name); err != nil {
		return nil, err
	}
	return &Contractor{OrgBase: OrgBase{Name: name}, Licensed: licensed}, nil
}

// Ref returns the polymorphic reference for this subsidiary
func (s Subsidiary) Ref() OrgRef { return OrgRef{Kind: OrgKindSubsidiary, ID: s.ID} }

// Ref returns the polymorphic reference for this contractor
func (c Contractor) Ref() OrgRef { return OrgRef{Kind: OrgKindContractor, ID: c.ID} }

// Organization is the tagged-union view of a resolved organization.
// Flags only carry meaning for their own kind.
type Organization struct {
	OrgBase
	Kind     OrgKind
	owner    bool
	licensed bool
}

// FromSubsidiary wraps a subsidiary as an Organization
func FromSubsidiary(s Subsidiary) Organization {
	return Organization{OrgBase: s.OrgBase, Kind: OrgKindSubsidiary, owner: s.IsSystemOwner}
}

// FromContractor wraps a contractor as an Organization
func FromContractor(c Contractor) Organization {
	return Organization{OrgBase: c.OrgBase, Kind: OrgKindContractor, licensed: c.Licensed}
}

// Ref returns the polymorphic reference for this organization
func (o Organization) Ref() OrgRef { return OrgRef{Kind: o.Kind, ID: o.ID} }

// IsSystemOwner is only ever true for subsidiaries
func (o Organization) IsSystemOwner() bool {
	return o.Kind == OrgKindSubsidiary && o.owner
}

// IsLicensed is only ever true for contractors
func (o Organization) IsLicensed() bool {
	return o.Kind == OrgKindContractor && o.licensed
}

// MarshalJSON renders the concrete variant's shape
func (o Organization) MarshalJSON() ([]byte, error) {
	if o.Kind == OrgKindSubsidiary {
		return json.Marshal(Subsidiary{OrgBase: o.OrgBase, IsSystemOwner: o.owner})
	}
	return json.Marshal(Contractor{OrgBase: o.OrgBase, Licensed: o.licensed})
}

// ===========================
// USER MODELS
// ===========================

// JobTitle is both a user's job title and the role held within a contract
type JobTitle string

// Role is the contract-scoped variant of JobTitle; both share one enum
type Role = JobTitle

const (
	GeneralDirector JobTitle = "GD"
	ViceDirector    JobTitle = "VD"
	Manager         JobTitle = "MN"
	Specialist      JobTitle = "SP"
	Assistant       JobTitle = "AS"
)

var jobTitleNames = map[JobTitle]string{
	GeneralDirector: "General Director",
	ViceDirector:    "Vice Director",
	Manager:         "Manager",
	Specialist:      "Specialist",
	Assistant:       "Assistant",
}

// JobTitles lists the enum in declaration order
var JobTitles = []JobTitle{GeneralDirector, ViceDirector, Manager, Specialist, Assistant}

// Valid reports whether t is a member of the fixed enum
func (t JobTitle) Valid() bool {
	_, ok := jobTitleNames[t]
	return ok
}

// Display returns the human readable name, or the raw code when unknown
func (t JobTitle) Display() string {
	if name, ok := jobTitleNames[t]; ok {
		return name
	}
	return string(t)
}

// User is a person tied to at most one organization
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	JobTitle     JobTitle  `json:"job_title"`
	Organization *OrgRef   `json:"organization,omitempty"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName mirrors the "first last" display used across the API
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// BelongsTo reports whether the user's organization is ref
func (u User) BelongsTo(ref OrgRef) bool {
	return u.Organization != nil && *u.Organization == ref
}

// UserSummary is the public user shape returned by the API
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Summary converts a user to its public shape
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName()}
}

// ===========================
// CONTRACT MODELS
// ===========================

// ContractStatus is a plain stored attribute without automatic transitions
type ContractStatus string

const (
	StatusPaid   ContractStatus = "PD"
	StatusUnpaid ContractStatus = "UP"
)

// Valid reports whether s is PD or UP
func (s ContractStatus) Valid() bool {
	return s == StatusPaid || s == StatusUnpaid
}

// Display returns the human readable status
func (s ContractStatus) Display() string {
	switch s {
	case StatusPaid:
		return "Paid"
	case StatusUnpaid:
		return "Unpaid"
	default:
		return string(s)
	}
}

// Contract binds one subsidiary ("do") and one contractor ("po")
type Contract struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	StartDate      Date           `json:"start_date"`
	EndDate        Date           `json:"end_date"`
	Status         ContractStatus `json:"status"`
	OrganizationDO string         `json:"organization_do_id"`
	OrganizationPO string         `json:"organization_po_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Involves reports whether ref is one of the contract's two parties
func (c Contract) Involves(ref OrgRef) bool {
	switch ref.Kind {
	case OrgKindSubsidiary:
		return c.OrganizationDO == ref.ID
	case OrgKindContractor:
		return c.OrganizationPO == ref.ID
	default:
		return false
	}
}

// Parties returns the references of both organizations
func (c Contract) Parties() (OrgRef, OrgRef) {
	return OrgRef{Kind: OrgKindSubsidiary, ID: c.OrganizationDO},
		OrgRef{Kind: OrgKindContractor, ID: c.OrganizationPO}
}

// ContractRole assigns a user a role within one contract
type ContractRole struct {
	ID         string    `json:"id"`
	ContractID string    `json:"contract_id"`
	UserID     string    `json:"user_id"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// Participant is a role holder as shown on a contract
type Participant struct {
	Username     string        `json:"username"`
	FullName     string        `json:"full_name"`
	ContractRole string        `json:"contract_role"`
	Organization *Organization `json:"organization"`
}

// ContractDetail is the API shape of a contract with its parties and participants
type ContractDetail struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	StartDate      Date           `json:"start_date"`
	EndDate        Date           `json:"end_date"`
	Status         ContractStatus `json:"status"`
	OrganizationDO *Subsidiary    `json:"organization_do"`
	OrganizationPO *Contractor    `json:"organization_po"`
	Participants   []Participant  `json:"participants"`
}

// ===========================
// REQUEST MODELS
// ===========================

type CreateContractRequest struct {
	Title          string         `json:"title" binding:"required"`
	StartDate      Date           `json:"start_date" binding:"required"`
	EndDate        Date           `json:"end_date" binding:"required"`
	Status         ContractStatus `json:"status" binding:"required"`
	OrganizationDO string         `json:"organization_do_id" binding:"required"`
	OrganizationPO string         `json:"organization_po_id" binding:"required"`
}

type UpdateContractRequest struct {
	Title          *string         `json:"title,omitempty"`
	StartDate      *Date           `json:"start_date,omitempty"`
	EndDate        *Date           `json:"end_date,omitempty"`
	Status         *ContractStatus `json:"status,omitempty"`
	OrganizationDO *string         `json:"organization_do_id,omitempty"`
	OrganizationPO *string         `json:"organization_po_id,omitempty"`
}

type CreateUserRequest struct {
	Username     string   `json:"username" binding:"required"`
	Password     string   `json:"password" binding:"required"`
	FirstName    string   `json:"first_name" binding:"required"`
	LastName     string   `json:"last_name" binding:"required"`
	Email        string   `json:"email"`
	JobTitle     JobTitle `json:"job_title" binding:"required"`
	Organization *OrgRef  `json:"organization,omitempty"`
}

// ManageRoleRequest is the body of POST/DELETE manage-users
type ManageRoleRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Role     Role   `json:"role" form:"role"`
}

type ExportRequest struct {
	ContractIDs []string `json:"contract_ids"`
}
