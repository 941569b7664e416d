package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/phonginreallife/contracthub/db"
)

// detailConcurrency bounds the contracts expanded at once by ListContracts
const detailConcurrency = 8

// ============================================================================
// ContractService
// ============================================================================

// ContractService handles contract business logic.
// It combines authorization, role management, and repositories.
type ContractService struct {
	authz     Authorizer
	roles     RoleManager
	contracts ContractRepository
	users     UserRepository
	orgs      OrganizationRepository
	tx        Transactor
	now       func() time.Time
}

// NewContractService creates a new contract service
func NewContractService(az Authorizer, roles RoleManager, contracts ContractRepository,
	users UserRepository, orgs OrganizationRepository, tx Transactor) *ContractService {
	return &ContractService{
		authz:     az,
		roles:     roles,
		contracts: contracts,
		users:     users,
		orgs:      orgs,
		tx:        tx,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for start date validation
func (s *ContractService) WithClock(now func() time.Time) *ContractService {
	s.now = now
	return s
}

func (s *ContractService) today() db.Date {
	return db.DateOf(s.now().UTC())
}

// ListContracts returns every contract the user may list, expanded
func (s *ContractService) ListContracts(ctx context.Context, userID string) ([]db.ContractDetail, error) {
	set, err := s.authz.ListableContracts(ctx, userID)
	if err != nil {
		return nil, err
	}

	var contracts []db.Contract
	if set.All {
		contracts, err = s.contracts.List(ctx)
	} else {
		contracts, err = s.contracts.ListByIDs(ctx, set.IDs)
	}
	if err != nil {
		return nil, err
	}

	details := make([]db.ContractDetail, len(contracts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, c := range contracts {
		g.Go(func() error {
			d, err := s.detail(gctx, c)
			if err != nil {
				return err
			}
			details[i] = *d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

// GetContract returns one contract if the user may view it
func (s *ContractService) GetContract(ctx context.Context, userID, contractID string) (*db.ContractDetail, error) {
	allowed, err := s.authz.CanViewContract(ctx, userID, contractID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	return s.GetContractDetail(ctx, contractID)
}

// GetContractDetail loads one contract without a visibility check. Callers
// must have run CanViewContract already, as RequireContractView does.
func (s *ContractService) GetContractDetail(ctx context.Context, contractID string) (*db.ContractDetail, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, *contract)
}

// detail loads both parties and the participants concurrently
func (s *ContractService) detail(ctx context.Context, c db.Contract) (*db.ContractDetail, error) {
	d := &db.ContractDetail{
		ID:        c.ID,
		Title:     c.Title,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
		Status:    c.Status,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sub, err := s.orgs.GetSubsidiary(gctx, c.OrganizationDO)
		if err != nil {
			return fmt.Errorf("failed to load subsidiary of contract %s: %w", c.ID, err)
		}
		d.OrganizationDO = sub
		return nil
	})
	g.Go(func() error {
		con, err := s.orgs.GetContractor(gctx, c.OrganizationPO)
		if err != nil {
			return fmt.Errorf("failed to load contractor of contract %s: %w", c.ID, err)
		}
		d.OrganizationPO = con
		return nil
	})
	g.Go(func() error {
		participants, err := s.roles.ListParticipants(gctx, c.ID)
		if err != nil {
			return err
		}
		d.Participants = participants
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// ListEligibleUsers returns the users the actor could assign roles to.
// A system-owner GD may assign anyone; otherwise only members of the two parties.
func (s *ContractService) ListEligibleUsers(ctx context.Context, actorID, contractID string) ([]db.User, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(ctx, actorID, contractID); err != nil {
		return nil, err
	}

	actor, err := s.authz.Subject(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if IsSystemOwnerDirector(*actor) {
		return s.users.List(ctx)
	}

	do, po := contract.Parties()
	return s.users.ListByOrganizations(ctx, do, po)
}

// AddRole assigns role on the contract to the user called username
func (s *ContractService) AddRole(ctx context.Context, actorID, contractID, username string, role db.Role) (*db.ContractRole, error) {
	contract, err := s.contracts.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(ctx, actorID, contractID); err != nil {
		return nil, err
	}

	candidate, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := db.ValidateRole(role); err != nil {
		return nil, ErrInvalidRole
	}

	if !IsEligibleRoleTarget(*candidate, *contract) {
		actor, err := s.authz.Subject(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !IsSystemOwnerDirector(*actor) {
			return nil, ErrIneligibleUser
		}
	}

	exists, err := s.roles.HasRole(ctx, contractID, candidate.ID, role)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateRoleAssignment
	}

	cr, err := s.roles.AddRole(ctx, contractID, candidate.ID, role)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("actor_id", actorID).
		Str("contract_id", contractID).
		Str("user_id", candidate.ID).
		Str("role", string(role)).
		Msg("contract role added")
	return cr, nil
}

// RemoveRole revokes role on the contract from the user called username
func (s *ContractService) RemoveRole(ctx context.Context, actorID, contractID, username string, role db.Role) error {
	if _, err := s.contracts.Get(ctx, contractID); err != nil {
		return err
	}
	if err := s.requireManage(ctx, actorID, contractID); err != nil {
		return err
	}

	candidate, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := db.ValidateRole(role); err != nil {
		return ErrInvalidRole
	}

	if err := s.roles.RemoveRole(ctx, contractID, candidate.ID, role); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("actor_id", actorID).
		Str("contract_id", contractID).
		Str("user_id", candidate.ID).
		Str("role", string(role)).
		Msg("contract role removed")
	return nil
}

func (s *ContractService) requireManage(ctx context.Context, actorID, contractID string) error {
	allowed, err := s.authz.CanManageContractRoles(ctx, actorID, contractID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// ============================================================================
// Contract administration
// ============================================================================

// CreateContract validates and stores a new contract
func (s *ContractService) CreateContract(ctx context.Context, input db.CreateContractRequest) (*db.Contract, error) {
	contract := &db.Contract{
		Title:          input.Title,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Status:         input.Status,
		OrganizationDO: input.OrganizationDO,
		OrganizationPO: input.OrganizationPO,
	}
	if err := contract.Validate(s.today(), true); err != nil {
		return nil, err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireParties(ctx, *contract); err != nil {
			return err
		}
		return s.contracts.Create(ctx, contract)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// UpdateContract applies input and, in the same transaction, drops the roles
// of users whose organization is no longer a party of the contract.
func (s *ContractService) UpdateContract(ctx context.Context, contractID string, input db.UpdateContractRequest) (*db.Contract, error) {
	var updated *db.Contract
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		contract, err := s.contracts.Get(ctx, contractID)
		if err != nil {
			return err
		}

		if input.Title != nil {
			contract.Title = *input.Title
		}
		if input.StartDate != nil {
			contract.StartDate = *input.StartDate
		}
		if input.EndDate != nil {
			contract.EndDate = *input.EndDate
		}
		if input.Status != nil {
			contract.Status = *input.Status
		}
		if input.OrganizationDO != nil {
			contract.OrganizationDO = *input.OrganizationDO
		}
		if input.OrganizationPO != nil {
			contract.OrganizationPO = *input.OrganizationPO
		}

		if err := contract.Validate(s.today(), false); err != nil {
			return err
		}
		if err := s.requireParties(ctx, *contract); err != nil {
			return err
		}
		if err := s.contracts.Update(ctx, contract); err != nil {
			return err
		}

		pruned, err := s.pruneOutsiders(ctx, *contract)
		if err != nil {
			return err
		}
		if pruned > 0 {
			zerolog.Ctx(ctx).Info().
				Str("contract_id", contract.ID).
				Int64("roles_removed", pruned).
				Msg("removed roles of users outside the contract's organizations")
		}

		updated = contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteContract removes a contract and its roles
func (s *ContractService) DeleteContract(ctx context.Context, contractID string) error {
	return s.contracts.Delete(ctx, contractID)
}

func (s *ContractService) requireParties(ctx context.Context, c db.Contract) error {
	if _, err := s.orgs.GetSubsidiary(ctx, c.OrganizationDO); err != nil {
		return err
	}
	if _, err := s.orgs.GetContractor(ctx, c.OrganizationPO); err != nil {
		return err
	}
	return nil
}

// pruneOutsiders deletes roles held by users belonging to neither party
func (s *ContractService) pruneOutsiders(ctx context.Context, c db.Contract) (int64, error) {
	holders, err := s.roles.ListHolders(ctx, c.ID)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{})
	var outsiders []string
	for _, h := range holders {
		if h.User.Organization != nil && c.Involves(*h.User.Organization) {
			continue
		}
		if _, ok := seen[h.User.ID]; ok {
			continue
		}
		seen[h.User.ID] = struct{}{}
		outsiders = append(outsiders, h.User.ID)
	}
	return s.roles.DeleteContractRoles(ctx, c.ID, outsiders)
}

// ============================================================================
// UserService
// ============================================================================

// UserService persists users and keeps their contract roles consistent
// with their organization.
type UserService struct {
	users UserRepository
	roles RoleManager
	orgs  OrganizationRepository
	tx    Transactor
}

// NewUserService creates a new user service
func NewUserService(users UserRepository, roles RoleManager, orgs OrganizationRepository, tx Transactor) *UserService {
	return &UserService{users: users, roles: roles, orgs: orgs, tx: tx}
}

// SaveUser inserts or updates a user. When an existing user's organization
// changes, their roles on contracts not involving the new organization are
// deleted in the same transaction. A user without a prior row is inserted
// and nothing is pruned.
func (s *UserService) SaveUser(ctx context.Context, user *db.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireOrganization(ctx, user.Organization); err != nil {
			return err
		}

		var prior *db.User
		if user.ID != "" {
			var err error
			prior, err = s.users.GetForUpdate(ctx, user.ID)
			if err != nil && !errors.Is(err, ErrUserNotFound) {
				return err
			}
		}
		if prior == nil {
			return s.users.Create(ctx, user)
		}

		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		if db.SameOrgRef(prior.Organization, user.Organization) {
			return nil
		}
		_, err := s.pruneRoles(ctx, user.ID, user.Organization)
		return err
	})
}

// UpdateUserOrganization moves the user to ref (nil detaches them) and
// prunes their stale contract roles atomically.
func (s *UserService) UpdateUserOrganization(ctx context.Context, userID string, ref *db.OrgRef) (*db.User, error) {
	var user *db.User
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if db.SameOrgRef(user.Organization, ref) {
			return nil
		}
		if err := s.requireOrganization(ctx, ref); err != nil {
			return err
		}

		user.Organization = ref
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		_, err = s.pruneRoles(ctx, user.ID, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user and, through the cascade, their roles
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.users.Delete(ctx, userID)
}

func (s *UserService) requireOrganization(ctx context.Context, ref *db.OrgRef) error {
	if ref == nil {
		return nil
	}
	_, err := s.orgs.Resolve(ctx, *ref)
	return err
}

// pruneRoles deletes the user's roles on contracts that do not involve ref.
// A nil ref prunes every role.
func (s *UserService) pruneRoles(ctx context.Context, userID string, ref *db.OrgRef) (int64, error) {
	contracts, err := s.roles.ListUserContracts(ctx, userID)
	if err != nil {
		return 0, err
	}

	var stale []string
	for _, c := range contracts {
		if ref == nil || !c.Involves(*ref) {
			stale = append(stale, c.ID)
		}
	}

	removed, err := s.roles.DeleteUserRoles(ctx, userID, stale)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		zerolog.Ctx(ctx).Info().
			Str("user_id", userID).
			Int64("roles_removed", removed).
			Msg("pruned contract roles after organization change")
	}
	return removed, nil
}

// ============================================================================
// OrganizationService
// ============================================================================

// OrganizationService creates organizations and lists their members
type OrganizationService struct {
	orgs  OrganizationRepository
	users UserRepository
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgs OrganizationRepository, users UserRepository) *OrganizationService {
	return &OrganizationService{orgs: orgs, users: users}
}

// CreateSubsidiary validates the name and stores a subsidiary
func (s *OrganizationService) CreateSubsidiary(ctx context.Context, name string, isSystemOwner bool) (*db.Subsidiary, error) {
	sub, err := db.NewSubsidiary(name, isSystemOwner)
	if err != nil {
		return nil, err
	}
	if err := s.orgs.CreateSubsidiary(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateContractor validates the name and stores a contractor
func (s *OrganizationService) CreateContractor(ctx context.Context, name string, licensed bool) (*db.Contractor, error) {
	con, err := db.NewContractor(name, licensed)
	if err != nil {
		return nil, err
	}
	if err := s.orgs.CreateContractor(ctx, con); err != nil {
		return nil, err
	}
	return con, nil
}

// ListOrganizationUsers returns the members of a subsidiary and a contractor,
// the candidate pool shown while drafting a contract.
func (s *OrganizationService) ListOrganizationUsers(ctx context.Context, subsidiaryID, contractorID string) ([]db.User, error) {
	if subsidiaryID == "" || contractorID == "" {
		return nil, fmt.Errorf("%w: both organization ids are required", ErrBadRequest)
	}
	return s.users.ListByOrganizations(ctx,
		db.OrgRef{Kind: db.OrgKindSubsidiary, ID: subsidiaryID},
		db.OrgRef{Kind: db.OrgKindContractor, ID: contractorID},
	)
}
