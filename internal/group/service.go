package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group/entity"
	userentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/utilities"
)

const accessCodeAttempts = 5

type Store interface {
	Create(ctx context.Context, g *entity.Group) error
	GetByID(ctx context.Context, id string) (*entity.Group, error)
	GetByAccessCode(ctx context.Context, code string) (*entity.Group, error)
	CandidateGroups(ctx context.Context, userID, groupID string) ([]entity.Group, error)
	AddMember(ctx context.Context, groupID, subgroupName string, m entity.Member) error
}

type Service struct {
	store   Store
	logger  *zap.SugaredLogger
	newCode func() string
}

func NewService(store Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, logger: logger, newCode: utilities.NewAccessCode}
}

type CreateInput struct {
	GroupName string   `json:"groupName"`
	Subgroups []string `json:"subgroups"`
}

func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.GroupName, validation.Required.Error("group name is required"), validation.RuneLength(1, 100)),
		validation.Field(&in.Subgroups, validation.Required.Error("at least one subgroup is required"), validation.By(distinctNames)),
	)
}

func distinctNames(v any) error {
	names, _ := v.([]string)
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return errors.New("subgroup names must not be blank")
		}
		if seen[n] {
			return fmt.Errorf("duplicate subgroup %q", n)
		}
		seen[n] = true
	}
	return nil
}

// Create makes a new group owned by actor and assigns actor to it. The group
// row and the assignment are stored together or not at all.
func (s *Service) Create(ctx context.Context, actor *userentity.User, in CreateInput) (*entity.Group, error) {
	if err := auth.RequireRole(actor, userentity.RoleSecretary, userentity.RoleAdmin); err != nil {
		return nil, err
	}
	if actor.GroupRef() != "" {
		return nil, apperr.Conflict("user already belongs to a group")
	}
	in.GroupName = strings.TrimSpace(in.GroupName)
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}

	g := &entity.Group{
		ID:        utilities.NewSnowflakeID(),
		GroupName: in.GroupName,
		CreatedBy: actor.ID,
	}
	for _, n := range in.Subgroups {
		g.Subgroups = append(g.Subgroups, entity.Subgroup{Name: strings.TrimSpace(n), Members: []entity.Member{}})
	}

	var err error
	for attempt := 0; attempt < accessCodeAttempts; attempt++ {
		g.AccessCode = s.newCode()
		err = s.store.Create(ctx, g)
		if !errors.Is(err, entity.ErrDuplicateAccessCode) {
			break
		}
		s.logger.Debugw("access code collision", "attempt", attempt+1)
	}
	if errors.Is(err, entity.ErrCreatorAssigned) {
		return nil, apperr.Conflict("user already belongs to a group")
	}
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	actor.GroupID = &g.ID
	s.logger.Infow("group created", "group_id", g.ID, "created_by", actor.ID)
	return g, nil
}

// FindByAccessCode returns the group that owns code.
func (s *Service) FindByAccessCode(ctx context.Context, code string) (*entity.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.NotFound("no such group")
	}
	g, err := s.store.GetByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("no such group")
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	return g, nil
}

// Get returns the actor's own group.
func (s *Service) Get(ctx context.Context, actor *userentity.User) (*entity.Group, error) {
	id := actor.GroupRef()
	if id == "" {
		return nil, apperr.Forbidden("you do not belong to a group")
	}
	g, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("no such group")
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// Join places actor in one subgroup of the group they belong to.
func (s *Service) Join(ctx context.Context, actor *userentity.User, subgroupName string) (*entity.Group, error) {
	subgroupName = strings.TrimSpace(subgroupName)
	if actor.GroupRef() == "" {
		return nil, entity.ErrNoGroup
	}
	g, err := s.Get(ctx, actor)
	if err != nil {
		return nil, err
	}
	sg, ok := g.Subgroup(subgroupName)
	if !ok {
		return nil, apperr.NotFound("no such subgroup")
	}
	m := entity.Member{UserID: actor.ID, Name: actor.Name}
	if err := s.store.AddMember(ctx, g.ID, sg.Name, m); err != nil {
		if errors.Is(err, entity.ErrAlreadyMember) {
			return nil, apperr.Conflict("user already belongs to a subgroup")
		}
		return nil, fmt.Errorf("join subgroup: %w", err)
	}
	sg.Members = append(sg.Members, m)
	s.logger.Infow("subgroup joined", "group_id", g.ID, "subgroup", sg.Name, "user_id", actor.ID)
	return g, nil
}

// Resolve locates the group and subgroup actor belongs to.
func (s *Service) Resolve(ctx context.Context, actor *userentity.User) (entity.Membership, error) {
	groups, err := s.store.CandidateGroups(ctx, actor.ID, actor.GroupRef())
	if err != nil {
		return entity.Membership{}, fmt.Errorf("load groups: %w", err)
	}
	return entity.ResolveMembership(groups, actor.ID)
}
