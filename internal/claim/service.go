package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/claim/entity"
	groupentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group/entity"
	settingentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
	userentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/utilities"
)

// MinSummaryLength applies to both filing and editing.
const MinSummaryLength = 10

type Store interface {
	Create(ctx context.Context, c *entity.Claim) error
	Get(ctx context.Context, id string) (*entity.Claim, error)
	ListByGroup(ctx context.Context, groupID string) ([]entity.Claim, error)
	Update(ctx context.Context, c *entity.Claim) error
}

// MembershipResolver locates the group and subgroup of a user.
type MembershipResolver interface {
	Resolve(ctx context.Context, actor *userentity.User) (groupentity.Membership, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, code, subjectID string, payload any) error
}

type Service struct {
	store    Store
	groups   MembershipResolver
	notifier Notifier
	logger   *zap.SugaredLogger
}

func NewService(store Store, groups MembershipResolver, notifier Notifier, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, groups: groups, notifier: notifier, logger: logger}
}

type CreateInput struct {
	Summary         string   `json:"summary"`
	Documents       []string `json:"documents"`
	Period          string   `json:"period"`
	ClaimantAddress string   `json:"claimantAddress"`
}

func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Summary, validation.By(summaryRule)),
		validation.Field(&in.Documents, validation.Required.Error("document(s) required"), validation.By(nonBlankDocuments)),
	)
}

// EditInput carries the fields present in a partial update.
type EditInput struct {
	Summary   *string          `json:"summary"`
	Documents *[]string        `json:"documents"`
	Amount    *decimal.Decimal `json:"amount"`
}

func (in EditInput) empty() bool {
	return in.Summary == nil && in.Documents == nil && in.Amount == nil
}

func (in EditInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Summary, validation.By(func(v any) error {
			if in.Summary == nil {
				return nil
			}
			return summaryRule(*in.Summary)
		})),
		validation.Field(&in.Documents, validation.By(func(v any) error {
			if in.Documents == nil {
				return nil
			}
			if len(*in.Documents) == 0 {
				return errors.New("too few documents")
			}
			return nonBlankDocuments(*in.Documents)
		})),
		validation.Field(&in.Amount, validation.By(func(v any) error {
			if in.Amount != nil && !in.Amount.IsPositive() {
				return errors.New("amount too low")
			}
			return nil
		})),
	)
}

func summaryRule(v any) error {
	s, _ := v.(string)
	if utf8.RuneCountInString(strings.TrimSpace(s)) < MinSummaryLength {
		return errors.New("summary too short")
	}
	return nil
}

func nonBlankDocuments(v any) error {
	docs, _ := v.([]string)
	for _, d := range docs {
		if strings.TrimSpace(d) == "" {
			return errors.New("document references must not be blank")
		}
	}
	return nil
}

// List returns the claims of the actor's group, newest first.
func (s *Service) List(ctx context.Context, actor *userentity.User) ([]entity.Claim, error) {
	groupID := actor.GroupRef()
	if groupID == "" {
		return []entity.Claim{}, nil
	}
	out, err := s.store.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return out, nil
}

// Create files a pending claim in the actor's group and subgroup.
func (s *Service) Create(ctx context.Context, actor *userentity.User, in CreateInput) (*entity.Claim, error) {
	m, err := s.groups.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	docs := make([]string, len(in.Documents))
	for i, d := range in.Documents {
		docs[i] = strings.TrimSpace(d)
	}
	address := strings.TrimSpace(in.ClaimantAddress)
	if address == "" {
		address = actor.EthereumAddress
	}
	c := &entity.Claim{
		ID:              utilities.NewSnowflakeID(),
		GroupID:         m.Group.ID,
		GroupName:       m.Group.GroupName,
		SubgroupName:    m.SubgroupName,
		ClaimantID:      actor.ID,
		ClaimantName:    actor.Name,
		ClaimantAddress: address,
		Status:          entity.StatusPending,
		Summary:         strings.TrimSpace(in.Summary),
		Documents:       docs,
		Period:          strings.TrimSpace(in.Period),
		Version:         1,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	s.logger.Infow("claim created", "claim_id", c.ID, "group_id", c.GroupID, "claimant_id", c.ClaimantID)
	s.notify(ctx, c, settingentity.CodeClaimCreated)
	return c, nil
}

func (s *Service) load(ctx context.Context, id string) (*entity.Claim, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Invalid("claimID", "no :id")
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("no such claim")
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

// Get returns a claim of the actor's group.
func (s *Service) Get(ctx context.Context, actor *userentity.User, id string) (*entity.Claim, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireGroupMember(actor, c.GroupID); err != nil {
		return nil, err
	}
	return c, nil
}

// Edit applies a partial update by the claimant while the claim is pending.
// Every present field is validated before anything is written.
func (s *Service) Edit(ctx context.Context, actor *userentity.User, id string, in EditInput) error {
	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.RequireOwner(actor, c.ClaimantID); err != nil {
		return err
	}
	if c.Status != entity.StatusPending {
		return entity.ErrNotPending
	}
	if err := in.Validate(); err != nil {
		return apperr.FromValidation(err)
	}
	if in.empty() {
		return nil
	}

	if in.Summary != nil {
		c.Summary = strings.TrimSpace(*in.Summary)
	}
	if in.Documents != nil {
		docs := make([]string, len(*in.Documents))
		for i, d := range *in.Documents {
			docs[i] = strings.TrimSpace(d)
		}
		c.Documents = docs
	}
	if in.Amount != nil {
		c.Amount = decimal.NewNullDecimal(*in.Amount)
	}
	if err := s.save(ctx, c); err != nil {
		return err
	}
	s.logger.Infow("claim edited", "claim_id", c.ID, "version", c.Version)
	s.notify(ctx, c, settingentity.CodeClaimUpdated)
	return nil
}

func (s *Service) Approve(ctx context.Context, actor *userentity.User, id string) error {
	return s.decide(ctx, actor, id, entity.StatusApproved)
}

func (s *Service) Deny(ctx context.Context, actor *userentity.User, id string) error {
	return s.decide(ctx, actor, id, entity.StatusDenied)
}

// decide is reserved to the secretary of the owning group and only moves
// pending claims.
func (s *Service) decide(ctx context.Context, actor *userentity.User, id string, next entity.Status) error {
	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.RequireSecretaryOf(actor, c.GroupID); err != nil {
		return err
	}
	if err := c.Transition(next); err != nil {
		return err
	}
	if err := s.save(ctx, c); err != nil {
		return err
	}
	s.logger.Infow("claim decided", "claim_id", c.ID, "status", c.Status, "secretary_id", actor.ID)
	code := settingentity.CodeClaimUpdated
	if next == entity.StatusApproved {
		code = settingentity.CodeClaimApproved
	}
	s.notify(ctx, c, code)
	return nil
}

func (s *Service) save(ctx context.Context, c *entity.Claim) error {
	if err := s.store.Update(ctx, c); err != nil {
		if errors.Is(err, entity.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("update claim: %w", err)
	}
	return nil
}

// notify queues a message for the claimant. Failures never fail the request.
func (s *Service) notify(ctx context.Context, c *entity.Claim, code string) {
	if s.notifier == nil {
		return
	}
	payload := map[string]string{
		"claimID":   c.ID,
		"groupName": c.GroupName,
		"status":    string(c.Status),
		"summary":   c.Summary,
	}
	if err := s.notifier.Notify(ctx, c.ClaimantID, code, c.ID, payload); err != nil {
		s.logger.Warnw("claim notification failed", "claim_id", c.ID, "event", code, "err", err)
	}
}
