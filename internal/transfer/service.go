package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/transfer/entity"
	userentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/utilities"
)

type Store interface {
	Create(ctx context.Context, t *entity.Transfer) error
	ListFor(ctx context.Context, userID string) ([]entity.Transfer, error)
}

// Users reports whether an account exists.
type Users interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	store  Store
	users  Users
	logger *zap.SugaredLogger
}

func NewService(store Store, users Users, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, users: users, logger: logger}
}

type Input struct {
	ReceiverID      string          `json:"receiverID"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transactionHash"`
	Note            string          `json:"note"`
}

func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ReceiverID, validation.Required.Error("receiver required")),
		validation.Field(&in.Amount, validation.By(func(any) error {
			if !in.Amount.IsPositive() {
				return errors.New("amount must be positive")
			}
			return nil
		})),
		validation.Field(&in.Note, validation.Length(0, 500)),
	)
}

func (s *Service) Create(ctx context.Context, sender *userentity.User, in Input) (*entity.Transfer, error) {
	in.ReceiverID = strings.TrimSpace(in.ReceiverID)
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	if in.ReceiverID == sender.ID {
		return nil, apperr.Invalid("receiverID", "cannot transfer to yourself")
	}
	ok, err := s.users.Exists(ctx, in.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("lookup receiver: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("no such receiver")
	}
	t := &entity.Transfer{
		ID:              utilities.NewSnowflakeID(),
		SenderID:        sender.ID,
		ReceiverID:      in.ReceiverID,
		Amount:          in.Amount,
		TransactionHash: strings.TrimSpace(in.TransactionHash),
		Note:            strings.TrimSpace(in.Note),
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}
	s.logger.Infow("transfer recorded", "transfer_id", t.ID, "sender_id", t.SenderID, "receiver_id", t.ReceiverID)
	return t, nil
}

func (s *Service) ListFor(ctx context.Context, u *userentity.User) ([]entity.Transfer, error) {
	out, err := s.store.ListFor(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return out, nil
}
