package setting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
)

// Store persists notification preferences.
type Store interface {
	List(ctx context.Context, userID string) ([]entity.Setting, error)
	Replace(ctx context.Context, userID string, settings []entity.Setting) error
	Get(ctx context.Context, userID, code string, domain entity.Domain) (entity.Setting, error)
}

type Service struct {
	store  Store
	logger *zap.SugaredLogger
}

func NewService(store Store, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) List(ctx context.Context, userID string) ([]entity.Setting, error) {
	out, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return out, nil
}

// Replace validates and stores the full set of preferences of a user.
func (s *Service) Replace(ctx context.Context, userID string, settings []entity.Setting) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
	if err := s.store.Replace(ctx, userID, settings); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	s.logger.Debugw("settings replaced", "user_id", userID, "count", len(settings))
	return nil
}

// Enabled reports whether the user wants code delivered over domain. A
// missing preference counts as disabled.
func (s *Service) Enabled(ctx context.Context, userID, code string, domain entity.Domain) (bool, error) {
	st, err := s.store.Get(ctx, userID, code, domain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get setting: %w", err)
	}
	return st.Enabled, nil
}

func validateSettings(settings []entity.Setting) error {
	codes := make([]any, len(entity.Codes))
	for i, c := range entity.Codes {
		codes[i] = c
	}
	domains := make([]any, len(entity.Domains))
	for i, d := range entity.Domains {
		domains[i] = d
	}
	seen := map[string]bool{}
	for _, st := range settings {
		err := validation.ValidateStruct(&st,
			validation.Field(&st.Code, validation.Required.Error("code is required"), validation.In(codes...).Error("unknown code")),
			validation.Field(&st.Domain, validation.Required.Error("domain is required"), validation.In(domains...).Error("unknown domain")),
		)
		if err != nil {
			return apperr.FromValidation(err)
		}
		key := st.Code + "/" + string(st.Domain)
		if seen[key] {
			return apperr.Invalid("settings", "duplicate setting %s", key)
		}
		seen[key] = true
	}
	return nil
}
