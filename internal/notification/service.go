package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/notification/entity"
	settingentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/utilities"
)

type Store interface {
	Insert(ctx context.Context, msgs []entity.Message) error
}

// Preferences answers whether a user wants a notification on a channel.
type Preferences interface {
	Enabled(ctx context.Context, userID, code string, domain settingentity.Domain) (bool, error)
}

type Service struct {
	store  Store
	prefs  Preferences
	logger *zap.SugaredLogger
}

func NewService(store Store, prefs Preferences, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, prefs: prefs, logger: logger}
}

// Notify queues one outbox row per channel the recipient has enabled for code.
func (s *Service) Notify(ctx context.Context, userID, code, subjectID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	var msgs []entity.Message
	for _, d := range settingentity.Domains {
		on, err := s.prefs.Enabled(ctx, userID, code, d)
		if err != nil {
			return err
		}
		if !on {
			continue
		}
		msgs = append(msgs, entity.Message{
			ID:        utilities.NewKSUID(),
			UserID:    userID,
			Event:     code,
			Domain:    string(d),
			SubjectID: subjectID,
			Payload:   raw,
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := s.store.Insert(ctx, msgs); err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}
	s.logger.Debugw("notification queued", "user_id", userID, "event", code, "channels", len(msgs))
	return nil
}
