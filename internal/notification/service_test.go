package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/notification/entity"
	settingentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
)

type memOutbox struct {
	msgs []entity.Message
	err  error
}

func (m *memOutbox) Insert(_ context.Context, msgs []entity.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

type defaultPrefs struct{}

func (defaultPrefs) Enabled(_ context.Context, _ string, code string, domain settingentity.Domain) (bool, error) {
	for _, s := range settingentity.Defaults() {
		if s.Code == code && s.Domain == domain {
			return s.Enabled, nil
		}
	}
	return false, nil
}

func TestNotifyOneRowPerEnabledChannel(t *testing.T) {
	ctx := context.Background()
	out := &memOutbox{}
	svc := NewService(out, defaultPrefs{}, zap.NewNop().Sugar())

	require.NoError(t, svc.Notify(ctx, "u1", settingentity.CodeClaimApproved, "c1", map[string]string{"status": "approved"}))
	require.Len(t, out.msgs, 2)
	assert.Equal(t, "email", out.msgs[0].Domain)
	assert.Equal(t, "sms", out.msgs[1].Domain)
	assert.JSONEq(t, `{"status":"approved"}`, string(out.msgs[0].Payload))
	assert.NotEqual(t, out.msgs[0].ID, out.msgs[1].ID)

	out.msgs = nil
	require.NoError(t, svc.Notify(ctx, "u1", settingentity.CodeClaimCreated, "c1", nil))
	require.Len(t, out.msgs, 1)
	assert.Equal(t, "email", out.msgs[0].Domain)

	out.msgs = nil
	require.NoError(t, svc.Notify(ctx, "u1", settingentity.CodePremiumPaid, "", nil))
	assert.Empty(t, out.msgs)
}

func TestNotifyPropagatesStoreError(t *testing.T) {
	svc := NewService(&memOutbox{err: errors.New("insert failed")}, defaultPrefs{}, zap.NewNop().Sugar())
	err := svc.Notify(context.Background(), "u1", settingentity.CodeClaimCreated, "c1", nil)
	assert.Error(t, err)
}
