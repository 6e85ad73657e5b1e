package transfer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/auth"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/transfer/entity"
	userentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

type memStore struct{ rows []entity.Transfer }

func (m *memStore) Create(_ context.Context, t *entity.Transfer) error {
	t.CreatedAt = time.Now()
	m.rows = append(m.rows, *t)
	return nil
}

func (m *memStore) ListFor(_ context.Context, userID string) ([]entity.Transfer, error) {
	out := []entity.Transfer{}
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].SenderID == userID || m.rows[i].ReceiverID == userID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

type knownUsers map[string]bool

func (k knownUsers) Exists(_ context.Context, id string) (bool, error) { return k[id], nil }

type brokenUsers struct{}

func (brokenUsers) Exists(context.Context, string) (bool, error) { return false, errors.New("db down") }

func newTestService() (*Service, *memStore) {
	store := &memStore{}
	return NewService(store, knownUsers{"a": true, "b": true, "c": true}, zap.NewNop().Sugar()), store
}

func TestCreateTransfer(t *testing.T) {
	svc, _ := newTestService()
	tr, err := svc.Create(context.Background(), &userentity.User{ID: "a"}, Input{
		ReceiverID:      " b ",
		Amount:          decimal.RequireFromString("0.5"),
		TransactionHash: "0xfeed",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, "a", tr.SenderID)
	assert.Equal(t, "b", tr.ReceiverID)
	assert.Equal(t, "0.5", tr.Amount.String())
}

func TestCreateTransferRejects(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	sender := &userentity.User{ID: "a"}
	one := decimal.NewFromInt(1)

	_, err := svc.Create(ctx, sender, Input{ReceiverID: "b", Amount: decimal.Zero})
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
	assert.Equal(t, "amount", apperr.FieldOf(err))

	_, err = svc.Create(ctx, sender, Input{ReceiverID: "b", Amount: decimal.NewFromInt(-3)})
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))

	_, err = svc.Create(ctx, sender, Input{ReceiverID: "a", Amount: one})
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
	assert.Equal(t, "receiverID", apperr.FieldOf(err))

	_, err = svc.Create(ctx, sender, Input{ReceiverID: "zz", Amount: one})
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))

	_, err = svc.Create(ctx, sender, Input{Amount: one})
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))

	svc.users = brokenUsers{}
	_, err = svc.Create(ctx, sender, Input{ReceiverID: "b", Amount: one})
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(err))

	assert.Empty(t, store.rows)
}

func TestListForIncludesBothDirections(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	one := decimal.NewFromInt(1)
	_, err := svc.Create(ctx, &userentity.User{ID: "a"}, Input{ReceiverID: "b", Amount: one})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &userentity.User{ID: "b"}, Input{ReceiverID: "a", Amount: one})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &userentity.User{ID: "b"}, Input{ReceiverID: "c", Amount: one})
	require.NoError(t, err)

	out, err := svc.ListFor(ctx, &userentity.User{ID: "a"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].SenderID)
	assert.Equal(t, "a", out[1].SenderID)

	out, err = svc.ListFor(ctx, &userentity.User{ID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHandlerCreate(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc, zap.NewNop().Sugar())

	req := httptest.NewRequest(http.MethodPost, "/user/transfer", strings.NewReader(`{"receiverID":"b","amount":"2.75","note":"seed money"}`))
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{User: &userentity.User{ID: "a"}}))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"amount":"2.75"`)

	req = httptest.NewRequest(http.MethodGet, "/user/transfers", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{User: &userentity.User{ID: "b"}}))
	rec = httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"note":"seed money"`)
}
