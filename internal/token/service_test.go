package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

type memWhitelist struct {
	mu   sync.Mutex
	recs map[string][]entity.TokenRecord
}

func newMemWhitelist() *memWhitelist {
	return &memWhitelist{recs: map[string][]entity.TokenRecord{}}
}

func (m *memWhitelist) Replace(_ context.Context, userID, scope string, rec entity.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := []entity.TokenRecord{}
	for _, r := range m.recs[userID] {
		if r.Scope != scope {
			kept = append(kept, r)
		}
	}
	m.recs[userID] = append(kept, rec)
	return nil
}

func (m *memWhitelist) Delete(_ context.Context, userID, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := []entity.TokenRecord{}
	for _, r := range m.recs[userID] {
		if r.Value != value {
			kept = append(kept, r)
		}
	}
	m.recs[userID] = kept
	return nil
}

func (m *memWhitelist) Exists(_ context.Context, userID, scope, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs[userID] {
		if r.Scope == scope && r.Value == value {
			return true, nil
		}
	}
	return false, nil
}

func newTestService(store Whitelist) *Service {
	return NewService(Config{Secret: []byte("test-secret"), TTL: time.Hour}, store)
}

func TestIssueReplacesPreviousToken(t *testing.T) {
	ctx := context.Background()
	store := newMemWhitelist()
	svc := newTestService(store)
	u := &entity.User{ID: "42", Role: entity.RolePolicyholder, Status: entity.StatusPending}

	first, err := svc.Issue(ctx, u)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, u)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	ok, err := svc.Whitelisted(ctx, "42", entity.ScopeAuth, first)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = svc.Whitelisted(ctx, "42", entity.ScopeAuth, second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, u.Tokens, 1)
	assert.Equal(t, second, u.Tokens[0].Value)
	assert.Len(t, store.recs["42"], 1)
}

func TestVerifyCarriesClaimsSnapshot(t *testing.T) {
	svc := newTestService(newMemWhitelist())
	u := &entity.User{ID: "7", Role: entity.RoleSecretary, Status: entity.StatusApproved, AccountCompleted: true}

	signed, _, err := svc.Sign(u)
	require.NoError(t, err)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, entity.ScopeAuth, claims.Access)
	assert.Equal(t, "secretary", claims.Role)
	assert.True(t, claims.AccountCompleted)
	assert.Equal(t, "approved", claims.Status)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejects(t *testing.T) {
	svc := newTestService(newMemWhitelist())
	u := &entity.User{ID: "7"}

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := svc.Verify("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService(Config{Secret: []byte("other"), TTL: time.Hour}, newMemWhitelist())
		signed, _, err := other.Sign(u)
		require.NoError(t, err)
		_, err = svc.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		signed, _, err := svc.Sign(u)
		require.NoError(t, err)
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err = svc.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		claims := Claims{Access: entity.ScopeAuth, RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong access", func(t *testing.T) {
		claims := Claims{Access: "reset", RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.Verify(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemWhitelist())
	u := &entity.User{ID: "9"}

	signed, err := svc.Issue(ctx, u)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, "9", signed))
	require.NoError(t, svc.Revoke(ctx, "9", signed))

	ok, err := svc.Whitelisted(ctx, "9", entity.ScopeAuth, signed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentIssueLeavesOneToken(t *testing.T) {
	ctx := context.Background()
	store := newMemWhitelist()
	svc := newTestService(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Issue(ctx, &entity.User{ID: "1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, store.recs["1"], 1)
}
