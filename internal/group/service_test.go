package group

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group/entity"
	userentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
)

type memStore struct {
	groups   []*entity.Group
	members  map[string]bool
	assigned map[string]string
	// linkErr fails the creator assignment once; the group is not kept.
	linkErr error
}

func newMemStore() *memStore {
	return &memStore{members: map[string]bool{}, assigned: map[string]string{}}
}

func (m *memStore) Create(_ context.Context, g *entity.Group) error {
	for _, existing := range m.groups {
		if existing.AccessCode == g.AccessCode {
			return entity.ErrDuplicateAccessCode
		}
	}
	if m.assigned[g.CreatedBy] != "" {
		return entity.ErrCreatorAssigned
	}
	if err := m.linkErr; err != nil {
		m.linkErr = nil
		return err
	}
	cp := *g
	cp.Subgroups = append([]entity.Subgroup{}, g.Subgroups...)
	m.groups = append(m.groups, &cp)
	m.assigned[g.CreatedBy] = g.ID
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*entity.Group, error) {
	for _, g := range m.groups {
		if g.ID == id {
			cp := *g
			cp.Subgroups = append([]entity.Subgroup{}, g.Subgroups...)
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) GetByAccessCode(ctx context.Context, code string) (*entity.Group, error) {
	for _, g := range m.groups {
		if g.AccessCode == code {
			return m.GetByID(ctx, g.ID)
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) CandidateGroups(_ context.Context, userID, groupID string) ([]entity.Group, error) {
	var out []entity.Group
	for _, g := range m.groups {
		hit := g.ID == groupID
		for _, sg := range g.Subgroups {
			for _, mem := range sg.Members {
				hit = hit || mem.UserID == userID
			}
		}
		if hit {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *memStore) AddMember(_ context.Context, groupID, subgroupName string, mem entity.Member) error {
	if m.members[mem.UserID] {
		return entity.ErrAlreadyMember
	}
	for _, g := range m.groups {
		if g.ID != groupID {
			continue
		}
		if sg, ok := g.Subgroup(subgroupName); ok {
			sg.Members = append(sg.Members, mem)
			m.members[mem.UserID] = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, zap.NewNop().Sugar()), store
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	sec := &userentity.User{ID: "s1", Role: userentity.RoleSecretary}

	g, err := svc.Create(ctx, sec, CreateInput{GroupName: " Farmers ", Subgroups: []string{"north", "south"}})
	require.NoError(t, err)
	assert.Equal(t, "Farmers", g.GroupName)
	assert.Len(t, g.AccessCode, 10)
	require.Len(t, g.Subgroups, 2)
	assert.Equal(t, g.ID, store.assigned["s1"])
	assert.Equal(t, g.ID, sec.GroupRef())

	found, err := svc.FindByAccessCode(ctx, g.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)
}

func TestCreateGroupRetriesAccessCodeCollision(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	codes := []string{"AAAAAAAAAA", "AAAAAAAAAA", "BBBBBBBBBB"}
	svc.newCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	g1, err := svc.Create(ctx, &userentity.User{ID: "s1", Role: userentity.RoleSecretary}, CreateInput{GroupName: "A", Subgroups: []string{"x"}})
	require.NoError(t, err)
	g2, err := svc.Create(ctx, &userentity.User{ID: "s2", Role: userentity.RoleSecretary}, CreateInput{GroupName: "B", Subgroups: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAA", g1.AccessCode)
	assert.Equal(t, "BBBBBBBBBB", g2.AccessCode)
}

func TestCreateGroupRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Create(ctx, &userentity.User{ID: "p", Role: userentity.RolePolicyholder}, CreateInput{GroupName: "A", Subgroups: []string{"x"}})
	assert.Equal(t, http.StatusForbidden, apperr.HTTPStatus(err))

	gid := "g9"
	_, err = svc.Create(ctx, &userentity.User{ID: "s", Role: userentity.RoleSecretary, GroupID: &gid}, CreateInput{GroupName: "A", Subgroups: []string{"x"}})
	assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(err))

	sec := &userentity.User{ID: "s", Role: userentity.RoleSecretary}
	_, err = svc.Create(ctx, sec, CreateInput{GroupName: "A", Subgroups: []string{"x", "x"}})
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
	_, err = svc.Create(ctx, sec, CreateInput{GroupName: "", Subgroups: []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
	_, err = svc.Create(ctx, sec, CreateInput{GroupName: "A"})
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
}

func TestCreateGroupFailedAssignmentLeavesNoGroup(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.linkErr = errors.New("users table unavailable")
	sec := &userentity.User{ID: "s1", Role: userentity.RoleSecretary}

	_, err := svc.Create(ctx, sec, CreateInput{GroupName: "A", Subgroups: []string{"x"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(err))
	assert.Empty(t, store.groups)
	assert.Empty(t, sec.GroupRef())

	g, err := svc.Create(ctx, sec, CreateInput{GroupName: "A", Subgroups: []string{"x"}})
	require.NoError(t, err)
	assert.Len(t, store.groups, 1)
	assert.Equal(t, g.ID, store.assigned["s1"])
}

func TestCreateGroupCreatorAssignedConcurrently(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.assigned["s1"] = "g-other"

	_, err := svc.Create(ctx, &userentity.User{ID: "s1", Role: userentity.RoleSecretary}, CreateInput{GroupName: "A", Subgroups: []string{"x"}})
	assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(err))
	assert.Empty(t, store.groups)
}

func TestJoinAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	sec := &userentity.User{ID: "s1", Role: userentity.RoleSecretary}
	g, err := svc.Create(ctx, sec, CreateInput{GroupName: "Farmers", Subgroups: []string{"north", "south"}})
	require.NoError(t, err)

	holder := &userentity.User{ID: "p1", Name: "Ada", Role: userentity.RolePolicyholder, GroupID: &g.ID}

	_, err = svc.Resolve(ctx, holder)
	assert.ErrorIs(t, err, entity.ErrNoSubgroup)

	joined, err := svc.Join(ctx, holder, "south")
	require.NoError(t, err)
	sg, ok := joined.Subgroup("south")
	require.True(t, ok)
	require.Len(t, sg.Members, 1)
	assert.Equal(t, "Ada", sg.Members[0].Name)

	m, err := svc.Resolve(ctx, holder)
	require.NoError(t, err)
	assert.Equal(t, g.ID, m.Group.ID)
	assert.Equal(t, "south", m.SubgroupName)

	_, err = svc.Join(ctx, holder, "north")
	assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(err))

	_, err = svc.Join(ctx, holder, "west")
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
}

func TestResolveWithoutGroup(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Resolve(context.Background(), &userentity.User{ID: "p1"})
	assert.ErrorIs(t, err, entity.ErrNoGroup)

	_, err = svc.Join(context.Background(), &userentity.User{ID: "p1"}, "north")
	assert.ErrorIs(t, err, entity.ErrNoGroup)
}

func TestFindByAccessCodeUnknown(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.FindByAccessCode(context.Background(), "nope")
	assert.Equal(t, http.StatusNotFound, apperr.HTTPStatus(err))
}
