package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database/dbtest"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/utilities"
)

func newGroup(creator string) *entity.Group {
	return &entity.Group{
		ID:         utilities.NewSnowflakeID(),
		GroupName:  "Farmers",
		AccessCode: utilities.NewAccessCode(),
		CreatedBy:  creator,
		Subgroups:  []entity.Subgroup{{Name: "north"}, {Name: "south"}},
	}
}

func TestCreateAssignsCreator(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	r := NewGroupRepo(db)
	creator := dbtest.InsertUser(t, db, utilities.NewSnowflakeID())

	g := newGroup(creator)
	require.NoError(t, r.Create(ctx, g))

	var groupID string
	require.NoError(t, db.Get(&groupID, `SELECT group_id FROM users WHERE id = $1`, creator))
	assert.Equal(t, g.ID, groupID)

	got, err := r.GetByAccessCode(ctx, g.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
	assert.Len(t, got.Subgroups, 2)
}

func TestCreateRollsBackWhenCreatorHasGroup(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	r := NewGroupRepo(db)
	creator := dbtest.InsertUser(t, db, utilities.NewSnowflakeID())
	require.NoError(t, r.Create(ctx, newGroup(creator)))

	second := newGroup(creator)
	assert.ErrorIs(t, r.Create(ctx, second), entity.ErrCreatorAssigned)

	_, err := r.GetByID(ctx, second.ID)
	assert.True(t, database.IsNotFound(err))
}

func TestCreateDuplicateAccessCode(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	r := NewGroupRepo(db)

	first := newGroup(dbtest.InsertUser(t, db, utilities.NewSnowflakeID()))
	require.NoError(t, r.Create(ctx, first))
	second := newGroup(dbtest.InsertUser(t, db, utilities.NewSnowflakeID()))
	second.AccessCode = first.AccessCode
	assert.ErrorIs(t, r.Create(ctx, second), entity.ErrDuplicateAccessCode)
}
