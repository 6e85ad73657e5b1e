package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
)

func group(id, name string, subgroups ...Subgroup) Group {
	return Group{ID: id, GroupName: name, Subgroups: subgroups}
}

func sub(name string, members ...string) Subgroup {
	s := Subgroup{Name: name}
	for _, m := range members {
		s.Members = append(s.Members, Member{UserID: m})
	}
	return s
}

func TestResolveMembership(t *testing.T) {
	g := group("g1", "Farmers", sub("north", "a", "b"), sub("south", "c"))

	m, err := ResolveMembership([]Group{g}, "c")
	require.NoError(t, err)
	assert.Equal(t, "g1", m.Group.ID)
	assert.Equal(t, "Farmers", m.Group.GroupName)
	assert.Equal(t, "south", m.SubgroupName)
}

func TestResolveMembershipNoGroup(t *testing.T) {
	_, err := ResolveMembership(nil, "a")
	assert.ErrorIs(t, err, ErrNoGroup)
	assert.Equal(t, "No group found", apperr.PublicMessage(err))
	assert.Equal(t, "group", apperr.FieldOf(err))
}

func TestResolveMembershipNoSubgroup(t *testing.T) {
	g := group("g1", "Farmers", sub("north", "a"))
	_, err := ResolveMembership([]Group{g}, "z")
	assert.ErrorIs(t, err, ErrNoSubgroup)
	assert.NotEqual(t, ErrNoGroup.Error(), err.Error())
}

func TestResolveMembershipReportsDuplicates(t *testing.T) {
	t.Run("same group", func(t *testing.T) {
		g := group("g1", "Farmers", sub("north", "a"), sub("south", "a"))
		_, err := ResolveMembership([]Group{g}, "a")
		assert.ErrorIs(t, err, ErrMultipleMemberships)
	})
	t.Run("across groups", func(t *testing.T) {
		g1 := group("g1", "Farmers", sub("north", "a"))
		g2 := group("g2", "Fishers", sub("bay", "a"))
		_, err := ResolveMembership([]Group{g1, g2}, "a")
		assert.ErrorIs(t, err, ErrMultipleMemberships)
	})
	t.Run("listed twice in one subgroup", func(t *testing.T) {
		g := group("g1", "Farmers", sub("north", "a", "a"))
		m, err := ResolveMembership([]Group{g}, "a")
		require.NoError(t, err)
		assert.Equal(t, "north", m.SubgroupName)
	})
}
