package entity

import (
	"errors"
	"time"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
)

var (
	ErrNoGroup             = &apperr.ValidationError{Field: "group", Message: "No group found"}
	ErrNoSubgroup          = &apperr.ValidationError{Field: "subgroup", Message: "You have not joined any subgroup"}
	ErrMultipleMemberships = &apperr.ConflictError{Message: "user belongs to more than one subgroup"}

	// Storage-level outcomes the service translates.
	ErrDuplicateAccessCode = errors.New("access code already taken")
	ErrAlreadyMember       = errors.New("user already belongs to a subgroup")
	ErrCreatorAssigned     = errors.New("creator already belongs to a group")
)

type Member struct {
	UserID   string    `json:"userID" db:"user_id"`
	Name     string    `json:"name" db:"name"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}

type Subgroup struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

type Group struct {
	ID         string     `json:"id"`
	GroupName  string     `json:"groupName"`
	AccessCode string     `json:"accessCode"`
	CreatedBy  string     `json:"createdBy"`
	Subgroups  []Subgroup `json:"subgroups"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Subgroup returns the subgroup called name.
func (g *Group) Subgroup(name string) (*Subgroup, bool) {
	for i := range g.Subgroups {
		if g.Subgroups[i].Name == name {
			return &g.Subgroups[i], true
		}
	}
	return nil, false
}

// Membership is where a user sits: one group and one subgroup of it.
type Membership struct {
	Group        *Group
	SubgroupName string
}

// ResolveMembership scans groups in order and their subgroups in order for
// userID. No candidate group yields ErrNoGroup, a group without a matching
// subgroup yields ErrNoSubgroup, and more than one matching subgroup yields
// ErrMultipleMemberships.
func ResolveMembership(groups []Group, userID string) (Membership, error) {
	if len(groups) == 0 || userID == "" {
		return Membership{}, ErrNoGroup
	}
	var found []Membership
	for gi := range groups {
		g := &groups[gi]
		for _, sg := range g.Subgroups {
			for _, m := range sg.Members {
				if m.UserID == userID {
					found = append(found, Membership{Group: g, SubgroupName: sg.Name})
					break
				}
			}
		}
	}
	switch len(found) {
	case 0:
		return Membership{}, ErrNoSubgroup
	case 1:
		return found[0], nil
	default:
		return Membership{}, ErrMultipleMemberships
	}
}
