package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// transitions lists the allowed status changes; decided claims are final.
var transitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusApproved: {},
		StatusDenied:   {},
	},
}

var (
	ErrNotPending      = &apperr.ForbiddenError{Message: "this claim is not pending"}
	ErrVersionConflict = &apperr.ConflictError{Message: "claim was modified concurrently, reload and retry"}
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusDenied:
		return st, nil
	}
	return "", apperr.Invalid("status", "invalid status %q", s)
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return apperr.Invalid("status", "status must be a string")
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CanTransition reports whether a claim in s may move to next.
func (s Status) CanTransition(next Status) bool {
	_, ok := transitions[s][next]
	return ok
}

// Claim is a payout request filed by a member against their group's pool.
// GroupName, SubgroupName and ClaimantName are snapshots taken at filing.
type Claim struct {
	ID              string              `json:"id"`
	GroupID         string              `json:"groupID"`
	GroupName       string              `json:"groupName"`
	SubgroupName    string              `json:"subgroupName"`
	ClaimantID      string              `json:"claimantID"`
	ClaimantName    string              `json:"claimantName"`
	ClaimantAddress string              `json:"claimantAddress"`
	Status          Status              `json:"status"`
	Summary         string              `json:"summary"`
	Documents       []string            `json:"documents"`
	Period          string              `json:"period"`
	Amount          decimal.NullDecimal `json:"amount"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// Transition moves the claim to next or returns ErrNotPending.
func (c *Claim) Transition(next Status) error {
	if !c.Status.CanTransition(next) {
		return ErrNotPending
	}
	c.Status = next
	return nil
}
