package entity

import (
	"encoding/json"
	"strings"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
)

// Domain is the delivery channel of a notification.
type Domain string

const (
	DomainEmail Domain = "email"
	DomainSMS   Domain = "sms"
)

// Notification codes.
const (
	CodePremiumPaid   = "premium_paid"
	CodeClaimCreated  = "claim_created"
	CodeClaimUpdated  = "claim_updated"
	CodeClaimApproved = "claim_approved"
)

// Codes lists every known notification code.
var Codes = []string{CodePremiumPaid, CodeClaimCreated, CodeClaimUpdated, CodeClaimApproved}

// Domains lists every delivery channel.
var Domains = []Domain{DomainEmail, DomainSMS}

func ParseDomain(s string) (Domain, error) {
	switch d := Domain(strings.ToLower(strings.TrimSpace(s))); d {
	case DomainEmail, DomainSMS:
		return d, nil
	}
	return "", apperr.Invalid("domain", "unknown domain %q", s)
}

func (d *Domain) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperr.Invalid("domain", "domain must be a string")
	}
	v, err := ParseDomain(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Setting is one notification preference of a user.
type Setting struct {
	Code    string `json:"code" db:"code"`
	Domain  Domain `json:"domain" db:"domain"`
	Enabled bool   `json:"value" db:"enabled"`
}

// Defaults returns the preferences written when a user completes setup.
func Defaults() []Setting {
	return []Setting{
		{Code: CodePremiumPaid, Domain: DomainEmail, Enabled: false},
		{Code: CodePremiumPaid, Domain: DomainSMS, Enabled: false},
		{Code: CodeClaimCreated, Domain: DomainEmail, Enabled: true},
		{Code: CodeClaimCreated, Domain: DomainSMS, Enabled: false},
		{Code: CodeClaimUpdated, Domain: DomainEmail, Enabled: true},
		{Code: CodeClaimUpdated, Domain: DomainSMS, Enabled: false},
		{Code: CodeClaimApproved, Domain: DomainEmail, Enabled: true},
		{Code: CodeClaimApproved, Domain: DomainSMS, Enabled: true},
	}
}
