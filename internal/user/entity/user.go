package entity

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	settingentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
)

// ScopeAuth is the whitelist scope of login tokens.
const ScopeAuth = "auth"

type Role string

const (
	RoleUnset        Role = ""
	RolePolicyholder Role = "policyholder"
	RoleSecretary    Role = "secretary"
	RoleAdmin        Role = "admin"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

type Standing string

const (
	StandingGood Standing = "good"
	StandingOkay Standing = "okay"
	StandingBad  Standing = "bad"
)

type WalletProvider string

const (
	WalletUnset     WalletProvider = ""
	WalletMetamask  WalletProvider = "metamask"
	WalletFortmatic WalletProvider = "fortmatic"
)

// parseEnum matches s against the allowed values of a closed string enum.
func parseEnum[T ~string](field, s string, allowed ...T) (T, error) {
	for _, a := range allowed {
		if string(a) == s {
			return a, nil
		}
	}
	var zero T
	return zero, apperr.Invalid(field, "invalid %s %q", field, s)
}

func unmarshalEnum[T ~string](b []byte, field string, dst *T, parse func(string) (T, error)) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperr.Invalid(field, "%s must be a string", field)
	}
	v, err := parse(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func ParseRole(s string) (Role, error) {
	return parseEnum("role", s, RoleUnset, RolePolicyholder, RoleSecretary, RoleAdmin)
}

func (r *Role) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, "role", r, ParseRole) }

func ParseStatus(s string) (Status, error) {
	return parseEnum("status", s, StatusPending, StatusApproved)
}

func (s *Status) UnmarshalJSON(b []byte) error { return unmarshalEnum(b, "status", s, ParseStatus) }

func ParseStanding(s string) (Standing, error) {
	return parseEnum("standing", s, StandingGood, StandingOkay, StandingBad)
}

func (s *Standing) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "standing", s, ParseStanding)
}

func ParseWalletProvider(s string) (WalletProvider, error) {
	return parseEnum("walletProvider", s, WalletMetamask, WalletFortmatic)
}

func (w *WalletProvider) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "walletProvider", w, ParseWalletProvider)
}

// TokenRecord is one whitelisted credential.
type TokenRecord struct {
	Scope     string
	Value     string
	ExpiresAt time.Time
}

// User represents an account row in the `users` table.
type User struct {
	ID                   string
	Name                 string
	Email                string
	PasswordHash         string
	Role                 Role
	Status               Status
	AccountCompleted     bool
	Standing             Standing
	GroupID              *string
	WalletProvider       WalletProvider
	EthereumAddress      string
	Picture              string
	Phone                string
	AddedToSmartContract bool
	OAuthSubject         *string
	Tokens               []TokenRecord // populated by the token service on issue
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// GroupRef returns the group id or "" when the user has none.
func (u *User) GroupRef() string {
	if u == nil || u.GroupID == nil {
		return ""
	}
	return *u.GroupID
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Profile is the self view of an account. It never carries the password
// hash or token values.
type Profile struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name"`
	Email                string                  `json:"email"`
	Role                 Role                    `json:"role"`
	Status               Status                  `json:"status"`
	AccountCompleted     bool                    `json:"accountCompleted"`
	Standing             Standing                `json:"standing"`
	GroupID              *string                 `json:"groupID"`
	WalletProvider       WalletProvider          `json:"walletProvider"`
	EthereumAddress      string                  `json:"ethereumAddress"`
	Picture              string                  `json:"picture"`
	Phone                string                  `json:"phone"`
	AddedToSmartContract bool                    `json:"addedToSmartContract"`
	Settings             []settingentity.Setting `json:"settings"`
}

// PublicProfile is what other members may see of an account.
type PublicProfile struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Role            Role     `json:"role"`
	Standing        Standing `json:"standing"`
	GroupID         *string  `json:"groupID"`
	EthereumAddress string   `json:"ethereumAddress"`
	Picture         string   `json:"picture"`
}

func (u *User) Profile(settings []settingentity.Setting) Profile {
	if settings == nil {
		settings = []settingentity.Setting{}
	}
	return Profile{
		ID:                   u.ID,
		Name:                 u.Name,
		Email:                u.Email,
		Role:                 u.Role,
		Status:               u.Status,
		AccountCompleted:     u.AccountCompleted,
		Standing:             u.Standing,
		GroupID:              u.GroupID,
		WalletProvider:       u.WalletProvider,
		EthereumAddress:      u.EthereumAddress,
		Picture:              u.Picture,
		Phone:                u.Phone,
		AddedToSmartContract: u.AddedToSmartContract,
		Settings:             settings,
	}
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Standing:        u.Standing,
		GroupID:         u.GroupID,
		EthereumAddress: u.EthereumAddress,
		Picture:         u.Picture,
	}
}

// ErrEmailTaken is returned by storage when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")
