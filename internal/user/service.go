package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/apperr"
	groupentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group/entity"
	settingentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/token"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/utilities"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), b.cost())
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash reports whether hash was produced with a different cost.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	return err == nil && c != b.cost()
}

var (
	ErrBadCredentials = &apperr.UnauthenticatedError{Message: "invalid credentials"}
	ErrNotFound       = &apperr.NotFoundError{Message: "no such user"}
)

var ethAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByOAuthSubject(ctx context.Context, subject string) (*entity.User, error)
	CompleteSetup(ctx context.Context, u *entity.User, settings []settingentity.Setting) (bool, error)
	UpdateWallet(ctx context.Context, id string, provider entity.WalletProvider, address string) error
	SetAddedToSmartContract(ctx context.Context, id string) error
	LinkOAuth(ctx context.Context, id, subject string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

// TokenVerifier checks presented tokens against signature and whitelist.
type TokenVerifier interface {
	Verify(value string) (*token.Claims, error)
	Whitelisted(ctx context.Context, userID, scope, value string) (bool, error)
}

type GroupFinder interface {
	FindByAccessCode(ctx context.Context, code string) (*groupentity.Group, error)
}

type Settings interface {
	List(ctx context.Context, userID string) ([]settingentity.Setting, error)
}

// UserService orchestrates authentication and user lifecycle flows.
type UserService struct {
	repo     Store
	tokens   TokenVerifier
	groups   GroupFinder
	settings Settings
	hasher   PasswordHasher
	logger   *zap.SugaredLogger
	// AdminAccessCode promotes a user to admin during setup; empty disables it.
	AdminAccessCode string
}

func NewUserService(r Store, tokens TokenVerifier, groups GroupFinder, settings Settings, hasher PasswordHasher, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, tokens: tokens, groups: groups, settings: settings, hasher: hasher, logger: logger}
}

// FindByCredentials authenticates by email and password.
func (s *UserService) FindByCredentials(ctx context.Context, email, password string) (*entity.User, error) {
	email = entity.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u.PasswordHash == "" || !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if s.hasher.NeedsRehash(u.PasswordHash) {
		if h, err := s.hasher.Hash(password); err == nil {
			if err := s.repo.UpdatePassword(ctx, u.ID, h); err != nil {
				s.logger.Warnw("password rehash failed", "user_id", u.ID, "err", err)
			} else {
				u.PasswordHash = h
			}
		}
	}
	return u, nil
}

// FindByToken resolves a presented token. The signature must verify and the
// exact value must still be whitelisted for the subject.
func (s *UserService) FindByToken(ctx context.Context, value string) (*entity.User, error) {
	claims, err := s.tokens.Verify(value)
	if err != nil {
		return nil, token.ErrInvalidToken
	}
	ok, err := s.tokens.Whitelisted(ctx, claims.Subject, entity.ScopeAuth, value)
	if err != nil {
		return nil, fmt.Errorf("check whitelist: %w", err)
	}
	if !ok {
		return nil, token.ErrInvalidToken
	}
	u, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, token.ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SignupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("name is required"), validation.RuneLength(1, 100)),
		validation.Field(&in.Email, validation.Required.Error("email is required"), is.Email),
		validation.Field(&in.Password, validation.Required.Error("password is required"), validation.Length(8, 72)),
	)
}

// Signup registers a new account with a hashed password.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*entity.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = entity.NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, apperr.FromValidation(err)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		ID:           utilities.NewSnowflakeID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         entity.RoleUnset,
		Status:       entity.StatusPending,
		Standing:     entity.StandingGood,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, entity.ErrEmailTaken) {
			return nil, apperr.Conflict("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Infow("user signed up", "user_id", u.ID)
	return u, nil
}

type SetupInput struct {
	Role           entity.Role           `json:"role"`
	AccessCode     string                `json:"accessCode"`
	WalletProvider entity.WalletProvider `json:"walletProvider"`
	EthAddress     string                `json:"ethAddress"`
}

func (in SetupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Role, validation.Required.Error("invalid role for user"),
			validation.In(entity.RolePolicyholder, entity.RoleSecretary).Error("invalid role for user")),
		validation.Field(&in.AccessCode, validation.By(func(v any) error {
			if in.Role == entity.RolePolicyholder && strings.TrimSpace(in.AccessCode) == "" {
				return errors.New("policyholder must provide access code")
			}
			return nil
		})),
		validation.Field(&in.WalletProvider, validation.Required.Error("invalid wallet provider"),
			validation.In(entity.WalletMetamask, entity.WalletFortmatic).Error("invalid wallet provider")),
		validation.Field(&in.EthAddress, validation.Required.Error("invalid ethereum account"),
			validation.Match(ethAddress).Error("invalid ethereum account")),
	)
}

// CompleteSetup performs the one-time account setup. The setup fields and
// the default notification settings are stored together or not at all.
func (s *UserService) CompleteSetup(ctx context.Context, u *entity.User, in SetupInput) error {
	in.AccessCode = strings.TrimSpace(in.AccessCode)
	in.EthAddress = strings.TrimSpace(in.EthAddress)
	if err := in.Validate(); err != nil {
		return apperr.FromValidation(err)
	}
	if u.AccountCompleted {
		return apperr.Invalid("account", "user already completed")
	}

	next := *u
	next.Role = in.Role
	next.WalletProvider = in.WalletProvider
	next.EthereumAddress = in.EthAddress
	switch {
	case s.AdminAccessCode != "" && in.AccessCode == s.AdminAccessCode:
		next.Role = entity.RoleAdmin
	case in.Role == entity.RolePolicyholder:
		g, err := s.groups.FindByAccessCode(ctx, in.AccessCode)
		if err != nil {
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				return apperr.Invalid("accessCode", "invalid access code")
			}
			return err
		}
		next.GroupID = &g.ID
	}

	ok, err := s.repo.CompleteSetup(ctx, &next, settingentity.Defaults())
	if err != nil {
		return fmt.Errorf("complete setup: %w", err)
	}
	if !ok {
		return apperr.Invalid("account", "user already completed")
	}
	next.AccountCompleted = true
	*u = next
	s.logger.Infow("user setup completed", "user_id", u.ID, "role", u.Role)
	return nil
}

type WalletInput struct {
	Provider   entity.WalletProvider `json:"provider"`
	EthAddress string                `json:"ethAddress"`
}

func (in WalletInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Provider, validation.Required.Error("invalid wallet provider")),
		validation.Field(&in.EthAddress, validation.Required.Error("invalid ethereum account"),
			validation.Match(ethAddress).Error("invalid ethereum account")),
	)
}

func (s *UserService) UpdateWallet(ctx context.Context, u *entity.User, in WalletInput) error {
	in.EthAddress = strings.TrimSpace(in.EthAddress)
	if err := in.Validate(); err != nil {
		return apperr.FromValidation(err)
	}
	if err := s.repo.UpdateWallet(ctx, u.ID, in.Provider, in.EthAddress); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	u.WalletProvider = in.Provider
	u.EthereumAddress = in.EthAddress
	return nil
}

func (s *UserService) MarkAddedToSmartContract(ctx context.Context, u *entity.User) error {
	if err := s.repo.SetAddedToSmartContract(ctx, u.ID); err != nil {
		return fmt.Errorf("mark added to smart contract: %w", err)
	}
	u.AddedToSmartContract = true
	return nil
}

// Profile returns the self view of u including notification settings.
func (s *UserService) Profile(ctx context.Context, u *entity.User) (entity.Profile, error) {
	settings, err := s.settings.List(ctx, u.ID)
	if err != nil {
		return entity.Profile{}, err
	}
	return u.Profile(settings), nil
}

func (s *UserService) PublicProfile(ctx context.Context, id string) (entity.PublicProfile, error) {
	return s.public(s.repo.GetByID(ctx, strings.TrimSpace(id)))
}

func (s *UserService) PublicProfileByEmail(ctx context.Context, email string) (entity.PublicProfile, error) {
	return s.public(s.repo.GetByEmail(ctx, entity.NormalizeEmail(email)))
}

func (s *UserService) public(u *entity.User, err error) (entity.PublicProfile, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.PublicProfile{}, ErrNotFound
		}
		return entity.PublicProfile{}, fmt.Errorf("find user: %w", err)
	}
	return u.Public(), nil
}

// Delete removes the account. Claims filed by the user are kept.
func (s *UserService) Delete(ctx context.Context, u *entity.User) error {
	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Infow("user deleted", "user_id", u.ID)
	return nil
}

// FindOrCreateOAuth returns the account linked to an external identity,
// linking by email or creating a password-less account when needed.
func (s *UserService) FindOrCreateOAuth(ctx context.Context, subject, email, name string) (*entity.User, error) {
	if subject == "" {
		return nil, apperr.Unauthenticated("missing subject")
	}
	u, err := s.repo.GetByOAuthSubject(ctx, subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find oauth user: %w", err)
	}

	email = entity.NormalizeEmail(email)
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return nil, apperr.Invalid("email", "identity provider returned no usable email")
	}
	u, err = s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.repo.LinkOAuth(ctx, u.ID, subject); err != nil {
			return nil, fmt.Errorf("link oauth: %w", err)
		}
		u.OAuthSubject = &subject
		return u, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("find user: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = email
	}
	u = &entity.User{
		ID:           utilities.NewSnowflakeID(),
		Name:         name,
		Email:        email,
		Role:         entity.RoleUnset,
		Status:       entity.StatusPending,
		Standing:     entity.StandingGood,
		OAuthSubject: &subject,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, entity.ErrEmailTaken) {
			return nil, apperr.Conflict("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Infow("user created from oauth", "user_id", u.ID)
	return u, nil
}
