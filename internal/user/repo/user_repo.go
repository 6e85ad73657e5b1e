package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	settingentity "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/entity"
	settingrepo "github.com/ovaphlow/pitchfork/service-mutual-aid/internal/setting/repo"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
)

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, COALESCE(password_hash, '') AS password_hash, role, status,
	account_completed, standing, group_id, wallet_provider, ethereum_address, picture, phone,
	added_to_smart_contract, oauth_subject, created_at, updated_at`

type userRow struct {
	ID                   string         `db:"id"`
	Name                 string         `db:"name"`
	Email                string         `db:"email"`
	PasswordHash         string         `db:"password_hash"`
	Role                 string         `db:"role"`
	Status               string         `db:"status"`
	AccountCompleted     bool           `db:"account_completed"`
	Standing             string         `db:"standing"`
	GroupID              sql.NullString `db:"group_id"`
	WalletProvider       string         `db:"wallet_provider"`
	EthereumAddress      string         `db:"ethereum_address"`
	Picture              string         `db:"picture"`
	Phone                string         `db:"phone"`
	AddedToSmartContract bool           `db:"added_to_smart_contract"`
	OAuthSubject         sql.NullString `db:"oauth_subject"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

// toEntity trusts stored enum values; they were validated on the way in.
func (row userRow) toEntity() *entity.User {
	u := &entity.User{
		ID:                   row.ID,
		Name:                 row.Name,
		Email:                row.Email,
		PasswordHash:         row.PasswordHash,
		Role:                 entity.Role(row.Role),
		Status:               entity.Status(row.Status),
		AccountCompleted:     row.AccountCompleted,
		Standing:             entity.Standing(row.Standing),
		WalletProvider:       entity.WalletProvider(row.WalletProvider),
		EthereumAddress:      row.EthereumAddress,
		Picture:              row.Picture,
		Phone:                row.Phone,
		AddedToSmartContract: row.AddedToSmartContract,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if row.GroupID.Valid {
		g := row.GroupID.String
		u.GroupID = &g
	}
	if row.OAuthSubject.Valid {
		s := row.OAuthSubject.String
		u.OAuthSubject = &s
	}
	return u
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+where, arg); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

// Create inserts a new user row. A taken email is reported as entity.ErrEmailTaken.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, name, email, password_hash, role, status, account_completed, standing, picture, oauth_subject)
		VALUES (:id, :name, :email, NULLIF(:password_hash, ''), :role, :status, :account_completed, :standing, :picture, :oauth_subject)
		RETURNING created_at, updated_at`
	params := map[string]any{
		"id":                u.ID,
		"name":              u.Name,
		"email":             u.Email,
		"password_hash":     u.PasswordHash,
		"role":              string(u.Role),
		"status":            string(u.Status),
		"account_completed": u.AccountCompleted,
		"standing":          string(u.Standing),
		"picture":           u.Picture,
		"oauth_subject":     u.OAuthSubject,
	}
	stmt, err := r.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return entity.ErrEmailTaken
		}
		return err
	}
	defer stmt.Close()
	if stmt.Next() {
		return stmt.Scan(&u.CreatedAt, &u.UpdatedAt)
	}
	if err := stmt.Err(); err != nil {
		if database.IsUniqueViolation(err) {
			return entity.ErrEmailTaken
		}
		return err
	}
	return errors.New("no row returned")
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByEmail returns a user matched by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *UserRepo) GetByOAuthSubject(ctx context.Context, subject string) (*entity.User, error) {
	return r.getOne(ctx, `oauth_subject = $1`, subject)
}

func (r *UserRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
	return ok, err
}

// CompleteSetup stores the setup fields of u together with its initial
// notification settings in one transaction. It returns false when the
// account was already completed, in which case nothing is written.
func (r *UserRepo) CompleteSetup(ctx context.Context, u *entity.User, settings []settingentity.Setting) (bool, error) {
	const q = `UPDATE users SET role = $2, group_id = $3, wallet_provider = $4, ethereum_address = $5,
		account_completed = true, updated_at = NOW()
		WHERE id = $1 AND account_completed = false RETURNING updated_at`
	var updated time.Time
	completed := true
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &updated, q, u.ID, string(u.Role), u.GroupID, string(u.WalletProvider), u.EthereumAddress)
		if database.IsNotFound(err) {
			completed = false
			return nil
		}
		if err != nil {
			return err
		}
		return settingrepo.ReplaceTx(ctx, tx, u.ID, settings)
	})
	if err != nil || !completed {
		return false, err
	}
	u.UpdatedAt = updated
	return true, nil
}

func (r *UserRepo) UpdateWallet(ctx context.Context, id string, provider entity.WalletProvider, address string) error {
	const q = `UPDATE users SET wallet_provider = $2, ethereum_address = $3, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, string(provider), address)
	return err
}

func (r *UserRepo) SetAddedToSmartContract(ctx context.Context, id string) error {
	const q = `UPDATE users SET added_to_smart_contract = true, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *UserRepo) LinkOAuth(ctx context.Context, id, subject string) error {
	const q = `UPDATE users SET oauth_subject = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, subject)
	return err
}

// Delete removes the account; tokens, settings and memberships cascade.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, hash)
	return err
}
