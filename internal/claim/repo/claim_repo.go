package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/claim/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
)

// ClaimRepo provides data access for the claims table.
type ClaimRepo struct {
	db *sqlx.DB
}

func NewClaimRepo(db *sqlx.DB) *ClaimRepo { return &ClaimRepo{db: db} }

const claimColumns = `id, group_id, group_name, subgroup_name, claimant_id, claimant_name, claimant_address,
	status, summary, documents, period, amount, version, created_at, updated_at`

type claimRow struct {
	ID              string              `db:"id"`
	GroupID         string              `db:"group_id"`
	GroupName       string              `db:"group_name"`
	SubgroupName    string              `db:"subgroup_name"`
	ClaimantID      string              `db:"claimant_id"`
	ClaimantName    string              `db:"claimant_name"`
	ClaimantAddress string              `db:"claimant_address"`
	Status          string              `db:"status"`
	Summary         string              `db:"summary"`
	Documents       pq.StringArray      `db:"documents"`
	Period          string              `db:"period"`
	Amount          decimal.NullDecimal `db:"amount"`
	Version         int64               `db:"version"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

func (row claimRow) toEntity() entity.Claim {
	docs := []string(row.Documents)
	if docs == nil {
		docs = []string{}
	}
	return entity.Claim{
		ID:              row.ID,
		GroupID:         row.GroupID,
		GroupName:       row.GroupName,
		SubgroupName:    row.SubgroupName,
		ClaimantID:      row.ClaimantID,
		ClaimantName:    row.ClaimantName,
		ClaimantAddress: row.ClaimantAddress,
		Status:          entity.Status(row.Status),
		Summary:         row.Summary,
		Documents:       docs,
		Period:          row.Period,
		Amount:          row.Amount,
		Version:         row.Version,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func (r *ClaimRepo) Create(ctx context.Context, c *entity.Claim) error {
	const q = `INSERT INTO claims (id, group_id, group_name, subgroup_name, claimant_id, claimant_name,
		claimant_address, status, summary, documents, period, amount, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q, c.ID, c.GroupID, c.GroupName, c.SubgroupName, c.ClaimantID,
		c.ClaimantName, c.ClaimantAddress, string(c.Status), c.Summary, pq.StringArray(c.Documents),
		c.Period, c.Amount, c.Version)
	return row.Scan(&c.CreatedAt, &c.UpdatedAt)
}

// Get returns the claim or sql.ErrNoRows.
func (r *ClaimRepo) Get(ctx context.Context, id string) (*entity.Claim, error) {
	var row claimRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id); err != nil {
		return nil, err
	}
	c := row.toEntity()
	return &c, nil
}

func (r *ClaimRepo) ListByGroup(ctx context.Context, groupID string) ([]entity.Claim, error) {
	var rows []claimRow
	q := `SELECT ` + claimColumns + ` FROM claims WHERE group_id = $1 ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &rows, q, groupID); err != nil {
		return nil, err
	}
	out := make([]entity.Claim, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// Update writes the mutable fields of c if the stored version still equals
// c.Version. On success c.Version is advanced; a stale version yields
// entity.ErrVersionConflict.
func (r *ClaimRepo) Update(ctx context.Context, c *entity.Claim) error {
	const q = `UPDATE claims SET status = $3, summary = $4, documents = $5, amount = $6,
		version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 RETURNING version, updated_at`
	err := r.db.QueryRowxContext(ctx, q, c.ID, c.Version, string(c.Status), c.Summary,
		pq.StringArray(c.Documents), c.Amount).Scan(&c.Version, &c.UpdatedAt)
	if database.IsNotFound(err) {
		return entity.ErrVersionConflict
	}
	return err
}
