package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/internal/group/entity"
	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
)

// GroupRepo provides data access for groups, subgroups and group_members.
type GroupRepo struct {
	db *sqlx.DB
}

func NewGroupRepo(db *sqlx.DB) *GroupRepo { return &GroupRepo{db: db} }

// Create inserts the group and its subgroups and assigns the creator to it,
// all in one transaction. A taken access code is reported as
// entity.ErrDuplicateAccessCode; a creator that already has a group as
// entity.ErrCreatorAssigned.
func (r *GroupRepo) Create(ctx context.Context, g *entity.Group) error {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const q = `INSERT INTO groups (id, group_name, access_code, created_by) VALUES ($1, $2, $3, NULLIF($4, '')) RETURNING created_at`
		if err := tx.GetContext(ctx, &g.CreatedAt, q, g.ID, g.GroupName, g.AccessCode, g.CreatedBy); err != nil {
			return err
		}
		for i, sg := range g.Subgroups {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO subgroups (group_id, name, position) VALUES ($1, $2, $3)`,
				g.ID, sg.Name, i); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET group_id = $1, updated_at = NOW() WHERE id = $2 AND group_id IS NULL`,
			g.ID, g.CreatedBy)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return entity.ErrCreatorAssigned
		}
		return nil
	})
	if database.IsUniqueViolation(err) {
		return entity.ErrDuplicateAccessCode
	}
	return err
}

// GetByID returns the group with subgroups and members or sql.ErrNoRows.
func (r *GroupRepo) GetByID(ctx context.Context, id string) (*entity.Group, error) {
	groups, err := r.load(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, sql.ErrNoRows
	}
	return &groups[0], nil
}

// GetByAccessCode returns the group owning code or sql.ErrNoRows.
func (r *GroupRepo) GetByAccessCode(ctx context.Context, code string) (*entity.Group, error) {
	var id string
	if err := r.db.GetContext(ctx, &id, `SELECT id FROM groups WHERE access_code = $1`, code); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// CandidateGroups returns groupID (when set) and every group listing userID
// as a member, oldest first.
func (r *GroupRepo) CandidateGroups(ctx context.Context, userID, groupID string) ([]entity.Group, error) {
	const q = `SELECT id FROM groups WHERE id = $2
		UNION SELECT group_id FROM group_members WHERE user_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, q, userID, groupID); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []entity.Group{}, nil
	}
	return r.load(ctx, ids)
}

// AddMember places m in a subgroup. A user already placed anywhere is
// reported as entity.ErrAlreadyMember.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, subgroupName string, m entity.Member) error {
	const q = `INSERT INTO group_members (user_id, group_id, subgroup_name, name) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, q, m.UserID, groupID, subgroupName, m.Name)
	if database.IsUniqueViolation(err) {
		return entity.ErrAlreadyMember
	}
	return err
}

func (r *GroupRepo) load(ctx context.Context, ids []string) ([]entity.Group, error) {
	var rows []struct {
		ID         string    `db:"id"`
		GroupName  string    `db:"group_name"`
		AccessCode string    `db:"access_code"`
		CreatedBy  string    `db:"created_by"`
		CreatedAt  time.Time `db:"created_at"`
	}
	const gq = `SELECT id, group_name, access_code, COALESCE(created_by, '') AS created_by, created_at
		FROM groups WHERE id = ANY($1) ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &rows, gq, pq.Array(ids)); err != nil {
		return nil, err
	}

	var subs []struct {
		GroupID string `db:"group_id"`
		Name    string `db:"name"`
	}
	const sq = `SELECT group_id, name FROM subgroups WHERE group_id = ANY($1) ORDER BY group_id, position`
	if err := r.db.SelectContext(ctx, &subs, sq, pq.Array(ids)); err != nil {
		return nil, err
	}

	var members []struct {
		GroupID      string `db:"group_id"`
		SubgroupName string `db:"subgroup_name"`
		entity.Member
	}
	const mq = `SELECT group_id, subgroup_name, user_id, name, joined_at
		FROM group_members WHERE group_id = ANY($1) ORDER BY joined_at, user_id`
	if err := r.db.SelectContext(ctx, &members, mq, pq.Array(ids)); err != nil {
		return nil, err
	}

	out := make([]entity.Group, 0, len(rows))
	index := map[string]int{}
	for _, row := range rows {
		index[row.ID] = len(out)
		out = append(out, entity.Group{
			ID:         row.ID,
			GroupName:  row.GroupName,
			AccessCode: row.AccessCode,
			CreatedBy:  row.CreatedBy,
			Subgroups:  []entity.Subgroup{},
			CreatedAt:  row.CreatedAt,
		})
	}
	for _, s := range subs {
		if i, ok := index[s.GroupID]; ok {
			out[i].Subgroups = append(out[i].Subgroups, entity.Subgroup{Name: s.Name, Members: []entity.Member{}})
		}
	}
	for _, m := range members {
		i, ok := index[m.GroupID]
		if !ok {
			continue
		}
		if sg, ok := out[i].Subgroup(m.SubgroupName); ok {
			sg.Members = append(sg.Members, m.Member)
		}
	}
	return out, nil
}
