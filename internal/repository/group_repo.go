package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idfuturestars/starguide/pkg/models"
)

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

const groupColumns = `id, name, description, subject, group_type, join_code,
	member_count, max_members, created_by, created_at`

func scanGroup(row interface{ Scan(...any) error }) (*models.StudyGroup, error) {
	g := &models.StudyGroup{}
	err := row.Scan(
		&g.ID, &g.Name, &g.Description, &g.Subject, &g.GroupType, &g.JoinCode,
		&g.MemberCount, &g.MaxMembers, &g.CreatedBy, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepo) Create(ctx context.Context, group *models.StudyGroup) error {
	query := `
		INSERT INTO study_groups (id, name, description, subject, group_type, join_code, member_count, max_members, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	group.ID = uuid.New()
	group.MemberCount = 1

	if err := r.pool.QueryRow(ctx, query,
		group.ID, group.Name, group.Description, group.Subject, group.GroupType,
		group.JoinCode, group.MemberCount, group.MaxMembers, group.CreatedBy,
	).Scan(&group.CreatedAt); err != nil {
		return err
	}

	// Creator joins as the first member.
	_, err := r.pool.Exec(ctx,
		"INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, 'admin')",
		group.ID, group.CreatedBy,
	)
	return err
}

func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudyGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM study_groups WHERE id = $1`
	return scanGroup(r.pool.QueryRow(ctx, query, id))
}

func (r *GroupRepo) GetByJoinCode(ctx context.Context, code string) (*models.StudyGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM study_groups WHERE join_code = $1`
	return scanGroup(r.pool.QueryRow(ctx, query, code))
}

func (r *GroupRepo) ListPublic(ctx context.Context, limit int) ([]models.StudyGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM study_groups
		WHERE group_type = 'public'
		ORDER BY created_at DESC
		LIMIT $1`
	return r.listGroups(ctx, query, limit)
}

func (r *GroupRepo) ListByMember(ctx context.Context, userID uuid.UUID) ([]models.StudyGroup, error) {
	query := `SELECT g.id, g.name, g.description, g.subject, g.group_type, g.join_code,
			g.member_count, g.max_members, g.created_by, g.created_at
		FROM study_groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at DESC`
	return r.listGroups(ctx, query, userID)
}

func (r *GroupRepo) listGroups(ctx context.Context, query string, args ...any) ([]models.StudyGroup, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]models.StudyGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)",
		groupID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, 'member') ON CONFLICT DO NOTHING",
		groupID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE study_groups SET member_count = member_count + 1 WHERE id = $1", groupID,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM group_members WHERE group_id = $1 AND user_id = $2",
		groupID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE study_groups SET member_count = GREATEST(member_count - 1, 0) WHERE id = $1", groupID,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *GroupRepo) SaveMessage(ctx context.Context, msg *models.GroupMessage) error {
	msg.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO group_messages (id, group_id, user_id, username, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		msg.ID, msg.GroupID, msg.UserID, msg.Username, msg.Message,
	).Scan(&msg.CreatedAt)
}

func (r *GroupRepo) RecentMessages(ctx context.Context, groupID uuid.UUID, limit int) ([]models.GroupMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, group_id, user_id, username, message, created_at
		FROM group_messages
		WHERE group_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.GroupMessage, 0)
	for rows.Next() {
		var m models.GroupMessage
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Username, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
