package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idfuturestars/starguide/pkg/models"
)

type QuizRepo struct {
	pool *pgxpool.Pool
}

func NewQuizRepo(pool *pgxpool.Pool) *QuizRepo {
	return &QuizRepo{pool: pool}
}

const roomColumns = `id, title, description, subject, difficulty, room_code,
	max_participants, current_participants, status, created_by, creator_name, created_at`

func scanRoom(row interface{ Scan(...any) error }) (*models.QuizRoom, error) {
	room := &models.QuizRoom{}
	err := row.Scan(
		&room.ID, &room.Title, &room.Description, &room.Subject, &room.Difficulty,
		&room.RoomCode, &room.MaxParticipants, &room.CurrentParticipants,
		&room.Status, &room.CreatedBy, &room.CreatorName, &room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *QuizRepo) CreateRoom(ctx context.Context, room *models.QuizRoom) error {
	query := `
		INSERT INTO quiz_rooms (id, title, description, subject, difficulty, room_code,
			max_participants, current_participants, status, created_by, creator_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
		RETURNING created_at`

	room.ID = uuid.New()
	room.Status = models.RoomWaiting

	return r.pool.QueryRow(ctx, query,
		room.ID, room.Title, room.Description, room.Subject, room.Difficulty,
		room.RoomCode, room.MaxParticipants, room.Status, room.CreatedBy, room.CreatorName,
	).Scan(&room.CreatedAt)
}

func (r *QuizRepo) GetRoomByCode(ctx context.Context, code string) (*models.QuizRoom, error) {
	query := `SELECT ` + roomColumns + ` FROM quiz_rooms WHERE room_code = $1`
	return scanRoom(r.pool.QueryRow(ctx, query, code))
}

func (r *QuizRepo) ListActiveRooms(ctx context.Context, limit int) ([]models.QuizRoom, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM quiz_rooms
		WHERE status IN ('waiting', 'active')
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]models.QuizRoom, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

func (r *QuizRepo) AddParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"INSERT INTO quiz_participants (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		roomID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE quiz_rooms SET current_participants = current_participants + 1 WHERE id = $1", roomID,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *QuizRepo) RemoveParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM quiz_participants WHERE room_id = $1 AND user_id = $2",
		roomID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx,
			"UPDATE quiz_rooms SET current_participants = GREATEST(current_participants - 1, 0) WHERE id = $1", roomID,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *QuizRepo) ListAssessments(ctx context.Context) ([]models.Assessment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, subject, difficulty, question_count, created_at
		FROM assessments
		ORDER BY subject, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assessments := make([]models.Assessment, 0)
	for rows.Next() {
		var a models.Assessment
		if err := rows.Scan(&a.ID, &a.Title, &a.Subject, &a.Difficulty, &a.QuestionCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}
