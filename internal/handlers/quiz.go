package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/idfuturestars/starguide/internal/middleware"
	"github.com/idfuturestars/starguide/pkg/models"
)

type quizStore interface {
	CreateRoom(ctx context.Context, room *models.QuizRoom) error
	GetRoomByCode(ctx context.Context, code string) (*models.QuizRoom, error)
	ListActiveRooms(ctx context.Context, limit int) ([]models.QuizRoom, error)
	AddParticipant(ctx context.Context, roomID, userID uuid.UUID) error
	ListAssessments(ctx context.Context) ([]models.Assessment, error)
}

type QuizHandler struct {
	quizzes  quizStore
	users    userStore
	progress progressStore
	events   eventRecorder
}

func NewQuizHandler(quizzes quizStore, users userStore, progress progressStore, events eventRecorder) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, users: users, progress: progress, events: events}
}

func (h *QuizHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuizRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(req.Subject) == "" {
		fields["subject"] = "Subject is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.MaxParticipants <= 0 {
		req.MaxParticipants = 20
	}

	userID := middleware.GetUserID(r.Context())
	creator, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	room := &models.QuizRoom{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Subject:         req.Subject,
		Difficulty:      req.Difficulty,
		RoomCode:        generateCode(6),
		MaxParticipants: req.MaxParticipants,
		Status:          models.RoomWaiting,
		CreatedBy:       userID,
		CreatorName:     creator.Username,
	}

	if err := h.quizzes.CreateRoom(r.Context(), room); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.events.RecordEvent(r.Context(), userID, models.EventQuizCreated, map[string]string{
		"room_id":   room.ID.String(),
		"room_code": room.RoomCode,
	})
	awardXP(r.Context(), h.progress, h.events, userID, xpCreateQuiz)

	writeJSON(w, http.StatusCreated, room)
}

func (h *QuizHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomCode string `json:"room_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.RoomCode))
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"room_code": "Room code is required"}, r))
		return
	}

	room, err := h.quizzes.GetRoomByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Quiz room not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	if room.Status == models.RoomFinished {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Quiz room has finished", r))
		return
	}
	if room.CurrentParticipants >= room.MaxParticipants {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Quiz room is full", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.quizzes.AddParticipant(r.Context(), room.ID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.events.RecordEvent(r.Context(), userID, models.EventQuizJoined, map[string]string{
		"room_id":   room.ID.String(),
		"room_code": room.RoomCode,
	})
	awardXP(r.Context(), h.progress, h.events, userID, xpJoinQuiz)

	writeJSON(w, http.StatusOK, room)
}

func (h *QuizHandler) ActiveRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.quizzes.ListActiveRooms(r.Context(), 50)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (h *QuizHandler) Assessments(w http.ResponseWriter, r *http.Request) {
	assessments, err := h.quizzes.ListAssessments(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"assessments": assessments})
}
