package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleParent  = "parent"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	AvatarURL    *string    `json:"avatar_url"`
	Bio          *string    `json:"bio"`
	GradeLevel   *string    `json:"grade_level"`
	School       *string    `json:"school"`
	Progress     Progress   `json:"progress"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// Progress holds the gamification counters shown on the dashboard.
type Progress struct {
	Level      int `json:"level"`
	XPTotal    int `json:"xp_total"`
	StreakDays int `json:"streak_days"`
}

// UserSummary is the roster entry broadcast over the realtime channel.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type RegisterRequest struct {
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	FullName   string  `json:"full_name"`
	Role       string  `json:"role"`
	GradeLevel *string `json:"grade_level,omitempty"`
	School     *string `json:"school,omitempty"`
}

// LoginRequest accepts either an email address or a username as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         *User  `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	FullName   *string `json:"full_name,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	GradeLevel *string `json:"grade_level,omitempty"`
	School     *string `json:"school,omitempty"`
	AvatarURL  *string `json:"avatar_url,omitempty"`
}

type LeaderboardEntry struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Level    int       `json:"level"`
	XPTotal  int       `json:"xp_total"`
}
