// Package client is the Go consumer library for the StarGuide backend. It
// owns the authenticated session, the realtime presence channel, and typed
// wrappers for the REST endpoints.
package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/idfuturestars/starguide/pkg/models"
)

// API calls the StarGuide backend over HTTP. A bearer credential, once
// attached, is carried on every subsequent request until detached.
type API struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// APIError represents a backend error response.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPI constructs a backend client. baseURL should include the /api/v1
// prefix.
func NewAPI(baseURL string) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken attaches a bearer credential to all future requests.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// ClearToken detaches the bearer credential.
func (a *API) ClearToken() {
	a.SetToken("")
}

func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *API) Login(identifier, password string) (*models.LoginResponse, error) {
	payload := models.LoginRequest{Identifier: identifier, Password: password}
	var resp models.LoginResponse
	if err := a.doJSON(http.MethodPost, "/auth/login", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) Register(req models.RegisterRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := a.doJSON(http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) Me() (*models.User, error) {
	var user models.User
	if err := a.doJSON(http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *API) Logout(refreshToken string) error {
	var payload any
	if refreshToken != "" {
		payload = models.RefreshRequest{RefreshToken: refreshToken}
	}
	return a.doJSON(http.MethodPost, "/auth/logout", payload, nil)
}

func (a *API) Dashboard() (*models.DashboardResponse, error) {
	var resp models.DashboardResponse
	if err := a.doJSON(http.MethodGet, "/analytics/dashboard", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) MyGroups() ([]models.StudyGroup, error) {
	var resp struct {
		Groups []models.StudyGroup `json:"groups"`
	}
	if err := a.doJSON(http.MethodGet, "/groups/mine", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

func (a *API) DiscoverGroups() ([]models.StudyGroup, error) {
	var resp struct {
		Groups []models.StudyGroup `json:"groups"`
	}
	if err := a.doJSON(http.MethodGet, "/groups/discover", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

func (a *API) CreateGroup(req models.CreateGroupRequest) (*models.StudyGroup, error) {
	var group models.StudyGroup
	if err := a.doJSON(http.MethodPost, "/groups/", req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (a *API) JoinGroup(joinCode string) (*models.StudyGroup, error) {
	var group models.StudyGroup
	if err := a.doJSON(http.MethodPost, "/groups/join", models.JoinGroupRequest{JoinCode: joinCode}, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (a *API) LeaveGroup(groupID string) error {
	return a.doJSON(http.MethodDelete, "/groups/"+groupID+"/membership", nil, nil)
}

func (a *API) GroupMessages(groupID string) ([]models.GroupMessage, error) {
	var resp struct {
		Messages []models.GroupMessage `json:"messages"`
	}
	if err := a.doJSON(http.MethodGet, "/groups/"+groupID+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (a *API) Assessments() ([]models.Assessment, error) {
	var resp struct {
		Assessments []models.Assessment `json:"assessments"`
	}
	if err := a.doJSON(http.MethodGet, "/assessments/", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Assessments, nil
}

func (a *API) CreateQuizRoom(req models.CreateQuizRoomRequest) (*models.QuizRoom, error) {
	var room models.QuizRoom
	if err := a.doJSON(http.MethodPost, "/quiz-rooms/", req, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (a *API) JoinQuizRoom(roomCode string) (*models.QuizRoom, error) {
	payload := map[string]string{"room_code": roomCode}
	var room models.QuizRoom
	if err := a.doJSON(http.MethodPost, "/quiz-rooms/join", payload, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (a *API) ActiveQuizRooms() ([]models.QuizRoom, error) {
	var resp struct {
		Rooms []models.QuizRoom `json:"rooms"`
	}
	if err := a.doJSON(http.MethodGet, "/quiz-rooms/active", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (a *API) Leaderboard() ([]models.LeaderboardEntry, error) {
	var resp struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	if err := a.doJSON(http.MethodGet, "/leaderboard", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Leaderboard, nil
}

func (a *API) AIChat(req models.ChatRequest) (*models.ChatResponse, error) {
	var resp models.ChatResponse
	if err := a.doJSON(http.MethodPost, "/ai/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) Notifications() ([]models.Notification, error) {
	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := a.doJSON(http.MethodGet, "/user/notifications", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

func (a *API) doJSON(method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeAPIError tolerates both the envelope shape this backend emits and
// the flat {detail: "..."} shape older deployments used. Missing fields fall
// back to the HTTP status text.
func decodeAPIError(resp *http.Response) error {
	var errResp struct {
		Error  *models.APIError `json:"error"`
		Detail string           `json:"detail"`
	}
	json.NewDecoder(resp.Body).Decode(&errResp)

	msg := ""
	code := ""
	if errResp.Error != nil {
		msg = errResp.Error.Message
		code = errResp.Error.Code
	}
	if msg == "" {
		msg = errResp.Detail
	}
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{Status: resp.StatusCode, Message: msg, Code: code}
}
