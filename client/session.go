package client

import (
	"errors"
	"log"
	"sync"

	"github.com/idfuturestars/starguide/pkg/models"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusRestoring holds from construction until Restore completes.
	// Callers must not treat the session as either signed in or out yet.
	StatusRestoring     Status = "restoring"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// Session is a point-in-time snapshot of who is signed in.
type Session struct {
	Status Status
	User   *models.User
	Token  string
}

// AuthResult is the outcome of a login or register attempt. Failures carry a
// human-readable reason; neither operation ever returns an error.
type AuthResult struct {
	Success bool
	Message string
}

// SessionManager is the single source of truth for the authenticated user
// and the credential attached to API calls. All mutation goes through
// Restore, Login, Register and Logout.
type SessionManager struct {
	api   *API
	creds CredentialStore

	mu        sync.RWMutex
	status    Status
	user      *models.User
	refresh   string
	observers []func(Session)
}

func NewSessionManager(api *API, creds CredentialStore) *SessionManager {
	return &SessionManager{
		api:    api,
		creds:  creds,
		status: StatusRestoring,
	}
}

// Restore attempts to resume a previous session from the credential store.
// With no stored credential it settles to anonymous without touching the
// network. A stored credential the server rejects, or any network failure,
// is treated the same way: the credential is discarded and the session is
// anonymous.
func (m *SessionManager) Restore() Session {
	token, err := m.creds.Load()
	if err != nil || token == "" {
		if err != nil {
			log.Printf("Credential load failed: %v", err)
		}
		return m.transition(StatusAnonymous, nil, "")
	}

	m.api.SetToken(token)
	user, err := m.api.Me()
	if err != nil {
		m.api.ClearToken()
		if clearErr := m.creds.Clear(); clearErr != nil {
			log.Printf("Credential clear failed: %v", clearErr)
		}
		return m.transition(StatusAnonymous, nil, "")
	}

	return m.transition(StatusAuthenticated, user, token)
}

// Login exchanges credentials for a session. On failure nothing changes: an
// already-authenticated session stays intact and the result carries the
// server's reason.
func (m *SessionManager) Login(identifier, password string) AuthResult {
	resp, err := m.api.Login(identifier, password)
	if err != nil {
		return AuthResult{Message: failureMessage(err)}
	}
	m.establish(resp)
	return AuthResult{Success: true}
}

// Register creates an account and signs it in. Failure semantics match
// Login.
func (m *SessionManager) Register(req models.RegisterRequest) AuthResult {
	resp, err := m.api.Register(req)
	if err != nil {
		return AuthResult{Message: failureMessage(err)}
	}
	m.establish(resp)
	return AuthResult{Success: true}
}

// Logout notifies the backend best-effort, then unconditionally clears the
// stored credential, the in-memory user, and the API client's bearer token.
func (m *SessionManager) Logout() {
	m.mu.RLock()
	refresh := m.refresh
	m.mu.RUnlock()

	if err := m.api.Logout(refresh); err != nil {
		log.Printf("Logout notification failed: %v", err)
	}

	m.api.ClearToken()
	if err := m.creds.Clear(); err != nil {
		log.Printf("Credential clear failed: %v", err)
	}
	m.transition(StatusAnonymous, nil, "")
}

// Current returns a snapshot of the session.
func (m *SessionManager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Session{Status: m.status, User: m.user, Token: m.api.Token()}
}

// OnChange registers an observer invoked after every session transition.
// Observers see the snapshot the transition produced.
func (m *SessionManager) OnChange(fn func(Session)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

func (m *SessionManager) establish(resp *models.LoginResponse) {
	if err := m.creds.Save(resp.AccessToken); err != nil {
		log.Printf("Credential save failed: %v", err)
	}
	m.api.SetToken(resp.AccessToken)

	m.mu.Lock()
	m.refresh = resp.RefreshToken
	m.mu.Unlock()

	m.transition(StatusAuthenticated, resp.User, resp.AccessToken)
}

func (m *SessionManager) transition(status Status, user *models.User, token string) Session {
	m.mu.Lock()
	m.status = status
	m.user = user
	if status != StatusAuthenticated {
		m.refresh = ""
	}
	snapshot := Session{Status: status, User: user, Token: token}
	var observers []func(Session)
	observers = append(observers, m.observers...)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	return snapshot
}

func failureMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Unable to reach the server"
}
