package client

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"github.com/idfuturestars/starguide/pkg/models"
)

// App wires the session, presence channel, and notification bus together.
// It keeps the presence channel connected exactly while the session is
// authenticated: a login or restored session opens the channel with that
// user's identity, logout or an identity change closes it.
type App struct {
	Session       *SessionManager
	Presence      *PresenceChannel
	Notifications *NotificationBus
	Conversation  *ConversationLog

	currentUser uuid.UUID
}

// NewApp builds the full client stack against a backend. baseURL carries
// the /api/v1 prefix; wsURL points at the websocket endpoint.
func NewApp(baseURL, wsURL string, creds CredentialStore) *App {
	api := NewAPI(baseURL)
	app := &App{
		Session:       NewSessionManager(api, creds),
		Presence:      NewPresenceChannel(wsURL),
		Notifications: NewNotificationBus(),
		Conversation:  NewConversationLog(),
	}

	app.Presence.On(models.EventNotification, func(event models.Event) {
		var n models.Notification
		if err := json.Unmarshal(event.Payload, &n); err != nil {
			return
		}
		app.Notifications.Publish(n)
	})

	app.Session.OnChange(app.onSessionChange)
	return app
}

// API exposes the REST client the session manager authorizes.
func (a *App) API() *API {
	return a.Session.api
}

func (a *App) onSessionChange(s Session) {
	if s.Status != StatusAuthenticated || s.User == nil {
		a.currentUser = uuid.Nil
		a.Presence.Disconnect()
		a.Conversation.Reset()
		return
	}

	if a.currentUser == s.User.ID && a.Presence.Connected() {
		return
	}
	a.currentUser = s.User.ID

	if err := a.Presence.Connect(s.Token, s.User.Username); err != nil {
		log.Printf("Presence connect failed: %v", err)
	}
}
