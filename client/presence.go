package client

import (
	"encoding/json"
	"log"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/idfuturestars/starguide/pkg/models"
)

// PresenceChannel holds the realtime connection and the roster of online
// users. It connects while a session is authenticated and exposes
// fire-and-forget emits for group chat, quiz rooms, and notifications.
//
// Reconnection is not attempted here. A dropped connection leaves the
// channel disconnected with an empty roster until Connect is called again,
// which happens when the session re-enters the authenticated state.
type PresenceChannel struct {
	wsURL string

	mu     sync.RWMutex
	conn   *websocket.Conn
	roster map[uuid.UUID]models.UserSummary

	handlers map[string][]func(models.Event)
	done     chan struct{}
}

// NewPresenceChannel takes the websocket endpoint URL (ws:// or wss://,
// without query parameters).
func NewPresenceChannel(wsURL string) *PresenceChannel {
	return &PresenceChannel{
		wsURL:    wsURL,
		roster:   make(map[uuid.UUID]models.UserSummary),
		handlers: make(map[string][]func(models.Event)),
	}
}

// Connect dials the channel with the session's credential and display name.
// A connection failure is returned to the caller and leaves the roster
// empty.
func (p *PresenceChannel) Connect(token, username string) error {
	p.Disconnect()

	q := url.Values{}
	q.Set("token", token)
	q.Set("username", username)

	conn, _, err := websocket.DefaultDialer.Dial(p.wsURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	p.mu.Lock()
	p.conn = conn
	p.done = done
	p.mu.Unlock()

	go p.readLoop(conn, done)
	return nil
}

// Disconnect closes the connection and clears the roster. Safe to call when
// already disconnected.
func (p *PresenceChannel) Disconnect() {
	p.mu.Lock()
	conn := p.conn
	done := p.done
	p.conn = nil
	p.done = nil
	p.roster = make(map[uuid.UUID]models.UserSummary)
	p.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
}

// Connected reports whether the channel currently holds a live connection.
func (p *PresenceChannel) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil
}

// Roster returns the users currently believed online.
func (p *PresenceChannel) Roster() []models.UserSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.UserSummary, 0, len(p.roster))
	for _, u := range p.roster {
		out = append(out, u)
	}
	return out
}

// On registers a handler for a server event type. Handlers run on the read
// goroutine in arrival order.
func (p *PresenceChannel) On(eventType string, fn func(models.Event)) {
	p.mu.Lock()
	p.handlers[eventType] = append(p.handlers[eventType], fn)
	p.mu.Unlock()
}

// Emit operations. All are fire-and-forget: a write failure is logged and
// the caller gets no delivery confirmation.

func (p *PresenceChannel) JoinStudyGroup(groupID string) {
	p.emit(models.EventJoinStudyGroup, models.RoomPayload{RoomID: groupID})
}

func (p *PresenceChannel) LeaveStudyGroup(groupID string) {
	p.emit(models.EventLeaveStudyGroup, models.RoomPayload{RoomID: groupID})
}

func (p *PresenceChannel) SendGroupMessage(groupID, message string) {
	p.emit(models.EventGroupMessage, models.GroupMessagePayload{GroupID: groupID, Message: message})
}

func (p *PresenceChannel) JoinQuizRoom(roomID string) {
	p.emit(models.EventJoinQuizRoom, models.RoomPayload{RoomID: roomID})
}

func (p *PresenceChannel) LeaveQuizRoom(roomID string) {
	p.emit(models.EventLeaveQuizRoom, models.RoomPayload{RoomID: roomID})
}

func (p *PresenceChannel) SubmitQuizAnswer(roomID, questionID, answer string) {
	p.emit(models.EventSubmitQuizAnswer, models.QuizAnswerPayload{
		RoomID:     roomID,
		QuestionID: questionID,
		Answer:     answer,
	})
}

func (p *PresenceChannel) SendNotification(targetUserID, title, body string) {
	p.emit(models.EventSendNotification, models.SendNotificationPayload{
		UserID: targetUserID,
		Title:  title,
		Body:   body,
	})
}

func (p *PresenceChannel) emit(eventType string, payload any) {
	event, err := models.NewEvent(eventType, payload)
	if err != nil {
		log.Printf("Dropping %s emit: %v", eventType, err)
		return
	}

	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		log.Printf("Dropping %s emit: channel not connected", eventType)
		return
	}

	if err := conn.WriteJSON(event); err != nil {
		log.Printf("Dropping %s emit: %v", eventType, err)
	}
}

func (p *PresenceChannel) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var event models.Event
		if err := conn.ReadJSON(&event); err != nil {
			p.mu.Lock()
			if p.conn == conn {
				p.conn = nil
				p.done = nil
				p.roster = make(map[uuid.UUID]models.UserSummary)
			}
			p.mu.Unlock()
			return
		}
		p.handle(event)
	}
}

// handle applies roster events in arrival order. Joins and leaves are
// idempotent set operations, so a duplicate or out-of-order delta is
// harmless.
func (p *PresenceChannel) handle(event models.Event) {
	switch event.Type {
	case models.EventUsersOnline:
		var snapshot []models.UserSummary
		if err := json.Unmarshal(event.Payload, &snapshot); err != nil {
			log.Printf("Malformed roster snapshot: %v", err)
			return
		}
		roster := make(map[uuid.UUID]models.UserSummary, len(snapshot))
		for _, u := range snapshot {
			roster[u.ID] = u
		}
		p.mu.Lock()
		p.roster = roster
		p.mu.Unlock()

	case models.EventUserJoined:
		var u models.PresencePayload
		if err := json.Unmarshal(event.Payload, &u); err != nil {
			return
		}
		p.mu.Lock()
		p.roster[u.UserID] = models.UserSummary{ID: u.UserID, Username: u.Username}
		p.mu.Unlock()

	case models.EventUserLeft:
		var u models.PresencePayload
		if err := json.Unmarshal(event.Payload, &u); err != nil {
			return
		}
		p.mu.Lock()
		delete(p.roster, u.UserID)
		p.mu.Unlock()
	}

	p.mu.RLock()
	var handlers []func(models.Event)
	handlers = append(handlers, p.handlers[event.Type]...)
	p.mu.RUnlock()
	for _, fn := range handlers {
		fn(event)
	}
}
