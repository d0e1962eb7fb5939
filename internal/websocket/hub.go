package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/idfuturestars/starguide/internal/metrics"
	"github.com/idfuturestars/starguide/internal/worker"
	"github.com/idfuturestars/starguide/pkg/models"
)

const writeRetryDelay = 200 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GroupMessageStore persists chat messages posted through the channel.
type GroupMessageStore interface {
	SaveMessage(ctx context.Context, msg *models.GroupMessage) error
}

// QuizParticipantStore keeps quiz room membership counts in step with the
// channel when participants drop out mid-session.
type QuizParticipantStore interface {
	RemoveParticipant(ctx context.Context, roomID, userID uuid.UUID) error
}

type client struct {
	userID   uuid.UUID
	username string
	conn     *websocket.Conn
	mu       sync.Mutex
}

// writeEvent serializes writes per connection and retries transient write
// failures a few times before giving up.
func (c *client) writeEvent(event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	operation := func() error {
		return c.conn.WriteJSON(event)
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(writeRetryDelay), 3)
	err := backoff.Retry(operation, policy)
	if err == nil {
		metrics.MessagesSent.Inc()
	}
	return err
}

// Hub tracks connected users, their rooms, and fans events out. One user may
// hold several connections (tabs); the roster counts the user once.
type Hub struct {
	mu          sync.RWMutex
	clients     map[uuid.UUID][]*client
	rooms       map[string]map[uuid.UUID]struct{}
	cancelFuncs map[uuid.UUID]context.CancelFunc

	groups      GroupMessageStore
	quizzes     QuizParticipantStore
	queueClient *redis.Client
	redisPubSub *redis.Client
	jwtSecret   []byte
}

func NewHub(queueClient, pubsubClient *redis.Client, groups GroupMessageStore, quizzes QuizParticipantStore, jwtSecret string) *Hub {
	return &Hub{
		clients:     make(map[uuid.UUID][]*client),
		rooms:       make(map[string]map[uuid.UUID]struct{}),
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		groups:      groups,
		quizzes:     quizzes,
		queueClient: queueClient,
		redisPubSub: pubsubClient,
		jwtSecret:   []byte(jwtSecret),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		metrics.AuthFailures.WithLabelValues("missing_token").Inc()
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Display name travels as connection metadata alongside the token.
	username := r.URL.Query().Get("username")
	if username == "" {
		username, _ = claims["email"].(string)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{userID: userID, username: username, conn: conn}
	h.register(c)
	go h.readLoop(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()

	h.clients[c.userID] = append(h.clients[c.userID], c)
	firstConn := len(h.clients[c.userID]) == 1

	if firstConn {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[c.userID] = cancel
		go h.subscribeToPubSub(ctx, c.userID)
	}

	roster := h.rosterLocked()
	h.mu.Unlock()

	metrics.ActiveConnections.Inc()
	metrics.TotalConnections.Inc()
	log.Printf("WebSocket connected: user %s (%s)", c.userID, c.username)

	// New connection gets the full roster snapshot; everyone else learns
	// about the user only on their first connection.
	if snapshot, err := models.NewEvent(models.EventUsersOnline, roster); err == nil {
		c.writeEvent(snapshot)
	}
	if firstConn {
		joined, err := models.NewEvent(models.EventUserJoined, models.PresencePayload{
			UserID:   c.userID,
			Username: c.username,
		})
		if err == nil {
			h.broadcastAll(joined, c.userID)
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()

	c.conn.Close()

	conns := h.clients[c.userID]
	for i, existing := range conns {
		if existing == c {
			h.clients[c.userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	lastConn := len(h.clients[c.userID]) == 0
	if lastConn {
		delete(h.clients, c.userID)
		if cancel, ok := h.cancelFuncs[c.userID]; ok {
			cancel()
			delete(h.cancelFuncs, c.userID)
		}
		for room, members := range h.rooms {
			delete(members, c.userID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()

	metrics.ActiveConnections.Dec()
	log.Printf("WebSocket disconnected: user %s", c.userID)

	if lastConn {
		left, err := models.NewEvent(models.EventUserLeft, models.PresencePayload{
			UserID:   c.userID,
			Username: c.username,
		})
		if err == nil {
			h.broadcastAll(left, c.userID)
		}
	}
}

func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)
	for {
		var event models.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			return
		}
		metrics.MessagesReceived.Inc()
		h.dispatch(c, event)
	}
}

func (h *Hub) dispatch(c *client, event models.Event) {
	switch event.Type {
	case models.EventJoinStudyGroup:
		var p models.RoomPayload
		if json.Unmarshal(event.Payload, &p) == nil && p.RoomID != "" {
			h.joinRoom("group:"+p.RoomID, c.userID)
		}
	case models.EventLeaveStudyGroup:
		var p models.RoomPayload
		if json.Unmarshal(event.Payload, &p) == nil && p.RoomID != "" {
			h.leaveRoom("group:"+p.RoomID, c.userID)
		}
	case models.EventGroupMessage:
		h.handleGroupMessage(c, event)
	case models.EventJoinQuizRoom:
		var p models.RoomPayload
		if json.Unmarshal(event.Payload, &p) == nil && p.RoomID != "" {
			h.joinRoom("quiz:"+p.RoomID, c.userID)
		}
	case models.EventLeaveQuizRoom:
		var p models.RoomPayload
		if json.Unmarshal(event.Payload, &p) == nil && p.RoomID != "" {
			h.leaveRoom("quiz:"+p.RoomID, c.userID)
			h.dropQuizParticipant(c.userID, p.RoomID)
		}
	case models.EventSubmitQuizAnswer:
		h.handleQuizAnswer(c, event)
	case models.EventSendNotification:
		h.handleSendNotification(c, event)
	default:
		log.Printf("Unknown event type %q from user %s", event.Type, c.userID)
	}
}

func (h *Hub) handleGroupMessage(c *client, event models.Event) {
	var p models.GroupMessagePayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.GroupID == "" || p.Message == "" {
		return
	}
	groupID, err := uuid.Parse(p.GroupID)
	if err != nil {
		return
	}

	msg := models.GroupMessage{
		GroupID:  groupID,
		UserID:   c.userID,
		Username: c.username,
		Message:  p.Message,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if h.groups != nil {
		if err := h.groups.SaveMessage(ctx, &msg); err != nil {
			log.Printf("Failed to persist group message from %s: %v", c.userID, err)
		}
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	out, err := models.NewEvent(models.EventNewMessage, msg)
	if err != nil {
		return
	}
	h.broadcastRoom("group:"+p.GroupID, out)
}

func (h *Hub) handleQuizAnswer(c *client, event models.Event) {
	var p models.QuizAnswerPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.RoomID == "" {
		return
	}

	// Answers are acknowledged to the room; grading happens elsewhere.
	out, err := models.NewEvent(models.EventAnswerSubmitted, models.AnswerSubmittedPayload{
		RoomID:     p.RoomID,
		UserID:     c.userID,
		QuestionID: p.QuestionID,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return
	}
	h.broadcastRoom("quiz:"+p.RoomID, out)
}

func (h *Hub) handleSendNotification(c *client, event models.Event) {
	var p models.SendNotificationPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return
	}
	targetID, err := uuid.Parse(p.UserID)
	if err != nil {
		return
	}

	notification := models.Notification{
		UserID: targetID,
		FromID: c.userID,
		Title:  p.Title,
		Body:   p.Body,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := worker.Enqueue(ctx, h.queueClient, notification); err != nil {
		log.Printf("Failed to enqueue notification from %s: %v", c.userID, err)
	}
}

// dropQuizParticipant persists a quiz room departure so the room's
// participant count survives the in-memory hub state.
func (h *Hub) dropQuizParticipant(userID uuid.UUID, roomID string) {
	if h.quizzes == nil {
		return
	}
	id, err := uuid.Parse(roomID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.quizzes.RemoveParticipant(ctx, id, userID); err != nil {
		log.Printf("Failed to remove quiz participant %s from %s: %v", userID, roomID, err)
	}
}

func (h *Hub) joinRoom(room string, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[uuid.UUID]struct{})
	}
	h.rooms[room][userID] = struct{}{}
}

func (h *Hub) leaveRoom(room string, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// rosterLocked builds the online-user snapshot. Callers must hold h.mu.
func (h *Hub) rosterLocked() []models.UserSummary {
	roster := make([]models.UserSummary, 0, len(h.clients))
	for userID, conns := range h.clients {
		if len(conns) == 0 {
			continue
		}
		roster = append(roster, models.UserSummary{ID: userID, Username: conns[0].username})
	}
	return roster
}

func (h *Hub) broadcastAll(event models.Event, except uuid.UUID) {
	h.mu.RLock()
	targets := make([]*client, 0)
	for userID, conns := range h.clients {
		if userID == except {
			continue
		}
		targets = append(targets, conns...)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.writeEvent(event)
	}
}

func (h *Hub) broadcastRoom(room string, event models.Event) {
	h.mu.RLock()
	targets := make([]*client, 0)
	for userID := range h.rooms[room] {
		targets = append(targets, h.clients[userID]...)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.writeEvent(event)
	}
}

// SendToUser delivers an event to all of a user's connections on this
// instance.
func (h *Hub) SendToUser(userID uuid.UUID, event models.Event) {
	h.mu.RLock()
	targets := append([]*client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	for _, c := range targets {
		c.writeEvent(event)
	}
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID uuid.UUID) {
	channel := "user_updates:" + userID.String()
	pubsub := h.redisPubSub.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Dropping malformed pubsub payload for user %s: %v", userID, err)
				continue
			}
			h.SendToUser(userID, event)
		}
	}
}
