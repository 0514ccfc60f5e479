package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"codybuddy/internal/dto"
	"codybuddy/internal/repository"
	"codybuddy/internal/service"
	"codybuddy/internal/session"
)

// WebSocket tuning shared by hub and client
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Frames carry whole documents.
	maxMessageSize = 512 * 1024

	// Outbound frames buffered per client before it is treated as too slow.
	sendBufferSize = 256

	// Bound on store calls made while handling one event.
	storeTimeout = 10 * time.Second

	// How long a closing connection waits for room in the hub queue before it unregisters
	// itself directly.
	unregisterWait = 1 * time.Second
)

// HubMessage is a lifecycle request passed to the hub loop
type HubMessage struct {
	Type   string // "register", "unregister"
	Client *Client
}

const (
	msgRegister   = "register"
	msgUnregister = "unregister"
)

// Hub routes room events between connected clients.
// Lifecycle messages go through messageChan; room events are handled on the sending
// client's read goroutine, so each connection's events are processed in order.
type Hub struct {
	messageChan chan HubMessage
	quit        chan struct{}
	stopOnce    sync.Once

	clients   map[string]*Client
	clientsMu sync.RWMutex

	registry *session.Registry

	// per-room state; a broadcast and the persistence it triggers happen under the room's
	// lock so every peer and the writer observe one order per room
	rooms sync.Map

	unregisterWait time.Duration

	collabService    *service.CollaborationService
	executionService *service.ExecutionService
	snapshotService  *service.SnapshotService

	limiter    repository.StateRepository
	eventLimit int

	// runsMu orders runs.Add against Stop's runs.Wait
	runsMu  sync.Mutex
	stopped bool
	runs    sync.WaitGroup
}

// roomState serialises one room's broadcasts. The counters tell a joiner whether a
// code-change or language-change reached it while its bootstrap was being loaded.
type roomState struct {
	mu      sync.Mutex
	codeSeq uint64
	langSeq uint64
}

// NewHub creates a Hub. limiter may be nil, which disables per-connection throttling.
func NewHub(
	registry *session.Registry,
	collabService *service.CollaborationService,
	executionService *service.ExecutionService,
	snapshotService *service.SnapshotService,
	limiter repository.StateRepository,
	eventLimit int,
) *Hub {
	if registry == nil {
		panic("Registry cannot be nil for Hub")
	}
	if collabService == nil || executionService == nil || snapshotService == nil {
		panic("All services must be non-nil for Hub")
	}
	return &Hub{
		messageChan:      make(chan HubMessage, 512),
		quit:             make(chan struct{}),
		clients:          make(map[string]*Client),
		registry:         registry,
		collabService:    collabService,
		executionService: executionService,
		snapshotService:  snapshotService,
		limiter:          limiter,
		eventLimit:       eventLimit,
		unregisterWait:   unregisterWait,
	}
}

// Run processes register and unregister requests until Stop is called.
// It should run in its own goroutine.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case msgRegister:
				h.registerClient(msg.Client)
			case msgUnregister:
				h.unregisterClient(msg.Client)
			default:
				log.Warnf("Hub: received unknown message type: %s", msg.Type)
			}
		case <-h.quit:
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop ends the hub loop, closes every client and waits for pending run requests
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)

		h.runsMu.Lock()
		h.stopped = true
		h.runsMu.Unlock()

		h.clientsMu.Lock()
		clients := make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			clients = append(clients, c)
		}
		h.clients = make(map[string]*Client)
		h.clientsMu.Unlock()

		for _, c := range clients {
			h.registry.LeaveAll(c.ID())
			c.close()
			c.CloseConn()
		}
		h.runs.Wait()
		logrus.WithField("clients", len(clients)).Info("Hub stopped")
	})
}

// QueueMessage hands a lifecycle message to the hub loop without blocking.
// It returns false when the queue is full or the hub is stopped.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case <-h.quit:
		return false
	default:
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Register adds the client right away, so it receives broadcasts from its first frame on.
// It returns false once the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.quit:
		return false
	default:
	}
	h.registerClient(c)
	return true
}

// Members returns the connection ids currently in roomID
func (h *Hub) Members(roomID string) []string {
	return h.registry.Members(roomID)
}

func (h *Hub) registerClient(c *Client) {
	if c == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.clientsMu.Lock()
	h.clients[c.ID()] = c
	h.clientsMu.Unlock()
	logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "component": "hub"}).Info("Client registered")
}

// unregisterClient handles a disconnect: userLeft to every room the client was in, then
// the client's queue and pending run requests are shut down.
func (h *Hub) unregisterClient(c *Client) {
	if c == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "component": "hub"})

	h.clientsMu.Lock()
	if _, ok := h.clients[c.ID()]; !ok {
		h.clientsMu.Unlock()
		logCtx.Debug("Client already unregistered")
		return
	}
	delete(h.clients, c.ID())
	h.clientsMu.Unlock()

	rooms := h.registry.LeaveAll(c.ID())
	for _, roomID := range rooms {
		h.broadcast(roomID, c.ID(), dto.EventUserLeft, dto.NewUserLeft(c.ID()), nil)
	}
	c.close()
	logCtx.WithField("rooms", rooms).Info("Client unregistered")
}

func (h *Hub) client(id string) *Client {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return h.clients[id]
}

// requestUnregister hands c to the hub loop. If the loop does not take it in time the
// client is unregistered on the caller's goroutine instead.
func (h *Hub) requestUnregister(c *Client) {
	select {
	case h.messageChan <- HubMessage{Type: msgUnregister, Client: c}:
	case <-h.quit:
	case <-time.After(h.unregisterWait):
		logrus.WithField("conn_id", c.ID()).Warn("Hub queue busy, unregistering client directly")
		h.unregisterClient(c)
	}
}

func (h *Hub) room(roomID string) *roomState {
	room, _ := h.rooms.LoadOrStore(roomID, &roomState{})
	return room.(*roomState)
}

// broadcast sends one event to every member of roomID except exclude, then runs after
// while still holding the room lock.
func (h *Hub) broadcast(roomID, exclude, event string, payload interface{}, after func()) {
	msg, err := dto.Encode(event, payload)
	if err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "event": event}).WithError(err).Error("Failed to encode broadcast")
		return
	}

	room := h.room(roomID)
	room.mu.Lock()
	defer room.mu.Unlock()

	switch event {
	case dto.EventCodeChange:
		room.codeSeq++
	case dto.EventLanguageChange:
		room.langSeq++
	}
	for _, id := range h.registry.Members(roomID) {
		if id == exclude {
			continue
		}
		c := h.client(id)
		if c == nil {
			continue
		}
		h.deliver(c, msg)
	}
	if after != nil {
		after()
	}
}

// deliver queues msg for c. A client whose queue is full is disconnected; it would
// otherwise silently miss edits.
func (h *Hub) deliver(c *Client, msg []byte) {
	if err := c.Send(msg); err != nil {
		if errors.Is(err, errSendBufferFull) {
			logrus.WithField("conn_id", c.ID()).Warn("Client send buffer full, disconnecting slow client")
			c.CloseConn()
		}
	}
}

// reply sends an event to one client
func (h *Hub) reply(c *Client, event string, payload interface{}) {
	msg, err := dto.Encode(event, payload)
	if err != nil {
		logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "event": event}).WithError(err).Error("Failed to encode reply")
		return
	}
	h.deliver(c, msg)
}

func (h *Hub) throttled(c *Client) bool {
	if h.limiter == nil || h.eventLimit <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(c.Context(), time.Second)
	defer cancel()
	exceeded, err := h.limiter.CheckRateLimit(ctx, "conn:"+c.ID(), h.eventLimit, time.Second)
	if err != nil {
		// fail open, throttling is best effort
		logrus.WithField("conn_id", c.ID()).WithError(err).Warn("Event rate limit check failed")
		return false
	}
	return exceeded
}

// HandleMessage decodes one inbound frame and dispatches it. Called on the client's read
// goroutine.
func (h *Hub) HandleMessage(c *Client, raw []byte) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "component": "hub"})

	event, data, err := dto.ParseEnvelope(raw)
	if err != nil {
		logCtx.WithError(err).Warn("Dropping malformed frame")
		h.reply(c, dto.EventError, dto.MessagePayload{Message: "Malformed message."})
		return
	}
	logCtx = logCtx.WithField("event", event)

	if h.throttled(c) {
		logCtx.Warn("Event rate limit exceeded")
		h.reply(c, dto.EventError, dto.MessagePayload{Message: "Too many events, slow down."})
		return
	}

	switch event {
	case dto.EventJoinRoom:
		var req dto.JoinRoomRequest
		if err = dto.Decode(data, &req); err == nil {
			h.onJoin(c, req)
		}
	case dto.EventCodeChange:
		var req dto.CodeChangeRequest
		if err = dto.Decode(data, &req); err == nil {
			h.onCodeChange(c, req)
		}
	case dto.EventLanguageChange:
		var req dto.LanguageChangeRequest
		if err = dto.Decode(data, &req); err == nil {
			h.onLanguageChange(c, req)
		}
	case dto.EventRunCode:
		var req dto.RunCodeRequest
		if req, err = dto.DecodeRunCode(data); err == nil {
			h.onRunCode(c, req)
		}
	case dto.EventSaveSnapshot:
		var req dto.SaveSnapshotRequest
		if err = dto.Decode(data, &req); err == nil {
			h.onSaveSnapshot(c, req)
		}
	case dto.EventGetSnapshots:
		var req dto.GetSnapshotsRequest
		if err = dto.Decode(data, &req); err == nil {
			h.onGetSnapshots(c, req)
		}
	case dto.EventRevertToSnapshot:
		var req dto.RevertToSnapshotRequest
		if err = dto.Decode(data, &req); err == nil {
			h.onRevert(c, req)
		}
	default:
		logCtx.Warn("Ignoring unknown event")
		return
	}

	if err != nil {
		logCtx.WithError(err).Warn("Dropping event with invalid payload")
		h.reply(c, dto.EventError, dto.MessagePayload{Message: "Malformed message."})
	}
}

func (h *Hub) onJoin(c *Client, req dto.JoinRoomRequest) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "room_id": req.RoomID, "operation": "joinRoom"})
	if req.RoomID == "" {
		logCtx.Warn("joinRoom without roomId")
		return
	}

	// 1. membership, taken together with the room's position and its unsaved edits
	room := h.room(req.RoomID)
	room.mu.Lock()
	if !h.registry.Join(c.ID(), req.RoomID) {
		logCtx.Debug("Client re-joined room")
	}
	codeSeq, langSeq := room.codeSeq, room.langSeq
	pending := h.collabService.PendingUpdate(req.RoomID)
	room.mu.Unlock()

	c.setUserName(req.UserName)
	h.broadcast(req.RoomID, c.ID(), dto.EventUserJoined, dto.NewUserJoined(c.ID(), req.UserName), nil)

	// 2. load the document
	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()
	doc, err := h.collabService.JoinRoom(ctx, req.RoomID, pending)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load room state, joiner starts blank")
		return
	}
	if doc == nil {
		return
	}

	// 3. bootstrap, unless a live change already reached the joiner: it is newer than doc
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.codeSeq == codeSeq {
		h.reply(c, dto.EventCodeChange, dto.CodePayload{Code: doc.Content})
	} else {
		logCtx.Debug("Code bootstrap skipped, joiner already has a newer edit")
	}
	if room.langSeq == langSeq {
		h.reply(c, dto.EventLanguageChange, dto.LanguagePayload{Language: doc.Language})
	}
}

func (h *Hub) onCodeChange(c *Client, req dto.CodeChangeRequest) {
	if req.RoomID == "" {
		return
	}
	h.broadcast(req.RoomID, c.ID(), dto.EventCodeChange, dto.CodePayload{Code: req.Code}, func() {
		h.collabService.RecordCodeChange(req.RoomID, req.Code, req.Language)
	})
}

func (h *Hub) onLanguageChange(c *Client, req dto.LanguageChangeRequest) {
	if req.RoomID == "" {
		return
	}
	h.broadcast(req.RoomID, c.ID(), dto.EventLanguageChange, dto.LanguagePayload{Language: req.Language}, func() {
		h.collabService.RecordLanguageChange(req.RoomID, req.Language)
	})
}

// onRunCode executes in the background so a slow provider does not hold up the
// connection's other events. The run is cancelled when the client goes away.
func (h *Hub) onRunCode(c *Client, req dto.RunCodeRequest) {
	h.runsMu.Lock()
	if h.stopped {
		h.runsMu.Unlock()
		return
	}
	h.runs.Add(1)
	h.runsMu.Unlock()
	go func() {
		defer h.runs.Done()
		result, err := h.executionService.Run(c.Context(), req.Code, req.LanguageID)
		if err != nil {
			logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "language_id": req.LanguageID}).WithError(err).Warn("Run request did not produce provider output")
		}
		h.reply(c, dto.EventCodeOutput, result)
	}()
}

func (h *Hub) onSaveSnapshot(c *Client, req dto.SaveSnapshotRequest) {
	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()

	if _, err := h.snapshotService.CreateSnapshot(ctx, req.RoomID, req.Code, req.UserName); err != nil {
		h.reply(c, dto.EventSnapshotError, dto.MessagePayload{Message: service.MsgSnapshotFailed})
		return
	}
	h.reply(c, dto.EventSnapshotSaved, dto.MessagePayload{Message: service.MsgSnapshotSaved})
}

func (h *Hub) onGetSnapshots(c *Client, req dto.GetSnapshotsRequest) {
	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()

	snapshots, err := h.snapshotService.ListSnapshots(ctx, req.RoomID)
	if err != nil {
		h.reply(c, dto.EventSnapshotsError, dto.MessagePayload{Message: service.MsgSnapshotsFailed})
		return
	}
	h.reply(c, dto.EventSnapshotsList, dto.SnapshotsPayload{Snapshots: snapshots})
}

// onRevert broadcasts the snapshot content to the whole room, requester included, and
// persists it as the room's content.
func (h *Hub) onRevert(c *Client, req dto.RevertToSnapshotRequest) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.ID(), "room_id": req.RoomID, "snapshot_id": req.SnapshotID})
	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()

	snapshot, err := h.snapshotService.ResolveRevert(ctx, req.RoomID, req.SnapshotID)
	if err != nil {
		if errors.Is(err, service.ErrSnapshotNotFound) || errors.Is(err, service.ErrInvalidEvent) {
			h.reply(c, dto.EventSnapshotError, dto.MessagePayload{Message: service.MsgSnapshotNotFound})
			return
		}
		h.reply(c, dto.EventSnapshotError, dto.MessagePayload{Message: service.MsgRevertFailed})
		return
	}

	h.broadcast(req.RoomID, "", dto.EventCodeChange, dto.CodePayload{Code: snapshot.Content}, func() {
		h.collabService.RecordRevert(req.RoomID, snapshot.Content)
	})
	h.snapshotService.RecordRevert(ctx, snapshot)
	logCtx.Info("Room reverted to snapshot")
}
