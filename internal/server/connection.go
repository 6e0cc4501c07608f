package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/hacobotdev/kart/internal/engine"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	userID    string
	username  string
	roomID    string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	rooms     *RoomManager
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, rooms *RoomManager) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		rooms:  rooms,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// cleanup releases everything the client held: its room seat (with a
// disconnect notice to the remaining players) and its username claim.
// Called by the server on unregister.
func (c *Connection) cleanup() {
	if roomID := c.GetRoom(); roomID != "" {
		c.rooms.LeaveRoom(roomID, c.GetUserID(), c.GetUser())
	}
	if name := c.GetUser(); name != "" {
		c.rooms.ReleaseUsername(name)
	}
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) setIdentity(userID, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.username = username
}

func (c *Connection) setUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

// GetUserID returns the stable participant id supplied at lobby join.
func (c *Connection) GetUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// GetUser returns the display name, or "" before lobby join.
func (c *Connection) GetUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// SetRoom associates this connection with a room
func (c *Connection) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoom returns the associated room ID
func (c *Connection) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetUser())

	switch msg.Type {
	case MessageTypeJoinLobby:
		var data JoinLobbyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join lobby data")
			return
		}
		c.handleJoinLobby(data)

	case MessageTypeUpdateUsername:
		var data UpdateUsernameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse username data")
			return
		}
		c.handleUpdateUsername(data)

	case MessageTypeListRooms:
		c.handleListRooms()

	case MessageTypeCreateRoom:
		c.handleCreateRoom()

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join room data")
			return
		}
		c.handleJoinRoom(data)

	case MessageTypeLeaveRoom:
		c.handleLeaveRoom()

	case MessageTypeStartGame:
		var data RoomRefData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start game data")
			return
		}
		c.handleStart(data.RoomID, false)

	case MessageTypeRestartGame:
		var data RoomRefData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse restart game data")
			return
		}
		c.handleStart(data.RoomID, true)

	case MessageTypeTerminateRoom:
		var data RoomRefData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse terminate data")
			return
		}
		c.handleTerminate(data.RoomID)

	case MessageTypeGameAction:
		var data GameActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse game action data")
			return
		}
		c.handleGameAction(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

func (c *Connection) requireAuth() bool {
	if c.GetUser() == "" {
		c.sendError("not_authenticated", "Join the lobby first")
		return false
	}
	return true
}

func (c *Connection) handleJoinLobby(data JoinLobbyData) {
	c.logger.Info("Lobby join request", "username", data.Username, "userId", data.UserID)

	if data.UserID == "" {
		c.sendError("invalid_auth", "User id required")
		return
	}
	if err := c.rooms.ClaimUsername(data.Username); err != nil {
		c.sendError("username_taken", err.Error())
		return
	}

	c.setIdentity(data.UserID, data.Username)

	joined, _ := NewMessage(MessageTypeLobbyJoined, nil)
	_ = c.SendMessage(joined)
	c.sendRoomList()
}

func (c *Connection) handleUpdateUsername(data UpdateUsernameData) {
	if !c.requireAuth() {
		return
	}

	oldName := c.GetUser()
	if err := c.rooms.RenameUser(oldName, data.Username); err != nil {
		c.sendError("username_taken", err.Error())
		return
	}
	c.setUsername(data.Username)

	// Refresh the display name inside any game the user is seated in.
	// AddPlayer on an existing id is a pure rename and works mid-game.
	if roomID := c.GetRoom(); roomID != "" {
		if room, ok := c.rooms.GetRoom(roomID); ok {
			room.Join(c.GetUserID(), data.Username)
		}
	}

	c.logger.Info("Username updated", "old", oldName, "new", data.Username)
	response, _ := NewMessage(MessageTypeUsernameUpdated, UsernameUpdatedData{Username: data.Username})
	_ = c.SendMessage(response)
}

func (c *Connection) handleListRooms() {
	if !c.requireAuth() {
		return
	}
	c.sendRoomList()
}

func (c *Connection) sendRoomList() {
	msg, _ := NewMessage(MessageTypeRoomList, RoomListData{Rooms: c.rooms.ListRooms()})
	_ = c.SendMessage(msg)
}

func (c *Connection) handleCreateRoom() {
	if !c.requireAuth() {
		return
	}
	if c.GetRoom() != "" {
		c.sendError("already_in_room", "Leave your current room first")
		return
	}

	room := c.rooms.CreateRoom(c.GetUserID())
	c.SetRoom(room.ID)
	room.Join(c.GetUserID(), c.GetUser())
	c.rooms.AnnounceRooms()

	response, _ := NewMessage(MessageTypeRoomJoined, RoomJoinedData{RoomID: room.ID, IsHost: true})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinRoom(data JoinRoomData) {
	if !c.requireAuth() {
		return
	}

	room, ok := c.rooms.GetRoom(data.RoomID)
	if !ok {
		c.sendError("room_not_found", "Room not found")
		return
	}

	// Reconnection: a seated id may rejoin even after the race started.
	reconnecting := room.HasPlayer(c.GetUserID())
	if !room.IsJoinable() && !reconnecting {
		c.sendError("game_started", "Game already started")
		return
	}

	c.SetRoom(room.ID)
	if !room.Join(c.GetUserID(), c.GetUser()) {
		c.SetRoom("")
		c.sendError("room_full", "Room is full")
		return
	}
	c.rooms.AnnounceRooms()

	response, _ := NewMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomID: room.ID,
		IsHost: room.HostID() == c.GetUserID(),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaveRoom() {
	if !c.requireAuth() {
		return
	}
	roomID := c.GetRoom()
	if roomID == "" {
		return
	}
	c.rooms.LeaveRoom(roomID, c.GetUserID(), c.GetUser())
	c.SetRoom("")
}

func (c *Connection) handleStart(roomID string, restart bool) {
	if !c.requireAuth() {
		return
	}

	room, ok := c.rooms.GetRoom(roomID)
	if !ok {
		c.sendError("room_not_found", "Room not found")
		return
	}
	if err := room.Start(c.GetUserID(), restart); err != nil {
		c.sendError("start_failed", err.Error())
	}
}

func (c *Connection) handleTerminate(roomID string) {
	if !c.requireAuth() {
		return
	}
	if err := c.rooms.TerminateRoom(roomID, c.GetUserID()); err != nil {
		c.sendError("terminate_failed", err.Error())
	}
}

func (c *Connection) handleGameAction(data GameActionData) {
	if !c.requireAuth() {
		return
	}

	room, ok := c.rooms.GetRoom(data.RoomID)
	if !ok {
		c.sendError("room_not_found", "Room not found")
		return
	}

	err := room.HandleAction(c.GetUserID(), engine.Action{
		Kind:      data.Action,
		Character: data.Character,
	})
	if err != nil {
		// Typed engine errors carry player-safe messages; the code
		// tells the client which precondition was violated.
		c.sendError(actionErrorCode(err), err.Error())
	}
}

func actionErrorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, engine.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, engine.ErrCharacterUnavailable):
		return "character_unavailable"
	case errors.Is(err, engine.ErrInvalidPhase):
		return "invalid_action"
	default:
		return "action_failed"
	}
}
