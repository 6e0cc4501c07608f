package server

import (
	"encoding/json"
	"time"

	"github.com/hacobotdev/kart/internal/engine"
)

// Message is the base WebSocket message structure. Payloads ride in
// Data as raw JSON and are decoded per message type.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var dataBytes json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		dataBytes = b
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type JoinLobbyData struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

type UpdateUsernameData struct {
	Username string `json:"username"`
}

type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

type RoomRefData struct {
	RoomID string `json:"roomId"`
}

type GameActionData struct {
	RoomID    string            `json:"roomId"`
	Action    engine.ActionKind `json:"action"`
	Character string            `json:"character,omitempty"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type UsernameUpdatedData struct {
	Username string `json:"username"`
}

// RoomInfo is the lobby-facing summary of a joinable room.
type RoomInfo struct {
	ID          string `json:"id"`
	PlayerCount int    `json:"playerCount"`
}

type RoomListData struct {
	Rooms []RoomInfo `json:"rooms"`
}

type RoomJoinedData struct {
	RoomID string `json:"roomId"`
	IsHost bool   `json:"isHost"`
}

// GameUpdateData wraps the engine's public snapshot for broadcast.
// The snapshot is the engine's whole contract with clients; the server
// adds nothing beyond the room id.
type GameUpdateData struct {
	RoomID string `json:"roomId"`
	engine.Snapshot
}
