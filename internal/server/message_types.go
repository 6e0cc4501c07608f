package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants used by the client-server protocol
const (
	// Client to server messages
	MessageTypeJoinLobby      MessageType = "join_lobby"
	MessageTypeUpdateUsername MessageType = "update_username"
	MessageTypeListRooms      MessageType = "list_rooms"
	MessageTypeCreateRoom     MessageType = "create_room"
	MessageTypeJoinRoom       MessageType = "join_room"
	MessageTypeLeaveRoom      MessageType = "leave_room"
	MessageTypeStartGame      MessageType = "start_game"
	MessageTypeRestartGame    MessageType = "restart_game"
	MessageTypeTerminateRoom  MessageType = "terminate_room"
	MessageTypeGameAction     MessageType = "game_action"

	// Server to client messages
	MessageTypeLobbyJoined     MessageType = "lobby_joined"
	MessageTypeUsernameUpdated MessageType = "username_updated"
	MessageTypeRoomList        MessageType = "room_list"
	MessageTypeRoomJoined      MessageType = "room_joined"
	MessageTypeRoomTerminated  MessageType = "room_terminated"
	MessageTypeGameStarted     MessageType = "game_started"
	MessageTypeGameUpdate      MessageType = "game_update"
	MessageTypeGameLog         MessageType = "game_log"
	MessageTypeError           MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
