package server

import (
	"fmt"
	rand "math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/hacobotdev/kart/internal/engine"
	"github.com/hacobotdev/kart/internal/randutil"
)

// RoomManager owns the room registry and the lobby username registry.
// Rooms are created on demand, destroyed when their last player leaves
// or the host terminates them, and listed to the lobby while still
// joinable.
type RoomManager struct {
	logger      *log.Logger
	bcast       Broadcaster
	clock       quartz.Clock
	rules       engine.Config
	turnTimeout time.Duration

	mu        sync.Mutex
	rng       *rand.Rand // seeds per-room engines
	rooms     map[string]*Room
	usernames map[string]bool // lowercased, for case-insensitive uniqueness
	counter   int
}

// NewRoomManager constructs an empty registry. The rng seeds each
// room's engine so a seeded manager replays identical games.
func NewRoomManager(rules engine.Config, turnTimeout time.Duration, bcast Broadcaster, clock quartz.Clock, rng *rand.Rand, logger *log.Logger) *RoomManager {
	return &RoomManager{
		logger:      logger.WithPrefix("rooms"),
		bcast:       bcast,
		clock:       clock,
		rules:       rules,
		turnTimeout: turnTimeout,
		rng:         rng,
		rooms:       make(map[string]*Room),
		usernames:   make(map[string]bool),
	}
}

// ValidateUsername applies the lobby naming rules: 3-12 characters,
// no whitespace.
func ValidateUsername(name string) error {
	if len(name) < 3 || len(name) > 12 {
		return fmt.Errorf("username must be between 3 and 12 characters")
	}
	for _, r := range name {
		if unicode.IsSpace(r) {
			return fmt.Errorf("username cannot contain spaces")
		}
	}
	return nil
}

// ClaimUsername reserves a username case-insensitively.
func (m *RoomManager) ClaimUsername(name string) error {
	if err := ValidateUsername(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	lower := strings.ToLower(name)
	if m.usernames[lower] {
		return fmt.Errorf("username already registered")
	}
	m.usernames[lower] = true
	return nil
}

// ReleaseUsername frees a previously claimed username.
func (m *RoomManager) ReleaseUsername(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.usernames, strings.ToLower(name))
}

// RenameUser swaps one claimed username for another, atomically.
func (m *RoomManager) RenameUser(oldName, newName string) error {
	if err := ValidateUsername(newName); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerOld := strings.ToLower(oldName)
	lowerNew := strings.ToLower(newName)
	if lowerNew != lowerOld && m.usernames[lowerNew] {
		return fmt.Errorf("username already registered")
	}
	delete(m.usernames, lowerOld)
	m.usernames[lowerNew] = true
	return nil
}

// CreateRoom makes a new room with the creator as host. The caller
// seats the host (so its connection is already tagged with the room id
// and receives the first state broadcast) and then announces the
// lobby list via AnnounceRooms.
func (m *RoomManager) CreateRoom(hostID string) *Room {
	m.mu.Lock()
	m.counter++
	id := fmt.Sprintf("Room #%d", m.counter)
	eng := engine.New(m.rules, randutil.New(m.rng.Int64()))
	eng.SetHost(hostID)
	room := NewRoom(id, eng, m.bcast, m.clock, m.turnTimeout, m.logger)
	m.rooms[id] = room
	m.mu.Unlock()

	m.logger.Info("Room created", "room", id, "host", hostID)
	return room
}

// AnnounceRooms pushes the current joinable-room list to the lobby.
func (m *RoomManager) AnnounceRooms() {
	m.broadcastRoomList()
}

// GetRoom retrieves a room by id.
func (m *RoomManager) GetRoom(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	return room, ok
}

// LeaveRoom removes a player from a room, destroying the room if it
// empties, and refreshes the lobby list either way.
func (m *RoomManager) LeaveRoom(roomID, playerID, name string) {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return
	}

	_, empty := room.Leave(playerID, name)
	if empty {
		m.destroyRoom(roomID)
		m.logger.Info("Room destroyed, last player left", "room", roomID)
	}
	m.broadcastRoomList()
}

// TerminateRoom lets the host tear a room down. Everyone in it is told
// to return to the lobby.
func (m *RoomManager) TerminateRoom(roomID, byID string) error {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return fmt.Errorf("room not found")
	}
	if room.HostID() != byID {
		return fmt.Errorf("only the host can end the session")
	}

	terminated, _ := NewMessage(MessageTypeRoomTerminated, RoomRefData{RoomID: roomID})
	m.bcast.BroadcastToRoom(roomID, terminated)

	m.destroyRoom(roomID)
	m.logger.Info("Room terminated by host", "room", roomID)
	m.broadcastRoomList()
	return nil
}

// ListRooms returns lobby summaries for rooms still accepting players.
func (m *RoomManager) ListRooms() []RoomInfo {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.Unlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		if room.IsJoinable() {
			infos = append(infos, RoomInfo{ID: room.ID, PlayerCount: room.PlayerCount()})
		}
	}
	// "Room #2" sorts before "Room #10": compare by length first.
	slices.SortFunc(infos, func(a, b RoomInfo) int {
		if len(a.ID) != len(b.ID) {
			return len(a.ID) - len(b.ID)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return infos
}

// broadcastRoomList pushes the joinable-room list to the whole lobby.
func (m *RoomManager) broadcastRoomList() {
	msg, err := NewMessage(MessageTypeRoomList, RoomListData{Rooms: m.ListRooms()})
	if err != nil {
		m.logger.Error("Failed to encode room list", "error", err)
		return
	}
	m.bcast.BroadcastLobby(msg)
}

func (m *RoomManager) destroyRoom(id string) {
	m.mu.Lock()
	room, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()
	if ok {
		room.Close()
	}
}
