package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/hacobotdev/kart/internal/engine"
)

// Broadcaster fans messages out to connected clients. Implemented by
// the websocket Server; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msg *Message)
	BroadcastLobby(msg *Message)
}

// Room hosts one engine. It serializes all engine access behind a
// mutex (the engine holds no locking of its own), fans the public
// snapshot out after every successful mutation, and optionally forces
// the turn along when the current player sits idle too long. The
// deadline lives here and never inside the engine.
type Room struct {
	ID string

	mu          sync.Mutex
	eng         *engine.Engine
	bcast       Broadcaster
	logger      *log.Logger
	clock       quartz.Clock
	turnTimeout time.Duration
	timer       *quartz.Timer
	turnSeq     int // bumped on every mutation; stale deadline fires check it
	closed      bool
}

// NewRoom wraps an engine for hosting. A turnTimeout of zero disables
// the per-turn deadline entirely.
func NewRoom(id string, eng *engine.Engine, bcast Broadcaster, clock quartz.Clock, turnTimeout time.Duration, logger *log.Logger) *Room {
	return &Room{
		ID:          id,
		eng:         eng,
		bcast:       bcast,
		logger:      logger.WithPrefix("room").With("room", id),
		clock:       clock,
		turnTimeout: turnTimeout,
	}
}

// HostID returns the privileged participant's id.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng.HostID()
}

// IsJoinable reports whether the room shows up in the lobby list.
func (r *Room) IsJoinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng.Phase() == engine.PhaseWaiting
}

// PlayerCount returns the number of players in the room.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng.PlayerCount()
}

// HasPlayer reports whether the id is already seated, which is how
// reconnections into a started game are recognised.
func (r *Room) HasPlayer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.eng.Snapshot().Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Snapshot returns the current public view.
func (r *Room) Snapshot() engine.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eng.Snapshot()
}

// Join seats a player (or refreshes their name on reconnect) and
// broadcasts the updated state on success.
func (r *Room) Join(playerID, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.eng.AddPlayer(playerID, name) {
		return false
	}
	r.turnSeq++
	r.broadcastStateLocked(nil)
	return true
}

// Leave removes a player and reports whether the room is now empty.
// The caller (the room manager) destroys empty rooms.
func (r *Room) Leave(playerID, name string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.eng.RemovePlayer(playerID) {
		return false, r.eng.PlayerCount() == 0
	}
	r.turnSeq++
	if r.eng.PlayerCount() == 0 {
		r.stopTimerLocked()
		return true, true
	}
	r.broadcastStateLocked(&engine.LogEntry{
		Kind:    engine.LogInfo,
		Message: fmt.Sprintf("%s disconnected", name),
	})
	return true, false
}

// Start begins or restarts the game. Only the host may do either; a
// restart discards all race progress by design.
func (r *Room) Start(byID string, restart bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if byID != r.eng.HostID() {
		return fmt.Errorf("only the host can start the game")
	}
	if err := r.eng.Start(); err != nil {
		return err
	}
	r.turnSeq++

	started, _ := NewMessage(MessageTypeGameStarted, RoomRefData{RoomID: r.ID})
	r.bcast.BroadcastToRoom(r.ID, started)

	var entry *engine.LogEntry
	if restart {
		entry = &engine.LogEntry{Kind: engine.LogInfo, Message: "Game restarted by the host"}
	}
	r.broadcastStateLocked(entry)
	return nil
}

// HandleAction applies one game action. On success the new snapshot
// and the action's log line are broadcast to the whole room; on error
// nothing is broadcast and the typed engine error goes back to the
// offending sender alone.
func (r *Room) HandleAction(playerID string, act engine.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.eng.Apply(playerID, act)
	if err != nil {
		return err
	}
	r.turnSeq++
	r.broadcastStateLocked(&res.Log)
	return nil
}

// Close stops the turn deadline timer. Called when the room is
// destroyed.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.stopTimerLocked()
}

// broadcastStateLocked fans out the snapshot plus an optional log line
// and re-arms the turn deadline. Callers hold r.mu.
func (r *Room) broadcastStateLocked(entry *engine.LogEntry) {
	snap := r.eng.Snapshot()
	update, err := NewMessage(MessageTypeGameUpdate, GameUpdateData{RoomID: r.ID, Snapshot: snap})
	if err != nil {
		r.logger.Error("Failed to encode game update", "error", err)
		return
	}
	r.bcast.BroadcastToRoom(r.ID, update)

	if entry != nil {
		logMsg, _ := NewMessage(MessageTypeGameLog, entry)
		r.bcast.BroadcastToRoom(r.ID, logMsg)
	}

	r.armDeadlineLocked(snap)
}

// armDeadlineLocked schedules a forced action for the current player.
// A sequence number taken under the lock invalidates the fire if any
// other mutation lands first.
func (r *Room) armDeadlineLocked(snap engine.Snapshot) {
	r.stopTimerLocked()
	if r.closed || r.turnTimeout <= 0 || snap.Phase != engine.PhasePlaying {
		return
	}

	seq := r.turnSeq
	r.timer = r.clock.AfterFunc(r.turnTimeout, func() {
		r.forceTurn(seq)
	})
}

// forceTurn rolls or skips on behalf of a player who ran out their
// turn clock. It re-checks under the lock that the turn it was armed
// for is still pending.
func (r *Room) forceTurn(seq int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || seq != r.turnSeq {
		return
	}

	playerID := r.eng.CurrentPlayerID()
	if playerID == "" {
		return
	}

	act := engine.Action{Kind: engine.ActionRollDice}
	if r.eng.Turn() == engine.TurnUseItem {
		act.Kind = engine.ActionSkipItem
	}

	res, err := r.eng.Apply(playerID, act)
	if err != nil {
		r.logger.Error("Forced turn action failed", "player", playerID, "error", err)
		return
	}
	r.turnSeq++
	r.logger.Info("Turn forced after timeout", "player", playerID, "action", act.Kind)
	r.broadcastStateLocked(&res.Log)
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
