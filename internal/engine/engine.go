package engine

import (
	"fmt"
	rand "math/rand/v2"
)

// Phase is the coarse lifecycle stage of a room.
type Phase string

const (
	PhaseWaiting             Phase = "waiting"
	PhaseSelectingCharacters Phase = "selecting_characters"
	PhasePlaying             Phase = "playing"
	PhaseEnded               Phase = "game_end"
)

// TurnState is the sub-phase within the current player's turn. It is
// only meaningful while the room is in PhasePlaying.
type TurnState string

const (
	TurnRoll    TurnState = "roll"
	TurnUseItem TurnState = "use_item"
)

// ActionKind names a player-initiated action.
type ActionKind string

const (
	ActionSelectCharacter ActionKind = "select_character"
	ActionRollDice        ActionKind = "roll_dice"
	ActionUseItem         ActionKind = "use_item"
	ActionSkipItem        ActionKind = "skip_item"
)

// Action is one inbound action attributed to a player.
type Action struct {
	Kind      ActionKind `json:"action"`
	Character string     `json:"character,omitempty"` // select_character only
}

// LogKind classifies a log entry for presentation.
type LogKind string

const (
	LogInfo LogKind = "info"
	LogItem LogKind = "item"
)

// LogEntry is a human-readable line describing what an action did,
// suitable for broadcast to the whole room.
type LogEntry struct {
	Kind    LogKind `json:"type"`
	Message string  `json:"message"`
}

// Result is the outcome of a successfully applied action.
type Result struct {
	Log LogEntry
}

// Engine owns the full game state of one room. It is purely
// synchronous and performs no I/O; callers serialize access.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	hostID  string
	phase   Phase
	turn    TurnState
	players []*Player
	current int
	claimed map[string]bool // characters taken this game
	dice    [2]int
	winners []*Player // finishing order
}

// New creates an engine with the given rules and random source. The
// config is copied so concurrent rooms never share slices.
func New(cfg Config, rng *rand.Rand) *Engine {
	return &Engine{
		cfg:     cfg.clone(),
		rng:     rng,
		phase:   PhaseWaiting,
		turn:    TurnRoll,
		claimed: make(map[string]bool),
	}
}

// SetHost records the privileged participant. Set once at room
// creation and never reassigned; the engine itself does not enforce
// host privileges, the hosting layer does.
func (e *Engine) SetHost(id string) {
	if e.hostID == "" {
		e.hostID = id
	}
}

// HostID returns the privileged participant's id.
func (e *Engine) HostID() string { return e.hostID }

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase { return e.phase }

// Turn returns the current turn sub-phase.
func (e *Engine) Turn() TurnState { return e.turn }

// PlayerCount returns the number of players in the room.
func (e *Engine) PlayerCount() int { return len(e.players) }

// CurrentPlayerID returns the id of the player whose turn it is, or ""
// when the room is empty.
func (e *Engine) CurrentPlayerID() string {
	if len(e.players) == 0 {
		return ""
	}
	return e.players[e.current].ID
}

// AddPlayer adds a participant. If the id is already present only the
// display name is updated, which is how reconnection with a renamed
// client works, and that succeeds in any phase. A genuinely new player
// is only admitted while waiting and under the player cap. Returns
// false otherwise; the caller decides how to surface that.
func (e *Engine) AddPlayer(id, name string) bool {
	if p := e.find(id); p != nil {
		p.Name = name
		return true
	}
	if e.phase != PhaseWaiting || len(e.players) >= e.cfg.MaxPlayers {
		return false
	}
	e.players = append(e.players, newPlayer(id, name))
	e.updateRankings()
	return true
}

// RemovePlayer removes a participant if present, releasing their
// character claim. Emptying the room resets the phase to waiting.
// Otherwise the current index is clamped with a modulo, which can
// silently shift whose turn it is when a player earlier in the
// rotation leaves mid-game. Known quirk; what the turn should do on
// mid-game departure is still an open product question.
func (e *Engine) RemovePlayer(id string) bool {
	idx := -1
	for i, p := range e.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	if c := e.players[idx].Character; c != "" {
		delete(e.claimed, c)
	}
	e.players = append(e.players[:idx], e.players[idx+1:]...)

	if len(e.players) == 0 {
		e.phase = PhaseWaiting
		return true
	}
	e.current = e.current % len(e.players)
	e.updateRankings()
	return true
}

// Start transitions the room into character selection. It doubles as
// restart: invoked from any later phase it discards all in-progress
// race state (positions, laps, items, winners) and re-runs the same
// reset. There is no resume path.
func (e *Engine) Start() error {
	if len(e.players) == 0 {
		return fmt.Errorf("%w: cannot start an empty room", ErrInvalidPhase)
	}
	e.phase = PhaseSelectingCharacters
	e.turn = TurnRoll
	e.current = 0
	e.dice = [2]int{}
	e.winners = nil
	clear(e.claimed)
	for _, p := range e.players {
		p.resetForStart()
	}
	return nil
}

// Apply validates and executes one action attributed to playerID.
// Validation always precedes mutation: on error the engine state is
// exactly as it was before the call.
func (e *Engine) Apply(playerID string, act Action) (Result, error) {
	p := e.find(playerID)
	if p == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}

	switch e.phase {
	case PhaseSelectingCharacters:
		if act.Kind == ActionSelectCharacter {
			return e.selectCharacter(p, act.Character)
		}

	case PhasePlaying:
		if e.players[e.current].ID != playerID {
			return Result{}, ErrNotYourTurn
		}
		switch act.Kind {
		case ActionRollDice:
			return e.rollDice(p)
		case ActionUseItem:
			return e.useItem(p)
		case ActionSkipItem:
			return e.skipItem(p)
		}
	}

	return Result{}, fmt.Errorf("%w: %s during %s", ErrInvalidPhase, act.Kind, e.phase)
}

// selectCharacter claims a roster character for p. Any player may act
// in any order during selection. Once every player holds a character
// the race begins immediately.
func (e *Engine) selectCharacter(p *Player, character string) (Result, error) {
	if p.Character != "" {
		return Result{}, fmt.Errorf("%w: you already picked %s", ErrCharacterUnavailable, p.Character)
	}
	if !e.cfg.hasCharacter(character) {
		return Result{}, fmt.Errorf("%w: unknown character %q", ErrCharacterUnavailable, character)
	}
	if e.claimed[character] {
		return Result{}, fmt.Errorf("%w: %s is already taken", ErrCharacterUnavailable, character)
	}

	p.Character = character
	e.claimed[character] = true

	if e.allSelected() {
		e.phase = PhasePlaying
		e.current = 0
		e.turn = TurnRoll
		e.updateRankings()
	}

	return infoResult("%s picked %s", p.Name, p.Character), nil
}

func (e *Engine) rollDice(p *Player) (Result, error) {
	if e.turn != TurnRoll {
		return Result{}, fmt.Errorf("%w: you already rolled", ErrInvalidPhase)
	}

	d1 := e.rng.IntN(6) + 1
	d2 := e.rng.IntN(6) + 1
	total := d1 + d2
	e.dice = [2]int{d1, d2}

	p.lastPosition = p.Position
	e.moveForward(p, total)

	// Always hand over to the item sub-phase, even with no item held;
	// the player ends the turn explicitly either way.
	e.turn = TurnUseItem

	return infoResult("%s rolled %d+%d=%d and advanced to space %d", p.Name, d1, d2, total, p.Position), nil
}

// useItem resolves the held item and ends the turn. With nothing held
// it degrades to a plain end of turn.
func (e *Engine) useItem(p *Player) (Result, error) {
	if e.turn != TurnUseItem {
		return Result{}, fmt.Errorf("%w: roll before using an item", ErrInvalidPhase)
	}
	if p.Item == ItemNone {
		e.endTurn()
		return infoResult("%s ended their turn", p.Name), nil
	}

	msg := e.resolveItem(p, p.Item)
	p.Item = ItemNone
	e.endTurn()
	return Result{Log: LogEntry{Kind: LogItem, Message: msg}}, nil
}

// skipItem ends the turn without using the held item. Unlike useItem
// with an empty slot, a held item stays held for a future turn.
func (e *Engine) skipItem(p *Player) (Result, error) {
	if e.turn != TurnUseItem {
		return Result{}, fmt.Errorf("%w: roll before ending your turn", ErrInvalidPhase)
	}
	e.endTurn()
	return infoResult("%s ended their turn", p.Name), nil
}

// endTurn advances to the next unfinished player, walking at most one
// full rotation. Immunity expires at the start of its holder's own
// next turn, so it is cleared on the newly current player. If only
// finished players remain the race is over.
func (e *Engine) endTurn() {
	e.current = (e.current + 1) % len(e.players)
	count := 0
	for e.players[e.current].Finished && count < len(e.players) {
		e.current = (e.current + 1) % len(e.players)
		count++
	}

	if count < len(e.players) {
		e.players[e.current].Immune = false
		e.turn = TurnRoll
	} else {
		e.phase = PhaseEnded
	}
}

func (e *Engine) find(id string) *Player {
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (e *Engine) allSelected() bool {
	for _, p := range e.players {
		if p.Character == "" {
			return false
		}
	}
	return true
}

func (e *Engine) allFinished() bool {
	for _, p := range e.players {
		if !p.Finished {
			return false
		}
	}
	return true
}

func infoResult(format string, args ...any) Result {
	return Result{Log: LogEntry{Kind: LogInfo, Message: fmt.Sprintf(format, args...)}}
}
