package engine

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/hacobotdev/kart/internal/randutil"
)

// newRaceEngine builds an engine with the given players, started and
// with characters selected, so it sits at the first player's roll.
func newRaceEngine(t *testing.T, seed int64, names ...string) *Engine {
	t.Helper()
	e := New(DefaultConfig(), randutil.New(seed))
	for i, name := range names {
		if !e.AddPlayer(fmt.Sprintf("p%d", i+1), name) {
			t.Fatalf("failed to add player %s", name)
		}
	}
	if err := e.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, p := range e.players {
		_, err := e.Apply(p.ID, Action{Kind: ActionSelectCharacter, Character: e.cfg.Characters[i]})
		if err != nil {
			t.Fatalf("select character for %s: %v", p.Name, err)
		}
	}
	if e.phase != PhasePlaying {
		t.Fatalf("expected playing phase after selection, got %s", e.phase)
	}
	return e
}

func TestAddPlayer(t *testing.T) {
	t.Parallel()
	e := New(DefaultConfig(), randutil.New(1))

	if !e.AddPlayer("p1", "Alice") {
		t.Fatal("first join should succeed")
	}
	if e.PlayerCount() != 1 {
		t.Fatalf("expected 1 player, got %d", e.PlayerCount())
	}

	// Same id again is a rename, not a second seat
	if !e.AddPlayer("p1", "Alicia") {
		t.Fatal("rejoin with existing id should succeed")
	}
	if e.PlayerCount() != 1 {
		t.Fatalf("rejoin duplicated the player: %d", e.PlayerCount())
	}
	if e.players[0].Name != "Alicia" {
		t.Fatalf("rejoin should update name, got %s", e.players[0].Name)
	}
}

func TestAddPlayerCapAndPhase(t *testing.T) {
	t.Parallel()
	e := New(DefaultConfig(), randutil.New(1))

	for i := 0; i < 10; i++ {
		if !e.AddPlayer(fmt.Sprintf("p%d", i), "x") {
			t.Fatalf("player %d should fit", i)
		}
	}
	if e.AddPlayer("p10", "overflow") {
		t.Fatal("11th player should be rejected")
	}

	e2 := New(DefaultConfig(), randutil.New(1))
	e2.AddPlayer("p1", "Alice")
	if err := e2.Start(); err != nil {
		t.Fatal(err)
	}
	if e2.AddPlayer("late", "Bob") {
		t.Fatal("new players cannot join after the room leaves waiting")
	}
	// An existing id can still rejoin mid-game
	if !e2.AddPlayer("p1", "Alice2") {
		t.Fatal("reconnection should work in any phase")
	}
}

func TestStartRequiresPlayers(t *testing.T) {
	t.Parallel()
	e := New(DefaultConfig(), randutil.New(1))
	if err := e.Start(); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestRestartResetsEverything(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 3, "Alice", "Bob")

	// Give the race some progress
	p1, p2 := e.players[0], e.players[1]
	e.moveForward(p1, 30)
	p1.Item = ItemStar
	p1.Immune = true
	p2.Lap = 4
	p2.Finished = true
	e.winners = append(e.winners, p2)

	if err := e.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}

	if e.phase != PhaseSelectingCharacters {
		t.Fatalf("restart should re-enter character select, got %s", e.phase)
	}
	if len(e.winners) != 0 {
		t.Fatal("restart should clear winners")
	}
	if len(e.claimed) != 0 {
		t.Fatal("restart should release all characters")
	}
	for _, p := range e.players {
		if p.Position != 0 || p.Lap != 1 || p.Item != ItemNone || p.Immune || p.Finished || p.Character != "" {
			t.Fatalf("player %s not fully reset: %+v", p.Name, p)
		}
	}
}

func TestCharacterSelection(t *testing.T) {
	t.Parallel()
	e := New(DefaultConfig(), randutil.New(1))
	e.AddPlayer("p1", "Alice")
	e.AddPlayer("p2", "Bob")
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	// Selecting is not valid before Start — fresh engine
	pre := New(DefaultConfig(), randutil.New(1))
	pre.AddPlayer("p1", "Alice")
	if _, err := pre.Apply("p1", Action{Kind: ActionSelectCharacter, Character: "Mario"}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase while waiting, got %v", err)
	}

	if _, err := e.Apply("ghost", Action{Kind: ActionSelectCharacter, Character: "Mario"}); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := e.Apply("p1", Action{Kind: ActionSelectCharacter, Character: "Waluigi"}); !errors.Is(err, ErrCharacterUnavailable) {
		t.Fatalf("unknown character should fail, got %v", err)
	}

	res, err := e.Apply("p1", Action{Kind: ActionSelectCharacter, Character: "Mario"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Log.Message != "Alice picked Mario" {
		t.Fatalf("unexpected log: %q", res.Log.Message)
	}

	if _, err := e.Apply("p2", Action{Kind: ActionSelectCharacter, Character: "Mario"}); !errors.Is(err, ErrCharacterUnavailable) {
		t.Fatalf("claimed character should fail, got %v", err)
	}
	if _, err := e.Apply("p1", Action{Kind: ActionSelectCharacter, Character: "Luigi"}); !errors.Is(err, ErrCharacterUnavailable) {
		t.Fatalf("second pick by same player should fail, got %v", err)
	}
	if e.phase != PhaseSelectingCharacters {
		t.Fatal("phase should not advance until everyone picked")
	}

	if _, err := e.Apply("p2", Action{Kind: ActionSelectCharacter, Character: "Yoshi"}); err != nil {
		t.Fatal(err)
	}
	if e.phase != PhasePlaying {
		t.Fatalf("all picked, expected playing, got %s", e.phase)
	}
	if e.current != 0 || e.turn != TurnRoll {
		t.Fatal("race should open on player 0's roll")
	}
	for _, p := range e.players {
		if p.Rank == 0 {
			t.Fatal("rankings should be computed when the race starts")
		}
	}
}

func TestTurnOwnership(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 5, "Alice", "Bob")

	if _, err := e.Apply("p2", Action{Kind: ActionRollDice}); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	// use_item before rolling is a turn-state violation
	if _, err := e.Apply("p1", Action{Kind: ActionUseItem}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
	// selecting a character mid-race is a phase violation
	if _, err := e.Apply("p1", Action{Kind: ActionSelectCharacter, Character: "Toad"}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestRollDice(t *testing.T) {
	t.Parallel()
	const seed = 11
	e := newRaceEngine(t, seed, "Alice", "Bob")

	// Mirror the engine's RNG to predict the dice exactly
	mirror := randutil.New(seed)
	d1 := mirror.IntN(6) + 1
	d2 := mirror.IntN(6) + 1

	res, err := e.Apply("p1", Action{Kind: ActionRollDice})
	if err != nil {
		t.Fatal(err)
	}

	if e.dice != [2]int{d1, d2} {
		t.Fatalf("dice mismatch: engine %v, mirror [%d %d]", e.dice, d1, d2)
	}
	if got := e.players[0].Position; got != d1+d2 {
		t.Fatalf("expected position %d, got %d", d1+d2, got)
	}
	if e.turn != TurnUseItem {
		t.Fatal("roll should hand over to the item sub-phase")
	}
	want := fmt.Sprintf("Alice rolled %d+%d=%d and advanced to space %d", d1, d2, d1+d2, d1+d2)
	if res.Log.Message != want {
		t.Fatalf("log mismatch:\n got %q\nwant %q", res.Log.Message, want)
	}

	// Rolling twice is rejected
	if _, err := e.Apply("p1", Action{Kind: ActionRollDice}); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase on double roll, got %v", err)
	}
}

func TestUseItemWithoutItemEndsTurn(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob")
	e.turn = TurnUseItem
	e.players[0].Item = ItemNone

	res, err := e.Apply("p1", Action{Kind: ActionUseItem})
	if err != nil {
		t.Fatal(err)
	}
	if res.Log.Message != "Alice ended their turn" {
		t.Fatalf("unexpected log: %q", res.Log.Message)
	}
	if e.CurrentPlayerID() != "p2" || e.turn != TurnRoll {
		t.Fatal("turn should pass to Bob's roll")
	}
}

func TestSkipItemKeepsItem(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob")
	e.turn = TurnUseItem
	e.players[0].Item = ItemBanana

	if _, err := e.Apply("p1", Action{Kind: ActionSkipItem}); err != nil {
		t.Fatal(err)
	}
	if e.players[0].Item != ItemBanana {
		t.Fatal("skipping must not discard the held item")
	}
	if e.CurrentPlayerID() != "p2" {
		t.Fatal("skip should end the turn")
	}
}

func TestEndTurnSkipsFinishedPlayers(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob", "Cara")
	e.players[1].Finished = true

	e.turn = TurnUseItem
	if _, err := e.Apply("p1", Action{Kind: ActionSkipItem}); err != nil {
		t.Fatal(err)
	}
	if e.CurrentPlayerID() != "p3" {
		t.Fatalf("finished Bob should be skipped, turn went to %s", e.CurrentPlayerID())
	}
}

func TestImmunityExpiresAtOwnTurnStart(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob")

	e.turn = TurnUseItem
	e.players[0].Item = ItemStar
	if _, err := e.Apply("p1", Action{Kind: ActionUseItem}); err != nil {
		t.Fatal(err)
	}
	if !e.players[0].Immune {
		t.Fatal("star should grant immunity")
	}
	if e.CurrentPlayerID() != "p2" {
		t.Fatal("star use still ends the turn")
	}

	// Bob's whole turn passes; Alice stays immune throughout it
	e.turn = TurnUseItem
	if _, err := e.Apply("p2", Action{Kind: ActionSkipItem}); err != nil {
		t.Fatal(err)
	}
	if e.CurrentPlayerID() != "p1" {
		t.Fatal("turn should return to Alice")
	}
	if e.players[0].Immune {
		t.Fatal("immunity expires the moment Alice's own turn begins")
	}
}

func TestRemovePlayer(t *testing.T) {
	t.Parallel()
	e := New(DefaultConfig(), randutil.New(1))
	e.AddPlayer("p1", "Alice")
	e.AddPlayer("p2", "Bob")
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Apply("p1", Action{Kind: ActionSelectCharacter, Character: "Peach"}); err != nil {
		t.Fatal(err)
	}

	if !e.RemovePlayer("p1") {
		t.Fatal("remove should succeed")
	}
	if e.claimed["Peach"] {
		t.Fatal("removal must release the character claim")
	}
	if e.RemovePlayer("p1") {
		t.Fatal("second removal should report not found")
	}

	if !e.RemovePlayer("p2") {
		t.Fatal("remove should succeed")
	}
	if e.phase != PhaseWaiting {
		t.Fatal("emptying the room resets to waiting")
	}
}

// TestRemovePlayerIndexClamp documents the preserved quirk: removing a
// player earlier in the rotation can silently hand the turn to someone
// else, because the current index is clamped with a modulo rather than
// tracked by id.
func TestRemovePlayerIndexClamp(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob", "Cara")
	e.current = 2 // Cara's turn

	e.RemovePlayer("p1")

	// players are now [Bob, Cara]; index 2 clamps to 0 → Bob's turn
	if e.CurrentPlayerID() != "p2" {
		t.Fatalf("expected clamp to hand the turn to Bob, got %s", e.CurrentPlayerID())
	}
}

func TestRejectedActionLeavesSnapshotUntouched(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 9, "Alice", "Bob")

	before := e.Snapshot()
	if _, err := e.Apply("p2", Action{Kind: ActionRollDice}); err == nil {
		t.Fatal("expected rejection")
	}
	after := e.Snapshot()

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected action mutated state:\nbefore %+v\nafter  %+v", before, after)
	}
}
