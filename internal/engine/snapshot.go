package engine

import "slices"

// PlayerSnapshot is the public projection of one player. It carries
// everything a rendering client needs and nothing else; internal
// bookkeeping such as the pre-roll position is deliberately absent.
type PlayerSnapshot struct {
	ID        string `json:"id"`
	Name      string `json:"username"`
	Character string `json:"character,omitempty"`
	Position  int    `json:"position"`
	Lap       int    `json:"lap"`
	Item      Item   `json:"item,omitempty"`
	Immune    bool   `json:"isImmune"`
	Rank      int    `json:"rank"`
	Finished  bool   `json:"finished"`
}

// Snapshot is the immutable public view of a room, the sole contract
// between the engine and the transport and rendering layers. It is
// fully derived from engine state on every call; mutating it never
// affects the engine.
type Snapshot struct {
	Phase              Phase            `json:"state"`
	TurnState          TurnState        `json:"turnState"`
	Players            []PlayerSnapshot `json:"players"`
	CurrentPlayerID    string           `json:"currentPlayerId,omitempty"`
	LastDiceResult     [2]int           `json:"lastDiceResult"`
	Characters         []string         `json:"characters"`
	SelectedCharacters []string         `json:"selectedCharacters"`
	Winners            []string         `json:"winners"`
	HostID             string           `json:"hostId,omitempty"`
}

// Snapshot produces the current public view.
func (e *Engine) Snapshot() Snapshot {
	players := make([]PlayerSnapshot, len(e.players))
	for i, p := range e.players {
		players[i] = PlayerSnapshot{
			ID:        p.ID,
			Name:      p.Name,
			Character: p.Character,
			Position:  p.Position,
			Lap:       p.Lap,
			Item:      p.Item,
			Immune:    p.Immune,
			Rank:      p.Rank,
			Finished:  p.Finished,
		}
	}

	// Roster order keeps the claimed list deterministic.
	selected := make([]string, 0, len(e.claimed))
	for _, c := range e.cfg.Characters {
		if e.claimed[c] {
			selected = append(selected, c)
		}
	}

	winners := make([]string, len(e.winners))
	for i, p := range e.winners {
		winners[i] = p.Name
	}

	return Snapshot{
		Phase:              e.phase,
		TurnState:          e.turn,
		Players:            players,
		CurrentPlayerID:    e.CurrentPlayerID(),
		LastDiceResult:     e.dice,
		Characters:         slices.Clone(e.cfg.Characters),
		SelectedCharacters: selected,
		Winners:            winners,
		HostID:             e.hostID,
	}
}
