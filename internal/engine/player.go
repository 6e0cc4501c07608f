package engine

// Item identifies a held item. A player holds at most one; a fresh
// grant replaces whatever was held before.
type Item string

const (
	ItemNone           Item = ""
	ItemBullet         Item = "Bullet"
	ItemBlueShell      Item = "Blue Shell"
	ItemRedShell       Item = "Red Shell"
	ItemGoldenMushroom Item = "Golden Mushroom"
	ItemStar           Item = "Star"
	ItemBanana         Item = "Banana"
)

// Player is one participant in a race. The id is stable across
// reconnects; the display name may change at any time.
type Player struct {
	ID        string
	Name      string
	Character string // empty until claimed during character select
	Position  int    // [0, TrackLength)
	Lap       int    // starts at 1
	Item      Item
	Immune    bool // Star immunity, cleared when the holder's next turn begins
	Rank      int  // 1-based, maintained by updateRankings
	Finished  bool

	// lastPosition records where the player stood before their most
	// recent roll. Internal bookkeeping only, never exposed in the
	// public snapshot.
	lastPosition int
}

func newPlayer(id, name string) *Player {
	return &Player{ID: id, Name: name, Lap: 1}
}

// resetForStart returns the player to the starting grid, dropping all
// race progress. Used by Start for both first start and restart.
func (p *Player) resetForStart() {
	p.Character = ""
	p.Position = 0
	p.Lap = 1
	p.Item = ItemNone
	p.Immune = false
	p.Rank = 0
	p.Finished = false
	p.lastPosition = 0
}
