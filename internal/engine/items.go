package engine

import "fmt"

// assignItem grants p an item from the rank-biased table. The field is
// split at the ceiling of half the player count: front-runners get
// mostly defensive or short-range items, back-markers get catch-up
// items. The grant replaces anything already held.
func (e *Engine) assignItem(p *Player) {
	e.updateRankings()
	midpoint := (len(e.players) + 1) / 2

	roll := e.rng.Float64()
	if p.Rank <= midpoint {
		switch {
		case roll < 0.20:
			p.Item = ItemRedShell
		case roll < 0.40:
			p.Item = ItemStar
		default:
			p.Item = ItemBanana
		}
	} else {
		switch {
		case roll < 0.20:
			p.Item = ItemBullet
		case roll < 0.40:
			p.Item = ItemBlueShell
		case roll < 0.80:
			p.Item = ItemRedShell
		default:
			p.Item = ItemGoldenMushroom
		}
	}
}

// resolveItem applies item's effect on behalf of p and returns the log
// line describing what happened. Effects resolve fully synchronously,
// including any movement and the rank recomputation it triggers.
func (e *Engine) resolveItem(p *Player, item Item) string {
	switch item {
	case ItemBullet:
		e.moveForward(p, 15)
		return fmt.Sprintf("%s used a Bullet and shot forward 15 spaces!", p.Name)

	case ItemBlueShell:
		leader := e.playerAtRank(1)
		switch {
		case leader != nil && leader.ID != p.ID && !leader.Immune:
			e.moveBack(leader, 10)
			return fmt.Sprintf("%s used a Blue Shell! %s falls back 10 spaces!", p.Name, leader.Name)
		case leader != nil && leader.ID != p.ID && leader.Immune:
			return fmt.Sprintf("%s used a Blue Shell, but %s is immune!", p.Name, leader.Name)
		default:
			return fmt.Sprintf("%s fired a Blue Shell into the void!", p.Name)
		}

	case ItemRedShell:
		for _, other := range e.players {
			if other.ID != p.ID && !other.Immune && !other.Finished {
				e.moveBack(other, 3)
			}
		}
		return fmt.Sprintf("%s used a Red Shell! Everyone else falls back 3 spaces!", p.Name)

	case ItemGoldenMushroom:
		e.moveForward(p, 5)
		return fmt.Sprintf("%s used a Golden Mushroom and dashed forward 5 spaces!", p.Name)

	case ItemStar:
		p.Immune = true
		return fmt.Sprintf("%s used a Star and is immune until their next turn!", p.Name)

	case ItemBanana:
		e.updateRankings()
		behind := e.playerAtRank(p.Rank + 1)
		switch {
		case behind != nil && !behind.Immune && !behind.Finished:
			e.moveBack(behind, 3)
			return fmt.Sprintf("%s dropped a Banana! %s slipped and falls back 3 spaces!", p.Name, behind.Name)
		case behind != nil && behind.Immune:
			return fmt.Sprintf("%s dropped a Banana, but %s is immune!", p.Name, behind.Name)
		default:
			return fmt.Sprintf("%s dropped a Banana!", p.Name)
		}
	}

	return fmt.Sprintf("%s fumbled an unknown item", p.Name)
}

func (e *Engine) playerAtRank(rank int) *Player {
	for _, p := range e.players {
		if p.Rank == rank {
			return p
		}
	}
	return nil
}
