package engine

import "slices"

// moveForward advances p one space at a time. Each step that wraps
// past the start line increments the lap; exceeding the winning lap
// marks the player finished and records finishing order. Each step
// that reaches an item-box space grants an item, so a multi-space move
// crossing several boxes rolls a grant for each, with later grants
// replacing earlier ones. The end-of-race check runs after every
// single step so the race ends the instant the last racer crosses.
func (e *Engine) moveForward(p *Player, spaces int) {
	for i := 0; i < spaces; i++ {
		p.Position = (p.Position + 1) % e.cfg.TrackLength
		if p.Position == 0 {
			p.Lap++
			if p.Lap > e.cfg.LapsToWin && !p.Finished {
				p.Finished = true
				e.winners = append(e.winners, p)
				if e.allFinished() {
					e.phase = PhaseEnded
				}
			}
		}
		if e.cfg.isItemSpace(p.Position) {
			e.assignItem(p)
		}
	}
	e.updateRankings()
}

// moveBack steps p backward up to spaces times. Backward movement
// stops at the starting grid of lap 1 rather than going negative;
// stepping back across the start line decrements the lap.
func (e *Engine) moveBack(p *Player, spaces int) {
	for i := 0; i < spaces; i++ {
		if p.Position == 0 {
			if p.Lap <= 1 {
				break
			}
			p.Lap--
		}
		p.Position = (p.Position - 1 + e.cfg.TrackLength) % e.cfg.TrackLength
	}
	e.updateRankings()
}

// updateRankings recomputes every player's 1-based rank: finished
// players first (in stable order, which finishing order already
// produced), then by lap, then by position. It runs after every
// mutation that can change relative order, so Rank is never read
// stale.
func (e *Engine) updateRankings() {
	sorted := slices.Clone(e.players)
	slices.SortStableFunc(sorted, func(a, b *Player) int {
		if a.Finished != b.Finished {
			if a.Finished {
				return -1
			}
			return 1
		}
		if a.Lap != b.Lap {
			return b.Lap - a.Lap
		}
		return b.Position - a.Position
	})
	for i, p := range sorted {
		p.Rank = i + 1
	}
}
