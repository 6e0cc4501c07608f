package engine

import (
	"strings"
	"testing"
)

func inSet(item Item, set ...Item) bool {
	for _, s := range set {
		if item == s {
			return true
		}
	}
	return false
}

func TestAssignItemFrontTable(t *testing.T) {
	t.Parallel()
	seen := map[Item]bool{}
	for seed := int64(0); seed < 50; seed++ {
		e := newRaceEngine(t, seed, "Alice", "Bob", "Cara", "Dan")
		p := e.players[0]
		p.Position = 30 // clear leader

		e.assignItem(p)

		if !inSet(p.Item, ItemRedShell, ItemStar, ItemBanana) {
			t.Fatalf("seed %d: front-runner drew %q, outside the front table", seed, p.Item)
		}
		seen[p.Item] = true
	}
	if len(seen) < 2 {
		t.Fatalf("50 seeds produced only %v, the table should vary", seen)
	}
}

func TestAssignItemBackTable(t *testing.T) {
	t.Parallel()
	seen := map[Item]bool{}
	for seed := int64(0); seed < 50; seed++ {
		e := newRaceEngine(t, seed, "Alice", "Bob", "Cara", "Dan")
		for i, other := range e.players[:3] {
			other.Position = 30 + i
		}
		p := e.players[3] // dead last

		e.assignItem(p)

		if !inSet(p.Item, ItemBullet, ItemBlueShell, ItemRedShell, ItemGoldenMushroom) {
			t.Fatalf("seed %d: back-marker drew %q, outside the back table", seed, p.Item)
		}
		seen[p.Item] = true
	}
	if len(seen) < 2 {
		t.Fatalf("50 seeds produced only %v, the table should vary", seen)
	}
}

// With an odd player count the middle rank rounds into the front group.
func TestAssignItemMidpointRoundsUp(t *testing.T) {
	t.Parallel()
	for seed := int64(0); seed < 25; seed++ {
		e := newRaceEngine(t, seed, "A", "B", "C", "D", "E")
		for i, p := range e.players {
			p.Position = 40 - i*5 // ranks follow join order
		}
		mid := e.players[2] // rank 3 of 5

		e.assignItem(mid)

		if mid.Rank != 3 {
			t.Fatalf("setup broken, middle player ranked %d", mid.Rank)
		}
		if !inSet(mid.Item, ItemRedShell, ItemStar, ItemBanana) {
			t.Fatalf("seed %d: rank 3 of 5 belongs to the front group, drew %q", seed, mid.Item)
		}
	}
}

func TestBullet(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob")
	p := e.players[0]
	p.Position = 20

	msg := e.resolveItem(p, ItemBullet)

	if p.Position != 35 {
		t.Fatalf("expected position 35, got %d", p.Position)
	}
	if !strings.Contains(msg, "Bullet") {
		t.Fatalf("log should mention the item: %q", msg)
	}
}

func TestGoldenMushroom(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob")
	p := e.players[0]
	p.Position = 20

	e.resolveItem(p, ItemGoldenMushroom)

	if p.Position != 25 {
		t.Fatalf("expected position 25, got %d", p.Position)
	}
}

func TestStarGrantsImmunity(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob")
	p := e.players[0]

	e.resolveItem(p, ItemStar)

	if !p.Immune {
		t.Fatal("star should mark the user immune")
	}
}

func TestBlueShell(t *testing.T) {
	t.Parallel()

	t.Run("hits the leader", func(t *testing.T) {
		t.Parallel()
		e := newRaceEngine(t, 1, "Alice", "Bob")
		leader, user := e.players[0], e.players[1]
		leader.Position = 30
		user.Position = 10
		e.updateRankings()

		msg := e.resolveItem(user, ItemBlueShell)

		if leader.Position != 20 {
			t.Fatalf("leader should fall back 10, at %d", leader.Position)
		}
		if !strings.Contains(msg, leader.Name) {
			t.Fatalf("log should name the victim: %q", msg)
		}
	})

	t.Run("immune leader", func(t *testing.T) {
		t.Parallel()
		e := newRaceEngine(t, 1, "Alice", "Bob")
		leader, user := e.players[0], e.players[1]
		leader.Position = 30
		leader.Immune = true
		user.Position = 10
		e.updateRankings()

		msg := e.resolveItem(user, ItemBlueShell)

		if leader.Position != 30 {
			t.Fatalf("immune leader must not move, at %d", leader.Position)
		}
		if !strings.Contains(msg, "immune") {
			t.Fatalf("log should report the immunity: %q", msg)
		}
	})

	t.Run("user is the leader", func(t *testing.T) {
		t.Parallel()
		e := newRaceEngine(t, 1, "Alice", "Bob")
		user := e.players[0]
		user.Position = 30
		e.updateRankings()

		msg := e.resolveItem(user, ItemBlueShell)

		if user.Position != 30 {
			t.Fatalf("self-targeting is voided, user moved to %d", user.Position)
		}
		if !strings.Contains(msg, "void") {
			t.Fatalf("log should report the wasted shot: %q", msg)
		}
	})
}

func TestRedShellSkipsImmuneAndFinished(t *testing.T) {
	t.Parallel()
	e := newRaceEngine(t, 1, "Alice", "Bob", "Cara", "Dan")
	user, hit, immune, done := e.players[0], e.players[1], e.players[2], e.players[3]
	user.Position = 5
	hit.Position = 20
	immune.Position = 20
	immune.Immune = true
	done.Position = 20
	done.Finished = true
	e.updateRankings()

	e.resolveItem(user, ItemRedShell)

	if hit.Position != 17 {
		t.Fatalf("plain rival should fall back 3, at %d", hit.Position)
	}
	if immune.Position != 20 {
		t.Fatalf("immune rival must not move, at %d", immune.Position)
	}
	if done.Position != 20 {
		t.Fatalf("finished rival must not move, at %d", done.Position)
	}
	if user.Position != 5 {
		t.Fatalf("the user never hits themselves, at %d", user.Position)
	}
}

func TestBanana(t *testing.T) {
	t.Parallel()

	t.Run("hits the player behind", func(t *testing.T) {
		t.Parallel()
		e := newRaceEngine(t, 1, "Alice", "Bob", "Cara")
		first, second, third := e.players[0], e.players[1], e.players[2]
		first.Position = 30
		second.Position = 20
		third.Position = 10

		msg := e.resolveItem(second, ItemBanana)

		if third.Position != 7 {
			t.Fatalf("the player one rank behind should fall back 3, at %d", third.Position)
		}
		if first.Position != 30 {
			t.Fatal("the banana never flies forward")
		}
		if !strings.Contains(msg, third.Name) {
			t.Fatalf("log should name the victim: %q", msg)
		}
	})

	t.Run("immune target", func(t *testing.T) {
		t.Parallel()
		e := newRaceEngine(t, 1, "Alice", "Bob")
		e.players[0].Position = 20
		e.players[1].Position = 10
		e.players[1].Immune = true

		msg := e.resolveItem(e.players[0], ItemBanana)

		if e.players[1].Position != 10 {
			t.Fatal("immune target must not move")
		}
		if !strings.Contains(msg, "immune") {
			t.Fatalf("log should report the immunity: %q", msg)
		}
	})

	t.Run("nobody behind", func(t *testing.T) {
		t.Parallel()
		e := newRaceEngine(t, 1, "Alice", "Bob")
		e.players[0].Position = 20
		e.players[1].Position = 30

		before0, before1 := e.players[0].Position, e.players[1].Position
		e.resolveItem(e.players[0], ItemBanana)

		if e.players[0].Position != before0 || e.players[1].Position != before1 {
			t.Fatal("a banana from last place moves nobody")
		}
	})
}
