package engine

import "slices"

// Config holds the immutable rules an engine is constructed with.
// Instances are copied on construction so rooms never share mutable
// slices.
type Config struct {
	Characters  []string // selectable roster, order is presentation order
	TrackLength int      // spaces per lap
	LapsToWin   int      // full laps required to finish
	ItemSpaces  []int    // positions that grant an item when reached
	MaxPlayers  int
}

// DefaultConfig returns the standard race rules: a 50-space track,
// three laps, item boxes at 10/25/40 and the classic ten-driver roster.
func DefaultConfig() Config {
	return Config{
		Characters: []string{
			"Mario", "Luigi", "Peach", "Bowser", "Yoshi",
			"Toad", "Birdo", "Donkey Kong", "Daisy", "King Boo",
		},
		TrackLength: 50,
		LapsToWin:   3,
		ItemSpaces:  []int{10, 25, 40},
		MaxPlayers:  10,
	}
}

func (c Config) clone() Config {
	c.Characters = slices.Clone(c.Characters)
	c.ItemSpaces = slices.Clone(c.ItemSpaces)
	return c
}

func (c Config) hasCharacter(name string) bool {
	return slices.Contains(c.Characters, name)
}

func (c Config) isItemSpace(pos int) bool {
	return slices.Contains(c.ItemSpaces, pos)
}
