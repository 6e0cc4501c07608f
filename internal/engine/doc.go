// Package engine implements the core state machine for a turn-based
// lap race. One Engine instance owns the full state of one room:
// player lifecycle, phase transitions, turn sequencing, movement and
// lap accounting, item acquisition and resolution, and rankings.
//
// # Basic Usage
//
// Create an engine, add players, and drive it with actions:
//
//	e := engine.New(engine.DefaultConfig(), randutil.New(42))
//	e.AddPlayer("p1", "Alice")
//	e.AddPlayer("p2", "Bob")
//	e.Start()
//	e.Apply("p1", engine.Action{Kind: engine.ActionSelectCharacter, Character: "Mario"})
//	e.Apply("p2", engine.Action{Kind: engine.ActionSelectCharacter, Character: "Yoshi"})
//	res, err := e.Apply("p1", engine.Action{Kind: engine.ActionRollDice})
//
// Every successful Apply returns a Result with a human-readable log
// line; failures are typed sentinel errors whose messages are safe to
// echo to the offending client.
//
// # Purity and Concurrency
//
// The engine performs no I/O, holds no locks, and never blocks. Each
// action runs to completion synchronously, including chained movement
// and rank recomputation. Callers must serialize access to a single
// engine; separate rooms hold separate engines and never share state.
//
// # Deterministic Testing
//
// Dice rolls and item draws go through the injected *rand.Rand, so a
// fixed seed reproduces an entire game:
//
//	e := engine.New(engine.DefaultConfig(), randutil.New(7))
package engine
