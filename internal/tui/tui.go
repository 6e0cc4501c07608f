package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hacobotdev/kart/internal/engine"
	"github.com/hacobotdev/kart/internal/randutil"
	"github.com/hacobotdev/kart/internal/server"
)

// screen identifies which view the client is showing.
type screen int

const (
	screenName screen = iota
	screenLobby
	screenRoom
)

// wsMsg carries one decoded protocol message into the update loop.
type wsMsg server.Message

// wsClosed signals the server hung up.
type wsClosed struct{}

// Model is the bubbletea model for the interactive client.
type Model struct {
	conn   *Conn
	userID string
	name   string

	screen screen
	input  textinput.Model

	rooms  []server.RoomInfo
	roomID string
	isHost bool

	snap    *engine.Snapshot
	logs    []string
	lastErr string
}

// NewModel builds the client model. A non-empty username skips the
// name prompt and joins the lobby immediately on start.
func NewModel(conn *Conn, username string) Model {
	rng, _ := randutil.NewFromTime()

	input := textinput.New()
	input.Placeholder = "username (3-12 chars)"
	input.CharLimit = 12
	input.Focus()

	m := Model{
		conn:   conn,
		userID: fmt.Sprintf("u-%016x", rng.Uint64()),
		name:   username,
		screen: screenName,
		input:  input,
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitForMsg(m.conn)}
	if m.name != "" {
		cmds = append(cmds, m.joinLobby(m.name))
	}
	return tea.Batch(cmds...)
}

func waitForMsg(c *Conn) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-c.incoming
		if !ok {
			return wsClosed{}
		}
		return wsMsg(msg)
	}
}

func (m Model) joinLobby(name string) tea.Cmd {
	return func() tea.Msg {
		_ = m.conn.Send(server.MessageTypeJoinLobby, server.JoinLobbyData{
			Username: name,
			UserID:   m.userID,
		})
		return nil
	}
}

func (m Model) send(t server.MessageType, data any) tea.Cmd {
	return func() tea.Msg {
		_ = m.conn.Send(t, data)
		return nil
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case wsMsg:
		return m.handleServer(server.Message(msg))
	case wsClosed:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyCtrlC {
		m.conn.Close()
		return m, tea.Quit
	}

	switch m.screen {
	case screenName:
		switch key.Type {
		case tea.KeyEnter:
			name := strings.TrimSpace(m.input.Value())
			if name == "" {
				return m, nil
			}
			m.name = name
			m.lastErr = ""
			return m, m.joinLobby(name)
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(key)
			return m, cmd
		}

	case screenLobby:
		switch key.String() {
		case "q":
			m.conn.Close()
			return m, tea.Quit
		case "c":
			m.lastErr = ""
			return m, m.send(server.MessageTypeCreateRoom, nil)
		case "l":
			return m, m.send(server.MessageTypeListRooms, nil)
		default:
			if idx := digitIndex(key.String()); idx >= 0 && idx < len(m.rooms) {
				m.lastErr = ""
				return m, m.send(server.MessageTypeJoinRoom, server.JoinRoomData{RoomID: m.rooms[idx].ID})
			}
		}

	case screenRoom:
		return m.handleRoomKey(key)
	}
	return m, nil
}

func (m Model) handleRoomKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q":
		cmd := m.send(server.MessageTypeLeaveRoom, nil)
		m.screen = screenLobby
		m.roomID = ""
		m.snap = nil
		m.logs = nil
		return m, cmd
	case "s":
		if m.isHost {
			return m, m.send(server.MessageTypeStartGame, server.RoomRefData{RoomID: m.roomID})
		}
	case "R":
		if m.isHost {
			return m, m.send(server.MessageTypeRestartGame, server.RoomRefData{RoomID: m.roomID})
		}
	case "T":
		if m.isHost {
			return m, m.send(server.MessageTypeTerminateRoom, server.RoomRefData{RoomID: m.roomID})
		}
	}

	if m.snap == nil {
		return m, nil
	}

	switch m.snap.Phase {
	case engine.PhaseSelectingCharacters:
		if idx := digitIndex(key.String()); idx >= 0 && idx < len(m.snap.Characters) {
			return m, m.gameAction(engine.ActionSelectCharacter, m.snap.Characters[idx])
		}
	case engine.PhasePlaying:
		if m.snap.CurrentPlayerID != m.userID {
			return m, nil
		}
		switch key.String() {
		case "r":
			return m, m.gameAction(engine.ActionRollDice, "")
		case "u":
			return m, m.gameAction(engine.ActionUseItem, "")
		case "k":
			return m, m.gameAction(engine.ActionSkipItem, "")
		}
	}
	return m, nil
}

func (m Model) gameAction(kind engine.ActionKind, character string) tea.Cmd {
	return m.send(server.MessageTypeGameAction, server.GameActionData{
		RoomID:    m.roomID,
		Action:    kind,
		Character: character,
	})
}

func (m Model) handleServer(msg server.Message) (tea.Model, tea.Cmd) {
	next := waitForMsg(m.conn)

	switch msg.Type {
	case server.MessageTypeLobbyJoined:
		m.screen = screenLobby

	case server.MessageTypeRoomList:
		var data server.RoomListData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			m.rooms = data.Rooms
		}

	case server.MessageTypeRoomJoined:
		var data server.RoomJoinedData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			m.screen = screenRoom
			m.roomID = data.RoomID
			m.isHost = data.IsHost
			m.logs = nil
			m.lastErr = ""
		}

	case server.MessageTypeGameUpdate:
		var data server.GameUpdateData
		if err := json.Unmarshal(msg.Data, &data); err == nil && data.RoomID == m.roomID {
			snap := data.Snapshot
			m.snap = &snap
		}

	case server.MessageTypeGameLog:
		var entry engine.LogEntry
		if err := json.Unmarshal(msg.Data, &entry); err == nil {
			line := logStyle.Render(entry.Message)
			if entry.Kind == engine.LogItem {
				line = itemLogStyle.Render(entry.Message)
			}
			m.logs = append(m.logs, line)
			if len(m.logs) > 8 {
				m.logs = m.logs[len(m.logs)-8:]
			}
		}

	case server.MessageTypeRoomTerminated:
		m.screen = screenLobby
		m.roomID = ""
		m.snap = nil
		m.logs = nil

	case server.MessageTypeError:
		var data server.ErrorData
		if err := json.Unmarshal(msg.Data, &data); err == nil {
			m.lastErr = data.Message
		}
	}

	return m, next
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("KART") + "\n\n")

	switch m.screen {
	case screenName:
		b.WriteString("Pick a username:\n\n")
		b.WriteString(m.input.View() + "\n")

	case screenLobby:
		b.WriteString(fmt.Sprintf("Lobby — signed in as %s\n\n", meStyle.Render(m.name)))
		if len(m.rooms) == 0 {
			b.WriteString(dimStyle.Render("No open rooms.") + "\n")
		}
		for i, room := range m.rooms {
			b.WriteString(fmt.Sprintf("  [%d] %s (%d players)\n", i+1, room.ID, room.PlayerCount))
		}
		b.WriteString("\n" + dimStyle.Render("c: create room · 1-9: join · l: refresh · q: quit") + "\n")

	case screenRoom:
		m.viewRoom(&b)
	}

	if m.lastErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.lastErr) + "\n")
	}
	return b.String()
}

func (m Model) viewRoom(b *strings.Builder) {
	b.WriteString(fmt.Sprintf("%s\n\n", m.roomID))
	if m.snap == nil {
		b.WriteString(dimStyle.Render("Waiting for state...") + "\n")
		return
	}

	switch m.snap.Phase {
	case engine.PhaseWaiting:
		b.WriteString(fmt.Sprintf("Waiting for players (%d seated)\n\n", len(m.snap.Players)))
		for _, p := range m.snap.Players {
			b.WriteString("  " + m.playerName(p) + "\n")
		}
		if m.isHost {
			b.WriteString("\n" + dimStyle.Render("s: start game · q: leave") + "\n")
		} else {
			b.WriteString("\n" + dimStyle.Render("waiting for the host · q: leave") + "\n")
		}

	case engine.PhaseSelectingCharacters:
		b.WriteString("Character select\n\n")
		taken := make(map[string]bool, len(m.snap.SelectedCharacters))
		for _, c := range m.snap.SelectedCharacters {
			taken[c] = true
		}
		for i, c := range m.snap.Characters {
			label := fmt.Sprintf("  [%d] %s", (i+1)%10, c)
			if taken[c] {
				label = dimStyle.Render(label + " (taken)")
			}
			b.WriteString(label + "\n")
		}
		b.WriteString("\n" + dimStyle.Render("pick with 1-9, 0 · q: leave") + "\n")

	case engine.PhasePlaying:
		d := m.snap.LastDiceResult
		b.WriteString(fmt.Sprintf("Lap race — last roll %d+%d\n\n", d[0], d[1]))
		m.viewStandings(b)
		if m.snap.CurrentPlayerID == m.userID {
			if m.snap.TurnState == engine.TurnRoll {
				b.WriteString("\n" + turnStyle.Render("Your turn! r: roll dice") + "\n")
			} else {
				b.WriteString("\n" + turnStyle.Render("u: use item · k: keep item and end turn") + "\n")
			}
		} else {
			b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("waiting for %s", m.currentName())) + "\n")
		}

	case engine.PhaseEnded:
		b.WriteString(turnStyle.Render("Race finished!") + "\n\n")
		for i, w := range m.snap.Winners {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, w))
		}
		if m.isHost {
			b.WriteString("\n" + dimStyle.Render("R: restart · T: end session · q: leave") + "\n")
		}
	}

	if len(m.logs) > 0 {
		b.WriteString("\n" + strings.Join(m.logs, "\n") + "\n")
	}
}

func (m Model) viewStandings(b *strings.Builder) {
	// Show by rank, not join order.
	for rank := 1; rank <= len(m.snap.Players); rank++ {
		for _, p := range m.snap.Players {
			if p.Rank != rank {
				continue
			}
			marker := "  "
			if p.ID == m.snap.CurrentPlayerID {
				marker = "> "
			}
			line := fmt.Sprintf("%s%d. %-12s %-11s lap %d  space %2d", marker, p.Rank, p.Name, p.Character, p.Lap, p.Position)
			if p.Item != engine.ItemNone {
				line += "  [" + string(p.Item) + "]"
			}
			switch {
			case p.Finished:
				line = finishedStyle.Render(line + "  FINISHED")
			case p.Immune:
				line = immuneStyle.Render(line + "  immune")
			case p.ID == m.userID:
				line = meStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}
}

func (m Model) playerName(p engine.PlayerSnapshot) string {
	name := p.Name
	if p.ID == m.snap.HostID {
		name += " (host)"
	}
	if p.ID == m.userID {
		return meStyle.Render(name)
	}
	return name
}

func (m Model) currentName() string {
	for _, p := range m.snap.Players {
		if p.ID == m.snap.CurrentPlayerID {
			return p.Name
		}
	}
	return "?"
}

// digitIndex maps "1".."9" to 0..8 and "0" to 9, mirroring the roster
// hotkeys; anything else returns -1.
func digitIndex(s string) int {
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return -1
	}
	if s[0] == '0' {
		return 9
	}
	return int(s[0] - '1')
}

// Run connects to addr and drives the interactive client until quit.
func Run(addr, username string) error {
	conn, err := Dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	p := tea.NewProgram(NewModel(conn, username))
	_, err = p.Run()
	return err
}
