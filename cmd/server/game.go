package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/crystal-mush/tickmud/pkg/events"
	"github.com/crystal-mush/tickmud/pkg/sessionlog"
	"github.com/rs/zerolog"
)

// frontEnd is the part of *server.Server the game loop uses.
type frontEnd interface {
	NewPlayers() []events.NewPlayer
	DisconnectedPlayers() []int
	Commands() []events.Command
	Send(id int, text string)
	Addr(id int) (string, bool)
}

// game is a minimal chat-style consumer of the server's tick events. It has
// no world: everyone who has chosen a name shares one room.
type game struct {
	fe      frontEnd
	journal *sessionlog.Journal // nil disables journaling and "last"
	log     zerolog.Logger
	now     func() time.Time

	names map[int]string
}

func newGame(fe frontEnd, journal *sessionlog.Journal, logger zerolog.Logger) *game {
	return &game{
		fe:      fe,
		journal: journal,
		log:     logger,
		now:     time.Now,
		names:   make(map[int]string),
	}
}

var helpText = []string{
	"Commands:",
	"  say <message>   - Says something out loud, e.g. 'say Hello'",
	"  emote <action>  - Shows an action, e.g. 'emote waves'",
	"  who             - Lists everyone in the game",
	"  last            - Shows recent sessions",
	"  help            - Shows this list",
}

// step handles the events of the tick that just completed.
func (g *game) step() {
	for _, p := range g.fe.NewPlayers() {
		g.join(p)
	}
	for _, id := range g.fe.DisconnectedPlayers() {
		g.leave(id)
	}
	for _, c := range g.fe.Commands() {
		if _, ok := g.names[c.ID]; !ok {
			continue
		}
		g.command(c)
	}
}

func (g *game) join(p events.NewPlayer) {
	name := p.Name
	if name == "" {
		name = fmt.Sprintf("Guest%d", p.ID)
	}
	g.names[p.ID] = name

	if g.journal != nil {
		addr, _ := g.fe.Addr(p.ID)
		if err := g.journal.Join(p.ID, name, addr, g.now()); err != nil {
			g.log.Warn().Err(err).Int("client", p.ID).Msg("journal join failed")
		}
	}

	g.broadcast(p.ID, fmt.Sprintf("%s entered the game", name))
	g.fe.Send(p.ID, fmt.Sprintf("Welcome to the game, %s. Type 'help' for a list of commands. Have fun!", name))
}

func (g *game) leave(id int) {
	name, ok := g.names[id]
	if !ok {
		return
	}
	delete(g.names, id)

	if g.journal != nil {
		if err := g.journal.Leave(id, g.now()); err != nil {
			g.log.Warn().Err(err).Int("client", id).Msg("journal leave failed")
		}
	}
	g.broadcast(id, fmt.Sprintf("%s quit the game", name))
}

func (g *game) command(c events.Command) {
	name := g.names[c.ID]
	switch c.Verb {
	case "":
	case "help":
		for _, line := range helpText {
			g.fe.Send(c.ID, line)
		}
	case "say":
		if c.Remainder == "" {
			g.fe.Send(c.ID, "Say what?")
			return
		}
		g.fe.Send(c.ID, fmt.Sprintf("You say: %s", c.Remainder))
		g.broadcast(c.ID, fmt.Sprintf("%s says: %s", name, c.Remainder))
	case "emote":
		if c.Remainder == "" {
			g.fe.Send(c.ID, "Emote what?")
			return
		}
		line := fmt.Sprintf("%s %s", name, c.Remainder)
		g.fe.Send(c.ID, line)
		g.broadcast(c.ID, line)
	case "who":
		g.fe.Send(c.ID, fmt.Sprintf("Players online: %s", strings.Join(g.online(), ", ")))
	case "last":
		g.last(c.ID)
	default:
		g.fe.Send(c.ID, fmt.Sprintf("Unknown command '%s'", c.Verb))
	}
}

func (g *game) last(id int) {
	if g.journal == nil {
		g.fe.Send(id, "No session history is kept.")
		return
	}
	sessions, err := g.journal.Recent(10)
	if err != nil {
		g.log.Warn().Err(err).Msg("journal read failed")
		g.fe.Send(id, "Session history is unavailable.")
		return
	}
	g.fe.Send(id, "Recent sessions:")
	for _, s := range sessions {
		status := "online"
		if !s.Open() {
			status = s.Left.Sub(s.Joined).Round(time.Second).String()
		}
		g.fe.Send(id, fmt.Sprintf("  %-16s %-15s %s  %s", s.Name, s.Addr, s.Joined.Format("2006-01-02 15:04"), status))
	}
}

// ids returns the named players' ids in connection order.
func (g *game) ids() []int {
	ids := make([]int, 0, len(g.names))
	for id := range g.names {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// online returns the names of everyone in the game, by connection order.
func (g *game) online() []string {
	ids := g.ids()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.names[id]
	}
	return out
}

// broadcast sends text to every named player except from.
func (g *game) broadcast(from int, text string) {
	for _, id := range g.ids() {
		if id != from {
			g.fe.Send(id, text)
		}
	}
}

// shutdown tells everyone the game is going away.
func (g *game) shutdown() {
	for _, id := range g.ids() {
		g.fe.Send(id, "The game is shutting down. Goodbye.")
	}
}
