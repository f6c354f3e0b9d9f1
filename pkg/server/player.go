package server

import (
	"sync"

	"github.com/crystal-mush/goclans/pkg/clan"
	"github.com/crystal-mush/goclans/pkg/events"
	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// Player is a player known to the game. The clan pointer is runtime
// state, restored from the roster at login and never persisted.
type Player struct {
	Record *gamedb.Player

	game *Game
	mu   sync.Mutex
	clan *gamedb.Clan
}

// Name implements clan.Character.
func (p *Player) Name() string { return p.Record.Name }

// Level implements clan.Character.
func (p *Player) Level() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Record.Level
}

// Room returns the name of the room the player is in.
func (p *Player) Room() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Record.Room
}

// Clan implements clan.Character.
func (p *Player) Clan() *gamedb.Clan {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clan
}

// SetClan implements clan.Character.
func (p *Player) SetClan(c *gamedb.Clan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clan = c
}

// Send implements clan.Character by routing text through the event bus
// to every connection the player has open.
func (p *Player) Send(msg string) {
	if p.game == nil {
		return
	}
	p.game.EventBus.EmitToPlayer(p.Name(), events.Event{
		Type: events.EvText,
		Text: msg,
	})
}

func (p *Player) setLevel(lvl int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Record.Level = lvl
}

func (p *Player) setRoom(room string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Record.Room = room
}

var _ clan.Character = (*Player)(nil)
