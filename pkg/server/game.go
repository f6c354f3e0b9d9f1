package server

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/goclans/pkg/boltstore"
	"github.com/crystal-mush/goclans/pkg/clan"
	"github.com/crystal-mush/goclans/pkg/events"
	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// Game is the shared state behind every connection.
type Game struct {
	Conf     *GameConf
	Conns    *ConnManager
	Commands map[string]*Command
	EventBus *events.Bus
	Store    *boltstore.Store // nil = players live in memory only
	Clans    *clan.System
	Journal  *ClanJournal // nil if SQL is disabled
	Metrics  *Metrics     // nil if metrics are disabled

	mu      sync.RWMutex
	players map[string]*Player // lowercase name -> player
}

// NewGame creates a game with the given config. Clans must be attached
// with AttachClans before players connect.
func NewGame(conf *GameConf) *Game {
	if conf == nil {
		conf = DefaultGameConf()
	}
	bus := events.NewBus()
	bus.SubscribeGlobal(connLogger{})
	cm := NewConnManager()
	cm.EventBus = bus
	return &Game{
		Conf:     conf,
		Conns:    cm,
		Commands: InitCommands(),
		EventBus: bus,
		players:  make(map[string]*Player),
	}
}

// AttachClans builds the clan system over roster, using g as its world.
func (g *Game) AttachClans(roster *clan.Roster) *clan.System {
	g.Clans = clan.New(roster, g, g.Conf.ClanConfig())
	if g.Journal != nil {
		g.Clans.Journal = g.Journal
	}
	return g.Clans
}

// LoadPlayers reads persisted player records from the bbolt store.
func (g *Game) LoadPlayers() error {
	if g.Store == nil {
		return nil
	}
	recs, err := g.Store.LoadPlayers()
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, rec := range recs {
		g.players[strings.ToLower(rec.Name)] = &Player{Record: rec, game: g}
	}
	return nil
}

// LookupPlayer finds a known player by name.
func (g *Game) LookupPlayer(name string) *Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players[strings.ToLower(name)]
}

// PlayerCount returns the number of known players.
func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.players)
}

// CreatePlayer registers a new player with the given password.
func (g *Game) CreatePlayer(name, password string) (*Player, error) {
	if err := validPlayerName(name); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	rec := &gamedb.Player{
		Name:     name,
		Level:    g.Conf.StartingLevel,
		Room:     g.Conf.StartRoom,
		Password: hash,
		Created:  time.Now(),
	}

	g.mu.Lock()
	key := strings.ToLower(name)
	if _, exists := g.players[key]; exists {
		g.mu.Unlock()
		return nil, errNameTaken
	}
	p := &Player{Record: rec, game: g}
	g.players[key] = p
	g.mu.Unlock()

	g.SavePlayer(p)
	return p, nil
}

// SavePlayer writes a player's record through to bbolt, if configured.
func (g *Game) SavePlayer(p *Player) {
	if g.Store == nil {
		return
	}
	p.mu.Lock()
	rec := *p.Record
	p.mu.Unlock()
	if err := g.Store.PutPlayer(&rec); err != nil {
		log.Printf("ERROR: saving player %s: %v", rec.Name, err)
	}
}

// LoginPlayer attaches d to p, restores p's clan and announces the connection.
func (g *Game) LoginPlayer(d *Descriptor, p *Player) {
	if lvl, ok := g.Conf.StaffLevel(p.Name()); ok && lvl != p.Level() {
		p.setLevel(lvl)
		g.SavePlayer(p)
	}
	g.Conns.Login(d, p)
	if g.Clans != nil {
		g.Clans.AttachExisting(p)
	}
	g.EventBus.EmitToPlayers(g.Conns.PlayerNames(), p.Name(), events.Event{
		Type:   events.EvConnect,
		Source: p.Name(),
		Text:   fmt.Sprintf("%s has connected.", p.Name()),
	})
}

// DisconnectPlayer announces that d's player has left.
func (g *Game) DisconnectPlayer(d *Descriptor) {
	p := d.Player()
	if d.State() != ConnConnected || p == nil {
		return
	}
	text := fmt.Sprintf("%s has disconnected.", p.Name())
	if len(g.Conns.GetByPlayer(p.Name())) > 1 {
		text = fmt.Sprintf("%s has partially disconnected.", p.Name())
	}
	g.EventBus.EmitToPlayers(g.Conns.PlayerNames(), p.Name(), events.Event{
		Type:   events.EvDisconnect,
		Source: p.Name(),
		Text:   text,
	})
}

// --- clan.World ---

// FindPlayer returns a connected player by name.
func (g *Game) FindPlayer(_ clan.Character, name string) clan.Character {
	if p := g.connectedPlayer(name); p != nil {
		return p
	}
	return nil
}

// FindPlayerInRoom returns a connected player by name in actor's room.
func (g *Game) FindPlayerInRoom(actor clan.Character, name string) clan.Character {
	a, ok := actor.(*Player)
	if !ok {
		return nil
	}
	p := g.connectedPlayer(name)
	if p == nil || !strings.EqualFold(p.Room(), a.Room()) {
		return nil
	}
	return p
}

// Sessions returns every live connection.
func (g *Game) Sessions() []clan.Session {
	descs := g.Conns.AllDescriptors()
	out := make([]clan.Session, 0, len(descs))
	for _, d := range descs {
		out = append(out, d)
	}
	return out
}

var _ clan.World = (*Game)(nil)

func (g *Game) connectedPlayer(name string) *Player {
	if name == "" || !g.Conns.IsConnected(name) {
		return nil
	}
	return g.LookupPlayer(name)
}

// connLogger writes connect and disconnect events to the log.
type connLogger struct{}

func (connLogger) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvConnect, events.EvDisconnect:
		log.Printf("%s: %s", ev.Type, ev.Text)
	}
}

func (connLogger) Closed() bool { return false }
