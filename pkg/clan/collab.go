package clan

import (
	"time"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// Character is a logged-in player as seen by the clan system.
// The clan back reference is owned by the host and set or cleared here.
type Character interface {
	Name() string
	Level() int
	Clan() *gamedb.Clan
	SetClan(c *gamedb.Clan)
	Send(msg string)
}

// Session is one connection. Character returns nil before login.
type Session interface {
	Character() Character
	Playing() bool
}

// World resolves players and enumerates live sessions.
type World interface {
	// FindPlayer finds a player visible to actor anywhere in the game.
	FindPlayer(actor Character, name string) Character
	// FindPlayerInRoom finds a player visible to actor in actor's room.
	FindPlayerInRoom(actor Character, name string) Character
	Sessions() []Session
}

// JournalEntry is one governance action.
type JournalEntry struct {
	Time   time.Time
	Actor  string
	Clan   string
	Action string
	Detail string
	From   string // previous clan name, set on renames
}

// Journal records governance actions for later audit.
type Journal interface {
	Record(e JournalEntry) error
}
