package clan

import (
	"errors"
	"strings"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

type fakeChar struct {
	name  string
	level int
	room  string
	clan  *gamedb.Clan
	lines []string
}

func (c *fakeChar) Name() string            { return c.name }
func (c *fakeChar) Level() int              { return c.level }
func (c *fakeChar) Clan() *gamedb.Clan      { return c.clan }
func (c *fakeChar) SetClan(cl *gamedb.Clan) { c.clan = cl }
func (c *fakeChar) Send(msg string)         { c.lines = append(c.lines, msg) }

func (c *fakeChar) last() string {
	if len(c.lines) == 0 {
		return ""
	}
	return c.lines[len(c.lines)-1]
}

func (c *fakeChar) reset() { c.lines = nil }

type fakeSession struct {
	ch      *fakeChar
	playing bool
}

func (s *fakeSession) Character() Character {
	if s.ch == nil {
		return nil
	}
	return s.ch
}

func (s *fakeSession) Playing() bool { return s.playing }

type fakeWorld struct {
	sessions []*fakeSession
}

func (w *fakeWorld) connect(name string, level int, room string) *fakeChar {
	c := &fakeChar{name: name, level: level, room: room}
	w.sessions = append(w.sessions, &fakeSession{ch: c, playing: true})
	return c
}

func (w *fakeWorld) FindPlayer(_ Character, name string) Character {
	for _, s := range w.sessions {
		if s.ch != nil && strings.EqualFold(s.ch.name, name) {
			return s.ch
		}
	}
	return nil
}

func (w *fakeWorld) FindPlayerInRoom(actor Character, name string) Character {
	a, _ := actor.(*fakeChar)
	for _, s := range w.sessions {
		if s.ch != nil && strings.EqualFold(s.ch.name, name) && a != nil && s.ch.room == a.room {
			return s.ch
		}
	}
	return nil
}

func (w *fakeWorld) Sessions() []Session {
	out := make([]Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, s)
	}
	return out
}

// memBackend keeps the last saved roster in memory.
type memBackend struct {
	clans   []*gamedb.Clan
	saves   int
	loadErr error
	saveErr error
}

func (b *memBackend) Load() ([]*gamedb.Clan, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.clans, nil
}

func (b *memBackend) Save(clans []*gamedb.Clan) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves++
	b.clans = clans
	return nil
}

type fakeJournal struct {
	entries []JournalEntry
	err     error
}

func (j *fakeJournal) Record(e JournalEntry) error {
	j.entries = append(j.entries, e)
	return j.err
}

var errDiskFull = errors.New("disk full")
