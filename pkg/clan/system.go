package clan

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// Config holds the level thresholds the clan system enforces.
type Config struct {
	ImmortalLevel int // Players at or above this level may not join clans
	CreateLevel   int // Minimum level for create and disband
}

// DefaultConfig returns the stock level thresholds.
func DefaultConfig() Config {
	return Config{ImmortalLevel: 31, CreateLevel: 33}
}

// Command is one clan subcommand and the access it requires.
type Command struct {
	Name     string
	Handler  func(s *System, ch Character, arg string)
	MinLevel int
	MinRank  gamedb.Rank
}

// System runs clan subcommands against a roster. Every exported method
// holds the system lock, so each subcommand is applied atomically.
type System struct {
	mu       sync.Mutex
	Roster   *Roster
	World    World
	Metrics  *Metrics // optional
	Journal  Journal  // optional
	cfg      Config
	commands []Command
}

// New creates a clan system over roster, resolving players through world.
func New(roster *Roster, world World, cfg Config) *System {
	s := &System{Roster: roster, World: world, cfg: cfg}
	s.commands = s.commandTable()
	return s
}

// commandTable is checked in order, so "clan d" means demote because
// demote comes before dismiss and disband.
func (s *System) commandTable() []Command {
	return []Command{
		{"create", (*System).create, s.cfg.CreateLevel, gamedb.RankNonMember},
		{"enlist", (*System).enlist, 0, gamedb.RankMaster},
		{"demote", (*System).demote, 0, gamedb.RankMaster},
		{"dismiss", (*System).dismiss, 0, gamedb.RankMaster},
		{"disband", (*System).disband, s.cfg.CreateLevel, gamedb.RankNonMember},
		{"info", (*System).info, 0, gamedb.RankNonMember},
		{"list", (*System).list, 0, gamedb.RankNonMember},
		{"leave", (*System).leave, 0, gamedb.RankInitiate},
		{"promote", (*System).promote, 0, gamedb.RankMaster},
		{"rank", (*System).rank, 0, gamedb.RankLeader},
		{"rename", (*System).rename, 0, gamedb.RankLeader},
		{"tell", (*System).tell, 0, gamedb.RankInitiate},
		{"who", (*System).who, 0, gamedb.RankInitiate},
	}
}

// Commands returns the subcommand table in dispatch order.
func (s *System) Commands() []Command {
	return append([]Command(nil), s.commands...)
}

// Lookup returns the first subcommand that word abbreviates, or nil.
func (s *System) Lookup(word string) *Command {
	for i := range s.commands {
		if isAbbrev(word, s.commands[i].Name) {
			return &s.commands[i]
		}
	}
	return nil
}

// Dispatch runs "clan <argument>" for ch.
func (s *System) Dispatch(ch Character, argument string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	word, rest := halfChop(argument)
	if word == "" {
		s.usage(ch)
		s.Metrics.command("", "usage")
		return
	}

	cmd := s.Lookup(word)
	if cmd == nil {
		s.usage(ch)
		s.Metrics.command("", "usage")
		return
	}
	if msg := s.deny(ch, cmd); msg != "" {
		ch.Send(msg)
		s.Metrics.command(cmd.Name, "denied")
		return
	}
	cmd.Handler(s, ch, rest)
	s.Metrics.command(cmd.Name, "ok")
}

// deny returns the rejection message for ch running cmd, or "" if allowed.
// Usage listings use the same check, so the menu matches what runs.
func (s *System) deny(ch Character, cmd *Command) string {
	if ch.Level() < cmd.MinLevel {
		return "Huh!?"
	}
	if ch.Clan() == nil && cmd.MinRank > gamedb.RankNonMember {
		return "Only members of a clan can do that."
	}
	if rankOf(ch) < cmd.MinRank {
		return fmt.Sprintf("You must be at least %s in your clan to do that.",
			ch.Clan().RankName(cmd.MinRank))
	}
	return ""
}

func (s *System) usage(ch Character) {
	var names []string
	for i := range s.commands {
		if s.deny(ch, &s.commands[i]) == "" {
			names = append(names, s.commands[i].Name)
		}
	}
	ch.Send("Usage: clan <" + strings.Join(names, " | ") + ">")
}

// Tell sends msg to ch's clan, as the ctell command does.
func (s *System) Tell(ch Character, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tell(ch, strings.TrimSpace(msg))
}

// AttachExisting sets ch's clan to the clan that lists ch as a member,
// or clears it if none does. Hosts call it at login.
func (s *System) AttachExisting(ch Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.Roster.ClanOf(ch.Name())
	if c != nil && ch.Level() >= s.cfg.ImmortalLevel {
		log.Printf("CLAN: staff member %s is still listed in clan %s", ch.Name(), c.Name)
	}
	ch.SetClan(c)
}

// ClanName returns the name of ch's clan, or "".
func (s *System) ClanName(ch Character) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := ch.Clan(); c != nil {
		return c.Name
	}
	return ""
}

// ClanRankName returns the title ch holds in their clan, or "".
func (s *System) ClanRankName(ch Character) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := rankOf(ch)
	if r == gamedb.RankNonMember {
		return ""
	}
	return ch.Clan().RankName(r)
}

// save persists the roster after a mutation. Failures are logged by the
// roster and leave the in-memory state as is.
func (s *System) save() {
	err := s.Roster.Save()
	if errors.Is(err, ErrNoBackend) {
		return
	}
	s.Metrics.saved(err)
	s.Metrics.Update(s.Roster)
}

func (s *System) record(ch Character, clanName, action, detail string) {
	s.recordEntry(JournalEntry{
		Actor:  ch.Name(),
		Clan:   clanName,
		Action: action,
		Detail: detail,
	})
}

func (s *System) recordEntry(e JournalEntry) {
	if s.Journal == nil {
		return
	}
	e.Time = time.Now()
	if err := s.Journal.Record(e); err != nil {
		log.Printf("ERROR: clan journal: %v", err)
	}
}

// rankOf returns ch's rank in their own clan; non-members are rank 0.
func rankOf(ch Character) gamedb.Rank {
	c := ch.Clan()
	if c == nil {
		return gamedb.RankNonMember
	}
	if m := c.FindMember(ch.Name()); m != nil {
		return m.Rank
	}
	return gamedb.RankNonMember
}

// halfChop splits off the first word of s.
func halfChop(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// isAbbrev reports whether arg is a non-empty prefix of name, ignoring case.
func isAbbrev(arg, name string) bool {
	return arg != "" && len(arg) <= len(name) && strings.EqualFold(arg, name[:len(arg)])
}
