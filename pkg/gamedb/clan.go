package gamedb

import (
	"strings"
	"unicode/utf8"
)

// Rank is a member's standing within a clan. Higher is more privileged.
type Rank int

const (
	RankNonMember  Rank = iota // Not a real membership
	RankInitiate               // Newly enlisted
	RankApprentice
	RankMember
	RankMaster // May enlist, dismiss, promote and demote
	RankLeader // Runs the clan
)

// NumRanks is the number of rank slots, including the non-member slot.
const NumRanks = 6

// Length limits for names shown in clan listings.
const (
	MaxClanNameLength = 20
	MaxRankNameLength = 20
)

// defaultRankNames matches the Rank constants above.
var defaultRankNames = [NumRanks]string{"", "Initiate", "Apprentice", "Member", "Master", "Leader"}

// Valid returns true if r is a real membership rank (Initiate..Leader).
func (r Rank) Valid() bool {
	return r >= RankInitiate && r <= RankLeader
}

// DefaultName returns the built-in display name for r.
func (r Rank) DefaultName() string {
	if r < 0 || int(r) >= NumRanks {
		return ""
	}
	return defaultRankNames[r]
}

// RankName is one rank title slot. A slot either uses the built-in default
// or carries a clan-specific override; Name is ignored unless Custom is set.
type RankName struct {
	Custom bool
	Name   string
}

// Member is one player's membership in a clan.
type Member struct {
	Name string
	Rank Rank
}

// Clan is a named player group with its own rank titles and member list.
// Members keeps insertion order; succession depends on it.
type Clan struct {
	Name      string
	RankNames [NumRanks]RankName
	Members   []*Member
}

// NewClan returns a clan with default rank titles and no members.
func NewClan(name string) *Clan {
	return &Clan{Name: name}
}

// NameTooLong reports whether s exceeds the clan/rank name limit.
func NameTooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

// RankName returns the display name of rank r in this clan.
func (c *Clan) RankName(r Rank) string {
	if c == nil || r < 0 || int(r) >= NumRanks {
		return ""
	}
	if slot := c.RankNames[r]; slot.Custom {
		return slot.Name
	}
	return defaultRankNames[r]
}

// IsCustomRank reports whether rank r carries an override.
func (c *Clan) IsCustomRank(r Rank) bool {
	if r < 0 || int(r) >= NumRanks {
		return false
	}
	return c.RankNames[r].Custom
}

// SetRankName sets the display name of rank r and returns the previous one.
// Setting a name equal to the default clears the override.
func (c *Clan) SetRankName(r Rank, name string) string {
	if r < 0 || int(r) >= NumRanks {
		return ""
	}
	old := c.RankName(r)
	if name == defaultRankNames[r] {
		c.RankNames[r] = RankName{}
	} else {
		c.RankNames[r] = RankName{Custom: true, Name: name}
	}
	return old
}

// FindMember returns the member with the given name (case-insensitive), or nil.
func (c *Clan) FindMember(name string) *Member {
	for _, m := range c.Members {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}

// AddMember puts a new member at the front of the member list.
func (c *Clan) AddMember(name string, rank Rank) *Member {
	m := &Member{Name: name, Rank: rank}
	c.Members = append([]*Member{m}, c.Members...)
	return m
}

// AppendMember puts a new member at the end of the member list.
func (c *Clan) AppendMember(name string, rank Rank) *Member {
	m := &Member{Name: name, Rank: rank}
	c.Members = append(c.Members, m)
	return m
}

// RemoveMember removes m from the clan. Returns false if m is not a member.
func (c *Clan) RemoveMember(m *Member) bool {
	for i, mm := range c.Members {
		if mm == m {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return true
		}
	}
	return false
}

// CountRank returns how many members hold rank r.
func (c *Clan) CountRank(r Rank) int {
	n := 0
	for _, m := range c.Members {
		if m.Rank == r {
			n++
		}
	}
	return n
}

// Release drops all memberships and rank overrides.
func (c *Clan) Release() {
	c.Members = nil
	c.RankNames = [NumRanks]RankName{}
}
