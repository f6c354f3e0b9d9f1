package clan

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

type GovernanceSuite struct {
	suite.Suite

	backend *memBackend
	journal *fakeJournal
	world   *fakeWorld
	sys     *System

	imm, alice, bob, carol, dave, eve, frank *fakeChar
}

func TestGovernanceSuite(t *testing.T) {
	suite.Run(t, new(GovernanceSuite))
}

func (s *GovernanceSuite) SetupTest() {
	s.backend = &memBackend{}
	s.journal = &fakeJournal{}
	s.world = &fakeWorld{}
	s.sys = New(NewRoster(s.backend), s.world, DefaultConfig())
	s.sys.Journal = s.journal

	s.imm = s.world.connect("Imm", 33, "square")
	s.alice = s.world.connect("Alice", 10, "square")
	s.bob = s.world.connect("Bob", 10, "square")
	s.carol = s.world.connect("Carol", 10, "square")
	s.dave = s.world.connect("Dave", 10, "square")
	s.eve = s.world.connect("Eve", 40, "square")
	s.frank = s.world.connect("Frank", 10, "tower")
}

func (s *GovernanceSuite) run(ch *fakeChar, line string) string {
	ch.reset()
	s.sys.Dispatch(ch, line)
	return ch.last()
}

// ravens builds a clan with the given members, in order, and wires
// each character's back reference.
func (s *GovernanceSuite) ravens(members ...any) *gamedb.Clan {
	c := gamedb.NewClan("Ravens")
	for i := 0; i < len(members); i += 2 {
		ch := members[i].(*fakeChar)
		c.AppendMember(ch.name, members[i+1].(gamedb.Rank))
		ch.clan = c
	}
	s.sys.Roster.Add(c)
	return c
}

func (s *GovernanceSuite) rankOf(c *gamedb.Clan, name string) gamedb.Rank {
	m := c.FindMember(name)
	if m == nil {
		return gamedb.RankNonMember
	}
	return m.Rank
}

func (s *GovernanceSuite) TestAbbreviationFirstMatchWins() {
	cases := map[string]string{
		"d":    "demote",
		"D":    "demote",
		"di":   "dismiss",
		"disb": "disband",
		"l":    "list",
		"le":   "leave",
		"r":    "rank",
		"ren":  "rename",
		"c":    "create",
		"w":    "who",
	}
	for word, want := range cases {
		cmd := s.sys.Lookup(word)
		if s.NotNil(cmd, word) {
			s.Equal(want, cmd.Name, "clan %s", word)
		}
	}
	s.Nil(s.sys.Lookup("x"))
	s.Nil(s.sys.Lookup("demoted"))
	s.Nil(s.sys.Lookup(""))
}

func (s *GovernanceSuite) TestAuthorizationLayering() {
	// Members-only wins over the rank check for non-members.
	s.Equal("Only members of a clan can do that.", s.run(s.bob, "promote alice"))
	s.Equal("Only members of a clan can do that.", s.run(s.bob, "d alice"))
	// Level comes first.
	s.Equal("Huh!?", s.run(s.bob, "create bob Wolves"))
	s.Equal("Huh!?", s.run(s.bob, "disband Ravens"))

	s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankInitiate)
	s.Equal("You must be at least Master in your clan to do that.", s.run(s.bob, "enlist carol"))
	s.Equal("You must be at least Leader in your clan to do that.", s.run(s.bob, "rename Crows"))
}

func (s *GovernanceSuite) TestRankRejectionUsesClanTitles() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankInitiate)
	c.SetRankName(gamedb.RankMaster, "Elder")
	s.Equal("You must be at least Elder in your clan to do that.", s.run(s.bob, "promote bob"))
}

func (s *GovernanceSuite) TestUsageMatchesPermissions() {
	s.Equal("Usage: clan <info | list>", s.run(s.bob, ""))
	s.Equal("Usage: clan <info | list>", s.run(s.bob, "frobnicate"))
	s.Equal("Usage: clan <create | disband | info | list>", s.run(s.imm, ""))

	s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankInitiate, s.carol, gamedb.RankMaster)
	s.Equal("Usage: clan <info | list | leave | tell | who>", s.run(s.bob, ""))
	s.Equal("Usage: clan <enlist | demote | dismiss | info | list | leave | promote | tell | who>", s.run(s.carol, ""))
	s.Equal("Usage: clan <enlist | demote | dismiss | info | list | leave | promote | rank | rename | tell | who>",
		s.run(s.alice, ""))

	for _, ch := range []*fakeChar{s.imm, s.alice, s.bob, s.carol, s.dave} {
		usage := s.run(ch, "")
		listed := strings.Split(strings.TrimSuffix(strings.TrimPrefix(usage, "Usage: clan <"), ">"), " | ")
		for _, cmd := range s.sys.Commands() {
			allowed := s.sys.deny(ch, &cmd) == ""
			s.Equal(allowed, contains(listed, cmd.Name), "%s / %s", ch.name, cmd.Name)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (s *GovernanceSuite) TestCreate() {
	s.Equal("Ok.", s.run(s.imm, "create alice Ravens"))
	c := s.sys.Roster.FindByName("ravens")
	s.Require().NotNil(c)
	s.Same(c, s.alice.clan)
	s.Equal(gamedb.RankLeader, s.rankOf(c, "Alice"))
	s.Contains(s.alice.lines[0], "You are now in charge of the clan Ravens.")
	s.Equal(1, s.backend.saves)

	s.Equal("A clan by that name already exists.", s.run(s.imm, "create bob RAVENS"))
	s.Equal("They are already in a clan.", s.run(s.imm, "create alice Crows"))
	s.Equal("Usage: clan create <player> <clan name>", s.run(s.imm, "create bob"))
	s.Equal("Usage: clan create <player> <clan name>", s.run(s.imm, "create nobody Crows"))
	s.Equal(1, s.sys.Roster.Len())

	s.Equal("Name too long!", s.run(s.imm, "create bob "+strings.Repeat("x", 21)))
	s.Equal("Ok.", s.run(s.imm, "create bob "+strings.Repeat("x", 20)))
	s.Equal(2, s.sys.Roster.Len())
	s.Equal("Ok.", s.run(s.imm, "create carol Black Wings"))
	s.Equal("Black Wings", s.carol.clan.Name)

	if s.Len(s.journal.entries, 3) {
		s.Equal("create", s.journal.entries[0].Action)
		s.Equal("Imm", s.journal.entries[0].Actor)
		s.Equal("Ravens", s.journal.entries[0].Clan)
	}
}

func (s *GovernanceSuite) TestEnlistDismissRoundTrip() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.carol, gamedb.RankMember)

	s.Equal("You tell the clan, 'Welcome the newest initiate of Ravens, Bob!'", s.run(s.alice, "enlist bob"))
	s.Same(c, s.bob.clan)
	s.Equal(gamedb.RankInitiate, s.rankOf(c, "Bob"))
	s.Equal("Bob", c.Members[0].Name, "enlist prepends")
	s.Equal("Alice tells the clan, 'Welcome the newest initiate of Ravens, Bob!'", s.bob.last())
	s.Equal("Alice tells the clan, 'Welcome the newest initiate of Ravens, Bob!'", s.carol.last())

	s.bob.reset()
	s.Equal("You tell the clan, 'Bob has been dismissed from the clan!'", s.run(s.alice, "dismiss bob"))
	s.Nil(s.bob.clan)
	s.Nil(c.FindMember("Bob"))
	s.Equal([]string{"Alice has dismissed you from your clan."}, s.bob.lines)
	s.Len(c.Members, 2)
}

func (s *GovernanceSuite) TestEnlistRejections() {
	s.ravens(s.alice, gamedb.RankLeader)
	s.world.connect("Gil", 10, "square").clan = gamedb.NewClan("Wolves")

	s.Equal("You don't see that person anywhere.", s.run(s.alice, "enlist frank"))
	s.Equal("You don't see that person anywhere.", s.run(s.alice, "enlist"))
	s.Equal("That person already belongs to a clan.", s.run(s.alice, "enlist gil"))
	s.Equal("Well, aren't YOU funny", s.run(s.alice, "enlist eve"))
	s.Equal(0, s.backend.saves)
}

func (s *GovernanceSuite) TestDismissRejections() {
	c := s.ravens(s.alice, gamedb.RankMaster, s.bob, gamedb.RankMaster, s.carol, gamedb.RankLeader, s.frank, gamedb.RankInitiate)

	s.Equal("That person is not available.", s.run(s.alice, "dismiss frank"))
	s.Equal("They are not in your clan!", s.run(s.alice, "dismiss dave"))
	s.Equal("Nice try!", s.run(s.alice, "dismiss bob"))
	s.Equal("Nice try!", s.run(s.alice, "dismiss carol"))
	s.Equal("Nice try!", s.run(s.alice, "dismiss alice"))
	s.Len(c.Members, 4)
}

func (s *GovernanceSuite) TestPromoteDemoteInverse() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankMember)

	s.Equal("You tell the clan, 'Bob has been promoted in rank to Master!'", s.run(s.alice, "promote bob"))
	s.Equal(gamedb.RankMaster, s.rankOf(c, "Bob"))
	s.Equal("You tell the clan, 'Bob has been demoted in rank to Member!'", s.run(s.alice, "demote Bob"))
	s.Equal(gamedb.RankMember, s.rankOf(c, "Bob"))
	s.Equal(2, s.backend.saves)
}

func (s *GovernanceSuite) TestPromoteDemoteBoundaries() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankMaster, s.carol, gamedb.RankMaster, s.dave, gamedb.RankInitiate)

	s.Equal("They are not members of your clan!", s.run(s.bob, "promote frank"))
	s.Equal("You can not promote this person any further.", s.run(s.bob, "promote carol"))
	s.Equal("You can not demote this person any further.", s.run(s.bob, "demote alice"))
	s.Equal("You can not demote this person any further.", s.run(s.bob, "demote dave"))
	s.Equal("A clan must always have a leader.", s.run(s.alice, "demote alice"))
	s.Equal("You can not promote this person any further.", s.run(s.alice, "promote alice"))

	// A master may demote a peer.
	s.run(s.bob, "demote carol")
	s.Equal(gamedb.RankMember, s.rankOf(c, "Carol"))

	// With two leaders one may step down.
	s.run(s.alice, "promote bob")
	s.Equal(gamedb.RankLeader, s.rankOf(c, "Bob"))
	s.run(s.alice, "demote alice")
	s.Equal(gamedb.RankMaster, s.rankOf(c, "Alice"))
	s.Equal(1, c.CountRank(gamedb.RankLeader))
}

func (s *GovernanceSuite) TestLeaveSuccession() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankMember, s.dave, gamedb.RankApprentice)

	s.run(s.alice, "leave")
	s.Nil(s.alice.clan)
	s.Nil(c.FindMember("Alice"))
	s.Equal(gamedb.RankLeader, s.rankOf(c, "Bob"))
	s.Equal(gamedb.RankApprentice, s.rankOf(c, "Dave"))
	s.Len(c.Members, 2)
	s.Same(c, s.sys.Roster.FindByName("Ravens"))
	s.Contains(s.dave.lines, "Alice tells the clan, 'Alice has left the clan!'")
	s.Contains(s.dave.lines, "Alice tells the clan, 'Bob is the new clan leader!'")
}

func (s *GovernanceSuite) TestLeaveSuccessionTieBreak() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.carol, gamedb.RankMember, s.bob, gamedb.RankMember, s.dave, gamedb.RankInitiate)

	s.run(s.alice, "leave")
	s.Equal(gamedb.RankLeader, s.rankOf(c, "Carol"), "first in member order wins")
	s.Equal(gamedb.RankMember, s.rankOf(c, "Bob"))
}

func (s *GovernanceSuite) TestLeaveWithOtherLeader() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankLeader, s.dave, gamedb.RankMaster)

	s.run(s.alice, "leave")
	s.Equal(gamedb.RankMaster, s.rankOf(c, "Dave"), "no succession while another leader remains")
	s.Equal(1, c.CountRank(gamedb.RankLeader))
}

func (s *GovernanceSuite) TestSoleMemberLeaveDisbands() {
	s.ravens(s.alice, gamedb.RankLeader)

	s.run(s.alice, "leave")
	s.Nil(s.alice.clan)
	s.Nil(s.sys.Roster.FindByName("Ravens"))
	s.Empty(s.backend.clans)

	s.run(s.bob, "list")
	s.Equal([]string{"Current clans:", "  None!"}, s.bob.lines)
}

func (s *GovernanceSuite) TestRankRename() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankInitiate)

	s.Equal("You tell the clan, 'The rank Master is dead! Long live the rank Elder!'", s.run(s.alice, "rank 4 Elder"))
	s.Equal("Elder", c.RankName(gamedb.RankMaster))
	s.True(c.IsCustomRank(gamedb.RankMaster))

	s.run(s.alice, "rank 1 Green Horn")
	s.Equal("Green Horn", c.RankName(gamedb.RankInitiate))

	for _, arg := range []string{"rank 5 Boss", "rank 0 Nobody", "rank 6 Emperor", "rank x Elder", "rank 4", "rank"} {
		s.Equal("Usage: clan rank <number> <new name>", s.run(s.alice, arg), arg)
	}
	s.Equal("Leader", c.RankName(gamedb.RankLeader))

	s.Equal("Rank name too long.", s.run(s.alice, "rank 3 "+strings.Repeat("y", 21)))
	s.run(s.alice, "rank 3 "+strings.Repeat("y", 20))
	s.Equal(strings.Repeat("y", 20), c.RankName(gamedb.RankMember))

	s.run(s.alice, "rank 4 Master")
	s.False(c.IsCustomRank(gamedb.RankMaster), "default name clears the override")
}

func (s *GovernanceSuite) TestRename() {
	c := s.ravens(s.alice, gamedb.RankLeader)
	other := gamedb.NewClan("Wolves")
	s.sys.Roster.Add(other)

	s.Equal("It must have a NAME!?!", s.run(s.alice, "rename"))
	s.Equal("Already taken!", s.run(s.alice, "rename WOLVES"))
	s.Equal("Name too long!", s.run(s.alice, "rename "+strings.Repeat("z", 21)))
	s.Equal("Ravens", c.Name)

	s.run(s.alice, "rename "+strings.Repeat("z", 20))
	s.Equal(strings.Repeat("z", 20), c.Name)
	s.Same(c, s.sys.Roster.FindByName(strings.Repeat("Z", 20)))

	if s.Len(s.journal.entries, 1) {
		e := s.journal.entries[0]
		s.Equal("rename", e.Action)
		s.Equal("Ravens", e.From)
		s.Equal(strings.Repeat("z", 20), e.Clan)
	}
}

func (s *GovernanceSuite) TestDisband() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankMember)
	s.world.sessions[2].playing = false // Bob is mid-login

	s.Equal("Usage: clan disband <name>", s.run(s.imm, "disband"))
	s.Equal("Usage: clan disband <name>", s.run(s.imm, "disband Crows"))

	s.Equal("Ok.", s.run(s.imm, "disband ravens"))
	s.Nil(s.alice.clan)
	s.Nil(s.bob.clan)
	s.Equal("Your clan has been disbanded!", s.alice.last())
	s.Empty(s.bob.lines, "non-playing sessions are not notified")
	s.Equal(0, s.sys.Roster.Len())
	s.Empty(c.Members)
}

func (s *GovernanceSuite) TestTell() {
	s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankInitiate, s.carol, gamedb.RankMember)
	s.world.sessions[3].playing = false // Carol

	s.sys.Tell(s.dave, "hello")
	s.Equal("You need to be an initiate or higher in a clan.", s.dave.last())

	s.Equal("Tell the clan what?", s.run(s.bob, "tell   "))

	s.Equal("You tell the clan, 'caw caw'", s.run(s.bob, "tell caw caw"))
	s.Equal("Bob tells the clan, 'caw caw'", s.alice.last())
	s.Empty(s.carol.lines)
	s.Empty(s.dave.lines[1:])
}

func (s *GovernanceSuite) TestTellReachesEachMemberOnce() {
	s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankInitiate)
	// Alice has a second connection.
	s.world.sessions = append(s.world.sessions, &fakeSession{ch: s.alice, playing: true})
	s.alice.reset()

	s.run(s.bob, "tell hi")
	s.Equal([]string{"Bob tells the clan, 'hi'"}, s.alice.lines)

	s.run(s.bob, "who")
	s.Equal([]string{"", "Ravens clan members online", "====/=====================-", "Alice", "Bob"}, s.bob.lines)
}

func (s *GovernanceSuite) TestInfoListWho() {
	c := s.ravens(s.alice, gamedb.RankLeader, s.bob, gamedb.RankInitiate)
	c.SetRankName(gamedb.RankInitiate, "Fledgling")
	s.sys.Roster.Add(gamedb.NewClan("Wolves"))
	s.world.sessions[2].playing = false // Bob

	s.run(s.alice, "info")
	s.Equal([]string{
		"  Ravens",
		"-----------------------",
		" Current members:",
		"-----------------------",
		"[Leader         ] Alice",
		"[Fledgling      ] Bob",
		"-----------------------",
		" Current rank names:",
		"-----------------------",
		"5. Leader",
		"4. Master",
		"3. Member",
		"2. Apprentice",
		"1. Fledgling",
	}, s.alice.lines)

	s.Equal("Info about which clan?", s.run(s.dave, "info"))
	s.Equal("Info about which clan?", s.run(s.dave, "info Crows"))
	s.run(s.dave, "info wolves")
	s.Equal("  Wolves", s.dave.lines[0])

	s.run(s.dave, "list")
	s.Equal([]string{"Current clans:", "  2    Ravens", "  0    Wolves", "    2 clan(s) in list."}, s.dave.lines)

	s.run(s.alice, "who")
	s.Equal([]string{"", "Ravens clan members online", "====/=====================-", "Alice"}, s.alice.lines)
}

func (s *GovernanceSuite) TestAttachExisting() {
	c := s.ravens(s.alice, gamedb.RankLeader)
	s.alice.clan = nil
	s.bob.clan = c

	s.sys.AttachExisting(s.alice)
	s.sys.AttachExisting(s.bob)
	s.Same(c, s.alice.clan)
	s.Nil(s.bob.clan)

	s.Equal("Ravens", s.sys.ClanName(s.alice))
	s.Equal("Leader", s.sys.ClanRankName(s.alice))
	s.Equal("", s.sys.ClanName(s.bob))
	s.Equal("", s.sys.ClanRankName(s.bob))
}

func (s *GovernanceSuite) TestSaveFailureKeepsMemoryState() {
	s.backend.saveErr = errDiskFull
	s.Equal("Ok.", s.run(s.imm, "create alice Ravens"))
	s.NotNil(s.sys.Roster.FindByName("Ravens"))
	s.NotNil(s.alice.clan)
}

func (s *GovernanceSuite) TestFailedLoadProtectsStore() {
	stored := []*gamedb.Clan{gamedb.NewClan("Crows")}
	s.backend.clans = stored
	s.backend.loadErr = errDiskFull
	s.Error(s.sys.Roster.Load())

	s.Equal("Ok.", s.run(s.imm, "create alice Ravens"))
	s.NotNil(s.sys.Roster.FindByName("Ravens"))
	s.Equal(0, s.backend.saves, "nothing written over the unread store")
	s.Equal(stored, s.backend.clans)
}

func TestMetricsCountCommands(t *testing.T) {
	reg := prometheus.NewRegistry()
	world := &fakeWorld{}
	sys := New(NewRoster(&memBackend{}), world, DefaultConfig())
	sys.Metrics = NewMetrics(reg)

	imm := world.connect("Imm", 33, "square")
	world.connect("Alice", 10, "square")
	bob := world.connect("Bob", 10, "square")

	sys.Dispatch(imm, "create alice Ravens")
	sys.Dispatch(bob, "promote alice")
	sys.Dispatch(bob, "")

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			// Labels arrive sorted by name: result, subcommand.
			for _, lp := range m.GetLabel() {
				key += "/" + lp.GetValue()
			}
			if c := m.GetCounter(); c != nil {
				got[key] = c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				got[key] = g.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, got["goclans_clan_commands_total/ok/create"])
	assert.Equal(t, 1.0, got["goclans_clan_commands_total/denied/promote"])
	assert.Equal(t, 1.0, got["goclans_clan_commands_total/usage/"])
	assert.Equal(t, 1.0, got["goclans_clan_saves_total/ok"])
	assert.Equal(t, 1.0, got["goclans_clans"])
	assert.Equal(t, 1.0, got["goclans_clan_members"])
}
