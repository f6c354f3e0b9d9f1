package clan

import (
	"fmt"
	"log"
	"strconv"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// Handlers run with the system lock held and report only to ch.

func (s *System) create(ch Character, arg string) {
	playerName, clanName := halfChop(arg)
	var victim Character
	if clanName != "" {
		victim = s.World.FindPlayer(ch, playerName)
	}
	if victim == nil {
		ch.Send("Usage: clan create <player> <clan name>")
		return
	}
	if gamedb.NameTooLong(clanName, gamedb.MaxClanNameLength) {
		ch.Send("Name too long!")
		return
	}
	if victim.Clan() != nil {
		ch.Send("They are already in a clan.")
		return
	}
	if s.Roster.FindByName(clanName) != nil {
		ch.Send("A clan by that name already exists.")
		return
	}

	log.Printf("CLAN: %s created clan %s", ch.Name(), clanName)

	c := gamedb.NewClan(clanName)
	c.AppendMember(victim.Name(), gamedb.RankLeader)
	victim.SetClan(c)
	s.Roster.Add(c)
	s.save()
	s.record(ch, c.Name, "create", "leader "+victim.Name())

	ch.Send("Ok.")
	victim.Send(fmt.Sprintf("Congratulations. You are now in charge of the clan %s.", c.Name))
	victim.Send("See 'help clan' for more...")
}

func (s *System) disband(ch Character, arg string) {
	c := s.Roster.FindByName(arg)
	if arg == "" || c == nil {
		ch.Send("Usage: clan disband <name>")
		return
	}

	log.Printf("CLAN: %s disbanded clan %s", ch.Name(), c.Name)

	for _, sess := range s.World.Sessions() {
		other := sess.Character()
		if other == nil || other.Clan() != c {
			continue
		}
		if sess.Playing() {
			other.Send("Your clan has been disbanded!")
		}
		other.SetClan(nil)
	}

	s.Roster.Remove(c)
	s.record(ch, c.Name, "disband", "")
	c.Release()
	s.save()
	ch.Send("Ok.")
}

func (s *System) enlist(ch Character, arg string) {
	c := ch.Clan()
	victim := s.World.FindPlayerInRoom(ch, arg)
	if arg == "" || victim == nil {
		ch.Send("You don't see that person anywhere.")
		return
	}
	if victim.Clan() != nil {
		ch.Send("That person already belongs to a clan.")
		return
	}
	if victim.Level() >= s.cfg.ImmortalLevel {
		ch.Send("Well, aren't YOU funny")
		return
	}

	log.Printf("CLAN: %s enlisting %s to %s", ch.Name(), victim.Name(), c.Name)

	c.AddMember(victim.Name(), gamedb.RankInitiate)
	victim.SetClan(c)
	s.save()
	s.record(ch, c.Name, "enlist", victim.Name())

	s.tell(ch, fmt.Sprintf("Welcome the newest initiate of %s, %s!", c.Name, victim.Name()))
}

func (s *System) dismiss(ch Character, arg string) {
	c := ch.Clan()
	victim := s.World.FindPlayerInRoom(ch, arg)
	if arg == "" || victim == nil {
		ch.Send("That person is not available.")
		return
	}
	if victim.Clan() != c {
		ch.Send("They are not in your clan!")
		return
	}
	m := c.FindMember(victim.Name())
	if m == nil {
		ch.Send("They are not in your clan!")
		return
	}
	if m.Rank >= rankOf(ch) {
		ch.Send("Nice try!")
		return
	}

	log.Printf("CLAN: %s dismissed %s from %s", ch.Name(), m.Name, c.Name)

	c.RemoveMember(m)
	victim.SetClan(nil)
	s.save()
	s.record(ch, c.Name, "dismiss", m.Name)

	s.tell(ch, fmt.Sprintf("%s has been dismissed from the clan!", victim.Name()))
	victim.Send(fmt.Sprintf("%s has dismissed you from your clan.", ch.Name()))
}

func (s *System) promote(ch Character, arg string) {
	c := ch.Clan()
	m := c.FindMember(arg)
	if arg == "" || m == nil {
		ch.Send("They are not members of your clan!")
		return
	}
	if m.Rank == gamedb.RankLeader || m.Rank >= rankOf(ch) {
		ch.Send("You can not promote this person any further.")
		return
	}

	m.Rank++
	log.Printf("CLAN: %s promoted %s to rank %d in %s", ch.Name(), m.Name, m.Rank, c.Name)
	s.save()
	s.record(ch, c.Name, "promote", fmt.Sprintf("%s to %d", m.Name, m.Rank))

	s.tell(ch, fmt.Sprintf("%s has been promoted in rank to %s!", m.Name, c.RankName(m.Rank)))
}

func (s *System) demote(ch Character, arg string) {
	c := ch.Clan()
	m := c.FindMember(arg)
	if arg == "" || m == nil {
		ch.Send("They are not members of your clan!")
		return
	}
	if m.Rank == gamedb.RankInitiate || m.Rank > rankOf(ch) {
		ch.Send("You can not demote this person any further.")
		return
	}
	if m.Rank == gamedb.RankLeader && c.CountRank(gamedb.RankLeader) < 2 {
		ch.Send("A clan must always have a leader.")
		return
	}

	m.Rank--
	log.Printf("CLAN: %s demoted %s to rank %d in %s", ch.Name(), m.Name, m.Rank, c.Name)
	s.save()
	s.record(ch, c.Name, "demote", fmt.Sprintf("%s to %d", m.Name, m.Rank))

	s.tell(ch, fmt.Sprintf("%s has been demoted in rank to %s!", m.Name, c.RankName(m.Rank)))
}

func (s *System) leave(ch Character, _ string) {
	c := ch.Clan()
	m := c.FindMember(ch.Name())

	s.tell(ch, fmt.Sprintf("%s has left the clan!", ch.Name()))
	log.Printf("CLAN: %s left clan [%s]", ch.Name(), c.Name)
	s.record(ch, c.Name, "leave", "")

	if m != nil && m.Rank == gamedb.RankLeader && c.CountRank(gamedb.RankLeader) < 2 {
		if len(c.Members) == 1 {
			log.Printf("CLAN: %s left %s as last member. Disbanding it.", ch.Name(), c.Name)
			ch.SetClan(nil)
			s.Roster.Remove(c)
			c.Release()
			s.save()
			return
		}

		heir := successor(c)
		s.tell(ch, fmt.Sprintf("%s is the new clan leader!", heir.Name))
		log.Printf("CLAN: due to %s leaving, %s has been appointed new leader of %s",
			ch.Name(), heir.Name, c.Name)
		heir.Rank = gamedb.RankLeader
		s.record(ch, c.Name, "succession", heir.Name)
	}

	if m != nil {
		c.RemoveMember(m)
	}
	ch.SetClan(nil)
	s.save()
}

// successor picks the first member, in member order, holding the highest
// rank below Leader.
func successor(c *gamedb.Clan) *gamedb.Member {
	best := gamedb.RankNonMember
	for _, m := range c.Members {
		if m.Rank != gamedb.RankLeader && m.Rank > best {
			best = m.Rank
		}
	}
	for _, m := range c.Members {
		if m.Rank == best {
			return m
		}
	}
	return nil
}

func (s *System) rename(ch Character, arg string) {
	c := ch.Clan()
	if arg == "" {
		ch.Send("It must have a NAME!?!")
		return
	}
	if s.Roster.FindByName(arg) != nil {
		ch.Send("Already taken!")
		return
	}
	if gamedb.NameTooLong(arg, gamedb.MaxClanNameLength) {
		ch.Send("Name too long!")
		return
	}

	log.Printf("CLAN: %s renaming clan [%s] to [%s]", ch.Name(), c.Name, arg)
	old := c.Name
	c.Name = arg
	s.save()
	s.recordEntry(JournalEntry{
		Actor:  ch.Name(),
		Clan:   arg,
		From:   old,
		Action: "rename",
		Detail: "from " + old,
	})

	s.tell(ch, fmt.Sprintf("The clan %s is now known as %s!", old, arg))
}

func (s *System) rank(ch Character, arg string) {
	c := ch.Clan()
	num, name := halfChop(arg)
	if num == "" || name == "" {
		ch.Send("Usage: clan rank <number> <new name>")
		return
	}
	if gamedb.NameTooLong(name, gamedb.MaxRankNameLength) {
		ch.Send("Rank name too long.")
		return
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < int(gamedb.RankInitiate) || n >= int(gamedb.RankLeader) {
		ch.Send("Usage: clan rank <number> <new name>")
		return
	}
	r := gamedb.Rank(n)

	log.Printf("CLAN: %s renamed rank %d from %s to %s in clan %s",
		ch.Name(), r, c.RankName(r), name, c.Name)
	s.tell(ch, fmt.Sprintf("The rank %s is dead! Long live the rank %s!", c.RankName(r), name))

	old := c.SetRankName(r, name)
	s.save()
	s.record(ch, c.Name, "rank", fmt.Sprintf("%d %s -> %s", r, old, name))
}

func (s *System) info(ch Character, arg string) {
	var c *gamedb.Clan
	if arg != "" {
		c = s.Roster.FindByName(arg)
	} else {
		c = ch.Clan()
	}
	if c == nil {
		ch.Send("Info about which clan?")
		return
	}

	ch.Send("  " + c.Name)
	ch.Send("-----------------------")
	ch.Send(" Current members:")
	ch.Send("-----------------------")
	for _, m := range c.Members {
		ch.Send(fmt.Sprintf("[%-15s] %s", c.RankName(m.Rank), m.Name))
	}
	ch.Send("-----------------------")
	ch.Send(" Current rank names:")
	ch.Send("-----------------------")
	for r := gamedb.RankLeader; r > gamedb.RankNonMember; r-- {
		ch.Send(fmt.Sprintf("%d. %s", r, c.RankName(r)))
	}
}

func (s *System) list(ch Character, _ string) {
	clans := s.Roster.Clans()
	ch.Send("Current clans:")
	if len(clans) == 0 {
		ch.Send("  None!")
		return
	}
	for _, c := range clans {
		ch.Send(fmt.Sprintf("  %-4d %s", len(c.Members), c.Name))
	}
	ch.Send(fmt.Sprintf("    %d clan(s) in list.", len(clans)))
}

func (s *System) who(ch Character, _ string) {
	c := ch.Clan()
	ch.Send("")
	ch.Send(c.Name + " clan members online")
	ch.Send("====/=====================-")
	for _, other := range s.playing(c) {
		ch.Send(other.Name())
	}
}

// tell is the clan broadcast primitive. The sender gets their own echo;
// every other playing member sees the sender's name.
func (s *System) tell(ch Character, msg string) {
	c := ch.Clan()
	if c == nil {
		ch.Send("You need to be an initiate or higher in a clan.")
		return
	}
	if msg == "" {
		ch.Send("Tell the clan what?")
		return
	}
	for _, other := range s.playing(c) {
		if other == ch {
			other.Send(fmt.Sprintf("You tell the clan, '%s'", msg))
		} else {
			other.Send(fmt.Sprintf("%s tells the clan, '%s'", ch.Name(), msg))
		}
	}
}

// playing returns the members of c with a live session, once each.
func (s *System) playing(c *gamedb.Clan) []Character {
	var out []Character
	seen := make(map[Character]bool)
	for _, sess := range s.World.Sessions() {
		other := sess.Character()
		if !sess.Playing() || other == nil || other.Clan() != c || seen[other] {
			continue
		}
		seen[other] = true
		out = append(out, other)
	}
	return out
}
