package server

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// CommandHandler runs one command for a logged-in descriptor.
type CommandHandler func(g *Game, d *Descriptor, args string)

// Command is one entry in the command table.
type Command struct {
	Name    string
	Handler CommandHandler
}

// InitCommands registers all available game commands.
func InitCommands() map[string]*Command {
	cmds := make(map[string]*Command)
	reg := func(name string, h CommandHandler) {
		cmds[name] = &Command{Name: name, Handler: h}
	}
	reg("clan", cmdClan)
	reg("ctell", cmdClanTell)
	reg("who", cmdWho)
	reg("score", cmdScore)
	reg("look", cmdLook)
	reg("goto", cmdGoto)
	reg("quit", cmdQuit)
	return cmds
}

// DispatchCommand parses and executes a command from a connected player.
func DispatchCommand(g *Game, d *Descriptor, input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}
	g.Metrics.command()

	var cmdName, args string
	if spaceIdx := strings.IndexByte(input, ' '); spaceIdx >= 0 {
		cmdName = input[:spaceIdx]
		args = strings.TrimSpace(input[spaceIdx+1:])
	} else {
		cmdName = input
	}

	if cmd, ok := g.Commands[strings.ToLower(cmdName)]; ok {
		cmd.Handler(g, d, args)
		return
	}
	d.Send("Huh?  (Commands: clan, ctell, who, score, look, goto, quit)")
}

func cmdClan(g *Game, d *Descriptor, args string) {
	if g.Clans == nil {
		d.Send("Clans are not available.")
		return
	}
	g.Clans.Dispatch(d.Player(), args)
}

func cmdClanTell(g *Game, d *Descriptor, args string) {
	if g.Clans == nil {
		d.Send("Clans are not available.")
		return
	}
	g.Clans.Tell(d.Player(), args)
}

func cmdWho(g *Game, d *Descriptor, _ string) {
	g.ShowWho(d)
}

// ShowWho lists connected players with their clan and clan rank.
func (g *Game) ShowWho(d *Descriptor) {
	now := time.Now()
	d.Send(fmt.Sprintf("%-16s%9s %4s  %-20s %s", "Player Name", "On For", "Idle", "Clan", "Rank"))
	count := 0
	for _, dd := range g.Conns.AllDescriptors() {
		if !dd.Playing() {
			continue
		}
		p := dd.Player()
		count++
		clanName, rankName := "", ""
		if g.Clans != nil {
			clanName = g.Clans.ClanName(p)
			rankName = g.Clans.ClanRankName(p)
		}
		d.Send(fmt.Sprintf("%-16s%9s %4s  %-20s %s",
			p.Name(),
			FormatConnTime(now.Sub(dd.ConnTime)),
			FormatIdleTime(dd.Idle(now)),
			clanName, rankName))
	}
	d.Send(fmt.Sprintf("%d player(s) logged in.", count))
}

func cmdScore(g *Game, d *Descriptor, _ string) {
	p := d.Player()
	d.Send(fmt.Sprintf("You are %s, level %d.", p.Name(), p.Level()))
	d.Send(fmt.Sprintf("You are standing in %s.", p.Room()))
	if g.Clans == nil {
		return
	}
	if name := g.Clans.ClanName(p); name != "" {
		d.Send(fmt.Sprintf("You are %s of the clan %s.", g.Clans.ClanRankName(p), name))
	} else {
		d.Send("You are not a member of any clan.")
	}
}

func cmdLook(g *Game, d *Descriptor, _ string) {
	me := d.Player()
	room := me.Room()
	d.Send(room)
	var here []string
	for _, dd := range g.Conns.AllDescriptors() {
		if !dd.Playing() {
			continue
		}
		if p := dd.Player(); p != me && strings.EqualFold(p.Room(), room) {
			here = append(here, p.Name())
		}
	}
	if len(here) > 0 {
		d.Send("Also here: " + strings.Join(here, ", "))
	}
}

func cmdGoto(g *Game, d *Descriptor, args string) {
	if args == "" {
		d.Send("Go where?")
		return
	}
	p := d.Player()
	p.setRoom(args)
	g.SavePlayer(p)
	log.Printf("[%d] %s moved to %s", d.ID, p.Name(), args)
	cmdLook(g, d, "")
}

func cmdQuit(_ *Game, d *Descriptor, _ string) {
	d.Send("Goodbye!")
	d.Close()
}
