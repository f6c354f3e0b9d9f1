package server

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// Config holds server configuration.
type Config struct {
	Port        int
	IdleTimeout time.Duration
	MaxRetries  int
	WelcomeText string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:        4000,
		IdleTimeout: 3600 * time.Second,
		MaxRetries:  3,
		WelcomeText: fmt.Sprintf(WelcomeText, DefaultGameConf().MudName),
	}
}

// ConfigFromGameConf derives listener settings from the game config.
func ConfigFromGameConf(gc *GameConf) Config {
	cfg := DefaultConfig()
	cfg.Port = gc.Port
	cfg.IdleTimeout = time.Duration(gc.IdleTimeout) * time.Second
	cfg.WelcomeText = fmt.Sprintf(WelcomeText, gc.MudName)
	return cfg
}

// Server is the main TCP game server.
type Server struct {
	Config Config
	Game   *Game

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new server instance.
func NewServer(game *Game, cfg Config) *Server {
	return &Server{
		Config: cfg,
		Game:   game,
	}
}

// Start listens on the configured port and serves until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.Port))
	if err != nil {
		return fmt.Errorf("listener: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log.Printf("Players in database: %d", s.Game.PlayerCount())
	if s.Game.Clans != nil {
		log.Printf("Clans in roster: %d", s.Game.Clans.Roster.Len())
	}
	log.Printf("Listening on port %d", s.Config.Port)
	s.acceptLoop(ln)
	return nil
}

// acceptLoop accepts connections on the given listener until it is closed.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()
	for _, d := range s.Game.Conns.AllDescriptors() {
		d.Send("The game is shutting down. Goodbye!")
		d.Close()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	id := s.Game.Conns.NextID()
	d := NewDescriptor(id, conn)
	if s.Config.MaxRetries > 0 {
		d.Retries = s.Config.MaxRetries
	}
	s.Game.Conns.Add(d)
	s.Game.Metrics.connection()

	log.Printf("[%d] New connection from %s", d.ID, d.Addr)

	defer func() {
		s.Game.DisconnectPlayer(d)
		s.Game.Conns.Remove(d)
		d.Close()
		s.Game.EventBus.Cleanup()
		log.Printf("[%d] Connection closed from %s", d.ID, d.Addr)
	}()

	d.SendNoNewline(s.Config.WelcomeText)

	scanner := bufio.NewScanner(d.Conn)
	scanner.Buffer(make([]byte, 8192), 8192)

	for {
		if s.Config.IdleTimeout > 0 {
			d.Conn.SetReadDeadline(time.Now().Add(s.Config.IdleTimeout))
		}
		if !scanner.Scan() {
			var ne net.Error
			if errors.As(scanner.Err(), &ne) && ne.Timeout() {
				d.Send("You have been idle too long. Goodbye!")
			}
			return
		}
		if d.IsClosed() {
			return
		}

		line := strings.TrimRight(scanner.Text(), "\r\n")
		d.Touch(time.Now())

		if d.State() == ConnLogin {
			s.handleLoginCommand(d, line)
		} else {
			DispatchCommand(s.Game, d, line)
		}

		if d.IsClosed() {
			return
		}
	}
}

func (s *Server) handleLoginCommand(d *Descriptor, input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	upper := strings.ToUpper(input)
	if upper == "QUIT" {
		d.Send("Goodbye!")
		d.Close()
		return
	}
	if upper == "WHO" {
		s.Game.ShowWho(d)
		return
	}

	command, user, password := ParseConnect(input)

	switch {
	case strings.HasPrefix(command, "co"): // connect
		s.handleConnect(d, user, password)
	case strings.HasPrefix(command, "cr"): // create
		s.handleCreate(d, user, password)
	default:
		d.Send("Commands: connect, create, WHO, QUIT")
	}
}

func (s *Server) handleConnect(d *Descriptor, user, password string) {
	if user == "" {
		d.Send("Usage: connect <name> <password>")
		return
	}

	p := s.Game.LookupPlayer(user)
	if p == nil || !CheckPassword(p.Record, password) {
		d.Send("Either that player does not exist, or has a different password.")
		d.Retries--
		if d.Retries <= 0 {
			d.Send("Too many failed attempts. Disconnecting.")
			d.Close()
		}
		return
	}

	s.Game.LoginPlayer(d, p)
	log.Printf("[%d] Player %s connected from %s", d.ID, p.Name(), d.Addr)
	d.Send(fmt.Sprintf("Welcome back, %s!", p.Name()))
	cmdLook(s.Game, d, "")
}

func (s *Server) handleCreate(d *Descriptor, user, password string) {
	if user == "" || password == "" {
		d.Send("Usage: create <name> <password>")
		return
	}

	p, err := s.Game.CreatePlayer(user, password)
	if err != nil {
		var le loginError
		if errors.As(err, &le) {
			d.Send(le.Error())
			return
		}
		log.Printf("ERROR: creating player %s: %v", user, err)
		d.Send("Could not create that character.")
		return
	}

	s.Game.LoginPlayer(d, p)
	log.Printf("[%d] Player %s created from %s", d.ID, p.Name(), d.Addr)
	d.Send(fmt.Sprintf("Welcome, %s!", p.Name()))
	cmdLook(s.Game, d, "")
}
