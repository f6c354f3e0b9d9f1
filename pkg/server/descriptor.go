package server

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/goclans/pkg/clan"
	"github.com/crystal-mush/goclans/pkg/events"
)

// ConnState tracks the state of a connection.
type ConnState int

const (
	ConnLogin     ConnState = iota // Pre-login: awaiting connect/create
	ConnConnected                  // Logged in as a player
)

// Descriptor represents a single client connection.
// It implements events.Subscriber so it can receive events from the bus,
// and clan.Session so clan broadcasts can walk live connections.
type Descriptor struct {
	ID       int
	Conn     net.Conn
	Addr     string
	ConnTime time.Time
	Retries  int

	mu        sync.Mutex // guards writes to Conn
	closed    bool
	bytesSent int

	// state and player are read by broadcasts from other connections,
	// so they sit under their own lock rather than the write lock.
	stateMu  sync.RWMutex
	state    ConnState
	player   *Player // nil until login
	lastCmd  time.Time
	cmdCount int
}

// NewDescriptor wraps a net.Conn into a Descriptor.
func NewDescriptor(id int, conn net.Conn) *Descriptor {
	now := time.Now()
	addr := "unknown"
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Descriptor{
		ID:       id,
		Conn:     conn,
		state:    ConnLogin,
		Addr:     addr,
		ConnTime: now,
		lastCmd:  now,
		Retries:  3,
	}
}

// Send writes a line to the client connection.
func (d *Descriptor) Send(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	// Ensure lines end with \r\n for telnet
	if !strings.HasSuffix(msg, "\n") {
		msg += "\r\n"
	}
	d.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	n, _ := d.Conn.Write([]byte(msg))
	d.bytesSent += n
}

// SendNoNewline writes a string without appending a newline.
func (d *Descriptor) SendNoNewline(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	n, _ := d.Conn.Write([]byte(msg))
	d.bytesSent += n
}

// Close shuts down the connection.
func (d *Descriptor) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.Conn.Close()
	}
}

// IsClosed returns whether the connection has been closed.
func (d *Descriptor) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Receive implements events.Subscriber.
func (d *Descriptor) Receive(ev events.Event) {
	if ev.Text != "" {
		d.Send(ev.Text)
	}
}

// Closed implements events.Subscriber.
func (d *Descriptor) Closed() bool {
	return d.IsClosed()
}

// Player returns the logged-in player, or nil before login.
func (d *Descriptor) Player() *Player {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.player
}

// State returns the connection state.
func (d *Descriptor) State() ConnState {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state
}

func (d *Descriptor) login(p *Player) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.state = ConnConnected
	d.player = p
}

// Touch marks input received at t. Commands from a logged-in player count
// toward the session total.
func (d *Descriptor) Touch(t time.Time) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.lastCmd = t
	if d.state == ConnConnected {
		d.cmdCount++
	}
}

// Idle returns how long the connection has gone without input.
func (d *Descriptor) Idle(now time.Time) time.Duration {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return now.Sub(d.lastCmd)
}

// Stats returns the commands entered and bytes sent on this connection.
func (d *Descriptor) Stats() (commands, bytes int) {
	d.stateMu.RLock()
	commands = d.cmdCount
	d.stateMu.RUnlock()
	d.mu.Lock()
	bytes = d.bytesSent
	d.mu.Unlock()
	return commands, bytes
}

// Character implements clan.Session.
func (d *Descriptor) Character() clan.Character {
	if p := d.Player(); p != nil {
		return p
	}
	return nil
}

// Playing implements clan.Session. Only logged-in, open connections play.
func (d *Descriptor) Playing() bool {
	return d.State() == ConnConnected && !d.IsClosed()
}

var (
	_ events.Subscriber = (*Descriptor)(nil)
	_ clan.Session      = (*Descriptor)(nil)
)

// ConnManager tracks all active connections.
type ConnManager struct {
	mu          sync.RWMutex
	descriptors map[int]*Descriptor
	nextID      int
	byPlayer    map[string][]*Descriptor // lowercase player name -> connections (multi-login)
	EventBus    *events.Bus              // Event bus for pub/sub (nil = disabled)
}

// NewConnManager creates a new connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		descriptors: make(map[int]*Descriptor),
		byPlayer:    make(map[string][]*Descriptor),
		nextID:      1,
	}
}

// Add registers a new descriptor.
func (cm *ConnManager) Add(d *Descriptor) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.descriptors[d.ID] = d
}

// Remove unregisters a descriptor and unsubscribes it from the event bus.
func (cm *ConnManager) Remove(d *Descriptor) {
	p := d.Player()
	if cm.EventBus != nil && p != nil {
		cm.EventBus.Unsubscribe(p.Name(), d)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.descriptors, d.ID)
	if p != nil {
		key := strings.ToLower(p.Name())
		descs := cm.byPlayer[key]
		for i, dd := range descs {
			if dd.ID == d.ID {
				cm.byPlayer[key] = append(descs[:i], descs[i+1:]...)
				break
			}
		}
		if len(cm.byPlayer[key]) == 0 {
			delete(cm.byPlayer, key)
		}
	}
}

// Login associates a descriptor with a player and subscribes it to the event bus.
func (cm *ConnManager) Login(d *Descriptor, p *Player) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	d.login(p)
	key := strings.ToLower(p.Name())
	cm.byPlayer[key] = append(cm.byPlayer[key], d)

	if cm.EventBus != nil {
		cm.EventBus.Subscribe(p.Name(), d)
	}
}

// NextID returns the next descriptor ID.
func (cm *ConnManager) NextID() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	id := cm.nextID
	cm.nextID++
	return id
}

// GetByPlayer returns all descriptors for a given player.
func (cm *ConnManager) GetByPlayer(name string) []*Descriptor {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return append([]*Descriptor(nil), cm.byPlayer[strings.ToLower(name)]...)
}

// PlayerNames returns the lowercase names of every logged-in player.
func (cm *ConnManager) PlayerNames() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	names := make([]string, 0, len(cm.byPlayer))
	for name := range cm.byPlayer {
		names = append(names, name)
	}
	return names
}

// IsConnected returns true if the player has at least one active connection.
func (cm *ConnManager) IsConnected(name string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.byPlayer[strings.ToLower(name)]) > 0
}

// AllDescriptors returns every descriptor in connection order.
func (cm *ConnManager) AllDescriptors() []*Descriptor {
	cm.mu.RLock()
	result := make([]*Descriptor, 0, len(cm.descriptors))
	for _, d := range cm.descriptors {
		result = append(result, d)
	}
	cm.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of active descriptors.
func (cm *ConnManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.descriptors)
}

// PlayerCount returns the number of distinct logged-in players.
func (cm *ConnManager) PlayerCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.byPlayer)
}

// FormatIdleTime formats a duration as a human-readable idle time.
func FormatIdleTime(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	if secs < 3600 {
		return fmt.Sprintf("%dm", secs/60)
	}
	if secs < 86400 {
		return fmt.Sprintf("%dh", secs/3600)
	}
	return fmt.Sprintf("%dd", secs/86400)
}

// FormatConnTime formats a duration as connection time.
func FormatConnTime(d time.Duration) string {
	secs := int(d.Seconds())
	hours := secs / 3600
	mins := (secs % 3600) / 60
	return fmt.Sprintf("%02d:%02d", hours, mins)
}
