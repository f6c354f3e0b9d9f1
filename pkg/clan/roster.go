package clan

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

var (
	// ErrNoBackend is returned by Load and Save on a roster without storage.
	ErrNoBackend = errors.New("clans: no storage backend")

	// ErrStoreUnreadable is returned by Save after Load failed on an
	// existing store. The store is left as it was found.
	ErrStoreUnreadable = errors.New("clans: store could not be read, changes kept in memory only")
)

// Backend persists the whole roster at once.
type Backend interface {
	Load() ([]*gamedb.Clan, error)
	Save(clans []*gamedb.Clan) error
}

// Roster is the in-memory set of all clans, kept in roster order.
type Roster struct {
	mu         sync.RWMutex
	clans      []*gamedb.Clan
	backend    Backend
	unreadable bool // last Load failed on an existing store
}

// NewRoster returns an empty roster backed by b. A nil backend keeps
// the roster in memory only.
func NewRoster(b Backend) *Roster {
	return &Roster{backend: b}
}

// Load replaces the roster with the stored clans. A missing store yields
// an empty roster and no error. Any other failure also leaves the roster
// empty, logs and returns the error, and blocks Save until a later Load
// succeeds.
func (r *Roster) Load() error {
	if r.backend == nil {
		return ErrNoBackend
	}
	clans, err := r.backend.Load()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clans = nil
	r.unreadable = false

	if errors.Is(err, os.ErrNotExist) {
		log.Printf("clans: no clan file yet, starting empty")
		return nil
	}
	if err != nil {
		r.unreadable = true
		log.Printf("SYSERR: loading clans: %v", err)
		return fmt.Errorf("clans: load: %w", err)
	}
	r.clans = clans
	log.Printf("clans: loaded %d clans", len(clans))
	return nil
}

// Save writes the full roster through the backend. On failure the
// in-memory state is unchanged.
func (r *Roster) Save() error {
	if r.backend == nil {
		return ErrNoBackend
	}
	r.mu.RLock()
	if r.unreadable {
		r.mu.RUnlock()
		log.Printf("SYSERR: clans: not saving over a store that failed to load")
		return ErrStoreUnreadable
	}
	snapshot := append([]*gamedb.Clan(nil), r.clans...)
	err := r.backend.Save(snapshot)
	r.mu.RUnlock()
	if err != nil {
		log.Printf("SYSERR: saving clans: %v", err)
		return fmt.Errorf("clans: save: %w", err)
	}
	return nil
}

// Release drops every clan and membership.
func (r *Roster) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clans {
		c.Release()
	}
	r.clans = nil
}

// FindByName returns the clan with the given name, ignoring case.
func (r *Roster) FindByName(name string) *gamedb.Clan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clans {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// Add appends c to the roster.
func (r *Roster) Add(c *gamedb.Clan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clans = append(r.clans, c)
}

// Remove takes c out of the roster. Returns false if c was not in it.
func (r *Roster) Remove(c *gamedb.Clan) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cc := range r.clans {
		if cc == c {
			r.clans = append(r.clans[:i], r.clans[i+1:]...)
			return true
		}
	}
	return false
}

// Clans returns a snapshot of the roster in order.
func (r *Roster) Clans() []*gamedb.Clan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*gamedb.Clan(nil), r.clans...)
}

// Len returns the number of clans.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clans)
}

// MemberCount returns the number of memberships across all clans.
func (r *Roster) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.clans {
		n += len(c.Members)
	}
	return n
}

// ClanOf returns the first clan listing player as a member, or nil.
func (r *Roster) ClanOf(player string) *gamedb.Clan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clans {
		if c.FindMember(player) != nil {
			return c
		}
	}
	return nil
}
