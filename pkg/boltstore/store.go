package boltstore

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/crystal-mush/goclans/pkg/gamedb"
	bbolt "go.etcd.io/bbolt"
)

// Store wraps a bbolt database holding player records and, optionally, the clan roster.
type Store struct {
	bolt *bbolt.DB
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketPlayers, bucketClans} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if meta.Get(keyVersion) == nil {
			return meta.Put(keyVersion, intToKey(schemaVersion))
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// Version returns the stored schema version.
func (s *Store) Version() int {
	v := 0
	s.bolt.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketMeta).Get(keyVersion); b != nil {
			v = keyToInt(b)
		}
		return nil
	})
	return v
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		if err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup written to %s", path)
		return nil
	})
}

// --- Player records ---

// PutPlayer persists a player record, keyed by lowercase name.
func (s *Store) PutPlayer(p *gamedb.Player) error {
	data, err := encodePlayer(p)
	if err != nil {
		return fmt.Errorf("boltstore: encode player %q: %w", p.Name, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPlayers).Put([]byte(strings.ToLower(p.Name)), data)
	})
}

// GetPlayer returns the player record for name, or nil if none exists.
func (s *Store) GetPlayer(name string) (*gamedb.Player, error) {
	var p *gamedb.Player
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketPlayers).Get([]byte(strings.ToLower(name)))
		if v == nil {
			return nil
		}
		var err error
		p, err = decodePlayer(v)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: decode player %q: %w", name, err)
	}
	return p, nil
}

// LoadPlayers reads all player records.
func (s *Store) LoadPlayers() ([]*gamedb.Player, error) {
	var players []*gamedb.Player
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPlayers).ForEach(func(k, v []byte) error {
			p, err := decodePlayer(v)
			if err != nil {
				return fmt.Errorf("decode player %q: %w", string(k), err)
			}
			players = append(players, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load players: %w", err)
	}
	log.Printf("boltstore: loaded %d players", len(players))
	return players, nil
}

// HasClanData returns true if there are any clans stored in bbolt.
func (s *Store) HasClanData() bool {
	has := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketClans).Stats().KeyN > 0 {
			has = true
		}
		return nil
	})
	return has
}
