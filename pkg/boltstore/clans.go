package boltstore

import (
	"fmt"
	"log"

	"github.com/crystal-mush/goclans/pkg/gamedb"
	bbolt "go.etcd.io/bbolt"
)

// ClanBackend stores the clan roster in the clans bucket. Keys are
// sequence numbers, so bucket iteration order is roster order.
type ClanBackend struct {
	store *Store
}

// ClanBackend returns a roster backend that persists clans in this store.
func (s *Store) ClanBackend() *ClanBackend {
	return &ClanBackend{store: s}
}

// Load reads every stored clan in roster order.
func (cb *ClanBackend) Load() ([]*gamedb.Clan, error) {
	var clans []*gamedb.Clan
	err := cb.store.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClans).ForEach(func(k, v []byte) error {
			c, err := decodeClan(v)
			if err != nil {
				return fmt.Errorf("decode clan #%d: %w", keyToInt(k), err)
			}
			clans = append(clans, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: load clans: %w", err)
	}
	return clans, nil
}

// Save replaces the stored roster with clans in a single transaction.
func (cb *ClanBackend) Save(clans []*gamedb.Clan) error {
	err := cb.store.bolt.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketClans); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketClans)
		if err != nil {
			return err
		}
		for i, c := range clans {
			data, err := encodeClan(c)
			if err != nil {
				return fmt.Errorf("encode clan %q: %w", c.Name, err)
			}
			if err := b.Put(intToKey(i), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: save clans: %w", err)
	}
	return nil
}

// ImportClans bulk-loads clans into the store, replacing what is there.
func (s *Store) ImportClans(clans []*gamedb.Clan) error {
	if err := s.ClanBackend().Save(clans); err != nil {
		return err
	}
	members := 0
	for _, c := range clans {
		members += len(c.Members)
	}
	log.Printf("boltstore: imported %d clans, %d members", len(clans), members)
	return nil
}
