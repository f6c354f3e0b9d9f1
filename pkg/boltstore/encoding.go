package boltstore

import (
	"bytes"
	"encoding/gob"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

func init() {
	gob.Register(gamedb.Player{})
	gob.Register(clanRecord{})
}

// clanRecord is the stored form of a clan. Rank slots keep the
// Default/Custom distinction so defaults are never copied into storage.
type clanRecord struct {
	Name      string
	RankNames [gamedb.NumRanks]gamedb.RankName
	Members   []gamedb.Member
}

func toClanRecord(c *gamedb.Clan) clanRecord {
	rec := clanRecord{Name: c.Name, RankNames: c.RankNames}
	rec.Members = make([]gamedb.Member, 0, len(c.Members))
	for _, m := range c.Members {
		rec.Members = append(rec.Members, *m)
	}
	return rec
}

func (rec clanRecord) toClan() *gamedb.Clan {
	c := gamedb.NewClan(rec.Name)
	c.RankNames = rec.RankNames
	for _, m := range rec.Members {
		c.AppendMember(m.Name, m.Rank)
	}
	return c
}

// encodeClan serializes a clan to bytes using gob.
func encodeClan(c *gamedb.Clan) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toClanRecord(c)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeClan deserializes bytes back into a clan.
func decodeClan(data []byte) (*gamedb.Clan, error) {
	var rec clanRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, err
	}
	return rec.toClan(), nil
}

// encodePlayer serializes a Player to bytes using gob.
func encodePlayer(p *gamedb.Player) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodePlayer deserializes bytes back into a Player.
func decodePlayer(data []byte) (*gamedb.Player, error) {
	var p gamedb.Player
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
