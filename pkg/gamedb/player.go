package gamedb

import "time"

// Player is the persisted part of a player record.
// Clan membership is not stored here; it is derived from the clan roster at login.
type Player struct {
	Name     string
	Level    int
	Room     string
	Password string // bcrypt hash
	Created  time.Time
}
