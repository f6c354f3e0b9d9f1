package server

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// loginError is a failure shown verbatim on the login screen.
type loginError string

func (e loginError) Error() string { return string(e) }

const errNameTaken loginError = "That name is already taken."

// ParseConnect parses a login-screen command into (command, user, password).
// Handles: "connect name password", "create name password"
func ParseConnect(msg string) (command, user, password string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", "", ""
	}

	parts := strings.SplitN(msg, " ", 2)
	command = strings.ToLower(parts[0])
	if len(parts) < 2 {
		return command, "", ""
	}

	rest := strings.TrimSpace(parts[1])
	parts = strings.SplitN(rest, " ", 2)
	user = parts[0]
	if len(parts) > 1 {
		password = strings.TrimSpace(parts[1])
	}
	return
}

// HashPassword returns the bcrypt hash stored in a player record.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a player's stored hash.
func CheckPassword(rec *gamedb.Player, password string) bool {
	if rec == nil || rec.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)) == nil
}

// validPlayerName rejects names that could not be typed back as one word.
func validPlayerName(name string) error {
	if len(name) < 2 {
		return loginError("That name is too short.")
	}
	if gamedb.NameTooLong(name, gamedb.MaxClanNameLength) {
		return loginError("That name is too long.")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return loginError("That name contains illegal characters.")
		}
	}
	return nil
}

// WelcomeText is the default welcome screen shown to new connections.
const WelcomeText = `
Welcome to %s.

"connect <name> <password>" to connect to your existing character.
"create <name> <password>" to create a new character.
"WHO" to see who is connected.
"QUIT" to disconnect.

`
