package flatfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// Clan file tags. Each line is "<tag>: <value>".
const (
	tagName       = "Name"
	tagRankPrefix = "Ran" // followed by the rank number, e.g. Ran3
	tagMemberName = "MNam"
	tagMemberRank = "MRan"
)

// ErrOrphanTag is returned when a rank or member line appears before any Name line.
var ErrOrphanTag = errors.New("tag outside of a clan block")

// ParseClans reads a clan file and returns the clans in file order.
// Member lines belong to the most recent Name block and keep file order.
func ParseClans(r io.Reader) ([]*gamedb.Clan, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		clans   []*gamedb.Clan
		current *gamedb.Clan
		pending *gamedb.Member // MNam seen, MRan not yet
		lineNo  int
	)
	seen := make(map[string]bool)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		tag, value, ok := splitTag(line)
		if !ok {
			return nil, fmt.Errorf("clans: line %d: missing tag in %q", lineNo, line)
		}

		if pending != nil && tag != tagMemberRank {
			return nil, fmt.Errorf("clans: line %d: member %q has no %s line", lineNo, pending.Name, tagMemberRank)
		}

		switch {
		case tag == tagName:
			if value == "" {
				return nil, fmt.Errorf("clans: line %d: empty clan name", lineNo)
			}
			key := strings.ToLower(value)
			if seen[key] {
				return nil, fmt.Errorf("clans: line %d: duplicate clan %q", lineNo, value)
			}
			seen[key] = true
			current = gamedb.NewClan(value)
			clans = append(clans, current)

		case strings.HasPrefix(tag, tagRankPrefix):
			if current == nil {
				return nil, fmt.Errorf("clans: line %d: %s: %w", lineNo, tag, ErrOrphanTag)
			}
			n, err := strconv.Atoi(tag[len(tagRankPrefix):])
			if err != nil || !gamedb.Rank(n).Valid() {
				return nil, fmt.Errorf("clans: line %d: bad rank tag %q", lineNo, tag)
			}
			current.SetRankName(gamedb.Rank(n), value)

		case tag == tagMemberName:
			if current == nil {
				return nil, fmt.Errorf("clans: line %d: member %q: %w", lineNo, value, ErrOrphanTag)
			}
			if value == "" {
				return nil, fmt.Errorf("clans: line %d: empty member name", lineNo)
			}
			pending = current.AppendMember(value, gamedb.RankNonMember)

		case tag == tagMemberRank:
			if current == nil {
				return nil, fmt.Errorf("clans: line %d: %s: %w", lineNo, tag, ErrOrphanTag)
			}
			if pending == nil {
				return nil, fmt.Errorf("clans: line %d: %s without %s", lineNo, tagMemberRank, tagMemberName)
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("clans: line %d: bad rank %q: %w", lineNo, value, err)
			}
			if !gamedb.Rank(n).Valid() {
				return nil, fmt.Errorf("clans: line %d: rank %d out of range", lineNo, n)
			}
			pending.Rank = gamedb.Rank(n)
			pending = nil

		default:
			return nil, fmt.Errorf("clans: line %d: unknown tag %q", lineNo, tag)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("clans: read: %w", err)
	}
	if pending != nil {
		return nil, fmt.Errorf("clans: member %q has no %s line", pending.Name, tagMemberRank)
	}
	return clans, nil
}

// splitTag splits "Tag: value" into its parts. Leading blanks of the value are dropped.
func splitTag(line string) (tag, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	tag = strings.TrimSpace(line[:idx])
	value = strings.TrimRight(strings.TrimLeft(line[idx+1:], " \t"), " \t")
	return tag, value, tag != ""
}
