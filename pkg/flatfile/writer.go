package flatfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/crystal-mush/goclans/pkg/gamedb"
)

// WriteClans writes clans to w in the tagged clan file format.
// Only overridden rank titles are written; members follow in list order.
//
// Changes here need a matching change in ParseClans.
func WriteClans(w io.Writer, clans []*gamedb.Clan) error {
	bw := bufio.NewWriter(w)
	wr := &writer{w: bw}

	for _, c := range clans {
		wr.writef("%s: %s\n", tagName, c.Name)
		for r := gamedb.RankInitiate; r <= gamedb.RankLeader; r++ {
			if c.IsCustomRank(r) {
				wr.writef("%s%d: %s\n", tagRankPrefix, r, c.RankName(r))
			}
		}
		for _, m := range c.Members {
			wr.writef("%s: %s\n", tagMemberName, m.Name)
			wr.writef("%s: %d\n", tagMemberRank, m.Rank)
		}
	}

	if wr.err != nil {
		return fmt.Errorf("clans: write: %w", wr.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("clans: flush: %w", err)
	}
	return nil
}

type writer struct {
	w   io.Writer
	err error
}

func (wr *writer) writef(format string, args ...interface{}) {
	if wr.err != nil {
		return
	}
	_, wr.err = fmt.Fprintf(wr.w, format, args...)
}
