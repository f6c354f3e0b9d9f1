package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/crystal-mush/goclans/pkg/boltstore"
	"github.com/crystal-mush/goclans/pkg/clan"
	"github.com/crystal-mush/goclans/pkg/gamedb"
	"github.com/crystal-mush/goclans/pkg/server"
)

// options carries the roster flags through run.
type options struct {
	clanFile    string
	boltPath    string
	backup      string
	doImport    bool
	doExport    bool
	showMembers bool
	validate    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.clanFile, "file", "", "Path to clan flatfile")
	flag.StringVar(&opts.boltPath, "bolt", "", "Path to bbolt database")
	flag.StringVar(&opts.backup, "backup", "", "Write a snapshot of -bolt to this path")
	flag.BoolVar(&opts.doImport, "import", false, "Copy clans from -file into -bolt")
	flag.BoolVar(&opts.doExport, "export", false, "Write clans from -bolt to -file")
	flag.BoolVar(&opts.showMembers, "members", false, "List every clan's members")
	flag.BoolVar(&opts.validate, "validate", false, "Run roster integrity checks")
	journal := flag.String("journal", "", "Path to SQLite clan journal to print")
	journalClan := flag.String("clan", "", "Only print journal entries for this clan")
	journalN := flag.Int("n", 20, "Number of journal entries to print")
	flag.Parse()

	if opts.clanFile == "" && opts.boltPath == "" && *journal == "" {
		fmt.Fprintln(os.Stderr, "Usage: clantool -file <clans> [options]")
		fmt.Fprintln(os.Stderr, "       clantool -bolt <db> [options]")
		fmt.Fprintln(os.Stderr, "       clantool -file <clans> -bolt <db> -import | -export")
		fmt.Fprintln(os.Stderr, "       clantool -bolt <db> -backup <path>")
		fmt.Fprintln(os.Stderr, "       clantool -journal <sqlite> [-clan <name>] [-n 20]")
		fmt.Fprintln(os.Stderr, "  -members      List members of every clan")
		fmt.Fprintln(os.Stderr, "  -validate     Run integrity checks")
		os.Exit(1)
	}

	if *journal != "" {
		if err := printJournal(*journal, *journalClan, *journalN); err != nil {
			fatal(err)
		}
		if opts.clanFile == "" && opts.boltPath == "" {
			return
		}
		fmt.Println()
	}

	var store *boltstore.Store
	if opts.boltPath != "" {
		var err error
		store, err = boltstore.Open(opts.boltPath)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Opened %s (schema version %d)\n", store.Path(), store.Version())
	}
	exitCode, err := run(store, opts)
	if store != nil {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		fatal(err)
	}
	os.Exit(exitCode)
}

// run loads the roster, reports on it and performs any backup, import or
// export. The exit code is 2 when validation finds problems.
func run(store *boltstore.Store, opts options) (int, error) {
	if opts.doImport && opts.doExport {
		return 1, fmt.Errorf("-import and -export are mutually exclusive")
	}
	if (opts.doImport || opts.doExport) && (opts.clanFile == "" || store == nil) {
		return 1, fmt.Errorf("-import and -export need both -file and -bolt")
	}
	if opts.backup != "" && store == nil {
		return 1, fmt.Errorf("-backup needs -bolt")
	}

	var (
		src  clan.Backend
		desc string
	)
	switch {
	case opts.doExport, opts.clanFile == "":
		src, desc = store.ClanBackend(), "bbolt "+opts.boltPath
	default:
		src, desc = &clan.FileBackend{Path: opts.clanFile}, "flatfile "+opts.clanFile
	}

	fmt.Printf("Loading clans from %s\n", desc)
	start := time.Now()
	clans, err := src.Load()
	if err != nil {
		return 1, err
	}
	fmt.Printf("Loaded in %v\n\n", time.Since(start))

	printSummary(clans)

	if opts.showMembers {
		fmt.Println()
		printMembers(clans)
	}

	exitCode := 0
	if opts.validate {
		fmt.Println()
		if runValidation(clans, store) > 0 {
			exitCode = 2
		}
	}

	if opts.backup != "" {
		if err := store.Backup(opts.backup); err != nil {
			return 1, err
		}
		fmt.Printf("\nBacked up %s to %s\n", opts.boltPath, opts.backup)
	}

	switch {
	case opts.doImport:
		if err := store.ImportClans(clans); err != nil {
			return 1, err
		}
		fmt.Printf("\nImported %d clans into %s\n", len(clans), opts.boltPath)
	case opts.doExport:
		dst := &clan.FileBackend{Path: opts.clanFile}
		if err := dst.Save(clans); err != nil {
			return 1, err
		}
		fmt.Printf("\nExported %d clans to %s\n", len(clans), opts.clanFile)
	}
	return exitCode, nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}

func printSummary(clans []*gamedb.Clan) {
	members, custom := 0, 0
	for _, c := range clans {
		members += len(c.Members)
		for r := gamedb.RankInitiate; r <= gamedb.RankLeader; r++ {
			if c.IsCustomRank(r) {
				custom++
			}
		}
	}

	fmt.Println("=== CLAN SUMMARY ===")
	fmt.Printf("Clans:          %d\n", len(clans))
	fmt.Printf("Memberships:    %d\n", members)
	fmt.Printf("Custom ranks:   %d\n", custom)

	if len(clans) == 0 {
		return
	}
	sorted := append([]*gamedb.Clan(nil), clans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Members) > len(sorted[j].Members)
	})
	fmt.Println("\n--- Clans by Size ---")
	for _, c := range sorted {
		fmt.Printf("  %-4d %s\n", len(c.Members), c.Name)
	}
}

func printMembers(clans []*gamedb.Clan) {
	fmt.Println("=== MEMBERS ===")
	for _, c := range clans {
		fmt.Printf("%s\n", c.Name)
		for _, m := range c.Members {
			fmt.Printf("  [%d %-15s] %s\n", m.Rank, c.RankName(m.Rank), m.Name)
		}
	}
}

// runValidation reports roster problems and returns how many it found.
// With a store, members must also have a player record.
func runValidation(clans []*gamedb.Clan, store *boltstore.Store) int {
	fmt.Println("=== VALIDATION ===")
	problems := 0
	report := func(format string, args ...any) {
		problems++
		fmt.Printf("  "+format+"\n", args...)
	}

	owner := make(map[string]string)
	for _, c := range clans {
		if len(c.Members) == 0 {
			report("clan %s has no members", c.Name)
		} else if c.CountRank(gamedb.RankLeader) == 0 {
			report("clan %s has no leader", c.Name)
		}
		for _, m := range c.Members {
			key := strings.ToLower(m.Name)
			if other, ok := owner[key]; ok {
				report("%s is listed in both %s and %s", m.Name, other, c.Name)
				continue
			}
			owner[key] = c.Name
			if store == nil {
				continue
			}
			p, err := store.GetPlayer(m.Name)
			switch {
			case err != nil:
				report("%s of %s: %v", m.Name, c.Name, err)
			case p == nil:
				report("%s of %s has no player record", m.Name, c.Name)
			}
		}
	}

	if problems == 0 {
		fmt.Println("  No problems found.")
	} else {
		fmt.Printf("  %d problem(s) found.\n", problems)
	}
	return problems
}

func printJournal(path, clanName string, n int) error {
	j, err := server.OpenClanJournal(path, 5)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Recent(clanName, n)
	if err != nil {
		return err
	}
	fmt.Println("=== CLAN JOURNAL ===")
	if len(entries) == 0 {
		fmt.Println("  (empty)")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("  %s  %-20s %-10s %-8s %s\n",
			e.Time.Format("2006-01-02 15:04:05"), e.Clan, e.Actor, e.Action, e.Detail)
	}
	return nil
}
