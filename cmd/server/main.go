package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crystal-mush/goclans/pkg/boltstore"
	"github.com/crystal-mush/goclans/pkg/clan"
	"github.com/crystal-mush/goclans/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("MUSH_CONF", ""), "Path to game config file (env: MUSH_CONF)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: goclans [-conf <config>] [-port 4000]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Environment variables override the config file:")
		fmt.Fprintln(os.Stderr, "  MUSH_CONF              Path to game config file (.yaml or .conf)")
		fmt.Fprintln(os.Stderr, "  MUSH_PORT              TCP port to listen on")
		fmt.Fprintln(os.Stderr, "  MUSH_CLAN_STORE        flatfile or bolt")
		fmt.Fprintln(os.Stderr, "  MUSH_CLAN_FILE         Path to the clan flatfile")
		fmt.Fprintln(os.Stderr, "  MUSH_BOLT_PATH         Path to bbolt database (players, clans)")
		fmt.Fprintln(os.Stderr, "  MUSH_SQL_ENABLED       Set to 'true' to keep a SQLite clan journal")
		fmt.Fprintln(os.Stderr, "  MUSH_SQL_DATABASE      Path to SQLite3 journal file")
		fmt.Fprintln(os.Stderr, "  MUSH_METRICS_ADDR      Listen address for /health and /metrics")
		fmt.Fprintln(os.Stderr, "  MUSH_IMMORTAL_LEVEL    Staff level threshold")
		fmt.Fprintln(os.Stderr, "  MUSH_CLAN_CREATE_LEVEL Level needed to create and disband clans")
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Printf("Welcome to %s", server.VersionString())

	gc, err := server.LoadGameConf(*confFile)
	if err != nil {
		log.Fatalf("Error loading game config: %v", err)
	}
	if *confFile != "" {
		log.Printf("Loaded game config from %s", *confFile)
	}

	// Command-line flags override config file values
	if *port != 0 {
		gc.Port = *port
	}

	game := server.NewGame(gc)

	var store *boltstore.Store
	if gc.BoltPath != "" {
		store, err = boltstore.Open(gc.BoltPath)
		if err != nil {
			log.Fatalf("Error opening bolt database: %v", err)
		}
		game.Store = store
		if err := game.LoadPlayers(); err != nil {
			log.Fatalf("Error loading players: %v", err)
		}
	} else {
		log.Printf("No bolt_path set; players will not persist")
	}

	if gc.SQLEnabled {
		j, err := server.OpenClanJournal(gc.SQLDatabase, gc.SQLTimeout)
		if err != nil {
			log.Printf("WARNING: failed to open clan journal %s: %v", gc.SQLDatabase, err)
		} else {
			game.Journal = j
			log.Printf("Clan journal enabled, database: %s (timeout=%ds)", j.Path(), gc.SQLTimeout)
		}
	}

	var backend clan.Backend
	switch gc.ClanStore {
	case server.ClanStoreBolt:
		backend = store.ClanBackend()
		log.Printf("Clans stored in bbolt: %s", gc.BoltPath)
	default:
		backend = &clan.FileBackend{Path: gc.ClanFile}
		log.Printf("Clans stored in flatfile: %s", gc.ClanFile)
		if store != nil && store.HasClanData() {
			log.Printf("WARNING: %s also holds clans; they are ignored while clan_store is flatfile", store.Path())
		}
	}
	roster := clan.NewRoster(backend)
	if err := roster.Load(); err != nil {
		log.Printf("WARNING: starting with an empty clan roster, clan changes will not be saved: %v", err)
	}
	sys := game.AttachClans(roster)

	var status *server.StatusServer
	if gc.MetricsAddr != "" {
		m := server.NewMetrics(game, time.Now())
		game.Metrics = m
		sys.Metrics = clan.NewMetrics(m.Registerer())
		status = server.NewStatusServer(game, m, gc.MetricsAddr)
		status.Start()
	}

	srv := server.NewServer(game, server.ConfigFromGameConf(gc))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down", sig)
		srv.Stop()
	}()

	log.Printf("Starting %s on port %d...", gc.MudName, gc.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	shutdown(game, roster, store, status)
}

// shutdown writes the roster one last time and releases every resource.
func shutdown(game *server.Game, roster *clan.Roster, store *boltstore.Store, status *server.StatusServer) {
	if status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := status.Stop(ctx); err != nil {
			log.Printf("WARNING: status server shutdown: %v", err)
		}
		cancel()
	}
	switch err := roster.Save(); {
	case errors.Is(err, clan.ErrStoreUnreadable):
		log.Printf("WARNING: clan changes from this session were not saved; repair the clan store and restart")
	case err != nil:
		log.Printf("SYSERR: final clan save failed: %v", err)
	}
	roster.Release()
	if game.Journal != nil {
		game.Journal.Close()
	}
	if store != nil {
		store.Close()
	}
	log.Printf("Shutdown complete.")
}
