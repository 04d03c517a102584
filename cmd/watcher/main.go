// Command watcher is the reference consumer of the realtime core: it
// verifies the persisted credential, opens the shared channel, and watches
// the rooms named on the command line.
//
// Usage:
//
//	watcher solution:42 challenge:7
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"dashboard-realtime/internal/bus"
	"dashboard-realtime/internal/config"
	"dashboard-realtime/internal/realtime"
	"dashboard-realtime/internal/session"
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	signalBus := bus.New()
	state := session.NewState()

	store, cleanup, err := openStore(ctx, cfg, signalBus, log)
	if err != nil {
		log.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// A token handed in via the environment stands in for the login flow.
	if token := os.Getenv("RT_TOKEN"); token != "" {
		err := session.Establish(ctx, store, state, signalBus, session.Session{Token: token})
		if err != nil {
			log.Error("failed to establish session", "error", err)
			os.Exit(1)
		}
	}

	unsub := signalBus.Subscribe(bus.TopicSessionChanged, func(evt bus.Event) {
		log.Info("session changed", "reason", evt.Reason)
	})
	defer unsub()

	guard := session.NewGuard(session.GuardConfig{
		APIBaseURL:    cfg.APIBaseURL,
		FailOpen:      cfg.FailOpen,
		VerifyRetries: cfg.VerifyRetries,
		HTTPTimeout:   cfg.HTTPTimeout,
	}, store, state, signalBus, consoleUI{log: log}, log)

	status, err := guard.Verify(ctx)
	if err != nil {
		log.Error("credential verification failed", "error", err)
		os.Exit(1)
	}
	log.Info("credential verified", "status", status.String())
	if status != session.StatusConfirmed {
		log.Info("not authenticated; nothing to watch")
		return
	}

	channel := realtime.New(realtime.Config{
		URL:               cfg.WSURL,
		RejoinOnReconnect: cfg.RejoinOnReconnect,
		HandshakeTimeout:  cfg.HandshakeTimeout,
	}, store, log)

	if err := channel.Connect(ctx); err != nil {
		log.Error("realtime connect failed", "error", err)
		os.Exit(1)
	}
	defer channel.Disconnect()

	for _, arg := range flag.Args() {
		room, ok := parseRoomArg(arg)
		if !ok {
			log.Warn("skipping malformed room argument", "arg", arg)
			continue
		}
		unsubscribe, err := channel.Subscribe(room, func(upd realtime.StatusUpdate) {
			log.Info("status update",
				"room", room.Key(),
				"status", upd.Status,
				"payload", string(upd.Raw))
		})
		if err != nil {
			log.Warn("subscribe failed", "arg", arg, "error", err)
			continue
		}
		defer unsubscribe()
		log.Info("watching", "room", room.Key())
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
}

func openStore(ctx context.Context, cfg *config.Config, b *bus.Bus, log *slog.Logger) (session.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client, err := session.DialRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store := session.NewRedisStore(client, log)
		relayCtx, cancel := context.WithCancel(ctx)
		go store.Relay(relayCtx, b)
		return store, func() {
			cancel()
			client.Close()
		}, nil
	case config.StoreSQLite:
		store, err := session.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}

// parseRoomArg turns "solution:42" or "challenge:7" into a Room.
func parseRoomArg(arg string) (realtime.Room, bool) {
	kind, id, ok := strings.Cut(arg, ":")
	if !ok || id == "" {
		return realtime.Room{}, false
	}
	switch kind {
	case "solution":
		return realtime.SolutionRoom(id), true
	case "challenge":
		return realtime.ChallengeRoom(id), true
	default:
		return realtime.Room{}, false
	}
}

// consoleUI satisfies the guard's UI surface for a terminal client.
type consoleUI struct {
	log *slog.Logger
}

func (u consoleUI) SetActiveView(name string) {
	u.log.Info("active view changed", "view", name)
}

func (u consoleUI) Navigate(route string) {
	u.log.Info("navigated", "route", route)
}

func (u consoleUI) Notify(message string) {
	u.log.Warn(message)
}
