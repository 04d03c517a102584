// Command fakeapi runs the development stand-in for the dashboard backend:
// login, token validation, and the realtime event channel on one port.
// With -demo it pushes a status cycle into a room so a watcher has
// something to show.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard-realtime/internal/fakeapi"
)

func main() {
	var (
		addr     = flag.String("addr", ":8080", "listen address")
		secret   = flag.String("secret", "secret", "JWT signing secret")
		demoRoom = flag.String("demo", "", "solution id to emit a demo status cycle for")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	srv := fakeapi.NewServer(*secret, log)
	if err := srv.SeedUser("dev@example.com", "password", "Dev User", "user"); err != nil {
		log.Error("failed to seed user", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         *addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("fake API listening", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stopDemo := make(chan struct{})
	if *demoRoom != "" {
		go runDemo(srv, *demoRoom, stopDemo)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stopDemo)

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
}

func runDemo(srv *fakeapi.Server, solutionID string, stop <-chan struct{}) {
	statuses := []string{"Pending", "Running", "Valid"}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			srv.EmitSolutionStatus(solutionID, statuses[i%len(statuses)])
			fmt.Printf("emitted %s for solution %s\n", statuses[i%len(statuses)], solutionID)
			i++
		}
	}
}
