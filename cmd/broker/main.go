// Command broker runs the classroom speech-translation broker:
// websocket ingress, translation/TTS fan-out, and session lifecycle
// management. Grounded on the teacher's cmd/switchboard/main.go
// signal-handling and ordered-shutdown pattern.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classbridge/broker/internal/api"
	"github.com/classbridge/broker/internal/app"
	"github.com/classbridge/broker/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML/JSON config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	server := api.New(application, application.Store(), application.Logger())
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	application.SetHTTPServer(httpServer)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintln(os.Stderr, "http server error:", err)
		}
	}()

	go application.Run(ctx)

	<-ctx.Done()
	time.Sleep(200 * time.Millisecond) // let in-flight handlers observe cancellation before hard shutdown
	return nil
}
