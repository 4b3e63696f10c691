package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"PumpRadar/internal/domain/models"
	"PumpRadar/internal/service/pushclient"
	applogger "PumpRadar/pkg/logger"
)

// watch follows a PumpRadar push channel and logs the top gainers of every update.
func main() {
	url := flag.String("url", "ws://localhost:8080/api/stream", "push channel url")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	l, err := applogger.New(&applogger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := pushclient.New(*url, l, pushclient.WithHandler(func(ev models.PushEvent) {
		if ev.Snapshot == nil {
			return
		}
		top := make([]string, 0, 3)
		for i, r := range ev.Snapshot.RankedTables.Gainers1m {
			if i == 3 {
				break
			}
			top = append(top, r.Symbol)
		}
		l.Info("snapshot",
			applogger.String("type", string(ev.Type)),
			applogger.Int64("seq", int64(ev.Seq)),
			applogger.Strings("gainers1m", top),
		)
	}))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("watch stopped", applogger.Error(err))
		os.Exit(1)
	}
}
