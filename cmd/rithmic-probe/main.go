// Command rithmic-probe is a non-normative example CLI: it connects to a
// Rithmic gateway using a TOML config file, hot-reloads credentials on
// file changes, periodically refreshes the trade-route cache, and exposes
// a read-only HTTP status endpoint. None of this is part of the core
// client library's contract; it exists to exercise the library the way a
// real operator tool would (SPEC_FULL.md §6).
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"

	rithmic "github.com/rithmic-go/rithmic-client"
	"github.com/rithmic-go/rithmic-client/wire"
)

var logOutput io.Writer = os.Stdout

func main() {
	configPath := flag.String("config", "rithmic-probe.toml", "path to TOML config file")
	statusAddr := flag.String("status-addr", ":8089", "address for the read-only status HTTP server")
	refreshSchedule := flag.String("trade-route-refresh", "@hourly", "cron schedule for periodic trade-route refresh")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(logOutput)

	store, err := newConfigStore(*configPath)
	if err != nil {
		log.WithError(err).Fatal("rithmic-probe: failed to load config")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Fatal("rithmic-probe: failed to start config watcher")
	}
	defer watcher.Close()
	if err := watcher.Add(*configPath); err != nil {
		log.WithError(err).Fatal("rithmic-probe: failed to watch config file")
	}
	go watchConfig(watcher, store, log)

	cfg := store.get()
	client := rithmic.NewClient(rithmic.Config{
		Credentials: rithmic.Credentials{
			User:             cfg.User,
			Password:         cfg.Password,
			SystemName:       cfg.SystemName,
			GatewayName:      cfg.GatewayName,
			DirectGatewayURL: cfg.DirectGatewayURL,
		},
		Logger: log,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	subscriptions, err := client.Connect(ctx)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("rithmic-probe: connect failed")
	}
	defer client.Close()

	go logSubscriptions(subscriptions, log)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*refreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.RefreshTradeRoutes(ctx); err != nil {
			log.WithError(err).Warn("rithmic-probe: scheduled trade-route refresh failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("rithmic-probe: failed to schedule trade-route refresh")
	}
	scheduler.Start()
	defer scheduler.Stop()

	statusSrv := newStatusServer(client)
	ln, err := net.Listen("tcp", *statusAddr)
	if err != nil {
		log.WithError(err).Fatal("rithmic-probe: failed to bind status server")
	}
	go func() {
		if err := statusSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("rithmic-probe: status server stopped")
		}
	}()
	defer statusSrv.Close()

	log.WithField("status_addr", *statusAddr).Info("rithmic-probe: connected, waiting for shutdown signal")
	waitForShutdown()
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

func watchConfig(watcher *fsnotify.Watcher, store *configStore, log *logrus.Logger) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := store.reload(); err != nil {
				log.WithError(err).Warn("rithmic-probe: config reload failed, keeping previous credentials")
				continue
			}
			log.Info("rithmic-probe: config reloaded; next Connect call will use the new credentials")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("rithmic-probe: config watcher error")
		}
	}
}

// logSubscriptions drains the unsolicited-message channel for the life of
// the process; a real operator tool would fan these out to a UI or a
// downstream bus, but this probe just logs them.
func logSubscriptions(ch <-chan *wire.Envelope, log *logrus.Logger) {
	for env := range ch {
		log.WithFields(logrus.Fields{
			"template_id":    env.TemplateID,
			"correlation_id": env.CorrelationID,
		}).Debug("rithmic-probe: unsolicited message")
	}
}
