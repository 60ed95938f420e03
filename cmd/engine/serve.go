package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leadgenius-engine/internal/backup"
	"leadgenius-engine/internal/config"
	"leadgenius-engine/internal/events"
	"leadgenius-engine/internal/httpapi"
	"leadgenius-engine/internal/logging"
	"leadgenius-engine/internal/scheduler"
	"leadgenius-engine/internal/scout"
)

const backupDir = "backups"

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine API on localhost",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to bind on 127.0.0.1 (default app.port from config)")
	return cmd
}

func serve(parent context.Context, port int) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	cfg := e.cfg.Get()

	applyConfig := func(c config.Config) {
		if !logLevelSet {
			logging.SetLevel(level, c.App.LogLevel)
		}
		e.hub.Emit("", events.ConfigReloaded, nil)
	}
	go func() {
		if err := config.Watch(ctx, e.cfg, logger.Named("config"), applyConfig); err != nil {
			logger.Warn("config watch stopped", zap.Error(err))
		}
	}()

	if cfg.Backup.Enabled {
		bw, err := backup.NewOS(e.store, filepath.Join(dataDir, backupDir), cfg.Backup.Keep, logger.Named("backup"))
		if err != nil {
			return err
		}
		interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
		go scheduler.Every(ctx, interval, "backup", logger, func(ctx context.Context) error {
			name, err := bw.Run(ctx)
			if err != nil {
				return err
			}
			e.hub.Emit("", events.BackupWritten, map[string]any{"file": name})
			return nil
		})
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Leads:         e.repo,
		Snapshots:     e.store,
		Scout:         e.scout,
		Assistant:     e.chat,
		Keys:          e.keys,
		Hub:           e.hub,
		Config:        e.cfg,
		ScoutStatus:   &scout.StatusTracker{},
		Metrics:       e.metrics,
		Logger:        logger.Named("http"),
		Greeting:      cfg.Assistant.Greeting,
		OnConfigSaved: applyConfig,
	})

	if port == 0 {
		port = cfg.App.Port
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           httpapi.Handler(mux, logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	token, err := randomToken(16)
	if err != nil {
		return err
	}
	mux.HandleFunc("/shutdown", shutdownHandler(token, srv, logger))
	// The desktop shell reads this line to learn the shutdown token.
	fmt.Printf("SHUTDOWN_TOKEN=%s\n", token)

	logger.Info("engine listening",
		zap.String("addr", "http://"+addr),
		zap.String("data_dir", dataDir),
		zap.String("config", e.cfg.Path()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
