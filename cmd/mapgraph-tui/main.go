package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rmax-ai/mapgraph/pkg/config"
	"github.com/rmax-ai/mapgraph/pkg/editor"
	"github.com/rmax-ai/mapgraph/pkg/store/backend"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "mapgraph-tui: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	logOutput := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	defer logOutput.Close()
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Info("mapgraph-tui started", "backend", cfg.Backend, "log_path", cfg.LogPath)

	ctx := context.Background()

	st, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open graph store: %w", err)
	}

	m, err := editor.Open(ctx, st,
		editor.WithTolerances(editor.Tolerances{
			Node:  cfg.NodeTolerance,
			Place: cfg.PlaceTolerance,
			Edge:  cfg.EdgeTolerance,
		}),
		editor.WithUndoLimit(cfg.UndoLimit),
	)
	if err != nil {
		st.Close()
		return err
	}
	ctrl := editor.NewController(m, slog.Default())
	defer func() {
		if err := ctrl.Close(); err != nil {
			slog.Error("Failed to close graph store", "error", err)
		} else {
			slog.Info("Graph store closed")
		}
	}()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	title := "mapgraph"
	if cfg.ImagePath != "" {
		title = fmt.Sprintf("mapgraph • %s", filepath.Base(cfg.ImagePath))
	}

	p := tea.NewProgram(initialModel(ctx, ctrl, title), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal ui failed: %w", err)
	}
	slog.Info("mapgraph-tui stopped")
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics listener failed", "error", err)
		}
	}()
	return srv
}
