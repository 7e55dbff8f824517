package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/socratic/internal/config"
	"github.com/abhisek/socratic/internal/conceptgraph"
	"github.com/abhisek/socratic/internal/engine"
	"github.com/abhisek/socratic/internal/llm"
	"github.com/abhisek/socratic/internal/logger"
	"github.com/abhisek/socratic/internal/reflection"
	"github.com/abhisek/socratic/internal/server"
	"github.com/abhisek/socratic/internal/socgen"
	"github.com/abhisek/socratic/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides SOCRATIC_ADDR)")
	serveCmd.Flags().String("dsn", "", "Database connection string (overrides SOCRATIC_DB_DSN)")
	serveCmd.Flags().String("store", "", "Flat-file store path (overrides SOCRATIC_STORE_PATH)")
	serveCmd.Flags().String("mode", "", "Run mode: dev or prod (overrides SOCRATIC_MODE)")
}

// runServe assembles the full stack and serves until interrupted.
func runServe(cmd *cobra.Command) error {
	cfg := config.FromEnv()
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Addr = v
	}
	if v, _ := cmd.Flags().GetString("dsn"); v != "" {
		cfg.Store.DSN = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.FilePath = v
	}
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		cfg.Mode = v
	}
	if v, _ := cmd.Flags().GetString("concepts"); v != "" {
		cfg.ConceptsPath = v
	}

	log, err := logger.New(cfg.Mode)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	graph, err := loadGraph(cfg.ConceptsPath)
	if err != nil {
		return err
	}
	log.Info("concept graph loaded", "concepts", graph.Len())

	st, err := store.Open(cfg.Store, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	opts := engine.Options{CollaboratorTimeout: cfg.LLM.Timeout}
	if err := cfg.LLM.Validate(); err != nil {
		return err
	}
	provider, err := llm.NewProvider(cmd.Context(), cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("build LLM provider: %w", err)
	}
	if provider != nil {
		opts.Generator = socgen.New(provider, socgen.DefaultConfig())
		opts.Reflector = reflection.New(provider, log)
		log.Info("collaborator enabled", "provider", cfg.LLM.Provider, "model", provider.ModelID())
	} else {
		log.Info("no collaborator configured, static questions only")
	}

	eng := engine.New(graph, st, opts, log)
	router := server.NewRouter(eng, log, cfg.Mode, cfg.AllowOrigins)

	srv := &http.Server{Addr: cfg.Addr, Handler: router}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadGraph(path string) (*conceptgraph.Graph, error) {
	if path == "" {
		return conceptgraph.LoadDefault()
	}
	g, err := conceptgraph.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load concepts from %s: %w", path, err)
	}
	return g, nil
}
