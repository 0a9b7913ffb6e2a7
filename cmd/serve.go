package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readlist/readlist-cli/internal/extract"
	"github.com/readlist/readlist-cli/internal/source"
	"github.com/readlist/readlist-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/episodes/{id}/process", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		force := req.URL.Query().Get("force") == "true"

		ep, err := env.Source.Fetch(req.Context(), id)
		if err != nil {
			if errors.Is(err, source.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "episode not found"})
				return
			}
			serverError(w, "fetch episode", err)
			return
		}

		out, err := env.Coordinator.Process(req.Context(), *ep, force)
		if err != nil {
			serverError(w, "process episode", err)
			return
		}
		writeJSON(w, http.StatusOK, processOutput(out))
	})

	r.Post("/api/episodes/batch/process", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Limit  int  `json:"limit"`
			Offset int  `json:"offset"`
			Force  bool `json:"force"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Limit <= 0 {
			body.Limit = 50
		}

		ids, err := env.Source.ListRecent(req.Context(), body.Offset, body.Limit)
		if err != nil {
			serverError(w, "list episodes", err)
			return
		}

		sum := env.Coordinator.ProcessBatch(req.Context(), env.Source, ids, extract.BatchOptions{
			Concurrency: cfg.Batch.Concurrency,
			Delay:       time.Duration(cfg.Batch.DelayMs) * time.Millisecond,
			Force:       body.Force,
		})
		writeJSON(w, http.StatusOK, sum)
	})

	r.Get("/api/episodes/stats", func(w http.ResponseWriter, req *http.Request) {
		stats, err := env.Store.Stats(req.Context())
		if err != nil {
			serverError(w, "read stats", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	r.Get("/api/records", func(w http.ResponseWriter, req *http.Request) {
		recs, err := env.Store.ListRecords(req.Context(),
			queryInt(req, "limit", 50), queryInt(req, "offset", 0))
		if err != nil {
			serverError(w, "list records", err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})

	r.Get("/api/books", func(w http.ResponseWriter, req *http.Request) {
		books, err := env.Store.ListBooks(req.Context(), store.BookFilter{
			EpisodeID: req.URL.Query().Get("episode_id"),
			Author:    req.URL.Query().Get("author"),
			Limit:     queryInt(req, "limit", 100),
			Offset:    queryInt(req, "offset", 0),
		})
		if err != nil {
			serverError(w, "list books", err)
			return
		}
		writeJSON(w, http.StatusOK, books)
	})

	return r
}

func queryInt(req *http.Request, key string, def int) int {
	v := req.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func serverError(w http.ResponseWriter, op string, err error) {
	zap.L().Error(op, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": op + " failed"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
