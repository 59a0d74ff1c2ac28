package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/metrics"
	"github.com/transitlab/transit-ratio/internal/model"
	"github.com/transitlab/transit-ratio/internal/render"
	"github.com/transitlab/transit-ratio/internal/store"
)

const defaultPercentile = 99.5

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Serves stored sessions, rendered maps and an asynchronous analyze endpoint, with Prometheus metrics on /metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		router := newRouter(ctx, env)
		port := resolvePort(servePort, cfg.Server.Port)

		return startServer(ctx, router, port)
	},
}

// resolvePort prefers the flag value over the configured one.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// newRouter builds the API routes. runCtx outlives individual requests
// and scopes the asynchronous analyze runs to the server lifetime.
func newRouter(runCtx context.Context, env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(countRequests(env.Metrics))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", handleListSessions(env))
		r.Get("/sessions/{id}", handleGetSession(env))
		r.Get("/sessions/{id}/map", handleSessionMap(env))
		r.Get("/sessions/{id}/map.geojson", handleSessionGeoJSON(env))
		r.Post("/analyze", handleAnalyze(runCtx, env))
	})

	return r
}

// countRequests records one http_requests_total sample per request,
// labeled by chi route pattern and status code.
func countRequests(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		})
	}
}

func handleListSessions(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.SessionFilter{
			Country: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country"))),
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			filter.Limit = n
		}

		list, err := env.Store.ListSessions(r.Context(), filter)
		if err != nil {
			zap.L().Error("list sessions failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list sessions failed")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// loadSession fetches the session named in the URL, writing the error
// response itself when the lookup fails.
func loadSession(w http.ResponseWriter, r *http.Request, env *pipelineEnv) (*model.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, err := env.Store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		zap.L().Error("load session failed", zap.String("session", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load session failed")
		return nil, false
	}
	return sess, true
}

func handleGetSession(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, env)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func handleSessionMap(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, env)
		if !ok {
			return
		}

		view, err := env.Pipeline.BuildMap(r.Context(), sess)
		if err != nil {
			if errors.Is(err, model.ErrInvalidArgument) {
				writeError(w, http.StatusConflict, "session has nothing to render")
				return
			}
			zap.L().Error("build map failed", zap.String("session", sess.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "build map failed")
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.HTML(w, view); err != nil {
			zap.L().Error("render html failed", zap.String("session", sess.ID), zap.Error(err))
		}
	}
}

func handleSessionGeoJSON(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(w, r, env)
		if !ok {
			return
		}

		view, err := env.Pipeline.BuildMap(r.Context(), sess)
		if err != nil {
			if errors.Is(err, model.ErrInvalidArgument) {
				writeError(w, http.StatusConflict, "session has nothing to render")
				return
			}
			zap.L().Error("build map failed", zap.String("session", sess.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "build map failed")
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		if err := render.GeoJSON(w, view); err != nil {
			zap.L().Error("render geojson failed", zap.String("session", sess.ID), zap.Error(err))
		}
	}
}

func handleAnalyze(runCtx context.Context, env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Country    string   `json:"country"`
			Percentile *float64 `json:"percentile"`
			Origin     string   `json:"origin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Country == "" {
			writeError(w, http.StatusBadRequest, "country is required")
			return
		}

		percentile := defaultPercentile
		if req.Percentile != nil {
			percentile = *req.Percentile
		}
		if percentile < 0 || percentile > 100 {
			writeError(w, http.StatusBadRequest, "percentile must be within [0, 100]")
			return
		}

		sess, err := env.Pipeline.NewSession(r.Context(), req.Country, percentile)
		if err != nil {
			zap.L().Error("create session failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "create session failed")
			return
		}

		// The run outlives the request; runCtx scopes it to the server.
		go func() {
			if err := env.Pipeline.RetrieveCities(runCtx, sess, req.Country, percentile); err != nil {
				zap.L().Error("async retrieval failed", zap.String("session", sess.ID), zap.Error(err))
				return
			}
			if err := env.Pipeline.CalculateTravel(runCtx, sess, req.Origin); err != nil {
				zap.L().Error("async travel failed", zap.String("session", sess.ID), zap.Error(err))
				return
			}
			zap.L().Info("async analysis complete",
				zap.String("session", sess.ID),
				zap.Int("cities", len(sess.Cities)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"session": sess.ID,
		})
	}
}

// startServer runs the handler until ctx is canceled, then drains
// connections.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
