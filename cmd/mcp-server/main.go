// cmd/mcp-server/main.go — HTTP tool server for funcan
//
// Exposes the funcan tools as an HTTP endpoint for agent frameworks and
// serves rendered charts.
//
// Usage:
//   go run ./cmd/mcp-server -config funcan.yaml -addr :8080
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
// Chart endpoint:     GET  /plot?f=x**2&min=-5&max=5&op=both
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/njchilds90/funcan"
	"github.com/njchilds90/funcan/internal/config"
	"github.com/njchilds90/funcan/internal/observability"
	"github.com/njchilds90/funcan/internal/render"
)

func main() {
	configPath := flag.String("config", "", "YAML or JSON settings file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	settings, err := config.LoadSettings(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		settings.ServerAddr = *addr
	}
	logger, err := observability.NewLogger(os.Stderr, settings.LogLevel, settings.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	analyzer := funcan.NewAnalyzer(
		funcan.WithLogger(logger),
		funcan.WithSamples(settings.Samples),
		funcan.WithMaxSamples(settings.MaxSamples),
		funcan.WithQuadrature(funcan.Quadrature{
			AbsTol: settings.QuadAbsTol,
			RelTol: settings.QuadRelTol,
			Limit:  settings.QuadLimit,
		}),
		funcan.WithMetrics(observability.NewMetricsRecorder()),
		funcan.WithSpans(observability.NewSpanManager()),
	)

	srv := &http.Server{
		Addr:              settings.ServerAddr,
		Handler:           newMux(analyzer, settings, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       settings.ReadTimeout,
		WriteTimeout:      settings.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("funcan tool server listening",
		slog.String("addr", settings.ServerAddr),
		slog.Any("routes", []string{"POST /tool", "GET /schema", "GET /health", "GET /plot"}),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newMux(analyzer *funcan.Analyzer, settings config.Settings, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// POST /tool — handle a tool call
	mux.HandleFunc("/tool", recovering(logger, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, int64(settings.MaxBodyBytes))
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req funcan.ToolRequest
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if dec.More() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
			return
		}

		start := time.Now()
		resp := analyzer.HandleToolCall(r.Context(), req)
		logger.Debug("tool call",
			slog.String("tool", req.Tool),
			slog.Bool("ok", resp.Error == ""),
			slog.Duration("elapsed", time.Since(start)),
		)
		writeJSON(w, http.StatusOK, resp)
	}))

	// GET /schema — return tool schema for agent registration
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, funcan.MCPToolSpec())
	})

	// GET /health — liveness check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	// GET /plot — PNG chart of an analysis
	mux.HandleFunc("/plot", recovering(logger, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		op, err := funcan.ParseOperation(q.Get("op"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		req := funcan.Request{
			Func: valueOr(q.Get("f"), settings.DefaultFunction),
			XMin: valueOr(q.Get("min"), fmt.Sprint(settings.DefaultMin)),
			XMax: valueOr(q.Get("max"), fmt.Sprint(settings.DefaultMax)),
			Op:   op,
		}
		res, err := analyzer.Analyze(r.Context(), req)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": err.Error(),
				"kind":  funcan.KindOf(err).String(),
			})
			return
		}
		var buf bytes.Buffer
		if err := render.Chart(&buf, res, settings.Theme, settings.ChartWidth, settings.ChartHeight); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if l := observability.EnrichLogger(logger, res.ID); l != nil {
			l.Debug("chart rendered", slog.Int("bytes", buf.Len()))
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Analysis-Id", res.ID)
		_, _ = w.Write(buf.Bytes())
	}))

	return mux
}

func recovering(logger *slog.Logger, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in handler",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
