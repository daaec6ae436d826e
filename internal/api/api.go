// Package api exposes the cache and cycle control over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/app"
	"github.com/ibeckermayer/hnpulse/internal/feed"
	"github.com/ibeckermayer/hnpulse/internal/pipeline"
	"github.com/ibeckermayer/hnpulse/internal/types"
)

var (
	ErrInternal = errors.New("internal server error")
	ErrNotFound = errors.New("not found")
)

type ctxKey int

const (
	requestID ctxKey = iota
)

const (
	requestIDHeader = "X-Request-ID"
	limitQP         = "limit"
	defaultLimit    = 50
	maxLimit        = 500
	requestTimeout  = 10 * time.Second
)

// Service is what the API needs from the application.
type Service interface {
	Items(ctx context.Context, limit int) ([]types.Item, error)
	Item(ctx context.Context, id string) (*types.Item, error)
	Feed(ctx context.Context) (feed.JSONFeed, error)
	TriggerCycle() error
	Evict(ctx context.Context) (int64, error)
	Running() bool
	LastReport() *pipeline.Report
}

// Status is returned by GET /status.
type Status struct {
	Running    bool          `json:"running"`
	LastReport *reportStatus `json:"last_report,omitempty"`
}

type reportStatus struct {
	RunID            string        `json:"run_id"`
	StartedAt        time.Time     `json:"started_at"`
	Took             time.Duration `json:"took_ns"`
	Roots            int           `json:"roots"`
	Fetched          int           `json:"fetched"`
	FetchFailed      int           `json:"fetch_failed"`
	Generated        int           `json:"generated"`
	GenerationFailed int           `json:"generation_failed"`
	Persisted        int           `json:"persisted"`
}

type wideResponseWriter struct {
	http.ResponseWriter
	length, status int
	internalErr    error
}

func (w *wideResponseWriter) WriteHeader(status int) {
	w.ResponseWriter.WriteHeader(status)
	w.status = status
}

func (w *wideResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.length += n
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return n, err
}

// REST API.
type API struct {
	router  *mux.Router
	service Service
	logger  *zap.Logger
}

// New returns an API serving svc.
func New(svc Service, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := API{
		router:  mux.NewRouter(),
		service: svc,
		logger:  logger,
	}
	api.endpoints()
	return &api
}

// ServeHTTP lets *API be used directly as a server handler.
func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.router.ServeHTTP(w, r)
}

func (api *API) endpoints() {
	api.router.Use(
		api.requestIDMiddleware,
		api.wideEventLogMiddleware,
		api.closerMiddleware,
		api.headersMiddleware,
	)
	api.router.HandleFunc("/items", api.handleItems()).Methods(http.MethodGet)
	api.router.HandleFunc("/items/{id:[0-9]+}", api.handleItem()).Methods(http.MethodGet)
	api.router.HandleFunc("/feed.json", api.handleFeed()).Methods(http.MethodGet)
	api.router.HandleFunc("/status", api.handleStatus()).Methods(http.MethodGet)
	api.router.HandleFunc("/cycles", api.handleCycleCreate()).Methods(http.MethodPost)
	api.router.HandleFunc("/evictions", api.handleEvictionCreate()).Methods(http.MethodPost)
}

// closerMiddleware drains and closes the request body so the connection
// can be reused.
func (api *API) closerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		_, _ = io.Copy(io.Discard, r.Body)
		_ = r.Body.Close()
	})
}

// requestIDMiddleware takes the request id from the X-Request-ID header or
// generates one, and echoes it back.
func (api *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestID, rid)))
	})
}

// wideEventLogMiddleware logs one event per request.
func (api *API) wideEventLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wideWriter := &wideResponseWriter{ResponseWriter: w}

		next.ServeHTTP(wideWriter, r)

		addr, _, _ := net.SplitHostPort(r.RemoteAddr)
		api.logger.Info("request received",
			zap.Any("request_id", r.Context().Value(requestID)),
			zap.Int("status_code", wideWriter.status),
			zap.Int("response_length", wideWriter.length),
			zap.String("method", r.Method),
			zap.String("remote_addr", addr),
			zap.String("uri", r.RequestURI),
			zap.String("user_agent", r.UserAgent()),
			zap.Duration("took", time.Since(start)),
			zap.Error(wideWriter.internalErr),
		)
	})
}

func (api *API) headersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func (api *API) WriteJSONError(w http.ResponseWriter, err error, code int) {
	if wrw, ok := w.(*wideResponseWriter); ok {
		wrw.internalErr = err
	}
	if code == http.StatusInternalServerError {
		err = ErrInternal
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (api *API) WriteJSON(w http.ResponseWriter, data any, code int) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func (api *API) handleItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := parseLimit(r.URL.Query().Get(limitQP))
		if err != nil {
			api.WriteJSONError(w, err, http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		items, err := api.service.Items(ctx, limit)
		if err != nil {
			api.WriteJSONError(w, err, http.StatusInternalServerError)
			return
		}
		api.WriteJSON(w, items, http.StatusOK)
	}
}

func (api *API) handleItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		it, err := api.service.Item(ctx, mux.Vars(r)["id"])
		if err != nil {
			api.WriteJSONError(w, err, http.StatusInternalServerError)
			return
		}
		if it == nil {
			api.WriteJSONError(w, ErrNotFound, http.StatusNotFound)
			return
		}
		api.WriteJSON(w, it, http.StatusOK)
	}
}

func (api *API) handleFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		f, err := api.service.Feed(ctx)
		if err != nil {
			api.WriteJSONError(w, err, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/feed+json;charset=utf-8")
		api.WriteJSON(w, f, http.StatusOK)
	}
}

func (api *API) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := Status{Running: api.service.Running()}
		if rep := api.service.LastReport(); rep != nil {
			st.LastReport = &reportStatus{
				RunID:            rep.RunID,
				StartedAt:        rep.StartedAt,
				Took:             rep.Took,
				Roots:            rep.Roots,
				Fetched:          rep.Fetched,
				FetchFailed:      rep.FetchFailed,
				Generated:        rep.Generated,
				GenerationFailed: rep.GenerationFailed,
				Persisted:        rep.Persisted,
			}
		}
		api.WriteJSON(w, st, http.StatusOK)
	}
}

func (api *API) handleCycleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := api.service.TriggerCycle()
		if errors.Is(err, app.ErrCycleRunning) {
			api.WriteJSONError(w, err, http.StatusConflict)
			return
		}
		if err != nil {
			api.WriteJSONError(w, err, http.StatusInternalServerError)
			return
		}
		api.WriteJSON(w, map[string]string{"status": "started"}, http.StatusAccepted)
	}
}

func (api *API) handleEvictionCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := api.service.Evict(r.Context())
		if err != nil {
			api.WriteJSONError(w, err, http.StatusInternalServerError)
			return
		}
		api.WriteJSON(w, map[string]int64{"evicted": n}, http.StatusOK)
	}
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("bad %q parameter: must be between 1 and %d", limitQP, maxLimit)
	}
	return n, nil
}
