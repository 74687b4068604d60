// Package server serves world content over the collection API and streams
// content changes to websocket subscribers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/ports"
)

const shutdownTimeout = 5 * time.Second

// Store is the persistence the server needs: the content collections plus
// the change log.
type Store interface {
	ports.ContentStore
	RecentChanges(ctx context.Context, worldID string, limit int) ([]entities.ChangeEvent, error)
}

// HttpApiFunc handles one route. A returned error is written by httpError.
type HttpApiFunc func(w http.ResponseWriter, r *http.Request, vars map[string]string) error

// HTTPServer holds the dependencies of the route handlers.
type HTTPServer struct {
	Store  Store
	Hub    *Hub
	schema *payloadSchemas
	logger logrus.FieldLogger
}

// NewHTTPServer creates a server over store. Mutations are announced on hub.
func NewHTTPServer(store Store, hub *Hub, logger logrus.FieldLogger) (*HTTPServer, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	schemas, err := compilePayloadSchemas()
	if err != nil {
		return nil, err
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	return &HTTPServer{
		Store:  store,
		Hub:    hub,
		schema: schemas,
		logger: logger,
	}, nil
}

// kindPattern restricts the {kind} route variable to known collections so
// that fixed routes like /api/changes never match it.
func kindPattern() string {
	names := make([]string, len(entities.AllKinds))
	for i, k := range entities.AllKinds {
		names[i] = k.Path()
	}
	return "{kind:" + strings.Join(names, "|") + "}"
}

// CreateRouter builds the route table of s.
func CreateRouter(s *HTTPServer) *mux.Router {
	r := mux.NewRouter()
	collection := "/api/" + kindPattern()
	item := collection + "/{id}"

	m := map[string]map[string]HttpApiFunc{
		http.MethodGet: {
			"/api/health":  s.GetHealth,
			"/api/changes": s.GetChanges,
			"/api/events":  s.GetEvents,
			collection:     s.ListContent,
			item:           s.GetContent,
		},
		http.MethodPost: {
			collection: s.CreateContent,
		},
		http.MethodPut: {
			item: s.UpdateContent,
		},
		http.MethodDelete: {
			item: s.DeleteContent,
		},
		http.MethodOptions: {},
	}
	// Preflight is answered per path so unknown paths still get a 404.
	for _, route := range []string{"/api/health", "/api/changes", collection, item} {
		m[http.MethodOptions][route] = options
	}

	for method, routes := range m {
		for route, handler := range routes {
			r.Path(route).Methods(method).HandlerFunc(s.makeHttpHandler(method, route, handler))
		}
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCorsHeaders(w)
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found"})
	})
	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully and
// closes every change feed subscription.
func (s *HTTPServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           CreateRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("content server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down content server")
	s.Hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *HTTPServer) makeHttpHandler(method, route string, handlerFunc HttpApiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeCorsHeaders(w)
		start := time.Now()
		if err := handlerFunc(w, r, mux.Vars(r)); err != nil {
			s.httpError(w, r, err)
		}
		s.logger.WithFields(logrus.Fields{
			"method":   method,
			"route":    route,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("handled request")
	}
}

func writeCorsHeaders(w http.ResponseWriter) {
	w.Header().Add("Access-Control-Allow-Origin", "*")
	w.Header().Add("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
	w.Header().Add("Access-Control-Allow-Methods", "GET, POST, DELETE, PUT, OPTIONS")
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, thing any) error {
	val, err := json.Marshal(thing)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(val)
	return err
}

// apiError carries an explicit status and client-facing message.
type apiError struct {
	code int
	msg  string
}

func (e *apiError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &apiError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func notFound(kind entities.Kind) error {
	return &apiError{code: http.StatusNotFound, msg: capitalize(kind.Singular()) + " not found"}
}

func (s *HTTPServer) httpError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	msg := err.Error()

	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.code
		msg = apiErr.msg
	case errors.Is(err, ports.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ports.ErrValidation):
		code = http.StatusBadRequest
	}

	entry := s.logger.WithFields(logrus.Fields{"path": r.URL.Path, "status": code}).WithError(err)
	if code >= http.StatusInternalServerError {
		entry.Error("http error")
	} else {
		entry.Debug("http error")
	}
	writeJSON(w, code, errorBody{Error: msg})
}

func options(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	w.WriteHeader(http.StatusOK)
	return nil
}

// GetHealth reports that the server is up.
func (s *HTTPServer) GetHealth(w http.ResponseWriter, r *http.Request, vars map[string]string) error {
	return writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.Hub.SubscriberCount(),
	})
}
