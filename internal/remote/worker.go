package remote

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Worker serves a Multiplier over HTTP. It is the deployed side of Client.
type Worker struct {
	multiplier Multiplier
	logger     *slog.Logger
}

// NewWorker creates a worker. A nil multiplier multiplies locally.
func NewWorker(m Multiplier, logger *slog.Logger) *Worker {
	if m == nil {
		m = Local{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{multiplier: m, logger: logger}
}

// RegisterRoutes registers the worker routes on the given mux
func (w *Worker) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/multiply", w.handleMultiply)
	mux.HandleFunc("GET /healthz", w.handleHealth)
}

// Handler returns a mux serving only the worker routes
func (w *Worker) Handler() http.Handler {
	mux := http.NewServeMux()
	w.RegisterRoutes(mux)
	return mux
}

func (w *Worker) handleMultiply(rw http.ResponseWriter, r *http.Request) {
	var req MultiplyRequest
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 1<<16))
	if err := dec.Decode(&req); err != nil {
		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	product, err := w.multiplier.Multiply(r.Context(), req.A, req.B)
	if errors.Is(err, ErrOverflow) {
		w.logger.Warn("multiply_overflow", "request_id", r.Header.Get(RequestIDHeader), "a", req.A, "b", req.B)
		writeJSON(rw, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		w.logger.Error("multiply_failed", "request_id", r.Header.Get(RequestIDHeader), "error", err)
		writeJSON(rw, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	w.logger.Debug("multiply",
		"request_id", r.Header.Get(RequestIDHeader),
		"a", req.A,
		"b", req.B,
		"product", product,
	)
	writeJSON(rw, http.StatusOK, MultiplyResponse{Product: product})
}

func (w *Worker) handleHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
