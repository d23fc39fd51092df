package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/route-beacon/isis-ingester/internal/capture"
	"github.com/route-beacon/isis-ingester/internal/isis"
	"go.uber.org/zap"
)

// ConsumerStatus is an interface for checking Kafka consumer join state.
type ConsumerStatus interface {
	IsJoined() bool
}

// DBChecker abstracts the database health check for testability.
type DBChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	srv        *http.Server
	dbChecker  DBChecker
	consumers  map[string]ConsumerStatus
	maxPayload int
	logger     *zap.Logger
}

// NewServer wires the health, metrics and decode endpoints. consumers is
// keyed by pipeline name; each one shows up as kafka_<name> in /readyz.
func NewServer(addr string, db DBChecker, consumers map[string]ConsumerStatus, maxPayload int, logger *zap.Logger) *Server {
	s := &Server{
		dbChecker:  db,
		consumers:  consumers,
		maxPayload: maxPayload,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.HandleFunc("/decode", s.handleDecode)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	allOK := true

	if s.dbChecker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.dbChecker.Ping(ctx); err != nil {
			checks["postgres"] = "error"
			allOK = false
		} else {
			checks["postgres"] = "ok"
		}
	} else {
		checks["postgres"] = "error"
		allOK = false
	}

	names := make([]string, 0, len(s.consumers))
	for name := range s.consumers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := s.consumers[name]
		if c != nil && c.IsJoined() {
			checks["kafka_"+name] = "ok"
		} else {
			checks["kafka_"+name] = "not_joined"
			allOK = false
		}
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !allOK {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

type decodeResponse struct {
	capture.Summary
	HasLLC    bool   `json:"has_llc"`
	Roundtrip string `json:"roundtrip"`
}

// defaultDecodeLimit caps /decode bodies when no payload limit is configured.
const defaultDecodeLimit = 1 << 20

// handleDecode accepts one raw capture record as the request body and
// answers with its summary.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := int64(s.maxPayload)
	if limit <= 0 {
		limit = defaultDecodeLimit
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if int64(len(body)) > limit {
		writeJSON(w, http.StatusRequestEntityTooLarge,
			map[string]string{"error": fmt.Sprintf("body exceeds %d bytes", limit)})
		return
	}

	frame, err := capture.DecodeFrame(body, s.maxPayload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	pkt, _, err := isis.Parse(frame.PDU)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	resp := decodeResponse{
		Summary:   capture.Summarize(pkt),
		HasLLC:    frame.HasLLC,
		Roundtrip: "ok",
	}
	if err := capture.VerifyRoundTrip(pkt, frame.PDU); err != nil {
		s.logger.Debug("decode endpoint roundtrip mismatch", zap.Error(err))
		resp.Roundtrip = "mismatch"
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
