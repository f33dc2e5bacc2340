package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"SelfChat/internal/backend"
	"SelfChat/internal/chat"
	"SelfChat/internal/config"
	"SelfChat/internal/selftrigger"
	"SelfChat/internal/telemetry"
)

const missingMessage = "Missing 'message' in request body"

// Recorder persists one self-triggered exchange
type Recorder interface {
	Record(message, response string) error
}

type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse omits the self-triggered fields when the call was made at the
// maximum depth and so did not trigger again.
type chatResponse struct {
	InitialLLMResponse    string  `json:"initial_llm_response"`
	SelfTriggeredMessage  *string `json:"self_triggered_message,omitempty"`
	SelfTriggeredResponse *string `json:"self_triggered_response,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	cfg     config.Config
	runner  *chat.Runner
	trigger selftrigger.Trigger
	convo   Recorder
	readier backend.Readier
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New builds the API. A nil trigger runs the self-triggered step in process.
// readier and metrics may be nil.
func New(cfg config.Config, runner *chat.Runner, trigger selftrigger.Trigger, convo Recorder, readier backend.Readier, metrics *telemetry.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		runner:  runner,
		trigger: trigger,
		convo:   convo,
		readier: readier,
		metrics: metrics,
		logger:  logger,
	}
	if s.trigger == nil {
		s.trigger = selftrigger.Func(s.triggerInProcess)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Post("/chat", s.handleChat)
	r.Get("/sessions", s.handleListSessions)
	r.Get("/sessions/{id}", s.handleGetSession)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readier != nil {
		if err := s.readier.Ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		s.respondChatError(w, http.StatusBadRequest, missingMessage)
		return
	}

	depth := selftrigger.ParseDepth(r)
	resp, err := s.exchange(r.Context(), req.Message, depth)
	if err != nil {
		s.logger.Error("error processing request",
			"error", err,
			"depth", depth,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
		s.respondChatError(w, http.StatusInternalServerError, internalError(err))
		return
	}

	s.metrics.ChatRequest(strconv.Itoa(http.StatusOK))
	respondJSON(w, http.StatusOK, resp)
}

// exchange runs one generation step and, below the depth limit, feeds the reply
// back through the self-trigger. A non-200 self-call degrades to an error string.
func (s *Server) exchange(ctx context.Context, message string, depth int) (chatResponse, error) {
	reply, err := s.runner.Respond(ctx, s.cfg.SessionID, message)
	if err != nil {
		return chatResponse{}, err
	}
	resp := chatResponse{InitialLLMResponse: reply}

	if depth >= s.cfg.MaxSelfTriggerDepth {
		s.metrics.SelfTrigger("skipped")
		return resp, nil
	}

	selfResp, err := s.trigger.Trigger(ctx, reply, depth+1)
	var statusErr *selftrigger.StatusError
	switch {
	case errors.As(err, &statusErr):
		selfResp = statusErr.Error()
		s.metrics.SelfTrigger("degraded")
		s.logger.Warn("self-triggered call degraded", "status", statusErr.StatusCode, "depth", depth+1)
	case err != nil:
		s.metrics.SelfTrigger("failed")
		return chatResponse{}, fmt.Errorf("self-triggered call failed: %w", err)
	default:
		s.metrics.SelfTrigger("ok")
	}

	resp.SelfTriggeredMessage = &reply
	resp.SelfTriggeredResponse = &selfResp

	if s.convo != nil {
		if err := s.convo.Record(reply, selfResp); err != nil {
			return chatResponse{}, err
		}
	}
	return resp, nil
}

// triggerInProcess answers the self-triggered message without a network hop.
// Failures surface as the StatusError the loopback endpoint would have returned.
func (s *Server) triggerInProcess(ctx context.Context, message string, depth int) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", &selftrigger.StatusError{StatusCode: http.StatusBadRequest, Body: errorBody(missingMessage)}
	}
	resp, err := s.exchange(ctx, message, depth)
	if err != nil {
		s.logger.Error("error processing request", "error", err, "depth", depth)
		return "", &selftrigger.StatusError{StatusCode: http.StatusInternalServerError, Body: errorBody(internalError(err))}
	}
	return resp.InitialLLMResponse, nil
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	keys, err := s.runner.Sessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, internalError(err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": keys})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := s.runner.History(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, internalError(err))
		return
	}
	if len(turns) == 0 {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session_id": id, "turns": turns})
}

func (s *Server) respondChatError(w http.ResponseWriter, status int, message string) {
	s.metrics.ChatRequest(strconv.Itoa(status))
	respondError(w, status, message)
}

func internalError(err error) string {
	return "An internal server error occurred: " + err.Error()
}

func errorBody(message string) string {
	b, _ := json.Marshal(errorResponse{Error: message})
	return string(b)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
