package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dronelink/dronelinkd/internal/auth"
	"github.com/dronelink/dronelinkd/internal/command"
	"github.com/dronelink/dronelinkd/internal/session"
)

// maxCommandBytes caps a command request body.
const maxCommandBytes = 64 << 10

// CommandResult is the data of a POST /commands response.
type CommandResult struct {
	SessionID string       `json:"sessionId"`
	CommandID string       `json:"commandId"`
	Kind      command.Kind `json:"kind"`
	Channel   uint         `json:"channel"`
	Code      string       `json:"code"`
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.opts.Metrics != nil {
		r.Use(s.opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteErr(w, r, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s is not allowed", r.Method), nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.opts.Auth.Authenticate)

			read := auth.RequireScope(auth.ScopeRead)
			r.With(read).Get("/session", s.handleSession)
			r.With(read).Get("/status", s.handleStatus)
			r.With(read).Get("/advisories", s.handleAdvisories)
			r.With(read).Get("/commands", s.handleCommandKinds)

			control := auth.RequireScope(auth.ScopeCommand)
			r.With(control).Post("/commands", s.handleCommand)
			r.With(control).Post("/session/refresh", s.handleRefresh)

			r.With(auth.RequireScope(auth.ScopeTelemetry)).Get("/telemetry", s.handleTelemetry)
		})
	})
	return r
}

// logRequests logs every request at debug level and failures at warn.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		level := s.logger.Debug
		if ww.Status() >= http.StatusInternalServerError {
			level = s.logger.Warn
		}
		level("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(started),
			"requestId", middleware.GetReqID(r.Context()))
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
		"version": s.opts.Version,
		"session": false,
	}
	if sess := s.opts.Manager.Session(); sess != nil {
		health["session"] = true
		health["sessionId"] = sess.ID()
	}
	WriteSuccess(w, r, health)
}

// handleSession handles GET /session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.opts.Manager.Session()
	if sess == nil {
		WriteErr(w, r, session.ErrNoSession)
		return
	}
	WriteSuccess(w, r, sess.State())
}

// handleRefresh handles POST /session/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := s.opts.Manager.Session()
	if sess == nil {
		WriteErr(w, r, session.ErrNoSession)
		return
	}
	sess.Refresh(r.Context())
	WriteSuccess(w, r, sess.State())
}

// handleStatus handles GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, s.opts.Manager.StatusMessages())
}

// handleAdvisories handles GET /advisories
func (s *Server) handleAdvisories(w http.ResponseWriter, r *http.Request) {
	advisories := map[string]interface{}{}
	if zone, ok := s.opts.Manager.FlyZoneState(); ok {
		advisories["flyZone"] = zone
	}
	if activation, ok := s.opts.Manager.ActivationState(); ok {
		advisories["activation"] = activation
	}
	WriteSuccess(w, r, advisories)
}

// handleCommandKinds handles GET /commands
func (s *Server) handleCommandKinds(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, command.Kinds())
}

// handleCommand handles POST /commands. With ?async=true it answers 202 once
// the command is accepted; otherwise it waits for the outcome.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes+1))
	if err != nil {
		WriteErr(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if len(body) > maxCommandBytes {
		WriteErr(w, r, fmt.Errorf("%w: body exceeds %d bytes", ErrBadRequest, maxCommandBytes))
		return
	}

	cmd, err := command.Decode(body)
	if err != nil {
		WriteErr(w, r, err)
		return
	}

	sess := s.opts.Manager.Session()
	if sess == nil {
		WriteErr(w, r, session.ErrNoSession)
		return
	}

	meta := cmd.Metadata()
	result := CommandResult{
		SessionID: sess.ID(),
		CommandID: meta.ID,
		Kind:      cmd.Kind(),
		Channel:   meta.Channel,
	}

	if r.URL.Query().Get("async") == "true" {
		if err := sess.Execute(r.Context(), cmd, nil); err != nil {
			WriteErr(w, r, err)
			return
		}
		result.Code = "ACCEPTED"
		WriteStatus(w, r, http.StatusAccepted, result)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.CommandWait)
	defer cancel()
	if err := sess.Run(ctx, cmd); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("Client gone before command outcome", "command", meta.ID)
		}
		WriteErr(w, r, err)
		return
	}
	result.Code = command.Code(nil)
	WriteSuccess(w, r, result)
}

// handleTelemetry handles GET /telemetry
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Telemetry.Subscribe(r.Context(), w, r); err != nil {
		s.logger.Warn("Telemetry subscription failed", "error", err)
		if w.Header().Get("Content-Type") == "" {
			WriteError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "Telemetry is not available", nil)
		}
	}
}
