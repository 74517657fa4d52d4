// Package server exposes the notification engine's boundary operations over
// HTTP for the UI layer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/devsecdash/notification-engine/internal/models"
	"github.com/devsecdash/notification-engine/internal/router"
	"github.com/devsecdash/notification-engine/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
}

// HTTPServer serves the notification API
type HTTPServer struct {
	config  *ServerConfig
	server  *http.Server
	router  *mux.Router
	service *router.Service
	logger  *logrus.Logger
}

// NewHTTPServer creates a new HTTP server around the router service
func NewHTTPServer(config *ServerConfig, service *router.Service) *HTTPServer {
	s := &HTTPServer{
		config:  config,
		service: service,
		logger:  utils.GetLogger(),
	}

	s.setupRouter()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.HandlerFor(
			s.service.Metrics().Prometheus().Registry(),
			promhttp.HandlerOpts{}))
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Notification endpoints
	api.HandleFunc("/notifications", s.sendNotificationHandler).Methods("POST")
	api.HandleFunc("/notifications/schedule", s.scheduleNotificationHandler).Methods("POST")
	api.HandleFunc("/notifications/schedule/{id}", s.cancelNotificationHandler).Methods("DELETE")
	api.HandleFunc("/deliveries", s.listDeliveriesHandler).Methods("GET")

	// Preference endpoints
	api.HandleFunc("/preferences/{user}", s.getPreferencesHandler).Methods("GET")
	api.HandleFunc("/preferences/{user}", s.updatePreferencesHandler).Methods("PUT")

	// Rule endpoints
	api.HandleFunc("/rules", s.listRulesHandler).Methods("GET")
	api.HandleFunc("/rules", s.addRuleHandler).Methods("POST")
	api.HandleFunc("/rules/{id}", s.removeRuleHandler).Methods("DELETE")

	// Digest endpoints
	api.HandleFunc("/digests/{user}/{frequency}", s.generateDigestHandler).Methods("POST")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Catch immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts down the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, for tests
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// sendNotificationRequest is the POST /notifications body
type sendNotificationRequest struct {
	Payload    *models.NotificationPayload `json:"payload"`
	Recipients []string                    `json:"recipients"`
	Channels   []string                    `json:"channels"`
	SendAt     *time.Time                  `json:"send_at,omitempty"`
}

func (s *HTTPServer) sendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "Invalid request body", err.Error()))
		return
	}

	deliveries, err := s.service.SendNotification(r.Context(), req.Payload, req.Recipients, req.Channels)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"deliveries": deliveries,
	})
}

func (s *HTTPServer) scheduleNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "Invalid request body", err.Error()))
		return
	}
	if req.SendAt == nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "send_at is required"))
		return
	}

	id, err := s.service.ScheduleNotification(req.Payload, req.Recipients, req.Channels, *req.SendAt)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"schedule_id": id,
		"send_at":     req.SendAt,
	})
}

func (s *HTTPServer) cancelNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	delivery := s.service.CancelNotification(id)
	if delivery == nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeNotFound, "No pending schedule", id))
		return
	}

	s.writeJSON(w, http.StatusOK, delivery)
}

func (s *HTTPServer) listDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	deliveries, err := s.service.RecentDeliveries(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"deliveries": deliveries,
	})
}

func (s *HTTPServer) getPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	s.writeJSON(w, http.StatusOK, s.service.GetUserPreferences(user))
}

func (s *HTTPServer) updatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	var prefs models.UserPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "Invalid request body", err.Error()))
		return
	}
	prefs.UserID = user

	if err := s.service.UpdateUserPreferences(&prefs); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &prefs)
}

func (s *HTTPServer) listRulesHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": s.service.Rules(),
	})
}

func (s *HTTPServer) addRuleHandler(w http.ResponseWriter, r *http.Request) {
	var rule models.NotificationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		s.writeError(w, utils.NewAppError(utils.ErrCodeValidation, "Invalid request body", err.Error()))
		return
	}
	if rule.ID == "" {
		rule.ID = utils.GenerateID()
	}

	if err := s.service.AddNotificationRule(&rule); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, &rule)
}

func (s *HTTPServer) removeRuleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !s.service.RemoveNotificationRule(id) {
		s.writeError(w, utils.NewAppError(utils.ErrCodeNotFound, "Rule not found", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) generateDigestHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	digest, err := s.service.GenerateDigest(vars["user"], models.DigestFrequency(vars["frequency"]))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, digest)
}

func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.GetNotificationMetrics())
}

func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	healthy := s.service.IsHealthy()
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"healthy":   healthy,
		"timestamp": time.Now().UTC(),
	})
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps AppError codes to HTTP status codes
func (s *HTTPServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case utils.ErrCodeValidation, utils.ErrCodeConfiguration:
			status = http.StatusBadRequest
		case utils.ErrCodeNotFound:
			status = http.StatusNotFound
		case utils.ErrCodeRateLimit:
			status = http.StatusTooManyRequests
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}
