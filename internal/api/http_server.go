package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/internal/domain"
	"clubhouse/internal/metrics"
	"clubhouse/internal/models"
	"clubhouse/internal/worker"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking, reservation and facility engines over a
// small JSON API.
type HTTPServer struct {
	cfg          config.APIConfig
	bookings     domain.BookingService
	reservations domain.ReservationService
	facilities   domain.FacilityService
	members      domain.MemberService
	sweeper      domain.Sweeper
	exports      domain.ExportQueue
	server       *http.Server
	auth         *HTTPAuth
	logger       *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	bookings domain.BookingService,
	reservations domain.ReservationService,
	facilities domain.FacilityService,
	members domain.MemberService,
	sweeper domain.Sweeper,
	exports domain.ExportQueue,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:          cfg,
		bookings:     bookings,
		reservations: reservations,
		facilities:   facilities,
		members:      members,
		sweeper:      sweeper,
		exports:      exports,
		logger:       logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/facilities", srv.handleFacilities)
	mux.HandleFunc("/api/v1/facilities/status", srv.handleFacilityStatus)
	mux.HandleFunc("/api/v1/facilities/reserve", srv.handleReserve)
	mux.HandleFunc("/api/v1/members", srv.handleMembers)
	mux.HandleFunc("/api/v1/members/", srv.handleMemberByID)
	mux.HandleFunc("/api/v1/sweep", srv.handleSweep)
	mux.HandleFunc("/api/v1/exports", srv.handleExports)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the wrapped handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		category := models.Category(strings.TrimSpace(r.URL.Query().Get("category")))
		bookings, err := s.bookings.List(r.Context(), category)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})

	case http.MethodPost:
		var req models.CreateBookingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		booking, err := s.bookings.Create(r.Context(), req)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/bookings/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	if suffix, ok := strings.CutSuffix(rest, "/vouchers"); ok {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		id, err := parseID(suffix)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid booking id")
			return
		}
		vouchers, err := s.bookings.Vouchers(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"vouchers": vouchers})
		return
	}

	id, err := parseID(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var patch models.UpdateBookingRequest
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		booking, err := s.bookings.Update(r.Context(), id, patch)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case http.MethodDelete:
		if err := s.bookings.Delete(r.Context(), id); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleFacilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	category := models.Category(strings.TrimSpace(r.URL.Query().Get("category")))
	facilities, err := s.facilities.List(r.Context(), category)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"facilities": facilities})
}

func (s *HTTPServer) handleFacilityStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	category := models.Category(strings.TrimSpace(r.URL.Query().Get("category")))
	statuses, err := s.facilities.Statuses(r.Context(), category)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
}

func (s *HTTPServer) handleReserve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type request struct {
		Action      string    `json:"action"`
		FacilityIDs []int64   `json:"facility_ids"`
		From        time.Time `json:"from"`
		To          time.Time `json:"to"`
		AdminID     int64     `json:"admin_id"`
	}
	var body request
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch body.Action {
	case "", "reserve":
		reservations, err := s.reservations.Reserve(r.Context(), body.FacilityIDs, body.From, body.To, body.AdminID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})

	case "unreserve":
		removed, err := s.reservations.Unreserve(r.Context(), body.FacilityIDs, body.From, body.To)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed})

	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action: %s", body.Action))
	}
}

func (s *HTTPServer) handleMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		members, err := s.members.List(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": members})

	case http.MethodPost:
		var req models.CreateMemberRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		member, err := s.members.Create(r.Context(), req)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, member)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleMemberByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/members/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if suffix, ok := strings.CutSuffix(rest, "/bookings"); ok {
		id, err := parseID(suffix)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid member id")
			return
		}
		bookings, err := s.members.Bookings(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
		return
	}

	id, err := parseID(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member id")
		return
	}
	member, err := s.members.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *HTTPServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	report, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleExports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var task models.ExportTask
	if err := decodeJSON(r, &task); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.exports.Enqueue(r.Context(), task); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// writeDomainError maps the storage error taxonomy onto HTTP statuses.
// Reservation conflicts carry the full blocking-record list in the body.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	var reservationConflict *database.ReservationConflictError
	if errors.As(err, &reservationConflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     err.Error(),
			"conflicts": reservationConflict.Conflicts,
		})
		return
	}

	var unavailable *database.FacilityUnavailableError
	if errors.As(err, &unavailable) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	switch {
	case errors.Is(err, database.ErrInvalidWindow),
		errors.Is(err, database.ErrInvalidMember),
		errors.Is(err, database.ErrOverpayment):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSchedulingConflict),
		errors.Is(err, database.ErrAlreadyBooked),
		errors.Is(err, database.ErrFacilityReserved),
		errors.Is(err, database.ErrConcurrentEdit),
		errors.Is(err, database.ErrFacilityInUse):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := normalizeEndpoint(r.URL.Path)
		metrics.IncHTTP(endpoint)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// normalizeEndpoint collapses record ids so metric labels stay bounded.
func normalizeEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, fmt.Errorf("invalid id")
	}
	return strconv.ParseInt(raw, 10, 64)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
