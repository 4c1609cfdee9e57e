package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"campus-carpool/internal/domain/request"
	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/domain/user"
	"campus-carpool/internal/general/jwt"
	"campus-carpool/internal/general/logger"
	"campus-carpool/internal/observability"
	"campus-carpool/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BookingHTTPHandler adapts HTTP requests to the BookingService.
type BookingHTTPHandler struct {
	svc    ports.BookingService
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewBookingHTTPHandler wires an HTTP handler around the BookingService.
func NewBookingHTTPHandler(svc ports.BookingService, logger *logger.Logger, auth *jwt.Manager) *BookingHTTPHandler {
	return &BookingHTTPHandler{svc: svc, logger: logger, auth: auth}
}

// RegisterRoutes mounts booking endpoints on the provided mux.
func (handler *BookingHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	anyRole := user.AllRoles

	mux.HandleFunc("POST /rides",
		handler.instrument("/rides", jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleCreateRide)),
	)
	mux.HandleFunc("POST /rides/{ride_id}/join",
		handler.instrument("/rides/{ride_id}/join", jwt.AuthMiddlewareFunc(handler.auth, user.RolePassenger, user.RoleDriver)(handler.handleJoinInstant)),
	)
	mux.HandleFunc("POST /rides/{ride_id}/requests",
		handler.instrument("/rides/{ride_id}/requests", jwt.AuthMiddlewareFunc(handler.auth, user.RolePassenger, user.RoleDriver)(handler.handleJoinByRequest)),
	)
	mux.HandleFunc("POST /requests/{request_id}/decide",
		handler.instrument("/requests/{request_id}/decide", jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleDecideRequest)),
	)
	mux.HandleFunc("POST /rides/{ride_id}/leave",
		handler.instrument("/rides/{ride_id}/leave", jwt.AuthMiddlewareFunc(handler.auth, user.RolePassenger, user.RoleDriver)(handler.handleCancelParticipation)),
	)
	mux.HandleFunc("POST /rides/{ride_id}/cancel",
		handler.instrument("/rides/{ride_id}/cancel", jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleCancelRide)),
	)

	mux.HandleFunc("GET /rides",
		handler.instrument("/rides", jwt.AuthMiddlewareFunc(handler.auth, anyRole...)(handler.handleListRides)),
	)
	mux.HandleFunc("GET /rides/stats",
		handler.instrument("/rides/stats", jwt.AuthMiddlewareFunc(handler.auth, anyRole...)(handler.handleStats)),
	)
	mux.HandleFunc("GET /rides/{ride_id}",
		handler.instrument("/rides/{ride_id}", jwt.AuthMiddlewareFunc(handler.auth, anyRole...)(handler.handleGetRide)),
	)
	mux.HandleFunc("GET /rides/{ride_id}/requests",
		handler.instrument("/rides/{ride_id}/requests", jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleListPendingRequests)),
	)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /rides/health", handler.handleHealth)
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
}

func (handler *BookingHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// ----- dev token minting -----

type TokenRequest struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
}

// TokenResponse represents the response for token generation
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

func (handler *BookingHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueUserToken(req.UserID, req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	response := TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    req.UserID,
		Role:      req.Role,
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": req.Role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, response)
}

// ----- general helpers -----

// decodeJSON applies the body limits and strict decoding shared by all
// mutation endpoints. Reports whether decoding succeeded; on failure the
// error response has already been written.
func (handler *BookingHTTPHandler) decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// serviceError translates domain error kinds to HTTP status codes.
func (handler *BookingHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ride.ErrRideNotFound),
		errors.Is(err, request.ErrNotFound),
		errors.Is(err, ride.ErrNotAPassenger):
		handler.httpError(ctx, w, http.StatusNotFound, err.Error(), err)

	case errors.Is(err, ports.ErrUnauthorized):
		handler.httpError(ctx, w, http.StatusForbidden, err.Error(), err)

	case errors.Is(err, request.ErrInsufficientSeatsAtDecision),
		errors.Is(err, ride.ErrInsufficientSeats),
		errors.Is(err, request.ErrDuplicateActiveRequest),
		errors.Is(err, ride.ErrAlreadyConfirmedPassenger),
		errors.Is(err, ride.ErrRideNotJoinable),
		errors.Is(err, request.ErrAlreadyDecided),
		errors.Is(err, ride.ErrInvalidStatusTransition):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)

	case errors.Is(err, ports.ErrStoreUnavailable):
		handler.httpError(ctx, w, http.StatusServiceUnavailable, "data store unavailable", err)

	default:
		// distinguish unclassified DB failures from validation errors
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	}
}

func (handler *BookingHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *BookingHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *BookingHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// instrument records request count and latency per route pattern.
func (handler *BookingHTTPHandler) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next(rec, r)

		status := strconv.Itoa(rec.status)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
