package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"campus-carpool/internal/general/jwt"
	"campus-carpool/internal/ports"
)

type joinInstantRequest struct {
	Seats int `json:"seats"`
}

type joinByRequestRequest struct {
	Seats   int    `json:"seats"`
	Message string `json:"message,omitempty"`
}

// ----- Handler: POST /rides/{ride_id}/join -----

func (handler *BookingHTTPHandler) handleJoinInstant(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID := strings.TrimSpace(r.PathValue("ride_id"))
	if rideID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "ride_id is required", nil)
		return
	}
	ctx = handler.logger.WithRideID(ctx, rideID)

	var req joinInstantRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	if req.Seats < 1 {
		handler.httpError(ctx, w, http.StatusBadRequest, "seats must be at least 1", nil)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.JoinInstant(ctxWithTimeout, ports.JoinInstantInput{
		RideID:      rideID,
		PassengerID: strings.TrimSpace(claims.Subject),
		Seats:       req.Seats,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}

// ----- Handler: POST /rides/{ride_id}/requests -----

func (handler *BookingHTTPHandler) handleJoinByRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID := strings.TrimSpace(r.PathValue("ride_id"))
	if rideID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "ride_id is required", nil)
		return
	}
	ctx = handler.logger.WithRideID(ctx, rideID)

	var req joinByRequestRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	if req.Seats < 1 {
		handler.httpError(ctx, w, http.StatusBadRequest, "seats must be at least 1", nil)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.JoinByRequest(ctxWithTimeout, ports.JoinRequestInput{
		RideID:      rideID,
		PassengerID: strings.TrimSpace(claims.Subject),
		Seats:       req.Seats,
		Message:     req.Message,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}
