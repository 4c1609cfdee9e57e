package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"campus-carpool/internal/domain/ride"
	"campus-carpool/internal/general/jwt"
	"campus-carpool/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type createRideRequest struct {
	FromLocation   string  `json:"from_location"`
	ToLocation     string  `json:"to_location"`
	DepartureTime  string  `json:"departure_time"` // RFC 3339
	TotalSeats     int     `json:"total_seats"`
	PricePerSeat   float64 `json:"price_per_seat"`
	InstantBooking bool    `json:"instant_booking"`
	ChatEnabled    *bool   `json:"chat_enabled,omitempty"`

	VehicleMake  string `json:"vehicle_make,omitempty"`
	VehicleModel string `json:"vehicle_model,omitempty"`
	VehicleColor string `json:"vehicle_color,omitempty"`
	VehicleAC    bool   `json:"vehicle_ac,omitempty"`

	SmokingAllowed bool `json:"smoking_allowed,omitempty"`
	MusicAllowed   bool `json:"music_allowed,omitempty"`
	PetsAllowed    bool `json:"pets_allowed,omitempty"`
}

// ----- Handler: POST /rides -----

func (handler *BookingHTTPHandler) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	// generate a context with request ID
	ctx := handler.withReqID(r.Context(), r)

	var req createRideRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	// the driver is always the token subject
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	departure, err := time.Parse(time.RFC3339, strings.TrimSpace(req.DepartureTime))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "departure_time must be RFC 3339", err)
		return
	}
	if !departure.After(time.Now()) {
		handler.httpError(ctx, w, http.StatusBadRequest, "departure_time must be in the future", nil)
		return
	}

	in := ports.CreateRideInput{
		DriverID:       strings.TrimSpace(claims.Subject),
		FromLocation:   strings.TrimSpace(req.FromLocation),
		ToLocation:     strings.TrimSpace(req.ToLocation),
		DepartureTime:  departure,
		TotalSeats:     req.TotalSeats,
		PricePerSeat:   req.PricePerSeat,
		InstantBooking: req.InstantBooking,
		Preferences: ride.Preferences{
			SmokingAllowed: req.SmokingAllowed,
			MusicAllowed:   req.MusicAllowed,
			PetsAllowed:    req.PetsAllowed,
		},
		ChatEnabled: true,
	}
	if req.ChatEnabled != nil {
		in.ChatEnabled = *req.ChatEnabled
	}
	if strings.TrimSpace(req.VehicleMake) != "" {
		in.Vehicle = &ride.VehicleInfo{
			Make:  strings.TrimSpace(req.VehicleMake),
			Model: strings.TrimSpace(req.VehicleModel),
			Color: strings.TrimSpace(req.VehicleColor),
			AC:    req.VehicleAC,
		}
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CreateRide(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}
	ctxWithTimeout = handler.logger.WithRideID(ctxWithTimeout, res.RideID)

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}
