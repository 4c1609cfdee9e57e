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

type decideRequest struct {
	Decision string `json:"decision"` // ACCEPTED | REJECTED
}

// ----- Handler: POST /requests/{request_id}/decide -----

func (handler *BookingHTTPHandler) handleDecideRequest(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	requestID := strings.TrimSpace(r.PathValue("request_id"))
	if requestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", nil)
		return
	}

	var req decideRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	decision := ports.Decision(strings.ToUpper(strings.TrimSpace(req.Decision)))
	if !decision.Valid() {
		handler.httpError(ctx, w, http.StatusBadRequest, "decision must be ACCEPTED or REJECTED", nil)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.DecideRequest(ctxWithTimeout, ports.DecideInput{
		RequestID: requestID,
		DriverID:  strings.TrimSpace(claims.Subject),
		Decision:  decision,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
