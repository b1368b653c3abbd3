package api

import (
	"encoding/json"
	"net/http"

	"earnify/domain/apperrors"

	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	Message     string `json:"message"`
	NextClaimIn *int   `json:"nextClaimIn,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response body")
	}
}

func writeSuccess(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError maps err's kind to a status. Unclassified errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   string(apperrors.CodeInternal),
			Message: "Internal server error",
		})
		return
	}

	resp := errorResponse{
		Error:   string(appErr.Code),
		Message: appErr.Message,
	}
	if appErr.Code == apperrors.CodeAlreadyClaimed {
		next := appErr.NextEligibleInHours
		resp.NextClaimIn = &next
	}
	if resp.Message == "" {
		resp.Message = string(appErr.Code)
	}
	writeJSON(w, statusFor(appErr), resp)
}

func statusFor(err *apperrors.Error) int {
	switch err.Kind {
	case apperrors.KindAuth:
		switch err.Code {
		case apperrors.CodeMissingPayload, apperrors.CodeMissingHash:
			return http.StatusUnauthorized
		case apperrors.CodeServerMisconfigured:
			return http.StatusInternalServerError
		default:
			return http.StatusForbidden
		}
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindStateConflict:
		if err.Code == apperrors.CodeAlreadyClaimed {
			return http.StatusBadRequest
		}
		return http.StatusConflict
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUpstreamTrustViolation:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	return nil
}

var errMissingOutcome = apperrors.BadRequest("success is required")
