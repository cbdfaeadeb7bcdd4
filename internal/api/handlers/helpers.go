package handlers

import (
	"encoding/json"
	"errors"
	"evacuation-dashboard/internal/api/dto"
	"evacuation-dashboard/internal/domain"
	"evacuation-dashboard/internal/platform/obs"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; a plan with every shelter and route
// inline is well under this.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeRepoError maps store errors to HTTP responses. Unknown errors are
// logged and hidden behind a generic 500.
func writeRepoError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		writeError(w, r, http.StatusNotFound, dto.MsgPlanNotFound)
	case errors.Is(err, domain.ErrPlanConflict):
		writeError(w, r, http.StatusConflict, dto.MsgPlanExists)
	case errors.Is(err, domain.ErrInvalidPlan):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error(op+" failed",
			zap.String("req_id", obs.RequestID(r.Context())),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody reads exactly one JSON object into v. With strict set, unknown
// fields are rejected; otherwise they are ignored.
// It writes the 400 itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, strict bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}
