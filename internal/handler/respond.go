package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/dukerupert/shopsync/internal/errors"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"code","message","details"}. Anything that is
// not a domain error is logged and reported as INTERNAL.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var de *domainerrors.Error
	if !errors.As(err, &de) {
		de = domainerrors.Wrap(err, domainerrors.CodeInternal, "internal error")
	}
	if de.Code == domainerrors.CodeInternal {
		logger.Error("request failed", "error", err)
	}
	writeJSON(w, de.HTTPStatus(), de)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domainerrors.Validation("invalid JSON body")
	}
	return nil
}
