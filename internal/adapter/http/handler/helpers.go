package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/iho/escrowledger/internal/adapter/http/dto"
	"github.com/iho/escrowledger/internal/domain"
)

var errBodyTooLarge = fmt.Errorf("%w: request body too large", domain.ErrInvalidBody)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes err with the status its kind maps to.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapDomainError(err), dto.ErrorFromDomain(err))
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch domain.Kind(err) {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrInvalidBody, domain.ErrInvalidModification:
		return http.StatusBadRequest
	case domain.ErrUnauthorized:
		return http.StatusForbidden
	case domain.ErrUnprocessableEntity, domain.ErrInsufficientFunds, domain.ErrUnmetCondition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// createdOrOK is 200 when the resource already existed and 201 otherwise.
func createdOrOK(existed bool) int {
	if existed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, dto.MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > dto.MaxBodyBytes {
		return nil, errBodyTooLarge
	}
	return body, nil
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
