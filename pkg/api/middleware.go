package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// apiKeyHeader is the header clients authenticate with.
const apiKeyHeader = "X-API-Key"

// apiKeyMiddleware rejects requests whose API key header does not match
// the configured client key. The comparison is constant time so the key
// cannot be probed byte by byte.
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	expected := []byte(expectedKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				sendError(w, "missing "+apiKeyHeader+" header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
				sendError(w, "invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sendSuccess wraps a payload in the response envelope.
func sendSuccess(w http.ResponseWriter, data interface{}) {
	writeResponse(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// sendError wraps a failure message in the response envelope.
func sendError(w http.ResponseWriter, message string, statusCode int) {
	writeResponse(w, statusCode, APIResponse{Success: false, Error: message})
}

func writeResponse(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
