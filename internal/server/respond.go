// internal/server/respond.go
package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the uniform error envelope. Messages here stay within the
// sanitized vocabulary; upstream bodies and stack traces are logged only.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already written; nothing more can be sent.
		s.logger.Error("failed to encode response", map[string]interface{}{
			"statusCode": statusCode,
			"error":      err.Error(),
		})
	}
}

func (s *Server) respondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	s.respondWithJSON(w, statusCode, resp)
}
