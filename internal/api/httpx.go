package api

import (
	"encoding/json"
	"io"
	"net/http"
)

const maxWebhookBodyBytes int64 = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, errCode, message string, retryable bool) {
	writeJSON(w, code, map[string]interface{}{
		"error": map[string]interface{}{
			"code":      errCode,
			"message":   message,
			"retryable": retryable,
		},
	})
}

func readBodyLimited(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return io.ReadAll(r.Body)
}
