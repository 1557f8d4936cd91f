package handlers

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"pixelbox/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// writeJSON marshals v before touching the response, so an encoding
// failure still produces a clean 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Error("failed to encode JSON response: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logging.Debug("failed to write JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
