package util

import (
	"encoding/json"
	"net/http"
)

// WriteBackMessage writes the given message as a json response to the response writer.
func WriteBackMessage(w http.ResponseWriter, message string, code int) {
	WriteBackJSON(w, map[string]interface{}{
		"code":    code,
		"status":  http.StatusText(code),
		"message": message,
	}, code)
}

// WriteBackError writes the given error message as a json response to the response writer.
func WriteBackError(w http.ResponseWriter, err string, code int) {
	WriteBackJSON(w, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"status":  http.StatusText(code),
			"message": err,
		},
	}, code)
}

// WriteBackJSON encodes v as the json response body.
func WriteBackJSON(w http.ResponseWriter, v interface{}, code int) {
	raw, err := json.Marshal(v)
	if err != nil {
		code = http.StatusInternalServerError
		raw = []byte(`{"error":{"code":500,"status":"Internal Server Error","message":"can't encode response"}}`)
	}
	WriteBackRaw(w, raw, code)
}

// WriteBackRaw writes the given json encoded bytes to the response writer.
func WriteBackRaw(w http.ResponseWriter, raw []byte, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	w.Write(raw)
}

// Contains checks the presence of a string in the given string slice.
func Contains(slice []string, val string) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}
