package utils

import (
	"encoding/json"
	"net/http"

	"botoapp/user/internal/models"
)

// JSON writes a JSON response with status code
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// JSONError writes an error message in JSON
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// JSONFieldErrors writes per-field validation failures.
func JSONFieldErrors(w http.ResponseWriter, status int, fields map[string]string) {
	JSON(w, status, models.ErrorResponse{Success: false, Errors: fields})
}

// JSONMessage writes a success envelope.
func JSONMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, models.MessageResponse{Success: true, Message: message})
}

// JSONDetail writes a {"detail": ...} body, used for authentication and permission failures.
func JSONDetail(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"detail": detail})
}
