package handlers

import (
	"encoding/json"
	"net/http"
)

// Health reports that the process is serving requests.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
