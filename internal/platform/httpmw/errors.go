package httpmw

import (
	"encoding/json"
	"net/http"
)

// writeError writes {"error": "<status text>"} so edge rejections stay JSON
// like the API responses they replace.
func writeError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(code)})
}

func errorBody(code int) string {
	b, _ := json.Marshal(map[string]string{"error": http.StatusText(code)})
	return string(b)
}
