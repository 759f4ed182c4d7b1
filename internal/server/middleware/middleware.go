// Package middleware provides the HTTP middleware chain shared by every
// route: CORS, request logging, API-key auth, and Redis-backed rate limiting.
package middleware

import (
	"net/http"
	"strconv"
)

// deny writes the service-wide error body shape, so middleware rejections
// look the same to the dashboard client as handler errors.
func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":false,"error":` + strconv.Quote(msg) + `}`))
}
