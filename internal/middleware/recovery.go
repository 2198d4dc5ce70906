package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"valve-backend/pkg/utils"
)

// PanicRecovery converts handler panics into a 500 so a bad report
// submission cannot take the server down
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Recovery] panic on %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				utils.Fail(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
