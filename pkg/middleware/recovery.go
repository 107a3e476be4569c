package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"gearshed-backend/pkg/config"
	"gearshed-backend/pkg/utils"
)

// Recovery turns panics into 500 responses. Development responses include
// the panic value and stack; production responses hide both, but the
// stack is always logged.
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					stack := debug.Stack()
					log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, err, stack)

					if cfg.IsDevelopment() {
						utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR",
							fmt.Sprintf("Internal server error: %v", err),
							string(stack))
					} else {
						utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
