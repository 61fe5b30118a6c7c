package middleware

import (
	"net/http"

	"github.com/angelmondragon/pdv-terminal/internal/attendant"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
)

const operatorHeader = "X-Operator-Id"

// Operator tags every request log entry with the signed-in operator and
// echoes the id so the local UI can show who the terminal is acting as.
func Operator(op attendant.Operator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if op.ID == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set(operatorHeader, op.ID)
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithOperatorID(ctx, op.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
