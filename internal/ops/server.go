// Package ops is the small HTTP surface of the engine: a health probe for
// the hosting platform and token-protected endpoints that trigger the same
// sweeps the operator chat commands do.
package ops

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskgold/engine/internal/utils"
)

// Sweeper is a reconciliation job that can be triggered on demand.
type Sweeper interface {
	Run(ctx context.Context) (int, error)
}

func NewRouter(token string, payouts, reclaimer Sweeper) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(Auth(token))
		r.Post("/ops/payouts", sweepHandler("payout", payouts))
		r.Post("/ops/reclaim", sweepHandler("abandonment", reclaimer))
	})

	return r
}

// Auth guards the ops endpoints with a static bearer token. An empty
// configured token disables the endpoints entirely.
func Auth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				utils.WriteJSONError(w, http.StatusUnauthorized, "Ops endpoints are disabled")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				utils.WriteJSONError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
				return
			}
			presented := strings.TrimPrefix(authHeader, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				log.Printf("Ops: rejected request with a bad token")
				utils.WriteJSONError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sweepHandler(name string, sweeper Sweeper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := sweeper.Run(r.Context())
		if err != nil {
			log.Printf("Ops: %s sweep failed: %v", name, err)
			utils.WriteJSONError(w, http.StatusInternalServerError, "Sweep failed")
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]int{"processed": n})
	}
}
