package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tillpoint/pos-engine/api/responses"
	"github.com/tillpoint/pos-engine/internal/register"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/logger"
)

const registerIDHeader = "X-Register-Id"

type sessionCtxKey struct{}

// RegisterSession resolves the caller's register session from the
// X-Register-Id header and stashes it in the request context. Requests
// without the header are rejected; every cart-facing route needs to know
// which terminal it is operating.
func RegisterSession(manager *register.Manager, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			registerID := strings.TrimSpace(r.Header.Get(registerIDHeader))
			if registerID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing X-Register-Id header"))
				return
			}

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRegisterID(ctx, registerID)
			}

			sess := manager.Session(ctx, registerID)
			ctx = context.WithValue(ctx, sessionCtxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the register session resolved by
// RegisterSession.
func SessionFromContext(ctx context.Context) (*register.Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(*register.Session)
	return sess, ok
}
