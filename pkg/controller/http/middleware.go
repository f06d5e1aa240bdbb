package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
)

type ctxUserKey struct{}

func contextWithUser(ctx context.Context, user model.UserContext) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, user)
}

func userFromContext(ctx context.Context) (model.UserContext, bool) {
	user, ok := ctx.Value(ctxUserKey{}).(model.UserContext)
	return user, ok
}

// userMiddleware reads the caller identity set by the upstream identity-aware
// proxy. Requests without a user ID are rejected.
func userMiddleware(userHeader, departmentHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := types.UserID(strings.TrimSpace(r.Header.Get(userHeader)))
			if err := userID.Validate(); err != nil {
				writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: "Authentication required"})
				return
			}

			user := model.UserContext{UserID: userID}
			if departmentHeader != "" {
				user.Department = strings.TrimSpace(r.Header.Get(departmentHeader))
			}

			ctx := contextWithUser(r.Context(), user)
			ctx = logging.With(ctx, logging.From(ctx).With("user_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
