package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/server/auth"
)

type ctxKey int

const userIDKey ctxKey = iota

// requireAuth validates the bearer token and stores the user ID in the
// request context. Expired tokens keep their own message so clients can
// refresh and retry.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, common.ErrUnauthenticated)
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates the prompt catalog writes behind the admin role.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.users.GetSession(r.Context(), userIDFrom(r.Context()))
		if err != nil {
			writeError(w, common.ErrUnauthenticated)
			return
		}
		if user.Role != "admin" {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
