package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"tdash/internal/models"
)

type ctxKey string

const userKey ctxKey = "auth.user"

// UserFrom достаёт аутентифицированную учётку из контекста запроса.
func UserFrom(r *http.Request) (*models.User, bool) {
	u, ok := r.Context().Value(userKey).(*models.User)
	return u, ok
}

// RequireAuth: Authorization: Bearer <jwt>. Подпись/срок проверяет
// Service, затем учётка перечитывается из store — токены выключенной
// учётки или устаревшей версии (смена пароля, deactivate) отсекаются.
func RequireAuth(svc *Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, prefix) {
				unauthorized(w, "Missing authorization token")
				return
			}

			claims, err := svc.VerifyToken(strings.TrimPrefix(header, prefix))
			if err != nil {
				unauthorized(w, "Could not validate credentials")
				return
			}

			u, err := svc.ResolveAccount(r.Context(), claims)
			switch {
			case errors.Is(err, ErrInactiveAccount):
				unauthorized(w, "Inactive account")
				return
			case errors.Is(err, ErrInvalidToken):
				unauthorized(w, "Could not validate credentials")
				return
			case err != nil:
				models.WriteProblem(w, http.StatusInternalServerError,
					"Internal Server Error", "account lookup failed", nil)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole — гейт по рангу; вешается после RequireAuth.
func RequireRole(required models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFrom(r)
			if !ok {
				unauthorized(w, "Could not validate credentials")
				return
			}
			if !HasPermission(u.Role, required) {
				models.WriteMessage(w, http.StatusForbidden, false, "Not enough permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	models.WriteMessage(w, http.StatusUnauthorized, false, msg)
}
