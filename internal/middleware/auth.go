package middleware

import (
	"context"
	"errors"
	"net/http"

	"botoapp/user/internal/models"
	"botoapp/user/internal/utils"

	"go.uber.org/zap"
)

const userKey contextKey = "auth_user"

// UserLoader resolves the user named by a token.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// Authenticate requires a valid access token whose user exists and is active.
func Authenticate(issuer *utils.TokenIssuer, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := issuer.VerifyToken(r)
			if err != nil {
				if errors.Is(err, utils.ErrMissingAuthHeader) {
					utils.JSONDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
					return
				}
				utils.JSON(w, http.StatusUnauthorized, map[string]string{
					"detail": "Given token not valid for any token type",
					"code":   "token_not_valid",
				})
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil || user == nil {
				if logger != nil && err != nil {
					logger.Debug("token user lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
				}
				utils.JSON(w, http.StatusUnauthorized, map[string]string{
					"detail": "User not found",
					"code":   "user_not_found",
				})
				return
			}
			if !user.IsActive {
				utils.JSON(w, http.StatusUnauthorized, map[string]string{
					"detail": "User is inactive",
					"code":   "user_inactive",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin rejects authenticated users without admin access.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			utils.JSONDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		if !user.HasAdminAccess() {
			utils.JSONDetail(w, http.StatusForbidden, "Only Admins are authorized to perform this action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
