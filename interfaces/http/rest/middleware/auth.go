package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"optigroup/pkg/auth"
	"optigroup/pkg/common"
)

// AuthMiddleware validates bearer tokens and attaches the caller identity
// to the request context.
type AuthMiddleware struct {
	validator   *auth.JWTValidator
	logger      *zap.Logger
	rateLimiter *auth.IPRateLimiter
	userLimiter *auth.UserRateLimiter
}

// AuthConfig holds authentication middleware configuration. IPLimiter and
// UserLimiter are optional; in-memory limiters are used when unset.
type AuthConfig struct {
	JWTSecret   string
	Issuer      string
	Audience    []string
	IPLimiter   *auth.IPRateLimiter
	UserLimiter *auth.UserRateLimiter
}

// NewAuthMiddleware creates authentication middleware
func NewAuthMiddleware(cfg AuthConfig, logger *zap.Logger) (*AuthMiddleware, error) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
	})
	if err != nil {
		return nil, err
	}

	ipLimiter := cfg.IPLimiter
	if ipLimiter == nil {
		ipLimiter = auth.NewIPRateLimiter(60)
	}
	userLimiter := cfg.UserLimiter
	if userLimiter == nil {
		userLimiter = auth.NewUserRateLimiter(120)
	}

	return &AuthMiddleware{
		validator:   validator,
		logger:      logger,
		rateLimiter: ipLimiter,
		userLimiter: userLimiter,
	}, nil
}

// Authenticate validates the Authorization header and enriches the context
// with the authenticated user.
func (m *AuthMiddleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			if allowed, err := m.rateLimiter.Allow(r.Context(), clientIP); err == nil && !allowed {
				m.logger.Warn("Rate limit exceeded", zap.String("ip", clientIP))
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}

			token := extractToken(r)
			if token == "" {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authentication token")
				return
			}

			claims, err := m.validator.ValidateToken(token)
			if err != nil {
				m.logger.Debug("Token validation failed",
					zap.Error(err),
					zap.String("ip", clientIP),
				)
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					common.RespondError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired")
				case errors.Is(err, auth.ErrInvalidSignature):
					common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token signature")
				default:
					common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authentication token")
				}
				return
			}

			if allowed, err := m.userLimiter.Allow(r.Context(), claims.UserID); err == nil && !allowed {
				m.logger.Warn("User rate limit exceeded", zap.String("user_id", claims.UserID))
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}

			user := &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			}
			ctx := auth.SetUserInContext(r.Context(), user)
			ctx = common.WithUserID(ctx, claims.UserID)
			ctx = common.WithUserRoles(ctx, claims.Roles)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateForLambda trusts the user identity resolved by the API Gateway
// authorizer. The gateway injects X-User-Id after validating the token, so
// the function itself does not re-verify signatures.
func (m *AuthMiddleware) AuthenticateForLambda() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-Id")
			if userID == "" {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing user identity")
				return
			}

			user := &auth.UserContext{
				UserID: userID,
				Email:  r.Header.Get("X-User-Email"),
				Roles:  strings.Split(r.Header.Get("X-User-Roles"), ","),
			}
			ctx := auth.SetUserInContext(r.Context(), user)
			ctx = common.WithUserID(ctx, userID)
			ctx = common.WithUserRoles(ctx, user.Roles)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole restricts a route to users carrying the given role.
func (m *AuthMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if !common.HasRole(r.Context(), role) {
				m.logger.Warn("Insufficient permissions",
					zap.String("user_id", user.UserID),
					zap.String("required_role", role),
				)
				common.RespondError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return parts[1]
}

// getClientIP extracts the client IP, honoring proxy headers
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
