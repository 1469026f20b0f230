package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicegate/backend/internal/service/voiceauth"
)

// AuthConfig holds token verification settings.
type AuthConfig struct {
	JWTSecret   []byte
	TokenExpiry time.Duration
	Issuer      string
}

// Claims represents the JWT claims this service understands.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

// AuthMiddleware provides JWT bearer-token authentication.
type AuthMiddleware struct {
	config *AuthConfig
	tracer trace.Tracer
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(config *AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		config: config,
		tracer: otel.Tracer("api.rest.auth"),
	}
}

// Middleware validates the bearer token and requires every listed
// permission before admitting the request.
func (a *AuthMiddleware) Middleware(requiredPermissions ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := a.tracer.Start(r.Context(), "auth.middleware",
				trace.WithAttributes(
					attribute.StringSlice("required_permissions", requiredPermissions),
				),
			)
			defer span.End()

			token, err := extractBearerToken(r)
			if err != nil {
				span.RecordError(err)
				writeUnauthorized(w, "invalid authorization header")
				return
			}

			claims, err := a.validateToken(token)
			if err != nil {
				span.RecordError(err)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			for _, required := range requiredPermissions {
				if !hasPermission(claims.Permissions, required) {
					writeForbidden(w, "insufficient permissions")
					return
				}
			}

			span.SetAttributes(attribute.String("user_id", claims.UserID))
			ctx = context.WithValue(ctx, contextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IssueToken signs a token for the given user and permissions. Used by
// operational tooling and tests.
func (a *AuthMiddleware) IssueToken(userID string, permissions []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenExpiry)),
		},
		UserID:      userID,
		Permissions: permissions,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.config.JWTSecret)
}

func (a *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.config.JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if a.config.Issuer != "" && claims.Issuer != a.config.Issuer {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	return claims, nil
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header is not a bearer token")
	}
	return parts[1], nil
}

func hasPermission(granted []string, required string) bool {
	for _, p := range granted {
		if p == required {
			return true
		}
	}
	return false
}

// ClaimsFromContext returns the verified claims for the request, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKeyClaims).(*Claims)
	return claims, ok
}

// claimsAccessController adapts request-scoped JWT claims to the engine's
// access control interface. Permissions are of the form "<zone>:<level>",
// e.g. "security:admin".
type claimsAccessController struct{}

// NewClaimsAccessController returns an access controller backed by the
// claims the auth middleware stored in the request context.
func NewClaimsAccessController() voiceauth.AccessController {
	return claimsAccessController{}
}

func (claimsAccessController) CheckPermission(ctx context.Context, zone voiceauth.SecurityZone, level voiceauth.PermissionLevel) bool {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return false
	}
	required := fmt.Sprintf("%s:%s", zone, permissionName(level))
	// Admin on a zone implies every lower level.
	admin := fmt.Sprintf("%s:%s", zone, permissionName(voiceauth.PermissionAdmin))
	return hasPermission(claims.Permissions, required) || hasPermission(claims.Permissions, admin)
}

func permissionName(level voiceauth.PermissionLevel) string {
	switch level {
	case voiceauth.PermissionReadOnly:
		return "read"
	case voiceauth.PermissionWrite:
		return "write"
	case voiceauth.PermissionExecute:
		return "execute"
	case voiceauth.PermissionAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":{"code":"UNAUTHORIZED","message":%q}}`, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(w, `{"error":{"code":"FORBIDDEN","message":%q}}`, message)
}
