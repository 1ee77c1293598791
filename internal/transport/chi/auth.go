package chi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinico-health/assist/internal/domain"
)

// Auth holds the credentials the transport verifies. JWTSecret is
// required; ServiceToken and AdminToken are optional and disable their
// respective paths when empty.
type Auth struct {
	JWTSecret    string
	ServiceToken string
	AdminToken   string
}

type ctxKey int

const identityKey ctxKey = iota

// WithIdentity stores the authenticated caller on the context.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller set by the auth middleware.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok
}

// authenticate resolves the caller from either a service token or a
// Bearer JWT and rejects the request otherwise.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(r)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (s *Server) identify(r *http.Request) (domain.Identity, error) {
	if token := r.Header.Get("X-Service-Token"); token != "" {
		if s.auth.ServiceToken == "" || token != s.auth.ServiceToken {
			return domain.Identity{}, fmt.Errorf("%w: invalid service token", domain.ErrUnauthorized)
		}
		return domain.Identity{UserID: "service", Role: domain.RoleAdmin}, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing authorization header", domain.ErrUnauthorized)
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: authorization header must use Bearer scheme", domain.ErrUnauthorized)
	}

	return s.parseToken(raw)
}

func (s *Server) parseToken(raw string) (domain.Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.auth.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	userID := stringClaim(claims, "user_id")
	if userID == "" {
		userID = stringClaim(claims, "sub")
	}
	if userID == "" {
		return domain.Identity{}, fmt.Errorf("%w: token carries no user id", domain.ErrUnauthorized)
	}

	return domain.Identity{
		UserID: userID,
		Email:  stringClaim(claims, "email"),
		Role:   domain.ParseRole(stringClaim(claims, "role")),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

// requireAdmin gates an endpoint to admin callers. A matching
// X-Admin-Token header grants access regardless of role.
func (s *Server) requireAdmin(r *http.Request) error {
	if s.auth.AdminToken != "" && r.Header.Get("X-Admin-Token") == s.auth.AdminToken {
		return nil
	}
	if id, ok := IdentityFrom(r.Context()); ok && id.Role == domain.RoleAdmin {
		return nil
	}
	return fmt.Errorf("%w: admin access required", domain.ErrForbidden)
}
