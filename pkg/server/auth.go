package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"google.golang.org/api/idtoken"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
)

// tokenValidator validates an ID token and returns its payload.
type tokenValidator func(ctx context.Context, token string) (*idtoken.Payload, error)

// oidcValidator adapts a go-oidc verifier into a tokenValidator.
func oidcValidator(v *oidc.IDTokenVerifier, audience string) tokenValidator {
	return func(ctx context.Context, token string) (*idtoken.Payload, error) {
		tok, err := v.Verify(ctx, token)
		if err != nil {
			return nil, err
		}
		var claims map[string]any
		if err := tok.Claims(&claims); err != nil {
			return nil, fmt.Errorf("failed to decode claims: %w", err)
		}
		return &idtoken.Payload{
			Issuer:   tok.Issuer,
			Audience: audience,
			Expires:  tok.Expiry.Unix(),
			IssuedAt: tok.IssuedAt.Unix(),
			Subject:  tok.Subject,
			Claims:   claims,
		}, nil
	}
}

// authMiddleware requires a valid ID token belonging to an admin email. It
// lets every request through when no audience is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.tokenValidator == nil {
			next.ServeHTTP(w, r)
			return
		}

		token, err := requestToken(r)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "missing auth token", slog.Any("error", err))
			writeJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		}

		email, err := s.authenticateToken(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "auth token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid auth token", http.StatusUnauthorized)
			return
		}

		if !s.isAdmin(email) {
			log.Ctx(ctx).WarnContext(ctx, "non-admin attempted audit", slog.String("email", email))
			writeJSONError(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx = context.WithValue(ctx, emailContextKey, email)
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("email", email)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestToken reads a bearer token from the Authorization header, falling
// back to the auth cookie.
func requestToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, "Bearer ") {
			return "", errors.New("invalid auth header")
		}
		return strings.TrimPrefix(h, "Bearer "), nil
	}
	c, err := r.Cookie(authTokenCookie)
	if err != nil {
		return "", errors.New("missing auth token")
	}
	return c.Value, nil
}

func (s *Server) authenticateToken(ctx context.Context, token string) (string, error) {
	payload, err := s.tokenValidator(ctx, token)
	if err != nil {
		return "", err
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return "", errors.New("token has no email claim")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return "", fmt.Errorf("email %s is not verified", email)
	}
	return email, nil
}

// isAdmin reports whether email may trigger audits. With no admin list every
// authenticated user may.
func (s *Server) isAdmin(email string) bool {
	if len(s.adminEmails) == 0 {
		return true
	}
	for _, admin := range s.adminEmails {
		if subtle.ConstantTimeCompare([]byte(email), []byte(admin)) == 1 {
			return true
		}
	}
	return false
}
