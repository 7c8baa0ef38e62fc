package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/common/apperrors"
	"github.com/worlddata/portalsrv/internal/common/httpx"
	"github.com/worlddata/portalsrv/internal/portalsrv/config"
)

// SessionCookieName carries the signed admin session token.
const SessionCookieName = "portal_session"

var (
	ErrAuth           apperrors.Error = apperrors.New("authentication error").SetStatusCode(http.StatusUnauthorized)
	ErrInvalidSession apperrors.Error = ErrAuth.New("sessao invalida ou expirada")
	ErrInvalidKey     apperrors.Error = ErrAuth.New("chave de acesso invalida")
	ErrNotAdmin       apperrors.Error = apperrors.New("acesso restrito a administradores").SetStatusCode(http.StatusForbidden)
)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueSession signs a session token for email, valid for the configured
// number of hours.
func IssueSession(email string) (string, time.Time, apperrors.Error) {
	cfg := config.Config()
	expiry := time.Now().UTC().Add(time.Duration(cfg.SessionValidity) * time.Hour)
	claims := sessionClaims{
		Email: strings.ToLower(strings.TrimSpace(email)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "portal-admin",
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.SessionSecret))
	if err != nil {
		return "", time.Time{}, ErrAuth.Err(err)
	}
	return signed, expiry, nil
}

// ParseSession validates the token signature and expiry and returns the
// session email.
func ParseSession(tokenString string) (string, apperrors.Error) {
	cfg := config.Config()
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.SessionSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidSession.Err(err)
	}
	if claims.Email == "" {
		return "", ErrInvalidSession
	}
	return claims.Email, nil
}

// SetSessionCookie attaches the session token to the response.
func SetSessionCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// EmailFromRequest extracts the session email from the cookie or from a
// Bearer token. Returns false when no valid session is present.
func EmailFromRequest(r *http.Request) (string, bool) {
	tokenString := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		tokenString = cookie.Value
	}
	if tokenString == "" {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if tokenString == "" {
		return "", false
	}
	email, err := ParseSession(tokenString)
	if err != nil {
		return "", false
	}
	return email, true
}

// VerifyAccessKey checks the shared admin key and the email allow-list.
func VerifyAccessKey(email, accessKey string) apperrors.Error {
	cfg := config.Config()
	if accessKey == "" || accessKey != cfg.AdminAccessKey {
		return ErrInvalidKey
	}
	if !cfg.IsAdminEmail(email) {
		return ErrNotAdmin
	}
	return nil
}

// AdminOnly rejects requests without a valid admin session. Missing or
// invalid sessions get 401, valid sessions for non-admin emails get 403.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := EmailFromRequest(r)
		if !ok {
			httpx.ErrUnAuthorized("sessao invalida ou expirada").Send(w)
			return
		}
		if !config.Config().IsAdminEmail(email) {
			log.Ctx(r.Context()).Info().Str("email", email).Msg("admin access denied")
			httpx.ErrForbidden("acesso restrito a administradores").Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
