package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/authz"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// RequestIDMiddleware echoes the request id in the response headers.
// It runs after chi's RequestID, which honours an incoming X-Request-ID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}
		w.Header().Set(middleware.RequestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

// Claims carried by storefront bearer tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var errMalformedAuth = errors.New("authorization header must be 'Bearer <token>'")

// Authenticator turns a bearer token into an authz.Principal on the request
// context. Requests without an Authorization header continue anonymously;
// routes that need a user reject them later.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.parse(header)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid or expired token",
				Code:    "unauthorized",
				Details: err.Error(),
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(authz.WithPrincipal(r.Context(), principal)))
	})
}

func (a *Authenticator) parse(header string) (authz.Principal, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return authz.Principal{}, errMalformedAuth
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return authz.Principal{}, err
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return authz.Principal{}, errors.New("token has no user id")
	}

	role := authz.RoleUser
	if claims.Role == string(authz.RoleAdmin) {
		role = authz.RoleAdmin
	}
	return authz.Principal{UserID: userID, Role: role}, nil
}

// IssueToken signs an HS256 token for p, valid for ttl.
func (a *Authenticator) IssueToken(p authz.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: p.UserID,
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// requireUser returns the authenticated principal, or writes 401 and
// reports false.
func requireUser(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	p := authz.FromContext(r.Context())
	if p.Anonymous() {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return p, false
	}
	return p, true
}
