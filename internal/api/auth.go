package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/elitedental/clinic-server/internal/clinic"
)

// StaffClaims are the JWT claims issued to a logged-in staff member.
type StaffClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthHandler verifies staff credentials against the store and issues HS256
// tokens. The dashboard is gated here, at the trusted boundary, not in the
// client.
type AuthHandler struct {
	store  clinic.Store
	secret []byte
	ttl    time.Duration
}

func NewAuthHandler(store clinic.Store, secret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials", "username and password are required")
		return
	}

	user, err := h.store.GetStaffByUsername(r.Context(), req.Username)
	if err != nil {
		// Same response for unknown user and wrong password.
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	expiresAt := time.Now().Add(h.ttl)
	claims := StaffClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}

// RequireStaff rejects requests without a valid staff Bearer token.
func RequireStaff(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization header is required")
				return
			}

			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
			claims := &StaffClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SeedStaffUser makes sure the configured staff account exists, hashing the
// password with bcrypt. Called once at startup.
func SeedStaffUser(ctx context.Context, store clinic.Store, username, password string) error {
	_, err := store.GetStaffByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, clinic.ErrStaffNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = store.CreateStaff(ctx, clinic.StaffUser{Username: username, PasswordHash: string(hash)})
	return err
}
