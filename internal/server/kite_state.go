package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bobmcallan/folio/internal/secret"
)

// stateCookieName holds the OAuth state between /api/kite/login and the callback.
const stateCookieName = "kite_oauth_state"

const stateIssuer = "folio"

var errInvalidState = errors.New("invalid OAuth state")

// stateClaims binds a login attempt to one account.
type stateClaims struct {
	AccountID string `json:"acct"`
	jwt.RegisteredClaims
}

// stateSigner issues and verifies signed, expiring OAuth state values. The
// HMAC key is derived from the token encryption key.
type stateSigner struct {
	key    []byte
	expiry time.Duration
	now    func() time.Time
}

func newStateSigner(passphrase string, expiry time.Duration) (*stateSigner, error) {
	key, err := secret.DeriveKey(passphrase, secret.PurposeOAuthState, 32)
	if err != nil {
		return nil, err
	}
	return &stateSigner{key: key, expiry: expiry, now: time.Now}, nil
}

// Issue returns a state value for accountID carrying a random nonce.
func (s *stateSigner) Issue(accountID string) (string, error) {
	nonce := make([]byte, 24)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	claims := stateClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        hex.EncodeToString(nonce),
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify checks the signature and expiry and returns the account id.
func (s *stateSigner) Verify(state string) (string, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidState, err)
	}
	if claims.AccountID == "" {
		return "", fmt.Errorf("%w: missing account", errInvalidState)
	}
	return claims.AccountID, nil
}

// setStateCookie stores the state for the callback to compare against.
func (s *Server) setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(s.state.expiry.Seconds()),
		HttpOnly: true,
		Secure:   s.app.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.app.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
