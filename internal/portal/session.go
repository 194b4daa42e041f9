package portal

import (
	"context"
	"log"
	"time"

	apperrors "cportal/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

// loginRequest is the credential payload for the login endpoint.
type loginRequest struct {
	Username string `json:"email_or_username"`
	Password string `json:"password"`
}

// Login authenticates against the portal backend and stores the session token.
//
// Flow:
//  1. POST credentials to /api/login
//  2. Extract the token from the response (key varies by backend version)
//  3. Store the token for subsequent requests
//
// Returns:
//   - nil on success
//   - *LoginFailedError if the request fails or no token is returned
func (c *Client) Login(ctx context.Context, username, password string) error {
	log.Println("→ Logging in to the portal...")

	payload, err := c.doRequest(ctx, "POST", "/api/login", loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return apperrors.NewLoginFailedError("login request failed", err)
	}

	token := extractToken(payload)
	if token == "" {
		return apperrors.NewLoginFailedError("login response carried no token", nil)
	}

	c.setToken(token)
	log.Println("✓ Login successful")
	return nil
}

// Logout drops the stored session token.
func (c *Client) Logout() {
	c.setToken("")
}

// SessionValid reports whether the stored session token is still usable.
//
// Token inspection:
//   - No token stored → invalid
//   - JWT with an exp claim → valid until 30s before expiry (the margin
//     avoids racing the backend's clock)
//   - Opaque token or no exp claim → assumed valid; a 401 will correct us
func (c *Client) SessionValid() bool {
	token := c.Token()
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Not a JWT we can inspect; trust it until the backend says otherwise
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return time.Now().Before(exp.Time.Add(-30 * time.Second))
}

// extractToken digs the session token out of a login response.
//
// Known response shapes:
//
//	{"token": "..."}
//	{"access_token": "..."}
//	{"data": {"token": "..."}}
func extractToken(payload interface{}) string {
	rec, ok := payload.(map[string]interface{})
	if !ok {
		return ""
	}

	for _, key := range []string{"token", "access_token"} {
		if token, ok := rec[key].(string); ok && token != "" {
			return token
		}
	}

	if inner, ok := rec["data"].(map[string]interface{}); ok {
		return extractToken(inner)
	}

	return ""
}
