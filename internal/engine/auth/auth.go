package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MessageError indicates the challenge response lacked both message and nonce.
type MessageError struct {
	Identity string
}

func (e MessageError) Error() string {
	return fmt.Sprintf("auth message for %s missing message/nonce", e.Identity)
}

// VerifyError indicates the verify response lacked one of the session tokens.
type VerifyError struct {
	Identity string
}

func (e VerifyError) Error() string {
	return fmt.Sprintf("auth verify for %s did not return both tokens", e.Identity)
}

// TokenDecodeError indicates the user id could not be read from the access token.
type TokenDecodeError struct {
	Reason string
}

func (e TokenDecodeError) Error() string {
	return fmt.Sprintf("decode access token: %s", e.Reason)
}

// UserIDFromToken reads the user id claim out of a freshly issued access
// token. The signature is deliberately not verified: the token came straight
// from the trusted server over a verified transport, and this client holds
// no verification key for it.
func UserIDFromToken(accessToken string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return "", TokenDecodeError{Reason: err.Error()}
	}
	for _, name := range []string{"userId", "sub", "id"} {
		if v, ok := claims[name]; ok {
			switch id := v.(type) {
			case string:
				if id != "" {
					return id, nil
				}
			case float64:
				return fmt.Sprintf("%.0f", id), nil
			}
		}
	}
	return "", TokenDecodeError{Reason: "no user id claim in token"}
}
