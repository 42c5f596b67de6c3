package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	errs "TeamSync/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Identity is the verified user handed to the gateway. Token validation
// itself happens upstream; this package only extracts what upstream
// already vouched for.
type Identity struct {
	UserID string
}

type Provider interface {
	Identify(r *http.Request) (Identity, error)
}

// HandshakeAuth resolves identity from the websocket handshake request.
// Two shapes are accepted:
//
//   - `auth` query parameter carrying the classic {"user":{"id":"..."}}
//     handshake payload, or
//   - a bearer token (Authorization header or `token` query parameter)
//     signed upstream with the shared HMAC secret, `sub` = user id.
type HandshakeAuth struct {
	Secret []byte
}

func NewHandshakeAuth(secret string) *HandshakeAuth {
	return &HandshakeAuth{Secret: []byte(secret)}
}

type handshakePayload struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (a *HandshakeAuth) Identify(r *http.Request) (Identity, error) {
	if raw := r.URL.Query().Get("auth"); raw != "" {
		var p handshakePayload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return Identity{}, errs.ErrRejectedConnection.WrapMsg("bad auth payload")
		}
		if p.User.ID == "" {
			return Identity{}, errs.ErrRejectedConnection.WrapMsg("missing user id")
		}
		return Identity{UserID: p.User.ID}, nil
	}

	if token := bearerToken(r); token != "" && len(a.Secret) > 0 {
		return a.fromToken(token)
	}

	return Identity{}, errs.ErrRejectedConnection.WrapMsg("no identity in handshake")
}

func (a *HandshakeAuth) fromToken(token string) (Identity, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only; anything else is not our upstream
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errs.ErrRejectedConnection.WithDetail("unexpected alg")
		}
		return a.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, errs.ErrRejectedConnection.WrapMsg("invalid token")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Identity{}, errs.ErrRejectedConnection.WrapMsg("claims type mismatch")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, errs.ErrRejectedConnection.WrapMsg("missing sub claim")
	}
	return Identity{UserID: sub}, nil
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
