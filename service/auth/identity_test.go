package auth

import (
	"net/http/httptest"
	"net/url"
	"testing"

	errs "TeamSync/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const testSecret = "handshake-test-secret"

func TestIdentifyFromAuthParam(t *testing.T) {
	a := NewHandshakeAuth(testSecret)

	payload := url.QueryEscape(`{"user":{"id":"u42"}}`)
	r := httptest.NewRequest("GET", "/ws?auth="+payload, nil)

	id, err := a.Identify(r)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if id.UserID != "u42" {
		t.Fatalf("user id = %q, want u42", id.UserID)
	}
}

func TestIdentifyRejectsMalformedAuthParam(t *testing.T) {
	a := NewHandshakeAuth(testSecret)

	for _, raw := range []string{`not-json`, `{"user":{}}`, `{}`} {
		r := httptest.NewRequest("GET", "/ws?auth="+url.QueryEscape(raw), nil)
		_, err := a.Identify(r)
		if err == nil {
			t.Fatalf("auth=%q accepted", raw)
		}
		if !errs.ErrRejectedConnection.Is(err) {
			t.Fatalf("auth=%q: error %v is not a rejection", raw, err)
		}
	}
}

func TestIdentifyRejectsNoIdentity(t *testing.T) {
	a := NewHandshakeAuth(testSecret)

	r := httptest.NewRequest("GET", "/ws", nil)
	_, err := a.Identify(r)
	if err == nil {
		t.Fatal("bare handshake accepted")
	}
	if !errs.ErrRejectedConnection.Is(err) {
		t.Fatalf("error %v is not a rejection", err)
	}
}

func signHS256(t *testing.T, secret string, claims jwtlib.MapClaims) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestIdentifyFromBearerHeader(t *testing.T) {
	a := NewHandshakeAuth(testSecret)

	token := signHS256(t, testSecret, jwtlib.MapClaims{"sub": "u7"})
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	id, err := a.Identify(r)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if id.UserID != "u7" {
		t.Fatalf("user id = %q, want u7", id.UserID)
	}
}

func TestIdentifyFromTokenQuery(t *testing.T) {
	a := NewHandshakeAuth(testSecret)

	token := signHS256(t, testSecret, jwtlib.MapClaims{"sub": "u8"})
	r := httptest.NewRequest("GET", "/ws?token="+url.QueryEscape(token), nil)

	id, err := a.Identify(r)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if id.UserID != "u8" {
		t.Fatalf("user id = %q, want u8", id.UserID)
	}
}

func TestIdentifyRejectsWrongSecret(t *testing.T) {
	a := NewHandshakeAuth(testSecret)

	token := signHS256(t, "some-other-secret", jwtlib.MapClaims{"sub": "u9"})
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := a.Identify(r)
	if err == nil {
		t.Fatal("token with wrong secret accepted")
	}
	if !errs.ErrRejectedConnection.Is(err) {
		t.Fatalf("error %v is not a rejection", err)
	}
}

func TestIdentifyRejectsTokenWithoutSub(t *testing.T) {
	a := NewHandshakeAuth(testSecret)

	token := signHS256(t, testSecret, jwtlib.MapClaims{"aud": "gateway"})
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := a.Identify(r)
	if err == nil {
		t.Fatal("token without sub accepted")
	}
}

func TestAuthParamWinsOverToken(t *testing.T) {
	a := NewHandshakeAuth(testSecret)

	token := signHS256(t, testSecret, jwtlib.MapClaims{"sub": "from-token"})
	payload := url.QueryEscape(`{"user":{"id":"from-param"}}`)
	r := httptest.NewRequest("GET", "/ws?auth="+payload, nil)
	r.Header.Set("Authorization", "Bearer "+token)

	id, err := a.Identify(r)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if id.UserID != "from-param" {
		t.Fatalf("user id = %q, want from-param", id.UserID)
	}
}
