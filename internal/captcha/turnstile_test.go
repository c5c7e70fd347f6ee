package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joinline/joinline/internal/logging"
)

func TestVerifySkippedWithoutSecret(t *testing.T) {
	v := NewTurnstile("", logging.Discard())
	if err := v.Verify(context.Background(), "", "1.2.3.4"); err != nil {
		t.Fatalf("expected skip without secret, got %v", err)
	}
}

func TestVerifyMissingToken(t *testing.T) {
	v := NewTurnstile("secret", logging.Discard())
	if err := v.Verify(context.Background(), "", "1.2.3.4"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Secret != "secret" || req.Response != "tok" || req.RemoteIP != "1.2.3.4" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(verifyResponse{Success: true})
	}))
	defer srv.Close()

	v := NewTurnstile("secret", logging.Discard())
	v.endpoint = srv.URL

	if err := v.Verify(context.Background(), "tok", "1.2.3.4"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(verifyResponse{Success: false, ErrorCodes: []string{"invalid-input-response"}})
	}))
	defer srv.Close()

	v := NewTurnstile("secret", logging.Discard())
	v.endpoint = srv.URL

	err := v.Verify(context.Background(), "tok", "")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(err.Error(), "invalid-input-response") {
		t.Fatalf("expected error codes in message, got %v", err)
	}
}

func TestVerifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // shut down immediately

	v := NewTurnstile("secret", logging.Discard())
	v.endpoint = srv.URL

	if err := v.Verify(context.Background(), "tok", ""); err == nil {
		t.Fatal("expected network error")
	}
}
