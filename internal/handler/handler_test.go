package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&service.ValidationError{Field: "email", Msg: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("%w: 40", service.ErrInvalidSeat), http.StatusBadRequest},
		{service.ErrAuthenticationFailed, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrSeatConflict, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", service.ErrInvalidTransition), http.StatusConflict},
		{service.ErrAlreadyInitialized, http.StatusConflict},
		{service.ErrSeatUnavailable, http.StatusConflict},
		{service.ErrSeatOccupied, http.StatusConflict},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestFailHidesInternalErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := fail(c, errors.New("dial tcp 10.0.0.1:3306: refused")); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "{\"error\":\"internal error\"}\n" {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	mac := hmac.New(sha512.New, []byte("secret"))
	mac.Write(body)
	good := hex.EncodeToString(mac.Sum(nil))

	if !validSignature("secret", body, good) {
		t.Fatal("valid signature rejected")
	}
	for _, sig := range []string{"", "zz", good[:len(good)-2], hex.EncodeToString([]byte("nope"))} {
		if validSignature("secret", body, sig) {
			t.Fatalf("signature %q accepted", sig)
		}
	}
	if validSignature("other", body, good) {
		t.Fatal("signature accepted under a different secret")
	}
}

func TestWebhookDisabledWithoutSecret(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", nil), rec)
	if err := NewPaymentHandler(nil, "").Webhook(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryInt(t *testing.T) {
	e := echo.New()
	for _, tc := range []struct {
		query string
		want  int
		ok    bool
	}{
		{"", 50, true},
		{"limit=7", 7, true},
		{"limit=-1", 0, false},
		{"limit=abc", 0, false},
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil), httptest.NewRecorder())
		got, ok := queryInt(c, "limit", 50)
		if got != tc.want || ok != tc.ok {
			t.Errorf("%q: got %d,%v want %d,%v", tc.query, got, ok, tc.want, tc.ok)
		}
	}
}
