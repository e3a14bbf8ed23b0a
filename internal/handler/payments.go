package handler

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-admin/internal/queue"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

const (
	signatureHeader = "X-Paystack-Signature"
	maxWebhookBody  = 1 << 20
)

// PaymentHandler receives payment provider webhooks.
type PaymentHandler struct {
	Ledger *service.BookingLedger
	Secret string
}

// NewPaymentHandler creates a PaymentHandler.  An empty secret disables
// the webhook.
func NewPaymentHandler(ledger *service.BookingLedger, secret string) *PaymentHandler {
	return &PaymentHandler{Ledger: ledger, Secret: secret}
}

// validSignature checks the hex HMAC-SHA512 of body keyed by secret.
func validSignature(secret string, body []byte, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil || len(want) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Webhook verifies the provider signature and applies the payment
// outcome to the booking.  Events without an outcome are acknowledged
// and ignored.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	if h.Secret == "" {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payment webhook not configured"})
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "invalid body")
	}
	if !validSignature(h.Secret, body, c.Request().Header.Get(signatureHeader)) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}

	res, err := queue.DecodePayment(body)
	if errors.Is(err, queue.ErrUnhandledEvent) {
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Ledger.ConfirmPayment(ctx, res)
	if err != nil {
		return fail(c, err)
	}
	slog.Info("payment applied", "booking_id", b.ID, "outcome", res.Outcome, "payment_status", b.PaymentStatus)
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "booking": b})
}
