package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/bus-seat-admin/internal/model"
)

// ErrUnhandledEvent marks a payment provider event that carries no
// payment outcome, such as a transfer notification.
var ErrUnhandledEvent = errors.New("unhandled payment event")

// providerEvent is the Paystack webhook envelope.
type providerEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Metadata  struct {
			BookingID string `json:"booking_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// DecodePayment parses a payment message.  Both a plain PaymentResult
// and a Paystack webhook envelope are accepted.
func DecodePayment(body []byte) (model.PaymentResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return model.PaymentResult{}, fmt.Errorf("decode payment: %w", err)
	}
	if _, ok := fields["event"]; !ok {
		var r model.PaymentResult
		if err := json.Unmarshal(body, &r); err != nil {
			return model.PaymentResult{}, fmt.Errorf("decode payment: %w", err)
		}
		if r.BookingID == "" {
			return model.PaymentResult{}, errors.New("decode payment: booking_id is missing")
		}
		return r, nil
	}

	var ev providerEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.PaymentResult{}, fmt.Errorf("decode payment: %w", err)
	}
	r := model.PaymentResult{BookingID: ev.Data.Metadata.BookingID, Reference: ev.Data.Reference}
	switch ev.Event {
	case "charge.success":
		r.Outcome = model.PaymentSucceeded
	case "charge.failed":
		r.Outcome = model.PaymentFailed
	default:
		return model.PaymentResult{}, fmt.Errorf("%w: %s", ErrUnhandledEvent, ev.Event)
	}
	if strings.EqualFold(ev.Data.Status, "abandoned") {
		r.Outcome = model.PaymentCancelled
	}
	if r.BookingID == "" {
		return model.PaymentResult{}, errors.New("decode payment: metadata.booking_id is missing")
	}
	return r, nil
}
