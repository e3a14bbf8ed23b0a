package config

import "os"

// PaymentConfig configures payment confirmation.  WebhookSecret is the
// Paystack secret key used to verify x-paystack-signature; the webhook
// rejects every call while it is empty.
type PaymentConfig struct {
	WebhookSecret   string // PAYSTACK_SECRET_KEY
	ConsumerEnabled bool   // PAYMENT_CONSUMER_ENABLED
}

// LoadPaymentConfig reads the payment settings.
func LoadPaymentConfig() PaymentConfig {
	return PaymentConfig{
		WebhookSecret:   os.Getenv("PAYSTACK_SECRET_KEY"),
		ConsumerEnabled: envBool("PAYMENT_CONSUMER_ENABLED", false),
	}
}

// PolicyConfig names an optional Rego file replacing the built-in
// admin authorization policy.
type PolicyConfig struct {
	File string // POLICY_FILE
}
