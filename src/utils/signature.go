package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignWebhookBody computes the base64 HMAC-SHA256 signature the payment
// provider attaches to event deliveries. Exported for tests and local
// provider simulation.
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func hmacEqual(body []byte, signature, secret string) bool {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
