package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Gateway-Signature"

// CaptureSignature is the hex HMAC-SHA256 of "<gatewayOrderId>|<gatewayPaymentId>".
func CaptureSignature(secret, gatewayOrderID, gatewayPaymentID string) string {
	return sign(secret, []byte(gatewayOrderID+"|"+gatewayPaymentID))
}

// WebhookSignature is the hex HMAC-SHA256 of the raw webhook body.
func WebhookSignature(secret string, body []byte) string {
	return sign(secret, body)
}

// VerifyCapture checks a client-supplied capture signature in constant time.
func VerifyCapture(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	return equal(CaptureSignature(secret, gatewayOrderID, gatewayPaymentID), signature)
}

// VerifyWebhook checks a webhook body signature in constant time.
func VerifyWebhook(secret string, body []byte, signature string) bool {
	return equal(WebhookSignature(secret, body), signature)
}

func sign(secret string, data []byte) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

func equal(expected, provided string) bool {
	provided = strings.ToLower(strings.TrimSpace(provided))
	if expected == "" || provided == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
