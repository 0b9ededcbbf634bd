package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/linksnip/linksnip/internal/errx"
)

// Verifier checks payment-gateway signatures. The gateway signs the
// string "<order_id>|<payment_id>" with HMAC-SHA256 under the shared key
// secret and sends the hex digest back with the client's confirmation.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier bound to the gateway key secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify recomputes the expected signature and compares it in constant
// time. A mismatch means the confirmation did not come from the gateway
// and must not grant anything.
func (v *Verifier) Verify(orderID, paymentID, signature string) error {
	const op = "payment.Verify"

	if orderID == "" || paymentID == "" || signature == "" {
		return errx.E(op, errx.Invalid, errors.New("order id, payment id and signature are required"))
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errx.E(op, errx.Unauthorized, errors.New("payment signature mismatch"))
	}
	return nil
}
