// Package token derives the short codes printed on receipts and encoded in QR images.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	// ConfirmationPrefix starts every confirmation code
	ConfirmationPrefix = "PS"

	confirmationHashLength = 10
	qrDisplayPrefix        = "QR_CODE_BASE64_"
	qrPayloadPrefix        = "QR_DATA_"
)

// ConfirmationCode returns "PS" followed by the first ten upper-case hex digits of
// SHA-256(seed). Distinct seeds give distinct codes with overwhelming probability;
// callers that need a hard guarantee re-seed on collision (see Reseed).
func ConfirmationCode(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	return ConfirmationPrefix + digest[:confirmationHashLength]
}

// Reseed derives the n-th alternative seed used after a collision.
func Reseed(seed string, attempt int) string {
	if attempt == 0 {
		return seed
	}
	return seed + "#" + strconv.Itoa(attempt)
}

// QRPayload is the data encoded in a receipt's QR code
func QRPayload(confirmationCode string) string {
	return qrPayloadPrefix + confirmationCode
}

// QRDisplay is the display token rendered by clients for a seed
func QRDisplay(seed string) string {
	return qrDisplayPrefix + seed
}
