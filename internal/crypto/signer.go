// Package crypto provides HMAC request signing for the authenticated venue
// endpoints (the per-asset fee schedules on Binance and Bybit).
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// HMACAuth holds the API key pair used to sign venue REST requests.
type HMACAuth struct {
	Key    string // API key, sent in a header
	Secret string // shared secret, never sent
}

// SignQuery returns the hex-encoded HMAC-SHA256 signature of a canonicalized
// query string. Binance expects this appended as the "signature" parameter.
func (h *HMACAuth) SignQuery(query string) string {
	return hmacSHA256Hex([]byte(h.Secret), query)
}

// BybitHeaders returns the HTTP headers for a Bybit v5 signed GET request.
// The signature is HMAC-SHA256(secret, timestamp+apiKey+recvWindow) encoded
// as hex.
//
// Returned header keys:
//   - X-BAPI-API-KEY
//   - X-BAPI-TIMESTAMP
//   - X-BAPI-RECV-WINDOW
//   - X-BAPI-SIGN
func (h *HMACAuth) BybitHeaders(recvWindow int) map[string]string {
	return h.BybitHeadersAt(recvWindow, time.Now().UnixMilli())
}

// BybitHeadersAt is like BybitHeaders but lets the caller supply the
// millisecond timestamp (useful for deterministic testing).
func (h *HMACAuth) BybitHeadersAt(recvWindow int, unixMillis int64) map[string]string {
	ts := strconv.FormatInt(unixMillis, 10)
	rw := strconv.Itoa(recvWindow)

	message := ts + h.Key + rw
	sig := hmacSHA256Hex([]byte(h.Secret), message)

	return map[string]string{
		"X-BAPI-API-KEY":     h.Key,
		"X-BAPI-TIMESTAMP":   ts,
		"X-BAPI-RECV-WINDOW": rw,
		"X-BAPI-SIGN":        sig,
	}
}

// hmacSHA256Hex computes HMAC-SHA256 of message using key and returns the
// result as a lowercase hex string.
func hmacSHA256Hex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}
