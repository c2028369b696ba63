package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// V5 auth headers.
const (
	headerAPIKey     = "X-BAPI-API-KEY"
	headerTimestamp  = "X-BAPI-TIMESTAMP"
	headerSign       = "X-BAPI-SIGN"
	headerRecvWindow = "X-BAPI-RECV-WINDOW"
)

// Credentials hold the API key pair. Loaded once at construction and
// immutable for the process lifetime.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Valid reports whether both halves of the key pair are present.
func (c Credentials) Valid() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Sign computes the V5 request signature: a hex HMAC-SHA256 over
// timestamp + api_key + recv_window + payload, where payload is the encoded
// query string for GET requests and the raw JSON body for POST requests.
// The timestamp must be current wall-clock milliseconds; the server rejects
// signatures outside its recv_window.
func (c Credentials) Sign(payload, recvWindow string, ts time.Time) (string, error) {
	if !c.Valid() {
		return "", ErrCredentialsMissing
	}
	preSign := formatTimestamp(ts) + c.APIKey + recvWindow + payload
	mac := hmac.New(sha256.New, []byte(c.APISecret))
	mac.Write([]byte(preSign))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// AuthHeaders builds the signed header set for one request.
func (c Credentials) AuthHeaders(payload, recvWindow string, ts time.Time) (map[string]string, error) {
	sig, err := c.Sign(payload, recvWindow, ts)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		headerAPIKey:     c.APIKey,
		headerTimestamp:  formatTimestamp(ts),
		headerSign:       sig,
		headerRecvWindow: recvWindow,
	}, nil
}

func formatTimestamp(ts time.Time) string {
	return strconv.FormatInt(ts.UnixMilli(), 10)
}
