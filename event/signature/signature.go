package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marcelsud/payhook/event"
)

const (
	// SchemeVersion is the signature scheme identifier in the header
	SchemeVersion = "v1"

	// DefaultTolerance bounds the age of a signed payload to mitigate replay
	DefaultTolerance = 300 * time.Second
)

/* The provider signs `{timestamp}.{body}` with HMAC-SHA256 and sends the
 * result in a header of the form:
 *   t=1614556800,v1=5257a869e7...
 * Multiple v1 entries may be present during secret rotation; any match passes
 */

// Header is the parsed signature header.
type Header struct {
	Timestamp  time.Time
	Signatures []string
}

// ParseHeader parses a `t=...,v1=...` signature header.
func ParseHeader(header string) (Header, error) {
	if header == "" {
		return Header{}, event.ErrMissingSignature
	}

	var parsed Header
	for _, part := range strings.Split(header, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch pair[0] {
		case "t":
			ts, err := strconv.ParseInt(pair[1], 10, 64)
			if err != nil {
				return Header{}, fmt.Errorf("%w: bad timestamp", event.ErrInvalidSignature)
			}
			parsed.Timestamp = time.Unix(ts, 0)
		case SchemeVersion:
			parsed.Signatures = append(parsed.Signatures, pair[1])
		}
	}

	if parsed.Timestamp.IsZero() {
		return Header{}, fmt.Errorf("%w: missing timestamp", event.ErrInvalidSignature)
	}
	if len(parsed.Signatures) == 0 {
		return Header{}, fmt.Errorf("%w: no %s signatures", event.ErrInvalidSignature, SchemeVersion)
	}
	return parsed, nil
}

// Sign computes the hex HMAC-SHA256 signature over `{timestamp}.{body}`.
func Sign(secret string, timestamp time.Time, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp.Unix())
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildHeader builds a signature header value for the given body.
// Used by tests and outbound tooling.
func BuildHeader(secret string, timestamp time.Time, body []byte) string {
	return fmt.Sprintf("t=%d,%s=%s", timestamp.Unix(), SchemeVersion, Sign(secret, timestamp, body))
}

// Verify checks the header against the body using constant-time comparison.
// Pure function over its inputs; failure is fatal, never retried.
func Verify(body []byte, header string, secret string, tolerance time.Duration) (Header, error) {
	parsed, err := ParseHeader(header)
	if err != nil {
		return Header{}, err
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	age := time.Since(parsed.Timestamp)
	if age > tolerance || age < -tolerance {
		return Header{}, fmt.Errorf("%w: timestamp outside tolerance", event.ErrInvalidSignature)
	}

	expected := Sign(secret, parsed.Timestamp, body)
	for _, sig := range parsed.Signatures {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1 {
			return parsed, nil
		}
	}
	return Header{}, event.ErrInvalidSignature
}

// envelope is the provider's serialized event wrapper.
type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

/* ConstructEvent verifies the signature and parses the envelope into an
 * immutable Event. This is the only constructor of Event on the inbound path
 */
func ConstructEvent(body []byte, header string, secret string, tolerance time.Duration) (event.Event, error) {
	if _, err := Verify(body, header, secret, tolerance); err != nil {
		return event.Event{}, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return event.Event{}, fmt.Errorf("%w: malformed envelope: %v", event.ErrInvalidSignature, err)
	}
	if env.ID == "" || env.Type == "" {
		return event.Event{}, fmt.Errorf("%w: envelope missing id or type", event.ErrInvalidSignature)
	}

	return event.Event{
		ID:      env.ID,
		Type:    env.Type,
		Created: time.Unix(env.Created, 0),
		Payload: env.Data,
		RawBody: body,
	}, nil
}
