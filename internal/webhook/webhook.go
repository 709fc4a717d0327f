package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marcus/taskbot/internal/events"
)

// Payload is the top-level webhook POST body.
type Payload struct {
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Events    []events.Event `json:"events"`
}

// BuildPayload wraps a batch of events in a payload.
func BuildPayload(source string, evs []events.Event) Payload {
	p := Payload{
		Source:    source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Events:    make([]events.Event, len(evs)),
	}
	copy(p.Events, evs)
	return p
}

// Sign returns the signature header value for a timestamp and body.
func Sign(secret, unixTS string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(unixTS))
	mac.Write([]byte("."))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var defaultClient = &http.Client{Timeout: 10 * time.Second}

// Dispatch performs a synchronous HTTP POST to the webhook URL.
// Returns nil on success (2xx status).
func Dispatch(ctx context.Context, url, secret string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "taskbot-webhook/1")

	unixTS := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set("X-Taskbot-Timestamp", unixTS)

	if secret != "" {
		req.Header.Set("X-Taskbot-Signature", Sign(secret, unixTS, body))
	}

	resp, err := defaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}
	return nil
}
