package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Header names set on every webhook request.
const (
	HeaderRunID     = "X-Announcer-Run-ID"
	HeaderSignature = "X-Announcer-Signature"
)

// maxLogTail bounds how much of the run log travels in the payload.
const maxLogTail = 16 << 10

// WebhookPayload is the JSON body posted to the webhook.
type WebhookPayload struct {
	RunID          string           `json:"run_id"`
	GroupURL       string           `json:"group_url"`
	Fatal          bool             `json:"fatal"`
	Message        string           `json:"message"`
	Processed      int              `json:"processed"`
	Announced      int              `json:"announced"`
	Failed         int              `json:"failed"`
	Failures       []WebhookFailure `json:"failures,omitempty"`
	ScreenshotPath string           `json:"screenshot_path,omitempty"`
	LogTail        string           `json:"log_tail,omitempty"`
}

type WebhookFailure struct {
	Date   string `json:"date"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// WebhookNotifier posts the report as signed JSON.
type WebhookNotifier struct {
	client  *http.Client
	url     string
	secret  string
	timeout time.Duration
}

func NewWebhookNotifier(url, secret string, timeout time.Duration) *WebhookNotifier {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WebhookNotifier{
		client:  &http.Client{},
		url:     url,
		secret:  secret,
		timeout: timeout,
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

// Notify posts the payload with an HMAC signature of the body.
// A non-2xx response is returned as *StatusError.
func (w *WebhookNotifier) Notify(ctx context.Context, r Report) error {
	body, err := json.Marshal(payload(r))
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRunID, r.RunID.String())
	req.Header.Set(HeaderSignature, computeSignature(w.secret, body))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func payload(r Report) WebhookPayload {
	p := WebhookPayload{
		RunID:          r.RunID.String(),
		GroupURL:       r.GroupURL,
		Fatal:          r.Fatal,
		Message:        r.Message,
		Processed:      r.Summary.Processed,
		Announced:      r.Summary.Announced,
		Failed:         r.Summary.Failed,
		ScreenshotPath: r.ScreenshotPath,
		LogTail:        logTail(r.LogPath, maxLogTail),
	}
	for _, d := range r.Summary.FailureDetails {
		p.Failures = append(p.Failures, WebhookFailure{Date: d.Date, URL: d.URL, Reason: d.Reason})
	}
	return p
}

// logTail returns at most n trailing bytes of the file at path, or "".
func logTail(path string, n int64) string {
	if path == "" {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return ""
	}
	off := st.Size() - n
	if off < 0 {
		off = 0
	}
	buf, err := io.ReadAll(io.NewSectionReader(f, off, st.Size()-off))
	if err != nil {
		return ""
	}
	return string(buf)
}

func computeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature is for receivers to verify incoming reports.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := computeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
