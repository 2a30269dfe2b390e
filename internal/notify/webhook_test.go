package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/djlord-it/easy-announce/internal/domain"
	"github.com/djlord-it/easy-announce/internal/testutil"
)

func testReport() Report {
	return Report{
		RunID:    testutil.MustParseUUID("11111111-2222-3333-4444-555555555555"),
		GroupURL: "https://www.meetup.com/test-group/",
		Message:  "1 of 2 processed events failed to announce",
		Summary: domain.RunSummary{
			Processed: 2,
			Announced: 1,
			Failed:    1,
			FailureDetails: []domain.FailureDetail{
				{Date: "Sat, Apr 5, 2025, 7:00 PM PDT", URL: "https://www.meetup.com/test-group/events/1/", Reason: "banner found, control not clickable"},
			},
		},
	}
}

func TestWebhookNotifier_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, "test-secret", 5*time.Second)
	if err := n.Notify(context.Background(), testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookNotifier_RequestHeadersAndSignature(t *testing.T) {
	var (
		gotHeaders http.Header
		gotMethod  string
		gotBody    []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, "my-secret", 5*time.Second)
	if err := n.Notify(context.Background(), testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if id := gotHeaders.Get(HeaderRunID); id != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("%s = %q", HeaderRunID, id)
	}
	if !VerifySignature("my-secret", gotBody, gotHeaders.Get(HeaderSignature)) {
		t.Error("signature does not verify against the received body")
	}
	if VerifySignature("other-secret", gotBody, gotHeaders.Get(HeaderSignature)) {
		t.Error("signature verified with the wrong secret")
	}
}

func TestWebhookNotifier_PayloadShape(t *testing.T) {
	var got WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	logPath := filepath.Join(t.TempDir(), "announcer.log")
	if err := os.WriteFile(logPath, []byte("announce: run=x failed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := testReport()
	r.LogPath = logPath

	n := NewWebhookNotifier(server.URL, "s", 5*time.Second)
	if err := n.Notify(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Failed != 1 || got.Processed != 2 || len(got.Failures) != 1 {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.Failures[0].Reason != "banner found, control not clickable" {
		t.Errorf("failure reason = %q", got.Failures[0].Reason)
	}
	if !strings.Contains(got.LogTail, "run=x failed") {
		t.Errorf("log tail = %q", got.LogTail)
	}
}

func TestWebhookNotifier_Non2xxIsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, "s", 5*time.Second).Notify(context.Background(), testReport())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("err = %v, want StatusError 502", err)
	}
}

func TestWebhookNotifier_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, "s", 50*time.Millisecond).Notify(context.Background(), testReport())
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestLogTail_Bounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	data := strings.Repeat("a", 100) + strings.Repeat("b", 10)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := logTail(path, 10); got != strings.Repeat("b", 10) {
		t.Errorf("logTail = %q", got)
	}
	if got := logTail(path, 1000); got != data {
		t.Errorf("logTail of small file should return everything, got %d bytes", len(got))
	}
	if got := logTail(filepath.Join(t.TempDir(), "missing"), 10); got != "" {
		t.Errorf("logTail of missing file = %q", got)
	}
}
