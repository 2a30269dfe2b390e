// notify-receiver is a development endpoint for NOTIFY_WEBHOOK_URL. It checks
// each report's signature and keeps the most recent ones in memory.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/djlord-it/easy-announce/internal/notify"
)

type received struct {
	Timestamp string                `json:"timestamp"`
	RunID     string                `json:"run_id"`
	Payload   notify.WebhookPayload `json:"payload"`
}

type stats struct {
	Count    int64      `json:"count"`
	Rejected int64      `json:"rejected"`
	Reports  []received `json:"last_reports"`
	Since    string     `json:"since"`
}

type receiver struct {
	secret    string
	maxStored int
	now       func() time.Time

	mu       sync.Mutex
	count    int64
	rejected int64
	reports  []received
	since    time.Time
}

func newReceiver(secret string) *receiver {
	r := &receiver{secret: secret, maxStored: 50, now: time.Now}
	r.since = r.now().UTC()
	return r
}

func (rc *receiver) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /report", rc.handleReport)
	mux.HandleFunc("GET /reports", rc.handleReports)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("POST /reset", func(w http.ResponseWriter, _ *http.Request) {
		rc.mu.Lock()
		rc.count = 0
		rc.rejected = 0
		rc.reports = nil
		rc.since = rc.now().UTC()
		rc.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "reset")
	})
	return mux
}

func main() {
	addr := ":8080"
	if v := os.Getenv("ADDR"); v != "" {
		addr = v
	}
	secret := os.Getenv("NOTIFY_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("notify-receiver: NOTIFY_WEBHOOK_SECRET is required")
	}

	log.Printf("notify-receiver: listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, newReceiver(secret).routes()))
}

func (rc *receiver) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if !notify.VerifySignature(rc.secret, body, r.Header.Get(notify.HeaderSignature)) {
		rc.mu.Lock()
		rc.rejected++
		rc.mu.Unlock()
		log.Printf("notify-receiver: rejected report run=%s: bad signature", r.Header.Get(notify.HeaderRunID))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var p notify.WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	rep := received{
		Timestamp: rc.now().UTC().Format(time.RFC3339Nano),
		RunID:     r.Header.Get(notify.HeaderRunID),
		Payload:   p,
	}

	rc.mu.Lock()
	rc.count++
	rc.reports = append(rc.reports, rep)
	if len(rc.reports) > rc.maxStored {
		rc.reports = rc.reports[len(rc.reports)-rc.maxStored:]
	}
	current := rc.count
	rc.mu.Unlock()

	log.Printf("notify-receiver: report #%d run=%s fatal=%t failed=%d: %s", current, rep.RunID, p.Fatal, p.Failed, p.Message)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"received":%d}`, current)
}

func (rc *receiver) handleReports(w http.ResponseWriter, _ *http.Request) {
	rc.mu.Lock()
	s := stats{
		Count:    rc.count,
		Rejected: rc.rejected,
		Reports:  append([]received(nil), rc.reports...),
		Since:    rc.since.Format(time.RFC3339),
	}
	rc.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}
