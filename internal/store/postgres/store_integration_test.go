package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/djlord-it/easy-announce/internal/domain"
)

// openTestDB connects to ANNOUNCER_TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("ANNOUNCER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ANNOUNCER_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStore_RecordAndListRuns(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	group := "https://www.meetup.com/it-" + uuid.NewString()[:8] + "/"
	start := time.Now().UTC().Truncate(time.Second)
	ev := domain.EventRecord{URL: group + "events/1/", RawDateText: "Sat, Apr 5, 2025, 7:00 PM PDT"}
	date := domain.ResolvedDate{Instant: time.Date(2025, 4, 6, 2, 0, 0, 0, time.UTC), SourceText: ev.RawDateText, ParseSucceeded: true}

	run := domain.RunRecord{
		ID:         uuid.New(),
		GroupURL:   group,
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Result:     domain.RunFailures,
		Notified:   true,
		Summary:    domain.RunSummary{Processed: 2, Announced: 1, Failed: 1},
		Outcomes: []domain.AnnouncementOutcome{
			domain.Announced(ev, date, "announce-banner-testid", "event-label"),
			domain.Failed(domain.EventRecord{URL: group + "events/2/", RawDateText: "??"}, domain.ResolvedDate{SourceText: "??"}, "navigate: boom"),
		},
	}

	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := s.RecordRun(ctx, run); !errors.Is(err, ErrDuplicateRun) {
		t.Fatalf("second RecordRun = %v, want ErrDuplicateRun", err)
	}

	runs, err := s.ListRuns(ctx, group, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID || got.Result != domain.RunFailures || !got.Notified {
		t.Errorf("unexpected run: %+v", got)
	}
	if len(got.Outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(got.Outcomes))
	}
	if got.Outcomes[0].ControlVariant != "event-label" || !got.Outcomes[0].Date.ParseSucceeded {
		t.Errorf("outcome 0 = %+v", got.Outcomes[0])
	}
	if got.Outcomes[1].Date.ParseSucceeded {
		t.Error("outcome 1 should have no parsed date")
	}
	if len(got.Summary.FailureDetails) != 1 || got.Summary.FailureDetails[0].Reason != "navigate: boom" {
		t.Errorf("failure details = %+v", got.Summary.FailureDetails)
	}
}
