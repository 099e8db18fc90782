package persistence

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"vidpulse/internal/core"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("Expected at least one embedded migration")
	}

	first := migrations[0]
	if first.Version != 1 {
		t.Errorf("Expected first version 1, got %d", first.Version)
	}
	if first.Description != "create users" {
		t.Errorf("Expected description 'create users', got '%s'", first.Description)
	}
	for _, col := range []string{"email_time_hour", "last_analysis_results", "analysis_ready_for_email", "last_email_sent"} {
		if !strings.Contains(first.SQL, col) {
			t.Errorf("users migration should define column %s", col)
		}
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i-1].Version >= migrations[i].Version {
			t.Error("Migrations should be sorted by version")
		}
	}
}

func TestMarkApplied(t *testing.T) {
	available := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}

	status := markApplied(available, map[int]bool{1: true, 3: true})
	if len(status) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(status))
	}
	if !status[0].Applied || status[1].Applied || !status[2].Applied {
		t.Errorf("Expected only version 2 pending, got %+v", status)
	}

	for _, st := range markApplied(available, nil) {
		if st.Applied {
			t.Errorf("Expected version %d pending", st.Version)
		}
	}
}

// fakeRow feeds scanUser without a database.
type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *bool:
			*p = r.values[i].(bool)
		case *[]byte:
			if r.values[i] != nil {
				*p = r.values[i].([]byte)
			}
		case *sql.NullString:
			_ = p.Scan(r.values[i])
		case *sql.NullInt64:
			_ = p.Scan(r.values[i])
		case *sql.NullTime:
			_ = p.Scan(r.values[i])
		}
	}
	return nil
}

func TestScanUser(t *testing.T) {
	sent := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	row := fakeRow{values: []interface{}{
		"u1", "ann@example.com", "Ann", "Coffee shop", "Europe/Berlin", int64(8),
		true, "auth-1", []byte(`{"searchQueries":["q"],"videosCount":3,"marketingStrategy":{"observations":"- a"}}`), true,
		nil, sent,
	}}

	user, err := scanUser(row)
	if err != nil {
		t.Fatalf("scanUser failed: %v", err)
	}

	if user.EmailTimeHour == nil || *user.EmailTimeHour != 8 {
		t.Errorf("Expected email hour 8, got %v", user.EmailTimeHour)
	}
	if user.LastAnalysisResults == nil || user.LastAnalysisResults.VideosCount != 3 {
		t.Fatalf("Expected decoded analysis result, got %+v", user.LastAnalysisResults)
	}
	if user.LastAnalysisResults.MarketingStrategy[core.KeyObservations] != "- a" {
		t.Error("Expected strategy observations to be decoded")
	}
	if user.LastAnalysisRun != nil {
		t.Error("NULL last_analysis_run should stay nil")
	}
	if user.LastEmailSent == nil || !user.LastEmailSent.Equal(sent) {
		t.Errorf("Expected last email sent %v, got %v", sent, user.LastEmailSent)
	}
}

func TestScanUserNulls(t *testing.T) {
	row := fakeRow{values: []interface{}{
		"u2", nil, nil, nil, nil, nil,
		false, nil, nil, false,
		nil, nil,
	}}

	user, err := scanUser(row)
	if err != nil {
		t.Fatalf("scanUser failed: %v", err)
	}
	if user.EmailTimeHour != nil {
		t.Error("NULL email_time_hour should stay nil")
	}
	if user.LastAnalysisResults != nil {
		t.Error("NULL results should stay nil")
	}
	if pref := user.Preference(); pref.Timezone != core.DefaultTimezone || pref.LocalHour != core.DefaultLocalHour {
		t.Errorf("Expected default preference, got %+v", pref)
	}
}

func TestScanUserErrors(t *testing.T) {
	if _, err := scanUser(fakeRow{err: sql.ErrNoRows}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected sql.ErrNoRows, got %v", err)
	}

}

func TestScanUserKeepsUserWithUnreadableResult(t *testing.T) {
	row := func(id string, result []byte) fakeRow {
		return fakeRow{values: []interface{}{
			id, id + "@example.com", nil, nil, "UTC", int64(9), true, "auth-" + id, result, true, nil, nil,
		}}
	}
	rows := []fakeRow{
		row("a", []byte(`{"videosCount":3}`)),
		row("b", []byte(`{"videosCount":"12"}`)),
		row("c", []byte(`{broken`)),
		row("d", []byte(`{"videosCount":5}`)),
	}

	var users []*core.User
	for _, r := range rows {
		user, err := scanUser(r)
		if err != nil {
			t.Fatalf("scanUser(%s) failed: %v", r.values[0], err)
		}
		users = append(users, user)
	}

	if users[0].LastAnalysisResults == nil || users[3].LastAnalysisResults == nil {
		t.Error("Readable results should be decoded")
	}
	for _, u := range users[1:3] {
		if u.LastAnalysisResults != nil {
			t.Errorf("Unreadable result for %s should be dropped, got %+v", u.ID, u.LastAnalysisResults)
		}
		if !u.AnalysisReadyForEmail || u.Email != u.ID+"@example.com" {
			t.Errorf("Other columns for %s should still be scanned, got %+v", u.ID, u)
		}
	}
}

func TestNullableHour(t *testing.T) {
	if nullableHour(nil).Valid {
		t.Error("nil hour should be NULL")
	}
	h := 0
	if got := nullableHour(&h); !got.Valid || got.Int64 != 0 {
		t.Errorf("Expected valid 0, got %+v", got)
	}
}
