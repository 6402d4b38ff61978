package tools

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestParseStartAndEndDateDefaults(t *testing.T) {
	r := httptest.NewRequest("POST", "/chromameter/graph", nil)
	start, end := ParseStartAndEndDate(r)

	startTime, endTime, err := StartAndEndDateToTime(start, end)
	if err != nil {
		t.Fatalf("round-trip: %v", err)
	}
	// Defaults cover the trailing 8 hours. The two timestamps come from
	// separate clock reads, so allow a little slack.
	if diff := endTime.Sub(startTime); diff < 8*time.Hour-2*time.Second || diff > 8*time.Hour+2*time.Second {
		t.Fatalf("default range = %v, want ~8h", diff)
	}
}

func TestStartAndEndDateToTimeInvalid(t *testing.T) {
	if _, _, err := StartAndEndDateToTime("not-a-date", "2024-01-01 00:00:00"); err == nil {
		t.Fatal("expected an error for a malformed start date")
	}
}

func TestConnectSqliteRunsMigrations(t *testing.T) {
	db, err := ConnectSqlite(filepath.Join(t.TempDir(), "tools_test.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("INSERT INTO readings (job_id, lux, cct, dn40_cct) VALUES ('job', 10.5, 4000, 3900)"); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}
}
