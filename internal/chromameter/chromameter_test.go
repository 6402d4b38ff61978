package chromameter

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/ztkent/chroma-meter/internal/tools"
)

func TestNormalizeChannel(t *testing.T) {
	if v := normalizeChannel(500, 1000); v != 127.5 {
		t.Fatalf("normalizeChannel(500, 1000) = %v", v)
	}
	if v := normalizeChannel(1000, 1000); v != 255.0 {
		t.Fatalf("normalizeChannel(1000, 1000) = %v", v)
	}
	// A dead clear channel must not divide by zero.
	if v := normalizeChannel(500, 0); v != 0 {
		t.Fatalf("normalizeChannel(500, 0) = %v", v)
	}
}

func TestDescribeLightSource(t *testing.T) {
	cases := []struct {
		cct  float64
		want string
	}{
		{0, "No Data in Range"},
		{1850, "Candlelight"},
		{2700, "Incandescent"},
		{4100, "Fluorescent"},
		{5500, "Daylight"},
		{6500, "Overcast Sky"},
	}
	for _, tc := range cases {
		if got := describeLightSource(tc.cct); got != tc.want {
			t.Fatalf("describeLightSource(%v) = %q, want %q", tc.cct, got, tc.want)
		}
	}
}

func TestMonitorAndRecordResults(t *testing.T) {
	// A file-backed db: in-memory sqlite is per-connection, and the
	// recorder goroutine and the assertions below use separate ones.
	db, err := tools.ConnectSqlite(filepath.Join(t.TempDir(), "chromameter_test.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer db.Close()

	m := &Meter{
		ResultsDB:    db,
		ReadingsChan: make(chan Reading),
	}
	go m.MonitorAndRecordResults()

	// An infinite lux reading is dropped; the valid one after it lands.
	m.ReadingsChan <- Reading{Lux: math.Inf(1), JobID: "job-invalid"}
	m.ReadingsChan <- Reading{
		Lux:     142.5,
		CCT:     4500,
		DN40CCT: 4231,
		R:       120.0,
		G:       80.0,
		B:       55.0,
		Clear:   900,
		JobID:   "job-valid",
	}

	var count int
	for i := 0; i < 100; i++ {
		if err := db.QueryRow("SELECT COUNT(*) FROM readings").Scan(&count); err != nil {
			t.Fatalf("count: %v", err)
		}
		if count > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if count != 1 {
		t.Fatalf("recorded %d readings, want 1", count)
	}

	var jobID string
	var lux float64
	var dn40CCT int
	if err := db.QueryRow("SELECT job_id, lux, dn40_cct FROM readings").Scan(&jobID, &lux, &dn40CCT); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if jobID != "job-valid" || lux != 142.5 || dn40CCT != 4231 {
		t.Fatalf("recorded row: job=%s lux=%v dn40_cct=%d", jobID, lux, dn40CCT)
	}
}
