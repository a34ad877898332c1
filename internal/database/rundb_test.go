package database

import (
	"context"
	"testing"
	"time"

	"github.com/nao1215/knowledgemesh/internal/model"
)

func testRun(url string, stage model.Stage) *model.PipelineResult {
	return &model.PipelineResult{
		URL:         url,
		Stage:       stage,
		StartedAt:   time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Elapsed:     120 * time.Millisecond,
		StatusCode:  200,
		Title:       "Example",
		EntityCount: 3,
		LinkCount:   5,
		GraphDelta:  model.GraphDelta{NodesAdded: 4, EdgesAdded: 3},
		TopEntities: []model.EntityRank{{Text: "Ada", Label: "PERSON", Mentions: 2}},
	}
}

// TestRunDBOpen tests database creation behavior.
func TestRunDBOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database with default options", func(t *testing.T) {
		t.Parallel()

		rdb, err := Open(t.TempDir(), DefaultOptions())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer rdb.Close()
	})

	t.Run("refuses missing database without create", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Error("Open should fail when database does not exist")
		}
	})
}

// TestRunDBSaveAndLoad tests the round trip through the runs table.
func TestRunDBSaveAndLoad(t *testing.T) {
	t.Parallel()

	rdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()

	id, err := rdb.SaveRun(ctx, testRun("https://example.com", model.StageDone), 4, 3)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	loaded, err := rdb.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if loaded == nil {
		t.Fatal("GetRun returned nil for existing run")
	}
	if loaded.URL != "https://example.com" || loaded.Stage != model.StageDone {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.TopEntities) != 1 || loaded.TopEntities[0].Text != "Ada" {
		t.Errorf("TopEntities = %+v", loaded.TopEntities)
	}

	missing, err := rdb.GetRun(ctx, id+1000)
	if err != nil {
		t.Fatalf("GetRun missing: %v", err)
	}
	if missing != nil {
		t.Errorf("GetRun for missing ID = %+v, want nil", missing)
	}
}

// TestRunDBListRuns tests metadata listing and filtering.
func TestRunDBListRuns(t *testing.T) {
	t.Parallel()

	rdb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()

	if _, err := rdb.SaveRun(ctx, testRun("https://a.example.com", model.StageDone), 4, 3); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if _, err := rdb.SaveRun(ctx, testRun("https://b.example.com", model.StageFailed), 4, 3); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if _, err := rdb.SaveRun(ctx, testRun("https://a.example.com", model.StageDone), 8, 7); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	t.Run("lists all runs newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := rdb.ListRuns(ctx, "", 0)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("runs = %d, want 3", len(runs))
		}
		if runs[0].NodeCount != 8 {
			t.Errorf("newest run NodeCount = %d, want 8", runs[0].NodeCount)
		}
	})

	t.Run("filters by URL with limit", func(t *testing.T) {
		t.Parallel()

		runs, err := rdb.ListRuns(ctx, "https://a.example.com", 1)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 1 || runs[0].URL != "https://a.example.com" {
			t.Errorf("runs = %+v", runs)
		}
	})

	t.Run("lists distinct targets", func(t *testing.T) {
		t.Parallel()

		targets, err := rdb.ListTargets(ctx)
		if err != nil {
			t.Fatalf("ListTargets: %v", err)
		}
		if len(targets) != 2 {
			t.Errorf("targets = %v, want 2", targets)
		}
	})

	t.Run("latest runs for diffing", func(t *testing.T) {
		t.Parallel()

		results, err := rdb.LatestRuns(ctx, "https://a.example.com", 2)
		if err != nil {
			t.Fatalf("LatestRuns: %v", err)
		}
		if len(results) != 2 {
			t.Errorf("results = %d, want 2", len(results))
		}
	})
}

// TestParseTimestamp tests the SQLite timestamp format tolerance.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		zero bool
	}{
		{name: "sqlite default", in: "2026-08-01 09:00:00"},
		{name: "iso8601 z", in: "2026-08-01T09:00:00Z"},
		{name: "rfc3339", in: "2026-08-01T09:00:00+09:00"},
		{name: "garbage", in: "yesterday", zero: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseTimestamp(tt.in)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.in, got)
			}
		})
	}
}
