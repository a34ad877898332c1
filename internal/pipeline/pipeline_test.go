package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/knowledgemesh/internal/extractor"
	"github.com/nao1215/knowledgemesh/internal/fetcher"
	"github.com/nao1215/knowledgemesh/internal/graph"
	"github.com/nao1215/knowledgemesh/internal/model"
)

// heuristicOrchestrator builds an orchestrator with deterministic
// heuristic extraction and fast retries.
func heuristicOrchestrator(g *graph.Builder, fetchOpts ...fetcher.Option) *Orchestrator {
	fetchOpts = append([]fetcher.Option{fetcher.WithBackoff(time.Millisecond)}, fetchOpts...)
	return New(
		WithFetcher(fetcher.New(fetchOpts...)),
		WithProvider(extractor.NewProvider(extractor.WithForceHeuristic(true))),
		WithGraph(g),
	)
}

func pageHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	})
}

// TestOrchestratorRun tests single-target pipeline runs.
func TestOrchestratorRun(t *testing.T) {
	t.Parallel()

	t.Run("successful run walks every stage", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(pageHandler(`<html><head><title>Acme</title></head><body>
			<p>Engineers at Acme Corp ship Widgets daily.</p>
			<a href="/about">About</a>
		</body></html>`))
		defer server.Close()

		o := heuristicOrchestrator(graph.NewBuilder())
		result := o.Run(context.Background(), server.URL)

		if result.Failed() {
			t.Fatalf("run failed: %s", result.Error)
		}
		if result.Stage != model.StageDone {
			t.Errorf("Stage = %s", result.Stage)
		}
		if result.Title != "Acme" {
			t.Errorf("Title = %q", result.Title)
		}
		if result.EntityCount != 2 {
			t.Errorf("EntityCount = %d, want 2 (Acme Corp, Widgets)", result.EntityCount)
		}
		if result.LinkCount != 1 {
			t.Errorf("LinkCount = %d, want 1", result.LinkCount)
		}
		if !result.HeuristicMode {
			t.Error("HeuristicMode not reported")
		}
		// Page node, two entities, one link placeholder.
		if result.GraphDelta.NodesAdded != 4 {
			t.Errorf("NodesAdded = %d, want 4", result.GraphDelta.NodesAdded)
		}
		if result.GraphDelta.EdgesAdded != 3 {
			t.Errorf("EdgesAdded = %d, want 3", result.GraphDelta.EdgesAdded)
		}
		if len(result.TopEntities) != 2 {
			t.Errorf("TopEntities = %+v", result.TopEntities)
		}
		if result.Elapsed <= 0 {
			t.Error("Elapsed not recorded")
		}
	})

	t.Run("invalid URL fails in validation", func(t *testing.T) {
		t.Parallel()

		o := heuristicOrchestrator(graph.NewBuilder())
		result := o.Run(context.Background(), "example.com/no-scheme")

		if !result.Failed() {
			t.Fatal("run should have failed")
		}
		if result.FailedStage != model.StageValidating {
			t.Errorf("FailedStage = %s, want validating", result.FailedStage)
		}
		if result.URL != "" {
			t.Errorf("URL = %q, want empty for invalid target", result.URL)
		}
		if !strings.Contains(result.Error, "validating") {
			t.Errorf("Error = %q, want stage prefix", result.Error)
		}
	})

	t.Run("missing page fails in fetching", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		o := heuristicOrchestrator(graph.NewBuilder())
		result := o.Run(context.Background(), server.URL+"/gone")

		if result.FailedStage != model.StageFetching {
			t.Errorf("FailedStage = %s, want fetching", result.FailedStage)
		}
		if o.Graph().NodeCount() != 0 {
			t.Error("failed run must not touch the graph")
		}
	})

	t.Run("recovers from a transient 503", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><title>Back</title></head><body>Serving again.</body></html>`)
		}))
		defer server.Close()

		o := heuristicOrchestrator(graph.NewBuilder(), fetcher.WithMaxRetries(2))
		result := o.Run(context.Background(), server.URL)

		if result.Failed() {
			t.Fatalf("run failed: %s", result.Error)
		}
		if result.Title != "Back" {
			t.Errorf("Title = %q", result.Title)
		}
	})

	t.Run("skip links keeps link edges out of the graph", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(pageHandler(`<html><body>
			<p>Visit Acme Corp today.</p>
			<a href="/a">A</a><a href="/b">B</a>
		</body></html>`))
		defer server.Close()

		g := graph.NewBuilder()
		o := New(
			WithFetcher(fetcher.New(fetcher.WithBackoff(time.Millisecond))),
			WithProvider(extractor.NewProvider(extractor.WithForceHeuristic(true))),
			WithGraph(g),
			WithOptions(Options{SkipLinks: true}),
		)
		result := o.Run(context.Background(), server.URL)

		if result.Failed() {
			t.Fatalf("run failed: %s", result.Error)
		}
		if result.LinkCount != 2 {
			t.Errorf("LinkCount = %d, want 2 (links are reported, not stored)", result.LinkCount)
		}
		// Page node plus one entity; no placeholders.
		if result.GraphDelta.NodesAdded != 2 {
			t.Errorf("NodesAdded = %d, want 2", result.GraphDelta.NodesAdded)
		}
		if len(g.TopDomains(0)) != 0 {
			t.Error("link edges leaked into the graph")
		}
	})

	t.Run("re-running the same page yields a zero delta", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(pageHandler(`<html><body><p>Only Acme Corp here.</p></body></html>`))
		defer server.Close()

		o := heuristicOrchestrator(graph.NewBuilder())
		first := o.Run(context.Background(), server.URL)
		second := o.Run(context.Background(), server.URL)

		if first.Failed() || second.Failed() {
			t.Fatalf("runs failed: %s / %s", first.Error, second.Error)
		}
		if second.GraphDelta != (model.GraphDelta{}) {
			t.Errorf("second delta = %+v, want zero", second.GraphDelta)
		}
	})
}

// TestOrchestratorRunBatch tests concurrent multi-target runs.
func TestOrchestratorRunBatch(t *testing.T) {
	t.Parallel()

	serverA := httptest.NewServer(pageHandler(`<html><body><p>News from Acme Corp.</p></body></html>`))
	defer serverA.Close()
	serverB := httptest.NewServer(pageHandler(`<html><body><p>More about Acme Corp and Globex.</p></body></html>`))
	defer serverB.Close()

	g := graph.NewBuilder()
	o := heuristicOrchestrator(g)

	targets := []string{serverA.URL, "not-a-url", serverB.URL}
	results := o.RunBatch(context.Background(), targets, 2)

	if len(results) != len(targets) {
		t.Fatalf("results = %d, want %d", len(results), len(targets))
	}
	if results[0].Failed() {
		t.Errorf("first target failed: %s", results[0].Error)
	}
	if !results[1].Failed() || results[1].FailedStage != model.StageValidating {
		t.Errorf("second target = %+v, want validation failure", results[1])
	}
	if results[2].Failed() {
		t.Errorf("third target failed: %s", results[2].Error)
	}

	// Both pages mention Acme Corp; the shared graph merges them.
	ranks := g.TopEntities(1)
	if len(ranks) != 1 || ranks[0].Text != "Acme Corp" || ranks[0].Mentions != 2 {
		t.Errorf("top entities = %+v, want Acme Corp with 2 mentions", ranks)
	}
}
