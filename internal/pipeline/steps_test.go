package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nregsmp/nregsreport/internal/dashboard"
	"github.com/nregsmp/nregsreport/internal/dashboard/dashboardtest"
	"github.com/nregsmp/nregsreport/internal/model"
	"github.com/nregsmp/nregsreport/internal/prompt"
	"github.com/nregsmp/nregsreport/internal/retry"
)

// stubGenerator answers every prompt with a fixed analysis.
type stubGenerator struct {
	mu      sync.Mutex
	prompts []model.SectionPrompt
}

func (g *stubGenerator) Generate(ctx context.Context, prompts []model.SectionPrompt) []model.SectionResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	results := make([]model.SectionResult, 0, len(prompts))
	for _, p := range prompts {
		if ctx.Err() != nil {
			results = append(results, model.SectionResult{Section: p.Section, Status: model.StatusGenerationFailed, Error: ctx.Err().Error()})
			continue
		}
		g.prompts = append(g.prompts, p)
		results = append(results, model.SectionResult{
			Section:  p.Section,
			Status:   model.StatusOK,
			Analysis: model.Analysis{Text: "analysis of " + p.Section.String()},
			Usage:    model.TokenUsage{InputTokens: 10, OutputTokens: 5},
		})
	}
	return results
}

func (g *stubGenerator) Provider() string { return "stub" }
func (g *stubGenerator) Model() string    { return "stub-1" }

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// failingComposer fails to compose one section.
type failingComposer struct {
	Composer
	section model.Section
}

func (c failingComposer) Compose(data model.SectionData) (string, error) {
	if data.Section == c.section {
		return "", errors.New("template exploded")
	}
	return c.Composer.Compose(data)
}

func newFetcher(server *dashboardtest.Server) *dashboard.Fetcher {
	client := dashboard.NewClient(server.URL, time.Second,
		dashboard.WithRetryPolicy(retry.Policy{MaxRetries: 0, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}))
	return dashboard.NewFetcher(client)
}

func newComposer(t *testing.T) *prompt.Composer {
	t.Helper()
	c, err := prompt.NewComposer()
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("full data", func(t *testing.T) {
		t.Parallel()

		server := dashboardtest.NewFullServer()
		defer server.Close()

		generatedAt := time.Date(2025, 3, 20, 8, 0, 0, 0, time.UTC)
		promptDir := t.TempDir()
		gen := &stubGenerator{}
		p := DefaultPipeline(newFetcher(server), newComposer(t), gen, nil,
			WithClock(clockwork.NewFakeClockAt(generatedAt)),
			WithPromptDir(promptDir),
		)

		run := NewRun(sidhiRequest())
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		doc := run.Document
		if !doc.Complete() || doc.CountByStatus(model.StatusOK) != model.SectionCount {
			t.Fatalf("expected every section generated, got %+v", doc.Sections)
		}
		for i, r := range doc.Sections {
			if r.Section != model.Section(i) || r.Analysis.Text != "analysis of "+r.Section.String() {
				t.Errorf("section %d: unexpected result %+v", i, r)
			}
		}
		if doc.Provider != "stub" || doc.Model != "stub-1" || !doc.GeneratedAt.Equal(generatedAt) {
			t.Errorf("unexpected document metadata %s %s %s", doc.Provider, doc.Model, doc.GeneratedAt)
		}
		if doc.Scorecard == nil || doc.Scorecard.District != "SIDHI" || doc.Scorecard.TotalDistricts != len(dashboardtest.Districts) {
			t.Errorf("unexpected scorecard %+v", doc.Scorecard)
		}
		if sc := doc.Scorecard; sc != nil {
			if len(sc.Blocks) != len(dashboardtest.Blocks) || len(sc.TopDistricts) != len(dashboardtest.Districts) {
				t.Errorf("expected %d blocks and a full leaderboard, got %d blocks, %d leaders",
					len(dashboardtest.Blocks), len(sc.Blocks), len(sc.TopDistricts))
			}
			for _, b := range sc.Blocks {
				if b.TopPanchayats != nil {
					t.Errorf("block %s: expected no panchayats without panchayat detail", b.Name)
				}
			}
		}
		if doc.TotalUsage().Total() != 15*model.SectionCount {
			t.Errorf("unexpected usage %+v", doc.TotalUsage())
		}

		for i, pr := range gen.prompts {
			if pr.Section != model.Section(i) {
				t.Errorf("prompt %d out of order: %s", i, pr.Section)
			}
			if !strings.Contains(pr.Text, "SIDHI") {
				t.Errorf("prompt %s does not name the district", pr.Section)
			}
		}

		entries, err := os.ReadDir(promptDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != model.SectionCount {
			t.Errorf("expected %d archived prompts, got %d", model.SectionCount, len(entries))
		}
	})

	t.Run("missing section becomes placeholder", func(t *testing.T) {
		t.Parallel()

		server := dashboardtest.NewFullServer()
		defer server.Close()
		server.Remove("nmms-usage")

		gen := &stubGenerator{}
		run := NewRun(sidhiRequest())
		if err := DefaultPipeline(newFetcher(server), newComposer(t), gen, nil).Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := run.Document.Result(model.SectionNMMSUsage).Status; got != model.StatusNoData {
			t.Errorf("expected NMMS usage without data, got %s", got)
		}
		if run.Document.CountByStatus(model.StatusOK) != model.SectionCount-1 {
			t.Errorf("expected the other sections generated")
		}
		if gen.calls() != model.SectionCount-1 {
			t.Errorf("expected %d generation calls, got %d", model.SectionCount-1, gen.calls())
		}
	})

	t.Run("no data at all", func(t *testing.T) {
		t.Parallel()

		server := dashboardtest.NewFullServer()
		defer server.Close()
		for _, e := range dashboardtest.Endpoints() {
			server.Remove(e)
		}

		gen := &stubGenerator{}
		run := NewRun(sidhiRequest())
		err := DefaultPipeline(newFetcher(server), newComposer(t), gen, nil).Execute(context.Background(), run)
		if !errors.Is(err, model.ErrNoDataAvailable) {
			t.Errorf("expected ErrNoDataAvailable, got %v", err)
		}
		if gen.calls() != 0 {
			t.Errorf("expected no generation calls, got %d", gen.calls())
		}
	})

	t.Run("panchayat detail", func(t *testing.T) {
		t.Parallel()

		server := dashboardtest.NewFullServer()
		defer server.Close()

		run := NewRun(sidhiRequest())
		p := DefaultPipeline(newFetcher(server), newComposer(t), &stubGenerator{}, nil, WithPanchayatDetail(true))
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		sc := run.Document.Scorecard
		if sc == nil || len(sc.Blocks) != len(dashboardtest.Blocks) {
			t.Fatalf("unexpected scorecard %+v", sc)
		}
		for _, b := range sc.Blocks {
			if len(b.TopPanchayats) != model.LeaderboardSize || len(b.BottomPanchayats) != model.LeaderboardSize {
				t.Errorf("block %s: expected %d top and bottom panchayats, got %d and %d",
					b.Name, model.LeaderboardSize, len(b.TopPanchayats), len(b.BottomPanchayats))
				continue
			}
			if b.TopPanchayats[0].Name != dashboardtest.Panchayats[0] {
				t.Errorf("block %s: expected %s to lead, got %s", b.Name, dashboardtest.Panchayats[0], b.TopPanchayats[0].Name)
			}
			for _, gp := range append(b.TopPanchayats, b.BottomPanchayats...) {
				if gp.Name == b.Name {
					t.Errorf("block %s: summary row counted as a panchayat", b.Name)
				}
			}
		}
	})

	t.Run("without scorecard", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(nil, nil, &stubGenerator{}, nil, WithScorecard(false))
		if got := strings.Join(p.StepNames(), ","); got != "fetch,compose,generate" {
			t.Errorf("unexpected steps %s", got)
		}
		p = DefaultPipeline(nil, nil, &stubGenerator{}, nil)
		if got := strings.Join(p.StepNames(), ","); got != "fetch,scorecard,compose,generate" {
			t.Errorf("unexpected steps %s", got)
		}
	})
}

func TestComposeStep(t *testing.T) {
	t.Parallel()

	server := dashboardtest.NewFullServer()
	defer server.Close()

	run := NewRun(sidhiRequest())
	if err := NewFetchStep(newFetcher(server), nil).Do(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	step := NewComposeStep(failingComposer{Composer: newComposer(t), section: model.SectionWorkManagement}, "", nil)
	if err := step.Do(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(run.Prompts) != model.SectionCount-1 {
		t.Errorf("expected %d prompts, got %d", model.SectionCount-1, len(run.Prompts))
	}
	r := run.Document.Result(model.SectionWorkManagement)
	if r.Status != model.StatusGenerationFailed || !strings.Contains(r.Error, "template exploded") {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestGenerateStepCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := NewRun(sidhiRequest())
	run.Prompts = []model.SectionPrompt{{Section: model.SectionInspections, Text: "p"}}

	err := NewGenerateStep(&stubGenerator{}, clockwork.NewFakeClock(), nil).Do(ctx, run)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !run.Document.GeneratedAt.IsZero() {
		t.Error("expected no generation time on a cancelled run")
	}
}
