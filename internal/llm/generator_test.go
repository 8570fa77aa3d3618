package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nregsmp/nregsreport/internal/model"
	"github.com/nregsmp/nregsreport/internal/observability"
	"github.com/nregsmp/nregsreport/internal/retry"
)

// stubCompleter answers each prompt from a queue of responses per prompt text.
type stubCompleter struct {
	mu        sync.Mutex
	responses map[string][]stubResponse
	calls     []string
	maxTokens []int
}

type stubResponse struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, opts ...CallOption) (Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := resolveCall(0, opts)
	s.calls = append(s.calls, prompt)
	s.maxTokens = append(s.maxTokens, call.maxTokens)

	queue := s.responses[prompt]
	if len(queue) == 0 {
		return Completion{Text: "<analysis><district_performance>" + prompt + "</district_performance></analysis>",
			Usage: model.TokenUsage{InputTokens: 100, OutputTokens: 20}}, nil
	}
	r := queue[0]
	s.responses[prompt] = queue[1:]
	if r.err != nil {
		return Completion{}, r.err
	}
	return Completion{Text: r.text, Usage: model.TokenUsage{InputTokens: 100, OutputTokens: 20}}, nil
}

func (s *stubCompleter) Provider() string { return "stub" }
func (s *stubCompleter) Model() string    { return "stub-1" }

func fastPolicy(n int) retry.Policy {
	return retry.Policy{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func allPrompts() []model.SectionPrompt {
	prompts := make([]model.SectionPrompt, 0, model.SectionCount)
	for _, s := range model.Sections() {
		prompts = append(prompts, model.SectionPrompt{Section: s, Text: s.String()})
	}
	return prompts
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("sections in order", func(t *testing.T) {
		t.Parallel()

		stub := &stubCompleter{responses: map[string][]stubResponse{}}
		g := NewGenerator(stub)
		results := g.Generate(context.Background(), allPrompts())

		if len(results) != model.SectionCount {
			t.Fatalf("expected %d results, got %d", model.SectionCount, len(results))
		}
		for i, r := range results {
			if r.Section != model.Section(i) || r.Status != model.StatusOK {
				t.Errorf("result %d: unexpected %s %s", i, r.Section, r.Status)
			}
			if r.Analysis.DistrictPerformance != r.Section.String() {
				t.Errorf("result %d: unexpected analysis %+v", i, r.Analysis)
			}
		}

		var want []string
		for _, p := range allPrompts() {
			want = append(want, p.Text)
		}
		if diff := cmp.Diff(want, stub.calls); diff != "" {
			t.Errorf("call order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("failure degrades one section", func(t *testing.T) {
		t.Parallel()

		stub := &stubCompleter{responses: map[string][]stubResponse{
			"nmms-usage":  {{err: &APIError{Provider: "stub", StatusCode: http.StatusBadRequest}}},
			"zero-muster": {{text: "   \n  "}},
		}}
		g := NewGenerator(stub, WithRetryPolicy(fastPolicy(2)))
		results := g.Generate(context.Background(), allPrompts())

		for _, r := range results {
			switch r.Section {
			case model.SectionNMMSUsage, model.SectionZeroMuster:
				if r.Status != model.StatusGenerationFailed || r.Error == "" {
					t.Errorf("%s: expected generation failure, got %+v", r.Section, r)
				}
			default:
				if r.Status != model.StatusOK {
					t.Errorf("%s: expected OK, got %s", r.Section, r.Status)
				}
			}
		}
		if len(stub.calls) != model.SectionCount {
			t.Errorf("expected permanent errors not to be retried, got %d calls", len(stub.calls))
		}
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		t.Parallel()

		stub := &stubCompleter{responses: map[string][]stubResponse{
			"inspections": {
				{err: &APIError{Provider: "stub", StatusCode: StatusOverloaded}},
				{err: errors.New("connection reset by peer")},
				{text: "plain answer"},
			},
		}}
		metrics := observability.NewMetrics()
		g := NewGenerator(stub, WithRetryPolicy(fastPolicy(2)), WithMetrics(metrics))

		r := g.GenerateSection(context.Background(), model.SectionPrompt{Section: model.SectionInspections, Text: "inspections"})
		if r.Status != model.StatusOK || r.Analysis.Text != "plain answer" {
			t.Errorf("unexpected result %+v", r)
		}
		if got := testutil.ToFloat64(metrics.Retries.WithLabelValues("llm")); got != 2 {
			t.Errorf("expected 2 retries, got %v", got)
		}
		if got := testutil.ToFloat64(metrics.LLMRequests.WithLabelValues("stub", observability.OutcomeError)); got != 2 {
			t.Errorf("expected 2 failed requests, got %v", got)
		}
		if r.Usage.Total() != 120 {
			t.Errorf("expected usage to be recorded, got %+v", r.Usage)
		}
	})

	t.Run("retries exhausted", func(t *testing.T) {
		t.Parallel()

		unavailable := &APIError{Provider: "stub", StatusCode: http.StatusServiceUnavailable}
		stub := &stubCompleter{responses: map[string][]stubResponse{
			"inspections": {{err: unavailable}, {err: unavailable}},
		}}
		g := NewGenerator(stub, WithRetryPolicy(fastPolicy(1)))

		r := g.GenerateSection(context.Background(), model.SectionPrompt{Section: model.SectionInspections, Text: "inspections"})
		if r.Status != model.StatusGenerationFailed {
			t.Errorf("expected failure, got %s", r.Status)
		}
		if len(stub.calls) != 2 {
			t.Errorf("expected 2 calls, got %d", len(stub.calls))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		stub := &stubCompleter{responses: map[string][]stubResponse{}}
		results := NewGenerator(stub).Generate(ctx, allPrompts())
		for _, r := range results {
			if r.Status != model.StatusGenerationFailed {
				t.Errorf("%s: expected failure, got %s", r.Section, r.Status)
			}
		}
		if len(stub.calls) != 0 {
			t.Errorf("expected no calls, got %d", len(stub.calls))
		}
	})

	t.Run("completion without text", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			text string
		}{
			{name: "empty", text: ""},
			{name: "whitespace only", text: "   \n\t  "},
			{name: "reasoning only", text: "<thinking>the district ranks second</thinking>"},
			{name: "empty analysis", text: "<analysis>\n</analysis>"},
			{name: "empty fenced analysis", text: "```xml\n<analysis></analysis>\n```"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				stub := &stubCompleter{responses: map[string][]stubResponse{
					"inspections": {{text: tt.text}},
				}}
				g := NewGenerator(stub, WithRetryPolicy(fastPolicy(2)))

				r := g.GenerateSection(context.Background(), model.SectionPrompt{Section: model.SectionInspections, Text: "inspections"})
				if r.Status != model.StatusGenerationFailed {
					t.Errorf("expected %s, got %s", model.StatusGenerationFailed, r.Status)
				}
				if !strings.Contains(r.Error, ErrEmptyCompletion.Error()) {
					t.Errorf("expected error to mention %q, got %q", ErrEmptyCompletion, r.Error)
				}
				if r.Analysis.Text != "" {
					t.Errorf("expected no analysis, got %q", r.Analysis.Text)
				}
				if len(stub.calls) != 1 {
					t.Errorf("expected an empty completion not to be retried, got %d calls", len(stub.calls))
				}
			})
		}
	})

	t.Run("section token limits", func(t *testing.T) {
		t.Parallel()

		stub := &stubCompleter{responses: map[string][]stubResponse{}}
		g := NewGenerator(stub, WithSectionMaxTokens(model.SectionPersonDays, 800))
		g.Generate(context.Background(), []model.SectionPrompt{
			{Section: model.SectionInspections, Text: "a"},
			{Section: model.SectionPersonDays, Text: "b"},
		})
		if diff := cmp.Diff([]int{0, 800}, stub.maxTokens); diff != "" {
			t.Errorf("max tokens mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestExtractAnalysis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want model.Analysis
	}{
		{
			name: "structured",
			in: `Here is the analysis:
<analysis>
<district_performance>
SIDHI ranks 2nd of 52.
</district_performance>

<block_performance>
MAJHAULI leads.
</block_performance>

<recommendations>
Open more works.
</recommendations>
</analysis>`,
			want: model.Analysis{
				DistrictPerformance: "SIDHI ranks 2nd of 52.",
				BlockPerformance:    "MAJHAULI leads.",
				Recommendations:     "Open more works.",
				Text:                "SIDHI ranks 2nd of 52.\n\nMAJHAULI leads.\n\nOpen more works.",
			},
		},
		{
			name: "plain text",
			in:   "  SIDHI performs well.\n",
			want: model.Analysis{Text: "SIDHI performs well."},
		},
		{
			name: "analysis without parts",
			in:   "<analysis>Only prose.</analysis>",
			want: model.Analysis{Text: "Only prose."},
		},
		{
			name: "truncated answer",
			in:   "<analysis><district_performance>Cut off",
			want: model.Analysis{DistrictPerformance: "Cut off", Text: "Cut off"},
		},
		{
			name: "reasoning and fences removed",
			in:   "<thinking>scratch</thinking>\n```xml\n<analysis><recommendations>Act.</recommendations></analysis>\n```",
			want: model.Analysis{Recommendations: "Act.", Text: "Act."},
		},
		{
			name: "empty",
			in:   " \n\t",
			want: model.Analysis{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, ExtractAnalysis(tt.in)); diff != "" {
				t.Errorf("ExtractAnalysis() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
