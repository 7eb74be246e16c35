package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bookmind/internal/catalog"
	"bookmind/internal/moderation"
	"bookmind/internal/resolver"
	"bookmind/internal/retrieval"
	"bookmind/internal/theme"
)

func TestMain(m *testing.M) {
	// The opencensus stats worker is started by a transitive dependency's
	// package init and cannot be stopped; it is not a leak in this package.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// ---- fakes ----

type fakeDetector struct{ lang string }

func (f fakeDetector) Detect(string) string { return f.lang }

// mapTranslator rewrites known strings and passes everything else through,
// which mirrors the degraded-translation policy.
type mapTranslator struct {
	rules map[string]string
}

func (t mapTranslator) Translate(_ context.Context, text, source, target string) string {
	if source == target {
		return text
	}
	if out, ok := t.rules[text]; ok {
		return out
	}
	return text
}

type fakeRetriever struct {
	mu      sync.Mutex
	results map[string][]retrieval.Candidate
	err     error
	calls   []string
}

func (f *fakeRetriever) Query(_ context.Context, text string, topK int) ([]retrieval.Candidate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := f.results[text]
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (f *fakeRetriever) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGenerator struct {
	out    string
	err    error
	system string
	user   string
}

func (f *fakeGenerator) CompleteWithSystem(_ context.Context, system, user string) (string, error) {
	f.system = system
	f.user = user
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

// ---- fixture ----

const potterTitle = "Harry Potter and the Philosopher's Stone"

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Book{
		{Title: "1984", Summary: "A dystopia of surveillance and control."},
		{Title: potterTitle, Summary: "A boy wizard finds friendship at a school of magic."},
		{Title: "The Hobbit", Summary: "Bilbo's unexpected journey to the Lonely Mountain."},
		{Title: "Ghost Title", Summary: ""},
	})
	require.NoError(t, err)
	return cat
}

type fixture struct {
	pipe      *Pipeline
	retriever *fakeRetriever
	generator *fakeGenerator
}

func newFixture(t *testing.T, mutate func(*Deps, *Options)) *fixture {
	t.Helper()
	cat := testCatalog(t)
	aliases, err := catalog.NewAliasTable([]catalog.AliasEntry{
		{Match: "harry potter", Title: potterTitle},
		{Match: "hobbit", Title: "The Hobbit"},
	})
	require.NoError(t, err)

	ret := &fakeRetriever{results: map[string][]retrieval.Candidate{}}
	gen := &fakeGenerator{out: "Generated recommendation."}
	deps := Deps{
		Catalog:    cat,
		Resolver:   resolver.New(cat, aliases),
		Expander:   theme.NewExpander(),
		Detector:   fakeDetector{lang: "en"},
		Moderator:  moderation.NewFilter(nil, nil),
		Translator: mapTranslator{},
		Retriever:  ret,
		Generator:  gen,
	}
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&deps, &opts)
	}
	pipe, err := New(deps, opts)
	require.NoError(t, err)
	return &fixture{pipe: pipe, retriever: ret, generator: gen}
}

// ---- scenarios ----

func TestStrictLookupNumericTitle(t *testing.T) {
	f := newFixture(t, nil)
	res := f.pipe.Respond(context.Background(), "what is 1984")

	require.True(t, strings.HasPrefix(res.DisplayText, "1984\n\n"), "DisplayText = %q", res.DisplayText)
	require.Equal(t, "en", res.Language)
	require.Equal(t, "A dystopia of surveillance and control.", res.SpeakableSummary)
	require.Zero(t, f.retriever.callCount(), "strict hit must not reach retrieval")
}

func TestThematicRecommendation(t *testing.T) {
	input := "I want a book about friendship and magic"
	f := newFixture(t, nil)

	variants := theme.NewExpander().Expand(input)
	require.NotEmpty(t, variants)
	// The expanded variant must carry the synonym enrichment.
	require.Contains(t, variants[0], "companionship")
	require.Contains(t, variants[0], "wizardry")
	f.retriever.results[variants[0]] = []retrieval.Candidate{
		{Distance: 0.9, Title: potterTitle, Summary: "retrieved doc"},
	}

	res := f.pipe.Respond(context.Background(), input)

	require.Contains(t, res.DisplayText, "Generated recommendation.")
	require.Contains(t, res.DisplayText, potterTitle, "summary block must name the winning title")
	// The detailed block quotes the stored catalog summary, not the
	// retrieved document.
	require.Contains(t, res.DisplayText, "A boy wizard finds friendship")
	require.NotContains(t, res.DisplayText, "retrieved doc")
	require.Equal(t, "A boy wizard finds friendship at a school of magic.", res.SpeakableSummary)
	require.Contains(t, f.generator.user, input)
	require.Contains(t, f.generator.system, "Respond in English.")
}

func TestOffensiveInputTerminalExit(t *testing.T) {
	f := newFixture(t, nil)
	res := f.pipe.Respond(context.Background(), "recommend me a book, you stupid thing")

	require.Equal(t, msgRephrase, res.DisplayText)
	require.Empty(t, res.SpeakableSummary)
	require.Zero(t, f.retriever.callCount(), "moderation exit must precede retrieval")
}

func TestOffTopicRedirect(t *testing.T) {
	f := newFixture(t, nil)
	res := f.pipe.Respond(context.Background(), "What's the weather today?")

	require.Equal(t, msgOffTopic, res.DisplayText)
	require.Empty(t, res.SpeakableSummary)
}

func TestOnTopicFallback(t *testing.T) {
	f := newFixture(t, nil)
	res := f.pipe.Respond(context.Background(), "recommend me a book about gardening techniques")

	require.Equal(t, msgFallback, res.DisplayText)
	require.Empty(t, res.SpeakableSummary)
}

func TestSummarylessTitleFallsThrough(t *testing.T) {
	f := newFixture(t, nil)
	res := f.pipe.Respond(context.Background(), "tell me about ghost title")

	// The resolver recognizes "Ghost Title", but with no stored summary the
	// turn must continue into retrieval instead of returning an empty body.
	require.NotZero(t, f.retriever.callCount(), "expected fall-through to retrieval")
	require.NotContains(t, res.DisplayText, "Ghost Title\n\n")
	require.Equal(t, msgOffTopic, res.DisplayText)
}

func TestDistanceBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		max      float64
		distance float64
		accept   bool
	}{
		{"relaxed exactly at cutoff", 1.6, 1.60, true},
		{"relaxed just above", 1.6, 1.61, false},
		{"relaxed just below", 1.6, 1.59, true},
		{"strict exactly at cutoff", 1.2, 1.20, true},
		{"strict just above", 1.2, 1.21, false},
		{"strict just below", 1.2, 1.19, true},
	}
	input := "a book about love"
	variants := theme.NewExpander().Expand(input)

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t, func(_ *Deps, o *Options) { o.DistanceMax = c.max })
			f.retriever.results[variants[0]] = []retrieval.Candidate{
				{Distance: c.distance, Title: "The Hobbit", Summary: "doc"},
			}
			res := f.pipe.Respond(context.Background(), input)
			if c.accept {
				require.Contains(t, res.DisplayText, "Generated recommendation.")
			} else {
				// On-topic input that misses the cutoff lands in fallback.
				require.Equal(t, msgFallback, res.DisplayText)
			}
		})
	}
}

func TestDistanceTieKeepsFirstSeen(t *testing.T) {
	input := "a book about war"
	variants := theme.NewExpander().Expand(input)
	require.GreaterOrEqual(t, len(variants), 2)

	f := newFixture(t, nil)
	f.retriever.results[variants[0]] = []retrieval.Candidate{
		{Distance: 1.0, Title: "1984", Summary: "first seen"},
	}
	f.retriever.results[variants[1]] = []retrieval.Candidate{
		{Distance: 1.0, Title: "The Hobbit", Summary: "second seen"},
	}

	res := f.pipe.Respond(context.Background(), input)
	require.Contains(t, res.DisplayText, "1984", "tie must keep across-variant insertion order")
	require.NotContains(t, res.DisplayText, "The Hobbit")
}

func TestRetrievalErrorFallsThrough(t *testing.T) {
	f := newFixture(t, nil)
	f.retriever.err = errors.New("vector service down")
	res := f.pipe.Respond(context.Background(), "recommend a novel about freedom")

	require.Equal(t, msgFallback, res.DisplayText)
	require.Empty(t, res.SpeakableSummary)
}

func TestGenerationErrorFallsThrough(t *testing.T) {
	input := "a book about adventure"
	variants := theme.NewExpander().Expand(input)

	f := newFixture(t, nil)
	f.generator.err = errors.New("model unavailable")
	f.retriever.results[variants[0]] = []retrieval.Candidate{
		{Distance: 0.5, Title: "The Hobbit", Summary: "doc"},
	}

	res := f.pipe.Respond(context.Background(), input)
	require.Equal(t, msgFallback, res.DisplayText)
}

func TestRomanianTurnLocalized(t *testing.T) {
	f := newFixture(t, func(d *Deps, _ *Options) {
		d.Detector = fakeDetector{lang: "ro"}
		d.Translator = mapTranslator{rules: map[string]string{
			"ce este 1984": "what is 1984",
			"1984\n\nA dystopia of surveillance and control.": "1984\n\nO distopie a supravegherii și controlului.",
			"A dystopia of surveillance and control.":         "O distopie a supravegherii și controlului.",
		}}
	})

	res := f.pipe.Respond(context.Background(), "ce este 1984")
	require.Equal(t, "ro", res.Language)
	require.True(t, strings.HasPrefix(res.DisplayText, "1984\n\nO distopie"), "DisplayText = %q", res.DisplayText)
	require.Equal(t, "O distopie a supravegherii și controlului.", res.SpeakableSummary)
}

func TestConfusedDetectorOverriddenToRomanian(t *testing.T) {
	f := newFixture(t, func(d *Deps, _ *Options) {
		d.Detector = fakeDetector{lang: "it"}
		d.Translator = mapTranslator{rules: map[string]string{
			"vreau o carte despre magie": "i want a book about magic",
		}}
	})
	variants := theme.NewExpander().Expand("i want a book about magic")
	f.retriever.results[variants[0]] = []retrieval.Candidate{
		{Distance: 0.4, Title: potterTitle, Summary: "doc"},
	}

	res := f.pipe.Respond(context.Background(), "vreau o carte despre magie")
	require.Equal(t, "ro", res.Language)
	require.Contains(t, f.generator.system, "Respond in Romanian.")
	require.Contains(t, res.DisplayText, "Iată un rezumat detaliat al")
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := New(Deps{}, DefaultOptions())
	require.Error(t, err)
}

func TestOnTopicKeywords(t *testing.T) {
	positives := []string{
		"recommend me a book",
		"vreau o poveste cu dragoni",
		"a story about freedom",
	}
	for _, s := range positives {
		require.True(t, onTopic(s), "onTopic(%q)", s)
	}
	negatives := []string{
		"what's the weather today?",
		"how do I fix my car",
	}
	for _, s := range negatives {
		require.False(t, onTopic(s), "onTopic(%q)", s)
	}
}
