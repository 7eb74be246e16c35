// Package pipeline sequences one chat turn: language resolution and safety,
// normalization to English, strict title lookup, thematic retrieval, and the
// guarded fallbacks. Each stage either terminal-exits with a Result or hands
// off to the next; no stage ever surfaces a raw error to the caller.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookmind/internal/catalog"
	"bookmind/internal/language"
	"bookmind/internal/resolver"
	"bookmind/internal/retrieval"
	"bookmind/internal/theme"
)

// Result is the boundary output of one turn. An empty SpeakableSummary means
// there is no text-to-speech affordance for this turn.
type Result struct {
	DisplayText      string
	Language         string
	SpeakableSummary string
}

// External collaborators, kept to the narrow contracts the pipeline
// consumes. Implementations live in language, moderation, llm, retrieval.

// Detector identifies the input language.
type Detector interface {
	Detect(text string) string
}

// Moderator screens input for abusive language.
type Moderator interface {
	IsOffensive(ctx context.Context, text string) bool
}

// Translator converts text between languages, passing the original through
// on failure.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) string
}

// Retriever ranks indexed books against a query.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]retrieval.Candidate, error)
}

// Generator phrases the final recommendation sentence.
type Generator interface {
	CompleteWithSystem(ctx context.Context, system, user string) (string, error)
}

// Options are the tunables of the retrieval stage. The acceptance distance
// is a boundary, not an architectural constant: 1.6 suits relaxed thematic
// matching, 1.2 a stricter profile.
type Options struct {
	TopK        int
	DistanceMax float64
}

// DefaultOptions matches the relaxed thematic profile.
func DefaultOptions() Options {
	return Options{TopK: 3, DistanceMax: 1.6}
}

// Deps are the pipeline's collaborators. All fields are required.
type Deps struct {
	Catalog    *catalog.Catalog
	Resolver   *resolver.Resolver
	Expander   *theme.Expander
	Detector   Detector
	Moderator  Moderator
	Translator Translator
	Retriever  Retriever
	Generator  Generator
	Logger     *zap.Logger
}

// Pipeline is stateless across turns; every invocation is independent and
// the shared catalog structures are read-only, so one instance serves
// concurrent requests.
type Pipeline struct {
	deps Deps
	opts Options
}

// New validates the dependency set.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Catalog == nil:
		return nil, fmt.Errorf("pipeline requires a catalog")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("pipeline requires a resolver")
	case deps.Expander == nil:
		return nil, fmt.Errorf("pipeline requires an expander")
	case deps.Detector == nil:
		return nil, fmt.Errorf("pipeline requires a language detector")
	case deps.Moderator == nil:
		return nil, fmt.Errorf("pipeline requires a moderator")
	case deps.Translator == nil:
		return nil, fmt.Errorf("pipeline requires a translator")
	case deps.Retriever == nil:
		return nil, fmt.Errorf("pipeline requires a retriever")
	case deps.Generator == nil:
		return nil, fmt.Errorf("pipeline requires a generator")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.DistanceMax <= 0 {
		opts.DistanceMax = DefaultOptions().DistanceMax
	}
	return &Pipeline{deps: deps, opts: opts}, nil
}

// Respond processes one user turn end to end. It always returns a Result;
// degraded external services turn into the guarded fallback states, never
// into an error.
func (p *Pipeline) Respond(ctx context.Context, input string) Result {
	log := p.deps.Logger.With(zap.String("turn", uuid.NewString()[:8]))

	// Stage 1: language and safety.
	detected := p.deps.Detector.Detect(input)
	lang := language.Resolve(input, detected)
	log.Debug("language resolved",
		zap.String("detected", detected),
		zap.String("resolved", lang))

	if p.deps.Moderator.IsOffensive(ctx, input) {
		log.Info("input rejected by moderation")
		return p.terminal(ctx, msgRephrase, lang)
	}

	// Stage 2: normalize to English. All matching runs on this copy; the
	// user never sees it.
	english := input
	if lang != "en" {
		english = p.deps.Translator.Translate(ctx, input, lang, "en")
	}

	// Stage 3: strict title lookup.
	if res, ok := p.strictLookup(ctx, log, english, lang); ok {
		return res
	}

	// Stage 4: thematic retrieval.
	if res, ok := p.thematic(ctx, log, english, lang); ok {
		return res
	}

	// Stage 5: topic gate.
	if !onTopic(english) {
		log.Debug("off-topic input redirected")
		return p.terminal(ctx, msgOffTopic, lang)
	}

	// Stage 6: fallback. Deliberately never invents an answer.
	return p.terminal(ctx, msgFallback, lang)
}

// strictLookup feeds the lookup-phrase extraction and the English copy to
// the resolver. A resolved title without a stored summary is not a hit:
// the turn continues to retrieval rather than fabricating content.
func (p *Pipeline) strictLookup(ctx context.Context, log *zap.Logger, english, lang string) (Result, bool) {
	var candidates []string
	if phrase, ok := resolver.ExtractLookupPhrase(english); ok {
		candidates = append(candidates, phrase)
	}
	candidates = append(candidates, english)

	title, ok := p.deps.Resolver.Resolve(candidates...)
	if !ok {
		return Result{}, false
	}
	summary, ok := p.deps.Catalog.SummaryOf(title)
	if !ok {
		log.Debug("title resolved without stored summary, continuing",
			zap.String("title", title))
		return Result{}, false
	}

	log.Info("strict lookup hit", zap.String("title", title))
	display := title + "\n\n" + summary
	localSummary := summary
	if lang != "en" {
		display = p.deps.Translator.Translate(ctx, display, "en", lang)
		localSummary = p.deps.Translator.Translate(ctx, summary, "en", lang)
	}
	return Result{DisplayText: display, Language: lang, SpeakableSummary: localSummary}, true
}

// thematic expands the question, pools ranked candidates across variants,
// and phrases a recommendation when the best distance is acceptable.
// Retrieval or generation failure degrades to "no candidates".
func (p *Pipeline) thematic(ctx context.Context, log *zap.Logger, english, lang string) (Result, bool) {
	variants := p.deps.Expander.Expand(english)
	if len(variants) == 0 {
		return Result{}, false
	}

	// Variant queries are independent; fan them out. Results land in their
	// variant's slot so the merged pool keeps variant-then-rank insertion
	// order regardless of completion order.
	perVariant := make([][]retrieval.Candidate, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range variants {
		g.Go(func() error {
			found, err := p.deps.Retriever.Query(gctx, q, p.opts.TopK)
			if err != nil {
				log.Warn("retrieval variant failed",
					zap.String("query", q),
					zap.Error(err))
				return nil
			}
			perVariant[i] = found
			return nil
		})
	}
	_ = g.Wait()

	var pool []retrieval.Candidate
	for _, found := range perVariant {
		pool = append(pool, found...)
	}
	if len(pool) == 0 {
		return Result{}, false
	}

	// Stable sort: distance ties keep first-seen insertion order.
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Distance < pool[j].Distance
	})
	best := pool[0]
	log.Debug("retrieval pool ranked",
		zap.Int("candidates", len(pool)),
		zap.String("best_title", best.Title),
		zap.Float64("best_distance", best.Distance))

	// The boundary is inclusive: a candidate exactly at the cutoff passes.
	if best.Distance > p.opts.DistanceMax {
		return Result{}, false
	}

	answer, err := p.deps.Generator.CompleteWithSystem(ctx,
		recommendationSystemPrompt(lang),
		recommendationUserPrompt(english, best.Summary))
	if err != nil {
		log.Warn("generation failed, falling through", zap.Error(err))
		return Result{}, false
	}

	// The detailed block quotes the catalog's stored summary, not the
	// retrieved document.
	localSummary := ""
	block := ""
	if fullSummary, ok := p.deps.Catalog.SummaryOf(best.Title); ok {
		localSummary = fullSummary
		if lang != "en" {
			localSummary = p.deps.Translator.Translate(ctx, fullSummary, "en", lang)
			block = fmt.Sprintf("\n\nIată un rezumat detaliat al *%s*:\n%s", best.Title, localSummary)
		} else {
			block = fmt.Sprintf("\n\nHere's a detailed summary of *%s*:\n%s", best.Title, fullSummary)
		}
	}

	log.Info("thematic recommendation", zap.String("title", best.Title))
	return Result{
		DisplayText:      answer + block,
		Language:         lang,
		SpeakableSummary: localSummary,
	}, true
}

// terminal localizes a canned message and exits without a summary.
func (p *Pipeline) terminal(ctx context.Context, msg, lang string) Result {
	if lang != "en" {
		msg = p.deps.Translator.Translate(ctx, msg, "en", lang)
	}
	return Result{DisplayText: msg, Language: lang}
}

func recommendationSystemPrompt(lang string) string {
	directive := map[string]string{
		"ro": "Respond in Romanian.",
		"en": "Respond in English.",
	}[lang]
	if directive == "" {
		directive = fmt.Sprintf("Respond in %s.", lang)
	}
	return "You are an intelligent assistant that recommends books based on user interests. " +
		"Use the provided context to give a helpful and natural recommendation. " + directive
}

func recommendationUserPrompt(question, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User asked: %q\n\n", question)
	fmt.Fprintf(&b, "Context: %q\n\n", context)
	b.WriteString("Respond with a friendly book suggestion. Mention the book title if relevant.")
	return b.String()
}
