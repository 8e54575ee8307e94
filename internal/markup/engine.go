// Package markup renders an aggregated transcript into its final per-speaker
// text, wrapping spans that fall inside high-scoring sentiment windows with
// visible tags.
//
// A rule triggers when it is enabled, its parameter is present in a sentiment
// span's scores, and the score is strictly greater than the rule's threshold.
// Every text span lying fully inside the triggering span's time window is
// wrapped with a 【PARAM: …】 tag. Wrapping is applied per span identity, so
// repeated identical utterances are wrapped independently. When several rules
// (or several qualifying windows of the same rule) cover the same span the
// tags nest; this is accepted behaviour, not deduplicated.
//
// Rendering is a pure function of its inputs: applying it twice to the same
// transcript and rules yields identical output.
package markup

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aomorin/hibiki/pkg/types"
)

// Rule configures inline annotation for one sentiment parameter.
type Rule struct {
	// Parameter is the sentiment parameter name (see Parameters).
	Parameter string

	// Threshold is the score a sentiment span must strictly exceed for the
	// rule to trigger.
	Threshold float64

	// Enabled gates the rule without removing its configuration.
	Enabled bool
}

// ValidateRules checks every rule against the parameter catalogue. It returns
// a joined error listing all failures.
func ValidateRules(rules []Rule) error {
	var errs []error
	for i, r := range rules {
		p, ok := Parameters[r.Parameter]
		if !ok {
			errs = append(errs, fmt.Errorf("rules[%d]: unknown sentiment parameter %q", i, r.Parameter))
			continue
		}
		if r.Threshold < p.Min || r.Threshold > p.Max {
			errs = append(errs, fmt.Errorf("rules[%d]: threshold %g for %q is out of range [%g, %g]",
				i, r.Threshold, r.Parameter, p.Min, p.Max))
		}
	}
	return errors.Join(errs...)
}

// wideSpacing matches a space that only existed to separate Latin-script
// tokens: one immediately followed by a non-ASCII rune.
var wideSpacing = regexp.MustCompile(" ([^\x00-\x7F])")

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithWideSpacingNormalization controls whether a space immediately followed
// by a non-ASCII rune is dropped when a speaker's spans are joined. This is a
// language-specific heuristic for scripts that do not use spaces between
// words; it defaults to enabled.
func WithWideSpacingNormalization(enabled bool) Option {
	return func(e *Engine) {
		e.normalizeWide = enabled
	}
}

// Engine renders transcripts according to a fixed rule set. It is safe for
// concurrent use — rules are read-only after construction.
type Engine struct {
	rules         []Rule
	normalizeWide bool
}

// NewEngine creates an Engine with the given rules. The rules are validated
// against the parameter catalogue.
func NewEngine(rules []Rule, opts ...Option) (*Engine, error) {
	if err := ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("markup: %w", err)
	}
	e := &Engine{
		rules:         append([]Rule(nil), rules...),
		normalizeWide: true,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Render produces the final annotated text: one "label: text" line per
// speaker, in speaker-insertion order.
func (e *Engine) Render(t *types.Transcript) string {
	var out strings.Builder
	for _, speaker := range t.Order {
		out.WriteString(speaker)
		out.WriteString(": ")
		out.WriteString(e.renderSpeaker(t.Speakers[speaker], t.Sentiments[speaker]))
		out.WriteByte('\n')
	}
	return out.String()
}

// renderSpeaker joins one speaker's spans, wrapping the ones that qualify
// under the engine's rules.
func (e *Engine) renderSpeaker(spans []types.TextSpan, sentiments []types.SentimentSpan) string {
	tags := e.spanTags(spans, sentiments)

	var b strings.Builder
	for i, span := range spans {
		text := span.Text
		if e.normalizeWide {
			text = wideSpacing.ReplaceAllString(text, "$1")
			// The same rule applies across the span boundary. The check uses
			// the span's own first rune, not the tag, so wrapping does not
			// influence spacing.
			if startsNonASCII(text) {
				trimTrailingSpace(&b)
			}
		}
		for _, param := range tags[i] {
			text = "【" + strings.ToUpper(param) + ": " + text + "】"
		}
		b.WriteString(text)
	}
	return b.String()
}

// spanTags computes, for every span index, the ordered list of parameter
// names whose rules trigger on a sentiment window fully covering that span.
// A parameter appears once per qualifying window, so overlapping windows
// produce nested tags.
func (e *Engine) spanTags(spans []types.TextSpan, sentiments []types.SentimentSpan) map[int][]string {
	tags := make(map[int][]string)
	for _, r := range e.rules {
		if !r.Enabled {
			continue
		}
		for _, s := range sentiments {
			score, ok := s.Scores[r.Parameter]
			if !ok || score <= r.Threshold {
				continue
			}
			for i, span := range spans {
				if span.Start >= s.Start && span.End <= s.End {
					tags[i] = append(tags[i], r.Parameter)
				}
			}
		}
	}
	return tags
}

// startsNonASCII reports whether the first rune of s is outside ASCII.
func startsNonASCII(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && r > 0x7F
}

// trimTrailingSpace removes a single trailing ASCII space from b, if present.
func trimTrailingSpace(b *strings.Builder) {
	s := b.String()
	if strings.HasSuffix(s, " ") {
		b.Reset()
		b.WriteString(s[:len(s)-1])
	}
}
