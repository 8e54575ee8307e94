package amivoice

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownModel is returned by ResolveGrammar for a model name that does
// not map to a known grammar identifier.
var ErrUnknownModel = errors.New("amivoice: unknown model")

// Grammars maps human-readable model names to AmiVoice grammar identifiers.
// The names mirror the service's model catalogue: conversation ("会話") and
// voice-input ("音声入力") variants per domain, plus non-Japanese general
// models.
var Grammars = map[string]string{
	"会話_汎用":       "-a-general",
	"会話_医療":       "-a-medgeneral",
	"会話_製薬":       "-a-bizmrreport",
	"会話_金融":       "-a-bizfinance",
	"会話_保険":       "-a-bizinsurance",
	"音声入力_汎用":     "-a-general-input",
	"音声入力_医療":     "-a-medgeneral-input",
	"音声入力_製薬":     "-a-bizmrreport-input",
	"音声入力_金融":     "-a-bizfinance-input",
	"音声入力_保険":     "-a-bizinsurance-input",
	"音声入力_電子カルテ": "-a-medkarte-input",
	"英語_汎用":       "-a-general-en",
	"中国語_汎用":      "-a-general-zh",
	"韓国語_汎用":      "-a-general-ko",
}

// ResolveGrammar maps a configured model name to its grammar identifier.
// Both the catalogue name (e.g. "会話_汎用") and a raw grammar identifier
// (e.g. "-a-general") are accepted. An unresolvable name fails with
// ErrUnknownModel before any network call is made.
func ResolveGrammar(model string) (string, error) {
	if g, ok := Grammars[model]; ok {
		return g, nil
	}
	for _, g := range Grammars {
		if g == model {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, model)
}

// ModelNames returns the catalogue names in sorted order, for help texts and
// error messages.
func ModelNames() []string {
	names := make([]string, 0, len(Grammars))
	for name := range Grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
