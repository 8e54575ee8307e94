package amivoice

import (
	"errors"
	"sort"
	"testing"
)

func TestResolveGrammar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		model   string
		want    string
		wantErr error
	}{
		{name: "catalogue name", model: "会話_汎用", want: "-a-general"},
		{name: "catalogue name medical", model: "音声入力_電子カルテ", want: "-a-medkarte-input"},
		{name: "raw grammar id", model: "-a-general-en", want: "-a-general-en"},
		{name: "unknown name", model: "nonsense", wantErr: ErrUnknownModel},
		{name: "empty", model: "", wantErr: ErrUnknownModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolveGrammar(tt.model)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveGrammar(%q) err = %v, want %v", tt.model, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveGrammar(%q): %v", tt.model, err)
			}
			if got != tt.want {
				t.Errorf("ResolveGrammar(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestModelNamesSortedAndComplete(t *testing.T) {
	t.Parallel()

	names := ModelNames()
	if len(names) != len(Grammars) {
		t.Fatalf("len(ModelNames()) = %d, want %d", len(names), len(Grammars))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("ModelNames() not sorted: %v", names)
	}
	for _, name := range names {
		if _, ok := Grammars[name]; !ok {
			t.Errorf("ModelNames() returned %q, not in catalogue", name)
		}
	}
}
