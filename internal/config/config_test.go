package config

import (
	"strings"
	"testing"

	"github.com/lumen-lang/lumen/internal/diagnostics"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
language_version: "2.12.0"
suppress:
  - dead-code
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := cfg.Version(); got == nil || got.String() != "2.12.0" {
		t.Errorf("Version() = %v, want 2.12.0", got)
	}

	sup := cfg.Suppressed()
	if len(sup) != 1 || sup[0] != diagnostics.CategoryDeadCode {
		t.Errorf("Suppressed() = %v, want [dead-code]", sup)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Version() != nil {
		t.Error("an absent language_version means latest")
	}

	if len(cfg.Suppressed()) != 0 {
		t.Error("nothing is suppressed by default")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"unknown field", "language_versoin: \"2.12.0\"", "cannot parse config"},
		{"bad version", "language_version: \"not-a-version\"", "invalid language_version"},
		{"bad category", "suppress: [deadcode]", "unknown suppress category"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.in))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Parse(%q) error = %v, want containing %q", tc.in, err, tc.want)
			}
		})
	}
}
