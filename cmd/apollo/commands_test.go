package main

import (
	"testing"

	"github.com/thinkscotty/apollo"
	"github.com/thinkscotty/apollo/internal/config"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,,c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		got := splitList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestInvalidIDsDropsEntriesWithoutIdentity(t *testing.T) {
	refs := []apollo.ArticleRef{
		apollo.ByIdentity("x9"),
		apollo.Full(apollo.Article{Content: "no id"}),
		{},
		apollo.Full(apollo.Article{ID: "x10", Content: "c"}),
	}

	got := invalidIDs(refs)
	if len(got) != 2 || got[0] != "x9" || got[1] != "x10" {
		t.Errorf("invalidIDs = %q, want [x9 x10]", got)
	}
}

func TestContinuousOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := continuousOptions(cfg)
	if opts.AbstractMaxChars != nil {
		t.Errorf("AbstractMaxChars = %v, want unset", *opts.AbstractMaxChars)
	}
	if opts.Threshold == nil || *opts.Threshold != 0.8 {
		t.Errorf("Threshold = %v", opts.Threshold)
	}
	if opts.Language != apollo.LanguageDE {
		t.Errorf("Language = %q", opts.Language)
	}

	cfg.Clustering.AbstractMaxChars = 250
	cfg.Clustering.Keywords = []string{"grid"}
	opts = continuousOptions(cfg)
	if opts.AbstractMaxChars == nil || *opts.AbstractMaxChars != 250 {
		t.Errorf("AbstractMaxChars = %v", opts.AbstractMaxChars)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if got, _ := apollo.EncodeOptions(opts).Get("keywords"); got != "grid" {
		t.Errorf("keywords = %q", got)
	}
}
