// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"strings"
	"testing"
)

// TestRenderFullPipeline walks a raw title through every decoration
// stage at once: whitespace collapse, boilerplate-stripping fixup,
// prefix, and postfix.
func TestRenderFullPipeline(t *testing.T) {
	fixup, err := NewReGroupFixup(`Issue #?[0-9]+: (.*) - Foo Tracker`, "")
	if err != nil {
		t.Fatalf("NewReGroupFixup: %v", err)
	}
	format := Formatting{Prefix: "X", Postfix: " - http://x/%s", Fixup: fixup}

	got := format.Render(ID{Number: "42"}, "  Issue #42:   Fix   the thing   - Foo Tracker  ", "")
	want := "X#42: Fix the thing - http://x/42"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestRenderStatusAnnotation(t *testing.T) {
	t.Run("appended after collapse", func(t *testing.T) {
		got := Formatting{}.Render(ID{Number: "7"}, "  Fix   the thing  ", "closed")
		want := "Fix the thing - [closed]"
		if got != want {
			t.Fatalf("Render = %q, want %q", got, want)
		}
	})

	t.Run("empty status adds nothing", func(t *testing.T) {
		got := Formatting{}.Render(ID{Number: "7"}, "Fix the thing", "")
		want := "Fix the thing"
		if got != want {
			t.Fatalf("Render = %q, want %q", got, want)
		}
	})

	t.Run("visible to the fixup", func(t *testing.T) {
		// The annotation lands before the fixup runs, so a label-only
		// fixup stamps the annotated title.
		fixup, err := NewReGroupFixup("", "")
		if err != nil {
			t.Fatalf("NewReGroupFixup: %v", err)
		}
		got := Formatting{Fixup: fixup}.Render(ID{Number: "7"}, "Fix the thing", "new")
		want := "#7: Fix the thing - [new]"
		if got != want {
			t.Fatalf("Render = %q, want %q", got, want)
		}
	})
}

func TestRenderCompositeIdentifier(t *testing.T) {
	// Postfix interpolation uses the canonical "path#number" form for
	// composite identifiers.
	format := Formatting{Postfix: " - https://gitlab.example/%s"}
	got := format.Render(ID{Path: "mygroup/proj", Number: "1234"}, "Fix the thing", "")
	want := "Fix the thing - https://gitlab.example/mygroup/proj#1234"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestReGroupFixup(t *testing.T) {
	t.Run("strips boilerplate", func(t *testing.T) {
		fixup, err := NewReGroupFixup(`Bug [0-9]+ - (.*)`, "")
		if err != nil {
			t.Fatalf("NewReGroupFixup: %v", err)
		}
		got := fixup.Apply(ID{Number: "42"}, "Bug 42 - frobnicator broken")
		want := "#42: frobnicator broken"
		if got != want {
			t.Fatalf("Apply = %q, want %q", got, want)
		}
	})

	t.Run("anchored at the title start", func(t *testing.T) {
		fixup, err := NewReGroupFixup(`[0-9]+: (.*)`, "")
		if err != nil {
			t.Fatalf("NewReGroupFixup: %v", err)
		}
		got := fixup.Apply(ID{Number: "7"}, "see 42: not at the start")
		want := "#7: see 42: not at the start"
		if got != want {
			t.Fatalf("Apply = %q, want %q", got, want)
		}
	})

	t.Run("no match keeps the whole title", func(t *testing.T) {
		fixup, err := NewReGroupFixup(`Bug [0-9]+ - (.*)`, "")
		if err != nil {
			t.Fatalf("NewReGroupFixup: %v", err)
		}
		got := fixup.Apply(ID{Number: "42"}, "unexpected layout")
		want := "#42: unexpected layout"
		if got != want {
			t.Fatalf("Apply = %q, want %q", got, want)
		}
	})

	t.Run("custom label", func(t *testing.T) {
		fixup, err := NewReGroupFixup("", "Prop#%s: %s")
		if err != nil {
			t.Fatalf("NewReGroupFixup: %v", err)
		}
		got := fixup.Apply(ID{Number: "250"}, "Download all descriptors")
		want := "Prop#250: Download all descriptors"
		if got != want {
			t.Fatalf("Apply = %q, want %q", got, want)
		}
	})

	t.Run("label needs two verbs", func(t *testing.T) {
		for _, label := range []string{"%s only", "#%d: %s", "%s %s %s"} {
			if _, err := NewReGroupFixup("", label); err == nil {
				t.Fatalf("NewReGroupFixup(label=%q) succeeded, want error", label)
			}
		}
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := NewReGroupFixup(`(`, "")
		if err == nil || !strings.Contains(err.Error(), "compiling fixup pattern") {
			t.Fatalf("NewReGroupFixup error = %v, want compile failure", err)
		}
	})
}

func TestFormattingValidate(t *testing.T) {
	tests := []struct {
		name    string
		postfix string
		wantOK  bool
	}{
		{"empty", "", true},
		{"single verb", " - http://x/%s", true},
		{"no verb", " - http://x/", false},
		{"two verbs", "%s%s", false},
		{"wrong verb", " - %d", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Formatting{Postfix: tt.postfix}.validate()
			if tt.wantOK && err != nil {
				t.Fatalf("validate(%q) = %v, want nil", tt.postfix, err)
			}
			if !tt.wantOK && err == nil {
				t.Fatalf("validate(%q) succeeded, want error", tt.postfix)
			}
		})
	}
}
