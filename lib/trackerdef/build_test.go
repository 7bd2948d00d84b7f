// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackerdef

import (
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/ticketref/lib/tracker"
)

func TestBuild(t *testing.T) {
	def := &Definition{
		Providers: []ProviderDef{
			{
				Name:    "trac",
				Kind:    KindHTML,
				BaseURL: "https://bugs.example/ticket/",
				Prefix:  "tor",
			},
			{
				Name:    "gitlab",
				Kind:    KindComposite,
				BaseURL: "https://gitlab.example/",
				Pattern: `\b(?P<path>[\w/]+)#(?P<number>[0-9]{4,})\b`,
			},
			{
				Name:     "proposal",
				Kind:     KindIndex,
				IndexURL: "https://specs.example/proposals/index.txt",
				Pattern:  `\b[Pp]rop#([0-9]+)\b`,
			},
			{
				Name:       "rt",
				Kind:       KindCommand,
				Command:    "rt",
				ConfigPath: "/etc/rtrc",
				Pattern:    `\bRT#([0-9]+)\b`,
			},
		},
		Bindings: []BindingDef{
			{Channels: []string{"#tor", "#tor-*"}, Provider: "trac", Default: true},
			{Channels: []string{"#sysadmin"}, Provider: "rt"},
		},
	}

	built, err := Build(def, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(built) != 4 {
		t.Fatalf("built %d providers, want 4", len(built))
	}

	t.Run("definition order is preserved", func(t *testing.T) {
		names := make([]string, len(built))
		for i, b := range built {
			names[i] = b.Provider.Name()
		}
		want := []string{"trac", "gitlab", "proposal", "rt"}
		if !reflect.DeepEqual(names, want) {
			t.Fatalf("provider order = %v, want %v", names, want)
		}
	})

	t.Run("kinds map to provider variants", func(t *testing.T) {
		if _, ok := built[0].Provider.(*tracker.HTMLTitleProvider); !ok {
			t.Errorf("trac built as %T, want *tracker.HTMLTitleProvider", built[0].Provider)
		}
		if _, ok := built[1].Provider.(*tracker.CompositeProvider); !ok {
			t.Errorf("gitlab built as %T, want *tracker.CompositeProvider", built[1].Provider)
		}
		if _, ok := built[2].Provider.(*tracker.IndexedTextProvider); !ok {
			t.Errorf("proposal built as %T, want *tracker.IndexedTextProvider", built[2].Provider)
		}
		if _, ok := built[3].Provider.(*tracker.CommandProvider); !ok {
			t.Errorf("rt built as %T, want *tracker.CommandProvider", built[3].Provider)
		}
	})

	t.Run("channel lists expand into one binding per glob", func(t *testing.T) {
		bindings := built[0].Bindings
		if len(bindings) != 2 {
			t.Fatalf("trac bindings = %+v, want two", bindings)
		}
		if bindings[0].ChannelGlob != "#tor" || bindings[1].ChannelGlob != "#tor-*" {
			t.Fatalf("globs = %q, %q, want #tor, #tor-*", bindings[0].ChannelGlob, bindings[1].ChannelGlob)
		}
		if !bindings[0].Default || !bindings[1].Default {
			t.Fatalf("default flag lost in expansion: %+v", bindings)
		}
	})

	t.Run("unbound providers have no bindings", func(t *testing.T) {
		if len(built[1].Bindings) != 0 {
			t.Fatalf("gitlab bindings = %+v, want none", built[1].Bindings)
		}
		if len(built[2].Bindings) != 0 {
			t.Fatalf("proposal bindings = %+v, want none", built[2].Bindings)
		}
	})

	t.Run("prefix synthesizes the match pattern", func(t *testing.T) {
		pattern := built[0].Provider.Pattern()
		if pattern == nil {
			t.Fatal("trac has no pattern despite its prefix")
		}
		match := pattern.FindStringSubmatch("see tor#1234 for details")
		if match == nil || match[1] != "1234" {
			t.Fatalf("pattern match = %v, want capture 1234", match)
		}
	})
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		def     *Definition
		wantErr string
	}{
		{
			name: "unknown kind",
			def: &Definition{Providers: []ProviderDef{
				{Name: "x", Kind: "ftp"},
			}},
			wantErr: `unknown kind "ftp"`,
		},
		{
			name: "duplicate provider name",
			def: &Definition{Providers: []ProviderDef{
				{Name: "trac", Kind: KindHTML, BaseURL: "https://x.example/"},
				{Name: "trac", Kind: KindHTML, BaseURL: "https://y.example/"},
			}},
			wantErr: "duplicate provider name",
		},
		{
			name: "missing base url surfaces the constructor error",
			def: &Definition{Providers: []ProviderDef{
				{Name: "x", Kind: KindHTML},
			}},
			wantErr: "base URL is required",
		},
		{
			name: "binding references unknown provider",
			def: &Definition{
				Providers: []ProviderDef{{Name: "x", Kind: KindHTML, BaseURL: "https://x.example/"}},
				Bindings:  []BindingDef{{Channels: []string{"#c"}, Provider: "ghost"}},
			},
			wantErr: `references unknown provider "ghost"`,
		},
		{
			name: "fixup label with one verb",
			def: &Definition{Providers: []ProviderDef{
				{Name: "x", Kind: KindHTML, BaseURL: "https://x.example/", Fixup: &FixupDef{Label: "%s"}},
			}},
			wantErr: "exactly two %s verbs",
		},
		{
			name: "unknown status kind",
			def: &Definition{Providers: []ProviderDef{
				{Name: "x", Kind: KindHTML, BaseURL: "https://x.example/", Status: &StatusDef{Kind: "banner"}},
			}},
			wantErr: "status kind must be badge or box",
		},
		{
			name: "invalid timeout",
			def: &Definition{Providers: []ProviderDef{
				{Name: "x", Kind: KindHTML, BaseURL: "https://x.example/", Timeout: "soon"},
			}},
			wantErr: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.def, BuildOptions{})
			if err == nil {
				t.Fatal("Build succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
