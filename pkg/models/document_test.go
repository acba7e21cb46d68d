package models

import (
	"reflect"
	"sort"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and splits on punctuation",
			text: "Helm SNI wajib, Pasal 291!",
			want: []string{"helm", "sni", "wajib", "pasal", "291"},
		},
		{
			name: "drops runs of length two or less",
			text: "uu no 22 di jalan",
			want: []string{"jalan"},
		},
		{
			name: "keeps digit runs longer than two",
			text: "UU 22/2009",
			want: []string{"2009"},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "deduplicates repeated tokens",
			text: "motor motor motor",
			want: []string{"motor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenSlice(Tokenize(tt.text))
			want := append([]string{}, tt.want...)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, want)
			}
		})
	}
}

func TestDocument_TokenSetCachesAndIncludesKeywords(t *testing.T) {
	doc := Document{
		Body:     "Setiap pengendara sepeda motor wajib menggunakan helm.",
		Keywords: []string{"helm standar", "keselamatan"},
	}

	tokens := doc.TokenSet()
	for _, want := range []string{"helm", "motor", "standar", "keselamatan"} {
		if _, ok := tokens[want]; !ok {
			t.Errorf("token %q missing from %v", want, tokenSlice(tokens))
		}
	}

	if again := doc.TokenSet(); reflect.ValueOf(again).Pointer() != reflect.ValueOf(tokens).Pointer() {
		t.Error("TokenSet should return the cached set on repeat calls")
	}
}

func TestDocument_SetTokens(t *testing.T) {
	var doc Document
	doc.SetTokens([]string{"helm", "motor"})

	got := doc.TokenSet()
	if len(got) != 2 {
		t.Fatalf("expected 2 tokens, got %v", tokenSlice(got))
	}
	if _, ok := got["helm"]; !ok {
		t.Error("persisted token lost after SetTokens")
	}
}

func TestDocument_DedupKey(t *testing.T) {
	a := Document{UU: "UU 22/2009", Pasal: "Pasal 106", Heading: "Helm", LegalText: "teks"}
	b := Document{UU: "UU 22/2009", Pasal: "Pasal 106", Heading: "Helm", LegalText: "teks"}
	c := Document{UU: "UU 22/2009", Pasal: "Pasal 107", Heading: "Helm", LegalText: "teks"}

	if a.DedupKey() != b.DedupKey() {
		t.Error("identical tuples should share a dedup key")
	}
	if a.DedupKey() == c.DedupKey() {
		t.Error("different pasal must not collide")
	}
}

func tokenSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tok := range set {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
