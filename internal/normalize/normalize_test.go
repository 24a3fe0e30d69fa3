package normalize_test

import (
	"reflect"
	"strings"
	"testing"

	"shelfsync/internal/normalize"
)

func TestTokensBasic(t *testing.T) {
	set := normalize.Tokens("Иванов_Иван_Хроники_Заката.zip")
	want := []string{"заката", "иван", "иванов", "хроники"}
	if got := set.Words(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens: %v", got)
	}
}

func TestTokensDropsStopAndExtensionWords(t *testing.T) {
	set := normalize.Tokens("Война и мир. Том 1 (серия Классика).fb2")
	if set.Has("и") || set.Has("том") || set.Has("серия") || set.Has("fb2") {
		t.Fatalf("stoplist tokens survived: %v", set.Words())
	}
	for _, want := range []string{"война", "мир", "классика"} {
		if !set.Has(want) {
			t.Fatalf("expected token %q in %v", want, set.Words())
		}
	}
}

func TestTokensFoldsYo(t *testing.T) {
	a := normalize.Tokens("Алёша")
	b := normalize.Tokens("Алеша")
	if !reflect.DeepEqual(a.Words(), b.Words()) {
		t.Fatalf("ё folding mismatch: %v vs %v", a.Words(), b.Words())
	}
}

func TestTokensStripsParenthesizedYearOnly(t *testing.T) {
	set := normalize.Tokens("Собрание сочинений (1986)")
	if set.Has("1986") {
		t.Fatalf("parenthesized year survived: %v", set.Words())
	}

	bare := normalize.Tokens("Оруэлл 1984")
	if !bare.Has("1984") {
		t.Fatalf("bare year token must survive: %v", bare.Words())
	}
}

func TestTokensDropsSingleRuneTokens(t *testing.T) {
	set := normalize.Tokens("J K Роулинг")
	if set.Has("j") || set.Has("k") {
		t.Fatalf("single-rune tokens survived: %v", set.Words())
	}
	if !set.Has("роулинг") {
		t.Fatalf("expected author token, got %v", set.Words())
	}
}

func TestTokensIdempotent(t *testing.T) {
	inputs := []string{
		"Пелевин_Виктор_Generation_П.fb2",
		"The Lord of the Rings (1954) vol 1.epub",
		"Стругацкие - Пикник на обочине [1972].zip",
	}
	for _, input := range inputs {
		first := normalize.Tokens(input)
		second := normalize.Tokens(strings.Join(first.Words(), " "))
		if !reflect.DeepEqual(first.Words(), second.Words()) {
			t.Fatalf("%q: normalize not idempotent: %v vs %v", input, first.Words(), second.Words())
		}
	}
}

func TestTokensEmptyInput(t *testing.T) {
	if got := normalize.Tokens("   "); got.Len() != 0 {
		t.Fatalf("expected empty set, got %v", got.Words())
	}
}

func TestSubsetOfEmptyNeverMatches(t *testing.T) {
	empty := normalize.TokenSet{}
	other := normalize.NewTokenSet("толстой")
	if empty.SubsetOf(other) {
		t.Fatal("empty set must not count as a subset")
	}
}

func TestIntersect(t *testing.T) {
	a := normalize.NewTokenSet("хроники", "заката", "иван")
	b := normalize.NewTokenSet("хроники", "рассвета", "иван")
	got := a.Intersect(b).Words()
	want := []string{"иван", "хроники"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected intersection: %v", got)
	}
}
