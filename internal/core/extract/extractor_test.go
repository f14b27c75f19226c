package extract

import (
	"reflect"
	"strings"
	"testing"
)

// fakeTagger returns canned documents so strategy behavior is deterministic.
type fakeTagger struct {
	docs map[string]*Doc
}

func (f *fakeTagger) Tag(text string) (*Doc, error) {
	return f.docs[text], nil
}

func tok(text, tag string) Token { return Token{Text: text, Tag: tag} }

func TestExtractEmptyInput(t *testing.T) {
	extractor := NewExtractor(&fakeTagger{})

	names, err := extractor.ExtractNames("   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no candidates, got %v", names)
	}
}

func TestExtractBrandWithOfPattern(t *testing.T) {
	text := "KELLOGG'S Corn Flakes of Original Wheat"
	tagger := &fakeTagger{docs: map[string]*Doc{
		text: {
			Tokens: []Token{
				tok("KELLOGG'S", "NNP"),
				tok("Corn", "NNP"),
				tok("Flakes", "NNPS"),
				tok("of", "IN"),
				tok("Original", "JJ"),
				tok("Wheat", "NNP"),
			},
		},
	}}

	names, err := NewExtractor(tagger).ExtractNames(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"KELLOGG'S Corn", "Flakes", "Original Wheat"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if !strings.HasPrefix(names[0], "KELLOGG'S") {
		t.Errorf("first phrase should begin with the upper-case token, got %q", names[0])
	}
}

func TestExtractBrandAloneWithoutOfPattern(t *testing.T) {
	text := "NESCAFE instant coffee"
	tagger := &fakeTagger{docs: map[string]*Doc{
		text: {
			Tokens: []Token{
				tok("NESCAFE", "NNP"),
				tok("instant", "JJ"),
				tok("coffee", "NN"),
			},
		},
	}}

	names, err := NewExtractor(tagger).ExtractNames(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"NESCAFE"}) {
		t.Errorf("names = %v, want [NESCAFE]", names)
	}
}

func TestExtractOfPatternOnly(t *testing.T) {
	text := "a jar full of strawberry jam"
	tagger := &fakeTagger{docs: map[string]*Doc{
		text: {
			Tokens: []Token{
				tok("a", "DT"),
				tok("jar", "NN"),
				tok("full", "JJ"),
				tok("of", "IN"),
				tok("strawberry", "NN"),
				tok("jam", "NN"),
			},
		},
	}}

	names, err := NewExtractor(tagger).ExtractNames(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"strawberry jam"}) {
		t.Errorf("names = %v, want [strawberry jam]", names)
	}
}

func TestExtractFoodChunkFallback(t *testing.T) {
	text := "the fresh strawberry jam tastes great"
	tagger := &fakeTagger{docs: map[string]*Doc{
		text: {
			Tokens: []Token{
				tok("the", "DT"),
				tok("fresh", "JJ"),
				tok("strawberry", "NN"),
				tok("jam", "NN"),
				tok("tastes", "VBZ"),
				tok("great", "JJ"),
			},
		},
	}}

	names, err := NewExtractor(tagger).ExtractNames(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"fresh strawberry jam"}) {
		t.Errorf("names = %v, want [fresh strawberry jam]", names)
	}
}

func TestExtractContainerChunksAreLastResort(t *testing.T) {
	text := "a bottle near the box"
	tagger := &fakeTagger{docs: map[string]*Doc{
		text: {
			Tokens: []Token{
				tok("a", "DT"),
				tok("bottle", "NN"),
				tok("near", "IN"),
				tok("the", "DT"),
				tok("box", "NN"),
			},
		},
	}}

	names, err := NewExtractor(tagger).ExtractNames(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"bottle", "box"}) {
		t.Errorf("names = %v, want [bottle box]", names)
	}
}

func TestExtractFoodChunksBeatContainerChunks(t *testing.T) {
	text := "a can beside tomato soup"
	tagger := &fakeTagger{docs: map[string]*Doc{
		text: {
			Tokens: []Token{
				tok("a", "DT"),
				tok("can", "NN"),
				tok("beside", "IN"),
				tok("tomato", "NN"),
				tok("soup", "NN"),
			},
		},
	}}

	names, err := NewExtractor(tagger).ExtractNames(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"tomato soup"}) {
		t.Errorf("names = %v, want [tomato soup]", names)
	}
}

func TestExtractLongChunksDropped(t *testing.T) {
	text := "very long tasty golden crispy snack"
	tagger := &fakeTagger{docs: map[string]*Doc{
		text: {
			Tokens: []Token{
				tok("very", "RB"),
				tok("long", "JJ"),
				tok("tasty", "JJ"),
				tok("golden", "JJ"),
				tok("crispy", "JJ"),
				tok("snack", "NN"),
			},
		},
	}}

	names, err := NewExtractor(tagger).ExtractNames(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Five words after determiner stripping exceeds the chunk cap.
	if len(names) != 0 {
		t.Errorf("names = %v, want none", names)
	}
}

func TestEntitiesComputedButNotRanked(t *testing.T) {
	text := "Acme cereal"
	tagger := &fakeTagger{docs: map[string]*Doc{
		text: {
			Tokens: []Token{
				tok("Acme", "NNP"),
				tok("cereal", "NN"),
			},
			Entities: []Entity{
				{Text: "Acme", Label: "ORG"},
				{Text: "Nebraska", Label: "GPE"},
			},
		},
	}}

	candidates, err := NewExtractor(tagger).Extract(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(candidates.Entities, []string{"Acme"}) {
		t.Errorf("entities = %v, want [Acme]", candidates.Entities)
	}
	// "Acme" is also a title-case brand token; the entity list itself must
	// not leak into the resolution order.
	if !reflect.DeepEqual(candidates.Resolve(), []string{"Acme"}) {
		t.Errorf("resolved = %v, want brand phrase only", candidates.Resolve())
	}
}

func TestSearchQueryJoinsWithSpaces(t *testing.T) {
	candidates := Candidates{
		Brands:    []string{"KELLOGG'S Corn", "Flakes"},
		OfPhrases: []string{"Original Wheat"},
	}
	if got := candidates.SearchQuery(); got != "KELLOGG'S Corn Flakes Original Wheat" {
		t.Errorf("query = %q", got)
	}
}

func TestBrandMergeConsumesFollowingToken(t *testing.T) {
	doc := &Doc{Tokens: []Token{
		tok("HEINZ", "NNP"),
		tok("Tomato", "NNP"),
		tok("Ketchup", "NNP"),
	}}

	brands := brandPhrases(doc)
	want := []string{"HEINZ Tomato", "Ketchup"}
	if !reflect.DeepEqual(brands, want) {
		t.Errorf("brands = %v, want %v", brands, want)
	}
}
