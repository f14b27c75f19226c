package extract

import (
	"strings"
	"unicode"
)

// containerWords classify a noun chunk as packaging rather than food.
var containerWords = []string{"bottle", "box", "can", "jar", "package", "container", "bag"}

// Candidates holds the output of every extraction strategy, before priority
// resolution.
type Candidates struct {
	// Brands are upper-case / title-case token phrases.
	Brands []string
	// Entities are PRODUCT/ORG named entities. They are collected but not
	// consulted by Resolve; the chain has always worked off the other
	// strategies.
	Entities []string
	// OfPhrases are noun phrases governed by the word "of".
	OfPhrases []string
	// FoodChunks are noun chunks without container words.
	FoodChunks []string
	// ContainerChunks are noun chunks naming packaging; lowest priority.
	ContainerChunks []string
}

// Extractor derives candidate product names from recognition free text.
type Extractor struct {
	tagger Tagger
}

// NewExtractor creates an extractor over the given tagger.
func NewExtractor(tagger Tagger) *Extractor {
	return &Extractor{tagger: tagger}
}

// Extract runs every strategy over the tagged text. Empty input yields empty
// candidates.
func (e *Extractor) Extract(text string) (Candidates, error) {
	if strings.TrimSpace(text) == "" {
		return Candidates{}, nil
	}

	doc, err := e.tagger.Tag(text)
	if err != nil {
		return Candidates{}, err
	}

	candidates := Candidates{
		Brands:    brandPhrases(doc),
		Entities:  entityPhrases(doc),
		OfPhrases: ofPhrases(doc),
	}
	candidates.FoodChunks, candidates.ContainerChunks = nounChunks(doc)
	return candidates, nil
}

// ExtractNames extracts candidates and resolves them in one step.
func (e *Extractor) ExtractNames(text string) ([]string, error) {
	candidates, err := e.Extract(text)
	if err != nil {
		return nil, err
	}
	return candidates.Resolve(), nil
}

// Resolve applies the fixed priority order: brands (concatenated with
// "of"-phrases when both exist), then "of"-phrases, then food chunks, then
// container chunks. First non-empty tier wins.
func (c Candidates) Resolve() []string {
	if len(c.Brands) > 0 {
		if len(c.OfPhrases) > 0 {
			return append(append([]string{}, c.Brands...), c.OfPhrases...)
		}
		return c.Brands
	}

	tiers := [][]string{c.OfPhrases, c.FoodChunks, c.ContainerChunks}
	for _, tier := range tiers {
		if len(tier) > 0 {
			return tier
		}
	}
	return nil
}

// SearchQuery joins the resolved phrases into one lookup string.
func (c Candidates) SearchQuery() string {
	return strings.Join(c.Resolve(), " ")
}

// brandPhrases finds fully upper-case tokens and title-case tokens longer
// than two characters. When the next token is also title-case the two merge
// into a single two-token phrase.
func brandPhrases(doc *Doc) []string {
	var out []string
	for i := 0; i < len(doc.Tokens); i++ {
		text := doc.Tokens[i].Text
		if !isUpperToken(text) && !(isTitleToken(text) && len(text) > 2) {
			continue
		}
		if i+1 < len(doc.Tokens) && isTitleToken(doc.Tokens[i+1].Text) {
			out = append(out, text+" "+doc.Tokens[i+1].Text)
			i++
			continue
		}
		out = append(out, text)
	}
	return out
}

// entityPhrases collects PRODUCT and ORG entities.
func entityPhrases(doc *Doc) []string {
	var out []string
	for _, ent := range doc.Entities {
		if ent.Label == "PRODUCT" || ent.Label == "ORG" {
			out = append(out, ent.Text)
		}
	}
	return out
}

// ofPhrases grows a noun phrase from each token governed by the literal word
// "of": starting right after "of", the phrase extends while tokens are
// adjectival, numeric or nominal.
func ofPhrases(doc *Doc) []string {
	var out []string
	for i, tok := range doc.Tokens {
		if strings.ToLower(tok.Text) != "of" {
			continue
		}
		var words []string
		for j := i + 1; j < len(doc.Tokens) && isPhraseTag(doc.Tokens[j].Tag); j++ {
			words = append(words, doc.Tokens[j].Text)
		}
		if len(words) > 0 {
			out = append(out, strings.Join(words, " "))
		}
	}
	return out
}

// nounChunks finds contiguous determiner/modifier/noun runs containing at
// least one noun, strips leading determiners, keeps chunks of at most four
// words and splits them into food chunks and container-word chunks.
func nounChunks(doc *Doc) (food, containers []string) {
	var run []Token
	flush := func() {
		defer func() { run = nil }()

		hasNoun := false
		for _, tok := range run {
			if isNounTag(tok.Tag) {
				hasNoun = true
				break
			}
		}
		if !hasNoun {
			return
		}

		start := 0
		for start < len(run) && (run[start].Tag == "DT" || run[start].Tag == "PDT") {
			start++
		}
		words := make([]string, 0, len(run)-start)
		for _, tok := range run[start:] {
			words = append(words, tok.Text)
		}
		if len(words) == 0 || len(words) > 4 {
			return
		}

		chunk := strings.Join(words, " ")
		if isContainerChunk(words) {
			containers = append(containers, chunk)
			return
		}
		food = append(food, chunk)
	}

	for _, tok := range doc.Tokens {
		if isChunkTag(tok.Tag) {
			run = append(run, tok)
			continue
		}
		flush()
	}
	flush()
	return food, containers
}

func isContainerChunk(words []string) bool {
	for _, word := range words {
		lower := strings.ToLower(word)
		for _, container := range containerWords {
			if lower == container {
				return true
			}
		}
	}
	return false
}

// isUpperToken reports whether a token is fully upper-case: at least one
// cased character and no lower-case characters.
func isUpperToken(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasCased = true
		}
	}
	return hasCased
}

// isTitleToken reports whether a token starts with an upper-case letter
// followed only by non-upper-case characters.
func isTitleToken(s string) bool {
	for i, r := range s {
		if i == 0 {
			if !unicode.IsUpper(r) {
				return false
			}
			continue
		}
		if unicode.IsUpper(r) {
			return false
		}
	}
	return s != ""
}

func isPhraseTag(tag string) bool {
	switch tag {
	case "JJ", "JJR", "JJS", "CD", "NN", "NNS", "NNP", "NNPS":
		return true
	}
	return false
}

func isNounTag(tag string) bool {
	switch tag {
	case "NN", "NNS", "NNP", "NNPS":
		return true
	}
	return false
}

func isChunkTag(tag string) bool {
	switch tag {
	case "DT", "PDT", "POS", "JJ", "JJR", "JJS", "CD", "NN", "NNS", "NNP", "NNPS":
		return true
	}
	return false
}
