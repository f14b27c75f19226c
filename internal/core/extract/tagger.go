package extract

import (
	"github.com/jdkato/prose/v2"
)

// Token is one linguistically tagged token.
type Token struct {
	Text string
	Tag  string // Penn Treebank part-of-speech tag
}

// Entity is a named entity with its label.
type Entity struct {
	Text  string
	Label string
}

// Doc is the tagged form of an input text.
type Doc struct {
	Tokens   []Token
	Entities []Entity
}

// Tagger produces a tagged document from free text.
type Tagger interface {
	Tag(text string) (*Doc, error)
}

// ProseTagger tags text with the prose NLP pipeline.
type ProseTagger struct{}

// NewProseTagger creates a prose-backed tagger.
func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

// Tag runs tokenization, POS tagging and entity extraction.
func (t *ProseTagger) Tag(text string) (*Doc, error) {
	document, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}

	doc := &Doc{}
	for _, tok := range document.Tokens() {
		doc.Tokens = append(doc.Tokens, Token{Text: tok.Text, Tag: tok.Tag})
	}
	for _, ent := range document.Entities() {
		doc.Entities = append(doc.Entities, Entity{Text: ent.Text, Label: ent.Label})
	}
	return doc, nil
}
