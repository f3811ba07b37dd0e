package knowledge

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var defaultCorpusYAML []byte

var (
	// ErrDuplicateDocument is returned when two documents share an ID.
	ErrDuplicateDocument = errors.New("knowledge: duplicate document id")
	// ErrInvalidDocument is returned for a document missing required fields.
	ErrInvalidDocument = errors.New("knowledge: invalid document")
)

// Corpus is an ordered, read-only document set. Declaration order is the
// tie-break order for equal scores.
type Corpus struct {
	docs        []Document
	fingerprint string
}

type corpusFile struct {
	Documents []Document `yaml:"documents"`
}

// NewCorpus validates docs and takes a private copy of them.
func NewCorpus(docs []Document) (*Corpus, error) {
	seen := make(map[string]struct{}, len(docs))
	out := make([]Document, 0, len(docs))
	for i, doc := range docs {
		doc.ID = strings.TrimSpace(doc.ID)
		if doc.ID == "" {
			return nil, fmt.Errorf("%w: document %d has no id", ErrInvalidDocument, i)
		}
		if _, dup := seen[doc.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDocument, doc.ID)
		}
		category, ok := ParseCategory(string(doc.Category))
		if !ok || category == "" {
			return nil, fmt.Errorf("%w: %s has unknown category %q", ErrInvalidDocument, doc.ID, doc.Category)
		}
		if strings.TrimSpace(doc.Title) == "" || strings.TrimSpace(doc.Body) == "" {
			return nil, fmt.Errorf("%w: %s needs a title and body", ErrInvalidDocument, doc.ID)
		}
		doc.Category = category
		doc.Phrasings = slices.Clone(doc.Phrasings)
		seen[doc.ID] = struct{}{}
		out = append(out, doc)
	}
	return &Corpus{docs: out, fingerprint: fingerprint(out)}, nil
}

func fingerprint(docs []Document) string {
	h := sha256.New()
	for _, doc := range docs {
		for _, part := range append([]string{doc.ID, string(doc.Category), doc.Title, doc.Body}, doc.Phrasings...) {
			h.Write([]byte(part))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// LoadCorpus parses a YAML document list.
func LoadCorpus(r io.Reader) (*Corpus, error) {
	var file corpusFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("knowledge: decode corpus: %w", err)
	}
	return NewCorpus(file.Documents)
}

// LoadCorpusFile parses the YAML corpus at path.
func LoadCorpusFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open corpus: %w", err)
	}
	defer f.Close()
	return LoadCorpus(f)
}

var defaultCorpus = mustLoadDefault()

func mustLoadDefault() *Corpus {
	c, err := LoadCorpus(bytes.NewReader(defaultCorpusYAML))
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCorpus returns the embedded insurance, medication and billing
// knowledge base.
func DefaultCorpus() *Corpus { return defaultCorpus }

// Len returns the number of documents.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

// Fingerprint identifies the corpus content. Equal corpora share it.
func (c *Corpus) Fingerprint() string {
	if c == nil {
		return fingerprint(nil)
	}
	return c.fingerprint
}

// Documents returns a copy of the documents in declaration order.
func (c *Corpus) Documents() []Document {
	if c == nil {
		return nil
	}
	out := make([]Document, len(c.docs))
	for i, doc := range c.docs {
		doc.Phrasings = slices.Clone(doc.Phrasings)
		out[i] = doc
	}
	return out
}

// Get returns the document with id.
func (c *Corpus) Get(id string) (Document, bool) {
	if c == nil {
		return Document{}, false
	}
	for _, doc := range c.docs {
		if doc.ID == id {
			doc.Phrasings = slices.Clone(doc.Phrasings)
			return doc, true
		}
	}
	return Document{}, false
}
