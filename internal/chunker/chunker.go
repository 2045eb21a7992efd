// Package chunker splits document text into overlapping, size bounded chunks.
package chunker

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"morocco-rag/internal/models"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// separators are tried in order: paragraph, line, word, then single characters
var separators = []string{"\n\n", "\n", " ", ""}

// Chunker is a recursive, boundary aware splitter. Sizes are counted in runes,
// which is also how the langchaingo splitter measures by default.
type Chunker struct {
	maxSize  int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func New(maxSize, overlap int) (*Chunker, error) {
	if maxSize <= 0 {
		return nil, errors.New("chunker: size must be greater than zero")
	}
	if overlap < 0 {
		return nil, errors.New("chunker: overlap cannot be negative")
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than size %d", overlap, maxSize)
	}
	return &Chunker{
		maxSize: maxSize,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(maxSize),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(separators),
		),
	}, nil
}

func (c *Chunker) MaxSize() int { return c.maxSize }
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the chunk texts of content. Empty content yields no chunks and
// content that already fits yields exactly one.
func (c *Chunker) Split(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(content) <= c.maxSize {
		return []string{content}, nil
	}

	segments, err := c.splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("chunker: split text: %w", err)
	}

	chunks := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		chunks = append(chunks, c.hardCut(segment)...)
	}
	return chunks, nil
}

// SplitDocuments chunks every document and copies the document metadata onto
// each of its chunks.
func (c *Chunker) SplitDocuments(docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for docID, doc := range docs {
		texts, err := c.Split(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("chunker: document %d: %w", docID, err)
		}
		for i, text := range texts {
			chunks = append(chunks, models.Chunk{
				Content:    text,
				Metadata:   maps.Clone(doc.Metadata),
				DocumentID: docID,
				ChunkID:    i,
			})
		}
	}
	return chunks, nil
}

// hardCut slices a segment that is still longer than maxSize into windows of
// maxSize runes that overlap by the configured amount.
func (c *Chunker) hardCut(segment string) []string {
	runes := []rune(segment)
	if len(runes) <= c.maxSize {
		return []string{segment}
	}
	var out []string
	step := c.maxSize - c.overlap
	for start := 0; start < len(runes); start += step {
		end := min(start+c.maxSize, len(runes))
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
