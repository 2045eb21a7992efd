package models

// Record is one element of the tourism dataset JSON array
type Record struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	Category    string `json:"category"`
}

// Document is the searchable text built from a Record or a supplementary file
type Document struct {
	Content  string
	Metadata map[string]string
}

// Chunk represents a bounded piece of a Document with the parent's metadata
type Chunk struct {
	Content    string
	Metadata   map[string]string
	DocumentID int
	ChunkID    int
}

// IndexEntry is what gets persisted into the vector index
type IndexEntry struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// SearchResult is a stored chunk returned by a similarity search
type SearchResult struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float32           `json:"similarity"`
}

type PromptResponse struct {
	Query   string         `json:"query"`
	Source  []SearchResult `json:"source"`
	Content string         `json:"content"`
}
