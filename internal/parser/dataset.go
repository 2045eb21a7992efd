package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"morocco-rag/internal/models"
)

// LoadDataset reads the tourism dataset, a JSON array of records. Elements that
// are not objects, and fields that are missing or not strings, become empty
// strings instead of failing the whole load.
func LoadDataset(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDatasetFormat, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: %s does not contain a JSON array", models.ErrDatasetFormat, path)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDatasetFormat, err)
	}

	records := make([]models.Record, 0, len(items))
	skipped := 0
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			skipped++
		}
		records = append(records, models.Record{
			Instruction: stringField(fields, "instruction"),
			Input:       stringField(fields, "input"),
			Output:      stringField(fields, "output"),
			Category:    stringField(fields, "category"),
		})
	}
	if skipped > 0 {
		log.Warn().Int("count", skipped).Str("path", path).Msg("Dataset elements are not objects, using empty records")
	}
	return records, nil
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// RecordToDocument builds the labelled searchable text for a record
func RecordToDocument(r models.Record) models.Document {
	content := fmt.Sprintf("%s %s\n%s %s\n%s %s\n%s %s",
		models.InstructionLabel, r.Instruction,
		models.InputLabel, r.Input,
		models.OutputLabel, r.Output,
		models.CategoryLabel, r.Category,
	)
	return models.Document{
		Content: content,
		Metadata: map[string]string{
			models.MetaSource:              models.DatasetSource,
			models.MetaCategory:            r.Category,
			models.MetaOriginalInstruction: r.Instruction,
		},
	}
}

// LoadDocuments loads the dataset and converts every record into a Document
func LoadDocuments(path string) ([]models.Document, error) {
	records, err := LoadDataset(path)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, len(records))
	for i, r := range records {
		docs[i] = RecordToDocument(r)
	}
	return docs, nil
}
