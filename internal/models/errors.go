package models

import "errors"

// Error kinds shared by the ingestion and query pipelines. Callers wrap them
// with fmt.Errorf("%w") and test with errors.Is.
var (
	ErrDatasetFormat   = errors.New("dataset is missing or not a JSON array")
	ErrIndexNotFound   = errors.New("vector index not found")
	ErrModelNotFound   = errors.New("generator model not found")
	ErrInitialization  = errors.New("pipeline initialization failed")
	ErrRetrieval       = errors.New("context retrieval failed")
	ErrGeneration      = errors.New("answer generation failed")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrSessionNotFound = errors.New("session not found")
)
