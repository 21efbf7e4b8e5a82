package models

import "time"

// Movie is one stored catalog entry: a free-text description and its embedding.
// Rows are written once by the seed job and never updated.
type Movie struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is a stored movie description with its cosine similarity (0..1) to a query embedding.
type Match struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}
