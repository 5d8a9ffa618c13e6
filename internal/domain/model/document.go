package model

// Document is one indexed source post used to ground answers.
type Document struct {
	ID      int64
	Title   string
	URL     string
	Content string
}

// ScoredDocument is a retrieval hit with its similarity score.
type ScoredDocument struct {
	Document
	Score float64
}
