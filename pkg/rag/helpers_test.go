package rag_test

import (
	"github.com/papercomputeco/askbase/pkg/vector"
)

func hit(id, title string, score float64) vector.SearchResult {
	return vector.SearchResult{
		Document: vector.Document{
			ID:      id,
			Title:   title,
			Content: "Content of " + title,
		},
		Score: score,
	}
}
