package http

import (
	"github.com/fyrsmithlabs/promorag/internal/llm"
	"github.com/fyrsmithlabs/promorag/internal/query"
	"github.com/fyrsmithlabs/promorag/internal/reranker"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// AskRequest is the request body for POST /api/v1/ask. History holds the
// earlier turns of the conversation, oldest first.
type AskRequest struct {
	Question string     `json:"question"`
	History  []llm.Turn `json:"history,omitempty"`
}

// QueryRequest is the request body for POST /api/v1/classify and
// POST /api/v1/search.
type QueryRequest struct {
	Query string `json:"query"`
}

// ClassifyResponse is the response body for POST /api/v1/classify.
type ClassifyResponse struct {
	Query string `json:"query"`
	query.Classification
}

// SearchResponse is the response body for POST /api/v1/search.
type SearchResponse struct {
	Query      string               `json:"query"`
	Type       query.Type           `json:"type"`
	Params     map[string]string    `json:"params,omitempty"`
	Candidates []reranker.Candidate `json:"candidates"`
}
