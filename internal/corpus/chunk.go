package corpus

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/minio/highwayhash"
)

// chunkKey is the fixed HighwayHash key for chunk ids. Changing it changes
// every id in existing stores.
var chunkKey = []byte("promorag-chunk-identity-key-0001")

// Chunk is the atomic unit of retrieval.
type Chunk struct {
	ID   string   `json:"id"`
	Text string   `json:"text"`
	Meta Metadata `json:"meta"`
}

// Metadata holds the structured facts extracted for a chunk.
//
// List fields are sorted and deduplicated; absent facts are omitted rather
// than stored as empty collections.
type Metadata struct {
	DocumentName  string   `json:"document_name"`
	Page          int      `json:"page,omitempty"`
	SourceType    string   `json:"source_type,omitempty"`
	Table         bool     `json:"table,omitempty"`
	Columns       []string `json:"columns,omitempty"`
	Type          string   `json:"type,omitempty"`
	Responsible   string   `json:"responsible,omitempty"`
	Link          []string `json:"link,omitempty"`
	DocumentLinks []string `json:"document_links,omitempty"`
	Stage         []string `json:"stage,omitempty"`
	Geo           []string `json:"geo,omitempty"`
	Currency      []string `json:"currency,omitempty"`
	Department    []string `json:"department,omitempty"`
	Metric        []string `json:"metric,omitempty"`
	Mechanic      []string `json:"mechanic,omitempty"`
	BonusType     []string `json:"bonus_type,omitempty"`
	PriorityLevel string   `json:"priority_level,omitempty"`
	SLA           []string `json:"sla,omitempty"`
	Duration      []string `json:"duration,omitempty"`
	Wager         []string `json:"wager,omitempty"`
	Payout        []string `json:"payout,omitempty"`
	Goal          []string `json:"goal,omitempty"`
	FormType      []string `json:"form_type,omitempty"`
	Tools         []string `json:"tools,omitempty"`
	RelatedTo     []string `json:"related_to,omitempty"`
	ChunkID       string   `json:"chunk_id,omitempty"`
	ChunkIndex    int      `json:"chunk_index_in_doc"`
}

// ChunkID returns the deterministic id for the chunk at index within
// document.
func ChunkID(document string, index int, text string) (string, error) {
	h, err := highwayhash.New(chunkKey)
	if err != nil {
		return "", fmt.Errorf("creating hasher: %w", err)
	}
	// Writes to a hash.Hash never fail.
	_, _ = h.Write([]byte(document))
	_, _ = h.Write([]byte{'-'})
	_, _ = h.Write([]byte(strconv.Itoa(index)))
	_, _ = h.Write([]byte{'-'})
	_, _ = h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)), nil
}
