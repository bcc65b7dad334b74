package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/config"
)

// NewIndex creates the Index selected by cfg.Provider:
//   - "chromem" (default): embedded index persisted under cfg.Path
//   - "qdrant": remote index on a Qdrant server
//
// dimension is the embedder's output size.
func NewIndex(ctx context.Context, cfg config.VectorStoreConfig, dimension int, logger *zap.Logger) (Index, error) {
	switch cfg.Provider {
	case "chromem", "":
		return NewChromem(ChromemConfig{
			Path:       cfg.Path,
			Compress:   cfg.Compress,
			Collection: cfg.Collection,
			Dimension:  dimension,
		}, logger)
	case "qdrant":
		return NewQdrant(ctx, QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey.Value(),
			UseTLS:     cfg.QdrantTLS,
			Collection: cfg.Collection,
			Dimension:  dimension,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider %q (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Provider)
	}
}
