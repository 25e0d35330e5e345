package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ragline/ragline/observability"
	"github.com/ragline/ragline/retrieval"
)

// Service ingests uploaded documents into the knowledge base: extract text,
// chunk it, and upsert the chunks into every configured index. The same
// chunk IDs are used across indexes so hybrid search can deduplicate.
type Service struct {
	chunker  *Chunker
	indexes  []retrieval.Index
	observer observability.Provider
}

// NewService creates an ingestion service writing to the given indexes.
func NewService(indexes ...retrieval.Index) *Service {
	return &Service{
		chunker: NewChunker(),
		indexes: indexes,
	}
}

// WithChunker replaces the default chunker.
func (service *Service) WithChunker(chunker *Chunker) *Service {
	service.chunker = chunker
	return service
}

// WithObserver sets the observability provider for ingestion spans.
func (service *Service) WithObserver(observer observability.Provider) *Service {
	service.observer = observer
	return service
}

// IngestDocument extracts text from the uploaded file, splits it into
// chunks, and upserts the chunks into all indexes. It returns the number of
// chunks written. A document with no extractable text ingests zero chunks
// without an error.
func (service *Service) IngestDocument(ctx context.Context, filename string, content []byte) (int, error) {
	if service.observer != nil {
		var span observability.Span
		ctx, span = service.observer.StartSpan(ctx, "ingest.document",
			observability.String("ingest.filename", filename),
			observability.Int("ingest.content_size", len(content)),
		)
		defer span.End()
	}

	text, err := ExtractText(filename, content)
	if err != nil {
		return 0, err
	}

	chunks := service.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	records := make([]retrieval.Record, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, retrieval.Record{
			ID:   uuid.NewString(),
			Text: chunk,
		})
	}

	for _, index := range service.indexes {
		if err := index.Upsert(ctx, records); err != nil {
			return 0, fmt.Errorf("error upserting chunks: %w", err)
		}
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("ingest.chunks_upserted",
			observability.Int("ingest.chunk_count", len(records)),
			observability.Int("ingest.index_count", len(service.indexes)),
		)
	}

	return len(records), nil
}
