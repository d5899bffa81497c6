// Package ingest loads the event feed into the knowledge base in fixed-size batches.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/domain"
	"github.com/kailas-cloud/aossindex/internal/logger"
)

// StatusOK is the only status Run reports; batch failures are counted, not raised.
const StatusOK = "OK"

// Result summarizes one run.
type Result struct {
	Status   string `json:"status"`
	Ingested int    `json:"ingested"`
	Total    int    `json:"total"`
}

// Service runs the ingestion job.
type Service struct {
	source    Source
	ingestor  DocumentIngestor
	batchSize int
}

// New creates a Service. batchSize <= 0 means 10.
func New(source Source, ingestor DocumentIngestor, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Service{source: source, ingestor: ingestor, batchSize: batchSize}
}

// Run reads every event and submits them batch by batch.
// A failed batch is logged and skipped; only a failed read is an error.
func (s *Service) Run(ctx context.Context) (Result, error) {
	log := logger.FromContext(ctx)

	events, err := s.source.Events(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load events: %w", err)
	}

	docs := make([]domain.KBDocument, 0, len(events))
	for _, ev := range events {
		doc, err := BuildDocument(ev)
		if err != nil {
			log.Warn("event date invalid, using epoch 0", zap.Error(err))
		}
		docs = append(docs, doc)
	}

	res := Result{Status: StatusOK, Total: len(docs)}
	log.Info("events loaded", zap.Int("total", res.Total))

	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		batch := docs[start:end]

		statuses, err := s.ingestor.Ingest(ctx, batch)
		if err != nil {
			log.Error("ingest batch failed", zap.Int("offset", start), zap.Int("size", len(batch)), zap.Error(err))
			continue
		}
		res.Ingested += len(batch)
		for _, st := range statuses {
			if st.Status == "FAILED" {
				log.Warn("document rejected", zap.String("id", st.ID), zap.String("reason", st.Reason))
			}
		}
		log.Info("batch ingested", zap.Int("ingested", res.Ingested), zap.Int("total", res.Total))
	}
	return res, nil
}
