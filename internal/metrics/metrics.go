// Package metrics defines Prometheus collectors for docsentry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChunksStored counts chunks appended to the knowledge base.
	ChunksStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsentry_knowledge_chunks_stored_total",
		Help: "Total number of chunks appended to the knowledge base.",
	})

	// Searches counts similarity searches against the knowledge base.
	Searches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsentry_knowledge_searches_total",
		Help: "Total number of similarity searches.",
	})

	// IngestErrors counts per-file failures during ingestion.
	IngestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsentry_ingest_errors_total",
		Help: "Total number of files skipped due to read or embedding errors.",
	})

	// WebhookEvents counts received webhook deliveries by outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docsentry_webhook_events_total",
		Help: "Total number of webhook deliveries by outcome.",
	}, []string{"outcome"})

	// DocPRsOpened counts documentation pull requests opened.
	DocPRsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsentry_doc_prs_opened_total",
		Help: "Total number of documentation pull requests opened.",
	})
)
