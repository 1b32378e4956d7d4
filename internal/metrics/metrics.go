// Package metrics exposes process counters via expvar.
package metrics

import "expvar"

var (
	MemoriesStored   = expvar.NewInt("eva_memories_stored")
	MemoriesSkipped  = expvar.NewInt("eva_memories_skipped_duplicate")
	MemoriesReplaced = expvar.NewInt("eva_memories_superseded")
	Searches         = expvar.NewInt("eva_searches")
	Recalls          = expvar.NewInt("eva_recalls")
	WALReplays       = expvar.NewInt("eva_wal_replays")
	QueueEnqueued    = expvar.NewInt("eva_queue_enqueued")
	QueueDrained     = expvar.NewInt("eva_queue_drained")
	GraphErrors      = expvar.NewInt("eva_graph_errors")
	VectorErrors     = expvar.NewInt("eva_vector_errors")
)
