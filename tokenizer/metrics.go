package tokenizer

import "github.com/VictoriaMetrics/metrics"

var (
	recordsEmitted = metrics.NewCounter("tokenizer_records_total")
	forcedSplits   = metrics.NewCounter("tokenizer_forced_splits_total")
	forcedFlushes  = metrics.NewCounter("tokenizer_forced_flushes_total")
	poolRejects    = metrics.NewCounter("tokenizer_pool_rejects_total")
)
