package metrics

import "sync/atomic"

// Metrics captures shared operational stats for the job queue and the
// meeting pipeline.
type Metrics struct {
	queueLength   int64
	queueCapacity int64
	workerCount   int64

	processedJobs int64
	failedJobs    int64

	meetingsCompleted    int64
	meetingsFailed       int64
	processingRetries    int64
	summariesRegenerated int64
	reportsGenerated     int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	QueueLength          int   `json:"queue_length"`
	QueueCapacity        int   `json:"queue_capacity"`
	WorkerCount          int   `json:"worker_count"`
	ProcessedJobs        int64 `json:"processed_jobs"`
	FailedJobs           int64 `json:"failed_jobs"`
	MeetingsCompleted    int64 `json:"meetings_completed"`
	MeetingsFailed       int64 `json:"meetings_failed"`
	ProcessingRetries    int64 `json:"processing_retries"`
	SummariesRegenerated int64 `json:"summaries_regenerated"`
	ReportsGenerated     int64 `json:"reports_generated"`
}

func New() *Metrics {
	return &Metrics{}
}

// UpdateQueue records the current queue stats.
func (m *Metrics) UpdateQueue(length, capacity, workers int) {
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
	atomic.StoreInt64(&m.workerCount, int64(workers))
}

// RecordJobCompletion increments processed/failed counters based on outcome.
func (m *Metrics) RecordJobCompletion(err error) {
	atomic.AddInt64(&m.processedJobs, 1)
	if err != nil {
		atomic.AddInt64(&m.failedJobs, 1)
	}
}

// RecordMeeting counts a finished processing run.
func (m *Metrics) RecordMeeting(err error) {
	if err != nil {
		atomic.AddInt64(&m.meetingsFailed, 1)
		return
	}
	atomic.AddInt64(&m.meetingsCompleted, 1)
}

func (m *Metrics) RecordRetry()              { atomic.AddInt64(&m.processingRetries, 1) }
func (m *Metrics) RecordSummaryRegenerated() { atomic.AddInt64(&m.summariesRegenerated, 1) }
func (m *Metrics) RecordReportGenerated()    { atomic.AddInt64(&m.reportsGenerated, 1) }

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		QueueLength:          int(atomic.LoadInt64(&m.queueLength)),
		QueueCapacity:        int(atomic.LoadInt64(&m.queueCapacity)),
		WorkerCount:          int(atomic.LoadInt64(&m.workerCount)),
		ProcessedJobs:        atomic.LoadInt64(&m.processedJobs),
		FailedJobs:           atomic.LoadInt64(&m.failedJobs),
		MeetingsCompleted:    atomic.LoadInt64(&m.meetingsCompleted),
		MeetingsFailed:       atomic.LoadInt64(&m.meetingsFailed),
		ProcessingRetries:    atomic.LoadInt64(&m.processingRetries),
		SummariesRegenerated: atomic.LoadInt64(&m.summariesRegenerated),
		ReportsGenerated:     atomic.LoadInt64(&m.reportsGenerated),
	}
}
