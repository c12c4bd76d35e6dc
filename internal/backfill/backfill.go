package backfill

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"meeting_assistant/internal/store"
)

// Record is a meeting considered for re-dispatch.
type Record struct {
	MeetingID int64
	Title     string
	Status    store.MeetingStatus
	UpdatedAt time.Time
}

// Options bounds a backfill run. A Limit of zero selects every pending meeting.
type Options struct {
	Limit         int  `json:"limit"`
	IncludeFailed bool `json:"include_failed"`
}

// Summary captures backfill execution metrics.
type Summary struct {
	TotalCandidates    int `json:"total"`
	AlreadyProcessed   int `json:"already_processed"`
	Unprocessed        int `json:"unprocessed"`
	Selected           int `json:"selected"`
	AttemptedEnqueue   int `json:"attempted_enqueue"`
	Enqueued           int `json:"enqueued"`
	EnqueueDroppedFull int `json:"dropped_full"`
	Errors             int `json:"errors"`
}

// EnqueueResult captures queueing outcome for a record.
type EnqueueResult struct {
	Enqueued    bool
	DroppedFull bool
}

// Repository describes the data source needed for backfill.
type Repository interface {
	ListCandidates(ctx context.Context) ([]Record, error)
	QueueRecord(ctx context.Context, rec Record) (EnqueueResult, error)
	OnBackfillComplete(summary Summary)
}

// SelectPending returns up to limit meetings, newest first, that are stuck in
// processing, plus failed ones when includeFailed is set.
func SelectPending(records []Record, opts Options) ([]Record, Summary) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})

	summary := Summary{TotalCandidates: len(records)}
	pending := make([]Record, 0, len(records))
	for _, r := range records {
		switch r.Status {
		case store.MeetingProcessing:
		case store.MeetingFailed:
			if !opts.IncludeFailed {
				continue
			}
		case store.MeetingCompleted:
			summary.AlreadyProcessed++
			continue
		default:
			continue
		}
		pending = append(pending, r)
	}

	summary.Unprocessed = len(pending)
	if opts.Limit > 0 && opts.Limit < len(pending) {
		pending = pending[:opts.Limit]
	}
	summary.Selected = len(pending)
	return pending, summary
}

// Execute runs one backfill pass synchronously.
func Execute(ctx context.Context, repo Repository, opts Options, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	records, err := repo.ListCandidates(ctx)
	if err != nil {
		return Summary{}, err
	}
	selected, summary := SelectPending(records, opts)
	summary.AttemptedEnqueue = len(selected)
	for _, rec := range selected {
		if ctx.Err() != nil {
			break
		}
		result, err := repo.QueueRecord(ctx, rec)
		if err != nil {
			summary.Errors++
			logger.Warn("backfill dispatch failed", "meeting_id", rec.MeetingID, "error", err)
		}
		if result.Enqueued {
			summary.Enqueued++
		}
		if result.DroppedFull {
			summary.EnqueueDroppedFull++
		}
	}
	logger.Info("backfill summary",
		"total", summary.TotalCandidates,
		"unprocessed", summary.Unprocessed,
		"selected", summary.Selected,
		"enqueued", summary.Enqueued,
		"dropped_full", summary.EnqueueDroppedFull,
		"errors", summary.Errors,
		"already_processed", summary.AlreadyProcessed)
	repo.OnBackfillComplete(summary)
	return summary, nil
}

// Run executes the backfill asynchronously.
func Run(ctx context.Context, repo Repository, opts Options, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := Execute(ctx, repo, opts, logger); err != nil {
			logger.Error("backfill list failed", "error", err)
		}
	}()
}
