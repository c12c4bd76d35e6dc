package pipeline

import (
	"context"

	"meeting_assistant/internal/jobs"
	"meeting_assistant/internal/store"
)

// BuildRegistry wires the orchestrator's operations to job stages.
func BuildRegistry(o *Orchestrator) jobs.Registry {
	return jobs.Registry{
		jobs.StageProcessMeeting:    processStage(o),
		jobs.StageRegenerateSummary: regenerateStage(o),
		jobs.StageGenerateReport:    reportStage(o),
	}
}

func processStage(o *Orchestrator) jobs.StageFunc {
	return func(ctx context.Context, exec jobs.ExecutionContext, meetingID int64, params map[string]any) error {
		exec.Logf("processing meeting %d", meetingID)
		if err := o.ProcessMeeting(ctx, meetingID); err != nil {
			return err
		}
		exec.Logf("meeting %d completed", meetingID)
		return nil
	}
}

func regenerateStage(o *Orchestrator) jobs.StageFunc {
	return func(ctx context.Context, exec jobs.ExecutionContext, meetingID int64, params map[string]any) error {
		s, err := o.RegenerateSummary(ctx, meetingID)
		if err != nil {
			return err
		}
		exec.Logf("summary %d regenerated with %d key points", s.ID, len(s.KeyPoints))
		return nil
	}
}

func reportStage(o *Orchestrator) jobs.StageFunc {
	return func(ctx context.Context, exec jobs.ExecutionContext, meetingID int64, params map[string]any) error {
		var id *int64
		if general, _ := params["general"].(bool); !general {
			id = &meetingID
		}
		reportType, _ := params["report_type"].(string)
		rep, err := o.GenerateReport(ctx, id, store.ReportType(reportType))
		if err != nil {
			return err
		}
		exec.Logf("report %d stored as %s", rep.ID, rep.ReportType)
		return nil
	}
}
