package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nnamdiodozi/gitdigest/ingest"
	"github.com/nnamdiodozi/gitdigest/observability"
	"github.com/nnamdiodozi/gitdigest/runstore"
	"github.com/nnamdiodozi/gitdigest/triage"
)

// RunRequest is one digest run as the orchestrator sees it, after HTTP
// defaults are resolved.
type RunRequest struct {
	URL             string
	Token           string
	Branch          string
	MaxSize         int64
	WordCount       int
	CallLLM         bool
	Triage          bool
	ExcludePatterns []string
	Focus           string
}

// RunResult is what a run produces. It is returned to the API caller and
// written next to the digest as the _llm.json artifact.
type RunResult struct {
	Status       string         `json:"status"`
	Summary      string         `json:"summary,omitempty"`
	Technologies []string       `json:"technologies,omitempty"`
	Structure    string         `json:"structure,omitempty"`
	Content      string         `json:"content,omitempty"`
	Branch       string         `json:"branch"`
	OutputFile   string         `json:"output_file"`
	DigestStats  triage.Stats   `json:"digest_stats"`
	Triage       *triage.Report `json:"triage"`
}

// RunDigest executes the full pipeline: retention cleanup, gitingest, stats,
// triage, summarization, persistence. The digest .txt is written by the
// ingester; this writes the _llm.json sibling and the history row.
func (s *Server) RunDigest(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.deps.Logger.With("run_id", runID)

	// Trim old pairs before adding a new one.
	if err := runstore.Cleanup(s.cfg.Digest.OutputDir, s.cfg.Digest.MaxSummaries, logger); err != nil {
		logger.Warn("retention cleanup failed", "error", err)
	}

	res, err := s.deps.Ingester.Run(ctx, ingest.Request{
		URL:             req.URL,
		Token:           req.Token,
		Branch:          req.Branch,
		MaxFileSize:     req.MaxSize,
		ExcludePatterns: req.ExcludePatterns,
	})
	if err != nil {
		s.logEvent(ctx, observability.EventIngestFailed, "", runID, err.Error(), false)
		return nil, err
	}
	repo := res.Ref.Owner + "/" + res.Ref.Repo
	s.logEvent(ctx, observability.EventIngestCompleted, repo, runID, "", true)
	s.recordMetric(observability.MetricIngestDurationMs, float64(res.Elapsed.Milliseconds()), "milliseconds")

	doc := s.deps.Engine.Parse(res.Digest)
	stats := triage.ComputeStats(res.Digest, doc)
	s.recordMetric(observability.MetricDigestTokens, float64(stats.EstimatedTokens), "tokens")

	result := &RunResult{
		Status:      "success",
		Branch:      res.Branch,
		OutputFile:  res.OutputFile,
		DigestStats: stats,
		Triage: &triage.Report{
			PreTriageTokens:  stats.EstimatedTokens,
			PostTriageTokens: stats.EstimatedTokens,
		},
	}

	summaryStatus := runstore.SummarySkipped
	if req.CallLLM {
		digest := res.Digest
		if req.Triage && s.cfg.Triage.Enabled {
			trimmed, report, terr := s.deps.Engine.Run(digest)
			if report != nil {
				result.Triage = report
			}
			if terr != nil {
				s.logEvent(ctx, observability.EventTriageOverBudget, repo, runID, terr.Error(), false)
				s.persistRun(ctx, runID, res, stats, result, runstore.SummaryError, start)
				return nil, terr
			}
			digest = trimmed
			if report.Applied {
				s.logEvent(ctx, observability.EventTriageApplied, repo, runID, triageDetails(report), true)
				s.recordMetric(observability.MetricTriageTokensSaved,
					float64(report.PreTriageTokens-report.PostTriageTokens), "tokens")
				s.recordMetric(observability.MetricFilesDropped, float64(report.FilesDroppedCount), "count")
			}
		}

		if s.deps.Summarizer == nil {
			s.persistRun(ctx, runID, res, stats, result, runstore.SummaryError, start)
			return nil, fmt.Errorf("summarization requested but no llm provider is configured")
		}

		llmStart := time.Now()
		summary, serr := s.deps.Summarizer.Summarize(ctx, digest, req.WordCount, req.Focus)
		if serr != nil {
			s.logEvent(ctx, observability.EventSummaryFailed, repo, runID, serr.Error(), false)
			s.persistRun(ctx, runID, res, stats, result, runstore.SummaryError, start)
			return nil, serr
		}
		s.recordMetric(observability.MetricLLMDurationMs, float64(time.Since(llmStart).Milliseconds()), "milliseconds")
		s.logEvent(ctx, observability.EventSummaryCompleted, repo, runID, "", true)

		result.Summary = summary.Summary
		result.Technologies = summary.Technologies
		result.Structure = summary.Structure
		summaryStatus = runstore.SummaryOK
	}

	if _, err := runstore.WriteResult(res.OutputFile, result); err != nil {
		logger.Warn("write result json failed", "error", err)
	}
	s.persistRun(ctx, runID, res, stats, result, summaryStatus, start)

	logger.Info("digest run completed", "repo", repo,
		"elapsed", time.Since(start), "summary", summaryStatus)
	return result, nil
}

func (s *Server) persistRun(ctx context.Context, runID string, res *ingest.Result,
	stats triage.Stats, result *RunResult, summaryStatus string, start time.Time) {
	run := &runstore.Run{
		ID:              runID,
		Owner:           res.Ref.Owner,
		Repo:            res.Ref.Repo,
		Branch:          res.Branch,
		OutputFile:      res.OutputFile,
		Lines:           stats.Lines,
		Words:           stats.Words,
		EstimatedTokens: stats.EstimatedTokens,
		FileCount:       stats.FileCount,
		FolderCount:     stats.FolderCount,
		SummaryStatus:   summaryStatus,
		ElapsedMs:       time.Since(start).Milliseconds(),
	}
	if result.Triage != nil {
		run.TriageApplied = result.Triage.Applied
		run.PreTriageTokens = result.Triage.PreTriageTokens
		run.PostTriageTokens = result.Triage.PostTriageTokens
		run.FilesDroppedCount = result.Triage.FilesDroppedCount
		run.HeaderTruncated = result.Triage.HeaderTruncated
	}
	if err := s.deps.Runs.Insert(ctx, run); err != nil {
		s.deps.Logger.Error("persist run failed", "error", err, "run_id", runID)
	}
}

func (s *Server) logEvent(ctx context.Context, eventType, repo, runID, details string, success bool) {
	if s.deps.Events == nil {
		return
	}
	s.deps.Events.LogEvent(ctx, observability.Event{
		EventType: eventType,
		Repo:      repo,
		RunID:     runID,
		Details:   details,
		Success:   success,
	})
}

func (s *Server) recordMetric(name string, value float64, unit string) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.RecordSimple(name, value, unit)
}

func triageDetails(r *triage.Report) string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(b)
}
