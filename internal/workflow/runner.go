package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/notifications"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/observability"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/retention"
	"github.com/google/uuid"
)

const serviceName = "nas-snapsentry"

// Per-share status strings that are not formatted from a result.
const (
	StatusNotFound = "NAS not found"
	StatusNoAction = "No expired snapshot"
)

// notifyTimeout bounds failure delivery, which also runs after the run context expired.
const notifyTimeout = 30 * time.Second

// Result is the outcome of one run: either a status per requested share name,
// or a single error when the shared setup failed before any share was processed.
type Result struct {
	Result map[string]string
	Error  string
}

// Failed reports whether the shared setup aborted the run.
func (r Result) Failed() bool {
	return r.Error != ""
}

// MarshalJSON renders {"result": {...}} or {"error": "..."}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}

	result := r.Result
	if result == nil {
		result = map[string]string{}
	}
	return json.Marshal(struct {
		Result map[string]string `json:"result"`
	}{result})
}

// Runner orchestrates one retention pass over a list of share names.
//
// Responsibilities:
//  1. Session: authenticates once per run.
//  2. Discovery: fetches the project's snapshot inventory once and the share list
//     once it succeeds, and partitions the inventory per share locally.
//  3. Evaluation: asks the retention engine for a decision per share.
//  4. Execution: creates or deletes snapshots through the provider.
//  5. Isolation: a failing share is recorded in the result and never stops the others.
//
// Shares are processed sequentially to stay within the service's rate limits.
type Runner struct {
	Provider cloud.Provider
	Engine   *retention.Engine

	// Optional collaborators
	Logger   *slog.Logger
	Notifier notifications.Notifier
	Metrics  *observability.Metrics

	// DryRun evaluates decisions without creating or deleting anything.
	DryRun bool
	// Now is the reference time of a run. Defaults to time.Now.
	Now func() time.Time
}

type shareOutcome struct {
	ShareID  string
	Decision retention.Decision
	Status   string
}

// Run executes one retention pass for names using creds.
func (r *Runner) Run(ctx context.Context, creds cloud.Credentials, names []string) Result {
	start := time.Now()
	runID := fmt.Sprintf("req-%s", uuid.New().String())
	logger := r.logger().With("workflow", "retention", "snapsentry_id", runID)

	logger.Info("Initializing snapshot retention workflow",
		"provider", r.Provider.GetCloudProviderName(),
		"nas_count", len(names),
		"dry_run", r.DryRun)

	// 1. Authenticate (fatal)
	session, err := r.Provider.Authenticate(ctx, creds)
	if err != nil {
		return r.abort(ctx, logger, runID, "", "Authentication failed", err, start)
	}
	logger = logger.With("project_id", session.ProjectID)
	logger.Debug("Session established")

	// 2. Fetch the snapshot inventory once for every share (fatal)
	inventory, err := r.Provider.ListSnapshots(ctx)
	if err != nil {
		return r.abort(ctx, logger, runID, session.ProjectID, "Snapshot inventory fetch failed", err, start)
	}
	logger.Info("Snapshot inventory fetched", "snapshot_count", len(inventory))

	resolve := r.shareResolver(ctx)
	now := r.now()

	// 3. Process shares sequentially
	result := make(map[string]string, len(names))
	successCount := 0
	errorCount := 0

	unique := distinctNames(names)
	for i, name := range unique {
		nasLogger := logger.With(
			"nas_name", name,
			"progress", fmt.Sprintf("%d/%d", i+1, len(unique)),
		)

		if ctx.Err() != nil {
			nasLogger.Warn("Skipping share: workflow halted due to timeout or cancellation")
			result[name] = formatError(ctx.Err())
			errorCount++
			continue
		}

		outcome, err := r.processShare(ctx, name, resolve, inventory, now, nasLogger)
		if err != nil {
			result[name] = r.shareFailed(ctx, nasLogger, runID, session.ProjectID, name, outcome, err)
			errorCount++
			continue
		}

		result[name] = outcome.Status
		successCount++
	}

	r.Metrics.RecordRun(nil, time.Since(start))
	logger.Info("Snapshot retention workflow summary",
		"nas_processed", len(result),
		"success_count", successCount,
		"error_count", errorCount,
		"duration", time.Since(start).String())

	return Result{Result: result}
}

// processShare resolves, evaluates and executes the policy for one share name.
// The returned outcome carries whatever was learned before a failure.
func (r *Runner) processShare(
	ctx context.Context,
	name string,
	resolve func(string) (string, error),
	inventory []cloud.Snapshot,
	now time.Time,
	logger *slog.Logger,
) (shareOutcome, error) {
	outcome := shareOutcome{}

	// A. Resolve the share name
	shareID, err := resolve(name)
	if err != nil {
		return outcome, err
	}
	outcome.ShareID = shareID

	// B. Partition the shared inventory
	snapshots := cloud.FilterSnapshotsByShare(inventory, shareID)
	logger.Debug("Share resolved", "share_id", shareID, "snapshot_count", len(snapshots))

	// C. Decide
	decision, err := r.Engine.Decide(snapshots, now)
	if err != nil {
		return outcome, err
	}
	outcome.Decision = decision
	r.Metrics.RecordDecision(decision.Action.String())

	logger.Info("Retention decision",
		"share_id", shareID,
		"action", decision.Action.String(),
		"reason", decision.Reason)

	// D. Execute
	switch decision.Action {
	case retention.ActionCreateSnapshot:
		if r.DryRun {
			outcome.Status = "Would create snapshot"
			return outcome, nil
		}

		status, err := r.Provider.CreateSnapshot(ctx, shareID, name)
		if err != nil {
			return outcome, err
		}
		r.Metrics.RecordSnapshotsCreated(1)
		logger.Info("Snapshot creation requested", "share_id", shareID, "status", status)
		outcome.Status = fmt.Sprintf("Created snapshot (status: %d)", status)

	case retention.ActionDeleteSnapshots:
		ids := decision.SnapshotIDs
		if r.DryRun {
			outcome.Status = fmt.Sprintf("Would delete %d expired snapshot(s): %s", len(ids), strings.Join(ids, ", "))
			return outcome, nil
		}

		if err := r.Provider.DeleteSnapshots(ctx, ids); err != nil {
			return outcome, err
		}
		r.Metrics.RecordSnapshotsDeleted(len(ids))
		logger.Info("Expired snapshots deleted", "share_id", shareID, "snapshot_ids", ids)
		outcome.Status = fmt.Sprintf("Deleted %d expired snapshot(s)", len(ids))

	default:
		outcome.Status = StatusNoAction
	}

	return outcome, nil
}

// shareResolver lists shares on first use and reuses the listing for every
// later name of the run. A failed listing is not kept: the next name that
// needs resolution lists again.
func (r *Runner) shareResolver(ctx context.Context) func(string) (string, error) {
	var (
		shares []cloud.Share
		loaded bool
	)

	return func(name string) (string, error) {
		if !loaded {
			listed, err := r.Provider.ListShares(ctx)
			if err != nil {
				return "", err
			}
			shares, loaded = listed, true
		}
		return cloud.FindShareID(shares, name)
	}
}

// shareFailed logs, counts and reports a per-share failure and returns its status string.
func (r *Runner) shareFailed(
	ctx context.Context,
	logger *slog.Logger,
	runID, projectID, name string,
	outcome shareOutcome,
	err error,
) string {
	kind := failureKind(err)
	r.Metrics.RecordShareFailure(kind)

	if kind == "not_found" {
		logger.Warn("Share not found; skipping")
	} else {
		logger.Error("Share processing encountered an error",
			"error", err,
			"kind", kind,
			"share_id", outcome.ShareID)
	}

	failure := notifications.ShareFailure{
		RunID:     runID,
		ProjectID: projectID,
		NASName:   name,
		ShareID:   outcome.ShareID,
		Message:   err.Error(),
	}
	if outcome.ShareID != "" && kind != "parse" {
		failure.Action = outcome.Decision.Action.String()
	}
	r.notify(ctx, logger, failure)

	if kind == "not_found" {
		return StatusNotFound
	}
	return formatError(err)
}

// abort ends a run whose shared setup failed.
func (r *Runner) abort(
	ctx context.Context,
	logger *slog.Logger,
	runID, projectID, msg string,
	err error,
	start time.Time,
) Result {
	logger.Error(msg, "error", err)
	r.Metrics.RecordRun(err, time.Since(start))

	r.notify(ctx, logger, notifications.ShareFailure{
		RunID:     runID,
		ProjectID: projectID,
		Message:   err.Error(),
		Fatal:     true,
	})

	return Result{Error: err.Error()}
}

func (r *Runner) notify(ctx context.Context, logger *slog.Logger, failure notifications.ShareFailure) {
	if r.Notifier == nil {
		return
	}
	failure.Service = serviceName

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := r.Notifier.Notify(notifyCtx, failure); err != nil {
		logger.Warn("Failure notification could not be delivered", "error", err)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// distinctNames drops repeated names, keeping the first occurrence's position.
func distinctNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	return unique
}

func formatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

func failureKind(err error) string {
	var parseErr *retention.ParseError
	var httpErr *cloud.HTTPError
	switch {
	case errors.Is(err, cloud.ErrShareNotFound):
		return "not_found"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &httpErr):
		return "http"
	default:
		return "other"
	}
}
