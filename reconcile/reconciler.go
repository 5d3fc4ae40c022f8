// Package reconcile implements the worktime reconciliation engine: it
// merges the employee-owned and administrator-owned copies of a user's
// monthly time record into one authoritative collection and keeps the
// derived time-off ledger in step with the result.
//
// Reconciliation is best-effort background maintenance. Reconcile never
// returns an error; every failure degrades to a logged, partial or zero
// result so the workflow that triggered it (typically a login) proceeds
// regardless.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"worktime/models"
)

// EntryStore reads and writes monthly entry collections. Missing
// collections read as empty, never as errors. Writes are durable with
// backup semantics.
type EntryStore interface {
	ReadLocalEntries(ctx context.Context, username string, year int, month time.Month) ([]models.TimeEntry, error)
	// ReadRemoteEntries returns the admin-side collection for all users;
	// the caller filters by user.
	ReadRemoteEntries(ctx context.Context, year int, month time.Month) ([]models.TimeEntry, error)
	WriteLocalEntries(ctx context.Context, username string, entries []models.TimeEntry, year int, month time.Month) error
}

// LedgerStore reads and writes the derived time-off ledger. A missing
// ledger reads as nil without error.
type LedgerStore interface {
	ReadLedger(ctx context.Context, username string, userID uint, year int) (*models.TimeOffLedger, error)
	WriteLedger(ctx context.Context, username string, userID uint, ledger *models.TimeOffLedger, year int) error
}

// IdentityProvider resolves a username to its authoritative user ID. The
// second return is false when the identity is unavailable; callers treat
// that as a soft failure.
type IdentityProvider interface {
	ResolveUserID(ctx context.Context, username string) (uint, bool)
}

// BalanceProvider exposes the authoritative current holiday-day balance.
// The second return is false when the snapshot is unavailable.
type BalanceProvider interface {
	CurrentBalance(ctx context.Context, username string) (int, bool)
}

// Strategy is the terminal execution state of one reconciliation run.
type Strategy string

const (
	StrategyParallel   Strategy = "PARALLEL"
	StrategySequential Strategy = "SEQUENTIAL"
)

// PeriodResult is the outcome of reconciling one (year, month) period.
type PeriodResult struct {
	Period          Period `json:"period"`
	Modified        bool   `json:"modified"`
	EntryCount      int    `json:"entry_count"`
	LedgerUpdated   bool   `json:"ledger_updated"`
	CleanupOccurred bool   `json:"cleanup_occurred"`
	Failed          bool   `json:"failed"`
}

// AggregateResult is what the caller observes: per-period details plus
// counts, with the strategy that produced them.
type AggregateResult struct {
	Strategy        Strategy       `json:"strategy"`
	PeriodsModified int            `json:"periods_modified"`
	TotalEntries    int            `json:"total_entries"`
	LedgerUpdates   int            `json:"ledger_updates"`
	CleanupOps      int            `json:"cleanup_ops"`
	Periods         []PeriodResult `json:"periods"`
}

func aggregate(strategy Strategy, results []PeriodResult) AggregateResult {
	agg := AggregateResult{Strategy: strategy, Periods: results}
	for _, r := range results {
		if r.Modified {
			agg.PeriodsModified++
		}
		agg.TotalEntries += r.EntryCount
		if r.LedgerUpdated {
			agg.LedgerUpdates++
		}
		if r.CleanupOccurred {
			agg.CleanupOps++
		}
	}
	return agg
}

// Reconciler orchestrates the merge across planned periods.
type Reconciler struct {
	entries  EntryStore
	ledgers  LedgerStore
	identity IdentityProvider
	balance  BalanceProvider

	taskTimeout time.Duration
	lockExpiry  time.Duration
	now         func() time.Time
}

func NewReconciler(entries EntryStore, ledgers LedgerStore, identity IdentityProvider, balance BalanceProvider, taskTimeout, lockExpiry time.Duration) *Reconciler {
	return &Reconciler{
		entries:     entries,
		ledgers:     ledgers,
		identity:    identity,
		balance:     balance,
		taskTimeout: taskTimeout,
		lockExpiry:  lockExpiry,
		now:         time.Now,
	}
}

// Reconcile merges all planned periods for the user. It first attempts one
// concurrent task per period bounded by the per-task timeout; if any task
// fails or times out the partial results are discarded and every period is
// re-run sequentially with per-period failure isolation.
func (r *Reconciler) Reconcile(ctx context.Context, username string) AggregateResult {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("reconcile: panic recovered", "username", username, "panic", rec)
		}
	}()

	periods := PlanPeriods(r.now())

	results, err := r.runParallel(ctx, username, periods)
	if err == nil {
		return aggregate(StrategyParallel, results)
	}
	slog.Warn("reconcile: parallel run failed, falling back to sequential",
		"username", username, "error", err)

	return aggregate(StrategySequential, r.runSequential(ctx, username, periods))
}

// runParallel launches one task per period. Any task error or timeout
// fails the whole batch; partial results are never mixed with a sequential
// re-run.
func (r *Reconciler) runParallel(ctx context.Context, username string, periods []Period) ([]PeriodResult, error) {
	type outcome struct {
		idx    int
		result PeriodResult
		err    error
	}

	ch := make(chan outcome, len(periods))
	for i, p := range periods {
		go func(idx int, period Period) {
			taskCtx, cancel := context.WithTimeout(ctx, r.taskTimeout)
			defer cancel()

			done := make(chan outcome, 1)
			go func() {
				res, err := r.safeReconcilePeriod(taskCtx, username, period)
				done <- outcome{idx: idx, result: res, err: err}
			}()

			// A task that overruns its timeout aborts the whole batch,
			// even if its store calls ignore the context.
			select {
			case out := <-done:
				ch <- out
			case <-taskCtx.Done():
				ch <- outcome{idx: idx, err: fmt.Errorf("period %s: %w", period, taskCtx.Err())}
			}
		}(i, p)
	}

	results := make([]PeriodResult, len(periods))
	for range periods {
		out := <-ch
		if out.err != nil {
			return nil, out.err
		}
		results[out.idx] = out.result
	}
	return results, nil
}

// runSequential processes periods in planner order. A failure on one
// period is recorded as a failed, unmodified result; later periods still
// proceed.
func (r *Reconciler) runSequential(ctx context.Context, username string, periods []Period) []PeriodResult {
	results := make([]PeriodResult, 0, len(periods))
	for _, p := range periods {
		res, err := r.safeReconcilePeriod(ctx, username, p)
		if err != nil {
			slog.Error("reconcile: period failed",
				"username", username, "period", p.String(), "error", err)
			res = PeriodResult{Period: p, Failed: true}
		}
		results = append(results, res)
	}
	return results
}

// safeReconcilePeriod converts a panic in the per-period unit into an
// ordinary period failure so neither strategy can be taken down by one
// period.
func (r *Reconciler) safeReconcilePeriod(ctx context.Context, username string, period Period) (result PeriodResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = PeriodResult{Period: period}
			err = fmt.Errorf("period %s: panic: %v", period, rec)
		}
	}()
	return r.reconcilePeriod(ctx, username, period)
}

// reconcilePeriod is the per-period unit shared by both strategies: read
// both sides, clean them up, merge, conditionally write back, then sync
// the time-off ledger. The returned error marks a systemic failure for
// this period only; soft conditions (unknown identity, ledger trouble) are
// absorbed into the result.
func (r *Reconciler) reconcilePeriod(ctx context.Context, username string, period Period) (PeriodResult, error) {
	result := PeriodResult{Period: period}

	userID, ok := r.identity.ResolveUserID(ctx, username)
	if !ok {
		slog.Warn("reconcile: identity unavailable, skipping period",
			"username", username, "period", period.String())
		return result, nil
	}

	local, err := r.entries.ReadLocalEntries(ctx, username, period.Year, period.Month)
	if err != nil {
		return result, fmt.Errorf("read local entries %s: %w", period, err)
	}
	remote, err := r.entries.ReadRemoteEntries(ctx, period.Year, period.Month)
	if err != nil {
		return result, fmt.Errorf("read remote entries %s: %w", period, err)
	}
	remote = filterByUser(remote, userID)

	now := r.now()
	localCleaned := CleanupEntries(local, fmt.Sprintf("local/%s/%s", username, period), r.lockExpiry, now)
	remoteCleaned := CleanupEntries(remote, fmt.Sprintf("remote/%s/%s", username, period), r.lockExpiry, now)
	result.CleanupOccurred = localCleaned || remoteCleaned

	if len(local) == 0 && len(remote) == 0 && !result.CleanupOccurred {
		return result, nil
	}

	merged := MergeEntries(local, remote, userID)
	result.EntryCount = len(merged)
	result.Modified = !entriesEqual(merged, local) || len(remote) > 0 || result.CleanupOccurred
	if !result.Modified {
		return result, nil
	}

	if err := r.entries.WriteLocalEntries(ctx, username, merged, period.Year, period.Month); err != nil {
		return result, fmt.Errorf("write merged entries %s: %w", period, err)
	}

	// Ledger sync is independently fail-safe: the worktime write above is
	// never rolled back because the ledger misbehaved.
	result.LedgerUpdated = r.syncLedger(ctx, username, userID, period.Year, merged)
	return result, nil
}

func filterByUser(entries []models.TimeEntry, userID uint) []models.TimeEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
