package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/status"
)

// OutcomeKind classifies the result of reconciling one job.
type OutcomeKind string

const (
	// OutcomeNoOp means the job was already terminal; nothing was contacted
	// or written.
	OutcomeNoOp          OutcomeKind = "noop"
	OutcomeCompleted     OutcomeKind = "completed"
	OutcomeFailed        OutcomeKind = "failed"
	OutcomeStillInFlight OutcomeKind = "still_in_flight"
	// OutcomeRetryable means the provider could not be reached; the stored
	// state was left untouched and the caller may try again later.
	OutcomeRetryable OutcomeKind = "retryable"
	// OutcomeUnresolvable means no external job id could be determined; the
	// row needs manual attention.
	OutcomeUnresolvable OutcomeKind = "unresolvable"
	// OutcomeError means the store rejected the classified update.
	OutcomeError OutcomeKind = "error"
)

// Outcome reports one job's reconciliation result.
type Outcome struct {
	JobID         string
	Kind          OutcomeKind
	PreviousState domain.JobState
	NewState      domain.JobState
	Updated       bool
	Err           error
}

// BulkResult aggregates a recovery pass over all in-flight jobs.
type BulkResult struct {
	TotalChecked  int
	Updated       int
	StillInFlight int
	Unresolvable  int
	Errored       int
	Results       []Outcome
}

// Options configures a Reconciler.
type Options struct {
	Store     domain.JobStore
	Providers *status.Registry
	Logger    infra.Logger
	// Concurrency bounds parallel provider calls during RecoverAll.
	Concurrency int
	// ProviderTimeout bounds each individual provider call.
	ProviderTimeout time.Duration
}

// Reconciler merges provider truth into locally persisted generation jobs.
// Every operation is a bounded, terminating pass; there is no background
// poller.
type Reconciler struct {
	store           domain.JobStore
	providers       *status.Registry
	logger          infra.Logger
	concurrency     int
	providerTimeout time.Duration
}

// New constructs a Reconciler, applying defaults for unset tunables.
func New(opts Options) *Reconciler {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	providerTimeout := opts.ProviderTimeout
	if providerTimeout <= 0 {
		providerTimeout = 20 * time.Second
	}
	return &Reconciler{
		store:           opts.Store,
		providers:       opts.Providers,
		logger:          opts.Logger,
		concurrency:     concurrency,
		providerTimeout: providerTimeout,
	}
}

// CheckOne reconciles a single job by its local identifier. The returned
// error covers lookup problems only (unknown id, store read failure);
// per-job provider and write failures are captured in the Outcome.
func (r *Reconciler) CheckOne(ctx context.Context, jobID string) (Outcome, error) {
	job, err := r.store.GetByID(ctx, jobID)
	if err != nil {
		return Outcome{}, err
	}
	return r.checkJob(ctx, job, nil), nil
}

// RecoverAll reconciles every non-terminal job known to the store. Jobs are
// checked in parallel up to the configured concurrency; a failure on one job
// never aborts the batch.
func (r *Reconciler) RecoverAll(ctx context.Context) (*BulkResult, error) {
	jobs, err := r.store.ListInFlight(ctx)
	if err != nil {
		return nil, err
	}

	snapshots := r.bulkSnapshots(ctx, jobs)

	outcomes := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range jobs {
		i := i
		job := jobs[i]
		g.Go(func() error {
			outcomes[i] = r.checkJob(gctx, &job, snapshots[job.Provider])
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{TotalChecked: len(outcomes), Results: outcomes}
	for _, out := range outcomes {
		if out.Updated {
			result.Updated++
		}
		switch out.Kind {
		case OutcomeStillInFlight:
			result.StillInFlight++
		case OutcomeUnresolvable:
			result.Unresolvable++
		case OutcomeRetryable, OutcomeError:
			result.Errored++
		}
	}
	r.logger.Info().
		Int("checked", result.TotalChecked).
		Int("updated", result.Updated).
		Int("in_flight", result.StillInFlight).
		Int("unresolvable", result.Unresolvable).
		Int("errored", result.Errored).
		Msg("reconcile: recovery pass finished")
	return result, nil
}

// bulkSnapshots fetches one status listing per provider that supports it,
// keyed by provider name then external job id. Providers without the bulk
// capability, and listing failures, degrade to per-job fetches.
func (r *Reconciler) bulkSnapshots(ctx context.Context, jobs []domain.GenerationJob) map[string]map[string]*status.Status {
	snapshots := make(map[string]map[string]*status.Status)
	seen := make(map[string]bool)
	for _, job := range jobs {
		if seen[job.Provider] {
			continue
		}
		seen[job.Provider] = true
		bulk, ok := r.providers.Lookup(job.Provider).(status.BulkClient)
		if !ok {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, r.providerTimeout)
		listed, err := bulk.ListJobs(callCtx)
		cancel()
		if err != nil {
			r.logger.Warn().Err(err).Str("provider", job.Provider).Msg("reconcile: bulk listing failed")
			continue
		}
		byID := make(map[string]*status.Status, len(listed))
		for i := range listed {
			byID[listed[i].ExternalJobID] = &listed[i].Status
		}
		snapshots[job.Provider] = byID
	}
	return snapshots
}

// checkJob runs the single-job state machine. snapshot, when non-nil, serves
// statuses fetched by a bulk listing; ids it misses fall back to a direct
// fetch.
func (r *Reconciler) checkJob(ctx context.Context, job *domain.GenerationJob, snapshot map[string]*status.Status) Outcome {
	out := Outcome{JobID: job.ID, PreviousState: job.State, NewState: job.State}

	if job.IsTerminal() {
		out.Kind = OutcomeNoOp
		return out
	}

	externalID, ok := ExternalJobID(job)
	if !ok {
		out.Kind = OutcomeUnresolvable
		out.Err = domain.ErrUnresolvableJob
		return out
	}

	st := snapshot[externalID]
	if st == nil {
		st, out = r.fetchStatus(ctx, job, externalID, out)
		if st == nil {
			return out
		}
	}

	return r.classify(ctx, job, st, out)
}

// fetchStatus performs one provider call. It returns a nil status with the
// outcome already populated when the call did not yield a usable answer.
func (r *Reconciler) fetchStatus(ctx context.Context, job *domain.GenerationJob, externalID string, out Outcome) (*status.Status, Outcome) {
	client := r.providers.Lookup(job.Provider)
	if client == nil {
		out.Kind = OutcomeUnresolvable
		out.Err = fmt.Errorf("%w: no status client for provider %q", domain.ErrUnresolvableJob, job.Provider)
		return nil, out
	}

	callCtx, cancel := context.WithTimeout(ctx, r.providerTimeout)
	st, err := client.FetchStatus(callCtx, externalID)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrUnknownExternalJob) {
			// The provider disowned the id; the job can never complete.
			return nil, r.writeFailure(ctx, job, out, err.Error())
		}
		// Transient by taxonomy, and the safe default for anything
		// unexpected: leave the stored state alone.
		out.Kind = OutcomeRetryable
		out.Err = err
		r.logger.Warn().Err(err).
			Str("job_id", job.ID).
			Str("provider", job.Provider).
			Msg("reconcile: provider fetch failed")
		return nil, out
	}
	return st, out
}

func (r *Reconciler) classify(ctx context.Context, job *domain.GenerationJob, st *status.Status, out Outcome) Outcome {
	switch st.State {
	case status.StateSucceeded:
		resultURL := strings.TrimSpace(st.ResultURL)
		if resultURL == "" {
			// Completion without a usable result location cannot satisfy
			// the COMPLETED invariant; record it as a permanent failure.
			return r.writeFailure(ctx, job, out, "provider reported completion without a result location")
		}
		empty := ""
		update := domain.JobUpdate{
			State:          domain.JobStateCompleted,
			ResultLocation: &resultURL,
			ErrorMessage:   &empty,
		}
		return r.write(ctx, job, out, update, OutcomeCompleted)

	case status.StateFailed:
		message := strings.TrimSpace(st.Message)
		if message == "" {
			message = "generation failed at provider"
		}
		return r.writeFailure(ctx, job, out, message)

	default:
		// Running confirms a PENDING job left the queue; any other
		// combination needs no write.
		if job.State == domain.JobStatePending && st.State == status.StateRunning {
			return r.write(ctx, job, out, domain.JobUpdate{State: domain.JobStateProcessing}, OutcomeStillInFlight)
		}
		out.Kind = OutcomeStillInFlight
		return out
	}
}

func (r *Reconciler) writeFailure(ctx context.Context, job *domain.GenerationJob, out Outcome, message string) Outcome {
	// Clear the result column too: it may still hold the sentinel-prefixed
	// placeholder, and FAILED rows must not carry a result location.
	empty := ""
	update := domain.JobUpdate{
		State:          domain.JobStateFailed,
		ResultLocation: &empty,
		ErrorMessage:   &message,
	}
	return r.write(ctx, job, out, update, OutcomeFailed)
}

func (r *Reconciler) write(ctx context.Context, job *domain.GenerationJob, out Outcome, update domain.JobUpdate, kind OutcomeKind) Outcome {
	updated, err := r.store.ApplyOutcome(ctx, job.ID, update)
	if err != nil {
		out.Kind = OutcomeError
		out.Err = err
		r.logger.Error().Err(err).
			Str("job_id", job.ID).
			Str("new_state", string(update.State)).
			Msg("reconcile: store write failed")
		return out
	}
	out.Kind = kind
	out.Updated = updated
	if updated {
		out.NewState = update.State
		r.logger.Info().
			Str("job_id", job.ID).
			Str("previous_state", string(out.PreviousState)).
			Str("new_state", string(out.NewState)).
			Msg("reconcile: job transitioned")
	}
	return out
}
