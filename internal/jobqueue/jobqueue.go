/*
Package jobqueue provides the River-based internal scheduler for agent runs.

A periodic job enqueues one agent run per configured interval, worked by a
single worker so two scheduled runs never overlap in-process. Unique-by-period
insert options collapse duplicate inserts of the same job kind.
*/
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/claimspilot/internal/api"
	"github.com/claimspilot/pkg/models"
)

// AgentRunJobArgs represents the arguments for an agent run job
type AgentRunJobArgs struct {
	TriggerSource string `json:"trigger_source"`
}

// Kind returns the job kind for River
func (AgentRunJobArgs) Kind() string {
	return "agent_run"
}

// InsertOpts serializes agent runs: one pending run job per period
func (AgentRunJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 1 * time.Minute,
		},
	}
}

// AgentRunWorker executes agent run jobs
type AgentRunWorker struct {
	river.WorkerDefaults[AgentRunJobArgs]
	runner  api.Runner
	history api.RunHistory
	config  *QueueConfig
}

// Work performs one agent cycle
func (w *AgentRunWorker) Work(ctx context.Context, job *river.Job[AgentRunJobArgs]) error {
	source := job.Args.TriggerSource
	if source == "" {
		source = "scheduler"
	}

	log.Info().Str("trigger_source", source).Msg("starting scheduled agent run")

	runCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	summary, err := w.runner.Run(runCtx, source)
	if err != nil {
		return fmt.Errorf("agent run failed: %w", err)
	}

	if w.history != nil {
		if err := w.history.InsertRunSummary(ctx, summary); err != nil {
			log.Error().Err(err).Str("run_id", summary.RunID).Msg("failed to record run summary")
		}
	}

	logRunSummary(summary)
	return nil
}

func logRunSummary(summary *models.RunSummary) {
	log.Info().
		Str("run_id", summary.RunID).
		Int("processed", summary.Processed).
		Int("tasks_completed", summary.TasksCompleted).
		Int("emails_sent", summary.EmailsSent).
		Int("escalations", summary.Escalations).
		Int("documents_processed", summary.DocumentsProcessed).
		Int("errors", len(summary.Errors)).
		Msg("agent run complete")
}

// JobQueue manages the River job queue
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue creates a new job queue instance around its own pgx pool
func NewJobQueue(databaseURL string, runner api.Runner, history api.RunHistory, runInterval time.Duration) (*JobQueue, error) {
	config := GetQueueConfig()

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &AgentRunWorker{runner: runner, history: history, config: config})

	periodicJobs := []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(runInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return AgentRunJobArgs{TriggerSource: "scheduler"}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		),
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       config.RiverQueueConfig(),
		Workers:      workers,
		PeriodicJobs: periodicJobs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		pool:   pool,
		config: config,
	}, nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers and releases the pool
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}
