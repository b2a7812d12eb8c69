package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/claimspilot/internal/agent"
	"github.com/claimspilot/internal/api"
	"github.com/claimspilot/internal/classify"
	"github.com/claimspilot/internal/config"
	"github.com/claimspilot/internal/database"
	"github.com/claimspilot/internal/delivery"
	"github.com/claimspilot/internal/drafting"
	"github.com/claimspilot/internal/jobqueue"
	"github.com/claimspilot/internal/store"
)

// ServeCommand returns the CLI command for the long-running agent service:
// the HTTP trigger API plus the periodic run scheduler.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the agent service (HTTP API and periodic scheduler)",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	port := cfg.General.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	orchestrator, st, err := buildOrchestrator(c.Context, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	databaseURL, err := database.LoadDatabaseURL()
	if err != nil {
		return fmt.Errorf("failed to resolve database URL: %w", err)
	}

	interval := time.Duration(cfg.General.RunIntervalMin) * time.Minute
	queue, err := jobqueue.NewJobQueue(databaseURL, orchestrator, st, interval)
	if err != nil {
		return fmt.Errorf("failed to create job queue: %w", err)
	}

	if err := queue.Start(c.Context); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		queue.Stop(stopCtx)
	}()

	fmt.Printf("Starting claimspilot agent on port %d (run interval: %s)\n", port, interval)

	server := api.NewServer(port, cfg.General.AgentSecret, orchestrator, st)
	return server.Start()
}

// buildOrchestrator wires the agent against its real collaborators. All three
// outbound services must be configured; a partially configured agent would
// silently skip whole pipeline stages, which is worse than refusing to start.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (api.Runner, *store.Store, error) {
	db, err := database.NewDB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	st := store.New(db)

	drafter, err := drafting.NewDrafter(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create drafter: %w", err)
	}

	deliverer, err := delivery.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create delivery client: %w", err)
	}

	classifier, err := classify.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create classifier client: %w", err)
	}

	orchestrator := agent.NewOrchestrator(st, drafter, deliverer, classifier, agent.SystemClock{})
	return orchestrator, st, nil
}
