package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/claimspilot/internal/config"
)

// RunCommand returns the CLI command for a single synchronous agent cycle.
// Useful for cron-style deployments and for inspecting a run from a terminal.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute one agent cycle and print the run summary",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the run summary as JSON",
			},
		},
		Action: runOnce,
	}
}

func runOnce(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	orchestrator, st, err := buildOrchestrator(c.Context, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := orchestrator.Run(c.Context, "manual")
	if err != nil {
		return fmt.Errorf("agent run failed: %w", err)
	}

	if err := st.InsertRunSummary(c.Context, summary); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record run summary: %s\n", err)
	}

	if c.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	fmt.Printf("Run %s complete\n", summary.RunID)
	fmt.Printf("  Claims processed:    %d\n", summary.Processed)
	fmt.Printf("  Tasks completed:     %d\n", summary.TasksCompleted)
	fmt.Printf("  Messages sent:       %d\n", summary.EmailsSent)
	fmt.Printf("  Escalations:         %d\n", summary.Escalations)
	fmt.Printf("  Documents processed: %d\n", summary.DocumentsProcessed)
	if len(summary.Errors) > 0 {
		fmt.Printf("  Errors (%d):\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	return nil
}
