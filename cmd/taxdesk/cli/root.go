// Package cli holds the operational commands of the taxdesk binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taxdesk/taxdesk/internal/app"
	"github.com/taxdesk/taxdesk/internal/platform/db"
	"github.com/taxdesk/taxdesk/internal/setup"
)

// NewRootCommand builds the taxdesk command tree. Running the root command
// without a subcommand starts the HTTP server through serve.
func NewRootCommand(serve func(ctx context.Context, cfg *app.Config) error) *cobra.Command {
	root := &cobra.Command{
		Use:           "taxdesk",
		Short:         "Tax period and document posting service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	root.AddCommand(newObligationsCommand(), newJobsCommand())
	return root
}

func newObligationsCommand() *cobra.Command {
	var (
		at     string
		within time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "obligations BUSINESS_ID",
		Short: "Print the obligation timeline of a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var when time.Time
			if at != "" {
				parsed, err := time.ParseInLocation(time.DateOnly, at, time.Local)
				if err != nil {
					return fmt.Errorf("--at must be YYYY-MM-DD: %w", err)
				}
				when = parsed
			}
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), cfg.PGDSN, db.Options{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			code := RunObligations(cmd.Context(), setup.NewRepository(pool), ObligationsOptions{
				BusinessID: args[0],
				At:         when,
				Within:     within,
				JSONOutput: asJSON,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			if code != 0 {
				return fmt.Errorf("obligations: exit code %d", code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Reference date (YYYY-MM-DD), defaults to today")
	cmd.Flags().DurationVar(&within, "within", 0, "Only list obligations due inside this window, e.g. 720h")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newJobsCommand() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background jobs",
	}

	var opts TriggerOptions
	trigger := &cobra.Command{
		Use:   "trigger JOB",
		Short: "Enqueue autopost:sweep or autopost:batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			if _, err := BuildTask(opts); err != nil {
				return err
			}
			return withJobsCLI(func(c *JobsCLI) error {
				info, err := c.Trigger(cmd.Context(), opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return nil
			})
		},
	}
	trigger.Flags().StringVar(&opts.BusinessID, "business", "", "Business id (autopost:batch)")
	trigger.Flags().StringVar(&opts.Period, "period", "previous", "Month as YYYY-MM or 'previous'")
	trigger.Flags().IntVar(&opts.Cap, "cap", 0, "Maximum documents per batch, 0 uses the configured cap")

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Show queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobsCLI(func(c *JobsCLI) error {
				stats, err := c.InspectQueue(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			})
		},
	}

	jobsCmd.AddCommand(trigger, inspect)
	return jobsCmd
}

func withJobsCLI(fn func(*JobsCLI) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	c, err := NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
