package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/campaign-publisher/configs"
	"github.com/maheshrc27/campaign-publisher/internal/app"
	"github.com/maheshrc27/campaign-publisher/internal/queue"
	"github.com/maheshrc27/campaign-publisher/pkg/utils"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "publishctl",
		Short:        "Operate the campaign publisher",
		SilenceUsage: true,
	}

	root.AddCommand(
		newTickCmd(),
		newEnqueueTickCmd(),
		newSealCmd(),
		newTokenCmd(),
		newKeygenCmd(),
		newImportCmd(),
	)
	return root
}

// newTickCmd runs one publish tick in this process and prints its report.
// It is meant for an external cron entry.
func newTickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Publish every due post once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			slog.SetDefault(app.NewLogger(cfg))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, ran, err := a.Job.RunOnce(ctx)
			if err != nil {
				return err
			}
			if !ran {
				fmt.Fprintln(cmd.OutOrStdout(), "another tick is running, nothing done")
				return nil
			}
			return printJSON(cmd, report)
		},
	}
}

func newEnqueueTickCmd() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "enqueue-tick",
		Short: "Ask a server worker to run a publish tick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if cfg.RedisURI == "" {
				return errors.New("REDIS_URI is not set")
			}

			client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURI})
			defer client.Close()

			info, err := queue.EnqueueTick(client, queue.TickPayload{RequestedBy: "publishctl"}, delay)
			if err != nil {
				return fmt.Errorf("failed to enqueue tick: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.ID)
			return nil
		},
	}
	cmd.Flags().DurationVar(&delay, "in", 0, "delay before the tick runs")
	return cmd
}

// newSealCmd encrypts a credential with SECRET_KEY so it can be stored in
// the environment with the enc: prefix.
func newSealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seal <value>",
		Short: "Seal a credential with SECRET_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if cfg.SecretKey == "" {
				return errors.New("SECRET_KEY is not set")
			}
			sealed, err := utils.Seal(args[0], []byte(cfg.SecretKey))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <operator>",
		Short: "Issue an API token for an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if cfg.SecretKey == "" {
				return errors.New("SECRET_KEY is not set")
			}
			token, err := utils.GenerateToken(cfg.SecretKey, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random value for SECRET_KEY or API_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := utils.GenerateSecretKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

