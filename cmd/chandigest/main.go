package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chandigest/internal/config"
	"chandigest/internal/deliver"
	"chandigest/internal/discord"
	"chandigest/internal/domain"
	"chandigest/internal/fetch"
	"chandigest/internal/metrics"
	"chandigest/internal/pipeline"
	"chandigest/internal/ratelimit"
	"chandigest/internal/summarize"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:          "chandigest",
		Short:        "chandigest: channel digest bot",
		Long:         "chandigest pulls recent messages from a set of chat channels, condenses them into a digest, and republishes it to an output channel.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.chandigest/config.yaml)")

	root.AddCommand(runCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(profilesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func runCmd() *cobra.Command {
	var (
		profile string
		hours   int
		limit   int
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, summarize, and deliver one digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}

			setup, err := cfg.ResolveRun(profile, hours, limit, debug, config.LoadSecrets())
			if err != nil {
				return err
			}
			if setup.UsedDefaultPrompt {
				logger.Warn("prompt file unavailable, using built-in prompt", "profile", setup.Inputs.Profile)
			}
			if !setup.Secondary.Set() {
				logger.Warn("no fallback credential configured; delivery will not retry failed chunks")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := executeRun(ctx, setup)
			if report != nil {
				printReport(report)
			}
			if err != nil {
				return err
			}
			switch report.Status {
			case domain.RunPartial:
				return fmt.Errorf("run partially failed: %d failed channels, %d failed chunks",
					len(report.FailedChannels()), len(report.FailedChunks()))
			case domain.RunFailed:
				return fmt.Errorf("run failed: no chunks were delivered")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "named profile to run (default: config defaultProfile)")
	cmd.Flags().IntVar(&hours, "hours", 0, "hours of history to fetch (default: config value)")
	cmd.Flags().IntVar(&limit, "limit", 0, "advisory per-channel message limit (default: config value)")
	cmd.Flags().BoolVar(&debug, "debug", false, "print the raw transcript instead of summarizing and delivering")

	return cmd
}

// executeRun builds the pipeline from the resolved setup and runs it once.
func executeRun(ctx context.Context, setup *config.RunSetup) (*domain.Report, error) {
	fetchClient, err := discord.NewClient(discord.ClientConfig{
		Credential: setup.Fetch,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	counters := metrics.NewRunCounters()

	fetcher := fetch.New(fetch.Config{
		Source:   fetchClient,
		Pace:     ratelimit.New(2, 120), // ~one page every 500ms per the source's comfort zone
		Counters: counters,
		Logger:   logger,
	})

	var sender *deliver.Sender
	if !setup.Inputs.Debug {
		primary, err := discord.NewClient(discord.ClientConfig{
			Credential: setup.Primary,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		var secondary domain.Poster
		if setup.Secondary.Set() {
			sc, err := discord.NewClient(discord.ClientConfig{
				Credential: setup.Secondary,
				Logger:     logger,
			})
			if err != nil {
				return nil, err
			}
			secondary = sc
		}
		sender = deliver.NewSender(deliver.SenderConfig{
			Primary:   primary,
			Secondary: secondary,
			Pace:      ratelimit.New(1, 60), // one post per second
			Counters:  counters,
			Logger:    logger,
		})
	}

	pipe := pipeline.New(pipeline.Config{
		Source:  fetchClient,
		Fetcher: fetcher,
		Summarizer: summarize.NewOpenRouter(summarize.OpenRouterConfig{
			APIKey: setup.APIKey,
			Model:  setup.Model,
			Logger: logger,
		}),
		Sender:    sender,
		Counters:  counters,
		MaxMsgLen: discord.MaxMessageLen,
		Out:       os.Stdout,
		Logger:    logger,
	})

	return pipe.Run(ctx, setup.Inputs)
}

// printReport surfaces the run outcome to the operator.
func printReport(r *domain.Report) {
	fmt.Printf("\nRun %s (%s): %s\n", r.RunID, r.Profile, r.Status)
	fmt.Printf("  channels: %d fetched, %d failed; messages: %d\n",
		len(r.Channels)-len(r.FailedChannels()), len(r.FailedChannels()), r.MessageCount)
	if len(r.Chunks) > 0 {
		fmt.Printf("  chunks: %d delivered, %d failed\n", r.DeliveredChunks(), len(r.FailedChunks()))
	}
	for _, c := range r.FailedChannels() {
		fmt.Printf("  failed channel %s (%s): %v\n", c.ChannelID, c.Name, c.Err)
	}
	for _, c := range r.FailedChunks() {
		fmt.Printf("  failed chunk %d: %v\n", c.Index, c.Err)
	}
}
