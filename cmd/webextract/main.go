package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantmind-br/webextract-go/internal/app"
	"github.com/quantmind-br/webextract-go/internal/config"
	"github.com/quantmind-br/webextract-go/internal/utils"
	"github.com/quantmind-br/webextract-go/pkg/version"
)

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webextract <url>",
	Short: "Extract a readable document from a public URL",
	Long: `Webextract turns a public URL into a normalized reader document:
canonical URL, title, typed content blocks, and a plain-text projection,
with a quality trace of every extraction strategy that ran.

The result is printed to stdout as JSON.`,
	Version: version.Short(),
	Args:    cobra.ExactArgs(1),
	RunE:    run,
}

func init() {
	rootCmd.Flags().String("task-id", "", "Task identifier (default: random UUID)")
	rootCmd.Flags().String("project-id", "", "Project identifier attached to the result")
	rootCmd.Flags().Duration("timeout", 30*time.Second, "Per-fetch timeout")
	rootCmd.Flags().Int("max-chars", 120000, "Raw content budget in characters")
	rootCmd.Flags().Bool("no-progress", false, "Disable the progress spinner")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(versionCmd)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, v, err := config.LoadWithViper()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	bindFlags(cmd, v, cfg)

	logLevel := cfg.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	logger := utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  cfg.Logging.Format,
		Verbose: verbose,
	})

	orchestrator, err := app.NewOrchestrator(app.OrchestratorOptions{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("shutting down")
		cancel()
	}()

	taskID, _ := cmd.Flags().GetString("task-id")
	if taskID == "" {
		taskID = uuid.NewString()
	}
	projectID, _ := cmd.Flags().GetString("project-id")

	status := statusCallback(cmd)
	result, err := orchestrator.Run(ctx, app.RunOptions{
		URL:       args[0],
		TaskID:    taskID,
		ProjectID: projectID,
		Status:    status,
	})
	if status != nil {
		status("")
	}
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

// bindFlags merges explicitly set CLI flags over the loaded config.
// Viper only prefers a bound flag when it was actually changed, so
// config-file and env values survive untouched defaults.
func bindFlags(cmd *cobra.Command, v *viper.Viper, cfg *config.Config) {
	_ = v.BindPFlag("extraction.timeout", cmd.Flags().Lookup("timeout"))
	_ = v.BindPFlag("extraction.max_chars", cmd.Flags().Lookup("max-chars"))
	cfg.Extraction.Timeout = v.GetDuration("extraction.timeout")
	cfg.Extraction.MaxChars = v.GetInt("extraction.max_chars")
}

// statusCallback renders strategy progress as a spinner on stderr. An
// empty status finishes the spinner.
func statusCallback(cmd *cobra.Command) func(string) {
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); noProgress {
		return nil
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("Starting extraction"),
		progressbar.OptionClearOnFinish(),
	)
	return func(status string) {
		if status == "" {
			_ = bar.Finish()
			return
		}
		bar.Describe(status)
		_ = bar.Add(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
