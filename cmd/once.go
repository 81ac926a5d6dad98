package cmd

import (
	"fmt"
	"os"

	"github.com/scottzero/facts-that-arent-fun-at-all/internal/logging"
	"github.com/spf13/cobra"
)

var flagOnceCount int

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Print facts without the TUI",
	Long: `Print facts to stdout, one per line, using the same cache, retry and fallback
chain as the interactive app. Taps are not rate limited.`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func init() {
	onceCmd.Flags().IntVarP(&flagOnceCount, "count", "n", 1, "number of facts to print")
}

// onceCacheSize prefetches no more than the facts still to print.
func onceCacheSize(cacheSize, n int) int {
	return max(0, min(cacheSize, n-1))
}

func runOnce(cmd *cobra.Command, args []string) error {
	if flagOnceCount < 1 {
		return fmt.Errorf("--count must be >= 1, got %d", flagOnceCount)
	}

	cfg, err := loadConfig(flagOverrides())
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	}, os.Stderr)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	p, err := buildPipeline(cfg, pipelineOpts{
		logger:    logger,
		cacheSize: onceCacheSize(cfg.CacheSize, flagOnceCount),
	})
	if err != nil {
		return err
	}
	defer p.session.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, p.session.Start(ctx))
	for i := 1; i < flagOnceCount; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintln(out, p.session.GetNextFact(ctx))
	}
	return nil
}
