package cmd

import (
	"fmt"

	"github.com/scottzero/facts-that-arent-fun-at-all/internal/logging"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/tui"
	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagOverrides())
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	logFile, err := logging.OpenFile(cfg.LogPath())
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	}, logFile)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	display := tui.NewDisplay()
	p, err := buildPipeline(cfg, pipelineOpts{
		display:   display,
		logger:    logger,
		throttle:  true,
		cacheSize: cfg.CacheSize,
	})
	if err != nil {
		return err
	}
	defer p.session.Close()

	err = tui.Run(cmd.Context(), tui.RunOpts{
		Cfg:     cfg,
		Session: p.session,
		Display: display,
		Limiter: p.limiter,
		Version: version,
	})

	st := p.session.Stats()
	logger.Info("session ended",
		"session", p.session.ID(),
		"from_cache", st.FromCache,
		"from_live", st.FromLive,
		"from_fallback", st.FromFallback,
		"rate_limited", st.RateLimited,
	)
	return err
}
