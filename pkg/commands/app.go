package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/config"
	"tableflip.dev/whisper/pkg/logger"
)

// flushTimeout bounds how long a command waits for its writes on exit.
const flushTimeout = 10 * time.Second

func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	l, err := logger.Init(logger.Config{Debug: cfg.Debug, Dir: cfg.LogDir})
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, l)
}

// withApp opens the app for one command and makes sure pending writes land
// before the process exits.
func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app.App) error) error {
	cmd.SilenceUsage = true
	a, err := openApp()
	if err != nil {
		return oo.HandleError(err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	err = run(ctx, a)

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if ferr := a.Flush(flushCtx); ferr != nil {
		a.Log.Warn("pending writes not flushed", "err", ferr)
	}
	if cerr := a.Close(); cerr != nil {
		a.Log.Warn("close", "err", cerr)
	}
	return oo.HandleError(err)
}
