package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/webclip"
)

// openSession attaches a client to a host: a child "webclip host" process by
// default, an in-process one with --local.
func openSession(ctx context.Context) (*webclip.Session, error) {
	if local {
		opts := append(cfg.options(), webclip.WithNotifier(logNotifier{}), webclip.WithWatch(false))
		return webclip.Connect(ctx, cfg.uri(), opts...)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	args := []string{"host", "--vault", cfg.Vault, "--adapter", cfg.Adapter}
	if verbose {
		args = append(args, "--verbose")
	}
	return webclip.Dial(ctx, exe, args,
		webclip.WithLogger(slog.Default()),
		webclip.WithTimeout(cfg.Timeout),
	)
}

// withSession runs fn against a fresh session and closes it afterwards.
func withSession(ctx context.Context, fn func(*webclip.Session) error) error {
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Debug("session close", "error", err)
		}
	}()
	return fn(sess)
}

// logNotifier reports capture confirmations on stderr; the CLI has no toast.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, title, message string) error {
	slog.Info(title, "message", message)
	return nil
}
