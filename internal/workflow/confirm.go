package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenk/backoff"

	"github.com/git-pkgs/pup/fetch"
	"github.com/git-pkgs/pup/internal/config"
)

// confirmInterval is the first delay between publication checks.
var confirmInterval = 2 * time.Second

// confirm waits for the uploaded release to appear on the index, then
// downloads it and compares digests with the local wheel.
func (r *run) confirm() error {
	if r.Resolver == nil || r.Downloader == nil {
		r.Logger.Warn("no resolver configured, skipping publication check")
		return nil
	}
	wheel, err := r.wheel()
	if err != nil {
		return err
	}
	id := r.report.Identity

	// a zero MaxElapsedTime would poll forever
	timeout := r.Config.ConfirmTimeout
	if timeout <= 0 {
		timeout = config.DefaultConfirmTimeout
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = confirmInterval
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = timeout
	b.Reset()

	var result *fetch.Confirmation
	attempt := 0
	op := func() error {
		attempt++
		c, err := fetch.Confirm(r.ctx, r.Resolver, r.Downloader, id.Target.IndexName(), id.Name, id.Version, wheel)
		if errors.Is(err, fetch.ErrNotFound) {
			r.Logger.Debug("release not visible yet", "attempt", attempt)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		result = c
		return nil
	}

	sp := startProgress(r.Out, r.Spinner, "waiting for "+id.Name+" "+id.Version)
	err = backoff.Retry(op, backoff.WithContext(b, r.ctx))
	sp.stop()
	if err != nil {
		return fmt.Errorf("confirming %s %s: %w", id.Name, id.Version, err)
	}

	r.report.Confirmation = result
	if !result.Matches() {
		return fmt.Errorf("%w: local %s, index %s, downloaded %s", ErrDigestMismatch,
			result.LocalSHA256, result.Artifact.SHA256, result.RemoteSHA256)
	}
	okColor.Fprintf(r.Out, "Confirmed %s (sha256 %s)\n", result.Artifact.Filename, result.LocalSHA256)
	return nil
}
