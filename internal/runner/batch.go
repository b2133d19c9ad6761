package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunBatch executes every target concurrently and waits for all of them.
// Samples are returned in target order. The first failure cancels the
// remaining members and is returned as is.
func RunBatch(ctx context.Context, exec *Executor, targets []string) ([]RequestSample, error) {
	samples := make([]RequestSample, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			sample, err := exec.Execute(gctx, target)
			if err != nil {
				return err
			}
			samples[i] = sample
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

// replicate builds the C-length target list of one batch.
func replicate(target string, n int) []string {
	targets := make([]string, n)
	for i := range targets {
		targets[i] = target
	}
	return targets
}
