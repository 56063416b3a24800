package bulkupdate

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/xelth-com/eckmarket/internal/config"
	"github.com/xelth-com/eckmarket/internal/marketplace"
)

// poller waits for the platform to process a submission and fetches its outcome
type poller interface {
	poll(ctx context.Context, gw BatchGateway, batchID string, submitted []Change) (*marketplace.BatchRequestResult, error)
}

// fixedPoller waits the settle delay once and polls once
type fixedPoller struct {
	settle time.Duration
	sleep  sleepFunc
}

func (p fixedPoller) poll(ctx context.Context, gw BatchGateway, batchID string, _ []Change) (*marketplace.BatchRequestResult, error) {
	if err := p.sleep(ctx, p.settle); err != nil {
		return nil, err
	}
	return gw.GetBatchRequest(ctx, batchID)
}

// backoffPoller waits the settle delay, then re-polls while the batch is unfinished or
// items are still unreported, spacing polls with an exponential backoff. Every wait goes
// through sleep. Poll errors are returned unwrapped and never retried.
type backoffPoller struct {
	settle   time.Duration
	initial  time.Duration
	max      time.Duration
	maxTries uint
	sleep    sleepFunc
}

func (p backoffPoller) poll(ctx context.Context, gw BatchGateway, batchID string, submitted []Change) (*marketplace.BatchRequestResult, error) {
	if err := p.sleep(ctx, p.settle); err != nil {
		return nil, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initial
	eb.MaxInterval = p.max
	eb.Reset()

	for try := uint(1); ; try++ {
		res, err := gw.GetBatchRequest(ctx, batchID)
		if err != nil {
			return nil, err
		}
		// out of tries: reconcile whatever the platform reported last
		if settled(submitted, res) || try >= p.maxTries {
			return res, nil
		}
		wait := eb.NextBackOff()
		if wait == backoff.Stop {
			return res, nil
		}
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func newPoller(cfg *config.EngineConfig, sleep sleepFunc) poller {
	if cfg.PollMode == config.PollModeBackoff {
		tries := cfg.BackoffMaxTries
		if tries <= 0 {
			tries = 1
		}
		return backoffPoller{
			settle:   cfg.SettleDelay(),
			initial:  time.Duration(cfg.BackoffInitialMs) * time.Millisecond,
			max:      time.Duration(cfg.BackoffMaxMs) * time.Millisecond,
			maxTries: uint(tries),
			sleep:    sleep,
		}
	}
	return fixedPoller{settle: cfg.SettleDelay(), sleep: sleep}
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
