package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/oracle/retry"
	"github.com/GPTx-global/cidoracle/oracle/scheduler"
	"github.com/GPTx-global/cidoracle/oracle/submitter"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

// Daemon is the oracle node: it runs dispatched jobs and submits their results.
type Daemon struct {
	logger    log.Logger
	scheduler *scheduler.Scheduler
	submitter *submitter.Submitter

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a new oracle daemon from its components
func New(logger log.Logger, sched *scheduler.Scheduler, sub *submitter.Submitter) *Daemon {
	return &Daemon{
		logger:    logger.With("module", "daemon"),
		scheduler: sched,
		submitter: sub,
	}
}

// Config sizes the node built by NewFromConfig.
type Config struct {
	Scheduler    scheduler.Config
	FetchTimeout time.Duration
	FetchRetry   *retry.Config
	SubmitRetry  *retry.Config
	// Verifier checks jobs received from a remote service. Nil when the
	// ledger dispatches in process.
	Verifier scheduler.Verifier
}

func DefaultConfig() Config {
	return Config{
		Scheduler:    scheduler.DefaultConfig(),
		FetchTimeout: 30 * time.Second,
		FetchRetry:   retry.DefaultConfig(),
		SubmitRetry:  retry.SubmitConfig(),
	}
}

// NewFromConfig assembles an executor, scheduler and submitter signing with
// signer and delivering to fulfiller.
func NewFromConfig(logger log.Logger, signer oracletypes.Signer, fulfiller submitter.Fulfiller, cfg Config) *Daemon {
	executor := scheduler.NewExecutor(scheduler.NewHTTPClient(cfg.FetchTimeout), cfg.FetchRetry).WithVerifier(cfg.Verifier)
	sched := scheduler.New(logger, executor, cfg.Scheduler)
	sub := submitter.New(logger, signer, fulfiller, cfg.SubmitRetry)
	return New(logger, sched, sub)
}

// Dispatch implements the ledger's oracle dispatcher.
func (d *Daemon) Dispatch(req oracletypes.OracleRequest) error {
	return d.scheduler.Dispatch(req)
}

// Scheduler returns the job scheduler of the node.
func (d *Daemon) Scheduler() *scheduler.Scheduler {
	return d.scheduler
}

// Start runs the scheduler and the submission loop until Stop or ctx is done.
func (d *Daemon) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.scheduler.Start()

	d.wg.Add(1)
	go d.serveOracle(ctx)

	d.logger.Info("oracle daemon started", "oracle", d.submitter.Address().Hex())
}

// Stop gracefully shuts down all daemon components
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.scheduler.Stop()
	d.wg.Wait()
	d.logger.Info("oracle daemon stopped")
}

func (d *Daemon) serveOracle(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case jr := <-d.scheduler.Result():
			if err := d.submitter.Submit(ctx, jr); err != nil {
				d.logger.Error("dropping result", "handle", jr.Handle.Hex(), "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
