package monitor

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tendermint/tendermint/libs/log"
)

// Expirer retires requests that are past their expiration.
type Expirer interface {
	ExpireRequests(ctx context.Context) ([]common.Hash, error)
}

// Monitor periodically sweeps stuck requests.
type Monitor struct {
	logger   log.Logger
	expirer  Expirer
	interval time.Duration
}

func New(logger log.Logger, expirer Expirer, interval time.Duration) *Monitor {
	return &Monitor{
		logger:   logger.With("module", "monitor"),
		expirer:  expirer,
		interval: interval,
	}
}

// Run sweeps every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Debug("monitor starting", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-ctx.Done():
			m.logger.Debug("monitor stopped")
			return nil
		}
	}
}

// Sweep runs a single expiry pass and returns the expired handles.
func (m *Monitor) Sweep(ctx context.Context) []common.Hash {
	expired, err := m.expirer.ExpireRequests(ctx)
	if err != nil {
		m.logger.Error("failed to expire requests", "error", err)
		return nil
	}
	for _, handle := range expired {
		m.logger.Info("request expired", "handle", handle.Hex())
	}
	return expired
}
