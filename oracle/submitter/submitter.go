package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/armon/go-metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/oracle/retry"
	"github.com/GPTx-global/cidoracle/oracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

// Fulfiller delivers a signed fulfillment to the ledger.
type Fulfiller interface {
	Fulfill(ctx context.Context, msg *oracletypes.MsgFulfill) error
}

// rejections that no retry can fix
var permanentErrors = []error{
	oracletypes.ErrUnauthorizedCaller,
	oracletypes.ErrUnknownRequest,
	oracletypes.ErrInvalidCommitment,
}

// Submitter signs job results with the oracle key and delivers them.
type Submitter struct {
	logger    log.Logger
	signer    oracletypes.Signer
	fulfiller Fulfiller
	retry     *retry.Config
	breaker   *retry.CircuitBreaker
}

func New(logger log.Logger, signer oracletypes.Signer, fulfiller Fulfiller, retryConfig *retry.Config) *Submitter {
	if retryConfig == nil {
		retryConfig = retry.SubmitConfig()
	}
	return &Submitter{
		logger:    logger.With("module", "submitter"),
		signer:    signer,
		fulfiller: fulfiller,
		retry:     retryConfig,
		breaker:   retry.NewCircuitBreaker(5, 30*time.Second),
	}
}

// Address returns the oracle address fulfillments are signed with.
func (s *Submitter) Address() common.Address {
	return s.signer.Address()
}

// BuildFulfill creates the signed fulfillment of jr.
func (s *Submitter) BuildFulfill(jr types.JobResult) (*oracletypes.MsgFulfill, error) {
	msg := oracletypes.NewMsgFulfill(s.signer.Address(), jr.Request, jr.Data)
	if err := msg.SignWith(s.signer); err != nil {
		return nil, fmt.Errorf("failed to sign fulfillment: %w", err)
	}
	return msg, nil
}

// Submit delivers the result of a job, retrying transient failures.
func (s *Submitter) Submit(ctx context.Context, jr types.JobResult) error {
	msg, err := s.BuildFulfill(jr)
	if err != nil {
		return err
	}

	err = retry.Do(ctx, s.retry, func() error {
		return s.breaker.Execute(func() error {
			if err := s.fulfiller.Fulfill(ctx, msg); err != nil {
				if isPermanent(err) {
					return retry.Permanent(err)
				}
				return err
			}
			return nil
		})
	}, retry.Always)
	if err != nil {
		metrics.IncrCounter([]string{"node", "fulfill", "failed"}, 1)
		s.logger.Error("failed to submit fulfillment", "handle", jr.Handle.Hex(), "error", err)
		return err
	}

	metrics.IncrCounter([]string{"node", "fulfill"}, 1)
	s.logger.Info("fulfillment submitted", "handle", jr.Handle.Hex(), "result_reference", jr.Data)
	return nil
}

func isPermanent(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
