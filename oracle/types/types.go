package types

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

// Job is a dispatched request being worked on by the node.
type Job struct {
	Handle     common.Hash
	URL        string
	Path       string
	Request    oracletypes.OracleRequest
	ReceivedAt time.Time
}

// JobResult carries the extracted result reference of a job.
type JobResult struct {
	Handle  common.Hash
	Data    string
	Request oracletypes.OracleRequest
}

// MakeJob turns a dispatched request into a job.
func MakeJob(req oracletypes.OracleRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid oracle request: %w", err)
	}

	return &Job{
		Handle:     req.Handle,
		URL:        req.FetchURL(),
		Path:       req.ResultPath(),
		Request:    req,
		ReceivedAt: time.Now(),
	}, nil
}

// ID returns the job store key.
func (j Job) ID() string {
	return j.Handle.Hex()
}
