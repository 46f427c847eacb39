package server

import (
	"context"
	"errors"
	"net/http"

	errorsmod "cosmossdk.io/errors"
	"github.com/armon/go-metrics"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/gorilla/mux"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/oracle/health"
	"github.com/GPTx-global/cidoracle/oracle/scheduler"
	"github.com/GPTx-global/cidoracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

// NodeServer accepts jobs dispatched by a remote oracle service.
type NodeServer struct {
	logger     log.Logger
	cfg        Config
	dispatcher oracletypes.OracleDispatcher
	handler    http.Handler
}

func NewNodeServer(logger log.Logger, cfg Config, dispatcher oracletypes.OracleDispatcher, checker *health.Checker, sink *metrics.InmemSink) *NodeServer {
	s := &NodeServer{
		logger:     logger.With("module", "node-server"),
		cfg:        cfg,
		dispatcher: dispatcher,
	}

	r := mux.NewRouter()
	r.HandleFunc("/v1/jobs", s.handleJob).Methods(http.MethodPost)
	registerCommon(r, checker, sink)
	s.handler = r
	return s
}

func (s *NodeServer) Handler() http.Handler { return s.handler }

func (s *NodeServer) Start(ctx context.Context) error {
	return serve(ctx, s.logger, s.cfg, s.handler, nil)
}

func (s *NodeServer) handleJob(w http.ResponseWriter, r *http.Request) {
	var req oracletypes.OracleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, errorsmod.Wrap(sdkerrors.ErrInvalidRequest, err.Error()))
		return
	}

	if err := s.dispatcher.Dispatch(req); err != nil {
		s.logger.Error("failed to accept job", "handle", req.Handle.Hex(), "err", err)
		status := http.StatusBadRequest
		if errors.Is(err, scheduler.ErrQueueFull) || errors.Is(err, scheduler.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, types.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, types.SubmitResponse{Handle: req.Handle})
}
