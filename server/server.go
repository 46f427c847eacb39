package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/armon/go-metrics"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/tendermint/tendermint/libs/log"
	"golang.org/x/sync/errgroup"

	"github.com/GPTx-global/cidoracle/app"
	"github.com/GPTx-global/cidoracle/oracle/health"
	"github.com/GPTx-global/cidoracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

const maxBodyBytes = 1 << 20

// Config controls the HTTP listener.
type Config struct {
	Listen       string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server exposes the oracle service over HTTP.
type Server struct {
	logger  log.Logger
	app     *app.App
	cfg     Config
	hub     *EventHub
	health  *health.Checker
	metrics *metrics.InmemSink
	handler http.Handler
}

// New builds the service router. The event hub is registered as an app listener.
func New(logger log.Logger, a *app.App, cfg Config, checker *health.Checker, sink *metrics.InmemSink) *Server {
	s := &Server{
		logger:  logger.With("module", "server"),
		app:     a,
		cfg:     cfg,
		hub:     NewEventHub(logger),
		health:  checker,
		metrics: sink,
	}
	a.AddListener(s.hub.Publish)

	r := mux.NewRouter().UseEncodedPath()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/requests", s.handleSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/requests", s.handleRequests).Methods(http.MethodGet)
	v1.HandleFunc("/requests/{handle}", s.handleRequest).Methods(http.MethodGet)
	v1.HandleFunc("/completions/{content_reference}", s.handleCompletion).Methods(http.MethodGet)
	v1.HandleFunc("/fulfillments", s.handleFulfill).Methods(http.MethodPost)
	v1.HandleFunc("/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	v1.HandleFunc("/expire", s.handleExpire).Methods(http.MethodPost)
	v1.HandleFunc("/params", s.handleParams).Methods(http.MethodGet)
	v1.HandleFunc("/balance/{address}", s.handleBalance).Methods(http.MethodGet)
	v1.Handle("/events", s.hub).Methods(http.MethodGet)
	registerCommon(r, checker, sink)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Hub() *EventHub { return s.hub }

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	return serve(ctx, s.logger, s.cfg, s.handler, s.hub.Close)
}

func serve(ctx context.Context, logger log.Logger, cfg Config, handler http.Handler, onShutdown func()) error {
	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if onShutdown != nil {
			onShutdown()
		}
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

func registerCommon(r *mux.Router, checker *health.Checker, sink *metrics.InmemSink) {
	if checker != nil {
		r.Handle("/health", checker).Methods(http.MethodGet)
	}
	if sink != nil {
		r.HandleFunc("/metrics", func(w http.ResponseWriter, req *http.Request) {
			summary, err := sink.DisplayMetrics(w, req)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, summary)
		}).Methods(http.MethodGet)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	handle, err := s.app.Submit(r.Context(), req.Requester, req.ContentReference)
	if err != nil {
		s.logger.Debug("submit rejected", "content_reference", req.ContentReference, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SubmitResponse{Handle: handle})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	status := oracletypes.StatusUnspecified
	if raw := r.URL.Query().Get("status"); raw != "" {
		var err error
		if status, err = oracletypes.ParseRequestStatus(raw); err != nil {
			writeError(w, errorsmod.Wrap(sdkerrors.ErrInvalidRequest, err.Error()))
			return
		}
	}

	var resp types.RequestsResponse
	err := s.app.Query(r.Context(), func(ctx sdk.Context) error {
		resp.Requests = s.app.OracleKeeper.GetRequestsByStatus(ctx, status)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if resp.Requests == nil {
		resp.Requests = []oracletypes.PendingRequest{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["handle"]
	bz, err := hexutil.Decode(raw)
	if err != nil || len(bz) != common.HashLength {
		writeError(w, errorsmod.Wrapf(sdkerrors.ErrInvalidRequest, "invalid handle %q", raw))
		return
	}

	var req oracletypes.PendingRequest
	err = s.app.Query(r.Context(), func(ctx sdk.Context) error {
		var err error
		req, err = s.app.OracleKeeper.QueryRequest(ctx, common.BytesToHash(bz))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	ref, err := url.PathUnescape(mux.Vars(r)["content_reference"])
	if err != nil {
		writeError(w, errorsmod.Wrap(sdkerrors.ErrInvalidRequest, err.Error()))
		return
	}

	var completion oracletypes.Completion
	err = s.app.Query(r.Context(), func(ctx sdk.Context) error {
		var err error
		completion, err = s.app.OracleKeeper.QueryCompletion(ctx, ref)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

func (s *Server) handleFulfill(w http.ResponseWriter, r *http.Request) {
	var msg oracletypes.MsgFulfill
	if err := decodeBody(w, r, &msg); err != nil {
		writeError(w, err)
		return
	}
	if err := s.app.Fulfill(r.Context(), &msg); err != nil {
		s.logger.Info("fulfillment rejected", "handle", msg.Handle.Hex(), "caller", msg.Caller.Hex(), "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SubmitResponse{Handle: msg.Handle})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var msg oracletypes.MsgWithdraw
	if err := decodeBody(w, r, &msg); err != nil {
		writeError(w, err)
		return
	}
	amount, err := s.app.Withdraw(r.Context(), &msg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.WithdrawResponse{Amount: amount})
}

func (s *Server) handleExpire(w http.ResponseWriter, r *http.Request) {
	expired, err := s.app.ExpireRequests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if expired == nil {
		expired = []common.Hash{}
	}
	writeJSON(w, http.StatusOK, types.ExpireResponse{Expired: expired})
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	var resp types.ParamsResponse
	err := s.app.Query(r.Context(), func(ctx sdk.Context) error {
		resp.Params = s.app.OracleKeeper.GetParams(ctx)
		resp.Owner = s.app.OracleKeeper.GetOwnerAddress(ctx)
		resp.ModuleAddress = oracletypes.ModuleAddress
		resp.Balance = s.app.OracleKeeper.GetModuleBalance(ctx)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		writeError(w, errorsmod.Wrapf(sdkerrors.ErrInvalidAddress, "%q", raw))
		return
	}
	addr := common.HexToAddress(raw)

	resp := types.BalanceResponse{Address: addr}
	err := s.app.Query(r.Context(), func(ctx sdk.Context) error {
		resp.Balances = s.app.TokenKeeper.GetAllBalances(ctx, addr)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errorsmod.Wrap(sdkerrors.ErrJSONUnmarshal, err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, types.HTTPStatus(err), types.NewErrorResponse(err))
}
