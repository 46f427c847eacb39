package server

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/armon/go-metrics"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"

	"github.com/GPTx-global/cidoracle/app"
	"github.com/GPTx-global/cidoracle/oracle/client"
	"github.com/GPTx-global/cidoracle/oracle/health"
	"github.com/GPTx-global/cidoracle/oracle/scheduler"
	"github.com/GPTx-global/cidoracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

type ServerTestSuite struct {
	suite.Suite

	app     *app.App
	server  *Server
	http    *httptest.Server
	core    *client.CoreClient
	checker *health.Checker
	ctx     context.Context
	cancel  context.CancelFunc

	owner  *ecdsa.PrivateKey
	oracle *ecdsa.PrivateKey

	mu       sync.Mutex
	requests []oracletypes.OracleRequest
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	var err error
	s.app, err = app.New(log.NewNopLogger(), tmdb.NewMemDB())
	s.Require().NoError(err)

	s.owner, err = crypto.GenerateKey()
	s.Require().NoError(err)
	s.oracle, err = crypto.GenerateKey()
	s.Require().NoError(err)

	s.requests = nil
	s.app.SetDispatcher(oracletypes.DispatcherFunc(func(req oracletypes.OracleRequest) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests = append(s.requests, req)
		return nil
	}))

	gs := app.DefaultGenesis(
		crypto.PubkeyToAddress(s.owner.PublicKey),
		crypto.PubkeyToAddress(s.oracle.PublicKey),
		types.NewFeeCoinInt64(1000000),
	)
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
	s.Require().NoError(s.app.InitGenesis(s.ctx, gs))

	s.checker = health.NewChecker(log.NewNopLogger(), time.Minute)
	sink := metrics.NewInmemSink(time.Minute, time.Hour)
	metricsCfg := metrics.DefaultConfig("cidoracle-test")
	metricsCfg.EnableRuntimeMetrics = false
	_, err = metrics.NewGlobal(metricsCfg, sink)
	s.Require().NoError(err)

	s.server = New(log.NewNopLogger(), s.app, Config{CORSOrigins: []string{"https://example.com"}}, s.checker, sink)
	s.http = httptest.NewServer(s.server.Handler())
	s.core = client.NewCoreClient(s.http.URL, s.http.Client())
}

func (s *ServerTestSuite) TearDownTest() {
	s.cancel()
	s.server.Hub().Close()
	s.http.Close()
	s.Require().NoError(s.app.Close())
}

func (s *ServerTestSuite) lastRequest() oracletypes.OracleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().NotEmpty(s.requests)
	return s.requests[len(s.requests)-1]
}

func (s *ServerTestSuite) fulfill(key *ecdsa.PrivateKey, req oracletypes.OracleRequest, result string) error {
	msg := oracletypes.NewMsgFulfill(crypto.PubkeyToAddress(key.PublicKey), req, result)
	s.Require().NoError(msg.Sign(key))
	return s.core.Fulfill(s.ctx, msg)
}

func (s *ServerTestSuite) TestSubmitFulfillQuery() {
	requester := common.HexToAddress("0xbeef")
	handle, err := s.core.Submit(s.ctx, requester, "Qm123")
	s.Require().NoError(err)

	req, err := s.core.Request(s.ctx, handle)
	s.Require().NoError(err)
	s.Equal("Qm123", req.ContentReference)
	s.Equal(oracletypes.StatusDispatched, req.Status)

	pending, err := s.core.Requests(s.ctx, oracletypes.StatusDispatched)
	s.Require().NoError(err)
	s.Len(pending, 1)

	_, err = s.core.Completion(s.ctx, "Qm123")
	s.Require().ErrorIs(err, oracletypes.ErrNotFound)

	s.Require().NoError(s.fulfill(s.oracle, s.lastRequest(), "Qm456"))

	completion, err := s.core.Completion(s.ctx, "Qm123")
	s.Require().NoError(err)
	s.Equal("Qm456", completion.ResultReference)

	all, err := s.core.Requests(s.ctx, oracletypes.StatusUnspecified)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(oracletypes.StatusFulfilled, all[0].Status)

	err = s.fulfill(s.oracle, s.lastRequest(), "Qm789")
	s.Require().ErrorIs(err, oracletypes.ErrUnknownRequest)
}

func (s *ServerTestSuite) TestContentReferenceWithSlash() {
	_, err := s.core.Submit(s.ctx, common.HexToAddress("0x1"), "Qm1/sub dir")
	s.Require().NoError(err)
	s.Require().NoError(s.fulfill(s.oracle, s.lastRequest(), "Qm2"))

	completion, err := s.core.Completion(s.ctx, "Qm1/sub dir")
	s.Require().NoError(err)
	s.Equal("Qm2", completion.ResultReference)
}

func (s *ServerTestSuite) TestErrorStatus() {
	_, err := s.core.Submit(s.ctx, common.HexToAddress("0x1"), "")
	s.Require().ErrorIs(err, oracletypes.ErrInvalidContentReference)

	_, err = s.core.Submit(s.ctx, common.HexToAddress("0x1"), "Qm123")
	s.Require().NoError(err)
	err = s.fulfill(s.owner, s.lastRequest(), "Qm456")
	s.Require().ErrorIs(err, oracletypes.ErrUnauthorizedCaller)

	testCases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodPost, "/v1/fulfillments", `{"caller":"0x01",`, http.StatusBadRequest},
		{http.MethodPost, "/v1/requests", `{"requester":"0x01","unknown":1}`, http.StatusBadRequest},
		{http.MethodPost, "/v1/requests", `{"requester":"0x01","content_reference":""}`, http.StatusBadRequest},
		{http.MethodGet, "/v1/requests/0x1234", "", http.StatusBadRequest},
		{http.MethodGet, "/v1/requests/" + common.HexToHash("0x99").Hex(), "", http.StatusNotFound},
		{http.MethodGet, "/v1/requests?status=lost", "", http.StatusBadRequest},
		{http.MethodGet, "/v1/completions/QmUnknown", "", http.StatusNotFound},
		{http.MethodGet, "/v1/balance/nothex", "", http.StatusBadRequest},
		{http.MethodPost, "/v1/fulfillments", `{"caller":"0x0000000000000000000000000000000000000001","handle":"0x0000000000000000000000000000000000000000000000000000000000000001","payment":"1","signature":"0x00"}`, http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		req, err := http.NewRequest(tc.method, s.http.URL+tc.path, strings.NewReader(tc.body))
		s.Require().NoError(err)
		resp, err := s.http.Client().Do(req)
		s.Require().NoError(err)
		resp.Body.Close()
		s.Equal(tc.status, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func (s *ServerTestSuite) TestInsufficientFunds() {
	for i := 0; i < 10; i++ {
		_, err := s.core.Submit(s.ctx, common.HexToAddress("0x1"), "Qm")
		s.Require().NoError(err)
	}
	_, err := s.core.Submit(s.ctx, common.HexToAddress("0x1"), "Qm")
	s.Require().ErrorIs(err, oracletypes.ErrInsufficientFunds)
}

func (s *ServerTestSuite) TestParamsBalanceWithdraw() {
	params, err := s.core.Params(s.ctx)
	s.Require().NoError(err)
	s.Equal(crypto.PubkeyToAddress(s.owner.PublicKey), params.Owner)
	s.Equal(oracletypes.ModuleAddress, params.ModuleAddress)
	s.Equal("1000000ucid", params.Balance.String())
	s.Equal(oracletypes.DefaultParams().Fee.String(), params.Params.Fee.String())

	_, err = s.core.Submit(s.ctx, common.HexToAddress("0x1"), "Qm123")
	s.Require().NoError(err)

	oracleBalance, err := s.core.Balance(s.ctx, crypto.PubkeyToAddress(s.oracle.PublicKey))
	s.Require().NoError(err)
	s.True(params.Params.Fee.Amount.Equal(oracleBalance.AmountOf(oracletypes.DefaultDenom)))

	intruder := oracletypes.NewMsgWithdraw(crypto.PubkeyToAddress(s.oracle.PublicKey), 0)
	s.Require().NoError(intruder.Sign(s.oracle))
	_, err = s.core.Withdraw(s.ctx, intruder)
	s.Require().ErrorIs(err, oracletypes.ErrUnauthorizedCaller)

	msg := oracletypes.NewMsgWithdraw(crypto.PubkeyToAddress(s.owner.PublicKey), 0)
	s.Require().NoError(msg.Sign(s.owner))
	amount, err := s.core.Withdraw(s.ctx, msg)
	s.Require().NoError(err)
	s.Equal("900000ucid", amount.String())

	ownerBalance, err := s.core.Balance(s.ctx, crypto.PubkeyToAddress(s.owner.PublicKey))
	s.Require().NoError(err)
	s.Equal(sdk.NewCoins(amount).String(), ownerBalance.String())
}

func (s *ServerTestSuite) TestExpire() {
	expired, err := s.core.ExpireRequests(s.ctx)
	s.Require().NoError(err)
	s.Empty(expired)
}

func (s *ServerTestSuite) TestEventFeed() {
	wsURL := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().Eventually(func() bool { return s.server.Hub().Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	handle, err := s.core.Submit(s.ctx, common.HexToAddress("0x1"), "Qm123")
	s.Require().NoError(err)

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		var msg types.EventMessage
		s.Require().NoError(conn.ReadJSON(&msg))
		if msg.Type != oracletypes.EventTypeRequestReceived {
			continue
		}
		s.Equal(handle.Hex(), msg.Attributes[oracletypes.AttributeKeyHandle])
		s.Equal("Qm123", msg.Attributes[oracletypes.AttributeKeyContentReference])
		s.Positive(msg.Height)
		break
	}

	s.server.Hub().Close()
	s.Equal(0, s.server.Hub().Subscribers())
}

func (s *ServerTestSuite) TestHealthAndMetrics() {
	s.checker.AddCheck(health.NewFuncCheck("ledger", func(ctx context.Context) error {
		_, err := s.core.Params(ctx)
		return err
	}))
	s.checker.RunChecks(s.ctx)
	s.Require().NoError(s.core.Health(s.ctx))

	_, err := s.core.Submit(s.ctx, common.HexToAddress("0x1"), "Qm123")
	s.Require().NoError(err)

	resp, err := s.http.Client().Get(s.http.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var summary metrics.MetricsSummary
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&summary))
	found := false
	for _, c := range summary.Counters {
		if strings.Contains(c.Name, "submit") {
			found = true
		}
	}
	s.True(found, "submit counter missing: %+v", summary.Counters)
}

func (s *ServerTestSuite) TestCORS() {
	req, err := http.NewRequest(http.MethodOptions, s.http.URL+"/v1/requests", nil)
	s.Require().NoError(err)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := s.http.Client().Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal("https://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

type stubDispatcher struct {
	err  error
	jobs []oracletypes.OracleRequest
}

func (d *stubDispatcher) Dispatch(req oracletypes.OracleRequest) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, req)
	return nil
}

func TestNodeServer(t *testing.T) {
	dispatcher := &stubDispatcher{}
	ns := NewNodeServer(log.NewNopLogger(), Config{}, dispatcher, nil, nil)
	srv := httptest.NewServer(ns.Handler())
	defer srv.Close()

	data, err := oracletypes.BuildRequestData(oracletypes.DefaultResolverURL, oracletypes.DefaultResultPath, "Qm123")
	require.NoError(t, err)
	req := oracletypes.OracleRequest{
		JobID:      oracletypes.DefaultJobID,
		Handle:     common.HexToHash("0x01"),
		CallbackID: oracletypes.FulfillSelector,
		Payment:    types.NewFeeCoinInt64(1),
		Data:       data,
	}
	nc := client.NewNodeClient(srv.URL, srv.Client())

	require.NoError(t, nc.Dispatch(req))
	require.Len(t, dispatcher.jobs, 1)
	require.Equal(t, req.Handle, dispatcher.jobs[0].Handle)

	dispatcher.err = scheduler.ErrQueueFull
	err = nc.Dispatch(req)
	require.ErrorContains(t, err, scheduler.ErrQueueFull.Error())

	dispatcher.err = nil
	bad := req
	bad.CallbackID = nil
	err = nc.Dispatch(bad)
	require.Error(t, err)
	require.False(t, errors.Is(err, scheduler.ErrQueueFull))
	require.Len(t, dispatcher.jobs, 1)
}
