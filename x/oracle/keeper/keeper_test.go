package keeper_test

import (
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/store"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/suite"
	"github.com/tendermint/tendermint/libs/log"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
	tmdb "github.com/tendermint/tm-db"

	"github.com/GPTx-global/cidoracle/x/oracle/keeper"
	"github.com/GPTx-global/cidoracle/x/oracle/types"
	tokenkeeper "github.com/GPTx-global/cidoracle/x/token/keeper"
	tokentypes "github.com/GPTx-global/cidoracle/x/token/types"
)

var genesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type KeeperTestSuite struct {
	suite.Suite

	ctx         sdk.Context
	keeper      *keeper.Keeper
	tokenKeeper tokenkeeper.Keeper

	oracleKey *ecdsa.PrivateKey
	oracle    common.Address
	owner     common.Address
	requester common.Address

	dispatched  []types.OracleRequest
	dispatchErr error
}

func TestKeeperTestSuite(t *testing.T) {
	suite.Run(t, new(KeeperTestSuite))
}

func (s *KeeperTestSuite) SetupTest() {
	oracleStoreKey := sdk.NewKVStoreKey(types.StoreKey)
	tokenStoreKey := sdk.NewKVStoreKey(tokentypes.StoreKey)

	db := tmdb.NewMemDB()
	stateStore := store.NewCommitMultiStore(db)
	stateStore.MountStoreWithDB(oracleStoreKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(tokenStoreKey, storetypes.StoreTypeIAVL, db)
	s.Require().NoError(stateStore.LoadLatestVersion())

	s.ctx = sdk.NewContext(stateStore, tmproto.Header{Height: 1, Time: genesisTime}, false, log.NewNopLogger())
	s.tokenKeeper = tokenkeeper.NewKeeper(tokenStoreKey)
	s.keeper = keeper.NewKeeper(oracleStoreKey, s.tokenKeeper)

	s.dispatched = nil
	s.dispatchErr = nil
	s.keeper.SetDispatcher(types.DispatcherFunc(func(req types.OracleRequest) error {
		if s.dispatchErr != nil {
			return s.dispatchErr
		}
		s.dispatched = append(s.dispatched, req)
		return nil
	}))

	var err error
	s.oracleKey, err = crypto.GenerateKey()
	s.Require().NoError(err)
	s.oracle = crypto.PubkeyToAddress(s.oracleKey.PublicKey)
	s.owner = common.HexToAddress("0x000000000000000000000000000000000000beef")
	s.requester = common.HexToAddress("0x0000000000000000000000000000000000001234")

	params := types.DefaultParams()
	params.OracleAddress = s.oracle
	s.Require().NoError(s.keeper.SetParams(s.ctx, params))
	s.keeper.SetOwnerAddress(s.ctx, s.owner)
	s.Require().NoError(s.tokenKeeper.MintCoin(s.ctx, types.ModuleAddress, sdk.NewInt64Coin(types.DefaultDenom, 1000000)))
}

func (s *KeeperTestSuite) fee() sdk.Coin {
	return s.keeper.GetParams(s.ctx).Fee
}

func (s *KeeperTestSuite) submit(contentRef string) (common.Hash, types.OracleRequest) {
	handle, err := s.keeper.Submit(s.ctx, s.requester, contentRef)
	s.Require().NoError(err)
	req := s.dispatched[len(s.dispatched)-1]
	s.Require().Equal(handle, req.Handle)
	return handle, req
}

func (s *KeeperTestSuite) fulfillMsg(key *ecdsa.PrivateKey, req types.OracleRequest, result string) types.MsgFulfill {
	msg := types.NewMsgFulfill(crypto.PubkeyToAddress(key.PublicKey), req, result)
	s.Require().NoError(msg.Sign(key))
	return *msg
}

func (s *KeeperTestSuite) countEvents(eventType string) int {
	n := 0
	for _, ev := range s.ctx.EventManager().Events() {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (s *KeeperTestSuite) TestSubmitRecordsRequest() {
	handle, req := s.submit("Qm123")

	ref, err := s.keeper.GetContentReference(s.ctx, handle)
	s.Require().NoError(err)
	s.Equal("Qm123", ref)

	record, err := s.keeper.QueryRequest(s.ctx, handle)
	s.Require().NoError(err)
	s.Equal(types.StatusDispatched, record.Status)
	s.Equal(s.requester, record.Requester)
	s.Equal(s.oracle, record.Oracle)
	s.Equal(uint64(1), record.Nonce)
	s.Equal(uint64(genesisTime.Add(types.DefaultRequestTTL).Unix()), record.Expiration)

	s.Equal(types.DefaultJobID, req.JobID)
	s.Equal(types.ModuleAddress, req.CallbackAddress)
	s.Equal([]byte(types.FulfillSelector), []byte(req.CallbackID))
	s.Equal("http://localhost:8000/completion/ipfs?cid=Qm123", req.FetchURL())
	s.Equal("cid", req.ResultPath())
	s.Equal(1, s.countEvents(types.EventTypeRequestReceived))
}

func (s *KeeperTestSuite) TestSubmitPaysFee() {
	before := s.tokenKeeper.GetBalance(s.ctx, types.ModuleAddress, types.DefaultDenom)
	s.submit("Qm123")

	after := s.tokenKeeper.GetBalance(s.ctx, types.ModuleAddress, types.DefaultDenom)
	s.Equal(before.Sub(s.fee()), after)
	s.Equal(s.fee(), s.tokenKeeper.GetBalance(s.ctx, s.oracle, types.DefaultDenom))
}

func (s *KeeperTestSuite) TestSubmitDistinctHandles() {
	h1, _ := s.submit("Qm123")
	h2, _ := s.submit("Qm123")
	s.NotEqual(h1, h2)
	s.Equal(uint64(2), s.keeper.GetNonce(s.ctx))
}

func (s *KeeperTestSuite) TestSubmitEscapesContentReference() {
	_, req := s.submit("Qm a&b")
	s.Equal("http://localhost:8000/completion/ipfs?cid=Qm+a%26b", req.FetchURL())
}

func (s *KeeperTestSuite) TestSubmitEmptyContentReference() {
	_, err := s.keeper.Submit(s.ctx, s.requester, "  ")
	s.Require().ErrorIs(err, types.ErrInvalidContentReference)
	s.Empty(s.dispatched)
}

func (s *KeeperTestSuite) TestSubmitInsufficientFunds() {
	_, err := s.keeper.Withdraw(s.ctx, s.owner)
	s.Require().NoError(err)

	cacheCtx, _ := s.ctx.CacheContext()
	_, err = s.keeper.Submit(cacheCtx, s.requester, "Qm123")
	s.Require().ErrorIs(err, types.ErrInsufficientFunds)
	s.Empty(s.dispatched)
	s.Equal(uint64(0), s.keeper.GetNonce(s.ctx))
}

func (s *KeeperTestSuite) TestSubmitDispatchFailureRollsBack() {
	s.dispatchErr = errors.New("oracle unreachable")
	before := s.tokenKeeper.GetBalance(s.ctx, types.ModuleAddress, types.DefaultDenom)

	cacheCtx, _ := s.ctx.CacheContext()
	_, err := s.keeper.Submit(cacheCtx, s.requester, "Qm123")
	s.Require().ErrorIs(err, types.ErrDispatchFailure)

	s.Equal(uint64(0), s.keeper.GetNonce(s.ctx))
	s.Equal(before, s.tokenKeeper.GetBalance(s.ctx, types.ModuleAddress, types.DefaultDenom))
	s.Empty(s.keeper.GetPendingRequests(s.ctx))
}

func (s *KeeperTestSuite) TestSubmitAfterDispatchFailureUsesFreshHandle() {
	var attempted []types.OracleRequest
	s.keeper.SetDispatcher(types.DispatcherFunc(func(req types.OracleRequest) error {
		attempted = append(attempted, req)
		if len(attempted) == 1 {
			return errors.New("response lost after the job was accepted")
		}
		return nil
	}))

	cacheCtx, _ := s.ctx.CacheContext()
	_, err := s.keeper.Submit(cacheCtx, s.requester, "Qm123")
	s.Require().ErrorIs(err, types.ErrDispatchFailure)
	s.Equal(uint64(0), s.keeper.GetNonce(s.ctx))

	s.ctx = s.ctx.WithBlockTime(genesisTime.Add(time.Millisecond))
	handle, err := s.keeper.Submit(s.ctx, s.requester, "Qm123")
	s.Require().NoError(err)

	s.Require().Len(attempted, 2)
	s.Equal(attempted[0].Nonce, attempted[1].Nonce)
	s.NotEqual(attempted[0].Handle, handle)
}

func (s *KeeperTestSuite) TestSubmitHandleSaltedWithLastCommit() {
	h1, err := s.keeper.Submit(s.ctx.WithBlockHeader(tmproto.Header{Height: 1, Time: genesisTime, AppHash: []byte{1}}), s.requester, "Qm123")
	s.Require().NoError(err)
	s.keeper.SetNonce(s.ctx, 0)
	h2, err := s.keeper.Submit(s.ctx.WithBlockHeader(tmproto.Header{Height: 1, Time: genesisTime, AppHash: []byte{2}}), s.requester, "Qm123")
	s.Require().NoError(err)
	s.NotEqual(h1, h2)
}

func (s *KeeperTestSuite) TestSubmitWithoutDispatcher() {
	s.keeper.SetDispatcher(nil)
	_, err := s.keeper.Submit(s.ctx, s.requester, "Qm123")
	s.Require().ErrorIs(err, types.ErrDispatchFailure)
}

func (s *KeeperTestSuite) TestFulfillScenario() {
	handle, req := s.submit("Qm123")

	s.Require().NoError(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req, "Qm456")))

	completion, err := s.keeper.QueryCompletion(s.ctx, "Qm123")
	s.Require().NoError(err)
	s.Equal("Qm456", completion.ResultReference)

	record, err := s.keeper.QueryRequest(s.ctx, handle)
	s.Require().NoError(err)
	s.Equal(types.StatusFulfilled, record.Status)
	s.Equal("Qm456", record.Result)
	s.Empty(s.keeper.GetPendingRequests(s.ctx))

	var fulfilled []sdk.Event
	for _, ev := range s.ctx.EventManager().Events() {
		if ev.Type == types.EventTypeRequestFulfilled {
			fulfilled = append(fulfilled, ev)
		}
	}
	s.Require().Len(fulfilled, 1)
	attrs := map[string]string{}
	for _, attr := range fulfilled[0].Attributes {
		attrs[string(attr.Key)] = string(attr.Value)
	}
	s.Equal(handle.Hex(), attrs[types.AttributeKeyHandle])
	s.Equal("Qm123", attrs[types.AttributeKeyContentReference])
	s.Equal("Qm456", attrs[types.AttributeKeyResultReference])
}

func (s *KeeperTestSuite) TestFulfillTwiceRejected() {
	_, req := s.submit("Qm123")
	msg := s.fulfillMsg(s.oracleKey, req, "Qm456")
	s.Require().NoError(s.keeper.Fulfill(s.ctx, msg))

	again := s.fulfillMsg(s.oracleKey, req, "QmOther")
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, again), types.ErrUnknownRequest)

	completion, err := s.keeper.QueryCompletion(s.ctx, "Qm123")
	s.Require().NoError(err)
	s.Equal("Qm456", completion.ResultReference)
	s.Equal(1, s.countEvents(types.EventTypeRequestFulfilled))
}

func (s *KeeperTestSuite) TestFulfillLastWriteWins() {
	_, req1 := s.submit("Qm123")
	_, req2 := s.submit("Qm123")

	s.Require().NoError(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req2, "QmSecond")))
	s.Require().NoError(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req1, "QmFirst")))

	completion, err := s.keeper.QueryCompletion(s.ctx, "Qm123")
	s.Require().NoError(err)
	s.Equal("QmFirst", completion.ResultReference)
}

func (s *KeeperTestSuite) TestFulfillUnknownHandle() {
	_, req := s.submit("Qm123")
	req.Handle = common.HexToHash("0x01")

	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req, "Qm456")), types.ErrUnknownRequest)
}

func (s *KeeperTestSuite) TestFulfillUnauthorizedCaller() {
	_, req := s.submit("Qm123")
	stranger, err := crypto.GenerateKey()
	s.Require().NoError(err)

	// valid handle
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(stranger, req, "Qm456")), types.ErrUnauthorizedCaller)

	// unknown handle
	req.Handle = common.HexToHash("0x02")
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(stranger, req, "Qm456")), types.ErrUnauthorizedCaller)

	_, err = s.keeper.QueryCompletion(s.ctx, "Qm123")
	s.Require().ErrorIs(err, types.ErrNotFound)
}

func (s *KeeperTestSuite) TestFulfillMalformedFromStranger() {
	_, req := s.submit("Qm123")
	stranger, err := crypto.GenerateKey()
	s.Require().NoError(err)

	zeroHandle := req
	zeroHandle.Handle = common.Hash{}
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(stranger, zeroHandle, "Qm456")), types.ErrUnauthorizedCaller)

	msg := types.NewMsgFulfill(crypto.PubkeyToAddress(stranger.PublicKey), req, "Qm456")
	msg.Payment = "abc"
	s.Require().NoError(msg.Sign(stranger))
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, *msg), types.ErrUnauthorizedCaller)

	// the same malformed fields from the oracle fail validation instead
	msg = types.NewMsgFulfill(s.oracle, req, "Qm456")
	msg.Payment = "abc"
	s.Require().NoError(msg.Sign(s.oracleKey))
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, *msg), types.ErrInvalidCommitment)
}

func (s *KeeperTestSuite) TestFulfillForgedSignature() {
	_, req := s.submit("Qm123")
	stranger, err := crypto.GenerateKey()
	s.Require().NoError(err)

	msg := types.NewMsgFulfill(s.oracle, req, "Qm456")
	s.Require().NoError(msg.Sign(stranger))
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, *msg), types.ErrUnauthorizedCaller)
}

func (s *KeeperTestSuite) TestFulfillForgedCommitment() {
	_, req := s.submit("Qm123")

	forged := req
	forged.Payment = sdk.NewCoin(req.Payment.Denom, req.Payment.Amount.Add(math.OneInt()))
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, forged, "Qm456")), types.ErrInvalidCommitment)

	forged = req
	forged.Expiration++
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, forged, "Qm456")), types.ErrInvalidCommitment)

	forged = req
	forged.CallbackID = []byte{0xde, 0xad, 0xbe, 0xef}
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, forged, "Qm456")), types.ErrInvalidCommitment)

	forged = req
	forged.Data = `{"get":"https://attacker.example/completion?cid=Qm123","path":"cid"}`
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, forged, "QmEvil")), types.ErrInvalidCommitment)

	negated := types.NewMsgFulfill(s.oracle, req, "Qm456")
	negated.Payment = req.Payment.Amount.Neg().String()
	s.Require().NoError(negated.Sign(s.oracleKey))
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, *negated), types.ErrInvalidCommitment)

	s.Require().NoError(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req, "Qm456")))
}

func (s *KeeperTestSuite) TestFulfillAfterExpiration() {
	handle, req := s.submit("Qm123")

	s.ctx = s.ctx.WithBlockTime(genesisTime.Add(2 * types.DefaultRequestTTL))
	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req, "Qm456")), types.ErrUnknownRequest)

	record, err := s.keeper.QueryRequest(s.ctx, handle)
	s.Require().NoError(err)
	s.Equal(types.StatusDispatched, record.Status)
}

func (s *KeeperTestSuite) TestExpireRequests() {
	h1, req1 := s.submit("Qm1")

	s.ctx = s.ctx.WithBlockTime(genesisTime.Add(30 * time.Minute))
	h2, _ := s.submit("Qm2")

	s.ctx = s.ctx.WithBlockTime(genesisTime.Add(types.DefaultRequestTTL + time.Minute))
	expired := s.keeper.ExpireRequests(s.ctx)
	s.Equal([]common.Hash{h1}, expired)
	s.Equal(1, s.countEvents(types.EventTypeRequestExpired))

	record, err := s.keeper.QueryRequest(s.ctx, h1)
	s.Require().NoError(err)
	s.Equal(types.StatusExpired, record.Status)

	pending := s.keeper.GetPendingRequests(s.ctx)
	s.Require().Len(pending, 1)
	s.Equal(h2, pending[0].Handle)

	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req1, "Qm456")), types.ErrUnknownRequest)
	s.Empty(s.keeper.ExpireRequests(s.ctx))
}

func (s *KeeperTestSuite) TestExpiryDisabled() {
	params := s.keeper.GetParams(s.ctx)
	params.RequestTTL = 0
	s.Require().NoError(s.keeper.UpdateParams(s.ctx, s.owner, params))

	handle, req := s.submit("Qm123")
	s.Equal(uint64(0), req.Expiration)

	s.ctx = s.ctx.WithBlockTime(genesisTime.Add(24 * 365 * time.Hour))
	s.Empty(s.keeper.ExpireRequests(s.ctx))
	s.Require().NoError(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req, "Qm456")))

	record, err := s.keeper.QueryRequest(s.ctx, handle)
	s.Require().NoError(err)
	s.Equal(types.StatusFulfilled, record.Status)
}

func (s *KeeperTestSuite) TestQueriesAreIdempotent() {
	handle, req := s.submit("Qm123")
	s.Require().NoError(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req, "Qm456")))

	for i := 0; i < 3; i++ {
		ref, err := s.keeper.GetContentReference(s.ctx, handle)
		s.Require().NoError(err)
		s.Equal("Qm123", ref)

		result, ok := s.keeper.GetCompletion(s.ctx, "Qm123")
		s.Require().True(ok)
		s.Equal("Qm456", result)
	}

	_, err := s.keeper.GetContentReference(s.ctx, common.HexToHash("0x03"))
	s.Require().ErrorIs(err, types.ErrNotFound)
}

func (s *KeeperTestSuite) TestGetRequestsByStatus() {
	_, req := s.submit("Qm1")
	s.submit("Qm2")
	s.Require().NoError(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req, "Qm456")))

	s.Len(s.keeper.GetRequestsByStatus(s.ctx, types.StatusUnspecified), 2)
	s.Len(s.keeper.GetRequestsByStatus(s.ctx, types.StatusDispatched), 1)
	s.Len(s.keeper.GetRequestsByStatus(s.ctx, types.StatusFulfilled), 1)
	s.Empty(s.keeper.GetRequestsByStatus(s.ctx, types.StatusExpired))
}

func (s *KeeperTestSuite) TestWithdraw() {
	s.submit("Qm123")
	balance := s.tokenKeeper.GetBalance(s.ctx, types.ModuleAddress, types.DefaultDenom)
	s.Require().True(balance.IsPositive())

	amount, err := s.keeper.Withdraw(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(balance, amount)
	s.True(s.tokenKeeper.GetBalance(s.ctx, types.ModuleAddress, types.DefaultDenom).IsZero())
	s.Equal(balance, s.tokenKeeper.GetBalance(s.ctx, s.owner, types.DefaultDenom))

	// second withdraw transfers zero
	amount, err = s.keeper.Withdraw(s.ctx, s.owner)
	s.Require().NoError(err)
	s.True(amount.IsZero())
	s.Equal(balance, s.tokenKeeper.GetBalance(s.ctx, s.owner, types.DefaultDenom))
	s.Equal(2, s.countEvents(types.EventTypeWithdraw))
}

func (s *KeeperTestSuite) TestWithdrawNotOwner() {
	before := s.tokenKeeper.GetBalance(s.ctx, types.ModuleAddress, types.DefaultDenom)

	_, err := s.keeper.Withdraw(s.ctx, s.requester)
	s.Require().ErrorIs(err, types.ErrUnauthorizedCaller)
	s.Equal(before, s.tokenKeeper.GetBalance(s.ctx, types.ModuleAddress, types.DefaultDenom))
}

type rejectingToken struct{}

func (rejectingToken) GetBalance(_ sdk.Context, _ common.Address, denom string) sdk.Coin {
	return sdk.NewInt64Coin(denom, 500)
}

func (rejectingToken) SendCoin(sdk.Context, common.Address, common.Address, sdk.Coin) error {
	return errors.New("token paused")
}

func (s *KeeperTestSuite) TestWithdrawTransferFailure() {
	oracleStoreKey := sdk.NewKVStoreKey(types.StoreKey)
	db := tmdb.NewMemDB()
	stateStore := store.NewCommitMultiStore(db)
	stateStore.MountStoreWithDB(oracleStoreKey, storetypes.StoreTypeIAVL, db)
	s.Require().NoError(stateStore.LoadLatestVersion())
	ctx := sdk.NewContext(stateStore, tmproto.Header{Time: genesisTime}, false, log.NewNopLogger())

	k := keeper.NewKeeper(oracleStoreKey, rejectingToken{})
	params := types.DefaultParams()
	params.OracleAddress = s.oracle
	s.Require().NoError(k.SetParams(ctx, params))
	k.SetOwnerAddress(ctx, s.owner)

	_, err := k.Withdraw(ctx.WithMultiStore(stateStore.CacheMultiStore()), s.owner)
	s.Require().ErrorIs(err, types.ErrTransferFailure)
}

func (s *KeeperTestSuite) TestUpdateParams() {
	params := s.keeper.GetParams(s.ctx)
	params.Fee = sdk.NewInt64Coin(types.DefaultDenom, 42)
	params.JobID = "job-2"

	s.Require().ErrorIs(s.keeper.UpdateParams(s.ctx, s.requester, params), types.ErrUnauthorizedCaller)
	s.Require().NoError(s.keeper.UpdateParams(s.ctx, s.owner, params))
	s.Equal(params, s.keeper.GetParams(s.ctx))

	params.ResolverURL = "ftp://example.com"
	s.Require().ErrorIs(s.keeper.UpdateParams(s.ctx, s.owner, params), types.ErrInvalidParams)
}

func (s *KeeperTestSuite) TestOracleRotation() {
	_, req := s.submit("Qm123")

	newKey, err := crypto.GenerateKey()
	s.Require().NoError(err)
	params := s.keeper.GetParams(s.ctx)
	params.OracleAddress = crypto.PubkeyToAddress(newKey.PublicKey)
	s.Require().NoError(s.keeper.UpdateParams(s.ctx, s.owner, params))

	s.Require().ErrorIs(s.keeper.Fulfill(s.ctx, s.fulfillMsg(s.oracleKey, req, "Qm456")), types.ErrUnauthorizedCaller)
	s.Require().NoError(s.keeper.Fulfill(s.ctx, s.fulfillMsg(newKey, req, "Qm456")))
}

func (s *KeeperTestSuite) TestTransferOwnership() {
	newOwner := common.HexToAddress("0x000000000000000000000000000000000000cafe")

	s.Require().ErrorIs(s.keeper.TransferOwnership(s.ctx, s.requester, newOwner), types.ErrUnauthorizedCaller)
	s.Require().ErrorIs(s.keeper.TransferOwnership(s.ctx, s.owner, common.Address{}), types.ErrInvalidParams)
	s.Require().NoError(s.keeper.TransferOwnership(s.ctx, s.owner, newOwner))
	s.Equal(newOwner, s.keeper.GetOwnerAddress(s.ctx))

	_, err := s.keeper.Withdraw(s.ctx, s.owner)
	s.Require().ErrorIs(err, types.ErrUnauthorizedCaller)
	_, err = s.keeper.Withdraw(s.ctx, newOwner)
	s.Require().NoError(err)
}
