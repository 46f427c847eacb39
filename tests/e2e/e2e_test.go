package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/GPTx-global/cidoracle/oracle/client"
	"github.com/GPTx-global/cidoracle/oracle/subscribe"
	"github.com/GPTx-global/cidoracle/types"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
)

var requester = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func describeNetwork(name string, remote bool) bool {
	return Describe(name, func() {
		var (
			n   *Network
			ctx context.Context
		)

		BeforeEach(func() {
			var err error
			n, err = NewNetwork(remote)
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
			DeferCleanup(n.Close)
		})

		status := func(handle common.Hash) func() oracletypes.RequestStatus {
			return func() oracletypes.RequestStatus {
				req, err := n.Core.Request(ctx, handle)
				Expect(err).NotTo(HaveOccurred())
				return req.Status
			}
		}

		It("completes a submitted content reference", func() {
			handle, err := n.Core.Submit(ctx, requester, "Qm123")
			Expect(err).NotTo(HaveOccurred())

			Eventually(status(handle), 5*time.Second, 20*time.Millisecond).Should(Equal(oracletypes.StatusFulfilled))

			completion, err := n.Core.Completion(ctx, "Qm123")
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.ResultReference).To(Equal("res-Qm123"))

			req, err := n.Core.Request(ctx, handle)
			Expect(err).NotTo(HaveOccurred())
			Expect(req.Result).To(Equal("res-Qm123"))
			Expect(req.Requester).To(Equal(requester))
			Expect(n.Resolver.Hits("Qm123")).To(Equal(1))
		})

		It("pays the fee to the oracle on submit", func() {
			fee := oracletypes.DefaultParams().Fee
			_, err := n.Core.Submit(ctx, requester, "QmFee")
			Expect(err).NotTo(HaveOccurred())

			balance, err := n.Core.Balance(ctx, n.OracleAddress())
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.AmountOf(fee.Denom).Equal(fee.Amount)).To(BeTrue())

			params, err := n.Core.Params(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(params.Balance.Amount.Int64()).To(Equal(int64(moduleFunds) - fee.Amount.Int64()))
		})

		It("resolves distinct submissions of the same reference independently", func() {
			first, err := n.Core.Submit(ctx, requester, "QmSame")
			Expect(err).NotTo(HaveOccurred())
			second, err := n.Core.Submit(ctx, requester, "QmSame")
			Expect(err).NotTo(HaveOccurred())
			Expect(first).NotTo(Equal(second))

			Eventually(status(first), 5*time.Second, 20*time.Millisecond).Should(Equal(oracletypes.StatusFulfilled))
			Eventually(status(second), 5*time.Second, 20*time.Millisecond).Should(Equal(oracletypes.StatusFulfilled))
		})

		It("leaves a request pending when the resolver has no answer", func() {
			n.Resolver.Miss("QmMissing")
			handle, err := n.Core.Submit(ctx, requester, "QmMissing")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int { return n.Resolver.Hits("QmMissing") }, 5*time.Second).Should(BeNumerically(">=", 1))
			Consistently(status(handle), 300*time.Millisecond, 50*time.Millisecond).Should(Equal(oracletypes.StatusDispatched))

			_, err = n.Core.Completion(ctx, "QmMissing")
			Expect(err).To(MatchError(oracletypes.ErrNotFound))
		})

		It("expires requests that outlive their TTL", func() {
			n.Resolver.Miss("QmStale")
			handle, err := n.Core.Submit(ctx, requester, "QmStale")
			Expect(err).NotTo(HaveOccurred())

			expired, err := n.Core.ExpireRequests(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(expired).To(BeEmpty())

			n.Advance(oracletypes.DefaultRequestTTL + time.Minute)
			expired, err = n.Core.ExpireRequests(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(expired).To(ConsistOf(handle))
			Expect(status(handle)()).To(Equal(oracletypes.StatusExpired))

			pending, err := n.Core.Requests(ctx, oracletypes.StatusDispatched)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})

		It("rejects fulfillments not signed by the oracle", func() {
			n.Resolver.Miss("QmForged")
			handle, err := n.Core.Submit(ctx, requester, "QmForged")
			Expect(err).NotTo(HaveOccurred())
			req, err := n.Core.Request(ctx, handle)
			Expect(err).NotTo(HaveOccurred())

			forger, err := crypto.GenerateKey()
			Expect(err).NotTo(HaveOccurred())
			msg := &oracletypes.MsgFulfill{
				Caller:          crypto.PubkeyToAddress(forger.PublicKey),
				Handle:          handle,
				ResultReference: "QmEvil",
				Payment:         req.Payment.String(),
				Denom:           req.Denom,
				CallbackID:      req.CallbackID,
				Expiration:      req.Expiration,
			}
			Expect(msg.Sign(forger)).To(Succeed())

			err = n.Core.Fulfill(ctx, msg)
			Expect(err).To(MatchError(oracletypes.ErrUnauthorizedCaller))
			Expect(status(handle)()).To(Equal(oracletypes.StatusDispatched))
		})

		It("withdraws the module balance to the owner only", func() {
			intruder := oracletypes.NewMsgWithdraw(n.OracleAddress(), 0)
			Expect(intruder.Sign(n.Oracle)).To(Succeed())
			_, err := n.Core.Withdraw(ctx, intruder)
			Expect(err).To(MatchError(oracletypes.ErrUnauthorizedCaller))

			msg := oracletypes.NewMsgWithdraw(n.OwnerAddress(), uint64(n.Now().Add(time.Minute).Unix()))
			Expect(msg.Sign(n.Owner)).To(Succeed())
			amount, err := n.Core.Withdraw(ctx, msg)
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.String()).To(Equal(types.NewFeeCoinInt64(moduleFunds).String()))

			_, err = n.Core.Submit(ctx, requester, "QmBroke")
			Expect(err).To(MatchError(oracletypes.ErrInsufficientFunds))
		})
	})
}

var _ = describeNetwork("with an embedded oracle node", false)
var _ = describeNetwork("with a remote oracle node", true)

var _ = Describe("remote oracle node", func() {
	It("refuses jobs the ledger did not dispatch", func() {
		n, err := NewNetwork(true)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(n.Close)
		ctx := context.Background()

		var attackerHits int32
		attacker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&attackerHits, 1)
			fmt.Fprint(w, `{"cid":"QmEvil"}`)
		}))
		DeferCleanup(attacker.Close)

		first, err := n.Core.Submit(ctx, requester, "QmTarget")
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() oracletypes.RequestStatus {
			req, err := n.Core.Request(ctx, first)
			Expect(err).NotTo(HaveOccurred())
			return req.Status
		}, 5*time.Second, 20*time.Millisecond).Should(Equal(oracletypes.StatusFulfilled))

		// a second request stays pending, leaving a live handle to target
		n.Resolver.Miss("QmTarget")
		handle, err := n.Core.Submit(ctx, requester, "QmTarget")
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() int { return n.Resolver.Hits("QmTarget") }, 5*time.Second).Should(BeNumerically(">=", 2))

		rec, err := n.Core.Request(ctx, handle)
		Expect(err).NotTo(HaveOccurred())
		params, err := n.Core.Params(ctx)
		Expect(err).NotTo(HaveOccurred())
		data, err := oracletypes.BuildRequestData(attacker.URL, "cid", "QmTarget")
		Expect(err).NotTo(HaveOccurred())

		forged := oracletypes.OracleRequest{
			JobID:           params.Params.JobID,
			Handle:          handle,
			Requester:       requester,
			CallbackAddress: oracletypes.ModuleAddress,
			CallbackID:      rec.CallbackID,
			Nonce:           rec.Nonce,
			Payment:         rec.PaymentCoin(),
			Expiration:      rec.Expiration,
			Data:            data,
		}
		node := client.NewNodeClient(n.NodeURL, nil)
		Eventually(func() error { return node.Dispatch(forged) }, 5*time.Second, 20*time.Millisecond).Should(Succeed())

		Consistently(func() string {
			completion, err := n.Core.Completion(ctx, "QmTarget")
			Expect(err).NotTo(HaveOccurred())
			return completion.ResultReference
		}, 500*time.Millisecond, 50*time.Millisecond).Should(Equal("res-QmTarget"))
		Expect(atomic.LoadInt32(&attackerHits)).To(BeZero())

		rec, err = n.Core.Request(ctx, handle)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Status).To(Equal(oracletypes.StatusDispatched))
	})
})

var _ = Describe("event feed", func() {
	It("streams committed events to websocket subscribers", func() {
		n, err := NewNetwork(false)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(n.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m, err := subscribe.NewManager(log.NewNopLogger(), n.CoreURL,
			oracletypes.EventTypeRequestReceived, oracletypes.EventTypeRequestFulfilled)
		Expect(err).NotTo(HaveOccurred())
		feed, err := m.Subscribe(ctx)
		Expect(err).NotTo(HaveOccurred())
		Eventually(n.server.Hub().Subscribers).Should(Equal(1))

		handle, err := n.Core.Submit(ctx, requester, "QmFeed")
		Expect(err).NotTo(HaveOccurred())

		seen := map[string]types.EventMessage{}
		for seen[oracletypes.EventTypeRequestFulfilled].Type == "" {
			var msg types.EventMessage
			Eventually(feed, 5*time.Second).Should(Receive(&msg))
			seen[msg.Type] = msg
		}

		Expect(seen).To(HaveKey(oracletypes.EventTypeRequestReceived))
		Expect(seen[oracletypes.EventTypeRequestReceived].Attributes).To(HaveKeyWithValue(oracletypes.AttributeKeyHandle, handle.Hex()))
		fulfilled := seen[oracletypes.EventTypeRequestFulfilled]
		Expect(fulfilled.Attributes).To(HaveKeyWithValue(oracletypes.AttributeKeyResultReference, "res-QmFeed"))
		Expect(fulfilled.Height).To(BeNumerically(">", seen[oracletypes.EventTypeRequestReceived].Height))
	})
})
