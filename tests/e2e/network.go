package e2e

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"

	"github.com/GPTx-global/cidoracle/app"
	"github.com/GPTx-global/cidoracle/crypto/keyring"
	"github.com/GPTx-global/cidoracle/oracle/client"
	"github.com/GPTx-global/cidoracle/oracle/daemon"
	"github.com/GPTx-global/cidoracle/oracle/retry"
	"github.com/GPTx-global/cidoracle/oracle/scheduler"
	"github.com/GPTx-global/cidoracle/server"
	"github.com/GPTx-global/cidoracle/types"
)

const (
	resolverPath = "/completion/ipfs"
	moduleFunds  = 1000000
)

// Network is an oracle service with its oracle node and a fake resolver,
// all served over loopback HTTP.
type Network struct {
	App      *app.App
	Core     *client.CoreClient
	CoreURL  string
	NodeURL  string
	Owner    *ecdsa.PrivateKey
	Oracle   *ecdsa.PrivateKey
	Resolver *Resolver

	mu  sync.Mutex
	now time.Time

	daemon  *daemon.Daemon
	server  *server.Server
	servers []*httptest.Server
	cancel  context.CancelFunc
}

// Resolver answers {"cid":"res-<cid>"} and 404 for content references it was told to miss.
type Resolver struct {
	*httptest.Server

	mu      sync.Mutex
	missing map[string]bool
	hits    map[string]int
}

func newResolver() *Resolver {
	r := &Resolver{missing: map[string]bool{}, hits: map[string]int{}}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		cid := req.URL.Query().Get("cid")
		r.mu.Lock()
		r.hits[cid]++
		missing := r.missing[cid]
		r.mu.Unlock()

		if req.URL.Path != resolverPath || missing {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"cid":"res-%s"}`, strings.ReplaceAll(cid, `"`, ""))
	}))
	return r
}

func (r *Resolver) Miss(cid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing[cid] = true
}

func (r *Resolver) Hits(cid string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[cid]
}

// NewNetwork starts a network. With remote set, the oracle node runs behind
// its own HTTP server and talks to the service through the public API.
func NewNetwork(remote bool) (*Network, error) {
	n := &Network{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	logger := log.NewNopLogger()

	var err error
	if n.Owner, err = crypto.GenerateKey(); err != nil {
		return nil, err
	}
	if n.Oracle, err = crypto.GenerateKey(); err != nil {
		return nil, err
	}

	n.App, err = app.New(logger, tmdb.NewMemDB(), app.WithClock(n.Now))
	if err != nil {
		return nil, err
	}

	n.Resolver = newResolver()
	n.servers = append(n.servers, n.Resolver.Server)

	gs := app.DefaultGenesis(
		crypto.PubkeyToAddress(n.Owner.PublicKey),
		crypto.PubkeyToAddress(n.Oracle.PublicKey),
		types.NewFeeCoinInt64(moduleFunds),
	)
	gs.Oracle.Params.ResolverURL = n.Resolver.URL + resolverPath

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	if err := n.App.InitGenesis(ctx, gs); err != nil {
		n.Close()
		return nil, err
	}

	n.server = server.New(logger, n.App, server.Config{CORSOrigins: []string{"*"}}, nil, nil)
	coreSrv := httptest.NewServer(n.server.Handler())
	n.servers = append(n.servers, coreSrv)
	n.CoreURL = coreSrv.URL
	n.Core = client.NewCoreClient(coreSrv.URL, coreSrv.Client())

	cfg := daemon.Config{
		Scheduler:    scheduler.Config{Workers: 2, QueueSize: 16},
		FetchTimeout: 2 * time.Second,
		FetchRetry:   &retry.Config{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2},
		SubmitRetry:  &retry.Config{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Multiplier: 2},
	}

	if remote {
		core := client.NewCoreClient(coreSrv.URL, nil)
		cfg.Verifier = core
		n.daemon = daemon.NewFromConfig(logger, keyring.NewLocalSigner(n.Oracle), core, cfg)
		nodeSrv := httptest.NewServer(server.NewNodeServer(logger, server.Config{}, n.daemon, nil, nil).Handler())
		n.servers = append(n.servers, nodeSrv)
		n.NodeURL = nodeSrv.URL
		n.App.SetDispatcher(client.NewNodeClient(nodeSrv.URL, nil))
	} else {
		n.daemon = daemon.NewFromConfig(logger, keyring.NewLocalSigner(n.Oracle), n.App, cfg)
		n.App.SetDispatcher(n.daemon)
	}
	n.daemon.Start(ctx)
	return n, nil
}

func (n *Network) Now() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.now
}

// Advance moves the ledger clock forward.
func (n *Network) Advance(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.now = n.now.Add(d)
}

func (n *Network) OracleAddress() common.Address {
	return crypto.PubkeyToAddress(n.Oracle.PublicKey)
}

func (n *Network) OwnerAddress() common.Address {
	return crypto.PubkeyToAddress(n.Owner.PublicKey)
}

func (n *Network) Close() {
	if n.daemon != nil {
		n.daemon.Stop()
	}
	if n.server != nil {
		n.server.Hub().Close()
	}
	for _, s := range n.servers {
		s.Close()
	}
	if n.cancel != nil {
		n.cancel()
	}
	if n.App != nil {
		n.App.Close()
	}
}
