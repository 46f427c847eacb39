package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cosmos/cosmos-sdk/store"
	storetypes "github.com/cosmos/cosmos-sdk/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tendermint/tendermint/libs/log"
	tmproto "github.com/tendermint/tendermint/proto/tendermint/types"
	tmdb "github.com/tendermint/tm-db"

	"github.com/GPTx-global/cidoracle/x/oracle"
	oraclekeeper "github.com/GPTx-global/cidoracle/x/oracle/keeper"
	oracletypes "github.com/GPTx-global/cidoracle/x/oracle/types"
	"github.com/GPTx-global/cidoracle/x/token"
	tokenkeeper "github.com/GPTx-global/cidoracle/x/token/keeper"
	tokentypes "github.com/GPTx-global/cidoracle/x/token/types"
)

const (
	Name = "cidoracle"

	// GenesisFileName is the genesis document under the home directory
	GenesisFileName = "genesis.json"
)

// EventListener receives the events of every committed operation.
type EventListener func(height int64, events sdk.Events)

// App owns the ledger. Every state transition runs through Execute, one at a
// time, and is committed only when it succeeds.
type App struct {
	mtx sync.Mutex

	db     tmdb.DB
	cms    storetypes.CommitMultiStore
	keys   map[string]*storetypes.KVStoreKey
	logger log.Logger
	clock  func() time.Time

	listeners []EventListener

	TokenKeeper  tokenkeeper.Keeper
	OracleKeeper *oraclekeeper.Keeper

	handler oracle.Handler
}

// Option configures an App
type Option func(*App)

// WithClock overrides the block time source.
func WithClock(clock func() time.Time) Option {
	return func(app *App) { app.clock = clock }
}

// New mounts the module stores on db and loads the latest committed version.
func New(logger log.Logger, db tmdb.DB, opts ...Option) (*App, error) {
	app := &App{
		db:     db,
		cms:    store.NewCommitMultiStore(db),
		keys:   make(map[string]*storetypes.KVStoreKey),
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(app)
	}

	for _, name := range []string{tokentypes.StoreKey, oracletypes.StoreKey} {
		key := sdk.NewKVStoreKey(name)
		app.keys[name] = key
		app.cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, nil)
	}
	if err := app.cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	app.TokenKeeper = tokenkeeper.NewKeeper(app.keys[tokentypes.StoreKey])
	app.OracleKeeper = oraclekeeper.NewKeeper(app.keys[oracletypes.StoreKey], app.TokenKeeper)
	app.handler = oracle.NewHandler(app.OracleKeeper)

	return app, nil
}

// OpenDB opens the goleveldb database under dir, or an in-memory one when dir is empty.
func OpenDB(dir string) (tmdb.DB, error) {
	if dir == "" {
		return tmdb.NewMemDB(), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return tmdb.NewDB("application", tmdb.GoLevelDBBackend, dir)
}

func (app *App) Logger() log.Logger {
	return app.logger
}

// LastHeight returns the version of the last committed operation.
func (app *App) LastHeight() int64 {
	return app.cms.LastCommitID().Version
}

// IsEmpty reports whether nothing was ever committed.
func (app *App) IsEmpty() bool {
	return app.LastHeight() == 0
}

// SetDispatcher sets the oracle Submit dispatches to.
func (app *App) SetDispatcher(dispatcher oracletypes.OracleDispatcher) {
	app.OracleKeeper.SetDispatcher(dispatcher)
}

// AddListener registers l for the events of committed operations.
func (app *App) AddListener(l EventListener) {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	app.listeners = append(app.listeners, l)
}

func (app *App) newContext(goCtx context.Context, ms storetypes.MultiStore) sdk.Context {
	last := app.cms.LastCommitID()
	header := tmproto.Header{
		ChainID: Name,
		Height:  last.Version + 1,
		Time:    app.clock().UTC(),
		AppHash: last.Hash,
	}
	return sdk.NewContext(ms, header, false, app.logger).
		WithContext(goCtx).
		WithEventManager(sdk.NewEventManager())
}

// Execute runs fn against a branch of the ledger. The branch is written and
// committed only when fn returns nil, so a failed operation leaves no trace.
func (app *App) Execute(goCtx context.Context, fn func(ctx sdk.Context) error) (err error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	if err := goCtx.Err(); err != nil {
		return err
	}

	cacheMS := app.cms.CacheMultiStore()
	ctx := app.newContext(goCtx, cacheMS)

	defer func() {
		if r := recover(); r != nil {
			app.logger.Error("operation panicked", "height", ctx.BlockHeight(), "panic", r)
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}

	cacheMS.Write()
	commitID := app.cms.Commit()

	events := ctx.EventManager().Events()
	for _, l := range app.listeners {
		l(commitID.Version, events)
	}
	return nil
}

// Query runs fn against a read-only branch of the last committed state.
func (app *App) Query(goCtx context.Context, fn func(ctx sdk.Context) error) (err error) {
	app.mtx.Lock()
	defer app.mtx.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("query panicked: %v", r)
		}
	}()

	return fn(app.newContext(goCtx, app.cms.CacheMultiStore()))
}

// Submit dispatches a job for contentRef and returns its handle.
func (app *App) Submit(goCtx context.Context, requester common.Address, contentRef string) (common.Hash, error) {
	var handle common.Hash
	err := app.Execute(goCtx, func(ctx sdk.Context) error {
		var err error
		handle, err = app.OracleKeeper.Submit(ctx, requester, contentRef)
		return err
	})
	return handle, err
}

// Fulfill delivers a signed fulfillment.
func (app *App) Fulfill(goCtx context.Context, msg *oracletypes.MsgFulfill) error {
	return app.Execute(goCtx, func(ctx sdk.Context) error {
		_, err := app.handler(ctx, msg)
		return err
	})
}

// Withdraw executes a signed withdraw and returns the amount sent to the owner.
func (app *App) Withdraw(goCtx context.Context, msg *oracletypes.MsgWithdraw) (sdk.Coin, error) {
	var amount sdk.Coin
	err := app.Execute(goCtx, func(ctx sdk.Context) error {
		res, err := app.handler(ctx, msg)
		if err != nil {
			return err
		}
		amount, err = sdk.ParseCoinNormalized(string(res.Data))
		return err
	})
	return amount, err
}

// ExpireRequests runs the expiry sweep and returns the retired handles.
func (app *App) ExpireRequests(goCtx context.Context) ([]common.Hash, error) {
	var expired []common.Hash
	err := app.Execute(goCtx, func(ctx sdk.Context) error {
		expired = app.OracleKeeper.ExpireRequests(ctx)
		return nil
	})
	return expired, err
}

// GenesisState is the application genesis document.
type GenesisState struct {
	Oracle oracletypes.GenesisState `json:"oracle"`
	Token  tokentypes.GenesisState  `json:"token"`
}

// DefaultGenesis returns a genesis owned by owner, served by oracle, and with
// the module account funded with funds.
func DefaultGenesis(owner, oracleAddr common.Address, funds sdk.Coin) GenesisState {
	oracleGenesis := oracletypes.DefaultGenesisState()
	oracleGenesis.OwnerAddress = owner
	oracleGenesis.Params.OracleAddress = oracleAddr

	tokenGenesis := tokentypes.DefaultGenesisState()
	if funds.IsValid() && funds.IsPositive() {
		tokenGenesis.Balances = append(tokenGenesis.Balances, tokentypes.Balance{
			Address: oracletypes.ModuleAddress,
			Coin:    funds,
		})
	}
	return GenesisState{Oracle: *oracleGenesis, Token: *tokenGenesis}
}

// Validate checks both module genesis states
func (gs GenesisState) Validate() error {
	if err := gs.Token.Validate(); err != nil {
		return fmt.Errorf("%s: %w", tokentypes.ModuleName, err)
	}
	if err := gs.Oracle.Validate(); err != nil {
		return fmt.Errorf("%s: %w", oracletypes.ModuleName, err)
	}
	return nil
}

// InitGenesis writes gs as the first committed version.
func (app *App) InitGenesis(goCtx context.Context, gs GenesisState) error {
	if !app.IsEmpty() {
		return fmt.Errorf("state already initialized at height %d", app.LastHeight())
	}
	if err := gs.Validate(); err != nil {
		return errorsmod.Wrap(oracletypes.ErrInvalidParams, err.Error())
	}
	return app.Execute(goCtx, func(ctx sdk.Context) error {
		token.InitGenesis(ctx, app.TokenKeeper, gs.Token)
		oracle.InitGenesis(ctx, app.OracleKeeper, gs.Oracle)
		return nil
	})
}

// ExportGenesis returns the full committed state.
func (app *App) ExportGenesis(goCtx context.Context) (GenesisState, error) {
	var gs GenesisState
	err := app.Query(goCtx, func(ctx sdk.Context) error {
		gs.Token = *token.ExportGenesis(ctx, app.TokenKeeper)
		gs.Oracle = *oracle.ExportGenesis(ctx, app.OracleKeeper)
		return nil
	})
	return gs, err
}

// ReadGenesisFile reads the genesis document under home.
func ReadGenesisFile(home string) (GenesisState, error) {
	var gs GenesisState
	bz, err := os.ReadFile(filepath.Join(home, GenesisFileName))
	if err != nil {
		return gs, err
	}
	if err := json.Unmarshal(bz, &gs); err != nil {
		return gs, fmt.Errorf("failed to parse genesis: %w", err)
	}
	return gs, nil
}

// WriteGenesisFile writes gs under home.
func WriteGenesisFile(home string, gs GenesisState) error {
	bz, err := json.MarshalIndent(gs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(home, GenesisFileName), bz, 0o644)
}

// Close releases the database.
func (app *App) Close() error {
	app.mtx.Lock()
	defer app.mtx.Unlock()
	return app.db.Close()
}
