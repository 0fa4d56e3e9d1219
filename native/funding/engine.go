package funding

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"citadel/core/events"
	nativecommon "citadel/native/common"
)

// ledgerState exposes the subset of state manager functionality required by
// the funding engine.
type ledgerState interface {
	HasRole(role string, addr []byte) bool
	TokenExists(symbol string) bool
	Balance(addr []byte, symbol string) (*big.Int, error)
	Transfer(from, to []byte, symbol string, amount *big.Int) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Engine executes the funding entrypoints against ledger state. Every
// mutating operation evaluates the pause guard first and the role gate
// second, so a paused call by an unauthorized caller reports the pause.
// Entrypoints are serialized by an internal mutex: a deposit's liquidity
// check and its two transfer legs run as one critical section, so
// concurrent RPC handlers cannot invalidate a passed check mid-flight.
type Engine struct {
	mu                   sync.Mutex
	st                   ledgerState
	pauses               nativecommon.PauseView
	emitter              events.Emitter
	clock                func() time.Time
	risk                 RiskParameters
	maxPriceDeviationBps uint64
}

// NewEngine constructs an engine bound to the provided ledger state.
func NewEngine(st ledgerState) *Engine {
	return &Engine{st: st, emitter: events.NoopEmitter{}, clock: time.Now}
}

// SetPauses wires the global pause registry.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses = p
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetClock overrides the engine clock, primarily for deterministic testing.
func (e *Engine) SetClock(clock func() time.Time) {
	if e == nil || clock == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = clock
}

// SetRiskParameters replaces the deposit guardrails.
func (e *Engine) SetRiskParameters(params RiskParameters) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.risk = params
}

// SetPriceDeviationLimit bounds consecutive oracle updates to the supplied
// deviation in basis points. Zero disables the guardrail, preserving
// unconditional price replacement.
func (e *Engine) SetPriceDeviationLimit(bps uint64) error {
	if e == nil {
		return fmt.Errorf("funding engine not configured")
	}
	if bps > MaxBps {
		return fmt.Errorf("funding: price deviation must not exceed %d bps", MaxBps)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxPriceDeviationBps = bps
	return nil
}

// Initialise persists the initial funding record and adopts the configured
// guardrails. The limits, decimals, and recipient are fixed here for the
// lifetime of the deployment.
func (e *Engine) Initialise(params Parameters) error {
	if e == nil {
		return fmt.Errorf("funding engine not configured")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var existing storedState
	ok, err := e.st.KVGet(fundingStateKey, &existing)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialised
	}
	if params.MaxDiscountBps >= MaxBps {
		return fmt.Errorf("%w: maxDiscount >= MAX_BPS", ErrLimitInvalid)
	}
	if params.MinDiscountBps > params.MaxDiscountBps {
		return fmt.Errorf("%w: minDiscount > maxDiscount", ErrLimitInvalid)
	}
	if params.DiscountBps < params.MinDiscountBps {
		return fmt.Errorf("%w: %d < %d", ErrDiscountBelowMinimum, params.DiscountBps, params.MinDiscountBps)
	}
	if params.DiscountBps > params.MaxDiscountBps {
		return fmt.Errorf("%w: %d > %d", ErrDiscountAboveMaximum, params.DiscountBps, params.MaxDiscountBps)
	}
	if params.InitialPriceWei == nil || params.InitialPriceWei.Sign() <= 0 {
		return fmt.Errorf("%w: initial price", ErrPriceInvalid)
	}
	if params.SaleRecipient == ([20]byte{}) {
		return fmt.Errorf("funding: sale recipient must not be the zero address")
	}
	if !e.st.TokenExists(params.AssetSymbol) {
		return fmt.Errorf("funding: asset %s not registered", params.AssetSymbol)
	}
	if !e.st.TokenExists(CitadelSymbol) {
		return fmt.Errorf("funding: token %s not registered", CitadelSymbol)
	}
	state := &State{
		Discount:            params.DiscountBps,
		MinDiscount:         params.MinDiscountBps,
		MaxDiscount:         params.MaxDiscountBps,
		CitadelPriceInAsset: new(big.Int).Set(params.InitialPriceWei),
		AssetSymbol:         params.AssetSymbol,
		AssetDecimals:       params.AssetDecimals,
		SaleRecipient:       params.SaleRecipient,
	}
	e.risk = params.Risk
	e.maxPriceDeviationBps = params.MaxPriceDeviationBps
	return e.writeState(state)
}

// Funding returns a defensive copy of the full state record.
func (e *Engine) Funding() (*State, error) {
	if e == nil {
		return nil, fmt.Errorf("funding engine not configured")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return state.Copy(), nil
}

// SetDiscountLimits atomically replaces the admissible discount range. Only
// governance may call it. The stored discount is intentionally left untouched
// even when the new range excludes it; the next SetDiscount must satisfy the
// new bounds.
func (e *Engine) SetDiscountLimits(caller [20]byte, minBps, maxBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !e.st.HasRole(RoleGovernance, caller[:]) {
		return fmt.Errorf("%w: requires %s", ErrUnauthorized, RoleGovernance)
	}
	if maxBps >= MaxBps {
		return fmt.Errorf("%w: maxDiscount >= MAX_BPS", ErrLimitInvalid)
	}
	if minBps > maxBps {
		return fmt.Errorf("%w: minDiscount > maxDiscount", ErrLimitInvalid)
	}
	state, err := e.loadState()
	if err != nil {
		return err
	}
	state.MinDiscount = minBps
	state.MaxDiscount = maxBps
	if err := e.writeState(state); err != nil {
		return err
	}
	e.emitter.Emit(events.FundingLimitsUpdated{MinDiscountBps: minBps, MaxDiscountBps: maxBps})
	return nil
}

// SetDiscount stores a new discount rate within the configured range. Only
// policy operations may call it.
func (e *Engine) SetDiscount(caller [20]byte, valueBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !e.st.HasRole(RolePolicy, caller[:]) {
		return fmt.Errorf("%w: requires %s", ErrUnauthorized, RolePolicy)
	}
	state, err := e.loadState()
	if err != nil {
		return err
	}
	if valueBps < state.MinDiscount {
		return fmt.Errorf("%w: %d < %d", ErrDiscountBelowMinimum, valueBps, state.MinDiscount)
	}
	if valueBps > state.MaxDiscount {
		return fmt.Errorf("%w: %d > %d", ErrDiscountAboveMaximum, valueBps, state.MaxDiscount)
	}
	previous := state.Discount
	state.Discount = valueBps
	if err := e.writeState(state); err != nil {
		return err
	}
	e.emitter.Emit(events.FundingDiscountUpdated{PreviousBps: previous, DiscountBps: valueBps})
	return nil
}

// UpdatePriceInAsset replaces the attested citadel price. Only the oracle
// role may call it; zero prices are rejected so the stored price stays
// strictly positive. When a deviation limit is configured the update must
// stay within it relative to the previous observation.
func (e *Engine) UpdatePriceInAsset(caller [20]byte, price *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !e.st.HasRole(RoleOracle, caller[:]) {
		return fmt.Errorf("%w: requires %s", ErrUnauthorized, RoleOracle)
	}
	if price == nil || price.Sign() <= 0 {
		return ErrPriceInvalid
	}
	state, err := e.loadState()
	if err != nil {
		return err
	}
	if e.maxPriceDeviationBps > 0 && state.CitadelPriceInAsset.Sign() > 0 {
		diff := new(big.Int).Sub(price, state.CitadelPriceInAsset)
		diff.Abs(diff)
		threshold := new(big.Int).Mul(state.CitadelPriceInAsset, new(big.Int).SetUint64(e.maxPriceDeviationBps))
		if diff.Mul(diff, bigMaxBps).Cmp(threshold) > 0 {
			return fmt.Errorf("%w: limit %d bps", ErrPriceDeviation, e.maxPriceDeviationBps)
		}
	}
	previous := new(big.Int).Set(state.CitadelPriceInAsset)
	state.CitadelPriceInAsset = new(big.Int).Set(price)
	if err := e.writeState(state); err != nil {
		return err
	}
	e.emitter.Emit(events.FundingPriceUpdated{PreviousPrice: previous, Price: new(big.Int).Set(price)})
	return nil
}

// GetAmountOut quotes the citadel amount delivered for assetAmountIn at the
// current price and discount without touching balances.
func (e *Engine) GetAmountOut(assetAmountIn *big.Int) (*big.Int, error) {
	if e == nil {
		return nil, fmt.Errorf("funding engine not configured")
	}
	if assetAmountIn == nil || assetAmountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return quoteCitadelOut(state, assetAmountIn), nil
}

// GetAmountIn is the inverse quote: the asset amount owed for a desired
// citadel amount, rounded against the caller.
func (e *Engine) GetAmountIn(citadelOut *big.Int) (*big.Int, error) {
	if e == nil {
		return nil, fmt.Errorf("funding engine not configured")
	}
	if citadelOut == nil || citadelOut.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return assetInForCitadelOut(state, citadelOut), nil
}

// Deposit swaps assetAmountIn of the sale asset for citadel. The asset is
// pulled from the caller and routed to the sale recipient in the same
// operation, and the citadel leaves the module float, so neither balance
// accumulates on the module account. All guards run before any balance moves,
// and the whole check-and-transfer sequence holds the engine mutex so a
// concurrent deposit cannot drain the float between check and transfer.
func (e *Engine) Deposit(caller [20]byte, assetAmountIn, minAmountOut *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if assetAmountIn == nil || assetAmountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if err := e.checkDepositLimits(caller, assetAmountIn); err != nil {
		return nil, err
	}
	amountOut := quoteCitadelOut(state, assetAmountIn)
	if amountOut.Sign() == 0 {
		return nil, fmt.Errorf("%w: quote rounds to zero", ErrZeroAmount)
	}
	if minAmountOut != nil && amountOut.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: %s < %s", ErrSlippageExceeded, amountOut, minAmountOut)
	}
	liquidity, err := e.st.Balance(ModuleAddress[:], CitadelSymbol)
	if err != nil {
		return nil, err
	}
	if liquidity.Cmp(amountOut) < 0 {
		return nil, fmt.Errorf("%w: %s available", ErrInsufficientLiquidity, liquidity)
	}
	balance, err := e.st.Balance(caller[:], state.AssetSymbol)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(assetAmountIn) < 0 {
		return nil, fmt.Errorf("funding: caller holds %s of %s", balance, state.AssetSymbol)
	}
	if err := e.st.Transfer(caller[:], state.SaleRecipient[:], state.AssetSymbol, assetAmountIn); err != nil {
		return nil, err
	}
	if err := e.st.Transfer(ModuleAddress[:], caller[:], CitadelSymbol, amountOut); err != nil {
		return nil, err
	}
	if err := e.recordDeposit(caller, assetAmountIn); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.FundingDeposit{
		Depositor:  caller,
		Asset:      state.AssetSymbol,
		AssetIn:    new(big.Int).Set(assetAmountIn),
		CitadelOut: new(big.Int).Set(amountOut),
	})
	return amountOut, nil
}

func (e *Engine) loadState() (*State, error) {
	var stored storedState
	ok, err := e.st.KVGet(fundingStateKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialised
	}
	return fromStoredState(&stored), nil
}

func (e *Engine) writeState(state *State) error {
	stored := toStoredState(state)
	return e.st.KVPut(fundingStateKey, stored)
}
