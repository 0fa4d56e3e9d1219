package funding

import (
	"math/big"
	"strings"
)

const (
	// MaxBps is the basis-point denominator: 10000 bps represent 100%.
	MaxBps = 10_000

	// CitadelSymbol is the ledger symbol of the token sold through deposits.
	CitadelSymbol = "CTL"
	// CitadelDecimals is the fixed precision of the citadel token.
	CitadelDecimals = 18

	// RoleGovernance may replace the admissible discount range.
	RoleGovernance = "ROLE_FUNDING_GOVERNANCE"
	// RolePolicy may move the discount within the configured range.
	RolePolicy = "ROLE_FUNDING_POLICY"
	// RoleOracle may attest a new citadel price denominated in the asset.
	RoleOracle = "ROLE_FUNDING_ORACLE"

	moduleName = "funding"
)

var fundingStateKey = []byte("funding/state")

// ModuleAddress is the ledger account holding the citadel float that deposits
// draw down. It must be funded by an upstream minting flow.
var ModuleAddress = moduleAccount()

func moduleAccount() [20]byte {
	var addr [20]byte
	copy(addr[:], "module/funding")
	return addr
}

// State is the owned record of a funding deployment. Discount values are
// basis points; the price is the WAD-scaled amount of asset owed per whole
// citadel token.
type State struct {
	Discount            uint64
	MinDiscount         uint64
	MaxDiscount         uint64
	CitadelPriceInAsset *big.Int
	AssetSymbol         string
	AssetDecimals       uint8
	SaleRecipient       [20]byte
}

// Copy returns a deep copy to keep callers from mutating shared pointers.
func (s *State) Copy() *State {
	if s == nil {
		return nil
	}
	clone := *s
	if s.CitadelPriceInAsset != nil {
		clone.CitadelPriceInAsset = new(big.Int).Set(s.CitadelPriceInAsset)
	}
	return &clone
}

type storedState struct {
	Discount            uint64
	MinDiscount         uint64
	MaxDiscount         uint64
	CitadelPriceInAsset *big.Int
	AssetSymbol         string
	AssetDecimals       uint8
	SaleRecipient       [20]byte
}

func toStoredState(s *State) storedState {
	stored := storedState{}
	if s == nil {
		return stored
	}
	stored.Discount = s.Discount
	stored.MinDiscount = s.MinDiscount
	stored.MaxDiscount = s.MaxDiscount
	stored.CitadelPriceInAsset = big.NewInt(0)
	if s.CitadelPriceInAsset != nil {
		stored.CitadelPriceInAsset = new(big.Int).Set(s.CitadelPriceInAsset)
	}
	stored.AssetSymbol = strings.ToUpper(strings.TrimSpace(s.AssetSymbol))
	stored.AssetDecimals = s.AssetDecimals
	stored.SaleRecipient = s.SaleRecipient
	return stored
}

func fromStoredState(stored *storedState) *State {
	if stored == nil {
		return nil
	}
	state := &State{
		Discount:            stored.Discount,
		MinDiscount:         stored.MinDiscount,
		MaxDiscount:         stored.MaxDiscount,
		CitadelPriceInAsset: big.NewInt(0),
		AssetSymbol:         stored.AssetSymbol,
		AssetDecimals:       stored.AssetDecimals,
		SaleRecipient:       stored.SaleRecipient,
	}
	if stored.CitadelPriceInAsset != nil {
		state.CitadelPriceInAsset = new(big.Int).Set(stored.CitadelPriceInAsset)
	}
	return state
}
