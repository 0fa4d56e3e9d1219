package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"citadel/native/common"
	"citadel/native/funding"
	"citadel/observability"
)

type setDiscountLimitsParams struct {
	Caller string `json:"caller"`
	MinBps uint64 `json:"minBps"`
	MaxBps uint64 `json:"maxBps"`
}

type setDiscountParams struct {
	Caller   string `json:"caller"`
	ValueBps uint64 `json:"valueBps"`
}

type updatePriceParams struct {
	Caller   string `json:"caller"`
	PriceWei string `json:"priceWei"`
}

type depositParams struct {
	Caller          string `json:"caller"`
	AssetAmountWei  string `json:"assetAmountWei"`
	MinAmountOutWei string `json:"minAmountOutWei,omitempty"`
}

type amountOutParams struct {
	AssetAmountWei string `json:"assetAmountWei"`
}

type amountInParams struct {
	CitadelAmountWei string `json:"citadelAmountWei"`
}

type fundingStateResult struct {
	DiscountBps    uint64 `json:"discountBps"`
	MinDiscountBps uint64 `json:"minDiscountBps"`
	MaxDiscountBps uint64 `json:"maxDiscountBps"`
	PriceWei       string `json:"priceWei"`
	Asset          string `json:"asset"`
	AssetDecimals  uint8  `json:"assetDecimals"`
	SaleRecipient  string `json:"saleRecipient"`
}

type depositResult struct {
	AmountOutWei string `json:"amountOutWei"`
}

func (s *Server) handleFundingSetDiscountLimits(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	start := time.Now()
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params setDiscountLimitsParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.engine.SetDiscountLimits(caller, params.MinBps, params.MaxBps); err != nil {
		s.writeFundingError(w, req, "setDiscountLimits", err)
		return
	}
	observability.FundingMetrics().Observe("setDiscountLimits", "ok", time.Since(start))
	writeResult(w, req.ID, true)
}

func (s *Server) handleFundingSetDiscount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	start := time.Now()
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params setDiscountParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.engine.SetDiscount(caller, params.ValueBps); err != nil {
		s.writeFundingError(w, req, "setDiscount", err)
		return
	}
	observability.FundingMetrics().Observe("setDiscount", "ok", time.Since(start))
	writeResult(w, req.ID, true)
}

func (s *Server) handleFundingUpdatePrice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	start := time.Now()
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params updatePriceParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	price, err := decodeAmount(params.PriceWei)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid price", err.Error())
		return
	}
	if err := s.engine.UpdatePriceInAsset(caller, price); err != nil {
		s.writeFundingError(w, req, "updatePrice", err)
		return
	}
	observability.FundingMetrics().Observe("updatePrice", "ok", time.Since(start))
	writeResult(w, req.ID, true)
}

func (s *Server) handleFundingDeposit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	start := time.Now()
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params depositParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := decodeAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	assetIn, err := decodeAmount(params.AssetAmountWei)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid asset amount", err.Error())
		return
	}
	var minOut *big.Int
	if strings.TrimSpace(params.MinAmountOutWei) != "" {
		minOut, err = decodeAmount(params.MinAmountOutWei)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid minimum amount out", err.Error())
			return
		}
	}
	amountOut, err := s.engine.Deposit(caller, assetIn, minOut)
	if err != nil {
		s.writeFundingError(w, req, "deposit", err)
		return
	}
	observability.FundingMetrics().Observe("deposit", "ok", time.Since(start))
	observability.FundingMetrics().IncDeposit()
	writeResult(w, req.ID, depositResult{AmountOutWei: amountOut.String()})
}

func (s *Server) handleFundingGetAmountOut(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params amountOutParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	assetIn, err := decodeAmount(params.AssetAmountWei)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid asset amount", err.Error())
		return
	}
	amountOut, err := s.engine.GetAmountOut(assetIn)
	if err != nil {
		s.writeFundingError(w, req, "getAmountOut", err)
		return
	}
	writeResult(w, req.ID, amountOut.String())
}

func (s *Server) handleFundingGetAmountIn(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params amountInParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	citadelOut, err := decodeAmount(params.CitadelAmountWei)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid citadel amount", err.Error())
		return
	}
	amountIn, err := s.engine.GetAmountIn(citadelOut)
	if err != nil {
		s.writeFundingError(w, req, "getAmountIn", err)
		return
	}
	writeResult(w, req.ID, amountIn.String())
}

func (s *Server) handleFundingState(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	state, err := s.engine.Funding()
	if err != nil {
		s.writeFundingError(w, req, "state", err)
		return
	}
	writeResult(w, req.ID, fundingStateResult{
		DiscountBps:    state.Discount,
		MinDiscountBps: state.MinDiscount,
		MaxDiscountBps: state.MaxDiscount,
		PriceWei:       state.CitadelPriceInAsset.String(),
		Asset:          state.AssetSymbol,
		AssetDecimals:  state.AssetDecimals,
		SaleRecipient:  ethcommon.BytesToAddress(state.SaleRecipient[:]).Hex(),
	})
}

// writeFundingError maps engine sentinel errors onto the JSON-RPC error
// envelope and records the failure.
func (s *Server) writeFundingError(w http.ResponseWriter, req *RPCRequest, method string, err error) {
	status := http.StatusBadRequest
	code := codeFundingFailure
	reason := "invalid"
	switch {
	case errors.Is(err, common.ErrModulePaused):
		status = http.StatusConflict
		code = codeModulePaused
		reason = "paused"
	case errors.Is(err, funding.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeUnauthorized
		reason = "unauthorized"
	case errors.Is(err, funding.ErrNotInitialised):
		status = http.StatusInternalServerError
		code = codeServerError
		reason = "uninitialised"
	case errors.Is(err, funding.ErrSlippageExceeded):
		reason = "slippage"
	case errors.Is(err, funding.ErrInsufficientLiquidity):
		reason = "liquidity"
	case errors.Is(err, funding.ErrLimitInvalid),
		errors.Is(err, funding.ErrDiscountBelowMinimum),
		errors.Is(err, funding.ErrDiscountAboveMaximum):
		reason = "discount"
	case errors.Is(err, funding.ErrDepositBelowMinimum),
		errors.Is(err, funding.ErrDepositAboveMaximum),
		errors.Is(err, funding.ErrDailyCapExceeded):
		reason = "risk"
	}
	observability.FundingMetrics().IncError(method, reason)
	s.log.Warn("funding call failed",
		"method", method,
		"requestId", w.Header().Get(requestIDHeader),
		"err", err)
	writeError(w, status, req.ID, code, err.Error(), nil)
}

func decodeSingleParam(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	return true
}

func decodeAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	if !ethcommon.IsHexAddress(trimmed) {
		return addr, fmt.Errorf("expected 0x-prefixed 20-byte address")
	}
	copy(addr[:], ethcommon.HexToAddress(trimmed).Bytes())
	return addr, nil
}

func decodeAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
