// Package swap prices conversions between the utility token and permissioned
// security tokens. The engine performs no I/O: it reads the token registry,
// applies the authorization policy, and computes a fee-adjusted quote plus an
// unsigned contract-call description in 256-bit integer arithmetic.
package swap

import (
	"github.com/holiman/uint256"

	"github.com/kaeptnchris246/eut-v1-sub002/internal/authz"
	"github.com/kaeptnchris246/eut-v1-sub002/internal/fixedpoint"
	"github.com/kaeptnchris246/eut-v1-sub002/internal/token"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/apperr"
)

const (
	DirectionUtilityToSecurity = "utility_to_security"
	DirectionSecurityToUtility = "security_to_utility"

	methodUtilityToSecurity = "swapUtilityForSecurity"
	methodSecurityToUtility = "swapSecurityForUtility"

	bpsDenominator = 10000
)

// Config carries the operational swap settings read at startup.
type Config struct {
	PoolAddress string
	FeeBps      int64
}

type Engine struct {
	registry func() *token.Registry
	cfg      Config
}

// New wires the engine to a registry source. The source is called per quote
// so an administrative refresh is picked up without restarting. A fee outside
// [0, 10000] bps would make feeUnits exceed the input and wrap the
// subtraction, so such values collapse to 0 here regardless of what the
// caller loaded.
func New(registry func() *token.Registry, cfg Config) *Engine {
	if cfg.FeeBps < 0 || cfg.FeeBps > bpsDenominator {
		cfg.FeeBps = 0
	}
	return &Engine{registry: registry, cfg: cfg}
}

type Request struct {
	FromTokenAddress string `json:"fromTokenAddress"`
	ToTokenAddress   string `json:"toTokenAddress"`
	Amount           string `json:"amount"`
	WalletAddress    string `json:"walletAddress"`
	CallerRole       string `json:"-"`
}

type Quote struct {
	Direction string `json:"direction"`
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
	Fee       string `json:"fee"`
	FeeBps    int64  `json:"feeBps"`
}

// UnsignedCall describes the contract call a wallet would sign and submit.
// The engine never signs or submits anything.
type UnsignedCall struct {
	To      string   `json:"to"`
	Method  string   `json:"method"`
	Args    []string `json:"args"`
	Value   string   `json:"value"`
	ChainID int64    `json:"chainId"`
}

type Result struct {
	Quote       Quote        `json:"quote"`
	Transaction UnsignedCall `json:"transaction"`
}

// Quote validates the request and computes the priced result. Validation
// order is fixed: emptiness, token resolution, distinctness, type pairing,
// authorization, pool configuration, then amount parsing.
func (e *Engine) Quote(req Request) (*Result, error) {
	if req.Amount == "" || req.WalletAddress == "" {
		return nil, apperr.BadRequest("amount and wallet address are required")
	}

	reg := e.registry()
	from, ok := reg.ByAddress(req.FromTokenAddress)
	if !ok {
		return nil, apperr.BadRequest("unknown token address: " + req.FromTokenAddress)
	}
	to, ok := reg.ByAddress(req.ToTokenAddress)
	if !ok {
		return nil, apperr.BadRequest("unknown token address: " + req.ToTokenAddress)
	}
	if from == to {
		return nil, apperr.BadRequest("cannot swap a token for itself")
	}

	var utility, security *token.Definition
	switch {
	case from.Type == token.Utility && to.Type == token.Security:
		utility, security = from, to
	case from.Type == token.Security && to.Type == token.Utility:
		utility, security = to, from
	default:
		return nil, apperr.BadRequest("swaps must pair the utility token with a security token")
	}

	if err := authz.Authorize(security, req.WalletAddress, req.CallerRole); err != nil {
		return nil, err
	}

	if e.cfg.PoolAddress == "" {
		return nil, apperr.BadRequest("swap pool is not configured")
	}

	amountUnits, err := fixedpoint.Parse(req.Amount, from.Decimals)
	if err != nil {
		return nil, apperr.BadRequest("invalid amount: " + req.Amount)
	}
	if amountUnits.IsZero() {
		return nil, apperr.BadRequest("amount must be greater than zero")
	}

	if from.Type == token.Utility {
		return e.utilityToSecurity(req, utility, security, amountUnits)
	}
	return e.securityToUtility(req, utility, security, amountUnits)
}

// utilityToSecurity: the fee is taken from the input in utility units, the
// remainder converts at the security token's rate. feeUnits + netUnits always
// equals amountUnits exactly.
func (e *Engine) utilityToSecurity(req Request, utility, security *token.Definition, amountUnits *uint256.Int) (*Result, error) {
	feeUnits := feeOf(amountUnits, e.cfg.FeeBps)
	netUnits := new(uint256.Int).Sub(amountUnits, feeUnits)

	// A zero rate would normally be rewritten to parity at registry build;
	// degrade to a zero output rather than dividing anywhere.
	amountOut := new(uint256.Int)
	if !security.Rate.IsZero() {
		if _, overflow := amountOut.MulDivOverflow(netUnits, security.Rate, fixedpoint.Scale); overflow {
			return nil, apperr.BadRequest("amount out of range")
		}
	}

	return &Result{
		Quote: Quote{
			Direction: DirectionUtilityToSecurity,
			AmountIn:  req.Amount,
			AmountOut: fixedpoint.Format(amountOut, security.Decimals),
			Fee:       fixedpoint.Format(feeUnits, utility.Decimals),
			FeeBps:    e.cfg.FeeBps,
		},
		Transaction: e.call(methodUtilityToSecurity, utility, security, amountUnits, req.WalletAddress),
	}, nil
}

// securityToUtility divides by the security token's rate, so a zero rate is a
// hard error here rather than a zero output.
func (e *Engine) securityToUtility(req Request, utility, security *token.Definition, amountUnits *uint256.Int) (*Result, error) {
	if security.Rate.IsZero() {
		return nil, apperr.BadRequest("swap rate is zero")
	}

	grossUnits := new(uint256.Int)
	if _, overflow := grossUnits.MulDivOverflow(amountUnits, fixedpoint.Scale, security.Rate); overflow {
		return nil, apperr.BadRequest("amount out of range")
	}
	feeUnits := feeOf(grossUnits, e.cfg.FeeBps)
	netUnits := new(uint256.Int).Sub(grossUnits, feeUnits)

	return &Result{
		Quote: Quote{
			Direction: DirectionSecurityToUtility,
			AmountIn:  req.Amount,
			AmountOut: fixedpoint.Format(netUnits, utility.Decimals),
			Fee:       fixedpoint.Format(feeUnits, utility.Decimals),
			FeeBps:    e.cfg.FeeBps,
		},
		Transaction: e.call(methodSecurityToUtility, utility, security, amountUnits, req.WalletAddress),
	}, nil
}

func (e *Engine) call(method string, utility, security *token.Definition, amountUnits *uint256.Int, wallet string) UnsignedCall {
	return UnsignedCall{
		To:      e.cfg.PoolAddress,
		Method:  method,
		Args:    []string{security.Address, amountUnits.Dec(), wallet},
		Value:   "0",
		ChainID: utility.ChainID,
	}
}

// feeOf floors amountUnits * feeBps / 10000.
func feeOf(amountUnits *uint256.Int, feeBps int64) *uint256.Int {
	if feeBps <= 0 {
		return new(uint256.Int)
	}
	fee := new(uint256.Int)
	// feeBps is capped at the denominator by New, so the fee never exceeds
	// amountUnits and the result cannot overflow 256 bits.
	fee.MulDivOverflow(amountUnits, uint256.NewInt(uint64(feeBps)), uint256.NewInt(bpsDenominator))
	return fee
}
