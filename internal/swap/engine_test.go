package swap

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/kaeptnchris246/eut-v1-sub002/internal/fixedpoint"
	"github.com/kaeptnchris246/eut-v1-sub002/internal/token"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/apperr"
)

const (
	eutAddr  = "0xaaaa000000000000000000000000000000000001"
	spv1Addr = "0xbbbb000000000000000000000000000000000002"
	spv2Addr = "0xcccc000000000000000000000000000000000003"
	poolAddr = "0xp00l000000000000000000000000000000000007"
	wallet   = "0xcafe000000000000000000000000000000000009"
)

func testRegistry(t *testing.T) *token.Registry {
	t.Helper()
	env := map[string]string{
		"EUT_TOKEN_ADDRESS":  eutAddr,
		"SECURITY_TOKENS":    "SPV1,SPV2",
		"TOKEN_SPV1_ADDRESS": spv1Addr,
		"TOKEN_SPV1_RATE":    "2",
		"TOKEN_SPV2_ADDRESS": spv2Addr,
		"TOKEN_SPV2_RATE":    "0.5",
	}
	reg, err := token.Build(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func testEngine(t *testing.T, feeBps int64) *Engine {
	reg := testRegistry(t)
	return New(func() *token.Registry { return reg }, Config{PoolAddress: poolAddr, FeeBps: feeBps})
}

func TestUtilityToSecurityQuote(t *testing.T) {
	// 10 EUT at 50 bps against a 2.0 rate: fee 0.05, net 9.95, out 19.9.
	res, err := testEngine(t, 50).Quote(Request{
		FromTokenAddress: eutAddr,
		ToTokenAddress:   spv1Addr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	q := res.Quote
	if q.Direction != DirectionUtilityToSecurity {
		t.Fatalf("direction = %s", q.Direction)
	}
	if q.AmountIn != "10" {
		t.Fatalf("amountIn = %s, want the caller's string echoed", q.AmountIn)
	}
	if q.Fee != "0.05" {
		t.Fatalf("fee = %s, want 0.05", q.Fee)
	}
	if q.AmountOut != "19.9" {
		t.Fatalf("amountOut = %s, want 19.9", q.AmountOut)
	}
	if q.FeeBps != 50 {
		t.Fatalf("feeBps = %d", q.FeeBps)
	}

	call := res.Transaction
	if call.To != poolAddr || call.Method != "swapUtilityForSecurity" {
		t.Fatalf("unexpected call target: %+v", call)
	}
	if len(call.Args) != 3 || call.Args[0] != spv1Addr || call.Args[1] != "10000000000000000000" || call.Args[2] != wallet {
		t.Fatalf("unexpected call args: %v", call.Args)
	}
	if call.Value != "0" || call.ChainID != 1 {
		t.Fatalf("unexpected call value/chain: %+v", call)
	}
}

func TestSecurityToUtilityQuote(t *testing.T) {
	// 10 SPV1 at rate 2.0: gross 5 EUT, fee 0.025 at 50 bps, net 4.975.
	res, err := testEngine(t, 50).Quote(Request{
		FromTokenAddress: spv1Addr,
		ToTokenAddress:   eutAddr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "spv_manager",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	q := res.Quote
	if q.Direction != DirectionSecurityToUtility {
		t.Fatalf("direction = %s", q.Direction)
	}
	if q.AmountOut != "4.975" {
		t.Fatalf("amountOut = %s, want 4.975", q.AmountOut)
	}
	if q.Fee != "0.025" {
		t.Fatalf("fee = %s, want 0.025", q.Fee)
	}
	if res.Transaction.Method != "swapSecurityForUtility" {
		t.Fatalf("method = %s", res.Transaction.Method)
	}
}

// No unit may be lost or gained splitting an amount into fee and net. SPV1
// converts at rate 2.0, so the quoted output is exactly twice the net and the
// law reads fee + out/2 == in at unit level.
func TestFeeConservation(t *testing.T) {
	amounts := []string{"1", "10", "0.000000000000000003", "123456.789", "999999999.999999999999999999"}
	for _, feeBps := range []int64{0, 1, 50, 9999} {
		eng := testEngine(t, feeBps)
		for _, amount := range amounts {
			res, err := eng.Quote(Request{
				FromTokenAddress: eutAddr,
				ToTokenAddress:   spv1Addr,
				Amount:           amount,
				WalletAddress:    wallet,
				CallerRole:       "admin",
			})
			if err != nil {
				t.Fatalf("feeBps=%d amount=%s: %v", feeBps, amount, err)
			}
			in, err := fixedpoint.Parse(amount, 18)
			if err != nil {
				t.Fatalf("parse %q: %v", amount, err)
			}
			fee, err := fixedpoint.Parse(res.Quote.Fee, 18)
			if err != nil {
				t.Fatalf("parse fee %q: %v", res.Quote.Fee, err)
			}
			out, err := fixedpoint.Parse(res.Quote.AmountOut, 18)
			if err != nil {
				t.Fatalf("parse out %q: %v", res.Quote.AmountOut, err)
			}
			net := new(uint256.Int).Div(out, uint256.NewInt(2))
			sum := new(uint256.Int).Add(fee, net)
			if sum.Cmp(in) != 0 {
				t.Fatalf("feeBps=%d amount=%s: fee %s + net %s != %s", feeBps, amount, fee.Dec(), net.Dec(), in.Dec())
			}
		}
	}
}

// A fee above the basis-point denominator would exceed the input itself; the
// engine treats it as no fee instead of letting the subtraction wrap.
func TestFeeAboveDenominatorCollapses(t *testing.T) {
	res, err := testEngine(t, 20000).Quote(Request{
		FromTokenAddress: eutAddr,
		ToTokenAddress:   spv2Addr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if res.Quote.Fee != "0" || res.Quote.FeeBps != 0 {
		t.Fatalf("fee=%s feeBps=%d, want a collapsed fee", res.Quote.Fee, res.Quote.FeeBps)
	}
	// 10 EUT at rate 0.5 with no fee: out 5, never a wrapped 256-bit value.
	if res.Quote.AmountOut != "5" {
		t.Fatalf("amountOut = %s, want 5", res.Quote.AmountOut)
	}
}

// 100% is the largest admissible fee: the whole input becomes fee and the
// output is zero, still without wraparound.
func TestFullFee(t *testing.T) {
	res, err := testEngine(t, 10000).Quote(Request{
		FromTokenAddress: eutAddr,
		ToTokenAddress:   spv1Addr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if res.Quote.Fee != "10" || res.Quote.AmountOut != "0" {
		t.Fatalf("fee=%s out=%s, want 10 and 0", res.Quote.Fee, res.Quote.AmountOut)
	}
}

func TestZeroFee(t *testing.T) {
	res, err := testEngine(t, 0).Quote(Request{
		FromTokenAddress: eutAddr,
		ToTokenAddress:   spv1Addr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if res.Quote.Fee != "0" || res.Quote.AmountOut != "20" {
		t.Fatalf("fee=%s out=%s, want 0 and 20", res.Quote.Fee, res.Quote.AmountOut)
	}
}

func TestSameTypePairRejected(t *testing.T) {
	eng := testEngine(t, 50)
	for _, pair := range [][2]string{{spv1Addr, spv2Addr}, {spv2Addr, spv1Addr}} {
		_, err := eng.Quote(Request{
			FromTokenAddress: pair[0],
			ToTokenAddress:   pair[1],
			Amount:           "1",
			WalletAddress:    wallet,
			CallerRole:       "admin",
		})
		if apperr.KindOf(err) != apperr.KindBadRequest {
			t.Fatalf("pair %v: got %v, want bad_request", pair, err)
		}
	}
}

func TestValidationFailures(t *testing.T) {
	eng := testEngine(t, 50)
	base := Request{
		FromTokenAddress: eutAddr,
		ToTokenAddress:   spv1Addr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	}

	cases := []struct {
		name   string
		mutate func(*Request)
		want   apperr.Kind
	}{
		{"empty amount", func(r *Request) { r.Amount = "" }, apperr.KindBadRequest},
		{"empty wallet", func(r *Request) { r.WalletAddress = "" }, apperr.KindBadRequest},
		{"unknown from", func(r *Request) { r.FromTokenAddress = "0x0000000000000000000000000000000000000000" }, apperr.KindBadRequest},
		{"unknown to", func(r *Request) { r.ToTokenAddress = "0x0000000000000000000000000000000000000000" }, apperr.KindBadRequest},
		{"identical tokens", func(r *Request) { r.ToTokenAddress = eutAddr }, apperr.KindBadRequest},
		{"unauthorized role", func(r *Request) { r.CallerRole = "investor" }, apperr.KindForbidden},
		{"malformed amount", func(r *Request) { r.Amount = "10,5" }, apperr.KindBadRequest},
		{"zero amount", func(r *Request) { r.Amount = "0.0" }, apperr.KindBadRequest},
	}
	for _, tc := range cases {
		req := base
		tc.mutate(&req)
		_, err := eng.Quote(req)
		if apperr.KindOf(err) != tc.want {
			t.Fatalf("%s: got %v, want %s", tc.name, err, tc.want)
		}
	}
}

func TestMissingPoolRejectedAfterAuthorization(t *testing.T) {
	reg := testRegistry(t)
	eng := New(func() *token.Registry { return reg }, Config{PoolAddress: "", FeeBps: 50})

	_, err := eng.Quote(Request{
		FromTokenAddress: eutAddr,
		ToTokenAddress:   spv1Addr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("got %v, want bad_request", err)
	}

	// Authorization outranks the pool check: an unauthorized caller sees
	// forbidden even when the pool is unconfigured.
	_, err = eng.Quote(Request{
		FromTokenAddress: eutAddr,
		ToTokenAddress:   spv1Addr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "investor",
	})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("got %v, want forbidden", err)
	}
}

func TestCaseInsensitiveAddressResolution(t *testing.T) {
	res, err := testEngine(t, 50).Quote(Request{
		FromTokenAddress: "0xAAAA000000000000000000000000000000000001",
		ToTokenAddress:   "0xBBBB000000000000000000000000000000000002",
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	})
	if err != nil {
		t.Fatalf("Quote with mixed-case addresses: %v", err)
	}
	if res.Quote.AmountOut != "19.9" {
		t.Fatalf("amountOut = %s", res.Quote.AmountOut)
	}
}

func zeroRateRegistry() *token.Registry {
	return token.NewRegistry(
		&token.Definition{
			ID: "EUT", Symbol: "EUT", Address: eutAddr, Decimals: 18,
			Type: token.Utility, ChainID: 1, Rate: fixedpoint.Scale,
			Allowlist: map[string]struct{}{},
		},
		&token.Definition{
			ID: "SPV1", Symbol: "SPV1", Address: spv1Addr, Decimals: 18,
			Type: token.Security, ChainID: 1, Rate: uint256.NewInt(0),
			Allowlist: map[string]struct{}{},
		},
	)
}

func TestZeroRate(t *testing.T) {
	reg := zeroRateRegistry()
	eng := New(func() *token.Registry { return reg }, Config{PoolAddress: poolAddr, FeeBps: 50})

	// Dividing by a zero rate is a hard error.
	_, err := eng.Quote(Request{
		FromTokenAddress: spv1Addr,
		ToTokenAddress:   eutAddr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("security->utility with zero rate: got %v, want bad_request", err)
	}

	// Multiplying by a zero rate degrades to a zero output.
	res, err := eng.Quote(Request{
		FromTokenAddress: eutAddr,
		ToTokenAddress:   spv1Addr,
		Amount:           "10",
		WalletAddress:    wallet,
		CallerRole:       "admin",
	})
	if err != nil {
		t.Fatalf("utility->security with zero rate: %v", err)
	}
	if res.Quote.AmountOut != "0" {
		t.Fatalf("amountOut = %s, want 0", res.Quote.AmountOut)
	}
}

// Truncated division must floor, never round.
func TestFeeFloors(t *testing.T) {
	// 3 units at 1 bp: 3*1/10000 floors to 0.
	fee := feeOf(uint256.NewInt(3), 1)
	if !fee.IsZero() {
		t.Fatalf("fee = %s, want 0", fee.Dec())
	}
	// 19999 units at 1 bp: 19999/10000 floors to 1.
	fee = feeOf(uint256.NewInt(19999), 1)
	if fee.Dec() != "1" {
		t.Fatalf("fee = %s, want 1", fee.Dec())
	}
}
