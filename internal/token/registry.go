// Package token holds the static definitions of tradable tokens. A Registry
// is built once from flat key/value configuration and is immutable afterwards;
// refreshes replace the whole value so concurrent readers never observe a
// partially built table.
package token

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/kaeptnchris246/eut-v1-sub002/internal/fixedpoint"
)

type Type string

const (
	Utility  Type = "utility"
	Security Type = "security"
)

// Definition describes one tradable token. Rate is the conversion rate
// against the utility token, scaled by 10^18 (10^18 means parity).
type Definition struct {
	ID        string
	Name      string
	Symbol    string
	Address   string
	Decimals  int
	Type      Type
	ChainID   int64
	Rate      *uint256.Int
	Allowlist map[string]struct{}
}

// Allowlisted reports membership case-insensitively. An empty allowlist means
// the token carries no address restriction.
func (d *Definition) Allowlisted(address string) bool {
	_, ok := d.Allowlist[strings.ToLower(address)]
	return ok
}

// Public is the externally rendered token shape. The rate is a decimal
// string; the scaled integer never leaves the process.
type Public struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	Type     Type   `json:"type"`
	ChainID  int64  `json:"chainId"`
	Rate     string `json:"rate"`
}

func (d *Definition) Public() Public {
	return Public{
		ID:       d.ID,
		Name:     d.Name,
		Symbol:   d.Symbol,
		Address:  d.Address,
		Decimals: d.Decimals,
		Type:     d.Type,
		ChainID:  d.ChainID,
		Rate:     fixedpoint.Format(d.Rate, fixedpoint.ScaleDecimals),
	}
}

// Registry exposes O(1) lookup by lowercase address or uppercase identifier.
type Registry struct {
	byAddress map[string]*Definition
	byID      map[string]*Definition
	utility   *Definition
}

// NewRegistry builds a registry from explicit definitions. Build is the
// production path; this constructor exists for wiring and tests.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{
		byAddress: make(map[string]*Definition, len(defs)),
		byID:      make(map[string]*Definition, len(defs)),
	}
	for _, def := range defs {
		r.add(def)
	}
	return r
}

// Build constructs a registry from flat configuration entries. getenv is the
// entry source (normally os.Getenv). Configuration shape:
//
//	EUT_TOKEN_ADDRESS / _NAME / _SYMBOL / _DECIMALS / _CHAIN_ID
//	SECURITY_TOKENS=CODE1,CODE2
//	TOKEN_<CODE>_ADDRESS / _NAME / _SYMBOL / _DECIMALS / _CHAIN_ID / _RATE / _ALLOWLIST
//
// Security tokens without an address are skipped. A rate that fails to parse
// or is not positive falls back to parity.
func Build(getenv func(string) string) (*Registry, error) {
	r := NewRegistry()

	utilityChain := parseChainID(getenv("EUT_TOKEN_CHAIN_ID"), 1)
	if addr := strings.TrimSpace(getenv("EUT_TOKEN_ADDRESS")); addr != "" {
		def := &Definition{
			ID:        "EUT",
			Name:      valueOr(getenv("EUT_TOKEN_NAME"), "EUT Utility Token"),
			Symbol:    valueOr(getenv("EUT_TOKEN_SYMBOL"), "EUT"),
			Address:   addr,
			Decimals:  parseDecimals(getenv("EUT_TOKEN_DECIMALS")),
			Type:      Utility,
			ChainID:   utilityChain,
			Rate:      new(uint256.Int).Set(fixedpoint.Scale),
			Allowlist: map[string]struct{}{},
		}
		r.add(def)
	}

	for _, code := range strings.Split(getenv("SECURITY_TOKENS"), ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		prefix := "TOKEN_" + code + "_"
		addr := strings.TrimSpace(getenv(prefix + "ADDRESS"))
		if addr == "" {
			continue
		}
		def := &Definition{
			ID:        code,
			Name:      valueOr(getenv(prefix+"NAME"), code),
			Symbol:    valueOr(getenv(prefix+"SYMBOL"), code),
			Address:   addr,
			Decimals:  parseDecimals(getenv(prefix + "DECIMALS")),
			Type:      Security,
			ChainID:   parseChainID(getenv(prefix+"CHAIN_ID"), utilityChain),
			Rate:      parseRate(getenv(prefix + "RATE")),
			Allowlist: parseAllowlist(getenv(prefix + "ALLOWLIST")),
		}
		r.add(def)
	}

	if len(r.byID) == 0 {
		return nil, fmt.Errorf("no tokens configured")
	}
	return r, nil
}

func (r *Registry) add(def *Definition) {
	r.byAddress[strings.ToLower(def.Address)] = def
	r.byID[strings.ToUpper(def.ID)] = def
	if def.Type == Utility {
		r.utility = def
	}
}

// ByAddress looks a token up by its chain-native address, case-insensitively.
func (r *Registry) ByAddress(address string) (*Definition, bool) {
	def, ok := r.byAddress[strings.ToLower(address)]
	return def, ok
}

// ByID looks a token up by its short identifier, case-insensitively.
func (r *Registry) ByID(id string) (*Definition, bool) {
	def, ok := r.byID[strings.ToUpper(id)]
	return def, ok
}

// Utility returns the configured utility token, or nil if none is configured.
func (r *Registry) Utility() *Definition { return r.utility }

// All renders every token for external consumption, ordered by identifier.
func (r *Registry) All() []Public {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Public, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id].Public())
	}
	return out
}

func valueOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func parseDecimals(raw string) int {
	d, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || d < 0 || d > 18 {
		return 18
	}
	return d
}

func parseChainID(raw string, fallback int64) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return fallback
	}
	return id
}

// parseRate reads a decimal rate (e.g. "2", "0.5") at 18-decimal scale.
// Unparsable or non-positive values fall back to parity.
func parseRate(raw string) *uint256.Int {
	rate, err := fixedpoint.Parse(strings.TrimSpace(raw), fixedpoint.ScaleDecimals)
	if err != nil || rate.IsZero() {
		return new(uint256.Int).Set(fixedpoint.Scale)
	}
	return rate
}

func parseAllowlist(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, addr := range strings.Split(raw, ",") {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr != "" {
			out[addr] = struct{}{}
		}
	}
	return out
}
