// Package authz gates the security-token side of a swap. Utility-only legs
// are never checked here.
package authz

import (
	"strings"

	"github.com/kaeptnchris246/eut-v1-sub002/internal/token"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/apperr"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/authn"
)

var privilegedRoles = map[string]struct{}{
	authn.RoleAdmin:      {},
	authn.RoleSPVManager: {},
}

// Authorize decides whether the wallet/role pair may trade the given security
// token. A non-empty allowlist is authoritative: the wallet must be a member.
// With no allowlist the caller's role must be privileged.
func Authorize(security *token.Definition, walletAddress, role string) error {
	if len(security.Allowlist) > 0 {
		if !security.Allowlisted(strings.ToLower(walletAddress)) {
			return apperr.Forbidden("wallet is not approved for " + security.Symbol)
		}
		return nil
	}
	if _, ok := privilegedRoles[role]; !ok {
		return apperr.Forbidden("role is not permitted to trade " + security.Symbol)
	}
	return nil
}
