package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kaeptnchris246/eut-v1-sub002/internal/idempotency"
	"github.com/kaeptnchris246/eut-v1-sub002/internal/ledger"
	"github.com/kaeptnchris246/eut-v1-sub002/internal/swap"
	"github.com/kaeptnchris246/eut-v1-sub002/internal/token"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/apperr"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/authn"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/httpx"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/metrics"
)

type server struct {
	log    zerolog.Logger
	store  *ledger.Store
	tokens *token.Provider
	engine *swap.Engine
}

// fail logs infrastructure faults and renders the error envelope.
func (s *server) fail(w http.ResponseWriter, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		s.log.Error().Err(err).Msg("internal error")
	}
	httpx.WriteAppError(w, err)
}

func identity(w http.ResponseWriter, r *http.Request) (*authn.Identity, bool) {
	id, ok := authn.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
		return nil, false
	}
	return id, true
}

// --- funds ---

func (s *server) listFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := s.store.ListFunds(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if funds == nil {
		funds = []ledger.Fund{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"funds": funds})
}

func (s *server) getFund(w http.ResponseWriter, r *http.Request) {
	fund, err := s.store.GetFund(r.Context(), chi.URLParam(r, "fund_id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"fund": fund})
}

func (s *server) createFund(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if id.Role != authn.RoleAdmin {
		s.fail(w, apperr.Forbidden("only administrators can create funds"))
		return
	}
	var req struct {
		Code          string `json:"code"`
		Name          string `json:"name"`
		Description   string `json:"description"`
		Currency      string `json:"currency"`
		TargetAmount  string `json:"target_amount"`
		MinCommitment string `json:"min_commitment"`
		Status        string `json:"status"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, apperr.BadRequest("invalid request body"))
		return
	}
	target, err := decimal.NewFromString(req.TargetAmount)
	if err != nil {
		s.fail(w, apperr.BadRequest("invalid target amount"))
		return
	}
	min, err := decimal.NewFromString(req.MinCommitment)
	if err != nil {
		s.fail(w, apperr.BadRequest("invalid minimum commitment"))
		return
	}
	fund, err := s.store.CreateFund(r.Context(), ledger.FundSpec{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		Currency:      req.Currency,
		TargetAmount:  target,
		MinCommitment: min,
		Status:        ledger.FundStatus(req.Status),
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"fund": fund})
}

// --- commitments ---

func (s *server) reserveCommitment(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	fundID := chi.URLParam(r, "fund_id")
	endpoint := "POST /funds/{fund_id}/commitments"
	key := r.Header.Get("Idempotency-Key")

	if status, body, replayed, err := idempotency.Replay(r.Context(), s.store, id.UserID, key, endpoint); err != nil {
		s.fail(w, err)
		return
	} else if replayed {
		httpx.WriteJSON(w, status, body)
		return
	}

	var req struct {
		Amount string `json:"amount"`
	}
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, apperr.BadRequest("invalid request body"))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		s.fail(w, apperr.BadRequest("invalid amount: "+req.Amount))
		return
	}

	c, err := s.store.Reserve(r.Context(), id.UserID, fundID, amount)
	if err != nil {
		s.fail(w, err)
		return
	}

	body := map[string]any{"commitment": toMap(c)}
	if err := idempotency.Save(r.Context(), s.store, id.UserID, key, endpoint, http.StatusCreated, body); err != nil {
		s.log.Warn().Err(err).Msg("idempotency save failed")
	}
	httpx.WriteJSON(w, http.StatusCreated, body)
}

func (s *server) confirmCommitment(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	c, err := s.store.Confirm(r.Context(), id.UserID, chi.URLParam(r, "commitment_id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"commitment": c})
}

func (s *server) cancelCommitment(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	c, err := s.store.Cancel(r.Context(), id.UserID, chi.URLParam(r, "commitment_id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"commitment": c})
}

func (s *server) listCommitments(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	list, err := s.store.ListForUser(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if list == nil {
		list = []ledger.Commitment{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"commitments": list})
}

func (s *server) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	list, err := s.store.ListTransactionsForUser(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, err)
		return
	}
	if list == nil {
		list = []ledger.Transaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"transactions": list})
}

// --- tokens & swap ---

func (s *server) listTokens(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"tokens": s.tokens.Current().All()})
}

func (s *server) refreshTokens(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if id.Role != authn.RoleAdmin {
		s.fail(w, apperr.Forbidden("only administrators can refresh the token registry"))
		return
	}
	if err := s.tokens.Refresh(); err != nil {
		s.fail(w, apperr.BadRequest("token registry rebuild failed: "+err.Error()))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"tokens": s.tokens.Current().All()})
}

func (s *server) swapQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req swap.Request
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, apperr.BadRequest("invalid request body"))
		return
	}
	req.CallerRole = id.Role

	res, err := s.engine.Quote(req)
	if err != nil {
		metrics.SwapRejections.WithLabelValues(string(apperr.KindOf(err))).Inc()
		s.fail(w, err)
		return
	}
	metrics.SwapQuotes.WithLabelValues(res.Quote.Direction).Inc()
	httpx.WriteJSON(w, http.StatusOK, res)
}

// toMap renders a value through its JSON form, for idempotency storage.
func toMap(v any) map[string]any {
	b, _ := json.Marshal(v)
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	return out
}
