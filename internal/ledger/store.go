package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kaeptnchris246/eut-v1-sub002/pkg/apperr"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/metrics"
)

const uniqueViolation = "23505"

const defaultCurrency = "EUR"

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

// --- funds ---

const fundColumns = `id, code, name, COALESCE(description,''), currency, target_amount::text, min_commitment::text, status, created_at`

func (s *Store) ListFunds(ctx context.Context) ([]Fund, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+fundColumns+` FROM funds ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Fund
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) GetFund(ctx context.Context, id string) (Fund, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+fundColumns+` FROM funds WHERE id=$1`, id)
	f, err := scanFund(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fund{}, apperr.NotFound("fund not found")
	}
	return f, err
}

// CreateFund inserts a fund, defaulting currency and status. The code must be
// unique across funds.
func (s *Store) CreateFund(ctx context.Context, spec FundSpec) (Fund, error) {
	if spec.Code == "" || spec.Name == "" {
		return Fund{}, apperr.BadRequest("fund code and name are required")
	}
	if !spec.TargetAmount.IsPositive() {
		return Fund{}, apperr.BadRequest("target amount must be positive")
	}
	if !spec.MinCommitment.IsPositive() {
		return Fund{}, apperr.BadRequest("minimum commitment must be positive")
	}
	if spec.Currency == "" {
		spec.Currency = defaultCurrency
	}
	if spec.Status == "" {
		spec.Status = FundOpen
	}
	if spec.Status != FundOpen && spec.Status != FundClosed {
		return Fund{}, apperr.BadRequest("invalid fund status: " + string(spec.Status))
	}

	id := "fund_" + uuid.NewString()
	var createdAt time.Time
	err := s.DB.QueryRow(ctx, `
INSERT INTO funds(id, code, name, description, currency, target_amount, min_commitment, status)
VALUES($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8)
RETURNING created_at`,
		id, spec.Code, spec.Name, spec.Description, spec.Currency,
		spec.TargetAmount.String(), spec.MinCommitment.String(), string(spec.Status),
	).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Fund{}, apperr.Conflict("fund code already exists: " + spec.Code)
		}
		return Fund{}, err
	}
	return Fund{
		ID:            id,
		Code:          spec.Code,
		Name:          spec.Name,
		Description:   spec.Description,
		Currency:      spec.Currency,
		TargetAmount:  spec.TargetAmount,
		MinCommitment: spec.MinCommitment,
		Status:        spec.Status,
		CreatedAt:     createdAt,
	}, nil
}

// --- commitments ---

// Reserve creates a commitment against an open fund and appends the reserve
// transaction in the same database transaction.
func (s *Store) Reserve(ctx context.Context, userID, fundID string, amount decimal.Decimal) (Commitment, error) {
	if !amount.IsPositive() {
		return Commitment{}, apperr.BadRequest("amount must be positive")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Commitment{}, err
	}
	defer tx.Rollback(ctx)

	var status FundStatus
	var minCommitment string
	err = tx.QueryRow(ctx, `SELECT status, min_commitment::text FROM funds WHERE id=$1`, fundID).
		Scan(&status, &minCommitment)
	if errors.Is(err, pgx.ErrNoRows) {
		return Commitment{}, apperr.NotFound("fund not found")
	}
	if err != nil {
		return Commitment{}, err
	}
	if status != FundOpen {
		return Commitment{}, apperr.BadRequest("fund is not open for commitments")
	}
	min, err := decimal.NewFromString(minCommitment)
	if err != nil {
		return Commitment{}, err
	}
	if amount.LessThan(min) {
		return Commitment{}, apperr.BadRequest("amount is below the fund minimum commitment of " + min.String())
	}

	c := Commitment{
		ID:     "cmt_" + uuid.NewString(),
		FundID: fundID,
		UserID: userID,
		Amount: amount,
		Status: StatusReserved,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO commitments(id, fund_id, user_id, amount, status)
VALUES($1,$2,$3,$4,$5)
RETURNING created_at`,
		c.ID, c.FundID, c.UserID, c.Amount.String(), string(c.Status),
	).Scan(&c.CreatedAt)
	if err != nil {
		return Commitment{}, err
	}

	if err := appendTransaction(ctx, tx, TxReserve, c, nil); err != nil {
		return Commitment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Commitment{}, err
	}
	metrics.CommitmentTransitions.WithLabelValues(string(TxReserve)).Inc()
	return c, nil
}

// Confirm moves a reserved commitment to confirmed. The commitment is
// re-read under a row lock so a concurrent transition on the same row fails
// its precondition here, not on a stale pre-transaction view.
func (s *Store) Confirm(ctx context.Context, userID, commitmentID string) (Commitment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Commitment{}, err
	}
	defer tx.Rollback(ctx)

	c, err := lockCommitment(ctx, tx, userID, commitmentID)
	if err != nil {
		return Commitment{}, err
	}
	if err := confirmable(c.Status); err != nil {
		return Commitment{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE commitments SET status=$1 WHERE id=$2`, string(StatusConfirmed), c.ID); err != nil {
		return Commitment{}, err
	}
	c.Status = StatusConfirmed
	if err := appendTransaction(ctx, tx, TxConfirm, c, nil); err != nil {
		return Commitment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Commitment{}, err
	}
	metrics.CommitmentTransitions.WithLabelValues(string(TxConfirm)).Inc()
	return c, nil
}

// Cancel moves a reserved commitment to cancelled and records a refund entry
// for its amount. Cancelling an already-cancelled commitment returns it
// unchanged without a new ledger row. The refund is a bookkeeping reversal;
// no settlement check is performed here (reconciled off-platform).
func (s *Store) Cancel(ctx context.Context, userID, commitmentID string) (Commitment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Commitment{}, err
	}
	defer tx.Rollback(ctx)

	c, err := lockCommitment(ctx, tx, userID, commitmentID)
	if err != nil {
		return Commitment{}, err
	}
	decision, err := cancellable(c.Status)
	if err != nil {
		return Commitment{}, err
	}
	if decision == cancelNoop {
		return c, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE commitments SET status=$1 WHERE id=$2`, string(StatusCancelled), c.ID); err != nil {
		return Commitment{}, err
	}
	c.Status = StatusCancelled
	if err := appendTransaction(ctx, tx, TxRefund, c, map[string]any{"reason": "commitment cancelled"}); err != nil {
		return Commitment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Commitment{}, err
	}
	metrics.CommitmentTransitions.WithLabelValues(string(TxRefund)).Inc()
	return c, nil
}

// ListForUser returns the caller's commitments, most recent first.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]Commitment, error) {
	rows, err := s.DB.Query(ctx, `
SELECT id, fund_id, user_id, amount::text, status, created_at
FROM commitments WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// lockCommitment loads a commitment scoped to its owner with FOR UPDATE.
// Commitments owned by other users report not found, so existence does not
// leak across users.
func lockCommitment(ctx context.Context, tx pgx.Tx, userID, commitmentID string) (Commitment, error) {
	row := tx.QueryRow(ctx, `
SELECT id, fund_id, user_id, amount::text, status, created_at
FROM commitments WHERE id=$1 AND user_id=$2
FOR UPDATE`, commitmentID, userID)
	c, err := scanCommitment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Commitment{}, apperr.NotFound("commitment not found")
	}
	return c, err
}

// --- transaction log ---

// ListTransactionsForUser returns the caller's ledger entries, most recent
// first.
func (s *Store) ListTransactionsForUser(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := s.DB.Query(ctx, `
SELECT id, commitment_id, user_id, fund_id, type, amount::text, meta, created_at
FROM transactions WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		var amount string
		var meta []byte
		if err := rows.Scan(&t.ID, &t.CommitmentID, &t.UserID, &t.FundID, &t.Type, &amount, &meta, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(meta, &t.Meta)
		out = append(out, t)
	}
	return out, rows.Err()
}

// appendTransaction writes one audit row inside the caller's transaction.
func appendTransaction(ctx context.Context, tx pgx.Tx, typ TransactionType, c Commitment, meta map[string]any) error {
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
INSERT INTO transactions(id, commitment_id, user_id, fund_id, type, amount, meta)
VALUES($1,$2,$3,$4,$5,$6,$7::jsonb)`,
		"txn_"+uuid.NewString(), c.ID, c.UserID, c.FundID, string(typ), c.Amount.String(), string(b))
	return err
}

// --- scanning ---

type rowScanner interface{ Scan(dest ...any) error }

func scanFund(row rowScanner) (Fund, error) {
	var f Fund
	var target, min string
	if err := row.Scan(&f.ID, &f.Code, &f.Name, &f.Description, &f.Currency, &target, &min, &f.Status, &f.CreatedAt); err != nil {
		return Fund{}, err
	}
	var err error
	if f.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return Fund{}, err
	}
	if f.MinCommitment, err = decimal.NewFromString(min); err != nil {
		return Fund{}, err
	}
	return f, nil
}

func scanCommitment(row rowScanner) (Commitment, error) {
	var c Commitment
	var amount string
	if err := row.Scan(&c.ID, &c.FundID, &c.UserID, &amount, &c.Status, &c.CreatedAt); err != nil {
		return Commitment{}, err
	}
	var err error
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return Commitment{}, err
	}
	return c, nil
}
