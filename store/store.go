// Package store is the hosted persistence tier: user records keyed by wallet
// address, proofs with factors encrypted at rest, share grants, and renewal
// reminders.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/privycredit/privycredit/types"
	"github.com/privycredit/privycredit/utils"
)

//go:embed schema.sql
var schemaSQL string

type User struct {
	ID            uuid.UUID
	WalletAddress string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderCancelled ReminderStatus = "cancelled"
)

type Reminder struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	RemindAt  time.Time
	Status    ReminderStatus
	CreatedAt time.Time
}

// Store wraps a SQLite database. SQLite allows one writer at a time, so the
// pool is pinned to a single connection.
type Store struct {
	db  *sql.DB
	key []byte // factors-at-rest encryption key
	now func() time.Time
}

// Open creates or opens the database at path. key must be 32 bytes; it seals
// factor bands before they are written. Idempotent.
func Open(path string, key []byte) (*Store, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("store key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, key: key, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetClock overrides the store's time source. Test use only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

//
// users
//

// UpsertUser issues an anonymous identity for a wallet address, or refreshes
// the existing one. Addresses are stored lowercase.
func (s *Store) UpsertUser(ctx context.Context, addr common.Address) (*User, error) {
	now := s.now().UTC()
	lower := strings.ToLower(addr.Hex())

	var u User
	var created, updated int64
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM users WHERE wallet_address = ?`, lower,
	).Scan(&id, &created, &updated)
	switch {
	case err == nil:
		if _, err := s.db.ExecContext(ctx,
			`UPDATE users SET updated_at = ? WHERE id = ?`, now.Unix(), id,
		); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		u.ID = uuid.MustParse(id)
		u.CreatedAt = time.Unix(created, 0).UTC()
		u.UpdatedAt = now
	case errors.Is(err, sql.ErrNoRows):
		u.ID = uuid.New()
		u.CreatedAt = now
		u.UpdatedAt = now
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, wallet_address, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			u.ID.String(), lower, now.Unix(), now.Unix(),
		); err != nil {
			return nil, fmt.Errorf("insert user: %w", err)
		}
	default:
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	u.WalletAddress = lower
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, addr common.Address) (*User, error) {
	lower := strings.ToLower(addr.Hex())
	var id string
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM users WHERE wallet_address = ?`, lower,
	).Scan(&id, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &User{
		ID:            uuid.MustParse(id),
		WalletAddress: lower,
		CreatedAt:     time.Unix(created, 0).UTC(),
		UpdatedAt:     time.Unix(updated, 0).UTC(),
	}, nil
}

//
// proofs
//

// PutProof persists a completed proof. The factor bands are sealed with the
// store key and bound to the proof id; only ciphertext reaches disk.
func (s *Store) PutProof(ctx context.Context, p *types.Proof) error {
	nonce := utils.RandBytes(chacha20poly1305.NonceSize)
	cipher, err := encryptFactors(s.key, nonce, p.Factors.Bytes(), p.ID.Bytes())
	if err != nil {
		return fmt.Errorf("seal factors: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO proofs (id, wallet_address, epoch, factors_nonce, factors_cipher, commitment, anchor_tx, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.Hex(),
		strings.ToLower(p.Owner.Hex()),
		int64(p.Epoch),
		nonce,
		cipher,
		p.Commitment.Hex(),
		anchorHex(p),
		p.CreatedAt.UTC().Unix(),
		p.ExpiresAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert proof: %w", err)
	}
	return nil
}

// GetProof resolves a stored proof by id. Satisfies share.ProofSource.
func (s *Store) GetProof(ctx context.Context, id common.Hash) (*types.Proof, error) {
	var walletHex, commitmentHex, anchorTxHex string
	var epoch, createdAt, expiresAt int64
	var nonce, cipher []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT wallet_address, epoch, factors_nonce, factors_cipher, commitment, anchor_tx, created_at, expires_at
		 FROM proofs WHERE id = ?`, id.Hex(),
	).Scan(&walletHex, &epoch, &nonce, &cipher, &commitmentHex, &anchorTxHex, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup proof: %w", err)
	}

	plain, err := decryptFactors(s.key, nonce, cipher, id.Bytes())
	if err != nil {
		return nil, err
	}
	if len(plain) != 3 {
		return nil, fmt.Errorf("malformed factor bands: got %d bytes", len(plain))
	}
	factors := types.Factors{
		Stability: types.Band(plain[0]),
		Inflows:   types.Band(plain[1]),
		Risk:      types.Band(plain[2]),
	}
	if !factors.Valid() {
		return nil, fmt.Errorf("malformed factor bands: %x", plain)
	}

	p := &types.Proof{
		ID:         id,
		Owner:      common.HexToAddress(walletHex),
		Epoch:      uint64(epoch),
		Factors:    factors,
		Commitment: common.HexToHash(commitmentHex),
		CreatedAt:  time.Unix(createdAt, 0).UTC(),
		ExpiresAt:  time.Unix(expiresAt, 0).UTC(),
	}
	if anchorTxHex != "" {
		p.AnchorTxHash = common.HexToHash(anchorTxHex)
	}
	return p, nil
}

// ListProofs returns the stored proofs for one wallet, newest first.
func (s *Store) ListProofs(ctx context.Context, owner common.Address) ([]*types.Proof, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM proofs WHERE wallet_address = ? ORDER BY created_at DESC`,
		strings.ToLower(owner.Hex()),
	)
	if err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}
	defer rows.Close()

	var ids []common.Hash
	for rows.Next() {
		var idHex string
		if err := rows.Scan(&idHex); err != nil {
			return nil, fmt.Errorf("scan proof id: %w", err)
		}
		ids = append(ids, common.HexToHash(idHex))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	proofs := make([]*types.Proof, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProof(ctx, id)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}
	return proofs, nil
}

//
// share grants: Store satisfies share.GrantStore
//

func (s *Store) Put(ctx context.Context, grant *types.ShareGrant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shares (token, proof_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		grant.Token,
		grant.ProofID.Hex(),
		grant.CreatedAt.UTC().Unix(),
		grant.ExpiresAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, token string) (*types.ShareGrant, error) {
	var proofIDHex, consumedBy string
	var createdAt, expiresAt int64
	var consumedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT proof_id, created_at, expires_at, consumed_by, consumed_at FROM shares WHERE token = ?`, token,
	).Scan(&proofIDHex, &createdAt, &expiresAt, &consumedBy, &consumedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup grant: %w", err)
	}

	grant := &types.ShareGrant{
		Token:      token,
		ProofID:    common.HexToHash(proofIDHex),
		CreatedAt:  time.Unix(createdAt, 0).UTC(),
		ExpiresAt:  time.Unix(expiresAt, 0).UTC(),
		ConsumedBy: consumedBy,
	}
	if consumedAt.Valid {
		at := time.Unix(consumedAt.Int64, 0).UTC()
		grant.ConsumedAt = &at
	}
	return grant, nil
}

func (s *Store) MarkConsumed(ctx context.Context, token, verifier string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shares SET consumed_by = ?, consumed_at = ? WHERE token = ?`,
		verifier, at.UTC().Unix(), token,
	)
	if err != nil {
		return fmt.Errorf("mark grant consumed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

//
// reminders
//

func (s *Store) CreateReminder(ctx context.Context, userID uuid.UUID, remindAt time.Time) (*Reminder, error) {
	r := &Reminder{
		ID:        uuid.New(),
		UserID:    userID,
		RemindAt:  remindAt.UTC(),
		Status:    ReminderPending,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (id, user_id, remind_at, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID.String(), r.UserID.String(), r.RemindAt.Unix(), string(r.Status), r.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	return r, nil
}

func (s *Store) ListReminders(ctx context.Context, userID uuid.UUID) ([]*Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, remind_at, status, created_at FROM reminders WHERE user_id = ? ORDER BY remind_at`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []*Reminder
	for rows.Next() {
		var idStr, status string
		var remindAt, createdAt int64
		if err := rows.Scan(&idStr, &remindAt, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, &Reminder{
			ID:        uuid.MustParse(idStr),
			UserID:    userID,
			RemindAt:  time.Unix(remindAt, 0).UTC(),
			Status:    ReminderStatus(status),
			CreatedAt: time.Unix(createdAt, 0).UTC(),
		})
	}
	return out, rows.Err()
}

func (s *Store) SetReminderStatus(ctx context.Context, id uuid.UUID, status ReminderStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET status = ? WHERE id = ?`, string(status), id.String(),
	)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func anchorHex(p *types.Proof) string {
	if !p.Anchored() {
		return ""
	}
	return p.AnchorTxHash.Hex()
}
