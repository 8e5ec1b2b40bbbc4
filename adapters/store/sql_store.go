package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Timestamps are stored as unix milliseconds so that expiry comparisons are
// plain integer comparisons on every dialect.

type challengeRecord struct {
	bun.BaseModel `bun:"table:challenges"`

	Identity    string `bun:"identity,pk"`
	ChallengeID string `bun:"challenge_id,notnull"`
	Message     string `bun:"message,notnull"`
	IssuedAt    int64  `bun:"issued_at,notnull"`
	ExpiresAt   int64  `bun:"expires_at,notnull"`
}

type sessionRecord struct {
	bun.BaseModel `bun:"table:sessions"`

	ID        string `bun:"id,pk"`
	Identity  string `bun:"identity,notnull"`
	Profile   string `bun:"profile"`
	IssuedAt  int64  `bun:"issued_at,notnull"`
	ExpiresAt int64  `bun:"expires_at,notnull"` // 0 means no expiry
}

type revocationRecord struct {
	bun.BaseModel `bun:"table:revoked_tokens"`

	TokenID   string `bun:"token_id,pk"`
	ExpiresAt int64  `bun:"expires_at,notnull"`
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// OpenSQLite opens a bun database on top of the sqlite shim driver.
// A single connection keeps sqlite writers from tripping over each other.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates the tables used by the SQL stores
func Migrate(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*challengeRecord)(nil),
		(*sessionRecord)(nil),
		(*revocationRecord)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return storageErr("create table", err)
		}
	}
	return nil
}

// SQLChallengeStore is a bun implementation of ports.ChallengeStore
type SQLChallengeStore struct {
	db    *bun.DB
	clock ports.Clock
}

// NewSQLChallengeStore creates a new SQL challenge store
func NewSQLChallengeStore(db *bun.DB, clock ports.Clock) *SQLChallengeStore {
	return &SQLChallengeStore{db: db, clock: clock}
}

// Set upserts the challenge, replacing any pending one for the same identity
func (s *SQLChallengeStore) Set(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error {
	rec := &challengeRecord{
		Identity:    challenge.Identity.String(),
		ChallengeID: challenge.ID,
		Message:     challenge.Message,
		IssuedAt:    toMillis(challenge.IssuedAt),
		ExpiresAt:   toMillis(s.clock.Now().Add(ttl)),
	}

	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (identity) DO UPDATE").
		Set("challenge_id = EXCLUDED.challenge_id").
		Set("message = EXCLUDED.message").
		Set("issued_at = EXCLUDED.issued_at").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return storageErr("save challenge", err)
	}

	return nil
}

// Get returns the pending challenge for identity, dropping it if expired
func (s *SQLChallengeStore) Get(ctx context.Context, identity core.Identity) (*core.Challenge, error) {
	var challenge *core.Challenge
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rec, err := s.load(ctx, tx, identity)
		if err != nil {
			return err
		}
		if rec.ExpiresAt <= toMillis(s.clock.Now()) {
			_, err := s.remove(ctx, tx, rec)
			return err
		}
		challenge = rec.toChallenge()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, core.ErrNoChallenge
	}
	return challenge, nil
}

// Take reads and deletes the pending challenge inside one transaction.
// The delete is conditional on the challenge id so only one caller wins.
func (s *SQLChallengeStore) Take(ctx context.Context, identity core.Identity) (*core.Challenge, error) {
	var challenge *core.Challenge
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rec, err := s.load(ctx, tx, identity)
		if err != nil {
			return err
		}
		removed, err := s.remove(ctx, tx, rec)
		if err != nil {
			return err
		}
		if removed && rec.ExpiresAt > toMillis(s.clock.Now()) {
			challenge = rec.toChallenge()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, core.ErrNoChallenge
	}
	return challenge, nil
}

// Delete removes the pending challenge for identity
func (s *SQLChallengeStore) Delete(ctx context.Context, identity core.Identity) error {
	_, err := s.db.NewDelete().
		Model((*challengeRecord)(nil)).
		Where("identity = ?", identity.String()).
		Exec(ctx)
	if err != nil {
		return storageErr("delete challenge", err)
	}
	return nil
}

// Sweep deletes every expired challenge
func (s *SQLChallengeStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.NewDelete().
		Model((*challengeRecord)(nil)).
		Where("expires_at <= ?", toMillis(s.clock.Now())).
		Exec(ctx)
	if err != nil {
		return 0, storageErr("delete expired challenges", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLChallengeStore) load(ctx context.Context, tx bun.Tx, identity core.Identity) (*challengeRecord, error) {
	rec := new(challengeRecord)
	err := tx.NewSelect().
		Model(rec).
		Where("identity = ?", identity.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNoChallenge
		}
		return nil, storageErr("get challenge", err)
	}
	return rec, nil
}

func (s *SQLChallengeStore) remove(ctx context.Context, tx bun.Tx, rec *challengeRecord) (bool, error) {
	res, err := tx.NewDelete().
		Model((*challengeRecord)(nil)).
		Where("identity = ?", rec.Identity).
		Where("challenge_id = ?", rec.ChallengeID).
		Exec(ctx)
	if err != nil {
		return false, storageErr("delete challenge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete challenge", err)
	}
	return n == 1, nil
}

func (r *challengeRecord) toChallenge() *core.Challenge {
	return &core.Challenge{
		ID:        r.ChallengeID,
		Identity:  core.Identity(r.Identity),
		Message:   r.Message,
		IssuedAt:  fromMillis(r.IssuedAt),
		ExpiresAt: fromMillis(r.ExpiresAt),
	}
}

// SQLSessionStore is a bun implementation of ports.SessionStore
type SQLSessionStore struct {
	db    *bun.DB
	clock ports.Clock
}

// NewSQLSessionStore creates a new SQL session store
func NewSQLSessionStore(db *bun.DB, clock ports.Clock) *SQLSessionStore {
	return &SQLSessionStore{db: db, clock: clock}
}

// Save inserts the session record
func (s *SQLSessionStore) Save(ctx context.Context, session *core.Session) error {
	profile, err := json.Marshal(session.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	rec := &sessionRecord{
		ID:        session.ID,
		Identity:  session.Identity.String(),
		Profile:   string(profile),
		IssuedAt:  toMillis(session.IssuedAt),
		ExpiresAt: toMillis(session.ExpiresAt),
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return storageErr("save session", err)
	}
	return nil
}

// Load returns the session or nil when it is absent or expired
func (s *SQLSessionStore) Load(ctx context.Context, sessionID string) (*core.Session, error) {
	rec := new(sessionRecord)
	err := s.db.NewSelect().Model(rec).Where("id = ?", sessionID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("load session", err)
	}

	session := &core.Session{
		ID:        rec.ID,
		Identity:  core.Identity(rec.Identity),
		IssuedAt:  fromMillis(rec.IssuedAt),
		ExpiresAt: fromMillis(rec.ExpiresAt),
	}
	if session.ExpiredAt(s.clock.Now()) {
		return nil, nil
	}
	if rec.Profile != "" {
		if err := json.Unmarshal([]byte(rec.Profile), &session.Profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
		}
	}

	return session, nil
}

// Delete removes the session
func (s *SQLSessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.NewDelete().Model((*sessionRecord)(nil)).Where("id = ?", sessionID).Exec(ctx)
	if err != nil {
		return storageErr("delete session", err)
	}
	return nil
}

// Sweep deletes every expired session
func (s *SQLSessionStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("expires_at > 0").
		Where("expires_at <= ?", toMillis(s.clock.Now())).
		Exec(ctx)
	if err != nil {
		return 0, storageErr("delete expired sessions", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SQLRevocationStore is a bun implementation of ports.RevocationStore
type SQLRevocationStore struct {
	db    *bun.DB
	clock ports.Clock
}

// NewSQLRevocationStore creates a new SQL revocation store
func NewSQLRevocationStore(db *bun.DB, clock ports.Clock) *SQLRevocationStore {
	return &SQLRevocationStore{db: db, clock: clock}
}

// InvalidateToken marks a token as invalidated
func (s *SQLRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	rec := &revocationRecord{
		TokenID:   tokenID,
		ExpiresAt: toMillis(s.clock.Now().Add(expiry)),
	}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (token_id) DO UPDATE").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return storageErr("invalidate token", err)
	}
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *SQLRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*revocationRecord)(nil)).
		Where("token_id = ?", tokenID).
		Where("expires_at > ?", toMillis(s.clock.Now())).
		Exists(ctx)
	if err != nil {
		return false, storageErr("check token invalidation", err)
	}
	return exists, nil
}

// Sweep deletes revocations of tokens that have expired anyway
func (s *SQLRevocationStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.NewDelete().
		Model((*revocationRecord)(nil)).
		Where("expires_at <= ?", toMillis(s.clock.Now())).
		Exec(ctx)
	if err != nil {
		return 0, storageErr("delete expired revocations", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
