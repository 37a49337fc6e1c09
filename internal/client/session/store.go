package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophstore/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophstore/internal/common"
	"github.com/dmitrijs2005/gophstore/internal/dbx"
)

// CredentialStore persists the bearer token. Token returns "" when none is
// stored.
type CredentialStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// SQLiteStore keeps the token in the metadata table under common.TokenKey,
// next to the name of the user it was issued to.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) repo(tx dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(tx)
}

func (s *SQLiteStore) Token(ctx context.Context) (string, error) {
	v, err := s.repo(s.db).Get(ctx, common.TokenKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *SQLiteStore) SetToken(ctx context.Context, token string) error {
	return s.repo(s.db).Set(ctx, common.TokenKey, []byte(token))
}

// ClearToken forgets the token and the username stored with it.
func (s *SQLiteStore) ClearToken(ctx context.Context) error {
	return s.repo(s.db).Delete(ctx, common.TokenKey, common.UsernameKey)
}

// Forget removes every value of the metadata table, the session included.
func (s *SQLiteStore) Forget(ctx context.Context) error {
	if err := s.repo(s.db).Clear(ctx); err != nil {
		return fmt.Errorf("failed to forget local data: %w", err)
	}
	return nil
}

// SaveSession stores token and username in one transaction.
func (s *SQLiteStore) SaveSession(ctx context.Context, username, token string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repo(tx)
		if err := r.Set(ctx, common.TokenKey, []byte(token)); err != nil {
			return err
		}
		return r.Set(ctx, common.UsernameKey, []byte(username))
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Username returns the user the stored token belongs to, or "".
func (s *SQLiteStore) Username(ctx context.Context) (string, error) {
	v, err := s.repo(s.db).Get(ctx, common.UsernameKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}
