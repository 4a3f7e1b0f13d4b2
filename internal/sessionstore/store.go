// Package sessionstore persists the judge session cookies between runs of
// the CLI, keyed by profile, together with a history of successful logins.
package sessionstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"ejudge-client/internal/components/assert"
	"ejudge-client/internal/components/telemetry"
)

//go:embed schema.sql
var Schema string

const (
	report_store_save  = "save"
	report_store_login = "login"
)

// Store implements ejudge.SessionSink and ejudge.LoginObserver.
type Store struct {
	db      *sql.DB
	profile string
	now     func() time.Time
	tel     telemetry.API
}

func NewStore(ctx context.Context, db *sql.DB, profile string, tel telemetry.API) (*Store, error) {
	assert.NotNil(db, "db")
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(profile, "profile")

	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: apply schema: %w", err)
	}
	return &Store{
		db:      db,
		profile: profile,
		now:     time.Now,
		tel:     telemetry.NewScopedAPI("sessionstore", tel),
	}, nil
}

// Load returns the cookies saved for the profile, in the order they were
// saved. A profile without a session yields an empty slice.
func (s *Store) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select raw from session_cookie where profile = ? order by position",
		s.profile,
	)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: load: %w", err)
	}
	defer rows.Close()

	cookies := []string{}
	for rows.Next() {
		var raw string
		err := rows.Scan(&raw)
		if err != nil {
			return nil, fmt.Errorf("sessionstore: load: %w", err)
		}
		cookies = append(cookies, raw)
	}
	return cookies, rows.Err()
}

// Save replaces the saved cookies of the profile.
func (s *Store) Save(ctx context.Context, cookies []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sessionstore: save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from session_cookie where profile = ?", s.profile)
	if err != nil {
		return fmt.Errorf("sessionstore: save: %w", err)
	}
	for i, raw := range cookies {
		_, err = tx.ExecContext(
			ctx,
			"insert into session_cookie (profile, position, raw) values (?, ?, ?)",
			s.profile, i, raw,
		)
		if err != nil {
			return fmt.Errorf("sessionstore: save: %w", err)
		}
	}
	return tx.Commit()
}

// Clear forgets the saved session of the profile.
func (s *Store) Clear(ctx context.Context) error {
	return s.Save(ctx, nil)
}

func (s *Store) SessionChanged(cookies []string) {
	err := s.Save(context.Background(), cookies)
	if err != nil {
		s.tel.ReportBroken(report_store_save, err)
		return
	}
	s.tel.ReportDebug("session saved", s.profile, len(cookies))
}

func (s *Store) LoginSucceeded() {
	_, err := s.db.Exec(
		"insert into login_event (profile, logged_in_at) values (?, ?)",
		s.profile, s.now().Unix(),
	)
	if err != nil {
		s.tel.ReportBroken(report_store_login, err)
	}
}

// Logins returns the times of the last `limit` successful logins of the
// profile, newest first.
func (s *Store) Logins(ctx context.Context, limit int) ([]time.Time, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select logged_in_at from login_event where profile = ? order by logged_in_at desc, id desc limit ?",
		s.profile, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: logins: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var unix int64
		err := rows.Scan(&unix)
		if err != nil {
			return nil, fmt.Errorf("sessionstore: logins: %w", err)
		}
		out = append(out, time.Unix(unix, 0))
	}
	return out, rows.Err()
}
