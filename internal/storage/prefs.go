// Package storage persists per-member presentation preferences in a
// local sqlite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/saadx01/events-calender/internal/model"
)

type Store struct {
	db              *sql.DB
	defaultFontSize int
}

// New opens (creating if needed) the preferences database at dbPath.
// defaultFontSize is returned for members without a stored preference.
func New(dbPath string, defaultFontSize int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db, defaultFontSize: defaultFontSize}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			member TEXT PRIMARY KEY,
			bg_image TEXT NOT NULL DEFAULT '',
			font_size INTEGER NOT NULL DEFAULT 0,
			hidden_categories TEXT NOT NULL DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the member's preferences, falling back to defaults when
// no row exists.
func (s *Store) Get(member string) (model.Preferences, error) {
	prefs := model.Preferences{Member: member, FontSize: s.defaultFontSize}
	if member == "" {
		return prefs, errors.New("member is required")
	}

	var hidden string
	err := s.db.QueryRow(
		`SELECT bg_image, font_size, hidden_categories FROM preferences WHERE member = ?`,
		member,
	).Scan(&prefs.BgImage, &prefs.FontSize, &hidden)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("get preferences: %w", err)
	}

	if prefs.FontSize <= 0 {
		prefs.FontSize = s.defaultFontSize
	}
	if hidden != "" {
		prefs.HiddenCats = strings.Split(hidden, ",")
	}
	return prefs, nil
}

// Put stores the member's preferences, replacing any existing row.
func (s *Store) Put(prefs model.Preferences) error {
	if prefs.Member == "" {
		return errors.New("member is required")
	}
	for _, c := range prefs.HiddenCats {
		if strings.Contains(c, ",") {
			return fmt.Errorf("category %q contains a comma", c)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO preferences (member, bg_image, font_size, hidden_categories, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(member) DO UPDATE SET
			bg_image = excluded.bg_image,
			font_size = excluded.font_size,
			hidden_categories = excluded.hidden_categories,
			updated_at = CURRENT_TIMESTAMP`,
		prefs.Member, prefs.BgImage, prefs.FontSize, strings.Join(prefs.HiddenCats, ","),
	)
	if err != nil {
		return fmt.Errorf("put preferences: %w", err)
	}
	return nil
}
