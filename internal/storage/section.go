package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// SectionStore implements domain.SectionRepository using SQLite.
type SectionStore struct {
	db *DB
}

func NewSectionStore(db *DB) *SectionStore {
	return &SectionStore{db: db}
}

// ListSections returns the page's sections in order.
func (s *SectionStore) ListSections(pageID string) ([]domain.Section, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, type, sort_order, content, settings_json FROM sections WHERE page_id = ? ORDER BY sort_order ASC`,
		pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []domain.Section
	for rows.Next() {
		var (
			sec      domain.Section
			settings string
		)
		if err := rows.Scan(&sec.ID, &sec.Type, &sec.Order, &sec.Content, &settings); err != nil {
			return nil, err
		}
		sec.Settings, err = domain.DecodeSettings(sec.Type, []byte(settings))
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// ReplacePageSections swaps the page's sections for the given list in one
// transaction. Stored order follows the list position.
func (s *SectionStore) ReplacePageSections(pageID string, sections []domain.Section) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sections WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("clear sections: %w", err)
	}
	now := time.Now()
	for i, sec := range sections {
		settings, err := json.Marshal(sec.Settings)
		if err != nil {
			return fmt.Errorf("encode section %s: %w", sec.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO sections (id, page_id, type, sort_order, content, settings_json, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sec.ID, pageID, sec.Type, i, sec.Content, string(settings), now,
		); err != nil {
			return fmt.Errorf("insert section %s: %w", sec.ID, err)
		}
	}
	if _, err := tx.Exec(`UPDATE pages SET updated_at = ? WHERE id = ?`, now, pageID); err != nil {
		return fmt.Errorf("touch page: %w", err)
	}
	return tx.Commit()
}

func (s *SectionStore) DeleteSectionsByPage(pageID string) error {
	_, err := s.db.conn.Exec(`DELETE FROM sections WHERE page_id = ?`, pageID)
	return err
}
