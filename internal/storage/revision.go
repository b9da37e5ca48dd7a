package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// DefaultMaxRevisions bounds the history kept per page.
const DefaultMaxRevisions = 40

// RevisionStore manages page revision history in SQLite.
type RevisionStore struct {
	db  *DB
	max int
}

func NewRevisionStore(db *DB, maxRevisions int) *RevisionStore {
	if maxRevisions <= 0 {
		maxRevisions = DefaultMaxRevisions
	}
	return &RevisionStore{db: db, max: maxRevisions}
}

// PushRevision records a snapshot and makes it the page's current revision.
func (s *RevisionStore) PushRevision(pageID, revisionID, label, snapshotJSON string) (*domain.Revision, error) {
	now := time.Now()
	_, err := s.db.conn.Exec(
		`INSERT INTO page_revisions (id, page_id, label, snapshot_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		revisionID, pageID, label, snapshotJSON, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}
	if err := s.GoTo(pageID, revisionID); err != nil {
		return nil, fmt.Errorf("update revision state: %w", err)
	}

	s.pruneIfNeeded(pageID)

	return &domain.Revision{
		ID:           revisionID,
		PageID:       pageID,
		Label:        label,
		SnapshotJSON: snapshotJSON,
		CreatedAt:    now,
	}, nil
}

// ListRevisions returns the page's history, newest first.
func (s *RevisionStore) ListRevisions(pageID string) ([]domain.Revision, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, page_id, label, snapshot_json, created_at
		 FROM page_revisions WHERE page_id = ? ORDER BY created_at DESC, rowid DESC`, pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("load revisions: %w", err)
	}
	defer rows.Close()

	var revs []domain.Revision
	for rows.Next() {
		var r domain.Revision
		if err := rows.Scan(&r.ID, &r.PageID, &r.Label, &r.SnapshotJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

func (s *RevisionStore) GetRevision(id string) (*domain.Revision, error) {
	r := &domain.Revision{}
	err := s.db.conn.QueryRow(
		`SELECT id, page_id, label, snapshot_json, created_at FROM page_revisions WHERE id = ?`, id,
	).Scan(&r.ID, &r.PageID, &r.Label, &r.SnapshotJSON, &r.CreatedAt)
	if err != nil {
		return nil, notFound("revision", id, err)
	}
	return r, nil
}

// CurrentRevision returns the id of the revision the page currently matches,
// or "" when it has no history.
func (s *RevisionStore) CurrentRevision(pageID string) (string, error) {
	var id string
	err := s.db.conn.QueryRow(
		`SELECT current_revision_id FROM revision_state WHERE page_id = ?`, pageID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// GoTo updates the current position pointer.
func (s *RevisionStore) GoTo(pageID, revisionID string) error {
	_, err := s.db.conn.Exec(
		`INSERT INTO revision_state (page_id, current_revision_id) VALUES (?, ?)
		 ON CONFLICT(page_id) DO UPDATE SET current_revision_id = excluded.current_revision_id`,
		pageID, revisionID,
	)
	return err
}

// ClearPage removes all revision data for a page.
func (s *RevisionStore) ClearPage(pageID string) error {
	_, _ = s.db.conn.Exec(`DELETE FROM revision_state WHERE page_id = ?`, pageID)
	_, err := s.db.conn.Exec(`DELETE FROM page_revisions WHERE page_id = ?`, pageID)
	return err
}

// pruneIfNeeded removes the oldest revisions beyond the limit, never the
// current one.
func (s *RevisionStore) pruneIfNeeded(pageID string) {
	var count int
	s.db.conn.QueryRow(`SELECT COUNT(*) FROM page_revisions WHERE page_id = ?`, pageID).Scan(&count)
	if count <= s.max {
		return
	}

	current, _ := s.CurrentRevision(pageID)

	// Collect ids first; the single connection cannot write while a cursor is open
	rows, err := s.db.conn.Query(
		`SELECT id FROM page_revisions WHERE page_id = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ?`, pageID, count-s.max,
	)
	if err != nil {
		return
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		if id != current {
			ids = append(ids, id)
		}
	}
	rows.Close()

	for _, id := range ids {
		s.db.conn.Exec(`DELETE FROM page_revisions WHERE id = ?`, id)
	}
}
