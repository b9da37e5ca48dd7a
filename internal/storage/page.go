package storage

import (
	"database/sql"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// PageStore implements domain.PageStore using SQLite.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

const pageColumns = `id, title, slug, status, published_at, created_at, updated_at`

func scanPage(row interface{ Scan(...any) error }, p *domain.Page) error {
	var published sql.NullTime
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Status, &published, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	p.PublishedAt = nil
	if published.Valid {
		t := published.Time
		p.PublishedAt = &t
	}
	return nil
}

func (s *PageStore) CreatePage(p *domain.Page) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = domain.PageDraft
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO pages (id, title, slug, status, published_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.Status, p.PublishedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

func (s *PageStore) GetPage(id string) (*domain.Page, error) {
	p := &domain.Page{}
	err := scanPage(s.db.conn.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id), p)
	if err != nil {
		return nil, notFound("page", id, err)
	}
	return p, nil
}

func (s *PageStore) GetPageBySlug(slug string) (*domain.Page, error) {
	p := &domain.Page{}
	err := scanPage(s.db.conn.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE slug = ?`, slug), p)
	if err != nil {
		return nil, notFound("page", slug, err)
	}
	return p, nil
}

func (s *PageStore) ListPages() ([]domain.Page, error) {
	rows, err := s.db.conn.Query(`SELECT ` + pageColumns + ` FROM pages ORDER BY updated_at DESC, title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var p domain.Page
		if err := scanPage(rows, &p); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (s *PageStore) UpdatePage(p *domain.Page) error {
	p.UpdatedAt = time.Now()
	res, err := s.db.conn.Exec(
		`UPDATE pages SET title = ?, slug = ?, status = ?, published_at = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.Status, p.PublishedAt, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("page %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *PageStore) DeletePage(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM pages WHERE id = ?`, id)
	return err
}
