package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type PageStatus string

const (
	PageDraft     PageStatus = "draft"
	PagePublished PageStatus = "published"
)

type Page struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Status      PageStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// PageState is a page together with its committed sections, in render order.
type PageState struct {
	Page     Page      `json:"page"`
	Sections []Section `json:"sections"`
}

type PageStore interface {
	CreatePage(p *Page) error
	GetPage(id string) (*Page, error)
	GetPageBySlug(slug string) (*Page, error)
	ListPages() ([]Page, error)
	UpdatePage(p *Page) error
	DeletePage(id string) error
}

// Revision is a saved snapshot of a page's sections.
type Revision struct {
	ID           string    `json:"id"`
	PageID       string    `json:"pageId"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Sections decodes the snapshot.
func (r Revision) Sections() ([]Section, error) {
	var out []Section
	if err := json.Unmarshal([]byte(r.SnapshotJSON), &out); err != nil {
		return nil, fmt.Errorf("revision %s: %w", r.ID, err)
	}
	return out, nil
}

type RevisionStore interface {
	PushRevision(pageID, revisionID, label, snapshotJSON string) (*Revision, error)
	ListRevisions(pageID string) ([]Revision, error)
	GetRevision(id string) (*Revision, error)
	CurrentRevision(pageID string) (string, error)
	GoTo(pageID, revisionID string) error
	ClearPage(pageID string) error
}

type SectionRepository interface {
	ListSections(pageID string) ([]Section, error)
	ReplacePageSections(pageID string, sections []Section) error
	DeleteSectionsByPage(pageID string) error
}
