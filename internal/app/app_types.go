package app

// Event names emitted by the controller in addition to the page service ones.
const (
	EventMediaChanged = "media:changed"
)

// PageSummary is the list view of a page.
type PageSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}
