package domain

import (
	"encoding/json"
	"fmt"
)

type SectionType string

const (
	SectionHero               SectionType = "hero"
	SectionText               SectionType = "text"
	SectionImage              SectionType = "image"
	SectionGallery            SectionType = "gallery"
	SectionStudioOverview     SectionType = "studio-overview"
	SectionShows              SectionType = "shows"
	SectionTestimonials       SectionType = "testimonials"
	SectionCTA                SectionType = "cta"
	SectionDivider            SectionType = "divider"
	SectionVideo              SectionType = "video"
	SectionAudio              SectionType = "audio"
	SectionSocialFeed         SectionType = "social-feed"
	SectionStory              SectionType = "story"
	SectionCommunitySpotlight SectionType = "community-spotlight"
	SectionGrid               SectionType = "grid"
	SectionHoursLocation      SectionType = "hours-location"
)

var sectionTypes = []SectionType{
	SectionHero,
	SectionText,
	SectionImage,
	SectionGallery,
	SectionStudioOverview,
	SectionShows,
	SectionTestimonials,
	SectionCTA,
	SectionDivider,
	SectionVideo,
	SectionAudio,
	SectionSocialFeed,
	SectionStory,
	SectionCommunitySpotlight,
	SectionGrid,
	SectionHoursLocation,
}

// SectionTypes returns the closed set of section variants in palette order.
func SectionTypes() []SectionType {
	out := make([]SectionType, len(sectionTypes))
	copy(out, sectionTypes)
	return out
}

// Known reports whether t belongs to the closed variant set.
func (t SectionType) Known() bool {
	_, ok := variantFactories[t]
	return ok
}

// Section is one typed, ordered block of page content.
type Section struct {
	ID       string      `json:"id"`
	Type     SectionType `json:"type"`
	Order    int         `json:"order"`
	Content  string      `json:"content"` // headline, body text or title depending on Type
	Settings Settings    `json:"settings"`
}

// NewSection builds a section of type t populated with the variant defaults.
func NewSection(id string, t SectionType, order int) Section {
	return Section{
		ID:       id,
		Type:     t,
		Order:    order,
		Content:  DefaultContent(t),
		Settings: DefaultSettings(t),
	}
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	out.Settings = s.Settings.Clone()
	return out
}

// UnmarshalJSON decodes a section, resolving its settings bag against the
// section's own type so that stale keys of other variants are dropped.
func (s *Section) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       string          `json:"id"`
		Type     SectionType     `json:"type"`
		Order    int             `json:"order"`
		Content  string          `json:"content"`
		Settings json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	settings, err := decodeSettingsBag(wire.Type, wire.Settings)
	if err != nil {
		return fmt.Errorf("section %s: %w", wire.ID, err)
	}
	*s = Section{
		ID:       wire.ID,
		Type:     wire.Type,
		Order:    wire.Order,
		Content:  wire.Content,
		Settings: settings,
	}
	return nil
}

var defaultContent = map[SectionType]string{
	SectionHero:               "Welcome to the studio",
	SectionText:               "Tell your story here.",
	SectionStudioOverview:     "About the studio",
	SectionShows:              "Upcoming shows",
	SectionTestimonials:       "What people say",
	SectionCTA:                "Ready to get started?",
	SectionStory:              "Our story",
	SectionCommunitySpotlight: "Community spotlight",
	SectionHoursLocation:      "Visit us",
}

// DefaultContent returns the placeholder content a new section of type t starts with.
func DefaultContent(t SectionType) string {
	return defaultContent[t]
}
