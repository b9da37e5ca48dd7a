package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Variant is the type-specific configuration of a section. Each section
// type has exactly one implementation.
type Variant interface {
	SectionType() SectionType
}

// Settings is the tagged union holding the single active variant of a
// section. Its JSON form is the bag {"<type>": {...}}.
type Settings struct {
	variant Variant
}

// NewSettings wraps v as the active variant.
func NewSettings(v Variant) Settings {
	return Settings{variant: v}
}

// DefaultSettings returns the defaults for t. Unknown types get an empty
// RawSettings so they still round-trip.
func DefaultSettings(t SectionType) Settings {
	return Settings{variant: newVariant(t)}
}

// Type returns the section type of the active variant, or "" when empty.
func (s Settings) Type() SectionType {
	if s.variant == nil {
		return ""
	}
	return s.variant.SectionType()
}

// Variant returns the active variant. Callers must not mutate it; use Clone first.
func (s Settings) Variant() Variant {
	return s.variant
}

func (s Settings) IsZero() bool {
	return s.variant == nil
}

// Clone deep-copies the settings through their JSON form.
func (s Settings) Clone() Settings {
	if s.variant == nil {
		return Settings{}
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return s
	}
	out, err := decodeSettingsBag(s.Type(), data)
	if err != nil {
		return s
	}
	return out
}

// As returns the active variant as T when it has that concrete type.
func As[T Variant](s Settings) (T, bool) {
	v, ok := s.variant.(T)
	return v, ok
}

func (s Settings) MarshalJSON() ([]byte, error) {
	if s.variant == nil {
		return []byte("{}"), nil
	}
	if raw, ok := s.variant.(*RawSettings); ok {
		data := raw.Data
		if len(data) == 0 {
			data = json.RawMessage("{}")
		}
		return json.Marshal(map[SectionType]json.RawMessage{raw.Type: data})
	}
	return json.Marshal(map[SectionType]Variant{s.variant.SectionType(): s.variant})
}

// UnmarshalJSON decodes a bag carrying at most one variant key. Sections
// decode their bag against their own type instead, see Section.UnmarshalJSON.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var bag map[SectionType]json.RawMessage
	if err := json.Unmarshal(data, &bag); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if len(bag) == 0 {
		*s = Settings{}
		return nil
	}
	if len(bag) > 1 {
		return fmt.Errorf("settings: %d variant keys, want 1", len(bag))
	}
	for t, raw := range bag {
		v, err := decodeVariant(t, raw)
		if err != nil {
			return err
		}
		*s = Settings{variant: v}
	}
	return nil
}

// DecodeSettings decodes the bag for a section of type t, starting from the
// variant defaults so missing fields keep their default values.
func DecodeSettings(t SectionType, data []byte) (Settings, error) {
	return decodeSettingsBag(t, data)
}

func decodeSettingsBag(t SectionType, data []byte) (Settings, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return DefaultSettings(t), nil
	}
	var bag map[SectionType]json.RawMessage
	if err := json.Unmarshal(data, &bag); err != nil {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	raw, ok := bag[t]
	if !ok {
		return DefaultSettings(t), nil
	}
	v, err := decodeVariant(t, raw)
	if err != nil {
		return Settings{}, err
	}
	return Settings{variant: v}, nil
}

func decodeVariant(t SectionType, raw json.RawMessage) (Variant, error) {
	v := newVariant(t)
	if rs, ok := v.(*RawSettings); ok {
		rs.Data = append(json.RawMessage(nil), raw...)
		return rs, nil
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("settings %s: %w", t, err)
	}
	return v, nil
}

func newVariant(t SectionType) Variant {
	if f, ok := variantFactories[t]; ok {
		return f()
	}
	return &RawSettings{Type: t}
}

// RawSettings keeps the settings of an unrecognized section type verbatim.
type RawSettings struct {
	Type SectionType
	Data json.RawMessage
}

func (r *RawSettings) SectionType() SectionType { return r.Type }

// ── Variants ───────────────────────────────────────────────

type HeroSettings struct {
	Subheadline     string  `json:"subheadline"`
	BackgroundImage string  `json:"backgroundImage"`
	BackgroundColor string  `json:"backgroundColor"`
	TextColor       string  `json:"textColor"`
	Alignment       string  `json:"alignment"` // left, center, right
	Height          string  `json:"height"`    // small, medium, large, full
	ButtonText      string  `json:"buttonText"`
	ButtonURL       string  `json:"buttonUrl"`
	Overlay         bool    `json:"overlay"`
	OverlayOpacity  float64 `json:"overlayOpacity"`
}

type TextSettings struct {
	Alignment       string `json:"alignment"`
	MaxWidth        string `json:"maxWidth"` // narrow, medium, wide, full
	Columns         int    `json:"columns"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

type ImageSettings struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
	Link    string `json:"link"`
	Width   string `json:"width"` // contained, wide, full
}

type GalleryImage struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

type GallerySettings struct {
	Images  []GalleryImage `json:"images"`
	Columns int            `json:"columns"`
	Layout  string         `json:"layout"` // grid, masonry, carousel
	Gap     string         `json:"gap"`
}

type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type StudioOverviewSettings struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Features    []string `json:"features"`
	Stats       []Stat   `json:"stats"`
}

type Show struct {
	Name      string `json:"name"`
	Date      string `json:"date"` // YYYY-MM-DD
	Venue     string `json:"venue"`
	TicketURL string `json:"ticketUrl"`
}

type ShowsSettings struct {
	Shows    []Show `json:"shows"`
	Layout   string `json:"layout"` // list, grid
	ShowPast bool   `json:"showPast"`
}

type Testimonial struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
	Rating int    `json:"rating"` // 0 means unrated
}

type TestimonialsSettings struct {
	Items  []Testimonial `json:"items"`
	Layout string        `json:"layout"` // grid, carousel
}

type CTASettings struct {
	Description         string `json:"description"`
	ButtonText          string `json:"buttonText"`
	ButtonURL           string `json:"buttonUrl"`
	SecondaryButtonText string `json:"secondaryButtonText"`
	SecondaryButtonURL  string `json:"secondaryButtonUrl"`
	BackgroundColor     string `json:"backgroundColor"`
	TextColor           string `json:"textColor"`
	Style               string `json:"style"` // primary, secondary, outline
}

type DividerSettings struct {
	Style     string `json:"style"` // solid, dashed, dotted, space
	Color     string `json:"color"`
	Thickness int    `json:"thickness"`
	Spacing   string `json:"spacing"` // small, medium, large
}

type VideoSettings struct {
	URL         string `json:"url"`
	Provider    string `json:"provider"` // youtube, vimeo, file
	Caption     string `json:"caption"`
	AspectRatio string `json:"aspectRatio"` // 16:9, 4:3, 1:1
	Autoplay    bool   `json:"autoplay"`
	Loop        bool   `json:"loop"`
	Muted       bool   `json:"muted"`
}

type AudioSettings struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Cover    string `json:"cover"`
	Autoplay bool   `json:"autoplay"`
}

type SocialFeedSettings struct {
	Platform  string `json:"platform"` // instagram, twitter, facebook, tiktok
	Handle    string `json:"handle"`
	PostCount int    `json:"postCount"`
	Layout    string `json:"layout"`
}

type StoryChapter struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
	Image   string `json:"image"`
}

type StorySettings struct {
	Chapters []StoryChapter `json:"chapters"`
	Layout   string         `json:"layout"` // timeline, alternating
}

type SpotlightMember struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Bio   string `json:"bio"`
	Image string `json:"image"`
	Link  string `json:"link"`
}

type CommunitySpotlightSettings struct {
	Members []SpotlightMember `json:"members"`
	Columns int               `json:"columns"`
}

type GridItem struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image"`
	Link  string `json:"link"`
}

type GridSettings struct {
	Items   []GridItem `json:"items"`
	Columns int        `json:"columns"`
	Gap     string     `json:"gap"`
}

type OpeningHours struct {
	Day    string `json:"day"`
	Open   string `json:"open"`  // HH:MM
	Close  string `json:"close"` // HH:MM
	Closed bool   `json:"closed"`
}

type HoursLocationSettings struct {
	Address string         `json:"address"`
	City    string         `json:"city"`
	Phone   string         `json:"phone"`
	Email   string         `json:"email"`
	MapURL  string         `json:"mapUrl"`
	Hours   []OpeningHours `json:"hours"`
}

func (*HeroSettings) SectionType() SectionType               { return SectionHero }
func (*TextSettings) SectionType() SectionType               { return SectionText }
func (*ImageSettings) SectionType() SectionType              { return SectionImage }
func (*GallerySettings) SectionType() SectionType            { return SectionGallery }
func (*StudioOverviewSettings) SectionType() SectionType     { return SectionStudioOverview }
func (*ShowsSettings) SectionType() SectionType              { return SectionShows }
func (*TestimonialsSettings) SectionType() SectionType       { return SectionTestimonials }
func (*CTASettings) SectionType() SectionType                { return SectionCTA }
func (*DividerSettings) SectionType() SectionType            { return SectionDivider }
func (*VideoSettings) SectionType() SectionType              { return SectionVideo }
func (*AudioSettings) SectionType() SectionType              { return SectionAudio }
func (*SocialFeedSettings) SectionType() SectionType         { return SectionSocialFeed }
func (*StorySettings) SectionType() SectionType              { return SectionStory }
func (*CommunitySpotlightSettings) SectionType() SectionType { return SectionCommunitySpotlight }
func (*GridSettings) SectionType() SectionType               { return SectionGrid }
func (*HoursLocationSettings) SectionType() SectionType      { return SectionHoursLocation }

var variantFactories = map[SectionType]func() Variant{
	SectionHero: func() Variant {
		return &HeroSettings{Alignment: "center", Height: "large", TextColor: "#ffffff", BackgroundColor: "#111111", OverlayOpacity: 0.4}
	},
	SectionText: func() Variant {
		return &TextSettings{Alignment: "left", MaxWidth: "medium", Columns: 1}
	},
	SectionImage: func() Variant {
		return &ImageSettings{Width: "contained"}
	},
	SectionGallery: func() Variant {
		return &GallerySettings{Columns: 3, Layout: "grid", Gap: "medium"}
	},
	SectionStudioOverview: func() Variant {
		return &StudioOverviewSettings{Title: "Our studio"}
	},
	SectionShows: func() Variant {
		return &ShowsSettings{Layout: "list"}
	},
	SectionTestimonials: func() Variant {
		return &TestimonialsSettings{Layout: "grid"}
	},
	SectionCTA: func() Variant {
		return &CTASettings{ButtonText: "Get in touch", ButtonURL: "/contact", Style: "primary"}
	},
	SectionDivider: func() Variant {
		return &DividerSettings{Style: "solid", Color: "#e5e5e5", Thickness: 1, Spacing: "medium"}
	},
	SectionVideo: func() Variant {
		return &VideoSettings{Provider: "youtube", AspectRatio: "16:9"}
	},
	SectionAudio: func() Variant {
		return &AudioSettings{}
	},
	SectionSocialFeed: func() Variant {
		return &SocialFeedSettings{Platform: "instagram", PostCount: 6, Layout: "grid"}
	},
	SectionStory: func() Variant {
		return &StorySettings{Layout: "timeline"}
	},
	SectionCommunitySpotlight: func() Variant {
		return &CommunitySpotlightSettings{Columns: 3}
	},
	SectionGrid: func() Variant {
		return &GridSettings{Columns: 3, Gap: "medium"}
	},
	SectionHoursLocation: func() Variant {
		return &HoursLocationSettings{}
	},
}
