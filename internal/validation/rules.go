package validation

import (
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pagebuilder/internal/domain"
)

var (
	hexColor  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	clockTime = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)
	weekdays  = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

var builtinRules = map[domain.SectionType]Rule{
	domain.SectionHero:               heroRule,
	domain.SectionText:               textRule,
	domain.SectionImage:              imageRule,
	domain.SectionGallery:            galleryRule,
	domain.SectionStudioOverview:     studioOverviewRule,
	domain.SectionShows:              showsRule,
	domain.SectionTestimonials:       testimonialsRule,
	domain.SectionCTA:                ctaRule,
	domain.SectionDivider:            dividerRule,
	domain.SectionVideo:              videoRule,
	domain.SectionAudio:              audioRule,
	domain.SectionSocialFeed:         socialFeedRule,
	domain.SectionStory:              storyRule,
	domain.SectionCommunitySpotlight: communitySpotlightRule,
	domain.SectionGrid:               gridRule,
	domain.SectionHoursLocation:      hoursLocationRule,
}

// variant fetches the typed settings of s. A section whose settings were never
// populated validates against the defaults of its type.
func variant[T domain.Variant](s domain.Section) T {
	if v, ok := domain.As[T](s.Settings); ok {
		return v
	}
	v, _ := domain.As[T](domain.DefaultSettings(s.Type))
	return v
}

func heroRule(s domain.Section, r *Report) {
	v := variant[*domain.HeroSettings](s)
	if blank(s.Content) {
		r.AddContent("headline is required")
	}
	checkColor(r, "backgroundColor", v.BackgroundColor)
	checkColor(r, "textColor", v.TextColor)
	checkOneOf(r, "alignment", v.Alignment, "left", "center", "right")
	checkOneOf(r, "height", v.Height, "small", "medium", "large", "full")
	checkURL(r, "backgroundImage", v.BackgroundImage)
	if v.ButtonURL != "" {
		checkURL(r, "buttonUrl", v.ButtonURL)
		if blank(v.ButtonText) {
			r.Add("buttonText", "button text is required when a button link is set")
		}
	}
	if v.OverlayOpacity < 0 || v.OverlayOpacity > 1 {
		r.Add("overlayOpacity", "overlay opacity must be between 0 and 1")
	}
}

func textRule(s domain.Section, r *Report) {
	v := variant[*domain.TextSettings](s)
	if blank(s.Content) {
		r.AddContent("text is required")
	}
	checkIntIn(r, "columns", v.Columns, 1, 2, 3)
	checkOneOf(r, "maxWidth", v.MaxWidth, "narrow", "medium", "wide", "full")
	checkColor(r, "backgroundColor", v.BackgroundColor)
	checkColor(r, "textColor", v.TextColor)
}

func imageRule(s domain.Section, r *Report) {
	v := variant[*domain.ImageSettings](s)
	requireURL(r, "url", v.URL, "image is required")
	if blank(v.Alt) {
		r.Add("alt", "alt text is required")
	}
	checkURL(r, "link", v.Link)
}

func galleryRule(s domain.Section, r *Report) {
	v := variant[*domain.GallerySettings](s)
	if len(v.Images) == 0 {
		r.Add("images", "add at least one image")
	}
	for i, img := range v.Images {
		requireURL(r, indexed("images", i, "url"), img.URL, "image is required")
	}
	checkIntIn(r, "columns", v.Columns, 2, 3, 4)
	checkOneOf(r, "layout", v.Layout, "grid", "masonry", "carousel")
}

func studioOverviewRule(s domain.Section, r *Report) {
	v := variant[*domain.StudioOverviewSettings](s)
	if blank(v.Title) {
		r.Add("title", "title is required")
	}
	checkURL(r, "image", v.Image)
	for i, st := range v.Stats {
		if blank(st.Label) {
			r.Add(indexed("stats", i, "label"), "label is required")
		}
		if blank(st.Value) {
			r.Add(indexed("stats", i, "value"), "value is required")
		}
	}
}

func showsRule(s domain.Section, r *Report) {
	v := variant[*domain.ShowsSettings](s)
	for i, sh := range v.Shows {
		if blank(sh.Name) {
			r.Add(indexed("shows", i, "name"), "show name is required")
		}
		if _, err := time.Parse(time.DateOnly, sh.Date); err != nil {
			r.Add(indexed("shows", i, "date"), "date must be YYYY-MM-DD")
		}
		checkURL(r, indexed("shows", i, "ticketUrl"), sh.TicketURL)
	}
	checkOneOf(r, "layout", v.Layout, "list", "grid")
}

func testimonialsRule(s domain.Section, r *Report) {
	v := variant[*domain.TestimonialsSettings](s)
	if len(v.Items) == 0 {
		r.Add("items", "add at least one testimonial")
	}
	for i, it := range v.Items {
		if blank(it.Quote) {
			r.Add(indexed("items", i, "quote"), "quote is required")
		}
		if blank(it.Author) {
			r.Add(indexed("items", i, "author"), "author is required")
		}
		if it.Rating != 0 && (it.Rating < 1 || it.Rating > 5) {
			r.Add(indexed("items", i, "rating"), "rating must be between 1 and 5")
		}
		checkURL(r, indexed("items", i, "avatar"), it.Avatar)
	}
	checkOneOf(r, "layout", v.Layout, "grid", "carousel")
}

func ctaRule(s domain.Section, r *Report) {
	v := variant[*domain.CTASettings](s)
	if blank(s.Content) {
		r.AddContent("title is required")
	}
	if blank(v.ButtonText) {
		r.Add("buttonText", "button text is required")
	}
	requireURL(r, "buttonUrl", v.ButtonURL, "button link is required")
	if v.SecondaryButtonURL != "" {
		checkURL(r, "secondaryButtonUrl", v.SecondaryButtonURL)
		if blank(v.SecondaryButtonText) {
			r.Add("secondaryButtonText", "button text is required when a button link is set")
		}
	}
	checkColor(r, "backgroundColor", v.BackgroundColor)
	checkColor(r, "textColor", v.TextColor)
	checkOneOf(r, "style", v.Style, "primary", "secondary", "outline")
}

func dividerRule(s domain.Section, r *Report) {
	v := variant[*domain.DividerSettings](s)
	checkOneOf(r, "style", v.Style, "solid", "dashed", "dotted", "space")
	checkColor(r, "color", v.Color)
	if v.Thickness < 1 || v.Thickness > 10 {
		r.Add("thickness", "thickness must be between 1 and 10")
	}
	checkOneOf(r, "spacing", v.Spacing, "small", "medium", "large")
}

func videoRule(s domain.Section, r *Report) {
	v := variant[*domain.VideoSettings](s)
	requireURL(r, "url", v.URL, "video link is required")
	checkOneOf(r, "provider", v.Provider, "youtube", "vimeo", "file")
	checkOneOf(r, "aspectRatio", v.AspectRatio, "16:9", "4:3", "1:1")
}

func audioRule(s domain.Section, r *Report) {
	v := variant[*domain.AudioSettings](s)
	requireURL(r, "url", v.URL, "audio file is required")
	checkURL(r, "cover", v.Cover)
}

func socialFeedRule(s domain.Section, r *Report) {
	v := variant[*domain.SocialFeedSettings](s)
	if blank(strings.TrimPrefix(v.Handle, "@")) {
		r.Add("handle", "account handle is required")
	}
	checkOneOf(r, "platform", v.Platform, "instagram", "twitter", "facebook", "tiktok")
	if v.PostCount < 1 || v.PostCount > 24 {
		r.Add("postCount", "post count must be between 1 and 24")
	}
}

func storyRule(s domain.Section, r *Report) {
	v := variant[*domain.StorySettings](s)
	for i, ch := range v.Chapters {
		if blank(ch.Heading) {
			r.Add(indexed("chapters", i, "heading"), "chapter heading is required")
		}
		checkURL(r, indexed("chapters", i, "image"), ch.Image)
	}
	checkOneOf(r, "layout", v.Layout, "timeline", "alternating")
}

func communitySpotlightRule(s domain.Section, r *Report) {
	v := variant[*domain.CommunitySpotlightSettings](s)
	for i, m := range v.Members {
		if blank(m.Name) {
			r.Add(indexed("members", i, "name"), "name is required")
		}
		checkURL(r, indexed("members", i, "image"), m.Image)
		checkURL(r, indexed("members", i, "link"), m.Link)
	}
	checkIntIn(r, "columns", v.Columns, 2, 3, 4)
}

func gridRule(s domain.Section, r *Report) {
	v := variant[*domain.GridSettings](s)
	checkIntIn(r, "columns", v.Columns, 1, 2, 3, 4, 6)
	for i, it := range v.Items {
		if blank(it.Title) {
			r.Add(indexed("items", i, "title"), "title is required")
		}
		checkURL(r, indexed("items", i, "image"), it.Image)
		checkURL(r, indexed("items", i, "link"), it.Link)
	}
}

func hoursLocationRule(s domain.Section, r *Report) {
	v := variant[*domain.HoursLocationSettings](s)
	if blank(v.Address) {
		r.Add("address", "address is required")
	}
	if v.Email != "" {
		if _, err := mail.ParseAddress(v.Email); err != nil {
			r.Add("email", "email address is not valid")
		}
	}
	checkURL(r, "mapUrl", v.MapURL)
	for i, h := range v.Hours {
		if !isWeekday(h.Day) {
			r.Add(indexed("hours", i, "day"), "day must be a weekday name")
		}
		if h.Closed {
			continue
		}
		openOK := clockTime.MatchString(h.Open)
		closeOK := clockTime.MatchString(h.Close)
		if !openOK {
			r.Add(indexed("hours", i, "open"), "opening time must be HH:MM")
		}
		if !closeOK {
			r.Add(indexed("hours", i, "close"), "closing time must be HH:MM")
		}
		if openOK && closeOK && h.Close <= h.Open {
			r.Add(indexed("hours", i, "close"), "closing time must be after opening time")
		}
	}
}

// ── helpers ────────────────────────────────────────────────

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func indexed(list string, i int, field string) string {
	return list + "." + strconv.Itoa(i) + "." + field
}

func checkColor(r *Report, field, value string) {
	if value != "" && !hexColor.MatchString(value) {
		r.Add(field, "color must be a hex value like #1a2b3c")
	}
}

func checkOneOf(r *Report, field, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	r.Addf(field, "must be one of %s", strings.Join(allowed, ", "))
}

func checkIntIn(r *Report, field string, value int, allowed ...int) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = strconv.Itoa(a)
	}
	r.Addf(field, "must be one of %s", strings.Join(parts, ", "))
}

func requireURL(r *Report, field, value, missing string) {
	if blank(value) {
		r.Add(field, missing)
		return
	}
	checkURL(r, field, value)
}

func checkURL(r *Report, field, value string) {
	if value == "" {
		return
	}
	if !validURL(value) {
		r.Add(field, "link is not a valid URL")
	}
}

// validURL accepts absolute http(s) links with a host, mailto/tel links, and
// site-relative paths or anchors. Reachability is never checked.
func validURL(raw string) bool {
	if strings.ContainsAny(raw, " \t\n") {
		return false
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "#") {
		return !strings.HasPrefix(raw, "//")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "mailto", "tel":
		return u.Opaque != ""
	}
	return false
}

func isWeekday(day string) bool {
	d := strings.ToLower(strings.TrimSpace(day))
	for _, w := range weekdays {
		if d == w {
			return true
		}
	}
	return false
}
