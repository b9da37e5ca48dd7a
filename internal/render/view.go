// Package render turns committed sections into HTML. Each section renders
// through its own recovery boundary so one failing section never blanks the
// rest of the page.
package render

import (
	"strings"

	"pagebuilder/internal/domain"
)

// SectionView is the read-only view of one committed section handed to
// renderers. Accessors return copies.
type SectionView struct {
	sec domain.Section
}

// NewView snapshots s.
func NewView(s domain.Section) SectionView {
	return SectionView{sec: s.Clone()}
}

func (v SectionView) ID() string                { return v.sec.ID }
func (v SectionView) Type() domain.SectionType  { return v.sec.Type }
func (v SectionView) Order() int                { return v.sec.Order }
func (v SectionView) Content() string           { return v.sec.Content }
func (v SectionView) Settings() domain.Settings { return v.sec.Settings.Clone() }

// Section returns a deep copy of the underlying section.
func (v SectionView) Section() domain.Section { return v.sec.Clone() }

// Variant returns a private copy of the view's settings as T.
func Variant[T domain.Variant](v SectionView) (T, bool) {
	return domain.As[T](v.Settings())
}

// ComponentName is the logical name of the unit rendering sections of type t,
// e.g. "HeroSection" or "HoursLocationSection".
func ComponentName(t domain.SectionType) string {
	var b strings.Builder
	for _, part := range strings.Split(string(t), "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if b.Len() == 0 {
		return "Section"
	}
	b.WriteString("Section")
	return b.String()
}
