package entities

import "time"

type Style struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	UUID           string    `gorm:"uniqueIndex;size:36" json:"uuid"`
	Name           string    `gorm:"size:128" json:"name"`
	Preferred      bool      `json:"preferred,omitempty"`
	MenuPosition   int       `json:"menu_position,omitempty"`
	Groups         string    `gorm:"size:512" json:"groups,omitempty"`
	ShowCovers     bool      `json:"show_covers,omitempty"`
	CoverScale     float64   `json:"cover_scale,omitempty"`
	TextScale      int       `json:"text_scale,omitempty"`
	ExpansionLevel int64     `json:"expansion_level,omitempty"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (Style) TableName() string {
	return "styles"
}

// GroupList returns the style's grouping keys in display order.
func (s *Style) GroupList() []string {
	return SplitList(s.Groups)
}
