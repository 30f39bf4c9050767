package models

import (
	"time"

	"gorm.io/datatypes"
)

// SectionKey names one independently cached settings document.
type SectionKey string

const (
	SectionHero    SectionKey = "hero"
	SectionAbout   SectionKey = "about"
	SectionContact SectionKey = "contact"
	SectionSocial  SectionKey = "social"
	SectionTheme   SectionKey = "theme"
)

// SectionKeys lists every settings section in display order.
var SectionKeys = []SectionKey{SectionHero, SectionAbout, SectionContact, SectionSocial, SectionTheme}

// Valid reports whether k is one of the known sections.
func (k SectionKey) Valid() bool {
	for _, known := range SectionKeys {
		if k == known {
			return true
		}
	}
	return false
}

// SiteSetting is one row of the site_settings table.
type SiteSetting struct {
	Key       string         `json:"key" gorm:"primaryKey"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (SiteSetting) TableName() string {
	return "site_settings"
}

// HeroSettings is the typed view of the hero section.
type HeroSettings struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Description  string `json:"description"`
	CTAPrimary   string `json:"ctaPrimary"`
	CTASecondary string `json:"ctaSecondary"`
	ImageURL     string `json:"imageUrl,omitempty"`
}

type AboutSettings struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

type ContactSettings struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type SocialSettings struct {
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
	Instagram string `json:"instagram"`
}

// ThemeSettings holds brand colors as HSL triples ("16 90% 50%").
type ThemeSettings struct {
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
}

// DefaultSettings seeds sections missing from a fresh database.
func DefaultSettings() map[SectionKey]any {
	return map[SectionKey]any{
		SectionHero: HeroSettings{
			Title:        "Hi, I'm a developer",
			Subtitle:     "Building clean, fast web experiences",
			Description:  "I design and build websites and applications that are a pleasure to use.",
			CTAPrimary:   "View my work",
			CTASecondary: "Get in touch",
		},
		SectionAbout: AboutSettings{
			Title:       "About me",
			Description: "Clean, efficient code using modern frameworks and best practices.",
			Skills:      []string{"Development", "Design", "Strategy", "Performance"},
		},
		SectionContact: ContactSettings{},
		SectionSocial:  SocialSettings{},
		SectionTheme: ThemeSettings{
			PrimaryColor: "16 90% 50%",
			AccentColor:  "30 80% 50%",
		},
	}
}
