package models

import "strings"

// LocalizedText carries the English and Arabic renderings of a user-visible
// string. Every label and description in the taxonomy is bilingual.
type LocalizedText struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

// Get returns the text for the given language code, falling back to English.
func (t LocalizedText) Get(lang string) string {
	if strings.EqualFold(lang, "ar") && t.Ar != "" {
		return t.Ar
	}
	return t.En
}

// IsEmpty reports whether both renderings are blank.
func (t LocalizedText) IsEmpty() bool {
	return strings.TrimSpace(t.En) == "" && strings.TrimSpace(t.Ar) == ""
}
