package models

// ListFilter narrows taxonomy list queries. Zero values mean "no filter".
type ListFilter struct {
	Search          string `json:"search,omitempty"`
	Language        string `json:"language,omitempty"`
	CapabilityLevel string `json:"capabilityLevel,omitempty"`
	Status          string `json:"status,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Offset          int    `json:"offset,omitempty"`
}

// Normalize clamps pagination to sane bounds.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
