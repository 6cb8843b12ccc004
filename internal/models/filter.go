// internal/models/filter.go
package models

// DateRange narrows results to a calendar window relative to the service clock.
type DateRange string

const (
	DateRangeNone        DateRange = "none"
	DateRangeToday       DateRange = "today"
	DateRangeThisWeekend DateRange = "this_weekend"
	DateRangeNextWeek    DateRange = "next_week"
)

// PriceRange narrows results by price tier.
type PriceRange string

const (
	PriceRangeNone   PriceRange = "none"
	PriceRangeFree   PriceRange = "free"
	PriceRangeBudget PriceRange = "budget"
)

// FilterDescriptor is the structured intent derived from a free-text query.
// It is always a total value: fields default to none/empty, never nil
// propagation into filtering logic.
type FilterDescriptor struct {
	DateRange  DateRange  `json:"dateRange"`
	Categories []string   `json:"categories"`
	Keywords   []string   `json:"keywords"`
	PriceRange PriceRange `json:"priceRange"`
}

// NewFilterDescriptor returns an empty descriptor with all dimensions inactive.
func NewFilterDescriptor() FilterDescriptor {
	return FilterDescriptor{
		DateRange:  DateRangeNone,
		Categories: []string{},
		Keywords:   []string{},
		PriceRange: PriceRangeNone,
	}
}

// Normalize coerces unknown enum values and nil slices back to their inactive
// defaults so downstream filtering never sees a partial descriptor.
func (f FilterDescriptor) Normalize() FilterDescriptor {
	switch f.DateRange {
	case DateRangeToday, DateRangeThisWeekend, DateRangeNextWeek:
	default:
		f.DateRange = DateRangeNone
	}
	switch f.PriceRange {
	case PriceRangeFree, PriceRangeBudget:
	default:
		f.PriceRange = PriceRangeNone
	}
	if f.Categories == nil {
		f.Categories = []string{}
	}
	if f.Keywords == nil {
		f.Keywords = []string{}
	}
	return f
}
