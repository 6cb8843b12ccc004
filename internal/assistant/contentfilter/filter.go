// internal/assistant/contentfilter/filter.go
package contentfilter

import (
	"strings"
	"time"

	"marketplace-assistant/internal/models"
)

// dateLayouts are tried in order when parsing record start dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Filter applies a FilterDescriptor to event and listing records. All date
// arithmetic happens in the configured service timezone; the clock is
// injected so tests can pin the current day.
type Filter struct {
	location *time.Location
	now      func() time.Time
}

func New(location *time.Location, now func() time.Time) *Filter {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Filter{location: location, now: now}
}

// FilterEvents returns the subsequence of events matching every active
// dimension of the descriptor. Pure: input order is preserved and the input
// slice is never mutated.
func (f *Filter) FilterEvents(events []models.EventRecord, filter models.FilterDescriptor) []models.EventRecord {
	filter = filter.Normalize()
	matched := []models.EventRecord{}
	for _, event := range events {
		if !f.matchKeywords(filter.Keywords, event.Title, event.Description, event.Category, event.Location) {
			continue
		}
		if !f.matchDateRange(filter.DateRange, event.StartDate) {
			continue
		}
		if !matchCategory(filter.Categories, event.Category) {
			continue
		}
		if !matchPrice(filter.PriceRange, event.IsFree) {
			continue
		}
		matched = append(matched, event)
	}
	return matched
}

// FilterListings is the listing analogue of FilterEvents. Listings carry no
// start date, so any non-none date range excludes them.
func (f *Filter) FilterListings(listings []models.ListingRecord, filter models.FilterDescriptor) []models.ListingRecord {
	filter = filter.Normalize()
	matched := []models.ListingRecord{}
	for _, listing := range listings {
		if !f.matchKeywords(filter.Keywords, listing.Title, listing.Description, listing.Category, listing.Location) {
			continue
		}
		if !f.matchDateRange(filter.DateRange, "") {
			continue
		}
		if !matchCategory(filter.Categories, listing.Category) {
			continue
		}
		if !matchPrice(filter.PriceRange, listing.IsFree) {
			continue
		}
		matched = append(matched, listing)
	}
	return matched
}

// matchKeywords passes when the keyword list is empty, or when at least one
// keyword appears as a case-insensitive substring of the item's searchable
// text (OR across keywords).
func (f *Filter) matchKeywords(keywords []string, fields ...string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(strings.Join(fields, " "))
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// matchDateRange evaluates the date window in the service timezone. Missing
// or unparseable dates fail every non-none range instead of erroring.
func (f *Filter) matchDateRange(dateRange models.DateRange, startDate string) bool {
	if dateRange == models.DateRangeNone {
		return true
	}

	parsed, ok := f.parseDate(startDate)
	if !ok {
		return false
	}

	now := f.now().In(f.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, f.location)
	day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, f.location)

	switch dateRange {
	case models.DateRangeToday:
		return day.Equal(today)
	case models.DateRangeThisWeekend:
		saturday := today.AddDate(0, 0, daysUntilSaturday(now.Weekday()))
		sunday := saturday.AddDate(0, 0, 1)
		return !day.Before(saturday) && !day.After(sunday)
	case models.DateRangeNextWeek:
		end := today.AddDate(0, 0, 7)
		return !day.Before(today) && !day.After(end)
	}
	return true
}

// daysUntilSaturday returns the offset to the nearest upcoming Saturday.
// Saturday maps to itself, Sunday already rolls to the next weekend.
func daysUntilSaturday(weekday time.Weekday) int {
	return (int(time.Saturday) - int(weekday) + 7) % 7
}

func (f *Filter) parseDate(value string) (time.Time, bool) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.ParseInLocation(layout, value, f.location); err == nil {
			return parsed.In(f.location), true
		}
	}
	return time.Time{}, false
}

func matchCategory(categories []string, category string) bool {
	if len(categories) == 0 {
		return true
	}
	for _, candidate := range categories {
		if strings.EqualFold(candidate, category) {
			return true
		}
	}
	return false
}

func matchPrice(priceRange models.PriceRange, isFree bool) bool {
	if priceRange == models.PriceRangeFree {
		return isFree
	}
	return true
}
