package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period is an inclusive date range resolved from a reporting request.
type Period struct {
	Start time.Time
	End   time.Time
}

// ShowIntent is the outcome of the show-request detector.
type ShowIntent struct {
	IsShowRequest bool
	Confidence    float64
	Period        *Period
}

// reportingPhrases signal a "show me my spending" request.
var reportingPhrases = []string{
	"expenses for", "expenses in", "my expenses", "my spending",
	"how much did i spend", "how much have i spent", "show my", "show me",
	"spending for", "spending in", "income for", "report for", "spent in",
	"spent last", "spent on", "what did i spend",
}

var monthNames = []struct {
	name  string
	month time.Month
}{
	{"january", time.January}, {"february", time.February}, {"march", time.March},
	{"april", time.April}, {"may", time.May}, {"june", time.June},
	{"july", time.July}, {"august", time.August}, {"september", time.September},
	{"october", time.October}, {"november", time.November}, {"december", time.December},
}

var (
	explicitDateRe = regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})(?:[./](\d{4}))?\b`)
	dateRangeRe    = regexp.MustCompile(`from\s+(\d{1,2})[./](\d{1,2})(?:[./](\d{4}))?\s+to\s+(\d{1,2})[./](\d{1,2})(?:[./](\d{4}))?`)
)

// IntentDetector recognizes reporting requests before the classifier or the
// AI parser run, so an obvious "show me" message never costs an AI call.
type IntentDetector struct {
	now func() time.Time
}

// NewIntentDetector creates a detector using the wall clock.
func NewIntentDetector() *IntentDetector {
	return &IntentDetector{now: time.Now}
}

// Detect scans for a reporting phrase plus a resolvable period. Confidence is
// 0.85 when both are present, 0.6 when only the phrase is, 0 otherwise.
func (d *IntentDetector) Detect(text string) ShowIntent {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if _, ok := containsPhrase(paddedWords(lowered), reportingPhrases); !ok {
		return ShowIntent{}
	}

	today := truncateDay(d.now())
	if period := d.resolvePeriod(lowered, today); period != nil {
		return ShowIntent{IsShowRequest: true, Confidence: 0.85, Period: period}
	}
	return ShowIntent{IsShowRequest: true, Confidence: 0.6}
}

// resolvePeriod turns temporal markers into a concrete inclusive date range.
// Any period touching the future is rejected so callers fall back instead of
// querying days that cannot have data.
func (d *IntentDetector) resolvePeriod(lowered string, today time.Time) *Period {
	// Explicit range first: "from 1.2 to 15.2".
	if m := dateRangeRe.FindStringSubmatch(lowered); m != nil {
		start := buildDate(m[1], m[2], m[3], today)
		end := buildDate(m[4], m[5], m[6], today)
		if start != nil && end != nil && !start.After(*end) && !end.After(today) {
			return &Period{Start: *start, End: *end}
		}
		return nil
	}

	switch {
	case strings.Contains(lowered, "yesterday"):
		day := today.AddDate(0, 0, -1)
		return &Period{Start: day, End: day}
	case strings.Contains(lowered, "today"):
		return &Period{Start: today, End: today}
	case strings.Contains(lowered, "last week"):
		// Monday of the previous ISO week through today.
		weekday := int(today.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := today.AddDate(0, 0, -(weekday - 1 + 7))
		return &Period{Start: monday, End: today}
	case strings.Contains(lowered, "last month"):
		firstOfThis := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		start := firstOfThis.AddDate(0, -1, 0)
		end := firstOfThis.AddDate(0, 0, -1)
		return &Period{Start: start, End: end}
	}

	// Bare month name: the full month in the most recent non-future year.
	for _, mn := range monthNames {
		if strings.Contains(paddedWords(lowered), " "+mn.name+" ") {
			year := today.Year()
			start := time.Date(year, mn.month, 1, 0, 0, 0, 0, today.Location())
			if start.After(today) {
				start = start.AddDate(-1, 0, 0)
			}
			end := start.AddDate(0, 1, -1)
			if end.After(today) {
				end = today
			}
			return &Period{Start: start, End: end}
		}
	}

	// Single explicit day: "15.03" or "15/03/2024".
	if m := explicitDateRe.FindStringSubmatch(lowered); m != nil {
		if day := buildDate(m[1], m[2], m[3], today); day != nil && !day.After(today) {
			return &Period{Start: *day, End: *day}
		}
	}

	return nil
}

// buildDate validates day/month bounds and assumes the current year when none
// is given. Returns nil for impossible dates.
func buildDate(dayStr, monthStr, yearStr string, today time.Time) *time.Time {
	day, _ := strconv.Atoi(dayStr)
	month, _ := strconv.Atoi(monthStr)
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return nil
	}
	year := today.Year()
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if t.Day() != day || t.Month() != time.Month(month) {
		// time.Date normalized an impossible date like 31.02.
		return nil
	}
	return &t
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
