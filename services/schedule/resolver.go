// Package schedule holds the scheduling core: free-form date/time
// resolution, interval-based availability checking, the per-turn booking
// decision engine, and the two-step cancellation gate.
package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"concierge/models"
)

// ResolveError is the typed failure of a resolution attempt. It carries no
// partial result; callers uniformly ask the user to restate the date/time.
type ResolveError struct {
	Input  string
	Reason string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Input, e.Reason)
}

// Resolver turns free-form date/time phrases into timezone-aware instants.
// All resolution happens against an explicitly passed reference instant so
// results are reproducible within one pass.
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a resolver anchored to the given local zone.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{loc: loc}
}

var (
	// "at 18:30" / "alle 18:30" / "ore 18:30" -> "18:30"
	prepClockRe = regexp.MustCompile(`\b(?:at|alle|ore)\s+(\d{1,2}):(\d{2})\b`)
	// "at 6" / "alle 6" / "ore 6" -> "6:00"; refuses a trailing colon so
	// an hour that already carries ":MM" is left to prepClockRe.
	prepHourRe = regexp.MustCompile(`\b(?:at|alle|ore)\s+(\d{1,2})\b([^:]|$)`)
	// "6pm" / "6:30 pm"
	meridiemRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)

	clockTokenRe  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	prepNumberRe  = regexp.MustCompile(`\b(?:at|alle|ore)\s+\d`)
	isoDateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[Tt ]\d{2}:\d{2}(:\d{2})?(\.\d+)?([Zz]|[+-]\d{2}:?\d{2})?$`)
	isoDateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	// Day-before-month is the locale default for numeric dates.
	dmyRe = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})(?:[/.-](\d{2,4}))?\b`)
	// An embedded ISO date keeps year-month-day ordering.
	ymdRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	weekdayRe = regexp.MustCompile(`\b(?:(next|prossimo|prossima)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday|lunedi|martedi|mercoledi|giovedi|venerdi|sabato|domenica)\b`)
	inDaysRe  = regexp.MustCompile(`\b(?:in|tra|fra)\s+(\d+)\s+(?:days?|giorni)\b`)

	monthDayRe = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:\s*,?\s*(\d{4}))?\b`)
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december|gennaio|febbraio|marzo|aprile|maggio|giugno|luglio|agosto|settembre|ottobre|novembre|dicembre)(?:\s+(\d{4}))?\b`)
)

// accentFolder strips Italian accents before matching, since the word
// grammar is ASCII-only.
var accentFolder = strings.NewReplacer(
	"à", "a", "è", "e", "é", "e", "ì", "i", "ò", "o", "ù", "u",
)

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "lunedi": time.Monday,
	"tuesday": time.Tuesday, "martedi": time.Tuesday,
	"wednesday": time.Wednesday, "mercoledi": time.Wednesday,
	"thursday": time.Thursday, "giovedi": time.Thursday,
	"friday": time.Friday, "venerdi": time.Friday,
	"saturday": time.Saturday, "sabato": time.Saturday,
	"sunday": time.Sunday, "domenica": time.Sunday,
}

var months = map[string]time.Month{
	"january": time.January, "gennaio": time.January,
	"february": time.February, "febbraio": time.February,
	"march": time.March, "marzo": time.March,
	"april": time.April, "aprile": time.April,
	"may": time.May, "maggio": time.May,
	"june": time.June, "giugno": time.June,
	"july": time.July, "luglio": time.July,
	"august": time.August, "agosto": time.August,
	"september": time.September, "settembre": time.September,
	"october": time.October, "ottobre": time.October,
	"november": time.November, "novembre": time.November,
	"december": time.December, "dicembre": time.December,
}

// Time-of-day keywords imply an explicit time and map to a canonical clock
// value.
var timeKeywords = map[string]string{
	"noon": "12:00", "mezzogiorno": "12:00",
	"midnight": "0:00", "mezzanotte": "0:00",
	"morning": "9:00", "mattina": "9:00",
	"afternoon": "15:00", "pomeriggio": "15:00",
	"evening": "19:00", "sera": "19:00",
	"tonight": "21:00", "stasera": "21:00",
}

// timeKeywordsByLength orders the keywords longest first so a containing
// keyword always wins over its substring ("stasera" before "sera").
var timeKeywordsByLength = func() []string {
	keywords := make([]string, 0, len(timeKeywords))
	for keyword := range timeKeywords {
		keywords = append(keywords, keyword)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if len(keywords[i]) != len(keywords[j]) {
			return len(keywords[i]) > len(keywords[j])
		}
		return keywords[i] < keywords[j]
	})
	return keywords
}()

// Resolve parses a free-form phrase against the reference instant now.
// The returned instant is never earlier than now; a phrase with no clock
// time resolves to local midnight with TimeExplicit=false.
func (r *Resolver) Resolve(text string, now time.Time) (models.ParsedDateTime, error) {
	original := accentFolder.Replace(strings.ToLower(strings.TrimSpace(text)))
	if original == "" {
		return models.ParsedDateTime{}, &ResolveError{Input: text, Reason: "empty input"}
	}
	now = now.In(r.loc)

	// Strict ISO input is trusted as-is, including its component ordering.
	if iso, ok, err := r.parseISO(original, now); ok {
		return iso, err
	}

	processed := normalizeTimePhrases(original)
	explicit := detectExplicitTime(original, processed)
	processed = replaceTimeKeywords(processed)

	hour, minute, hasClock := extractClock(processed)
	if hasClock {
		processed = clockTokenRe.ReplaceAllString(processed, " ")
	}

	day, ok := r.resolveDate(processed, now, hour, minute, hasClock)
	if !ok {
		return models.ParsedDateTime{}, &ResolveError{Input: text, Reason: "unrecognized date expression"}
	}

	instant := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, r.loc)

	// An implicitly inferred time is discarded, never trusted.
	if !explicit {
		instant = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
	}

	if instant.Before(now) {
		return models.ParsedDateTime{}, &ResolveError{Input: text, Reason: "resolved instant is in the past"}
	}
	return models.ParsedDateTime{Instant: instant, TimeExplicit: explicit}, nil
}

// parseISO handles strict ISO-8601 inputs, which keep year-month-day
// ordering instead of the day-before-month locale default.
func (r *Resolver) parseISO(input string, now time.Time) (models.ParsedDateTime, bool, error) {
	if isoDateRe.MatchString(input) {
		t, err := time.ParseInLocation("2006-01-02", input, r.loc)
		if err != nil {
			return models.ParsedDateTime{}, true, &ResolveError{Input: input, Reason: "invalid ISO date"}
		}
		if t.Before(now) {
			return models.ParsedDateTime{}, true, &ResolveError{Input: input, Reason: "resolved instant is in the past"}
		}
		return models.ParsedDateTime{Instant: t, TimeExplicit: false}, true, nil
	}
	if !isoDateTimeRe.MatchString(input) {
		return models.ParsedDateTime{}, false, nil
	}
	normalized := strings.Replace(strings.ToUpper(input), " ", "T", 1)
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, normalized, r.loc)
		if err != nil {
			continue
		}
		if t.Before(now) {
			return models.ParsedDateTime{}, true, &ResolveError{Input: input, Reason: "resolved instant is in the past"}
		}
		return models.ParsedDateTime{Instant: t.In(r.loc), TimeExplicit: true}, true, nil
	}
	return models.ParsedDateTime{}, true, &ResolveError{Input: input, Reason: "invalid ISO datetime"}
}

// normalizeTimePhrases rewrites locale time phrases ("at 6", "alle 18:30",
// "6pm") into canonical HH:MM tokens so the date grammar cannot misread the
// clock value as a date component.
func normalizeTimePhrases(input string) string {
	// Meridiem first, so "at 6pm" becomes "at 18:00" and the preposition
	// rules below can consume it as a plain clock.
	out := meridiemRe.ReplaceAllStringFunc(input, func(match string) string {
		parts := meridiemRe.FindStringSubmatch(match)
		hour, err := strconv.Atoi(parts[1])
		if err != nil || hour > 12 {
			return match
		}
		if parts[3] == "pm" && hour != 12 {
			hour += 12
		}
		if parts[3] == "am" && hour == 12 {
			hour = 0
		}
		minute := parts[2]
		if minute == "" {
			minute = "00"
		}
		return fmt.Sprintf("%d:%s", hour, minute)
	})
	out = prepClockRe.ReplaceAllString(out, "$1:$2")
	return prepHourRe.ReplaceAllString(out, "$1:00$2")
}

// detectExplicitTime reports whether the user actually named a clock time:
// a HH:MM token, a time-of-day keyword, or a preposition-number pattern.
func detectExplicitTime(original, processed string) bool {
	if clockTokenRe.MatchString(processed) {
		return true
	}
	for keyword := range timeKeywords {
		if strings.Contains(original, keyword) {
			return true
		}
	}
	return prepNumberRe.MatchString(original)
}

func replaceTimeKeywords(input string) string {
	if clockTokenRe.MatchString(input) {
		return input
	}
	for _, keyword := range timeKeywordsByLength {
		if strings.Contains(input, keyword) {
			return strings.Replace(input, keyword, timeKeywords[keyword], 1)
		}
	}
	return input
}

func extractClock(input string) (hour, minute int, ok bool) {
	match := clockTokenRe.FindStringSubmatch(input)
	if match == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(match[1])
	minute, _ = strconv.Atoi(match[2])
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// resolveDate finds the calendar day the remaining text refers to, with a
// prefer-future bias. hasClock marks that a clock value was extracted; a
// bare time resolves to today, or tomorrow once today's occurrence passed.
func (r *Resolver) resolveDate(input string, now time.Time, hour, minute int, hasClock bool) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)

	if match := weekdayRe.FindStringSubmatch(input); match != nil {
		target := weekdays[match[2]]
		// Next occurrence strictly after the reference day; a same-day
		// match advances a full week, never resolving to today.
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	}

	if match := inDaysRe.FindStringSubmatch(input); match != nil {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return time.Time{}, false
		}
		return today.AddDate(0, 0, n), true
	}

	switch {
	case strings.Contains(input, "day after tomorrow"), strings.Contains(input, "dopodomani"):
		return today.AddDate(0, 0, 2), true
	case strings.Contains(input, "tomorrow"), strings.Contains(input, "domani"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(input, "today"), strings.Contains(input, "oggi"), strings.Contains(input, "stasera"), strings.Contains(input, "tonight"):
		return today, true
	case strings.Contains(input, "yesterday"), strings.Contains(input, "ieri"):
		return today.AddDate(0, 0, -1), true
	}

	if match := ymdRe.FindStringSubmatch(input); match != nil {
		year, _ := strconv.Atoi(match[1])
		month, _ := strconv.Atoi(match[2])
		day, _ := strconv.Atoi(match[3])
		candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.loc)
		if candidate.Day() != day {
			return time.Time{}, false
		}
		return candidate, true
	}

	if day, ok := r.parseNumericDate(input, today); ok {
		return day, true
	}
	if day, ok := r.parseNamedMonth(input, today); ok {
		return day, true
	}

	// A bare clock time refers to the next occurrence of that time.
	if hasClock && strings.TrimSpace(strings.Trim(input, " ,.")) == "" {
		candidate := time.Date(today.Year(), today.Month(), today.Day(), hour, minute, 0, 0, r.loc)
		if !candidate.After(now) {
			return today.AddDate(0, 0, 1), true
		}
		return today, true
	}
	return time.Time{}, false
}

// parseNumericDate reads numeric dates assuming day-before-month ordering.
func (r *Resolver) parseNumericDate(input string, today time.Time) (time.Time, bool) {
	match := dmyRe.FindStringSubmatch(input)
	if match == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := today.Year()
	hasYear := match[3] != ""
	if hasYear {
		year, _ = strconv.Atoi(match[3])
		if year < 100 {
			year += 2000
		}
	}
	candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.loc)
	if candidate.Day() != day {
		return time.Time{}, false
	}
	if !hasYear && candidate.Before(today) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate, true
}

// parseNamedMonth reads "12 march [2026]" and "march 12[, 2026]" forms.
func (r *Resolver) parseNamedMonth(input string, today time.Time) (time.Time, bool) {
	var day, year int
	var month time.Month
	var hasYear bool

	if match := dayMonthRe.FindStringSubmatch(input); match != nil {
		day, _ = strconv.Atoi(match[1])
		month = months[match[2]]
		if match[3] != "" {
			year, _ = strconv.Atoi(match[3])
			hasYear = true
		}
	} else if match := monthDayRe.FindStringSubmatch(input); match != nil {
		month = months[match[1]]
		day, _ = strconv.Atoi(match[2])
		if match[3] != "" {
			year, _ = strconv.Atoi(match[3])
			hasYear = true
		}
	} else {
		return time.Time{}, false
	}

	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	if !hasYear {
		year = today.Year()
	}
	candidate := time.Date(year, month, day, 0, 0, 0, 0, r.loc)
	if candidate.Day() != day {
		return time.Time{}, false
	}
	if !hasYear && candidate.Before(today) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate, true
}
