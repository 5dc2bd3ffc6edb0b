package sportprofile

import (
	"fmt"
	"strings"
)

// Status is a match lifecycle state as delivered by the backend.
type Status string

const (
	StatusScheduled       Status = "scheduled"
	StatusWarmup          Status = "warmup"
	StatusLive            Status = "live" // first period
	StatusHalftime        Status = "halftime"
	StatusSecondHalf      Status = "second-half"
	StatusThirdPeriod     Status = "third-period"
	StatusFourthPeriod    Status = "fourth-period"
	StatusIntermission    Status = "intermission"
	StatusExtraTimeFirst  Status = "extra-time-first"
	StatusExtraTimeSecond Status = "extra-time-second"
	StatusPenalties       Status = "penalties"
	StatusFinished        Status = "finished"
	StatusCancelled       Status = "cancelled"
	StatusPostponed       Status = "postponed"
	StatusAbandoned       Status = "abandoned"
	StatusVoided          Status = "voided"
)

// Severity classifies a disciplinary event when the catalog carries
// structured data. SeverityUnknown falls back to substring matching
// on the event key (see Profile.CardSeverity).
type Severity string

const (
	SeverityUnknown Severity = ""
	SeverityYellow  Severity = "yellow"
	SeverityRed     Severity = "red"
)

// Profile describes one sport's period structure, scoring catalog and
// status classification. Profiles are immutable after construction and
// safe for concurrent reads.
type Profile struct {
	Key string

	PeriodCount        int
	PeriodMinutes      int
	BreakMinutes       int
	ExtraPeriodMinutes int

	// ScoringEvents maps an event-type key to its point value.
	ScoringEvents map[string]int

	// DisciplinaryEvents maps an event-type key to its card severity.
	// SeverityUnknown entries are classified by key substring.
	DisciplinaryEvents map[string]Severity

	LiveStatuses     map[Status]bool
	FinishedStatuses map[Status]bool

	// PeriodByStatus maps an in-play status to its 1-based period
	// ordinal. Periods past PeriodCount are extra time.
	PeriodByStatus map[Status]int

	// BreakAfter maps a break status to the period it follows.
	BreakAfter map[Status]int

	Labels map[string]string
}

func (p *Profile) IsLive(s Status) bool     { return p.LiveStatuses[s] }
func (p *Profile) IsFinished(s Status) bool { return p.FinishedStatuses[s] }

// IsScoring reports whether the event type affects the score.
func (p *Profile) IsScoring(eventType string) bool {
	_, ok := p.ScoringEvents[eventType]
	return ok
}

// EventPoints returns the point value for a scoring event type.
// Unknown keys are an error, never a silent 1 — defaulting here is how
// non-default sports previously ended up with wrong scores.
func (p *Profile) EventPoints(eventType string) (int, error) {
	pts, ok := p.ScoringEvents[eventType]
	if !ok {
		return 0, fmt.Errorf("sport %s: %q is not a scoring event", p.Key, eventType)
	}
	return pts, nil
}

// EventLabel returns the display label for an event type, falling back
// to the key itself.
func (p *Profile) EventLabel(eventType string) string {
	if l, ok := p.Labels[eventType]; ok {
		return l
	}
	return eventType
}

// IsDisciplinary reports whether the event type is a card-type event.
func (p *Profile) IsDisciplinary(eventType string) bool {
	_, ok := p.DisciplinaryEvents[eventType]
	return ok
}

// CardSeverity resolves the card color for a disciplinary event type.
// Catalog severity wins; otherwise the key is matched case-insensitively
// for "YELLOW"/"RED" substrings. The substring rule is a compatibility
// fallback for catalogs that carry no structured severity.
func (p *Profile) CardSeverity(eventType string) Severity {
	if sev, ok := p.DisciplinaryEvents[eventType]; ok && sev != SeverityUnknown {
		return sev
	}
	upper := strings.ToUpper(eventType)
	switch {
	case strings.Contains(upper, "YELLOW"):
		return SeverityYellow
	case strings.Contains(upper, "RED"):
		return SeverityRed
	}
	return SeverityUnknown
}

// PeriodEndMinute returns the cumulative minute at which the given
// 1-based period ends.
func (p *Profile) PeriodEndMinute(period int) int {
	if period <= p.PeriodCount {
		return period * p.PeriodMinutes
	}
	extra := period - p.PeriodCount
	return p.PeriodCount*p.PeriodMinutes + extra*p.ExtraPeriodMinutes
}

// PeriodMinutesFor returns the nominal duration of the given period.
func (p *Profile) PeriodMinutesFor(period int) int {
	if period > p.PeriodCount {
		return p.ExtraPeriodMinutes
	}
	return p.PeriodMinutes
}
