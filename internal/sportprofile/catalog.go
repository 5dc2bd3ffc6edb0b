package sportprofile

import "fmt"

// builtin catalogs. Keys are sport identifiers as used by the backend.
var builtin = map[string]*Profile{
	"football": {
		Key:                "football",
		PeriodCount:        2,
		PeriodMinutes:      45,
		BreakMinutes:       15,
		ExtraPeriodMinutes: 15,
		ScoringEvents: map[string]int{
			"GOAL":         1,
			"PENALTY_GOAL": 1,
			"OWN_GOAL":     1,
		},
		DisciplinaryEvents: map[string]Severity{
			"YELLOW_CARD":        SeverityYellow,
			"SECOND_YELLOW_CARD": SeverityYellow,
			"RED_CARD":           SeverityRed,
		},
		LiveStatuses: statusSet(
			StatusLive, StatusHalftime, StatusSecondHalf,
			StatusExtraTimeFirst, StatusExtraTimeSecond, StatusPenalties,
		),
		FinishedStatuses: statusSet(StatusFinished, StatusAbandoned, StatusVoided),
		PeriodByStatus: map[Status]int{
			StatusLive:            1,
			StatusSecondHalf:      2,
			StatusExtraTimeFirst:  3,
			StatusExtraTimeSecond: 4,
		},
		BreakAfter: map[Status]int{StatusHalftime: 1},
		Labels: map[string]string{
			"GOAL":               "Goal",
			"PENALTY_GOAL":       "Penalty",
			"OWN_GOAL":           "Own goal",
			"YELLOW_CARD":        "Yellow card",
			"SECOND_YELLOW_CARD": "Second yellow",
			"RED_CARD":           "Red card",
			"SUBSTITUTION":       "Substitution",
			"CORNER":             "Corner",
		},
	},
	"futsal": {
		Key:                "futsal",
		PeriodCount:        2,
		PeriodMinutes:      20,
		BreakMinutes:       10,
		ExtraPeriodMinutes: 5,
		ScoringEvents: map[string]int{
			"GOAL":     1,
			"OWN_GOAL": 1,
		},
		DisciplinaryEvents: map[string]Severity{
			"YELLOW_CARD": SeverityYellow,
			"RED_CARD":    SeverityRed,
		},
		LiveStatuses: statusSet(
			StatusLive, StatusHalftime, StatusSecondHalf, StatusPenalties,
		),
		FinishedStatuses: statusSet(StatusFinished, StatusAbandoned, StatusVoided),
		PeriodByStatus: map[Status]int{
			StatusLive:       1,
			StatusSecondHalf: 2,
		},
		BreakAfter: map[Status]int{StatusHalftime: 1},
		Labels: map[string]string{
			"GOAL":     "Goal",
			"OWN_GOAL": "Own goal",
		},
	},
	"basketball": {
		Key:                "basketball",
		PeriodCount:        4,
		PeriodMinutes:      10,
		BreakMinutes:       2,
		ExtraPeriodMinutes: 5,
		ScoringEvents: map[string]int{
			"FREE_THROW":    1,
			"TWO_POINTER":   2,
			"THREE_POINTER": 3,
		},
		DisciplinaryEvents: map[string]Severity{
			"TECHNICAL_FOUL":    SeverityYellow,
			"DISQUALIFICATION":  SeverityRed,
			"UNSPORTSMANLIKE":   SeverityYellow,
		},
		LiveStatuses: statusSet(
			StatusLive, StatusSecondHalf, StatusThirdPeriod, StatusFourthPeriod,
			StatusHalftime, StatusIntermission, StatusExtraTimeFirst,
		),
		FinishedStatuses: statusSet(StatusFinished, StatusAbandoned, StatusVoided),
		PeriodByStatus: map[Status]int{
			StatusLive:           1,
			StatusSecondHalf:     2,
			StatusThirdPeriod:    3,
			StatusFourthPeriod:   4,
			StatusExtraTimeFirst: 5,
		},
		BreakAfter: map[Status]int{StatusHalftime: 2, StatusIntermission: 1},
		Labels: map[string]string{
			"FREE_THROW":    "Free throw",
			"TWO_POINTER":   "2-pointer",
			"THREE_POINTER": "3-pointer",
		},
	},
	"rugby": {
		Key:                "rugby",
		PeriodCount:        2,
		PeriodMinutes:      40,
		BreakMinutes:       10,
		ExtraPeriodMinutes: 10,
		ScoringEvents: map[string]int{
			"TRY":          5,
			"CONVERSION":   2,
			"PENALTY_KICK": 3,
			"DROP_GOAL":    3,
		},
		DisciplinaryEvents: map[string]Severity{
			"YELLOW_CARD": SeverityYellow,
			"RED_CARD":    SeverityRed,
		},
		LiveStatuses: statusSet(
			StatusLive, StatusHalftime, StatusSecondHalf,
			StatusExtraTimeFirst, StatusExtraTimeSecond,
		),
		FinishedStatuses: statusSet(StatusFinished, StatusAbandoned, StatusVoided),
		PeriodByStatus: map[Status]int{
			StatusLive:            1,
			StatusSecondHalf:      2,
			StatusExtraTimeFirst:  3,
			StatusExtraTimeSecond: 4,
		},
		BreakAfter: map[Status]int{StatusHalftime: 1},
		Labels: map[string]string{
			"TRY":          "Try",
			"CONVERSION":   "Conversion",
			"PENALTY_KICK": "Penalty kick",
			"DROP_GOAL":    "Drop goal",
		},
	},
	"hockey": {
		Key:                "hockey",
		PeriodCount:        3,
		PeriodMinutes:      20,
		BreakMinutes:       15,
		ExtraPeriodMinutes: 5,
		ScoringEvents: map[string]int{
			"GOAL": 1,
		},
		DisciplinaryEvents: map[string]Severity{
			"MINOR_PENALTY": SeverityYellow,
			"MAJOR_PENALTY": SeverityRed,
			"MISCONDUCT":    SeverityRed,
		},
		LiveStatuses: statusSet(
			StatusLive, StatusSecondHalf, StatusThirdPeriod,
			StatusIntermission, StatusExtraTimeFirst, StatusPenalties,
		),
		FinishedStatuses: statusSet(StatusFinished, StatusAbandoned, StatusVoided),
		PeriodByStatus: map[Status]int{
			StatusLive:           1,
			StatusSecondHalf:     2,
			StatusThirdPeriod:    3,
			StatusExtraTimeFirst: 4,
		},
		BreakAfter: map[Status]int{StatusIntermission: 1},
		Labels: map[string]string{
			"GOAL":          "Goal",
			"MINOR_PENALTY": "Minor penalty",
			"MAJOR_PENALTY": "Major penalty",
		},
	},
	"handball": {
		Key:                "handball",
		PeriodCount:        2,
		PeriodMinutes:      30,
		BreakMinutes:       10,
		ExtraPeriodMinutes: 5,
		ScoringEvents: map[string]int{
			"GOAL":         1,
			"PENALTY_GOAL": 1,
		},
		DisciplinaryEvents: map[string]Severity{
			"YELLOW_CARD":    SeverityYellow,
			"RED_CARD":       SeverityRed,
			"TWO_MIN_SUSPENSION": SeverityYellow,
		},
		LiveStatuses: statusSet(
			StatusLive, StatusHalftime, StatusSecondHalf, StatusPenalties,
		),
		FinishedStatuses: statusSet(StatusFinished, StatusAbandoned, StatusVoided),
		PeriodByStatus: map[Status]int{
			StatusLive:       1,
			StatusSecondHalf: 2,
		},
		BreakAfter: map[Status]int{StatusHalftime: 1},
		Labels: map[string]string{
			"GOAL":         "Goal",
			"PENALTY_GOAL": "Penalty goal",
		},
	},
}

// Get returns the profile for a sport key. Unknown keys are an error:
// silently defaulting to a football-shaped profile is how other sports
// previously got wrong point values.
func Get(sportKey string) (*Profile, error) {
	if p, ok := lookupCustom(sportKey); ok {
		return p, nil
	}
	p, ok := builtin[sportKey]
	if !ok {
		return nil, fmt.Errorf("unknown sport %q", sportKey)
	}
	return p, nil
}

// Keys returns all registered sport keys.
func Keys() []string {
	out := make([]string, 0, len(builtin))
	for k := range builtin {
		out = append(out, k)
	}
	return out
}

func statusSet(statuses ...Status) map[Status]bool {
	m := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}
