package sportprofile

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Custom catalogs registered at startup override the builtins.
var (
	customMu sync.RWMutex
	custom   = map[string]*Profile{}
)

type catalogFile struct {
	Sports map[string]sportYAML `yaml:"sports"`
}

type sportYAML struct {
	PeriodCount        int               `yaml:"period_count"`
	PeriodMinutes      int               `yaml:"period_minutes"`
	BreakMinutes       int               `yaml:"break_minutes"`
	ExtraPeriodMinutes int               `yaml:"extra_period_minutes"`
	ScoringEvents      map[string]int    `yaml:"scoring_events"`
	DisciplinaryEvents map[string]string `yaml:"disciplinary_events"`
	LiveStatuses       []string          `yaml:"live_statuses"`
	FinishedStatuses   []string          `yaml:"finished_statuses"`
	PeriodByStatus     map[string]int    `yaml:"period_by_status"`
	BreakAfter         map[string]int    `yaml:"break_after"`
	Labels             map[string]string `yaml:"labels"`
}

// LoadCatalog reads sport profiles from a YAML file and registers them,
// overriding builtins with the same key. Missing file is an error — a
// configured catalog path that cannot be read is a deployment bug.
func LoadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sport catalog: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse sport catalog: %w", err)
	}

	for key, sy := range cf.Sports {
		p, err := sy.toProfile(key)
		if err != nil {
			return err
		}
		customMu.Lock()
		custom[key] = p
		customMu.Unlock()
	}
	return nil
}

func (sy sportYAML) toProfile(key string) (*Profile, error) {
	if sy.PeriodCount <= 0 || sy.PeriodMinutes <= 0 {
		return nil, fmt.Errorf("sport catalog %q: period_count and period_minutes are required", key)
	}

	p := &Profile{
		Key:                key,
		PeriodCount:        sy.PeriodCount,
		PeriodMinutes:      sy.PeriodMinutes,
		BreakMinutes:       sy.BreakMinutes,
		ExtraPeriodMinutes: sy.ExtraPeriodMinutes,
		ScoringEvents:      sy.ScoringEvents,
		DisciplinaryEvents: make(map[string]Severity, len(sy.DisciplinaryEvents)),
		LiveStatuses:       make(map[Status]bool, len(sy.LiveStatuses)),
		FinishedStatuses:   make(map[Status]bool, len(sy.FinishedStatuses)),
		PeriodByStatus:     make(map[Status]int, len(sy.PeriodByStatus)),
		BreakAfter:         make(map[Status]int, len(sy.BreakAfter)),
		Labels:             sy.Labels,
	}
	if p.ScoringEvents == nil {
		p.ScoringEvents = map[string]int{}
	}

	for k, sev := range sy.DisciplinaryEvents {
		switch Severity(sev) {
		case SeverityYellow, SeverityRed, SeverityUnknown:
			p.DisciplinaryEvents[k] = Severity(sev)
		default:
			return nil, fmt.Errorf("sport catalog %q: unknown severity %q for %q", key, sev, k)
		}
	}
	for _, s := range sy.LiveStatuses {
		p.LiveStatuses[Status(s)] = true
	}
	for _, s := range sy.FinishedStatuses {
		p.FinishedStatuses[Status(s)] = true
	}
	for s, n := range sy.PeriodByStatus {
		p.PeriodByStatus[Status(s)] = n
	}
	for s, n := range sy.BreakAfter {
		p.BreakAfter[Status(s)] = n
	}
	return p, nil
}

func lookupCustom(key string) (*Profile, bool) {
	customMu.RLock()
	defer customMu.RUnlock()
	p, ok := custom[key]
	return p, ok
}
