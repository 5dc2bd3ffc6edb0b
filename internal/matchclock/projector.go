package matchclock

import (
	"fmt"
	"time"

	"github.com/pitchconnect/livesync/internal/sportprofile"
)

// Project derives the displayed match minute from kickoff time, the
// current wall clock, the match status and the sport's period layout.
// Pure: no side effects, re-derivable at any time; never persisted as
// authoritative state.
//
// Rules:
//   - in-progress period: wall time since the period's nominal start,
//     clamped to the period's duration (a football match 50' after
//     kickoff in the first half shows 45, not 50);
//   - break: the fixed end-of-period minute;
//   - anything else (scheduled, penalties, finished, ...): lastKnown.
func Project(kickoff, now time.Time, status sportprofile.Status, lastKnown int, p *sportprofile.Profile) int {
	if kickoff.IsZero() {
		return lastKnown
	}

	if after, ok := p.BreakAfter[status]; ok {
		return p.PeriodEndMinute(after)
	}

	period, ok := p.PeriodByStatus[status]
	if !ok {
		return lastKnown
	}

	elapsed := int(now.Sub(kickoff).Minutes())
	wallStart := periodWallStart(p, period)
	inPeriod := elapsed - wallStart
	if inPeriod < 0 {
		inPeriod = 0
	}
	if max := p.PeriodMinutesFor(period); inPeriod > max {
		inPeriod = max
	}
	return p.PeriodEndMinute(period-1) + inPeriod
}

// periodWallStart is the wall-clock minute (relative to kickoff) at
// which the given period nominally starts: all prior periods plus one
// break interval between each.
func periodWallStart(p *sportprofile.Profile, period int) int {
	return p.PeriodEndMinute(period-1) + (period-1)*p.BreakMinutes
}

// Label renders a display name for the current phase of play.
func Label(status sportprofile.Status, p *sportprofile.Profile) string {
	if p.IsFinished(status) {
		return "Full Time"
	}
	if status == sportprofile.StatusPenalties {
		return "Penalties"
	}
	if _, ok := p.BreakAfter[status]; ok {
		return "Break"
	}
	period, ok := p.PeriodByStatus[status]
	if !ok {
		return string(status)
	}
	if period > p.PeriodCount {
		return "Extra Time"
	}
	if p.PeriodCount == 2 {
		if period == 1 {
			return "1st Half"
		}
		return "2nd Half"
	}
	return fmt.Sprintf("Period %d", period)
}
