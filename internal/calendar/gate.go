package calendar

import (
	"time"

	"github.com/rs/zerolog"
)

// executionBusinessDay is the business day of the month on which the
// scheduled run fires.
const executionBusinessDay = 3

// Gate decides whether the process should run today: either the manual
// override is set, or today is the third business day of the month.
type Gate struct {
	cal   *Calendar
	force bool
	log   zerolog.Logger
}

// NewGate builds a gate over the given calendar. force is the manual
// override escape hatch.
func NewGate(cal *Calendar, force bool, log zerolog.Logger) *Gate {
	return &Gate{cal: cal, force: force, log: log}
}

// ShouldRun reports whether a run should start on the given day. The manual
// override is logged at warning level; it is a compliance-relevant event.
func (g *Gate) ShouldRun(now time.Time) bool {
	if g.force {
		g.log.Warn().Msg("Manual override active (FORCAR_EXECUCAO); forcing execution")
		return true
	}

	day := g.cal.BusinessDayOfMonth(now)
	if g.cal.IsBusinessDay(now) && day == executionBusinessDay {
		g.log.Info().
			Time("today", now).
			Int("business_day", day).
			Msg("Today is the scheduled execution day")
		return true
	}

	g.log.Info().
		Time("today", now).
		Int("business_day", day).
		Msg("Not the scheduled execution day; nothing to do")
	return false
}
