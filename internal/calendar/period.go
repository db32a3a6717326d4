package calendar

import "time"

// PreviousMonth returns the first and last calendar day of the month
// immediately preceding now's month. Calendar days, not business days.
func PreviousMonth(now time.Time) (start, end time.Time) {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end = firstOfCurrent.AddDate(0, 0, -1)
	start = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, end
}

// FormatAPIDate renders a date in the DD/MM/YYYY layout the external APIs
// expect.
func FormatAPIDate(d time.Time) string {
	return d.Format("02/01/2006")
}
