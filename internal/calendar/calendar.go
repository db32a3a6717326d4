package calendar

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Calendar answers business-day questions for the Brazilian jurisdiction:
// Monday through Friday, minus national public holidays. Movable feasts
// (Carnival, Good Friday, Corpus Christi) are derived from the Easter date
// per year. Extra dates can be layered on from a YAML file for regional or
// one-off holidays.
type Calendar struct {
	extra map[string]bool // "2006-01-02" -> true
}

// NewBrazil returns a calendar with the national holiday set built in.
func NewBrazil() *Calendar {
	return &Calendar{extra: map[string]bool{}}
}

// holidayFile is the YAML shape of a calendar override file.
type holidayFile struct {
	Holidays []struct {
		Date string `yaml:"date"`
		Name string `yaml:"name"`
	} `yaml:"holidays"`
}

// LoadExtraHolidays merges additional holidays from a YAML file. Dates use
// the 2006-01-02 layout.
func (c *Calendar) LoadExtraHolidays(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("LoadExtraHolidays: reading %q: %w", path, err)
	}

	var file holidayFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("LoadExtraHolidays: parsing %q: %w", path, err)
	}

	for _, h := range file.Holidays {
		if _, err := time.Parse("2006-01-02", h.Date); err != nil {
			return fmt.Errorf("LoadExtraHolidays: invalid date %q: %w", h.Date, err)
		}
		c.extra[h.Date] = true
	}
	return nil
}

// IsBusinessDay reports whether d is a weekday that is not a holiday.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.isHoliday(d)
}

// BusinessDayOfMonth counts business days from the 1st of d's month through
// d inclusive. If d itself is not a business day it does not count.
func (c *Calendar) BusinessDayOfMonth(d time.Time) int {
	count := 0
	cur := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
	last := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	for !cur.After(last) {
		if c.IsBusinessDay(cur) {
			count++
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return count
}

func (c *Calendar) isHoliday(d time.Time) bool {
	if c.extra[d.Format("2006-01-02")] {
		return true
	}

	switch [2]int{int(d.Month()), d.Day()} {
	case [2]int{1, 1}, // Confraternização Universal
		[2]int{4, 21},  // Tiradentes
		[2]int{5, 1},   // Dia do Trabalho
		[2]int{9, 7},   // Independência
		[2]int{10, 12}, // Nossa Senhora Aparecida
		[2]int{11, 2},  // Finados
		[2]int{11, 15}, // Proclamação da República
		[2]int{12, 25}: // Natal
		return true
	}

	easter := easterSunday(d.Year())
	for _, offset := range []int{-48, -47, -2, 60} {
		// Carnival Monday/Tuesday, Good Friday, Corpus Christi
		h := easter.AddDate(0, 0, offset)
		if h.Month() == d.Month() && h.Day() == d.Day() {
			return true
		}
	}
	return false
}

// easterSunday computes the Gregorian Easter date (anonymous Gauss
// algorithm) for the given year.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
