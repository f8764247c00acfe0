package preset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type PresetTestSuite struct {
	suite.Suite
	today time.Time
}

func TestPresetSuite(t *testing.T) {
	suite.Run(t, new(PresetTestSuite))
}

func (s *PresetTestSuite) SetupTest() {
	// Wednesday
	s.today = time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *PresetTestSuite) TestResolve_SundayWeek() {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{Today, date(2025, 1, 15), date(2025, 1, 15)},
		{Yesterday, date(2025, 1, 14), date(2025, 1, 14)},
		{ThisWeek, date(2025, 1, 12), date(2025, 1, 15)},
		{LastWeek, date(2025, 1, 5), date(2025, 1, 11)},
		{ThisMonth, date(2025, 1, 1), date(2025, 1, 15)},
		{LastMonth, date(2024, 12, 1), date(2024, 12, 31)},
		{ThisYear, date(2025, 1, 1), date(2025, 1, 15)},
		{LastYear, date(2024, 1, 1), date(2024, 12, 31)},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			r, err := Resolve(tt.name, s.today, time.Sunday)
			s.Require().NoError(err)
			s.Equal(tt.start, r.Start)
			s.Equal(tt.end, r.End)
		})
	}
}

func (s *PresetTestSuite) TestResolve_MondayWeek() {
	r, err := Resolve(ThisWeek, s.today, time.Monday)
	s.Require().NoError(err)
	s.Equal(date(2025, 1, 13), r.Start)
	s.Equal(date(2025, 1, 15), r.End)

	r, err = Resolve(LastWeek, s.today, time.Monday)
	s.Require().NoError(err)
	s.Equal(date(2025, 1, 6), r.Start)
	s.Equal(date(2025, 1, 12), r.End)
}

func (s *PresetTestSuite) TestResolve_LastMonthLeapYear() {
	r, err := Resolve(LastMonth, date(2024, 3, 31), time.Sunday)
	s.Require().NoError(err)
	s.Equal(date(2024, 2, 1), r.Start)
	s.Equal(date(2024, 2, 29), r.End)
}

func (s *PresetTestSuite) TestResolve_UnknownPreset() {
	_, err := Resolve("Next Week", s.today, time.Sunday)
	s.ErrorIs(err, ErrUnknownPreset)
}

func (s *PresetTestSuite) TestResolve_NeverPastToday() {
	start := date(2023, 12, 25)
	for i := 0; i < 800; i++ {
		today := start.AddDate(0, 0, i)
		for _, ws := range []time.Weekday{time.Sunday, time.Monday} {
			for _, name := range Names {
				r, err := Resolve(name, today, ws)
				s.Require().NoError(err)
				s.False(r.Start.After(r.End), "%s on %s: start after end", name, today.Format("2006-01-02"))
				s.False(r.End.After(today), "%s on %s: end after today", name, today.Format("2006-01-02"))
			}
		}
	}
}

func (s *PresetTestSuite) TestParseWeekStart() {
	ws, err := ParseWeekStart("Monday")
	s.NoError(err)
	s.Equal(time.Monday, ws)

	ws, err = ParseWeekStart("")
	s.NoError(err)
	s.Equal(time.Sunday, ws)

	_, err = ParseWeekStart("friday")
	s.Error(err)
}

func (s *PresetTestSuite) TestAccept() {
	today := date(2025, 1, 15)

	s.True(Accept(date(2025, 1, 1), date(2025, 1, 10), today))
	s.True(Accept(date(2025, 1, 10), date(2025, 1, 10), today))
	s.True(Accept(time.Time{}, date(2025, 1, 10), today))
	s.True(Accept(date(2025, 1, 10), time.Time{}, today))

	s.False(Accept(date(2025, 1, 11), date(2025, 1, 10), today), "inverted pair")
	s.False(Accept(date(2025, 1, 1), date(2025, 1, 16), today), "end after today")
	s.False(Accept(date(2025, 1, 16), time.Time{}, today), "start after today")
}
