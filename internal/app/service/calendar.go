package service

import (
	"errors"
	"fmt"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

var ErrCalendarConversion = errors.New("date cannot be converted")

// DateAttributes are the descriptive columns of a date dimension row.
type DateAttributes struct {
	JalaliDate string
	DayOfWeek  string
	MonthName  string
	Quarter    int
	IsHoliday  bool
}

// DateCalendar describes a calendar date. Implementations must be pure.
type DateCalendar interface {
	Attributes(t time.Time) (DateAttributes, error)
}

var jalaliWeekdays = [...]string{
	"Shanbeh",
	"Yekshanbeh",
	"Doshanbeh",
	"Seshanbeh",
	"Chaharshanbeh",
	"Panjshanbeh",
	"Jomeh",
}

var jalaliMonths = [...]string{
	"Farvardin",
	"Ordibehesht",
	"Khordad",
	"Tir",
	"Mordad",
	"Shahrivar",
	"Mehr",
	"Aban",
	"Azar",
	"Dey",
	"Bahman",
	"Esfand",
}

// JalaliCalendar describes dates in the Persian solar calendar. Friday (Jomeh) is the weekly holiday.
type JalaliCalendar struct{}

func NewJalaliCalendar() *JalaliCalendar {
	return &JalaliCalendar{}
}

func (JalaliCalendar) Attributes(t time.Time) (DateAttributes, error) {
	pt := ptime.New(t)

	month := int(pt.Month())
	weekday := int(pt.Weekday())
	if pt.Year() < 1 || month < 1 || month > len(jalaliMonths) || weekday < 0 || weekday >= len(jalaliWeekdays) {
		return DateAttributes{}, fmt.Errorf("%w: %s", ErrCalendarConversion, t.Format(time.RFC3339))
	}

	return DateAttributes{
		JalaliDate: fmt.Sprintf("%04d-%02d-%02d", pt.Year(), month, pt.Day()),
		DayOfWeek:  jalaliWeekdays[weekday],
		MonthName:  jalaliMonths[month-1],
		Quarter:    (month-1)/3 + 1,
		IsHoliday:  weekday == len(jalaliWeekdays)-1,
	}, nil
}
