package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("patient not found")
	ErrConflict = errors.New("patient with this MRI already exists")
	ErrInvalid  = errors.New("invalid patient")
)

// DateLayout is the wire and storage format of next_med_count.
const DateLayout = "2006-01-02"

// Date is a calendar date with no time component. The zero Date marshals as null.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC of d, the form handed to the database drivers.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Patient maps to the patients table. TodayFlag is never stored.
type Patient struct {
	ID           int64  `db:"id" json:"id"`
	MRI          string `db:"mri" json:"mri"`
	NextMedCount Date   `db:"next_med_count" json:"next_med_count"`
	TodayFlag    bool   `db:"-" json:"today_flag"`
}

// PatientInput is the validated body of create and update requests. A
// client-supplied today_flag is accepted and discarded.
type PatientInput struct {
	MRI          string `json:"mri" validate:"required,min=2,max=6"`
	NextMedCount string `json:"next_med_count" validate:"required,datetime=2006-01-02"`
	TodayFlag    *bool  `json:"today_flag,omitempty"`
}

// Patient converts the input into an unsaved record.
func (in PatientInput) Patient() (*Patient, error) {
	d, err := ParseDate(in.NextMedCount)
	if err != nil {
		return nil, err
	}
	return &Patient{MRI: in.MRI, NextMedCount: d}, nil
}

// MRIResult is the tri-state answer of the lookup-by-mri endpoint.
type MRIResult struct {
	Result int `json:"result"`
}

const (
	MRIFoundNotToday = 0
	MRIFoundToday    = 1
	MRINotFound      = 2
)
