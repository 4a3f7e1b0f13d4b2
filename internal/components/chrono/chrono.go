package chrono

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLocation is the timezone the judge renders its dates in.
const DefaultLocation = "Asia/Bangkok"

type API interface {
	Now() time.Time
	Location() *time.Location
}

type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl loads the named location, an empty name means
// DefaultLocation.
func NewStandardImpl(name string) (StandardImpl, error) {
	if name == "" {
		name = DefaultLocation
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, for tests.
type FixedImpl struct {
	At  time.Time
	Loc *time.Location
}

func (f FixedImpl) Now() time.Time {
	return f.At.In(f.Location())
}

func (f FixedImpl) Location() *time.Location {
	if f.Loc == nil {
		return time.UTC
	}
	return f.Loc
}

var judgeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02 Jan 2006 15:04:05",
	"02 Jan 2006 15:04",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 15:04",
	"Mon, 02 Jan 2006 15:04:05",
	time.RFC3339,
}

// ParseJudgeTime parses a date as the judge prints it, dates without a zone
// are interpreted in `loc`.
func ParseJudgeTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return time.Time{}, fmt.Errorf("parse judge time: empty value")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range judgeLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse judge time: unknown format %q", value)
}
