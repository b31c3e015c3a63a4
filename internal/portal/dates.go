package portal

import "time"

const dateLayout = "2006-01-02"

// DateInput is either a calendar date or a pre-formatted YYYY-MM-DD string.
// The zero value means "not given" and lets fetchers fall back to their
// defaults. Strings are validated at the boundary; a bad format surfaces as
// a BadDateError instead of reaching the provider.
type DateInput struct {
	str    string
	t      time.Time
	isTime bool
}

// DateOf wraps a calendar date.
func DateOf(t time.Time) DateInput {
	return DateInput{t: t, isTime: true}
}

// DateString wraps a pre-formatted YYYY-MM-DD string.
func DateString(s string) DateInput {
	return DateInput{str: s}
}

func (d DateInput) IsZero() bool {
	return !d.isTime && d.str == ""
}

// normalize renders the input as the canonical YYYY-MM-DD string.
func (d DateInput) normalize() (string, error) {
	if d.isTime {
		return d.t.Format(dateLayout), nil
	}
	if _, err := time.Parse(dateLayout, d.str); err != nil {
		return "", &BadDateError{Input: d.str}
	}
	return d.str, nil
}
