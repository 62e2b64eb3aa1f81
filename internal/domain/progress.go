package domain

// Placeholder used for speed and ETA when the tool does not report them.
const NotAvailable = "N/A"

// ProgressReading is a snapshot of a running transfer.
// Bytes is free-form: a comma-grouped byte count or "X/Y files".
type ProgressReading struct {
	Bytes      string `json:"bytes"`
	Percentage int    `json:"percentage"`
	Speed      string `json:"speed"`
	ETA        string `json:"eta"`
}

// Completed returns a copy of the reading marked as 100% done.
func (r ProgressReading) Completed() ProgressReading {
	r.Percentage = 100

	return r
}

// Fraction returns the percentage as a value between 0 and 1.
func (r ProgressReading) Fraction() float64 {
	switch {
	case r.Percentage <= 0:
		return 0
	case r.Percentage >= 100:
		return 1
	default:
		return float64(r.Percentage) / 100 //nolint:mnd // percentage scale
	}
}
