package domain

import "fmt"

const (
	// FillValue is the missing_value constant documented in DSCOVR file
	// headers.
	FillValue = -99999.0

	// MissingThreshold is the cutoff actually used to detect missing
	// samples: values at or below it are missing. Deliberately looser
	// than FillValue; see the package documentation.
	MissingThreshold = -90000.0
)

// Value maps a raw sample to an optional measurement: a pointer to x for
// a real measurement, nil for a missing one.
func Value(x float64) *float64 {
	if x > MissingThreshold {
		return &x
	}
	return nil
}

// MagRecord is one observation in the output document. Field order here
// fixes the JSON key order. Nil means the sample was missing.
type MagRecord struct {
	Time *float64 `json:"time"`
	Bx   *float64 `json:"bx"`
	By   *float64 `json:"by"`
	Bz   *float64 `json:"bz"`
	Bt   *float64 `json:"bt"`
}

// Series holds the five raw arrays read from a source file, still in
// sentinel form.
type Series struct {
	Time []float64
	Bx   []float64
	By   []float64
	Bz   []float64
	Bt   []float64
}

// Validate checks the index-alignment invariant: all five arrays must
// have the same length.
func (s Series) Validate() error {
	n := len(s.Time)
	if len(s.Bx) != n || len(s.By) != n || len(s.Bz) != n || len(s.Bt) != n {
		return fmt.Errorf("misaligned arrays: time=%d bx=%d by=%d bz=%d bt=%d",
			n, len(s.Bx), len(s.By), len(s.Bz), len(s.Bt))
	}
	return nil
}

// AssembleRecords converts a Series into ordered output records.
// Observations with a missing time are dropped; the second return value
// counts them. Other fields are substituted independently, so emitted
// records may carry null components. The returned slice is never nil, so
// an empty series marshals as [] rather than null.
func AssembleRecords(s Series) ([]MagRecord, int, error) {
	if err := s.Validate(); err != nil {
		return nil, 0, err
	}

	records := make([]MagRecord, 0, len(s.Time))
	skipped := 0
	for i := range s.Time {
		t := Value(s.Time[i])
		if t == nil {
			skipped++
			continue
		}
		records = append(records, MagRecord{
			Time: t,
			Bx:   Value(s.Bx[i]),
			By:   Value(s.By[i]),
			Bz:   Value(s.Bz[i]),
			Bt:   Value(s.Bt[i]),
		})
	}
	return records, skipped, nil
}
