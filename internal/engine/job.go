package engine

import (
	"fmt"
	"time"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/datetime"
)

// InputError reports malformed stay parameters or an invalid occupancy
// table.
type InputError struct {
	msg string
}

func (e *InputError) Error() string { return e.msg }

func inputErrorf(format string, args ...any) *InputError {
	return &InputError{msg: fmt.Sprintf(format, args...)}
}

// maxGuestNumber bounds adults and children ages (three digits).
const maxGuestNumber = 999

// Occupancy is the caller-supplied inventory occupancy of one room type.
type Occupancy struct {
	Code     string
	Min      int
	Std      int
	Max      int
	MaxChild *int // nil when no child occupancy cap applies
}

// FullPayersNeeded is the minimum number of guests that must pay the full
// rate: std when no child cap is set, otherwise clamp(std, min, max-cap).
func (o Occupancy) FullPayersNeeded() int {
	if o.MaxChild == nil {
		return o.Std
	}
	n := o.Max - *o.MaxChild
	if o.Std < n {
		n = o.Std
	}
	if n < o.Min {
		n = o.Min
	}
	return n
}

// Job holds the validated stay parameters of one engine run.
type Job struct {
	Arrival      datetime.Date
	Departure    datetime.Date
	Adults       int
	ChildrenAges []int
	BookingDate  datetime.Date
	Occupancy    []Occupancy

	// ProtocolVersion is accepted at the boundary for forward
	// compatibility; it does not alter the computation.
	ProtocolVersion string
}

// JobParams are the raw stay parameters as supplied by the caller.
// BookingDate defaults to today when empty.
type JobParams struct {
	Arrival         string
	Departure       string
	Adults          int
	ChildrenAges    []int
	BookingDate     string
	Occupancy       []Occupancy
	ProtocolVersion string
}

// NewJob validates the stay parameters and the occupancy table.
func NewJob(p JobParams) (*Job, error) {
	arrival, err := datetime.Parse(p.Arrival)
	if err != nil {
		return nil, inputErrorf("job parameter: arrival: invalid date")
	}
	departure, err := datetime.Parse(p.Departure)
	if err != nil {
		return nil, inputErrorf("job parameter: departure: invalid date")
	}
	if datetime.DaysBetween(arrival, departure) <= 0 {
		return nil, inputErrorf("job parameters: arrival, departure: departure must be after arrival")
	}

	if p.Adults < 0 || p.Adults > maxGuestNumber {
		return nil, inputErrorf("job parameter: adults: invalid value")
	}
	for i, age := range p.ChildrenAges {
		if age < 0 || age > maxGuestNumber {
			return nil, inputErrorf("job parameter: children ages[%d]: invalid value", i)
		}
	}
	if p.Adults+len(p.ChildrenAges) == 0 {
		return nil, inputErrorf("job parameters: adults, children ages: need at least one occupant")
	}

	bookingDate := today()
	if p.BookingDate != "" {
		if bookingDate, err = datetime.Parse(p.BookingDate); err != nil {
			return nil, inputErrorf("job parameter: booking date: invalid date")
		}
	}

	if len(p.Occupancy) == 0 {
		return nil, inputErrorf("job parameter: inventory occupancy: at least one entry expected")
	}
	seen := map[string]bool{}
	for _, occ := range p.Occupancy {
		if occ.Code == "" {
			return nil, inputErrorf("job parameter: inventory occupancy: invalid code")
		}
		if seen[occ.Code] {
			return nil, inputErrorf("job parameter: inventory occupancy: values for code are not unique")
		}
		seen[occ.Code] = true
		if occ.Min < 1 {
			return nil, inputErrorf("job parameter: inventory occupancy: invalid min value")
		}
		if occ.Std < 1 {
			return nil, inputErrorf("job parameter: inventory occupancy: invalid std value")
		}
		if occ.Max < 1 {
			return nil, inputErrorf("job parameter: inventory occupancy: invalid max value")
		}
		if occ.MaxChild != nil && *occ.MaxChild < 0 {
			return nil, inputErrorf("job parameter: inventory occupancy: invalid max child occupancy value")
		}
		if occ.Min > occ.Std || occ.Std > occ.Max {
			return nil, inputErrorf("job parameter: inventory occupancy: values must be min <= std <= max")
		}
		if occ.MaxChild != nil && *occ.MaxChild > occ.Max {
			return nil, inputErrorf("job parameter: inventory occupancy: max child occupancy value cannot exceed max value")
		}
	}

	return &Job{
		Arrival:         arrival,
		Departure:       departure,
		Adults:          p.Adults,
		ChildrenAges:    append([]int(nil), p.ChildrenAges...),
		BookingDate:     bookingDate,
		Occupancy:       append([]Occupancy(nil), p.Occupancy...),
		ProtocolVersion: p.ProtocolVersion,
	}, nil
}

// Nights is the length of stay.
func (j *Job) Nights() int {
	return datetime.DaysBetween(j.Arrival, j.Departure)
}

func (j *Job) occupancyFor(code string) (Occupancy, bool) {
	for _, occ := range j.Occupancy {
		if occ.Code == code {
			return occ, true
		}
	}
	return Occupancy{}, false
}

func today() datetime.Date {
	now := time.Now()
	return datetime.Date{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}
}
