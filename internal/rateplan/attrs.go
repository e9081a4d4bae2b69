package rateplan

import (
	"regexp"
	"strconv"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/datetime"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/ratemsg"
)

// Shared attribute grammar for the four interpreters. Booking rules and
// offer rules carry the same LengthsOfStay and DOW_Restrictions shapes, so
// those are parsed here once and reused.

var (
	uintPattern  = regexp.MustCompile(`^\d+$`)
	floatPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)
	truePattern  = regexp.MustCompile(`^(?i)(1|true)$`)
	falsePattern = regexp.MustCompile(`^(?i)(0|false)$`)
)

func isNonNegativeInt(s string) bool { return uintPattern.MatchString(s) }

func isPositiveInt(s string) bool {
	if !uintPattern.MatchString(s) {
		return false
	}
	for _, c := range s {
		if c != '0' {
			return true
		}
	}
	return false
}

func isNonNegativeFloat(s string) bool { return floatPattern.MatchString(s) }

// parseBool maps the schema's boolean spellings (1/true/0/false, any case).
// The second return value is false when the spelling is not recognized.
func parseBool(s string) (value, ok bool) {
	switch {
	case truePattern.MatchString(s):
		return true, true
	case falsePattern.MatchString(s):
		return false, true
	default:
		return false, false
	}
}

// DOWMask is a weekday admissibility mask indexed 0 (Sunday) .. 6 (Saturday).
type DOWMask [7]bool

func allDaysAllowed() DOWMask {
	return DOWMask{true, true, true, true, true, true, true}
}

// Allows reports whether the weekday index (0 = Sunday) is admissible.
func (m DOWMask) Allows(weekday int) bool { return m[weekday] }

func (m DOWMask) String() string {
	names := [7]string{"Sun", "Mon", "Tue", "Weds", "Thur", "Fri", "Sat"}
	out := ""
	for i, allowed := range m {
		if i > 0 {
			out += ", "
		}
		if allowed {
			out += names[i]
		} else {
			out += "!" + names[i]
		}
	}
	return out
}

// weekday attribute names as they appear on ArrivalDaysOfWeek and
// DepartureDaysOfWeek, index-aligned with DOWMask.
var dowAttrNames = [7]string{"Sun", "Mon", "Tue", "Weds", "Thur", "Fri", "Sat"}

func parseDOWElement(el *ratemsg.Element, where string) (DOWMask, error) {
	mask := allDaysAllowed()
	for i, name := range dowAttrNames {
		if !el.HasAttr(name) {
			continue
		}
		v, ok := parseBool(el.AttrValue(name))
		if !ok {
			return mask, schemaErrorf("%s: invalid week day attribute value in %s element", where, el.Name)
		}
		mask[i] = v
	}
	return mask, nil
}

// parseDOWRestrictions evaluates an optional DOW_Restrictions child holding
// optional ArrivalDaysOfWeek and DepartureDaysOfWeek elements. Missing
// elements default to all days allowed.
func parseDOWRestrictions(parent *ratemsg.Element, where string) (arrival, departure DOWMask, err error) {
	arrival = allDaysAllowed()
	departure = allDaysAllowed()

	dows := parent.ChildrenNamed("DOW_Restrictions")
	if len(dows) == 0 {
		return arrival, departure, nil
	}
	if len(dows) > 1 {
		return arrival, departure, schemaErrorf("%s: more than one DOW_Restrictions elements", where)
	}

	if adow := dows[0].ChildrenNamed("ArrivalDaysOfWeek"); len(adow) > 0 {
		if len(adow) > 1 {
			return arrival, departure, schemaErrorf("%s: more than one ArrivalDaysOfWeek elements", where)
		}
		if arrival, err = parseDOWElement(adow[0], where); err != nil {
			return arrival, departure, err
		}
	}
	if ddow := dows[0].ChildrenNamed("DepartureDaysOfWeek"); len(ddow) > 0 {
		if len(ddow) > 1 {
			return arrival, departure, schemaErrorf("%s: more than one DepartureDaysOfWeek elements", where)
		}
		if departure, err = parseDOWElement(ddow[0], where); err != nil {
			return arrival, departure, err
		}
	}
	return arrival, departure, nil
}

// losBounds collects LengthOfStay records grouped by MinMaxMessageType.
type losBounds struct {
	minLOS *int
	maxLOS *int
	fwdMin *int
	fwdMax *int
}

// parseLengthsOfStay evaluates an optional LengthsOfStay child. The forward
// bound message types are only admissible on booking rules.
func parseLengthsOfStay(parent *ratemsg.Element, where string, allowForward bool) (losBounds, error) {
	var b losBounds

	stays := parent.ChildrenNamed("LengthsOfStay")
	if len(stays) == 0 {
		return b, nil
	}
	if len(stays) > 1 {
		return b, schemaErrorf("%s: more than one LengthsOfStay elements", where)
	}

	for _, stay := range stays[0].ChildrenNamed("LengthOfStay") {
		timeVal := stay.AttrValue("Time")
		timeUnit := stay.AttrValue("TimeUnit")
		msgType := stay.AttrValue("MinMaxMessageType")

		if !isNonNegativeInt(timeVal) {
			return b, schemaErrorf("%s: LengthOfStay has invalid or missing Time attribute", where)
		}
		if timeUnit != "Day" {
			return b, schemaErrorf("%s: LengthOfStay has invalid or missing TimeUnit attribute", where)
		}
		n := atoi(timeVal)

		var slot **int
		switch msgType {
		case "SetMinLOS":
			slot = &b.minLOS
		case "SetMaxLOS":
			slot = &b.maxLOS
		case "SetForwardMinStay":
			if !allowForward {
				return b, schemaErrorf("%s: LengthOfStay has invalid value for attribute MinMaxMessageType", where)
			}
			slot = &b.fwdMin
		case "SetForwardMaxStay":
			if !allowForward {
				return b, schemaErrorf("%s: LengthOfStay has invalid value for attribute MinMaxMessageType", where)
			}
			slot = &b.fwdMax
		default:
			return b, schemaErrorf("%s: LengthOfStay has invalid or missing value for attribute MinMaxMessageType", where)
		}
		if *slot != nil {
			return b, schemaErrorf("%s: more than one LengthOfStay of type %q", where, msgType)
		}
		*slot = &n
	}

	if b.minLOS != nil && b.maxLOS != nil && *b.minLOS > *b.maxLOS {
		return b, schemaErrorf("%s: inconsistent LengthOfStay values: min value > max value", where)
	}
	if b.fwdMin != nil && b.fwdMax != nil && *b.fwdMin > *b.fwdMax {
		return b, schemaErrorf("%s: inconsistent forward stay values: min value > max value", where)
	}
	return b, nil
}

// parseDateRange reads and validates the Start and End attributes.
func parseDateRange(el *ratemsg.Element, where string) (start, end datetime.Date, err error) {
	start, err = datetime.Parse(el.AttrValue("Start"))
	if err != nil {
		return start, end, schemaErrorf("%s: invalid or missing Start attribute", where)
	}
	end, err = datetime.Parse(el.AttrValue("End"))
	if err != nil {
		return start, end, schemaErrorf("%s: invalid or missing End attribute", where)
	}
	if datetime.DaysBetween(start, end) < 0 {
		return start, end, schemaErrorf("%s: Start > End", where)
	}
	return start, end, nil
}

// atoi converts an attribute value that already passed the integer pattern.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// atof converts an attribute value that already passed the float pattern.
func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
