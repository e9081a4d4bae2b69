package rateplan

import (
	"regexp"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/datetime"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/ratemsg"
)

// ChargeType is the pricing policy of an extra charge.
type ChargeType string

const (
	ChargeDaily          ChargeType = "1"
	ChargePerStay        ChargeType = "12"
	ChargeRoomPerStay    ChargeType = "18"
	ChargeRoomPerNight   ChargeType = "19"
	ChargePersonPerStay  ChargeType = "20"
	ChargePersonPerNight ChargeType = "21"
	ChargePerItem        ChargeType = "24"
)

var validChargeTypes = map[ChargeType]bool{
	ChargeDaily: true, ChargePerStay: true, ChargeRoomPerStay: true,
	ChargeRoomPerNight: true, ChargePersonPerStay: true,
	ChargePersonPerNight: true, ChargePerItem: true,
}

// allWeekdays is the default applicability pattern, Monday-first.
const allWeekdays = "1111111"

var weekdayPattern = regexp.MustCompile(`^[01]{7}$`)

// SupplementAmount is one dated amount record of an extra charge,
// optionally restricted to a single room type.
type SupplementAmount struct {
	Start    datetime.Date
	End      datetime.Date
	Amount   float64
	RoomType string // "" = applicable to any room type
}

// Supplement merges the static descriptor of one extra-charge code with its
// dated amount records.
type Supplement struct {
	Code           string
	ChargeType     ChargeType
	Mandatory      bool
	WeekdayPattern string // 7 binary digits, Monday-first
	Amounts        []SupplementAmount
}

// AppliesOnWeekday reports whether the pattern admits the Monday-first
// weekday index.
func (s Supplement) AppliesOnWeekday(mondayFirstIdx int) bool {
	return s.WeekdayPattern[mondayFirstIdx] == '1'
}

// SupplementModel holds the merged supplements of one rate plan, codes in
// first-seen document order.
type SupplementModel struct {
	Codes  []string
	ByCode map[string]Supplement
}

// parseSupplementModel validates the Supplements section of a rate plan
// element. Each extra-charge code must contribute exactly one static record
// (identified by the presence of a ChargeTypeCode) and at least one dated
// amount record.
func parseSupplementModel(plan *ratemsg.Element) (*SupplementModel, error) {
	model := &SupplementModel{ByCode: map[string]Supplement{}}

	suppSets := plan.ChildrenNamed("Supplements")
	if len(suppSets) == 0 {
		return model, nil
	}
	if len(suppSets) > 1 {
		return nil, schemaErrorf("invalid RatePlan: more than one Supplements elements")
	}
	recs := suppSets[0].ChildrenNamed("Supplement")

	for _, rec := range recs {
		if rec.AttrValue("InvType") != "EXTRA" {
			return nil, schemaErrorf("invalid Supplement: missing or invalid InvType attribute")
		}
		code := rec.AttrValue("InvCode")
		if code == "" {
			return nil, schemaErrorf("invalid Supplement: missing InvCode attribute")
		}
		if _, seen := model.ByCode[code]; !seen {
			model.Codes = append(model.Codes, code)
			model.ByCode[code] = Supplement{Code: code}
		}
	}

	for _, code := range model.Codes {
		merged, err := mergeSupplement(recs, code)
		if err != nil {
			return nil, err
		}
		model.ByCode[code] = merged
	}
	return model, nil
}

func mergeSupplement(recs []*ratemsg.Element, code string) (Supplement, error) {
	merged := Supplement{Code: code}

	// first pass: the one static record, identified by ChargeTypeCode
	for _, rec := range recs {
		if rec.AttrValue("InvCode") != code || rec.AttrValue("ChargeTypeCode") == "" {
			continue
		}
		if rec.HasAttr("Start") || rec.HasAttr("End") {
			return merged, schemaErrorf("invalid static Supplement element: must not contain Start or End attributes")
		}
		ctc := ChargeType(rec.AttrValue("ChargeTypeCode"))
		if !validChargeTypes[ctc] {
			return merged, schemaErrorf("invalid static Supplement element: invalid ChargeTypeCode")
		}
		if merged.ChargeType != "" {
			return merged, schemaErrorf("invalid RatePlan: more than one static Supplement element with the same InvCode (%q)", code)
		}
		merged.ChargeType = ctc

		if v, ok := parseBool(rec.AttrValue("AddToBasicRateIndicator")); !ok || !v {
			return merged, schemaErrorf("invalid static Supplement element: invalid or missing AddToBasicRateIndicator attribute")
		}
		mnd := rec.AttrValue("MandatoryIndicator")
		if mnd == "" {
			return merged, schemaErrorf("invalid static Supplement element: missing MandatoryIndicator attribute")
		}
		v, ok := parseBool(mnd)
		if !ok {
			return merged, schemaErrorf("invalid static Supplement element: invalid MandatoryIndicator attribute")
		}
		merged.Mandatory = v

		pattern, err := parseStaticPrerequisite(rec)
		if err != nil {
			return merged, err
		}
		merged.WeekdayPattern = pattern
	}
	if merged.ChargeType == "" {
		return merged, schemaErrorf("invalid RatePlan: no static Supplement element with InvCode %q found", code)
	}

	// second pass: the dated amount records (no ChargeTypeCode)
	for _, rec := range recs {
		if rec.AttrValue("InvCode") != code || rec.AttrValue("ChargeTypeCode") != "" {
			continue
		}
		amt, err := parseSupplementAmount(rec)
		if err != nil {
			return merged, err
		}
		merged.Amounts = append(merged.Amounts, amt)
	}
	if len(merged.Amounts) == 0 {
		return merged, schemaErrorf("invalid RatePlan: no dynamic Supplement elements with InvCode %q found", code)
	}

	for i := range merged.Amounts {
		for j := i + 1; j < len(merged.Amounts); j++ {
			a, b := merged.Amounts[i], merged.Amounts[j]
			if a.RoomType == b.RoomType && datetime.Overlaps(a.Start, a.End, b.Start, b.End) {
				return merged, schemaErrorf("invalid dynamic Supplement element: overlap detected for InvCode %q", code)
			}
		}
	}
	return merged, nil
}

// parseStaticPrerequisite reads the optional weekday applicability pattern
// (PrerequisiteInventory with InvType ALPINEBITSDOW); default all days.
func parseStaticPrerequisite(rec *ratemsg.Element) (string, error) {
	pres := rec.ChildrenNamed("PrerequisiteInventory")
	if len(pres) == 0 {
		return allWeekdays, nil
	}
	if len(pres) > 1 {
		return "", schemaErrorf("invalid static Supplement element: more than one PrerequisiteInventory")
	}
	pre := pres[0]
	if pre.AttrValue("InvType") != "ALPINEBITSDOW" {
		return "", schemaErrorf("invalid static Supplement element: PrerequisiteInventory is expected to have an attribute InvType=\"ALPINEBITSDOW\"")
	}
	pattern := pre.AttrValue("InvCode")
	if !weekdayPattern.MatchString(pattern) {
		return "", schemaErrorf("invalid static Supplement element: PrerequisiteInventory is expected to have an attribute InvCode containing seven binary digits (0 or 1)")
	}
	return pattern, nil
}

// parseSupplementAmount validates one dated amount record, with its
// optional room-type restriction (PrerequisiteInventory, InvType ROOMTYPE).
func parseSupplementAmount(rec *ratemsg.Element) (SupplementAmount, error) {
	var amt SupplementAmount

	var err error
	amt.Start, amt.End, err = parseDateRange(rec, "invalid dynamic Supplement element")
	if err != nil {
		return amt, err
	}
	raw := rec.AttrValue("Amount")
	if !isNonNegativeFloat(raw) {
		return amt, schemaErrorf("invalid dynamic Supplement element: invalid or missing Amount attribute")
	}
	amt.Amount = atof(raw)

	pres := rec.ChildrenNamed("PrerequisiteInventory")
	if len(pres) > 1 {
		return amt, schemaErrorf("invalid dynamic Supplement element: more than one PrerequisiteInventory")
	}
	if len(pres) == 1 {
		pre := pres[0]
		if pre.AttrValue("InvType") != "ROOMTYPE" {
			return amt, schemaErrorf("invalid dynamic Supplement element: PrerequisiteInventory is expected to have an attribute InvType=\"ROOMTYPE\"")
		}
		amt.RoomType = pre.AttrValue("InvCode")
		if amt.RoomType == "" {
			return amt, schemaErrorf("invalid dynamic Supplement element: PrerequisiteInventory is expected to have a non-empty attribute InvCode")
		}
	}
	return amt, nil
}
