package rateplan

import (
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/datetime"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/ratemsg"
)

// BaseAmountScheme selects how BaseByGuestAmt amounts are keyed and scaled.
type BaseAmountScheme string

const (
	// SchemePerGuest ("7"): the amount is quoted per guest. It is stored
	// multiplied by its guest count and matched against the total guest
	// count during pricing.
	SchemePerGuest BaseAmountScheme = "7"
	// SchemePerGroup ("25"): the amount covers the keyed guest count as a
	// whole and is matched against the base adult count directly.
	SchemePerGroup BaseAmountScheme = "25"
)

// AgeClass qualifies an additional-guest amount.
type AgeClass string

const (
	AgeClassChild AgeClass = "8"
	AgeClassAdult AgeClass = "10"
)

// maxBracketAge bounds the age brackets of additional-guest amounts; the
// bracket uniqueness check runs exhaustively over 0..maxBracketAge.
const maxBracketAge = 21

// maxUnitNights caps the billing-unit length of a rate plan.
const maxUnitNights = 365

// StaticRate is the rate metadata carried by the first Rate record: the
// billing-unit length in nights and the base-amount scheme.
type StaticRate struct {
	UnitNights int
	Scheme     BaseAmountScheme
}

// AdditionalAmount prices one additional guest per billing unit. Child
// entries carry a half-open age bracket [MinAge, MaxAge); the adult entry
// carries none.
type AdditionalAmount struct {
	AgeClass AgeClass
	MinAge   *int
	MaxAge   *int
	Amount   float64
}

// Matches reports whether a child of the given age falls into the bracket.
func (a AdditionalAmount) Matches(age int) bool {
	if a.AgeClass != AgeClassChild {
		return false
	}
	if a.MinAge != nil && age < *a.MinAge {
		return false
	}
	if a.MaxAge != nil && age >= *a.MaxAge {
		return false
	}
	return true
}

// Rate is one dated, room-type-tagged rate interval. BaseAmounts is keyed
// by guest count; the stored value is already adjusted per scheme (per-guest
// amounts are multiplied by their guest count at parse time).
type Rate struct {
	Start       datetime.Date
	End         datetime.Date
	UnitNights  int
	Scheme      BaseAmountScheme
	BaseAmounts map[int]float64
	Additional  []AdditionalAmount
}

// AdultAdditional returns the generic adult additional amount, if present.
func (r Rate) AdultAdditional() (AdditionalAmount, bool) {
	for _, a := range r.Additional {
		if a.AgeClass == AgeClassAdult {
			return a, true
		}
	}
	return AdditionalAmount{}, false
}

// ChildAdditional returns the bracketed amount matching the child's age.
func (r Rate) ChildAdditional(age int) (AdditionalAmount, bool) {
	for _, a := range r.Additional {
		if a.Matches(age) {
			return a, true
		}
	}
	return AdditionalAmount{}, false
}

// RateModel is the fully validated rate data of one rate plan: the static
// metadata plus the dated rates grouped by room-type code, codes kept in
// first-seen document order.
type RateModel struct {
	Static StaticRate
	Codes  []string
	ByCode map[string][]Rate
}

// parseRateModel validates the Rates section of a rate plan element.
func parseRateModel(plan *ratemsg.Element) (*RateModel, error) {
	static, err := parseStaticRate(plan)
	if err != nil {
		return nil, err
	}

	model := &RateModel{Static: static, ByCode: map[string][]Rate{}}

	// the first Rate is the static record, handled above
	recs := plan.ChildrenNamed("Rates")[0].ChildrenNamed("Rate")
	for _, rec := range recs[1:] {
		code := rec.AttrValue("InvTypeCode")
		if code == "" {
			return nil, schemaErrorf("invalid RatePlan: (non-static) Rate element is missing attribute InvTypeCode")
		}
		rate, err := parseRate(rec, static)
		if err != nil {
			return nil, err
		}
		if _, seen := model.ByCode[code]; !seen {
			model.Codes = append(model.Codes, code)
		}
		model.ByCode[code] = append(model.ByCode[code], rate)
	}

	for _, code := range model.Codes {
		if err := checkRateOverlap(model.ByCode[code]); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// parseStaticRate extracts the static metadata from the first Rate record,
// which must carry neither dates nor a room-type code.
func parseStaticRate(plan *ratemsg.Element) (StaticRate, error) {
	var static StaticRate

	rates := plan.ChildrenNamed("Rates")
	if len(rates) != 1 {
		return static, schemaErrorf("invalid RatePlan: need exactly one Rates element")
	}
	recs := rates[0].ChildrenNamed("Rate")
	if len(recs) < 1 {
		return static, schemaErrorf("invalid RatePlan: need at least one Rate element")
	}
	rec := recs[0]

	if rec.HasAttr("InvTypeCode") || rec.HasAttr("Start") || rec.HasAttr("End") {
		return static, schemaErrorf("invalid RatePlan: the first Rate is the static Rate, it must not have a InvTypeCode, Start or End attribute")
	}

	static.UnitNights = 1
	hasRTU := rec.HasAttr("RateTimeUnit")
	hasUM := rec.HasAttr("UnitMultiplier")
	if hasRTU != hasUM {
		return static, schemaErrorf("invalid static Rate: attributes RateTimeUnit and UnitMultiplier: none or both must be given")
	}
	if hasRTU {
		if rec.AttrValue("RateTimeUnit") != "Day" {
			return static, schemaErrorf("invalid static Rate: when given, RateTimeUnit must be \"Day\"")
		}
		um := rec.AttrValue("UnitMultiplier")
		if !isPositiveInt(um) {
			return static, schemaErrorf("invalid static Rate: when given, UnitMultiplier must be a positive integer")
		}
		if atoi(um) > maxUnitNights {
			return static, schemaErrorf("invalid static Rate: the given UnitMultiplier is unreasonably large")
		}
		static.UnitNights = atoi(um)
	}

	bases := rec.ChildrenNamed("BaseByGuestAmts")
	if len(bases) != 1 {
		return static, schemaErrorf("invalid static Rate: need exactly one BaseByGuestAmts element")
	}
	base := bases[0].ChildrenNamed("BaseByGuestAmt")
	if len(base) != 1 {
		return static, schemaErrorf("invalid static Rate: need exactly one BaseByGuestAmt element")
	}
	switch scheme := BaseAmountScheme(base[0].AttrValue("Type")); scheme {
	case SchemePerGuest, SchemePerGroup:
		static.Scheme = scheme
	case "":
		return static, schemaErrorf("invalid static Rate: mandatory attribute BaseByGuestAmt -> Type is missing")
	default:
		return static, schemaErrorf("invalid static Rate: attribute BaseByGuestAmt -> Type must be \"7\" or \"25\"")
	}
	return static, nil
}

// parseRate validates one dated Rate record.
func parseRate(rec *ratemsg.Element, static StaticRate) (Rate, error) {
	rate := Rate{
		UnitNights:  static.UnitNights,
		Scheme:      static.Scheme,
		BaseAmounts: map[int]float64{},
	}

	var err error
	rate.Start, rate.End, err = parseDateRange(rec, "invalid Rate")
	if err != nil {
		return rate, err
	}

	bases := rec.ChildrenNamed("BaseByGuestAmts")
	if len(bases) == 0 {
		return rate, schemaErrorf("invalid Rate: missing BaseByGuestAmts")
	}
	if len(bases) > 1 {
		return rate, schemaErrorf("invalid Rate: more than one BaseByGuestAmts elements")
	}
	base := bases[0].ChildrenNamed("BaseByGuestAmt")
	if len(base) == 0 {
		return rate, schemaErrorf("invalid Rate: no BaseByGuestAmt found")
	}

	for _, b := range base {
		numGuests := b.AttrValue("NumberOfGuests")
		amount := b.AttrValue("AmountAfterTax")

		if !isPositiveInt(numGuests) {
			return rate, schemaErrorf("invalid Rate: missing or invalid NumberOfGuests attribute in BaseByGuestAmt")
		}
		if AgeClass(b.AttrValue("AgeQualifyingCode")) != AgeClassAdult {
			return rate, schemaErrorf("invalid Rate: missing or invalid AgeQualifyingCode attribute in BaseByGuestAmt")
		}
		if !isNonNegativeFloat(amount) {
			return rate, schemaErrorf("invalid Rate: missing or invalid AmountAfterTax attribute in BaseByGuestAmt")
		}

		n := atoi(numGuests)
		amt := atof(amount)
		// per-guest amounts become per-stay values right away
		if static.Scheme == SchemePerGuest {
			amt *= float64(n)
		}
		if _, dup := rate.BaseAmounts[n]; dup {
			return rate, schemaErrorf("invalid Rate: more than one BaseByGuestAmt have the same value for the NumberOfGuests attribute")
		}
		rate.BaseAmounts[n] = amt
	}

	if err := parseAdditionalAmounts(rec, &rate); err != nil {
		return rate, err
	}
	return rate, nil
}

func parseAdditionalAmounts(rec *ratemsg.Element, rate *Rate) error {
	adds := rec.ChildrenNamed("AdditionalGuestAmounts")
	if len(adds) == 0 {
		return nil
	}
	if len(adds) > 1 {
		return schemaErrorf("invalid Rate: more than one AdditionalGuestAmounts elements")
	}

	adultSeen := false
	for _, a := range adds[0].ChildrenNamed("AdditionalGuestAmount") {
		ageClass := AgeClass(a.AttrValue("AgeQualifyingCode"))
		minAge := a.AttrValue("MinAge")
		maxAge := a.AttrValue("MaxAge")
		amount := a.AttrValue("Amount")

		if ageClass != AgeClassChild && ageClass != AgeClassAdult {
			return schemaErrorf("invalid Rate: missing or invalid AgeQualifyingCode attribute in AdditionalGuestAmount")
		}
		if ageClass == AgeClassAdult {
			if adultSeen {
				return schemaErrorf("invalid Rate: there can not be more than one AdditionalGuestAmount elements with AgeQualifyingCode = \"10\"")
			}
			adultSeen = true
		}
		if !isNonNegativeFloat(amount) {
			return schemaErrorf("invalid Rate: missing or invalid Amount attribute in AdditionalGuestAmount")
		}
		if minAge != "" && !isPositiveInt(minAge) {
			return schemaErrorf("invalid Rate: missing or invalid MinAge attribute in AdditionalGuestAmount")
		}
		if maxAge != "" && !isPositiveInt(maxAge) {
			return schemaErrorf("invalid Rate: missing or invalid MaxAge attribute in AdditionalGuestAmount")
		}
		if ageClass == AgeClassChild && minAge == "" && maxAge == "" {
			return schemaErrorf("invalid Rate: an AdditionalGuestAmount element has AgeQualifyingCode = \"8\" with no age brackets")
		}
		if ageClass == AgeClassAdult && (minAge != "" || maxAge != "") {
			return schemaErrorf("invalid Rate: an AdditionalGuestAmount element has AgeQualifyingCode = \"10\" with age brackets")
		}
		if minAge != "" && maxAge != "" && atoi(minAge) >= atoi(maxAge) {
			return schemaErrorf("invalid Rate: an AdditionalGuestAmount has MinAge >= MaxAge")
		}
		if minAge != "" && atoi(minAge) > maxBracketAge {
			return schemaErrorf("invalid Rate: AdditionalGuestAmount: MinAge value too large")
		}
		if maxAge != "" && atoi(maxAge) > maxBracketAge {
			return schemaErrorf("invalid Rate: AdditionalGuestAmount: MaxAge value too large")
		}

		entry := AdditionalAmount{AgeClass: ageClass, Amount: atof(amount)}
		if minAge != "" {
			n := atoi(minAge)
			entry.MinAge = &n
		}
		if maxAge != "" {
			n := atoi(maxAge)
			entry.MaxAge = &n
		}
		rate.Additional = append(rate.Additional, entry)
	}

	if err := checkBracketUniqueness(rate.Additional); err != nil {
		return err
	}
	if len(rate.Additional) > 0 && !adultSeen {
		return schemaErrorf("invalid Rate: when AdditionalGuestAmount elements are present, one with AgeQualifyingCode = \"10\" must be present")
	}
	return nil
}

// checkBracketUniqueness rejects child brackets that double-match any single
// age, checked exhaustively over 0..maxBracketAge.
func checkBracketUniqueness(amounts []AdditionalAmount) error {
	for age := 0; age <= maxBracketAge; age++ {
		cnt := 0
		for _, a := range amounts {
			if a.Matches(age) {
				cnt++
			}
		}
		if cnt > 1 {
			return schemaErrorf("invalid Rate: more than one AdditionalGuestAmount element with AgeQualifyingCode = \"8\" match an age of %d", age)
		}
	}
	return nil
}

// checkRateOverlap rejects any two dated rates of the same room type whose
// inclusive intervals intersect.
func checkRateOverlap(rates []Rate) error {
	for i := range rates {
		for j := i + 1; j < len(rates); j++ {
			if datetime.Overlaps(rates[i].Start, rates[i].End, rates[j].Start, rates[j].End) {
				return schemaErrorf("invalid Rate: overlap detected")
			}
		}
	}
	return nil
}
