package rateplan

import (
	"strings"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/ratemsg"
)

// maxRestrictionAge bounds the age thresholds of offer restrictions.
const maxRestrictionAge = 18

// maxOccupancyCount bounds the occupancy counts of offer restrictions.
const maxOccupancyCount = 99

// Restrictions is the stay-eligibility screen carried by the first Offer
// record. Nil pointers mean the bound is not set.
type Restrictions struct {
	MinLOS       *int
	MaxLOS       *int
	ArrivalDOW   DOWMask
	DepartureDOW DOWMask
	MinAdvance   *int // days between booking and arrival
	MaxAdvance   *int

	// AdultMinAge, when set, declares every guest below it a child; when
	// nil all guests are adults and no child occupancy record may exist.
	AdultMinAge *int
	AdultMinOcc *int
	AdultMaxOcc *int

	ChildMinAge *int
	ChildMaxAge *int
	ChildMinOcc *int
	ChildMaxOcc *int
}

// FreeNightsDiscount grants the trailing NightsDiscounted nights of each
// NightsRequired-night block for free. Pattern is empty unless the document
// spelled the repeating bit pattern out.
type FreeNightsDiscount struct {
	NightsRequired   int
	NightsDiscounted int
	Pattern          string
}

// FamilyDiscount lets up to FreeCount children below MaxAge stay free when
// at least MinCount such children are present.
type FamilyDiscount struct {
	MaxAge    int
	MinCount  int
	FreeCount int
}

// OfferSet is the validated offer data of one rate plan: the restrictions
// plus at most one discount of each kind.
type OfferSet struct {
	Restrictions Restrictions
	FreeNights   *FreeNightsDiscount
	Family       *FamilyDiscount
}

// parseOfferSet validates the Offers section of a rate plan element. The
// first Offer record supplies restrictions only; each later record must
// describe exactly one discount.
func parseOfferSet(plan *ratemsg.Element) (*OfferSet, error) {
	offerSets := plan.ChildrenNamed("Offers")
	if len(offerSets) != 1 {
		return nil, schemaErrorf("invalid RatePlan: must contain exactly one Offers element")
	}
	offers := offerSets[0].ChildrenNamed("Offer")
	if len(offers) < 1 {
		return nil, schemaErrorf("invalid RatePlan: at least one Offer element must be present")
	}

	if len(offers[0].ChildrenNamed("Discount")) > 0 {
		return nil, schemaErrorf("invalid RatePlan: the first Offer element must not contain a Discount element")
	}
	if len(offers[0].ChildrenNamed("Guest")) > 0 {
		return nil, schemaErrorf("invalid RatePlan: the first Offer element must not contain a Guest element")
	}

	restr, err := parseRestrictions(offers[0])
	if err != nil {
		return nil, err
	}
	set := &OfferSet{Restrictions: restr}

	for _, offer := range offers[1:] {
		if err := parseDiscount(offer, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func parseRestrictions(offer *ratemsg.Element) (Restrictions, error) {
	const where = "invalid first Offer element"
	restr := Restrictions{
		ArrivalDOW:   allDaysAllowed(),
		DepartureDOW: allDaysAllowed(),
	}

	rules := offer.ChildrenNamed("OfferRules")
	if len(rules) != 1 {
		return restr, schemaErrorf("%s: must contain exactly one OfferRules element", where)
	}
	ruleList := rules[0].ChildrenNamed("OfferRule")
	if len(ruleList) != 1 {
		return restr, schemaErrorf("%s: must contain exactly one OfferRule element", where)
	}
	rule := ruleList[0]

	bounds, err := parseLengthsOfStay(rule, where, false)
	if err != nil {
		return restr, err
	}
	restr.MinLOS, restr.MaxLOS = bounds.minLOS, bounds.maxLOS

	restr.ArrivalDOW, restr.DepartureDOW, err = parseDOWRestrictions(rule, where)
	if err != nil {
		return restr, err
	}

	if restr.MinAdvance, err = parseAdvanceOffset(rule, "MinAdvancedBookingOffset", where); err != nil {
		return restr, err
	}
	if restr.MaxAdvance, err = parseAdvanceOffset(rule, "MaxAdvancedBookingOffset", where); err != nil {
		return restr, err
	}
	if restr.MinAdvance != nil && restr.MaxAdvance != nil && *restr.MinAdvance > *restr.MaxAdvance {
		return restr, schemaErrorf("%s: inconsistent values for MinAdvancedBookingOffset and MaxAdvancedBookingOffset", where)
	}

	if err := parseOccupancyRestrictions(rule, &restr); err != nil {
		return restr, err
	}
	return restr, nil
}

func parseAdvanceOffset(rule *ratemsg.Element, attr, where string) (*int, error) {
	if !rule.HasAttr(attr) {
		return nil, nil
	}
	v := rule.AttrValue(attr)
	if !isNonNegativeInt(v) {
		return nil, schemaErrorf("%s: invalid value for attribute %s", where, attr)
	}
	n := atoi(v)
	return &n, nil
}

// parseOccupancyRestrictions reads the one-or-two Occupancy records (adult
// mandatory, child optional) and applies the adult/child age cross-checks.
func parseOccupancyRestrictions(rule *ratemsg.Element, restr *Restrictions) error {
	const where = "invalid first Offer element"

	occs := rule.ChildrenNamed("Occupancy")
	if len(occs) < 1 || len(occs) > 2 {
		return schemaErrorf("%s: OfferRule must have one or two Occupancy elements", where)
	}

	adultSeen, childSeen := false, false
	for _, occ := range occs {
		switch AgeClass(occ.AttrValue("AgeQualifyingCode")) {
		case AgeClassAdult:
			if adultSeen {
				return schemaErrorf("%s: repeated Occupancy element with attribute AgeQualifyingCode=\"10\"", where)
			}
			adultSeen = true
			if occ.HasAttr("MaxAge") {
				return schemaErrorf("%s: Occupancy element with attribute AgeQualifyingCode=\"10\" must not have a MaxAge attribute", where)
			}
			var err error
			if restr.AdultMinAge, err = boundedPositive(occ, "MinAge", maxRestrictionAge, where, "10"); err != nil {
				return err
			}
			if restr.AdultMinOcc, err = boundedPositive(occ, "MinOccupancy", maxOccupancyCount, where, "10"); err != nil {
				return err
			}
			if restr.AdultMaxOcc, err = boundedPositive(occ, "MaxOccupancy", maxOccupancyCount, where, "10"); err != nil {
				return err
			}
			if restr.AdultMinOcc != nil && restr.AdultMaxOcc != nil && *restr.AdultMinOcc > *restr.AdultMaxOcc {
				return schemaErrorf("%s: Occupancy element with attribute AgeQualifyingCode=\"10\": inconsistent values for MinOccupancy and MaxOccupancy", where)
			}
		case AgeClassChild:
			if childSeen {
				return schemaErrorf("%s: repeated Occupancy element with attribute AgeQualifyingCode=\"8\"", where)
			}
			childSeen = true
			var err error
			if restr.ChildMinAge, err = boundedPositive(occ, "MinAge", maxRestrictionAge, where, "8"); err != nil {
				return err
			}
			if restr.ChildMaxAge, err = boundedPositive(occ, "MaxAge", maxRestrictionAge, where, "8"); err != nil {
				return err
			}
			if restr.ChildMinAge != nil && restr.ChildMaxAge != nil && *restr.ChildMinAge >= *restr.ChildMaxAge {
				return schemaErrorf("%s: Occupancy element with attribute AgeQualifyingCode=\"8\": inconsistent values for MinAge and MaxAge", where)
			}
			if restr.ChildMinOcc, err = boundedPositive(occ, "MinOccupancy", maxOccupancyCount, where, "8"); err != nil {
				return err
			}
			if restr.ChildMaxOcc, err = boundedPositive(occ, "MaxOccupancy", maxOccupancyCount, where, "8"); err != nil {
				return err
			}
			if restr.ChildMinOcc != nil && restr.ChildMaxOcc != nil && *restr.ChildMinOcc > *restr.ChildMaxOcc {
				return schemaErrorf("%s: Occupancy element with attribute AgeQualifyingCode=\"8\": inconsistent values for MinOccupancy and MaxOccupancy", where)
			}
		default:
			return schemaErrorf("%s: attribute Occupancy -> AgeQualifyingCode must be \"8\" or \"10\"", where)
		}
	}

	if !adultSeen {
		return schemaErrorf("%s: missing Occupancy element with attribute AgeQualifyingCode=\"10\"", where)
	}
	if restr.AdultMinAge == nil && childSeen {
		return schemaErrorf("%s: the Occupancy element with attribute AgeQualifyingCode=\"10\" has no MinAge attribute, but the one with AgeQualifyingCode=\"8\" is also present", where)
	}
	if restr.AdultMinAge != nil && !childSeen {
		return schemaErrorf("%s: the Occupancy element with attribute AgeQualifyingCode=\"10\" has a MinAge attribute, but the one with AgeQualifyingCode=\"8\" is not present", where)
	}
	if restr.AdultMinAge != nil && restr.ChildMaxAge != nil && *restr.ChildMaxAge > *restr.AdultMinAge {
		return schemaErrorf("%s: the Occupancy element with attribute AgeQualifyingCode=\"8\" has a MaxAge value that is > than the MinAge value for the one with AgeQualifyingCode=\"10\"", where)
	}
	if restr.AdultMinAge != nil && restr.ChildMinAge != nil && *restr.ChildMinAge >= *restr.AdultMinAge {
		return schemaErrorf("%s: the Occupancy element with attribute AgeQualifyingCode=\"8\" has a MinAge value that is >= than the MinAge value for the one with AgeQualifyingCode=\"10\"", where)
	}
	return nil
}

func boundedPositive(el *ratemsg.Element, attr string, limit int, where, ageq string) (*int, error) {
	if !el.HasAttr(attr) {
		return nil, nil
	}
	v := el.AttrValue(attr)
	if !isPositiveInt(v) || atoi(v) > limit {
		return nil, schemaErrorf("%s: Occupancy element with attribute AgeQualifyingCode=%q: if present, %s must be a positive integer <= %d", where, ageq, attr, limit)
	}
	n := atoi(v)
	return &n, nil
}

// parseDiscount classifies one non-first Offer record by the attributes of
// its Discount element: nights counts make it a free-nights discount, a
// Guest sub-element makes it a family discount.
func parseDiscount(offer *ratemsg.Element, set *OfferSet) error {
	discs := offer.ChildrenNamed("Discount")
	if len(discs) == 0 {
		return schemaErrorf("invalid Offer: no Discount element")
	}
	if len(discs) > 1 {
		return schemaErrorf("invalid Offer: more than one Discount element")
	}
	disc := discs[0]

	if disc.AttrValue("Percent") != "100" {
		return schemaErrorf("invalid Offer: missing or invalid Percent attribute in Discount element")
	}

	nreq := disc.AttrValue("NightsRequired")
	ndis := disc.AttrValue("NightsDiscounted")
	patt := disc.AttrValue("DiscountPattern")

	switch {
	case nreq == "" && ndis == "" && patt == "":
		return parseFamilyDiscount(offer, set)
	case nreq != "" && ndis != "":
		return parseFreeNightsDiscount(nreq, ndis, patt, disc.HasAttr("DiscountPattern"), set)
	default:
		return schemaErrorf("invalid Offer: type of discount cannot be determined from the attributes of the Discount element")
	}
}

func parseFamilyDiscount(offer *ratemsg.Element, set *OfferSet) error {
	guestsEls := offer.ChildrenNamed("Guests")
	if len(guestsEls) == 0 {
		return schemaErrorf("invalid Offer: missing Guests element")
	}
	if len(guestsEls) > 1 {
		return schemaErrorf("invalid Offer: more than one Guests element")
	}
	guestEls := guestsEls[0].ChildrenNamed("Guest")
	if len(guestEls) == 0 {
		return schemaErrorf("invalid Offer: missing Guest element")
	}
	if len(guestEls) > 1 {
		return schemaErrorf("invalid Offer: more than one Guest element")
	}
	guest := guestEls[0]

	if AgeClass(guest.AttrValue("AgeQualifyingCode")) != AgeClassChild {
		return schemaErrorf("invalid Offer: invalid value for AgeQualifyingCode")
	}
	maxAge := guest.AttrValue("MaxAge")
	if !isPositiveInt(maxAge) {
		return schemaErrorf("invalid Offer: missing or invalid MaxAge attribute")
	}
	minCnt := guest.AttrValue("MinCount")
	if minCnt == "" || !isNonNegativeInt(minCnt) {
		return schemaErrorf("invalid Offer: missing or invalid MinCount attribute")
	}
	if guest.AttrValue("FirstQualifyingPosition") != "1" {
		return schemaErrorf("invalid Offer: invalid value for FirstQualifyingPosition")
	}
	lastQP := guest.AttrValue("LastQualifyingPosition")
	if !isPositiveInt(lastQP) {
		return schemaErrorf("invalid Offer: missing or invalid LastQualifyingPosition")
	}
	if atoi(lastQP) > atoi(minCnt) {
		return schemaErrorf("invalid Offer: LastQualifyingPosition cannot exceed MinCount")
	}
	if set.Family != nil {
		return schemaErrorf("invalid Offer: more than one discounts of type \"family\" detected")
	}
	set.Family = &FamilyDiscount{
		MaxAge:    atoi(maxAge),
		MinCount:  atoi(minCnt),
		FreeCount: atoi(lastQP),
	}
	return nil
}

func parseFreeNightsDiscount(nreq, ndis, patt string, hasPattern bool, set *OfferSet) error {
	if !isPositiveInt(nreq) || atoi(nreq) > maxUnitNights {
		return schemaErrorf("invalid Offer: invalid value for NightsRequired")
	}
	if !isPositiveInt(ndis) || atoi(ndis) > maxUnitNights {
		return schemaErrorf("invalid Offer: invalid value for NightsDiscounted")
	}
	required, discounted := atoi(nreq), atoi(ndis)

	if hasPattern {
		// the pattern must spell out exactly the trailing-1s cycle the
		// two counts imply
		want := strings.Repeat("0", max(required-discounted, 0)) + strings.Repeat("1", discounted)
		if want != patt {
			return schemaErrorf("invalid Offer: inconsistent values for NightsRequired, NightsDiscounted and DiscountPattern")
		}
	}
	if discounted > required {
		return schemaErrorf("invalid Offer: NightsDiscounted cannot exceed NightsRequired")
	}
	if set.FreeNights != nil {
		return schemaErrorf("invalid Offer: more than one discounts of type \"free nights\" detected")
	}
	set.FreeNights = &FreeNightsDiscount{
		NightsRequired:   required,
		NightsDiscounted: discounted,
		Pattern:          patt,
	}
	return nil
}
