package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/datetime"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/rateplan"
)

// matchPlan screens the stay against every room-type code of one plan and,
// where all screens pass, prices it. Screens are evaluated in a fixed
// order; the first failing screen writes its reason and skips the code.
func matchPlan(res *Result, job *Job, plan *rateplan.Plan, n, total int) {
	t := res.Trace
	t.Matchf("RatePlan %d/%d (RatePlanCode = %s):", n, total, plan.Code)

	for _, code := range plan.Rates.Codes {
		t.Matchf("    +-- InvTypeCode = %s:", code)

		io, ok := job.occupancyFor(code)
		if !ok {
			t.Matchf("        +-- no inventory occupancy for this code -> skipping")
			continue
		}
		fullPayers := io.FullPayersNeeded()
		t.Matchf("        +-- inventory occupancy: min = %d, std = %d, max = %d, max child occupancy = %s, min full rate payers = %d",
			io.Min, io.Std, io.Max, orDash(io.MaxChild), fullPayers)

		t.Matchf("        +-- guests: %d adults(s) and %d child(ren)%s",
			job.Adults, len(job.ChildrenAges), agesSuffix(job.ChildrenAges))
		guests := job.Adults + len(job.ChildrenAges)
		if guests < io.Min {
			t.Matchf("            +-- the total number of guests is less than the inventory occupancy minimum -> skipping")
			continue
		}
		if guests > io.Max {
			t.Matchf("            +-- the total number of guests exceeds the inventory occupancy maximum -> skipping")
			continue
		}

		restr := plan.Offers.Restrictions
		if !screenOfferOccupancy(t, job, restr) {
			continue
		}
		if reason := offerStayRestriction(job.Arrival, job.Departure, restr); reason != "" {
			t.Matchf("            +-- stay is restricted by OfferRule (%s) -> skipping", reason)
			continue
		}
		adv := datetime.DaysBetween(job.BookingDate, job.Arrival)
		if restr.MinAdvance != nil && adv < *restr.MinAdvance {
			t.Matchf("            | OfferRule restrictions: cannot book %d day(s) in advance if MinAdvancedBookingOffset is %d",
				adv, *restr.MinAdvance)
			continue
		}
		if restr.MaxAdvance != nil && adv > *restr.MaxAdvance {
			t.Matchf("            | OfferRule restrictions: cannot book %d day(s) in advance if MaxAdvancedBookingOffset is %d",
				adv, *restr.MaxAdvance)
			continue
		}

		// promote the oldest children to adults until enough full-rate
		// payers are present
		effAdults := job.Adults
		effChildren := append([]int(nil), job.ChildrenAges...)
		sort.Ints(effChildren)
		for effAdults < fullPayers && len(effChildren) > 0 {
			effChildren = effChildren[:len(effChildren)-1]
			effAdults++
		}
		if effAdults != job.Adults {
			t.Matchf("            +-- children were transformed to adults")
			t.Matchf("            +-- effective guests: %d adults(s) and %d child(ren) (ages: %s)",
				effAdults, len(effChildren), joinAges(effChildren))
		}

		numFreeKids := 0
		if fam := plan.Offers.Family; fam != nil {
			effChildren, numFreeKids = applyFamilyDiscount(effChildren, fam)
			if numFreeKids > 0 {
				t.Matchf("            +-- a family discount was applied: %d child(ren) below age %d stay(s) free",
					numFreeKids, fam.MaxAge)
				t.Matchf("            +-- effective guests: %d adults(s) and %d child(ren) (ages: %s)",
					effAdults, len(effChildren), joinAges(effChildren))
			}
		}

		t.Matchf("        +-- stay: arrival on %s, departure on %s (%d night(s))",
			job.Arrival, job.Departure, job.Nights())

		if reason := ruleRestriction(job.Arrival, job.Departure, plan.Rules.ForCode(code)); reason != "" {
			t.Matchf("            +-- stay is restricted by booking rules (%s) -> skipping", reason)
			continue
		}
		t.Matchf("            +-- stay is not restricted by any booking rule")

		rm := matchRates(job, effAdults, effChildren, io, plan.Rates.ByCode[code], plan.Offers.FreeNights, numFreeKids)
		if rm.noMatchReason != "" {
			t.Matchf("            +-- no matching rates for the stay (%s) -> skipping", rm.noMatchReason)
			continue
		}
		t.Matchf("        +-- matching rates for the stay (total contribution %s EUR):", fmt3(rm.total))
		for _, d := range rm.details {
			t.Matchf("            +-- %s", d)
		}

		sm := matchSupplements(job, effAdults+len(effChildren), plan.Supplements, rm.freeNightDates, code)
		if len(sm.details) == 0 {
			t.Matchf("        +-- no matching, mandatory supplements for the stay")
		} else {
			t.Matchf("        +-- matching, mandatory supplements for the stay (total contribution %s EUR):", fmt3(sm.total))
			for _, d := range sm.details {
				t.Matchf("            +-- %s", d)
			}
		}

		t.Matchf("        +-- total cost: %s EUR", fmt2(rm.total+sm.total))
		res.Prices[code] = round2(rm.total + sm.total)
	}
}

// screenOfferOccupancy checks the guest composition against the occupancy
// restrictions of the first Offer. The composition screens run on the
// original guest counts, before any child promotion.
func screenOfferOccupancy(t *Trace, job *Job, r rateplan.Restrictions) bool {
	if r.AdultMinAge == nil && len(job.ChildrenAges) != 0 {
		t.Matchf("            | according to OfferRule restrictions, all guests are considered adults - however, children are present in the stay -> skipping")
		return false
	}
	if r.AdultMinAge != nil {
		for _, age := range job.ChildrenAges {
			if age >= *r.AdultMinAge {
				t.Matchf("            | according to OfferRule restrictions, all guests >= %d are to be considered adults - however a child with age (%d) is present in the stay -> skipping",
					*r.AdultMinAge, age)
				return false
			}
		}
	}
	for _, age := range job.ChildrenAges {
		if r.ChildMinAge != nil && age < *r.ChildMinAge {
			t.Matchf("            | guest child age (%d) conflicts with OfferRule minimum child age (%d) -> skipping",
				age, *r.ChildMinAge)
			return false
		}
		if r.ChildMaxAge != nil && age >= *r.ChildMaxAge {
			t.Matchf("            | guest child age (%d) conflicts with OfferRule maximum child age (%d) -> skipping",
				age, *r.ChildMaxAge)
			return false
		}
	}
	if r.AdultMinOcc != nil && job.Adults < *r.AdultMinOcc {
		t.Matchf("            | OfferRule restrictions: adult MinOccupancy not reached -> skipping")
		return false
	}
	if r.AdultMaxOcc != nil && job.Adults > *r.AdultMaxOcc {
		t.Matchf("            | OfferRule restrictions: adult MaxOccupancy exceeded -> skipping")
		return false
	}
	if r.ChildMinOcc != nil && len(job.ChildrenAges) < *r.ChildMinOcc {
		t.Matchf("            | OfferRule restrictions: children MinOccupancy not reached -> skipping")
		return false
	}
	if r.ChildMaxOcc != nil && len(job.ChildrenAges) > *r.ChildMaxOcc {
		t.Matchf("            | OfferRule restrictions: children MaxOccupancy exceeded -> skipping")
		return false
	}
	return true
}

// offerStayRestriction checks the stay dates against the length-of-stay and
// day-of-week restrictions of the first Offer. An empty return value means
// no restriction applies.
func offerStayRestriction(arr, dep datetime.Date, r rateplan.Restrictions) string {
	los := datetime.DaysBetween(arr, dep)
	if r.MinLOS != nil && los < *r.MinLOS {
		return fmt.Sprintf("length of stay (%d) is below minimum (%d)", los, *r.MinLOS)
	}
	if r.MaxLOS != nil && los > *r.MaxLOS {
		return fmt.Sprintf("length of stay (%d) exceeds maximum (%d)", los, *r.MaxLOS)
	}
	if !r.ArrivalDOW.Allows(arr.Weekday()) {
		return "arrival dow is forbidden"
	}
	if !r.DepartureDOW.Allows(dep.Weekday()) {
		return "departure dow is forbidden"
	}
	return ""
}

// applyFamilyDiscount removes free-staying children, scanning left to right
// and restarting after each removal. The removed count is reported so base
// amount lookups can still account for the free children.
func applyFamilyDiscount(children []int, fam *rateplan.FamilyDiscount) ([]int, int) {
	eligible := 0
	for _, age := range children {
		if age < fam.MaxAge {
			eligible++
		}
	}
	if eligible < 1 || eligible < fam.MinCount {
		return children, 0
	}

	removed := 0
	for removed < eligible && removed < fam.FreeCount {
		for k, age := range children {
			if age < fam.MaxAge {
				children = append(children[:k], children[k+1:]...)
				removed++
				break
			}
		}
	}
	return children, removed
}

// ruleRestriction checks the stay against the booking rules applicable to a
// room-type code (code-specific rules first, then generic ones). An empty
// return value means the stay is admitted.
func ruleRestriction(arr, dep datetime.Date, rules []rateplan.BookingRule) string {
	los := datetime.DaysBetween(arr, dep)

	// no night of the stay may fall under a master-closed rule
	for dt := arr; datetime.DaysBetween(dt, dep) > 0; dt = addDays(dt, 1) {
		for _, r := range rules {
			if r.Covers(dt) && r.Status != rateplan.StatusOpen {
				return fmt.Sprintf("master restriction status closed for %s", dt)
			}
		}
	}

	for _, r := range rules {
		if r.Covers(dep) && !r.DepartureDOW.Allows(dep.Weekday()) {
			return "departure dow restriction applies"
		}
		if r.Covers(arr) {
			if !r.ArrivalDOW.Allows(arr.Weekday()) {
				return "arrival dow restriction applies"
			}
			if r.MinLOS != nil && los < *r.MinLOS {
				return fmt.Sprintf("length of stay (%d) is below minimum (%d)", los, *r.MinLOS)
			}
			if r.MaxLOS != nil && los > *r.MaxLOS {
				return fmt.Sprintf("length of stay (%d) is above maximum (%d)", los, *r.MaxLOS)
			}
		}
	}

	// forward bounds hold on every day of the stay, departure day included
	for dt := arr; ; dt = addDays(dt, 1) {
		for _, r := range rules {
			if !r.Covers(dt) {
				continue
			}
			if r.FwdMinStay != nil && los < *r.FwdMinStay {
				return fmt.Sprintf("on %s, length of stay (%d) is below forward minimum (%d)", dt, los, *r.FwdMinStay)
			}
			if r.FwdMaxStay != nil && los > *r.FwdMaxStay {
				return fmt.Sprintf("on %s, length of stay (%d) is above forward maximum (%d)", dt, los, *r.FwdMaxStay)
			}
		}
		if datetime.DaysBetween(dt, dep) <= 0 {
			break
		}
	}
	return ""
}

// rateMatch is the pricing outcome of one room-type code: the per-chunk
// narration, the rounded subtotal and the dates made free by a free-nights
// discount. A non-empty noMatchReason means the whole code is unpriceable.
type rateMatch struct {
	details        []string
	total          float64
	freeNightDates map[string]bool
	noMatchReason  string
}

// matchRates walks the nights of the stay, covering each step with the rate
// whose interval contains it and charging the effective guests. A date no
// rate covers, or a guest no amount matches, aborts the whole match.
func matchRates(job *Job, effAdults int, effChildren []int, io Occupancy, rates []rateplan.Rate, fn *rateplan.FreeNightsDiscount, numFreeKids int) rateMatch {
	arr, dep := job.Arrival, job.Departure
	stay := datetime.DaysBetween(arr, dep)

	m := rateMatch{freeNightDates: map[string]bool{}}

	dt := arr
	for datetime.DaysBetween(dt, dep) > 0 {

		var rate *rateplan.Rate
		for i := range rates {
			if dt.Between(rates[i].Start, rates[i].End) {
				rate = &rates[i]
				break
			}
		}
		if rate == nil {
			return rateMatch{noMatchReason: fmt.Sprintf("first unmatched date is %s", dt)}
		}

		// the chunk is bounded by the nights left in the stay, the nights
		// left in the rate and the rate's billing-unit length
		chunk := min(datetime.DaysBetween(dt, dep), datetime.DaysBetween(dt, rate.End)+1, rate.UnitNights)
		chunkWeight := float64(chunk) / float64(rate.UnitNights)

		cost, items, reason := priceChunk(*rate, chunkWeight, effAdults, effChildren, io, numFreeKids)
		if reason != "" {
			return rateMatch{noMatchReason: fmt.Sprintf("first unmatched date is %s%s", dt, reason)}
		}

		// a free-nights discount can only waive whole single nights
		free := false
		if fn != nil && stay >= fn.NightsRequired && chunk == 1 {
			if fn.Pattern != "" {
				if datetime.DaysBetween(arr, dt)%fn.NightsRequired >= fn.NightsRequired-fn.NightsDiscounted {
					m.details = append(m.details, fmt.Sprintf("%s EUR for %s (%d nights) matched by rate %s .. %s (repeating free nights discount applies)",
						fmt3(0), dt, chunk, rate.Start, rate.End))
					free = true
				}
			} else if datetime.DaysBetween(dt, dep) <= fn.NightsDiscounted {
				m.details = append(m.details, fmt.Sprintf("%s EUR for %s (%d nights) matched by rate %s .. %s (non-repeating free nights discount applies)",
					fmt3(0), dt, chunk, rate.Start, rate.End))
				free = true
			}
		}
		if free {
			m.freeNightDates[dt.String()] = true
		} else {
			frac := ""
			if math.Abs(chunkWeight-1) > 0.0001 {
				frac = fmt.Sprintf("(fraction %d/%d) ", chunk, rate.UnitNights)
			}
			m.details = append(m.details, fmt.Sprintf("%s EUR %sfor %s (%d nights) matched by rate %s .. %s (%s)",
				fmt3(cost), frac, dt, chunk, rate.Start, rate.End, strings.Join(items, " + ")))
			m.total += cost
		}

		dt = addDays(dt, chunk)
	}

	m.total = round3(m.total)
	return m
}

// priceChunk charges the effective guests against one rate for one chunk:
// up to std adults on the base amount, remaining adults on the adult
// additional amount, every child on its age bracket. A non-empty reason
// names the first guest the rate cannot price.
func priceChunk(rate rateplan.Rate, chunkWeight float64, effAdults int, effChildren []int, io Occupancy, numFreeKids int) (cost float64, items []string, reason string) {
	baseAdults := min(effAdults, io.Std)

	if baseAdults > 0 {
		switch rate.Scheme {
		case rateplan.SchemePerGuest:
			// keyed by the total guest count, free children included
			key := min(effAdults+len(effChildren)+numFreeKids, io.Std)
			amt, ok := rate.BaseAmounts[key]
			if !ok {
				return 0, nil, fmt.Sprintf(", no BaseByGuestAmt with NumberOfGuests = %d found", key)
			}
			am := amt * chunkWeight * float64(baseAdults) / float64(key)
			cost += am
			items = append(items, fmt3(am))
		case rateplan.SchemePerGroup:
			amt, ok := rate.BaseAmounts[baseAdults]
			if !ok {
				return 0, nil, fmt.Sprintf(", no BaseByGuestAmt with NumberOfGuests = %d found", baseAdults)
			}
			am := amt * chunkWeight
			cost += am
			items = append(items, fmt3(am))
		}
	}

	if extra := effAdults - baseAdults; extra > 0 {
		add, ok := rate.AdultAdditional()
		if !ok {
			return 0, nil, ", no AdditionalGuestAmount found (for adults above std occupancy)"
		}
		am := float64(extra) * add.Amount * chunkWeight
		cost += am
		items = append(items, fmt3(am))
	}

	for _, age := range effChildren {
		add, ok := rate.ChildAdditional(age)
		if !ok {
			return 0, nil, fmt.Sprintf(", no AdditionalGuestAmount found for child aged %d", age)
		}
		am := add.Amount * chunkWeight
		cost += am
		items = append(items, fmt3(am))
	}

	return cost, items, ""
}

// suppMatch is the supplement outcome of one room-type code.
type suppMatch struct {
	details []string
	total   float64
}

// matchSupplements charges every mandatory supplement over the nights of
// the stay, per its charge type. Amount records restricted to a room type
// only apply to the matching code; free nights waive the per-night charge
// types.
func matchSupplements(job *Job, stayPax int, supps *rateplan.SupplementModel, freeNightDates map[string]bool, code string) suppMatch {
	var m suppMatch
	arr, dep := job.Arrival, job.Departure
	stayNights := datetime.DaysBetween(arr, dep)

	for _, sc := range supps.Codes {
		supp := supps.ByCode[sc]
		if !supp.Mandatory {
			continue
		}

	days:
		for dt := arr; datetime.DaysBetween(dt, dep) > 0; dt = addDays(dt, 1) {
			dowIdx := (dt.Weekday() + 6) % 7 // Monday-first index
			if !supp.AppliesOnWeekday(dowIdx) {
				m.details = append(m.details, fmt.Sprintf("%s EUR for %q (not applicable due to ALPINEBITSDOW pattern) on %s", fmt3(0), sc, dt))
				continue
			}

			amount, matched := 0.0, false
			for _, rec := range supp.Amounts {
				if dt.Between(rec.Start, rec.End) && (rec.RoomType == "" || rec.RoomType == code) {
					amount += rec.Amount
					matched = true
				}
			}
			if !matched {
				continue
			}

			// single stays never span more than one room, so the per-room
			// charge types collapse onto their plain counterparts
			switch supp.ChargeType {
			case rateplan.ChargeDaily, rateplan.ChargeRoomPerNight:
				if freeNightDates[dt.String()] {
					m.details = append(m.details, fmt.Sprintf("%s EUR for %q (free nights discount applies) on %s", fmt3(0), sc, dt))
				} else {
					m.details = append(m.details, fmt.Sprintf("%s EUR for %q on %s", fmt3(amount), sc, dt))
					m.total += amount
				}
			case rateplan.ChargePerStay, rateplan.ChargeRoomPerStay:
				am := amount / float64(stayNights)
				m.details = append(m.details, fmt.Sprintf("%s EUR for %q which is 1/%d of the amount per stay in this period (%s EUR) on %s",
					fmt3(am), sc, stayNights, fmtAmount(amount), dt))
				m.total += am
			case rateplan.ChargePersonPerStay:
				am := amount * float64(stayPax) / float64(stayNights)
				m.details = append(m.details, fmt.Sprintf("%s EUR for %q which is 1/%d of the amount per stay in this period (%s EUR) on %s times the guest count (%d)",
					fmt3(am), sc, stayNights, fmtAmount(amount), dt, stayPax))
				m.total += am
			case rateplan.ChargePersonPerNight:
				if freeNightDates[dt.String()] {
					m.details = append(m.details, fmt.Sprintf("%s EUR for %q (free nights discount applies) on %s", fmt3(0), sc, dt))
				} else {
					am := amount * float64(stayPax)
					m.details = append(m.details, fmt.Sprintf("%s EUR for %q on %s (%s EUR) times the guest count (%d)",
						fmt3(am), sc, dt, fmtAmount(amount), stayPax))
					m.total += am
				}
			case rateplan.ChargePerItem:
				m.details = append(m.details, fmt.Sprintf("%s EUR for %q (assuming the item count is 1)", fmt3(amount), sc))
				m.total += amount
				break days
			}
		}
	}

	m.total = round3(m.total)
	return m
}

// addDays advances within a validated stay, which the date range always
// admits.
func addDays(d datetime.Date, n int) datetime.Date {
	next, err := datetime.AddDays(d, n)
	if err != nil {
		panic(err)
	}
	return next
}

func joinAges(ages []int) string {
	parts := make([]string, len(ages))
	for i, a := range ages {
		parts[i] = strconv.Itoa(a)
	}
	return strings.Join(parts, ", ")
}

func agesSuffix(ages []int) string {
	if len(ages) == 0 {
		return ""
	}
	return fmt.Sprintf(" (ages: %s)", joinAges(ages))
}
