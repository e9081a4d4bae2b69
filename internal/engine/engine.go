// Package engine matches a stay against validated rate plans and computes
// its cost. A run has two parts: first every plan is narrated into the
// validation tier of the trace, then each plan and room-type code is
// screened against the stay and, where a match holds, priced.
package engine

import (
	"sort"
	"strconv"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/rateplan"
)

// Result is the outcome of one run: the matched price per room-type code
// and the narration. When several rate plans price the same code, the last
// one in document order wins.
type Result struct {
	Prices map[string]float64
	Trace  *Trace
}

// Run narrates the rate-plan models and then matches the stay against each
// plan and room-type code.
func Run(job *Job, plans []*rateplan.Plan) *Result {
	res := &Result{Prices: map[string]float64{}, Trace: &Trace{}}
	for i, plan := range plans {
		narratePlan(res.Trace, plan, i+1, len(plans))
	}
	for i, plan := range plans {
		matchPlan(res, job, plan, i+1, len(plans))
	}
	return res
}

// narratePlan writes the validated model of one plan to the validation
// tier, in document order: rates, booking rules, supplements, offers.
func narratePlan(t *Trace, plan *rateplan.Plan, n, total int) {
	t.Validf("RatePlan %d/%d (RatePlanCode = %s):", n, total, plan.Code)
	t.Validf("    +-- static Rate data: UnitMultiplier = %d, Type = %s",
		plan.Rates.Static.UnitNights, plan.Rates.Static.Scheme)

	for _, code := range plan.Rates.Codes {
		t.Validf("    +-- dynamic Rate data for InvTypeCode = %q:", code)
		rates := plan.Rates.ByCode[code]
		for k, rate := range rates {
			t.Validf("        +-- Rate %d/%d:", k+1, len(rates))
			t.Validf("            | start/end:      %s .. %s", rate.Start, rate.End)
			t.Validf("            | nights:         %d", rate.UnitNights)
			for _, pax := range sortedGuestCounts(rate.BaseAmounts) {
				t.Validf("            | BaseByGuestAmt: %d pax -> %s EUR", pax, fmtAmount(rate.BaseAmounts[pax]))
			}
			for _, add := range rate.Additional {
				if add.AgeClass == rateplan.AgeClassAdult {
					t.Validf("            | AdditionalGuestAmounts: adult -> %s EUR", fmtAmount(add.Amount))
				} else {
					t.Validf("            | AdditionalGuestAmounts: agecode = %s, %s <= age < %s -> %s EUR",
						add.AgeClass, orDash(add.MinAge), orDash(add.MaxAge), fmtAmount(add.Amount))
				}
			}
		}
		t.Validf("        +-- no overlap detected")
	}

	for _, key := range plan.Rules.Keys {
		if key == rateplan.GenericRuleKey {
			t.Validf("    +-- generic BookingRule data:")
		} else {
			t.Validf("    +-- specific BookingRule data for Code = %q:", key)
		}
		rules := plan.Rules.ByKey[key]
		for k, rule := range rules {
			t.Validf("        +-- BookingRule %d/%d:", k+1, len(rules))
			t.Validf("            | Start/End:  %s .. %s", rule.Start, rule.End)
			t.Validf("            | LOS:        %s .. %s", orDash(rule.MinLOS), orDash(rule.MaxLOS))
			t.Validf("            | Forward:    %s .. %s", orDash(rule.FwdMinStay), orDash(rule.FwdMaxStay))
			t.Validf("            | arr. DOW:   %s", rule.ArrivalDOW)
			t.Validf("            | dep. DOW:   %s", rule.DepartureDOW)
			t.Validf("            | res. stat.: %s", rule.Status)
		}
		t.Validf("        +-- no overlap detected")
	}

	if len(plan.Supplements.Codes) > 0 {
		t.Validf("    +-- Supplements:")
	}
	for c, code := range plan.Supplements.Codes {
		supp := plan.Supplements.ByCode[code]
		t.Validf("        +-- Supplement (merged) %d/%d (InvCode = %s, ChargeTypeCode = %s, MandatoryIndicator = %v, PrerequisiteInventory = %s):",
			c+1, len(plan.Supplements.Codes), code, supp.ChargeType, supp.Mandatory, supp.WeekdayPattern)
		for _, amt := range supp.Amounts {
			if amt.RoomType != "" {
				t.Validf("            | %s .. %s -> %s EUR (applicable to InvCode = %q)",
					amt.Start, amt.End, fmtAmount(amt.Amount), amt.RoomType)
			} else {
				t.Validf("            | %s .. %s -> %s EUR (applicable to any)",
					amt.Start, amt.End, fmtAmount(amt.Amount))
			}
		}
	}

	r := plan.Offers.Restrictions
	t.Validf("    +-- OfferRule restrictions:")
	t.Validf("            | LOS:        %s .. %s", orDash(r.MinLOS), orDash(r.MaxLOS))
	t.Validf("            | arr. DOW:   %s", r.ArrivalDOW)
	t.Validf("            | dep. DOW:   %s", r.DepartureDOW)
	t.Validf("            | adv.bk:     %s .. %s", orDash(r.MinAdvance), orDash(r.MaxAdvance))

	if r.AdultMinAge == nil {
		t.Validf("            | no Occupancy MinAge given: all guests are considered adults")
	} else {
		t.Validf("            | all guests < %d years old are considered children", *r.AdultMinAge)
	}
	if r.AdultMinOcc != nil || r.AdultMaxOcc != nil {
		t.Validf("            | adult occupancy restrictions: %s .. %s", orDash(r.AdultMinOcc), orDash(r.AdultMaxOcc))
	} else {
		t.Validf("            | no adult occupancy restrictions")
	}
	if r.ChildMinAge != nil || r.ChildMaxAge != nil {
		t.Validf("            | children ages are restricted to %s <= age < %s", orDash(r.ChildMinAge), orDash(r.ChildMaxAge))
	} else {
		t.Validf("            | children ages are not restricted")
	}
	if r.ChildMinOcc != nil || r.ChildMaxOcc != nil {
		t.Validf("            | children occupancy restrictions: %s .. %s", orDash(r.ChildMinOcc), orDash(r.ChildMaxOcc))
	} else {
		t.Validf("            | no children occupancy restrictions")
	}

	if fn := plan.Offers.FreeNights; fn != nil {
		if fn.Pattern == "" {
			t.Validf("    +-- Free nights discount: the last %d night(s) of the stay are free (only where rates have UnitMultiplier == 1)",
				fn.NightsDiscounted)
		} else {
			t.Validf("    +-- Free nights discount: for each %d night(s) of stay, the last %d night(s) are free (only where rates have UnitMultiplier == 1)",
				fn.NightsRequired, fn.NightsDiscounted)
		}
	}
	if fam := plan.Offers.Family; fam != nil {
		t.Validf("    +-- Family discount:      %d child(ren) below age %d stay(s) free, when at least %d child(ren) below that age is (are) present",
			fam.FreeCount, fam.MaxAge, fam.MinCount)
	}
}

// orDash renders an optional bound, "-" when unset.
func orDash(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func sortedGuestCounts(amounts map[int]float64) []int {
	keys := make([]int, 0, len(amounts))
	for k := range amounts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
