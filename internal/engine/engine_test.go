package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/ratemsg"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/rateplan"
)

// Fixture fragments composed into rate-plan documents per test.

const staticPerGroup = `<Rate><BaseByGuestAmts><BaseByGuestAmt Type="25"/></BaseByGuestAmts></Rate>`

// doubleRate prices room type DOUBLE at 100 EUR per night for two adults
// over the whole test window.
const doubleRate = `<Rate InvTypeCode="DOUBLE" Start="2024-01-01" End="2024-03-31">` +
	`<BaseByGuestAmts><BaseByGuestAmt NumberOfGuests="2" AgeQualifyingCode="10" AmountAfterTax="100"/></BaseByGuestAmts>` +
	`</Rate>`

// doubleRateWithExtras adds an adult additional amount of 50 EUR and a
// child bracket [3, 12) of 30 EUR.
const doubleRateWithExtras = `<Rate InvTypeCode="DOUBLE" Start="2024-01-01" End="2024-03-31">` +
	`<BaseByGuestAmts><BaseByGuestAmt NumberOfGuests="2" AgeQualifyingCode="10" AmountAfterTax="100"/></BaseByGuestAmts>` +
	`<AdditionalGuestAmounts>` +
	`<AdditionalGuestAmount AgeQualifyingCode="10" Amount="50"/>` +
	`<AdditionalGuestAmount AgeQualifyingCode="8" MinAge="3" MaxAge="12" Amount="30"/>` +
	`</AdditionalGuestAmounts>` +
	`</Rate>`

const adultsOnlyOffers = `<Offers><Offer><OfferRules><OfferRule>` +
	`<Occupancy AgeQualifyingCode="10"/>` +
	`</OfferRule></OfferRules></Offer></Offers>`

const familyOfferRules = `<Offer><OfferRules><OfferRule>` +
	`<Occupancy AgeQualifyingCode="10" MinAge="12"/>` +
	`<Occupancy AgeQualifyingCode="8"/>` +
	`</OfferRule></OfferRules></Offer>`

func planOf(inner string) string {
	return `<OTA_HotelRatePlanNotifRQ><RatePlans>` +
		`<RatePlan RatePlanNotifType="New" CurrencyCode="EUR" RatePlanCode="TEST">` +
		inner +
		`</RatePlan></RatePlans></OTA_HotelRatePlanNotifRQ>`
}

func plansFrom(t *testing.T, doc string) []*rateplan.Plan {
	t.Helper()
	root, err := ratemsg.DecodeString(doc)
	require.NoError(t, err)
	plans, err := rateplan.BuildPlans(root)
	require.NoError(t, err)
	return plans
}

func runStay(t *testing.T, doc string, p JobParams) *Result {
	t.Helper()
	job, err := NewJob(p)
	require.NoError(t, err)
	return Run(job, plansFrom(t, doc))
}

func weekStay(occ ...Occupancy) JobParams {
	if len(occ) == 0 {
		occ = []Occupancy{{Code: "DOUBLE", Min: 1, Std: 2, Max: 4}}
	}
	return JobParams{
		Arrival:     "2024-01-01",
		Departure:   "2024-01-08",
		Adults:      2,
		BookingDate: "2023-12-01",
		Occupancy:   occ,
	}
}

func TestRunBaseStay(t *testing.T) {
	doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` + adultsOnlyOffers)
	res := runStay(t, doc, weekStay())

	assert.Equal(t, map[string]float64{"DOUBLE": 700}, res.Prices)

	assert.Contains(t, res.Trace.Validation(), "RatePlan 1/1 (RatePlanCode = TEST):")
	assert.Contains(t, res.Trace.Validation(), `dynamic Rate data for InvTypeCode = "DOUBLE":`)
	assert.Contains(t, res.Trace.Validation(), "BaseByGuestAmt: 2 pax -> 100 EUR")

	assert.Contains(t, res.Trace.Matching(), "stay is not restricted by any booking rule")
	assert.Contains(t, res.Trace.Matching(), "total contribution  700.000 EUR")
	assert.Contains(t, res.Trace.Matching(), "total cost:  700.00 EUR")
	assert.Contains(t, res.Trace.Matching(), "matched by rate 2024-01-01 .. 2024-03-31")
}

func TestRunExtraAdult(t *testing.T) {
	doc := planOf(`<Rates>` + staticPerGroup + doubleRateWithExtras + `</Rates>` + adultsOnlyOffers)
	p := weekStay()
	p.Adults = 3
	res := runStay(t, doc, p)

	// 2 adults on the base amount, the third on the additional amount
	assert.Equal(t, map[string]float64{"DOUBLE": 1050}, res.Prices)
}

func TestRunPerGuestScheme(t *testing.T) {
	static := `<Rate><BaseByGuestAmts><BaseByGuestAmt Type="7"/></BaseByGuestAmts></Rate>`
	rate := `<Rate InvTypeCode="DOUBLE" Start="2024-01-01" End="2024-03-31">` +
		`<BaseByGuestAmts><BaseByGuestAmt NumberOfGuests="2" AgeQualifyingCode="10" AmountAfterTax="50"/></BaseByGuestAmts>` +
		`</Rate>`
	doc := planOf(`<Rates>` + static + rate + `</Rates>` + adultsOnlyOffers)
	res := runStay(t, doc, weekStay())

	// 50 EUR per guest and night, two guests
	assert.Equal(t, map[string]float64{"DOUBLE": 700}, res.Prices)
}

func TestRunFamilyDiscount(t *testing.T) {
	doc := planOf(`<Rates>` + staticPerGroup + doubleRateWithExtras + `</Rates>` +
		`<Offers>` + familyOfferRules +
		`<Offer><Discount Percent="100"/><Guests>` +
		`<Guest AgeQualifyingCode="8" MaxAge="7" MinCount="1" FirstQualifyingPosition="1" LastQualifyingPosition="1"/>` +
		`</Guests></Offer></Offers>`)

	p := weekStay()
	p.ChildrenAges = []int{5}
	res := runStay(t, doc, p)

	// the five year old stays free, only the two adults pay
	assert.Equal(t, map[string]float64{"DOUBLE": 700}, res.Prices)
	assert.Contains(t, res.Trace.Matching(), "a family discount was applied: 1 child(ren) below age 7 stay(s) free")
	assert.Contains(t, res.Trace.Validation(), "Family discount:      1 child(ren) below age 7")
}

func TestRunFreeNights(t *testing.T) {
	t.Run("non-repeating", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Offers><Offer><OfferRules><OfferRule><Occupancy AgeQualifyingCode="10"/></OfferRule></OfferRules></Offer>` +
			`<Offer><Discount Percent="100" NightsRequired="7" NightsDiscounted="1"/></Offer></Offers>`)
		res := runStay(t, doc, weekStay())

		// the last of the seven nights is free
		assert.Equal(t, map[string]float64{"DOUBLE": 600}, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "non-repeating free nights discount applies")
		assert.Contains(t, res.Trace.Matching(), "   0.000 EUR for 2024-01-07")
	})

	t.Run("repeating pattern", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Offers><Offer><OfferRules><OfferRule><Occupancy AgeQualifyingCode="10"/></OfferRule></OfferRules></Offer>` +
			`<Offer><Discount Percent="100" NightsRequired="7" NightsDiscounted="1" DiscountPattern="0000001"/></Offer></Offers>`)

		p := weekStay()
		p.Departure = "2024-01-15" // 14 nights, two free
		res := runStay(t, doc, p)

		assert.Equal(t, map[string]float64{"DOUBLE": 1200}, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "repeating free nights discount applies")
	})

	t.Run("stay below the required nights", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Offers><Offer><OfferRules><OfferRule><Occupancy AgeQualifyingCode="10"/></OfferRule></OfferRules></Offer>` +
			`<Offer><Discount Percent="100" NightsRequired="7" NightsDiscounted="1"/></Offer></Offers>`)

		p := weekStay()
		p.Departure = "2024-01-04" // 3 nights
		res := runStay(t, doc, p)

		assert.Equal(t, map[string]float64{"DOUBLE": 300}, res.Prices)
	})
}

func TestRunChildPromotion(t *testing.T) {
	doc := planOf(`<Rates>` + staticPerGroup + doubleRateWithExtras + `</Rates>` +
		`<Offers>` + familyOfferRules + `</Offers>`)

	p := weekStay(Occupancy{Code: "DOUBLE", Min: 2, Std: 2, Max: 3, MaxChild: intp(1)})
	p.Adults = 1
	p.ChildrenAges = []int{10, 5}
	res := runStay(t, doc, p)

	// the ten year old is promoted to reach two full payers; the five year
	// old pays the child bracket
	assert.Equal(t, map[string]float64{"DOUBLE": 910}, res.Prices)
	assert.Contains(t, res.Trace.Matching(), "children were transformed to adults")
	assert.Contains(t, res.Trace.Matching(), "effective guests: 2 adults(s) and 1 child(ren) (ages: 5)")
}

func TestRunBookingRules(t *testing.T) {
	t.Run("closed master status excludes the stay", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<BookingRules><BookingRule Start="2024-01-01" End="2024-01-31">` +
			`<RestrictionStatus Restriction="Master" Status="Close"/>` +
			`</BookingRule></BookingRules>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "master restriction status closed for 2024-01-01")
	})

	t.Run("open rule admits the stay", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<BookingRules><BookingRule Start="2024-01-01" End="2024-01-31">` +
			`<RestrictionStatus Restriction="Master" Status="Open"/>` +
			`</BookingRule></BookingRules>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		assert.Equal(t, map[string]float64{"DOUBLE": 700}, res.Prices)
	})

	t.Run("minimum length of stay", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<BookingRules><BookingRule Start="2024-01-01" End="2024-01-31"><LengthsOfStay>` +
			`<LengthOfStay Time="10" TimeUnit="Day" MinMaxMessageType="SetMinLOS"/>` +
			`</LengthsOfStay></BookingRule></BookingRules>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "length of stay (7) is below minimum (10)")
	})

	t.Run("forward minimum on a later day", func(t *testing.T) {
		// covers only the departure day, still checked
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<BookingRules><BookingRule Start="2024-01-08" End="2024-01-31"><LengthsOfStay>` +
			`<LengthOfStay Time="10" TimeUnit="Day" MinMaxMessageType="SetForwardMinStay"/>` +
			`</LengthsOfStay></BookingRule></BookingRules>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "on 2024-01-08, length of stay (7) is below forward minimum (10)")
	})
}

func TestRunOfferRestrictions(t *testing.T) {
	t.Run("minimum length of stay", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Offers><Offer><OfferRules><OfferRule><LengthsOfStay>` +
			`<LengthOfStay Time="10" TimeUnit="Day" MinMaxMessageType="SetMinLOS"/>` +
			`</LengthsOfStay><Occupancy AgeQualifyingCode="10"/></OfferRule></OfferRules></Offer></Offers>`)
		res := runStay(t, doc, weekStay())

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "stay is restricted by OfferRule (length of stay (7) is below minimum (10))")
	})

	t.Run("advance booking window", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Offers><Offer><OfferRules><OfferRule MinAdvancedBookingOffset="60">` +
			`<Occupancy AgeQualifyingCode="10"/></OfferRule></OfferRules></Offer></Offers>`)
		res := runStay(t, doc, weekStay()) // booked 31 days ahead

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "cannot book 31 day(s) in advance if MinAdvancedBookingOffset is 60")
	})

	t.Run("children forbidden when all guests are adults", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRateWithExtras + `</Rates>` + adultsOnlyOffers)
		p := weekStay()
		p.ChildrenAges = []int{5}
		res := runStay(t, doc, p)

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "all guests are considered adults - however, children are present")
	})

	t.Run("child at the adult age threshold", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRateWithExtras + `</Rates>` +
			`<Offers>` + familyOfferRules + `</Offers>`)
		p := weekStay()
		p.ChildrenAges = []int{14}
		res := runStay(t, doc, p)

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "a child with age (14) is present in the stay -> skipping")
	})
}

func TestRunSupplements(t *testing.T) {
	t.Run("daily charge", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Supplements>` +
			`<Supplement InvType="EXTRA" InvCode="SPA" ChargeTypeCode="1" AddToBasicRateIndicator="1" MandatoryIndicator="1"/>` +
			`<Supplement InvType="EXTRA" InvCode="SPA" Start="2024-01-01" End="2024-03-31" Amount="10"/>` +
			`</Supplements>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		assert.Equal(t, map[string]float64{"DOUBLE": 770}, res.Prices)
		assert.Contains(t, res.Trace.Matching(), `EUR for "SPA" on 2024-01-01`)
	})

	t.Run("non-mandatory supplements are ignored", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Supplements>` +
			`<Supplement InvType="EXTRA" InvCode="SPA" ChargeTypeCode="1" AddToBasicRateIndicator="1" MandatoryIndicator="0"/>` +
			`<Supplement InvType="EXTRA" InvCode="SPA" Start="2024-01-01" End="2024-03-31" Amount="10"/>` +
			`</Supplements>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		assert.Equal(t, map[string]float64{"DOUBLE": 700}, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "no matching, mandatory supplements for the stay")
	})

	t.Run("per person per stay charge", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Supplements>` +
			`<Supplement InvType="EXTRA" InvCode="CLEAN" ChargeTypeCode="20" AddToBasicRateIndicator="1" MandatoryIndicator="1"/>` +
			`<Supplement InvType="EXTRA" InvCode="CLEAN" Start="2024-01-01" End="2024-03-31" Amount="70"/>` +
			`</Supplements>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		// 70 EUR per person spread over 7 nights, for 2 guests
		assert.Equal(t, map[string]float64{"DOUBLE": 840}, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "times the guest count (2)")
	})

	t.Run("per item charge applies once", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Supplements>` +
			`<Supplement InvType="EXTRA" InvCode="CRIB" ChargeTypeCode="24" AddToBasicRateIndicator="1" MandatoryIndicator="1"/>` +
			`<Supplement InvType="EXTRA" InvCode="CRIB" Start="2024-01-01" End="2024-03-31" Amount="25"/>` +
			`</Supplements>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		assert.Equal(t, map[string]float64{"DOUBLE": 725}, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "(assuming the item count is 1)")
	})

	t.Run("weekday pattern", func(t *testing.T) {
		// Mondays only; 2024-01-01 is a Monday, so two of the seven
		// nights are charged
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Supplements>` +
			`<Supplement InvType="EXTRA" InvCode="SPA" ChargeTypeCode="1" AddToBasicRateIndicator="1" MandatoryIndicator="1">` +
			`<PrerequisiteInventory InvType="ALPINEBITSDOW" InvCode="1000000"/></Supplement>` +
			`<Supplement InvType="EXTRA" InvCode="SPA" Start="2024-01-01" End="2024-03-31" Amount="10"/>` +
			`</Supplements>` + adultsOnlyOffers)
		p := weekStay()
		p.Departure = "2024-01-09" // 8 nights, two Mondays
		res := runStay(t, doc, p)

		assert.Equal(t, map[string]float64{"DOUBLE": 820}, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "not applicable due to ALPINEBITSDOW pattern")
	})
}

func TestRunUnitMultiplier(t *testing.T) {
	static := `<Rate RateTimeUnit="Day" UnitMultiplier="7">` +
		`<BaseByGuestAmts><BaseByGuestAmt Type="25"/></BaseByGuestAmts></Rate>`
	rate := `<Rate InvTypeCode="DOUBLE" Start="2024-01-01" End="2024-03-31">` +
		`<BaseByGuestAmts><BaseByGuestAmt NumberOfGuests="2" AgeQualifyingCode="10" AmountAfterTax="700"/></BaseByGuestAmts>` +
		`</Rate>`
	doc := planOf(`<Rates>` + static + rate + `</Rates>` + adultsOnlyOffers)

	p := weekStay()
	p.Departure = "2024-01-11" // 10 nights: one full unit plus 3/7
	res := runStay(t, doc, p)

	assert.Equal(t, map[string]float64{"DOUBLE": 1000}, res.Prices)
	assert.Contains(t, res.Trace.Matching(), "(fraction 3/7) ")
	assert.Contains(t, res.Trace.Matching(), "(7 nights) matched by rate")
}

func TestRunNoMatch(t *testing.T) {
	t.Run("no occupancy for the code", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay(Occupancy{Code: "SINGLE", Min: 1, Std: 1, Max: 1}))

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "no inventory occupancy for this code -> skipping")
	})

	t.Run("uncovered date aborts the match", func(t *testing.T) {
		rate := `<Rate InvTypeCode="DOUBLE" Start="2024-01-01" End="2024-01-04">` +
			`<BaseByGuestAmts><BaseByGuestAmt NumberOfGuests="2" AgeQualifyingCode="10" AmountAfterTax="100"/></BaseByGuestAmts>` +
			`</Rate>`
		doc := planOf(`<Rates>` + staticPerGroup + rate + `</Rates>` + adultsOnlyOffers)
		res := runStay(t, doc, weekStay())

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "first unmatched date is 2024-01-05")
	})

	t.Run("child without a bracket aborts the match", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` +
			`<Offers>` + familyOfferRules + `</Offers>`)
		p := weekStay()
		p.ChildrenAges = []int{5}
		res := runStay(t, doc, p)

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "no AdditionalGuestAmount found for child aged 5")
	})

	t.Run("too many guests", func(t *testing.T) {
		doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` + adultsOnlyOffers)
		p := weekStay()
		p.Adults = 5
		res := runStay(t, doc, p)

		assert.Empty(t, res.Prices)
		assert.Contains(t, res.Trace.Matching(), "exceeds the inventory occupancy maximum")
	})
}

func TestRunLastPlanWins(t *testing.T) {
	plan := func(code, amount string) string {
		return `<RatePlan RatePlanNotifType="New" CurrencyCode="EUR" RatePlanCode="` + code + `">` +
			`<Rates>` + staticPerGroup +
			`<Rate InvTypeCode="DOUBLE" Start="2024-01-01" End="2024-03-31">` +
			`<BaseByGuestAmts><BaseByGuestAmt NumberOfGuests="2" AgeQualifyingCode="10" AmountAfterTax="` + amount + `"/></BaseByGuestAmts>` +
			`</Rate></Rates>` + adultsOnlyOffers + `</RatePlan>`
	}
	doc := `<OTA_HotelRatePlanNotifRQ><RatePlans>` + plan("FIRST", "100") + plan("SECOND", "120") +
		`</RatePlans></OTA_HotelRatePlanNotifRQ>`
	res := runStay(t, doc, weekStay())

	assert.Equal(t, map[string]float64{"DOUBLE": 840}, res.Prices)
	assert.Contains(t, res.Trace.Matching(), "RatePlan 2/2 (RatePlanCode = SECOND):")
}

func TestRunIsRepeatable(t *testing.T) {
	doc := planOf(`<Rates>` + staticPerGroup + doubleRate + `</Rates>` + adultsOnlyOffers)
	plans := plansFrom(t, doc)
	job, err := NewJob(weekStay())
	require.NoError(t, err)

	first := Run(job, plans)
	second := Run(job, plans)
	assert.Equal(t, first.Prices, second.Prices)
	assert.Equal(t, first.Trace.Matching(), second.Trace.Matching())
}
