// Package rateplan validates rate-plan notification documents and builds
// the immutable models the match engine consumes. Each entity kind has a
// dedicated constructor; once BuildPlans returns, the generic element tree
// is no longer needed.
package rateplan

import (
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/ratemsg"
)

// SupportedCurrency is the only currency a rate plan may quote.
const SupportedCurrency = "EUR"

// supportedNotifType is the only notification type handled; delta updates
// to previously issued rate plans are not supported.
const supportedNotifType = "New"

// Plan is one fully validated rate-plan entity.
type Plan struct {
	Code        string
	Rates       *RateModel
	Rules       *RuleModel
	Supplements *SupplementModel
	Offers      *OfferSet
}

// BuildPlans locates the rate-plan entries in the decoded document and
// validates every sub-entity, returning the plans in document order.
func BuildPlans(root *ratemsg.Element) ([]*Plan, error) {
	els, err := planElements(root)
	if err != nil {
		return nil, err
	}

	plans := make([]*Plan, 0, len(els))
	for _, el := range els {
		plan := &Plan{Code: el.AttrValue("RatePlanCode")}
		if plan.Rates, err = parseRateModel(el); err != nil {
			return nil, err
		}
		if plan.Rules, err = parseRuleModel(el); err != nil {
			return nil, err
		}
		if plan.Supplements, err = parseSupplementModel(el); err != nil {
			return nil, err
		}
		if plan.Offers, err = parseOfferSet(el); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// planElements extracts the RatePlan elements, enforcing the supported
// notification type, the single accepted currency and unique codes.
func planElements(root *ratemsg.Element) ([]*ratemsg.Element, error) {
	var els []*ratemsg.Element
	if root != nil && root.Name == "OTA_HotelRatePlanNotifRQ" {
		if rps := root.ChildrenNamed("RatePlans"); len(rps) == 1 {
			els = rps[0].ChildrenNamed("RatePlan")
		}
	}
	if len(els) == 0 {
		return nil, schemaErrorf("invalid rate plans message: cannot find a RatePlan element")
	}

	seen := map[string]bool{}
	for _, el := range els {
		if el.AttrValue("RatePlanNotifType") != supportedNotifType {
			return nil, schemaErrorf("can only deal with RatePlan elements with RatePlanNotifType = %q", supportedNotifType)
		}
		if el.AttrValue("CurrencyCode") != SupportedCurrency {
			return nil, schemaErrorf("invalid RatePlan: CurrencyCode must be %q", SupportedCurrency)
		}
		code := el.AttrValue("RatePlanCode")
		if code == "" {
			return nil, schemaErrorf("invalid RatePlan: missing RatePlanCode")
		}
		if seen[code] {
			return nil, schemaErrorf("invalid RatePlan: RatePlanCode is not unique")
		}
		seen[code] = true
	}
	return els, nil
}
