package rateplan

import (
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/datetime"
	"github.com/meixger/alpinebits-hoteldata-rtapp/internal/ratemsg"
)

// RuleStatus is the master restriction status of a booking rule.
type RuleStatus string

const (
	StatusOpen  RuleStatus = "Open"
	StatusClose RuleStatus = "Close"
)

// GenericRuleKey groups the booking rules that carry no room-type code.
const GenericRuleKey = ""

// BookingRule is one validated booking restriction interval, either generic
// or tied to a room-type code.
type BookingRule struct {
	Code         string // GenericRuleKey when generic
	Start        datetime.Date
	End          datetime.Date
	MinLOS       *int
	MaxLOS       *int
	FwdMinStay   *int
	FwdMaxStay   *int
	ArrivalDOW   DOWMask
	DepartureDOW DOWMask
	Status       RuleStatus
}

// Covers reports whether the rule's inclusive interval contains the date.
func (r BookingRule) Covers(d datetime.Date) bool {
	return d.Between(r.Start, r.End)
}

// RuleModel groups the booking rules of one rate plan by key: room-type
// codes in first-seen document order, then the generic key last when
// code-less rules exist.
type RuleModel struct {
	Keys  []string
	ByKey map[string][]BookingRule
}

// ForCode returns the room-type-specific rules followed by the generic
// ones, the combination the match engine screens a stay against.
func (m *RuleModel) ForCode(code string) []BookingRule {
	var out []BookingRule
	out = append(out, m.ByKey[code]...)
	out = append(out, m.ByKey[GenericRuleKey]...)
	return out
}

// parseRuleModel validates the BookingRules section of a rate plan element.
func parseRuleModel(plan *ratemsg.Element) (*RuleModel, error) {
	model := &RuleModel{ByKey: map[string][]BookingRule{}}

	ruleSets := plan.ChildrenNamed("BookingRules")
	if len(ruleSets) == 0 {
		return model, nil
	}
	if len(ruleSets) > 1 {
		return nil, schemaErrorf("invalid RatePlan: more than one BookingRules elements")
	}

	genericSeen := false
	for _, rec := range ruleSets[0].ChildrenNamed("BookingRule") {
		key := GenericRuleKey
		if code := rec.AttrValue("Code"); code != "" {
			if rec.AttrValue("CodeContext") != "ROOMTYPE" {
				return nil, schemaErrorf("invalid BookingRule: invalid or missing CodeContext attribute")
			}
			key = code
		} else {
			genericSeen = true
		}

		rule, err := parseRule(rec, key)
		if err != nil {
			return nil, err
		}
		if _, seen := model.ByKey[key]; !seen && key != GenericRuleKey {
			model.Keys = append(model.Keys, key)
		}
		model.ByKey[key] = append(model.ByKey[key], rule)
	}
	if genericSeen {
		model.Keys = append(model.Keys, GenericRuleKey)
	}

	for _, key := range model.Keys {
		if err := checkRuleOverlap(model.ByKey[key]); err != nil {
			return nil, err
		}
	}
	return model, nil
}

// parseRule validates one BookingRule record. A missing DOW_Restrictions
// sub-element defaults to all days allowed; a missing RestrictionStatus
// defaults to Open.
func parseRule(rec *ratemsg.Element, key string) (BookingRule, error) {
	rule := BookingRule{Code: key, Status: StatusOpen}

	var err error
	rule.Start, rule.End, err = parseDateRange(rec, "invalid BookingRule")
	if err != nil {
		return rule, err
	}

	bounds, err := parseLengthsOfStay(rec, "invalid BookingRule", true)
	if err != nil {
		return rule, err
	}
	rule.MinLOS, rule.MaxLOS = bounds.minLOS, bounds.maxLOS
	rule.FwdMinStay, rule.FwdMaxStay = bounds.fwdMin, bounds.fwdMax

	rule.ArrivalDOW, rule.DepartureDOW, err = parseDOWRestrictions(rec, "invalid BookingRule")
	if err != nil {
		return rule, err
	}

	statuses := rec.ChildrenNamed("RestrictionStatus")
	if len(statuses) > 1 {
		return rule, schemaErrorf("invalid BookingRule: more than one RestrictionStatus elements")
	}
	if len(statuses) == 1 {
		st := statuses[0]
		if st.AttrValue("Restriction") != "Master" {
			return rule, schemaErrorf("invalid BookingRule: invalid or missing Restriction attribute")
		}
		switch status := RuleStatus(st.AttrValue("Status")); status {
		case StatusOpen, StatusClose:
			rule.Status = status
		default:
			return rule, schemaErrorf("invalid BookingRule: invalid or missing Status attribute")
		}
	}
	return rule, nil
}

// checkRuleOverlap rejects any two same-key rules with intersecting
// inclusive intervals.
func checkRuleOverlap(rules []BookingRule) error {
	for i := range rules {
		for j := i + 1; j < len(rules); j++ {
			if datetime.Overlaps(rules[i].Start, rules[i].End, rules[j].Start, rules[j].End) {
				return schemaErrorf("invalid BookingRule: overlap detected")
			}
		}
	}
	return nil
}
