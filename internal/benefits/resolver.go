// Package benefits normalizes raw member benefit configuration into the
// coverage structure consumed by the adjudication engine.
package benefits

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/openclaims/harrier/internal/domain"
)

// Documented defaults applied when a field is absent or malformed. Missing
// benefit data degrades to these rather than failing: adjudication must never
// hard-fail on sparse benefit configuration.
var (
	defaultCoinsuranceIn  = decimal.NewFromFloat(0.20)
	defaultCoinsuranceOut = decimal.NewFromFloat(0.40)

	defaultCopays = map[domain.ServiceClass]decimal.Decimal{
		domain.ServicePrimaryCare:   decimal.NewFromInt(25),
		domain.ServiceSpecialist:    decimal.NewFromInt(50),
		domain.ServiceEmergencyRoom: decimal.NewFromInt(250),
		domain.ServiceUrgentCare:    decimal.NewFromInt(75),
	}
)

// Resolve translates a raw benefits payload into a normalized coverage
// structure. Pure function, no error conditions: any missing or malformed
// field falls back to its default.
func Resolve(raw domain.RawBenefits) domain.BenefitsCoverage {
	coverage := domain.BenefitsCoverage{
		Coinsurance: domain.CoinsuranceRates{
			InNetwork:    defaultCoinsuranceIn,
			OutOfNetwork: defaultCoinsuranceOut,
		},
		Copays:                make(map[domain.ServiceClass]decimal.Decimal, len(defaultCopays)),
		PreventiveCareCovered: true,
		ExcludedServices:      make(map[string]bool),
	}
	for class, amount := range defaultCopays {
		coverage.Copays[class] = amount
	}

	if raw == nil {
		return coverage
	}

	if ded, ok := subMap(raw, "deductible"); ok {
		individual := amountField(ded, "individual", decimal.Zero)
		family := amountField(ded, "family", decimal.Zero)
		coverage.Deductible = domain.DeductibleState{
			Individual:          individual,
			Family:              family,
			RemainingIndividual: amountField(ded, "remainingIndividual", individual),
			RemainingFamily:     amountField(ded, "remainingFamily", family),
		}
	}

	if coins, ok := subMap(raw, "coinsurance"); ok {
		coverage.Coinsurance.InNetwork = amountField(coins, "inNetwork", defaultCoinsuranceIn)
		coverage.Coinsurance.OutOfNetwork = amountField(coins, "outOfNetwork", defaultCoinsuranceOut)
	}

	if copays, ok := subMap(raw, "copays"); ok {
		coverage.Copays[domain.ServicePrimaryCare] = amountField(copays, "primaryCare", defaultCopays[domain.ServicePrimaryCare])
		coverage.Copays[domain.ServiceSpecialist] = amountField(copays, "specialist", defaultCopays[domain.ServiceSpecialist])
		coverage.Copays[domain.ServiceEmergencyRoom] = amountField(copays, "emergencyRoom", defaultCopays[domain.ServiceEmergencyRoom])
		coverage.Copays[domain.ServiceUrgentCare] = amountField(copays, "urgentCare", defaultCopays[domain.ServiceUrgentCare])
	}

	// Preventive care is covered unless explicitly disabled.
	if v, ok := raw["preventiveCare"].(bool); ok {
		coverage.PreventiveCareCovered = v
	}

	if codes, ok := raw["excludedServices"].([]any); ok {
		for _, c := range codes {
			if code, ok := c.(string); ok && code != "" {
				coverage.ExcludedServices[code] = true
			}
		}
	}

	return coverage
}

// subMap extracts a nested object field.
func subMap(raw map[string]any, key string) (map[string]any, bool) {
	m, ok := raw[key].(map[string]any)
	return m, ok
}

// amountField coerces a numeric field to a decimal, tolerating the value
// shapes JSON decoding produces.
func amountField(m map[string]any, key string, fallback decimal.Decimal) decimal.Decimal {
	switch v := m[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}
