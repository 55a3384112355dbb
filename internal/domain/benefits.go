package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// RawBenefits is the unnormalized benefit configuration for a member, as
// stored by the plan administration system. The shape is deliberately loose;
// the benefits resolver fills any missing field with a documented default.
type RawBenefits map[string]any

// ServiceClass is the coarse copay category of a service code.
type ServiceClass string

const (
	ServicePrimaryCare   ServiceClass = "PRIMARY_CARE"
	ServiceSpecialist    ServiceClass = "SPECIALIST"
	ServiceEmergencyRoom ServiceClass = "EMERGENCY_ROOM"
	ServiceUrgentCare    ServiceClass = "URGENT_CARE"
)

// DeductibleState tracks a member's deductible totals and depleting balances.
// RemainingIndividual is mutated while adjudicating a single claim; it must
// only be threaded through item processing sequentially.
type DeductibleState struct {
	Individual          decimal.Decimal `json:"individual"`
	Family              decimal.Decimal `json:"family"`
	RemainingIndividual decimal.Decimal `json:"remainingIndividual"`
	RemainingFamily     decimal.Decimal `json:"remainingFamily"`
}

// CoinsuranceRates holds the member's share of remaining cost after
// deductible and copay, by network status. Expressed as fractions (0.20).
type CoinsuranceRates struct {
	InNetwork    decimal.Decimal `json:"inNetwork"`
	OutOfNetwork decimal.Decimal `json:"outOfNetwork"`
}

// BenefitsCoverage is the normalized view of a member's plan produced by the
// benefits resolver. Derived, never persisted.
type BenefitsCoverage struct {
	Deductible            DeductibleState                  `json:"deductible"`
	Coinsurance           CoinsuranceRates                 `json:"coinsurance"`
	Copays                map[ServiceClass]decimal.Decimal `json:"copays"`
	PreventiveCareCovered bool                             `json:"preventiveCareCovered"`
	ExcludedServices      map[string]bool                  `json:"excludedServices"`
}

// BenefitsProvider supplies raw benefit configuration for a member.
// A member with no benefits data yields ErrBenefitsNotFound.
type BenefitsProvider interface {
	GetBenefits(ctx context.Context, memberID string) (RawBenefits, error)
}
