package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	ClaimStatusSubmitted         ClaimStatus = "SUBMITTED"
	ClaimStatusPending           ClaimStatus = "PENDING"
	ClaimStatusInReview          ClaimStatus = "IN_REVIEW"
	ClaimStatusAppealed          ClaimStatus = "APPEALED"
	ClaimStatusApproved          ClaimStatus = "APPROVED"
	ClaimStatusPartiallyApproved ClaimStatus = "PARTIALLY_APPROVED"
	ClaimStatusDenied            ClaimStatus = "DENIED"
	ClaimStatusPaid              ClaimStatus = "PAID"
	ClaimStatusVoid              ClaimStatus = "VOID"
)

// Adjudicable reports whether a claim in this status may be adjudicated.
func (s ClaimStatus) Adjudicable() bool {
	switch s {
	case ClaimStatusSubmitted, ClaimStatusPending, ClaimStatusInReview, ClaimStatusAppealed:
		return true
	}
	return false
}

// Terminal reports whether the status is final.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimStatusPaid || s == ClaimStatusVoid
}

// Claim is the aggregate root for a submitted insurance claim.
// Claim-level monetary totals are the sum of the item-level results.
type Claim struct {
	ID         string `json:"id"`
	MemberID   string `json:"memberId"`
	ProviderID string `json:"providerId"`
	InsurerID  string `json:"insurerId"`

	// Provider specialty, used by upcoding rule scoping
	ProviderSpecialty string `json:"providerSpecialty,omitempty"`

	Items []ClaimItem `json:"items"`

	// Monetary totals
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	ApprovedAmount       decimal.Decimal `json:"approvedAmount"`
	PaidAmount           decimal.Decimal `json:"paidAmount"`
	MemberResponsibility decimal.Decimal `json:"memberResponsibility"`

	Status       ClaimStatus `json:"status"`
	DenialReason string      `json:"denialReason,omitempty"`

	IsOutOfNetwork bool `json:"isOutOfNetwork"`
	IsEmergency    bool `json:"isEmergency"`

	DiagnosisCodes []string `json:"diagnosisCodes,omitempty"`

	SubmittedAt time.Time `json:"submittedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ServiceCodes returns the set of service codes billed on the claim.
func (c *Claim) ServiceCodes() map[string]bool {
	codes := make(map[string]bool, len(c.Items))
	for i := range c.Items {
		codes[c.Items[i].ServiceCode] = true
	}
	return codes
}

// HasServiceCode reports whether any line item bills the given code.
func (c *Claim) HasServiceCode(code string) bool {
	for i := range c.Items {
		if c.Items[i].ServiceCode == code {
			return true
		}
	}
	return false
}

// ItemStatus is the adjudication state of a single line item.
type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "PENDING"
	ItemStatusApproved ItemStatus = "APPROVED"
	ItemStatusDenied   ItemStatus = "DENIED"
	ItemStatusAdjusted ItemStatus = "ADJUSTED"
)

// ClaimItem is one billed service line. TotalPrice is supplied by the caller
// (quantity x unit price) and is never recomputed here.
type ClaimItem struct {
	ID          string          `json:"id"`
	ClaimID     string          `json:"claimId"`
	ServiceCode string          `json:"serviceCode"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`

	ApprovedAmount       decimal.Decimal `json:"approvedAmount"`
	PaidAmount           decimal.Decimal `json:"paidAmount"`
	MemberResponsibility decimal.Decimal `json:"memberResponsibility"`

	Status       ItemStatus `json:"status"`
	DenialReason string     `json:"denialReason,omitempty"`

	IsExcludedService bool `json:"isExcludedService"`
	IsPreventiveCare  bool `json:"isPreventiveCare"`
}

// AdjustmentType classifies a monetary deduction applied during adjudication.
type AdjustmentType string

const (
	AdjustmentDeductible  AdjustmentType = "DEDUCTIBLE"
	AdjustmentCopay       AdjustmentType = "COPAY"
	AdjustmentCoinsurance AdjustmentType = "COINSURANCE"
	AdjustmentNonCovered  AdjustmentType = "NON_COVERED"
)

// ClaimAdjustment is an immutable audit record of one deduction applied to one
// item. Created only by the adjudication engine, append-only.
type ClaimAdjustment struct {
	ID             string          `json:"id"`
	ClaimID        string          `json:"claimId"`
	ItemID         string          `json:"itemId"`
	AdjustmentType AdjustmentType  `json:"adjustmentType"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	AdjustmentDate time.Time       `json:"adjustmentDate"`
}
