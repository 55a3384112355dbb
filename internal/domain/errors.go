package domain

import (
	"errors"
	"fmt"
)

// ErrBenefitsNotFound is returned by a BenefitsProvider when a member has no
// benefits data at all. Callers translate it into a MissingBenefitsError;
// unlike sparse fields inside benefits data, it is never silently defaulted.
var ErrBenefitsNotFound = errors.New("benefits not found")

// InvalidStateError signals an attempt to adjudicate a claim that is not in
// an adjudicable status. This is a programming error in the caller.
type InvalidStateError struct {
	ClaimID string
	Status  ClaimStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("claim %s is not adjudicable in status %s", e.ClaimID, e.Status)
}

// MissingBenefitsError signals that a claim's member has no resolvable
// benefits data. Fatal to the adjudication attempt.
type MissingBenefitsError struct {
	MemberID string
	Err      error
}

func (e *MissingBenefitsError) Error() string {
	return fmt.Sprintf("member %s has no benefits data", e.MemberID)
}

func (e *MissingBenefitsError) Unwrap() error { return e.Err }

// MalformedRuleConfigError signals that a fraud rule's configuration payload
// is missing required fields for its declared type. Raised at rule load time,
// not during per-claim evaluation.
type MalformedRuleConfigError struct {
	RuleID string
	Type   RuleType
	Reason string
}

func (e *MalformedRuleConfigError) Error() string {
	return fmt.Sprintf("rule %s (%s): malformed configuration: %s", e.RuleID, e.Type, e.Reason)
}

// DataProviderError wraps a failed history or benefits lookup.
type DataProviderError struct {
	Op  string
	Err error
}

func (e *DataProviderError) Error() string {
	return fmt.Sprintf("data provider: %s: %v", e.Op, e.Err)
}

func (e *DataProviderError) Unwrap() error { return e.Err }
