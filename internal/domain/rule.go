package domain

import "time"

// RuleType identifies the detection algorithm a fraud rule configures.
type RuleType string

const (
	RuleTypeFrequency     RuleType = "FREQUENCY"
	RuleTypeCompatibility RuleType = "COMPATIBILITY"
	RuleTypeUpcoding      RuleType = "UPCODING"
	RuleTypeExpression    RuleType = "EXPRESSION"
)

// RuleSeverity is carried onto alerts produced by the rule.
type RuleSeverity string

const (
	SeverityLow      RuleSeverity = "LOW"
	SeverityMedium   RuleSeverity = "MEDIUM"
	SeverityHigh     RuleSeverity = "HIGH"
	SeverityCritical RuleSeverity = "CRITICAL"
)

// RuleStatus controls whether a rule participates in evaluation.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "ACTIVE"
	RuleStatusInactive RuleStatus = "INACTIVE"
	RuleStatusTesting  RuleStatus = "TESTING"
)

// SystemInsurerID scopes a rule to all insurers.
const SystemInsurerID = "*"

// FraudRule is an administrator-managed rule configuration. The Configuration
// payload shape depends on Type and is decoded into a typed variant at load
// time by the fraud engine; the engine treats rules as read-only.
type FraudRule struct {
	ID          string `json:"id"`
	InsurerID   string `json:"insurerId"` // SystemInsurerID for system-wide rules
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Type     RuleType     `json:"type"`
	Severity RuleSeverity `json:"severity"`
	Status   RuleStatus   `json:"status"`

	Configuration map[string]any `json:"configuration"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// AlertStatus is the review state of a fraud alert. Alerts are created NEW by
// the engine and moved through the remaining states by a human reviewer.
type AlertStatus string

const (
	AlertStatusNew            AlertStatus = "NEW"
	AlertStatusUnderReview    AlertStatus = "UNDER_REVIEW"
	AlertStatusConfirmedFraud AlertStatus = "CONFIRMED_FRAUD"
	AlertStatusFalsePositive  AlertStatus = "FALSE_POSITIVE"
	AlertStatusResolved       AlertStatus = "RESOLVED"
)

// ClaimFraudAlert is the output of evaluating one triggered rule against one
// claim. AdditionalData carries rule-specific evidence for downstream review.
type ClaimFraudAlert struct {
	ID      string `json:"id"`
	ClaimID string `json:"claimId"`
	RuleID  string `json:"ruleId"`

	Severity        RuleSeverity `json:"severity"`
	Status          AlertStatus  `json:"status"`
	Resolution      string       `json:"resolution,omitempty"`
	Explanation     string       `json:"explanation"`
	ConfidenceScore int          `json:"confidenceScore"` // 0-100

	AdditionalData map[string]any `json:"additionalData,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
