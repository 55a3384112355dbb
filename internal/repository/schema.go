package repository

// Schema definitions for Harrier's claim store.
// Compatible with both SQLite and PostgreSQL. Monetary amounts are stored as
// TEXT decimal strings so no precision is lost crossing the database boundary.

const schemaClaims = `
CREATE TABLE IF NOT EXISTS claims (
    id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL,
    provider_id TEXT NOT NULL,
    insurer_id TEXT NOT NULL,
    provider_specialty TEXT,
    total_amount TEXT NOT NULL,
    approved_amount TEXT NOT NULL,
    paid_amount TEXT NOT NULL,
    member_responsibility TEXT NOT NULL,
    status TEXT NOT NULL,
    denial_reason TEXT,
    is_out_of_network INTEGER NOT NULL DEFAULT 0,
    is_emergency INTEGER NOT NULL DEFAULT 0,
    diagnosis_codes TEXT,
    submitted_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_member ON claims(member_id, submitted_at);
CREATE INDEX IF NOT EXISTS idx_claims_provider ON claims(provider_id, submitted_at);
CREATE INDEX IF NOT EXISTS idx_claims_insurer ON claims(insurer_id);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
`

// position preserves the caller-supplied item order, which adjudication
// depends on for deductible consumption.
const schemaClaimItems = `
CREATE TABLE IF NOT EXISTS claim_items (
    id TEXT PRIMARY KEY,
    claim_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    service_code TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    unit_price TEXT NOT NULL,
    total_price TEXT NOT NULL,
    approved_amount TEXT NOT NULL,
    paid_amount TEXT NOT NULL,
    member_responsibility TEXT NOT NULL,
    status TEXT NOT NULL,
    denial_reason TEXT,
    is_excluded_service INTEGER NOT NULL DEFAULT 0,
    is_preventive_care INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_claim_items_claim ON claim_items(claim_id, position);
CREATE INDEX IF NOT EXISTS idx_claim_items_code ON claim_items(service_code);
`

const schemaClaimAdjustments = `
CREATE TABLE IF NOT EXISTS claim_adjustments (
    id TEXT PRIMARY KEY,
    claim_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    adjustment_type TEXT NOT NULL,
    amount TEXT NOT NULL,
    reason TEXT NOT NULL,
    adjustment_date TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claim_adjustments_claim ON claim_adjustments(claim_id);
`

const schemaFraudRules = `
CREATE TABLE IF NOT EXISTS fraud_rules (
    id TEXT PRIMARY KEY,
    insurer_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    type TEXT NOT NULL,
    severity TEXT NOT NULL,
    status TEXT NOT NULL,
    configuration TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fraud_rules_insurer ON fraud_rules(insurer_id);
CREATE INDEX IF NOT EXISTS idx_fraud_rules_status ON fraud_rules(insurer_id, status);
`

const schemaFraudAlerts = `
CREATE TABLE IF NOT EXISTS fraud_alerts (
    id TEXT PRIMARY KEY,
    claim_id TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    severity TEXT NOT NULL,
    status TEXT NOT NULL,
    resolution TEXT,
    explanation TEXT NOT NULL,
    confidence_score INTEGER NOT NULL,
    additional_data TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fraud_alerts_claim ON fraud_alerts(claim_id);
CREATE INDEX IF NOT EXISTS idx_fraud_alerts_status ON fraud_alerts(status);
`

const schemaMemberBenefits = `
CREATE TABLE IF NOT EXISTS member_benefits (
    member_id TEXT PRIMARY KEY,
    benefits TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaClaims,
		schemaClaimItems,
		schemaClaimAdjustments,
		schemaFraudRules,
		schemaFraudAlerts,
		schemaMemberBenefits,
	}
}
