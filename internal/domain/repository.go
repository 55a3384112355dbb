// Package domain defines the core types and interfaces for Harrier.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence. It is the boundary
// to the claims workflow layer: the engines read claims, rules, and benefits
// through it and hand back adjudication results and alerts.
type Repository interface {
	// Claim operations. GetClaim returns the claim with its item graph.
	SaveClaim(ctx context.Context, claim *Claim) error
	GetClaim(ctx context.Context, claimID string) (*Claim, error)
	ClaimsByMember(ctx context.Context, memberID string, since time.Time) ([]*Claim, error)
	ClaimsByProvider(ctx context.Context, providerID string, since time.Time) ([]*Claim, error)

	// SaveAdjudication persists the updated claim, its items, and the emitted
	// adjustments as a single transaction. A reader never observes a
	// partially-adjudicated claim.
	SaveAdjudication(ctx context.Context, claim *Claim, adjustments []ClaimAdjustment) error
	AdjustmentsByClaim(ctx context.Context, claimID string) ([]ClaimAdjustment, error)

	// Fraud rule operations. ListFraudRules returns rules scoped to the
	// insurer plus system-wide rules.
	SaveFraudRule(ctx context.Context, rule *FraudRule) error
	GetFraudRule(ctx context.Context, ruleID string) (*FraudRule, error)
	ListFraudRules(ctx context.Context, insurerID string) ([]*FraudRule, error)

	// Alert sink and reviewer workflow.
	SaveAlert(ctx context.Context, alert *ClaimFraudAlert) error
	AlertsByClaim(ctx context.Context, claimID string) ([]*ClaimFraudAlert, error)
	UpdateAlertStatus(ctx context.Context, alertID string, status AlertStatus, resolution string) error

	// Member benefits payloads.
	SaveMemberBenefits(ctx context.Context, memberID string, raw RawBenefits) error
	GetMemberBenefits(ctx context.Context, memberID string) (RawBenefits, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `yaml:"postgresHost"`
	PostgresPort     int    `yaml:"postgresPort"`
	PostgresUser     string `yaml:"postgresUser"`
	PostgresPassword string `yaml:"postgresPassword"`
	PostgresDB       string `yaml:"postgresDb"`
	PostgresSSLMode  string `yaml:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}
