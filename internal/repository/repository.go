// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openclaims/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveClaim stores a claim and its line items, replacing any existing items.
func (r *SQLRepository) SaveClaim(ctx context.Context, claim *domain.Claim) error {
	if claim.ID == "" {
		return fmt.Errorf("%w: claim ID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.upsertClaim(ctx, tx, claim); err != nil {
		return err
	}

	deleteItems := `DELETE FROM claim_items WHERE claim_id = ?`
	if _, err := tx.ExecContext(ctx, r.rebind(deleteItems), claim.ID); err != nil {
		return err
	}
	for i := range claim.Items {
		if err := r.insertItem(ctx, tx, claim.ID, i, &claim.Items[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetClaim retrieves a claim with its item graph.
func (r *SQLRepository) GetClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	query := claimColumns + ` FROM claims WHERE id = ?`

	claims, err := r.queryClaims(ctx, query, claimID)
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, ErrNotFound
	}
	if err := r.attachItems(ctx, claims); err != nil {
		return nil, err
	}
	return claims[0], nil
}

// ClaimsByMember retrieves a member's claims submitted at or after since,
// newest first, items included.
func (r *SQLRepository) ClaimsByMember(ctx context.Context, memberID string, since time.Time) ([]*domain.Claim, error) {
	if memberID == "" {
		return nil, fmt.Errorf("%w: memberID is required", ErrInvalidInput)
	}

	query := claimColumns + `
		FROM claims
		WHERE member_id = ? AND submitted_at >= ?
		ORDER BY submitted_at DESC
	`

	claims, err := r.queryClaims(ctx, query, memberID, since)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ClaimsByProvider retrieves a provider's claims submitted at or after since,
// newest first, items included.
func (r *SQLRepository) ClaimsByProvider(ctx context.Context, providerID string, since time.Time) ([]*domain.Claim, error) {
	if providerID == "" {
		return nil, fmt.Errorf("%w: providerID is required", ErrInvalidInput)
	}

	query := claimColumns + `
		FROM claims
		WHERE provider_id = ? AND submitted_at >= ?
		ORDER BY submitted_at DESC
	`

	claims, err := r.queryClaims(ctx, query, providerID, since)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// SaveAdjudication persists an adjudicated claim, its items, and the emitted
// adjustments in one transaction.
func (r *SQLRepository) SaveAdjudication(ctx context.Context, claim *domain.Claim, adjustments []domain.ClaimAdjustment) error {
	if claim.ID == "" {
		return fmt.Errorf("%w: claim ID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.upsertClaim(ctx, tx, claim); err != nil {
		return err
	}

	deleteItems := `DELETE FROM claim_items WHERE claim_id = ?`
	if _, err := tx.ExecContext(ctx, r.rebind(deleteItems), claim.ID); err != nil {
		return err
	}
	for i := range claim.Items {
		if err := r.insertItem(ctx, tx, claim.ID, i, &claim.Items[i]); err != nil {
			return err
		}
	}

	insertAdj := `
		INSERT INTO claim_adjustments (
			id, claim_id, item_id, adjustment_type, amount, reason, adjustment_date
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i := range adjustments {
		adj := &adjustments[i]
		if _, err := tx.ExecContext(ctx, r.rebind(insertAdj),
			adj.ID, adj.ClaimID, adj.ItemID, adj.AdjustmentType,
			adj.Amount.String(), adj.Reason, adj.AdjustmentDate,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AdjustmentsByClaim retrieves the adjustment audit trail for a claim.
func (r *SQLRepository) AdjustmentsByClaim(ctx context.Context, claimID string) ([]domain.ClaimAdjustment, error) {
	query := `
		SELECT id, claim_id, item_id, adjustment_type, amount, reason, adjustment_date
		FROM claim_adjustments
		WHERE claim_id = ?
		ORDER BY adjustment_date, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var adjustments []domain.ClaimAdjustment
	for rows.Next() {
		var adj domain.ClaimAdjustment
		if err := rows.Scan(
			&adj.ID, &adj.ClaimID, &adj.ItemID, &adj.AdjustmentType,
			&adj.Amount, &adj.Reason, &adj.AdjustmentDate,
		); err != nil {
			return nil, err
		}
		adjustments = append(adjustments, adj)
	}

	return adjustments, rows.Err()
}

// SaveFraudRule stores or updates a fraud rule.
func (r *SQLRepository) SaveFraudRule(ctx context.Context, rule *domain.FraudRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}
	if rule.InsurerID == "" {
		return fmt.Errorf("%w: insurerID is required", ErrInvalidInput)
	}

	configuration, err := json.Marshal(rule.Configuration)
	if err != nil {
		return fmt.Errorf("failed to encode rule configuration: %w", err)
	}

	now := time.Now().UTC()
	createdAt := rule.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO fraud_rules (
			id, insurer_id, name, description, type, severity, status, configuration, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			insurer_id = excluded.insurer_id,
			name = excluded.name,
			description = excluded.description,
			type = excluded.type,
			severity = excluded.severity,
			status = excluded.status,
			configuration = excluded.configuration,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.InsurerID, rule.Name, rule.Description,
		rule.Type, rule.Severity, rule.Status, string(configuration),
		createdAt, now,
	)
	return err
}

// GetFraudRule retrieves a fraud rule by ID.
func (r *SQLRepository) GetFraudRule(ctx context.Context, ruleID string) (*domain.FraudRule, error) {
	query := `
		SELECT id, insurer_id, name, description, type, severity, status, configuration, created_at, updated_at
		FROM fraud_rules
		WHERE id = ?
	`

	rule, err := scanFraudRule(r.db.QueryRowContext(ctx, r.rebind(query), ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListFraudRules retrieves rules scoped to the insurer plus system-wide rules.
func (r *SQLRepository) ListFraudRules(ctx context.Context, insurerID string) ([]*domain.FraudRule, error) {
	if insurerID == "" {
		return nil, fmt.Errorf("%w: insurerID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, insurer_id, name, description, type, severity, status, configuration, created_at, updated_at
		FROM fraud_rules
		WHERE insurer_id = ? OR insurer_id = ?
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), insurerID, domain.SystemInsurerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.FraudRule
	for rows.Next() {
		rule, err := scanFraudRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// SaveAlert stores a fraud alert.
func (r *SQLRepository) SaveAlert(ctx context.Context, alert *domain.ClaimFraudAlert) error {
	if alert.ID == "" {
		return fmt.Errorf("%w: alert ID is required", ErrInvalidInput)
	}

	additional, err := json.Marshal(alert.AdditionalData)
	if err != nil {
		return fmt.Errorf("failed to encode alert data: %w", err)
	}

	updatedAt := alert.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = alert.CreatedAt
	}

	query := `
		INSERT INTO fraud_alerts (
			id, claim_id, rule_id, severity, status, resolution,
			explanation, confidence_score, additional_data, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		alert.ID, alert.ClaimID, alert.RuleID,
		alert.Severity, alert.Status, alert.Resolution,
		alert.Explanation, alert.ConfidenceScore, string(additional),
		alert.CreatedAt, updatedAt,
	)
	return err
}

// AlertsByClaim retrieves the alerts raised against a claim.
func (r *SQLRepository) AlertsByClaim(ctx context.Context, claimID string) ([]*domain.ClaimFraudAlert, error) {
	query := `
		SELECT id, claim_id, rule_id, severity, status, resolution,
		       explanation, confidence_score, additional_data, created_at, updated_at
		FROM fraud_alerts
		WHERE claim_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.ClaimFraudAlert
	for rows.Next() {
		var alert domain.ClaimFraudAlert
		var additional string
		if err := rows.Scan(
			&alert.ID, &alert.ClaimID, &alert.RuleID,
			&alert.Severity, &alert.Status, &alert.Resolution,
			&alert.Explanation, &alert.ConfidenceScore, &additional,
			&alert.CreatedAt, &alert.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if additional != "" && additional != "null" {
			json.Unmarshal([]byte(additional), &alert.AdditionalData)
		}
		alerts = append(alerts, &alert)
	}

	return alerts, rows.Err()
}

// UpdateAlertStatus moves an alert through the reviewer workflow.
func (r *SQLRepository) UpdateAlertStatus(ctx context.Context, alertID string, status domain.AlertStatus, resolution string) error {
	query := `
		UPDATE fraud_alerts
		SET status = ?, resolution = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, resolution, time.Now().UTC(), alertID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveMemberBenefits stores or replaces a member's raw benefits payload.
func (r *SQLRepository) SaveMemberBenefits(ctx context.Context, memberID string, raw domain.RawBenefits) error {
	if memberID == "" {
		return fmt.Errorf("%w: memberID is required", ErrInvalidInput)
	}

	benefits, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode benefits: %w", err)
	}

	query := `
		INSERT INTO member_benefits (member_id, benefits, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(member_id) DO UPDATE SET
			benefits = excluded.benefits,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query), memberID, string(benefits), time.Now().UTC())
	return err
}

// GetMemberBenefits retrieves a member's raw benefits payload.
// Returns domain.ErrBenefitsNotFound when the member has none.
func (r *SQLRepository) GetMemberBenefits(ctx context.Context, memberID string) (domain.RawBenefits, error) {
	query := `SELECT benefits FROM member_benefits WHERE member_id = ?`

	var benefits string
	err := r.db.QueryRowContext(ctx, r.rebind(query), memberID).Scan(&benefits)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBenefitsNotFound
	}
	if err != nil {
		return nil, err
	}

	var raw domain.RawBenefits
	if err := json.Unmarshal([]byte(benefits), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse benefits for %s: %w", memberID, err)
	}

	return raw, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

const claimColumns = `
	SELECT id, member_id, provider_id, insurer_id, provider_specialty,
	       total_amount, approved_amount, paid_amount, member_responsibility,
	       status, denial_reason, is_out_of_network, is_emergency,
	       diagnosis_codes, submitted_at, created_at, updated_at`

func (r *SQLRepository) upsertClaim(ctx context.Context, tx *sql.Tx, claim *domain.Claim) error {
	diagnoses, err := json.Marshal(claim.DiagnosisCodes)
	if err != nil {
		return fmt.Errorf("failed to encode diagnosis codes: %w", err)
	}

	query := `
		INSERT INTO claims (
			id, member_id, provider_id, insurer_id, provider_specialty,
			total_amount, approved_amount, paid_amount, member_responsibility,
			status, denial_reason, is_out_of_network, is_emergency,
			diagnosis_codes, submitted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			approved_amount = excluded.approved_amount,
			paid_amount = excluded.paid_amount,
			member_responsibility = excluded.member_responsibility,
			status = excluded.status,
			denial_reason = excluded.denial_reason,
			updated_at = excluded.updated_at
	`

	_, err = tx.ExecContext(ctx, r.rebind(query),
		claim.ID, claim.MemberID, claim.ProviderID, claim.InsurerID, claim.ProviderSpecialty,
		claim.TotalAmount.String(), claim.ApprovedAmount.String(),
		claim.PaidAmount.String(), claim.MemberResponsibility.String(),
		claim.Status, claim.DenialReason,
		boolToInt(claim.IsOutOfNetwork), boolToInt(claim.IsEmergency),
		string(diagnoses), claim.SubmittedAt, claim.CreatedAt, claim.UpdatedAt,
	)
	return err
}

func (r *SQLRepository) insertItem(ctx context.Context, tx *sql.Tx, claimID string, position int, item *domain.ClaimItem) error {
	query := `
		INSERT INTO claim_items (
			id, claim_id, position, service_code, quantity,
			unit_price, total_price, approved_amount, paid_amount, member_responsibility,
			status, denial_reason, is_excluded_service, is_preventive_care
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, r.rebind(query),
		item.ID, claimID, position, item.ServiceCode, item.Quantity,
		item.UnitPrice.String(), item.TotalPrice.String(),
		item.ApprovedAmount.String(), item.PaidAmount.String(), item.MemberResponsibility.String(),
		item.Status, item.DenialReason,
		boolToInt(item.IsExcludedService), boolToInt(item.IsPreventiveCare),
	)
	return err
}

func (r *SQLRepository) queryClaims(ctx context.Context, query string, args ...any) ([]*domain.Claim, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*domain.Claim
	for rows.Next() {
		var claim domain.Claim
		var outOfNetwork, emergency int
		var diagnoses string

		if err := rows.Scan(
			&claim.ID, &claim.MemberID, &claim.ProviderID, &claim.InsurerID, &claim.ProviderSpecialty,
			&claim.TotalAmount, &claim.ApprovedAmount, &claim.PaidAmount, &claim.MemberResponsibility,
			&claim.Status, &claim.DenialReason, &outOfNetwork, &emergency,
			&diagnoses, &claim.SubmittedAt, &claim.CreatedAt, &claim.UpdatedAt,
		); err != nil {
			return nil, err
		}

		claim.IsOutOfNetwork = outOfNetwork == 1
		claim.IsEmergency = emergency == 1
		if diagnoses != "" && diagnoses != "null" {
			json.Unmarshal([]byte(diagnoses), &claim.DiagnosisCodes)
		}

		claims = append(claims, &claim)
	}

	return claims, rows.Err()
}

// attachItems loads the line items for a batch of claims in one query,
// preserving the stored item order.
func (r *SQLRepository) attachItems(ctx context.Context, claims []*domain.Claim) error {
	if len(claims) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Claim, len(claims))
	placeholders := make([]string, 0, len(claims))
	args := make([]any, 0, len(claims))
	for _, claim := range claims {
		byID[claim.ID] = claim
		placeholders = append(placeholders, "?")
		args = append(args, claim.ID)
	}

	query := fmt.Sprintf(`
		SELECT id, claim_id, service_code, quantity,
		       unit_price, total_price, approved_amount, paid_amount, member_responsibility,
		       status, denial_reason, is_excluded_service, is_preventive_care
		FROM claim_items
		WHERE claim_id IN (%s)
		ORDER BY claim_id, position
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.ClaimItem
		var excluded, preventive int

		if err := rows.Scan(
			&item.ID, &item.ClaimID, &item.ServiceCode, &item.Quantity,
			&item.UnitPrice, &item.TotalPrice, &item.ApprovedAmount, &item.PaidAmount, &item.MemberResponsibility,
			&item.Status, &item.DenialReason, &excluded, &preventive,
		); err != nil {
			return err
		}

		item.IsExcludedService = excluded == 1
		item.IsPreventiveCare = preventive == 1

		if claim, ok := byID[item.ClaimID]; ok {
			claim.Items = append(claim.Items, item)
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFraudRule(row rowScanner) (*domain.FraudRule, error) {
	var rule domain.FraudRule
	var configuration string

	if err := row.Scan(
		&rule.ID, &rule.InsurerID, &rule.Name, &rule.Description,
		&rule.Type, &rule.Severity, &rule.Status, &configuration,
		&rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(configuration), &rule.Configuration); err != nil {
		return nil, fmt.Errorf("failed to parse configuration for rule %s: %w", rule.ID, err)
	}

	return &rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
