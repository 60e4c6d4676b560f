// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ukallavi/Secura-sub000/internal/domain"
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

// GetBaseline retrieves a user baseline with tenant isolation.
func (r *SQLRepository) GetBaseline(ctx context.Context, tenantID string, userID string) (*domain.UserBaseline, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT tenant_id, user_id, first_seen_at, last_seen_at,
			   known_ips, known_device_classes, known_browsers, known_locations,
			   day_histogram, hour_histogram
		FROM baselines
		WHERE tenant_id = ? AND user_id = ?
	`

	var b domain.UserBaseline
	var ips, devices, browsers, locations, days, hours string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, userID).Scan(
		&b.TenantID, &b.UserID, &b.FirstSeenAt, &b.LastSeenAt,
		&ips, &devices, &browsers, &locations,
		&days, &hours,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Sets and histograms live as JSON only at this edge.
	cols := []struct {
		raw string
		dst any
	}{
		{ips, &b.KnownIPs},
		{devices, &b.KnownDeviceClasses},
		{browsers, &b.KnownBrowsers},
		{locations, &b.KnownLocations},
		{days, &b.DayHistogram},
		{hours, &b.HourHistogram},
	}
	for _, c := range cols {
		if err := json.Unmarshal([]byte(c.raw), c.dst); err != nil {
			return nil, fmt.Errorf("failed to parse baseline for %s: %w", userID, err)
		}
	}

	return &b, nil
}

// SaveBaseline upserts a user baseline keyed by (tenant, user).
func (r *SQLRepository) SaveBaseline(ctx context.Context, tenantID string, baseline *domain.UserBaseline) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if baseline == nil || baseline.UserID == "" {
		return fmt.Errorf("%w: baseline with userID is required", ErrInvalidInput)
	}

	ips, _ := json.Marshal(baseline.KnownIPs)
	devices, _ := json.Marshal(baseline.KnownDeviceClasses)
	browsers, _ := json.Marshal(baseline.KnownBrowsers)
	locations, _ := json.Marshal(baseline.KnownLocations)
	days, _ := json.Marshal(baseline.DayHistogram)
	hours, _ := json.Marshal(baseline.HourHistogram)

	query := `
		INSERT INTO baselines (
			tenant_id, user_id, first_seen_at, last_seen_at,
			known_ips, known_device_classes, known_browsers, known_locations,
			day_histogram, hour_histogram
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id) DO UPDATE SET
			first_seen_at = excluded.first_seen_at,
			last_seen_at = excluded.last_seen_at,
			known_ips = excluded.known_ips,
			known_device_classes = excluded.known_device_classes,
			known_browsers = excluded.known_browsers,
			known_locations = excluded.known_locations,
			day_histogram = excluded.day_histogram,
			hour_histogram = excluded.hour_histogram
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tenantID, baseline.UserID, baseline.FirstSeenAt, baseline.LastSeenAt,
		string(ips), string(devices), string(browsers), string(locations),
		string(days), string(hours),
	)
	return err
}

// SaveSuspiciousActivity stores a suspicious-activity record.
func (r *SQLRepository) SaveSuspiciousActivity(ctx context.Context, tenantID string, rec *domain.SuspiciousActivityRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	details, _ := json.Marshal(rec.Details)

	query := `
		INSERT INTO suspicious_activities (
			id, tenant_id, user_id, activity_type, risk_level,
			ip, user_agent, location, details, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, tenantID, rec.UserID, string(rec.ActivityType), rec.RiskLevel.String(),
		rec.IP, rec.UserAgent, rec.Location, string(details), string(rec.Status), rec.CreatedAt,
	)
	return err
}

// GetSuspiciousActivity retrieves a suspicious-activity record by ID.
func (r *SQLRepository) GetSuspiciousActivity(ctx context.Context, tenantID string, id string) (*domain.SuspiciousActivityRecord, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, user_id, activity_type, risk_level,
			   ip, user_agent, location, details, status,
			   reviewed_at, reviewed_by, review_notes, created_at
		FROM suspicious_activities
		WHERE tenant_id = ? AND id = ?
	`

	rec, err := r.scanSuspicious(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanSuspicious(row rowScanner) (*domain.SuspiciousActivityRecord, error) {
	var rec domain.SuspiciousActivityRecord
	var activityType, riskLevel, status, details string
	var reviewedAt sql.NullTime
	var reviewedBy, reviewNotes sql.NullString

	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.UserID, &activityType, &riskLevel,
		&rec.IP, &rec.UserAgent, &rec.Location, &details, &status,
		&reviewedAt, &reviewedBy, &reviewNotes, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ActivityType = domain.ActivityType(activityType)
	rec.Status = domain.ReviewStatus(status)
	if rec.RiskLevel, err = domain.ParseRiskLevel(riskLevel); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(details), &rec.Details); err != nil {
		return nil, fmt.Errorf("failed to parse suspicious-activity details for %s: %w", rec.ID, err)
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		rec.ReviewedAt = &t
	}
	rec.ReviewedBy = reviewedBy.String
	rec.ReviewNotes = reviewNotes.String

	return &rec, nil
}

// ListSuspiciousActivities returns a page of records ordered by createdAt
// descending, plus the total count matching the filter. Filters are
// conjunctive.
func (r *SQLRepository) ListSuspiciousActivities(ctx context.Context, tenantID string, filter domain.SuspiciousActivityFilter, page, pageSize int) ([]*domain.SuspiciousActivityRecord, int64, error) {
	if tenantID == "" {
		return nil, 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	where := "WHERE tenant_id = ?"
	args := []any{tenantID}

	if filter.UserID != "" {
		where += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.RiskLevel != nil {
		where += " AND risk_level = ?"
		args = append(args, filter.RiskLevel.String())
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM suspicious_activities " + where
	if err := r.db.QueryRowContext(ctx, r.rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, tenant_id, user_id, activity_type, risk_level,
			   ip, user_agent, location, details, status,
			   reviewed_at, reviewed_by, review_notes, created_at
		FROM suspicious_activities ` + where + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*domain.SuspiciousActivityRecord
	for rows.Next() {
		rec, err := r.scanSuspicious(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}

	return records, total, rows.Err()
}

// CountSuspiciousActivities counts records for a user created at or after
// the given instant.
func (r *SQLRepository) CountSuspiciousActivities(ctx context.Context, tenantID string, userID string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM suspicious_activities
		WHERE tenant_id = ? AND user_id = ? AND created_at >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, userID, since).Scan(&count)
	return count, err
}

// UpdateSuspiciousActivityReview stamps the review fields on an existing
// record. Returns ErrNotFound if the record does not exist.
func (r *SQLRepository) UpdateSuspiciousActivityReview(ctx context.Context, tenantID string, rec *domain.SuspiciousActivityRecord) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE suspicious_activities
		SET status = ?, reviewed_at = ?, reviewed_by = ?, review_notes = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		string(rec.Status), rec.ReviewedAt, rec.ReviewedBy, rec.ReviewNotes,
		tenantID, rec.ID,
	)
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

// SaveMonitoringState upserts the monitoring record for a user. Enabling
// again overwrites in place; durations never stack.
func (r *SQLRepository) SaveMonitoringState(ctx context.Context, tenantID string, state *domain.MonitoringState) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO monitoring_states (
			tenant_id, user_id, level, reason, enabled_at, expires_at,
			enabled_by, disabled_at, disabled_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id) DO UPDATE SET
			level = excluded.level,
			reason = excluded.reason,
			enabled_at = excluded.enabled_at,
			expires_at = excluded.expires_at,
			enabled_by = excluded.enabled_by,
			disabled_at = excluded.disabled_at,
			disabled_by = excluded.disabled_by
	`

	var disabledAt any
	if state.DisabledAt != nil {
		disabledAt = *state.DisabledAt
	}

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tenantID, state.UserID, string(state.Level), state.Reason,
		state.EnabledAt, state.ExpiresAt, state.EnabledBy,
		disabledAt, state.DisabledBy,
	)
	return err
}

// GetMonitoringState retrieves the monitoring record for a user, active or
// not. Returns ErrNotFound if the user has never been monitored.
func (r *SQLRepository) GetMonitoringState(ctx context.Context, tenantID string, userID string) (*domain.MonitoringState, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT tenant_id, user_id, level, reason, enabled_at, expires_at,
			   enabled_by, disabled_at, disabled_by
		FROM monitoring_states
		WHERE tenant_id = ? AND user_id = ?
	`

	var m domain.MonitoringState
	var level string
	var disabledAt sql.NullTime
	var disabledBy sql.NullString

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, userID).Scan(
		&m.TenantID, &m.UserID, &level, &m.Reason, &m.EnabledAt, &m.ExpiresAt,
		&m.EnabledBy, &disabledAt, &disabledBy,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	m.Level = domain.MonitoringLevel(level)
	if disabledAt.Valid {
		t := disabledAt.Time
		m.DisabledAt = &t
	}
	m.DisabledBy = disabledBy.String

	return &m, nil
}

// DeleteExpiredMonitoringStates reclaims storage for records whose expiry
// passed before the given instant. Correctness never depends on this sweep;
// readers already treat expired records as inactive.
func (r *SQLRepository) DeleteExpiredMonitoringStates(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM monitoring_states WHERE expires_at < ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SaveLoginEvent stores a login attempt.
func (r *SQLRepository) SaveLoginEvent(ctx context.Context, tenantID string, event *domain.LoginEvent) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	success := 0
	if event.Success {
		success = 1
	}

	query := `
		INSERT INTO login_events (
			id, tenant_id, user_id, ip, user_agent, success, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		event.ID, tenantID, event.UserID, event.IP, event.UserAgent,
		success, event.Timestamp,
	)
	return err
}

// CountFailedLogins counts failed attempts for a user at or after the given
// instant.
func (r *SQLRepository) CountFailedLogins(ctx context.Context, tenantID string, userID string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM login_events
		WHERE tenant_id = ? AND user_id = ? AND success = 0 AND timestamp >= ?
	`

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, userID, since).Scan(&count)
	return count, err
}

// SaveEscalationRule stores an escalation rule with tenant isolation.
func (r *SQLRepository) SaveEscalationRule(ctx context.Context, tenantID string, rule *domain.EscalationRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO escalation_rules (
			id, tenant_id, name, description, version, expression, factor, min_level, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			factor = excluded.factor,
			min_level = excluded.min_level,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, string(rule.Factor), rule.MinLevel.String(), enabled,
		now, now,
	)
	return err
}

// GetEscalationRule retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetEscalationRule(ctx context.Context, tenantID string, ruleID string) (*domain.EscalationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, factor, min_level, enabled, created_at, updated_at
		FROM escalation_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	rule, err := r.scanEscalationRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

func (r *SQLRepository) scanEscalationRule(row rowScanner) (*domain.EscalationRule, error) {
	var rule domain.EscalationRule
	var factor, minLevel string
	var enabled int

	err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &factor, &minLevel, &enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Factor = domain.RiskFactor(factor)
	rule.Enabled = enabled == 1
	if rule.MinLevel, err = domain.ParseRiskLevel(minLevel); err != nil {
		return nil, err
	}

	return &rule, nil
}

// ListEscalationRules retrieves all enabled rules for a tenant.
func (r *SQLRepository) ListEscalationRules(ctx context.Context, tenantID string) ([]*domain.EscalationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, factor, min_level, enabled, created_at, updated_at
		FROM escalation_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.EscalationRule
	for rows.Next() {
		rule, err := r.scanEscalationRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// SaveAuditEntry stores one audit record.
func (r *SQLRepository) SaveAuditEntry(ctx context.Context, tenantID string, entry *domain.AuditEntry) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	details, _ := json.Marshal(entry.Details)

	query := `
		INSERT INTO audit_log (
			id, tenant_id, actor_id, user_id, action, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		entry.ID, tenantID, entry.ActorID, entry.UserID, entry.Action,
		string(details), entry.CreatedAt,
	)
	return err
}

// ListAuditEntries retrieves the most recent audit entries, optionally
// narrowed to one user.
func (r *SQLRepository) ListAuditEntries(ctx context.Context, tenantID string, userID string, limit int) ([]*domain.AuditEntry, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	where := "WHERE tenant_id = ?"
	args := []any{tenantID}
	if userID != "" {
		where += " AND user_id = ?"
		args = append(args, userID)
	}

	query := `
		SELECT id, tenant_id, actor_id, user_id, action, details, created_at
		FROM audit_log ` + where + `
		ORDER BY created_at DESC
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var details string

		if err := rows.Scan(
			&entry.ID, &entry.TenantID, &entry.ActorID, &entry.UserID,
			&entry.Action, &details, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}

		if details != "" {
			json.Unmarshal([]byte(details), &entry.Details)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
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
