// Package postgres implements the discovery persistence collaborator over
// sqlx/pgx, adapted from the teacher's regime repository
// (internal/persistence/postgres/regime_repo.go): same upsert-with-JSON-
// sub-objects shape, same per-call context timeout, same ON CONFLICT idiom,
// retargeted from regime snapshots onto discovery rows.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/squeezescout/internal/persistence"
)

type discoveryRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDiscoveryRepo creates a Postgres-backed DiscoveryRepo.
func NewDiscoveryRepo(db *sqlx.DB, timeout time.Duration) persistence.DiscoveryRepo {
	return &discoveryRepo{db: db, timeout: timeout}
}

// InsertDiscovery upserts one row keyed by id (candidates and audit
// summaries share the same table, distinguished by the id prefix per §6).
func (r *discoveryRepo) InsertDiscovery(ctx context.Context, row persistence.DiscoveryRow) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	featuresJSON, err := json.Marshal(row.FeaturesJSON)
	if err != nil {
		return fmt.Errorf("marshal features_json: %w", err)
	}
	auditJSON, err := json.Marshal(row.AuditJSON)
	if err != nil {
		return fmt.Errorf("marshal audit_json: %w", err)
	}

	query := `
		INSERT INTO discoveries
		(id, symbol, price, score, preset, action, features_json, audit_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			price = EXCLUDED.price,
			score = EXCLUDED.score,
			preset = EXCLUDED.preset,
			action = EXCLUDED.action,
			features_json = EXCLUDED.features_json,
			audit_json = EXCLUDED.audit_json`

	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.Symbol, row.Price, row.Score, row.Preset, row.Action, featuresJSON, auditJSON)
	if err != nil {
		return fmt.Errorf("upsert discovery row %s: %w", row.ID, err)
	}
	return nil
}
