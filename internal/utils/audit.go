package utils

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogger writes admin-action annotations to the audit_log table.
// Every override an admin.* RPC performs (halt, resume, set reference
// price, insurance fund contribution) gets an entry here.
type AuditLogger struct {
	db *pgxpool.Pool
}

func NewAuditLogger(db *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{db: db}
}

// Log records one admin action. detail is marshaled to JSONB as-is.
func (al *AuditLogger) Log(ctx context.Context, actor, action, symbol string, detail map[string]any) error {
	var detailJSON []byte
	if len(detail) > 0 {
		var err error
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return err
		}
	}

	_, err := al.db.Exec(ctx, `
		INSERT INTO audit_log (actor, action, symbol, detail)
		VALUES ($1, $2, $3, $4)
	`, actor, action, symbol, detailJSON)
	if err != nil {
		log.Printf("audit: insert failed: %v", err)
	}
	return err
}
