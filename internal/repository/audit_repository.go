package repository

import (
	"context"
	"database/sql"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

// AuditRepo appends to and reads the audit_logs table.
type AuditRepo struct{ db *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// AppendTx writes an audit entry in the caller's transaction so the entry
// commits together with the action it describes.
func (r *AuditRepo) AppendTx(ctx context.Context, tx *sql.Tx, e *model.AuditEntry) error {
	return r.append(ctx, tx, e)
}

// Append writes an audit entry outside any transaction.
func (r *AuditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	return r.append(ctx, r.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *AuditRepo) append(ctx context.Context, ex execer, e *model.AuditEntry) error {
	var meta any
	if len(e.Metadata) > 0 {
		meta = string(e.Metadata)
	}
	res, err := ex.ExecContext(ctx,
		"INSERT INTO audit_logs (user_id, action, target_table, target_id, metadata) VALUES (?,?,?,?,?)",
		e.UserID, e.Action, e.TargetTable, e.TargetID, meta)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// Recent returns the latest entries, newest first.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, target_table, target_id, metadata, created_at
		 FROM audit_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		var meta sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.TargetTable, &e.TargetID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if meta.Valid {
			e.Metadata = []byte(meta.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
