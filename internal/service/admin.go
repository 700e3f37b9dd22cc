package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/obs"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AdminService covers user management and shop-wide reporting.
type AdminService struct {
	Users   UserStore
	Audit   AuditStore
	Reports StatsStore
}

func NewAdminService(users UserStore, audit AuditStore, stats StatsStore) *AdminService {
	return &AdminService{Users: users, Audit: audit, Reports: stats}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.Users.List(ctx)
}

// SetVerified flips a user's verification flag and records who did it.
func (s *AdminService) SetVerified(ctx context.Context, adminID, userID uint64, verified bool) (model.User, error) {
	if err := s.Users.SetVerified(ctx, userID, verified); err != nil {
		return model.User{}, err
	}
	s.audit(ctx, adminID, model.AuditUserVerify, userID, map[string]any{"is_verified": verified})
	return s.Users.GetByID(ctx, userID)
}

// SetRole changes a user's role. Admins cannot demote themselves so the
// shop is never left without an admin by accident.
func (s *AdminService) SetRole(ctx context.Context, adminID, userID uint64, role string) (model.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != model.RoleAdmin && role != model.RoleCustomer {
		return model.User{}, invalid("role", "must be admin or customer")
	}
	if adminID == userID && role != model.RoleAdmin {
		return model.User{}, invalid("role", "admins cannot demote themselves")
	}
	if err := s.Users.SetRole(ctx, userID, role); err != nil {
		return model.User{}, err
	}
	s.audit(ctx, adminID, model.AuditUserRole, userID, map[string]any{"role": role})
	return s.Users.GetByID(ctx, userID)
}

func (s *AdminService) audit(ctx context.Context, adminID uint64, action string, userID uint64, meta map[string]any) {
	raw, _ := json.Marshal(meta)
	e := model.AuditEntry{UserID: adminID, Action: action, TargetTable: "users", TargetID: userID, Metadata: raw}
	if err := s.Audit.Append(ctx, &e); err != nil {
		obs.Logger.Error("audit append failed", "action", action, "target_id", userID, "error", err)
	}
}

// Stats returns shop-wide counters.
func (s *AdminService) Stats(ctx context.Context) (model.Stats, error) {
	return s.Reports.Stats(ctx)
}

// AuditLog returns the newest entries. limit defaults to 50 and is capped.
func (s *AdminService) AuditLog(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return s.Audit.Recent(ctx, limit)
}
