package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
	"github.com/YAnkir9/SweetShop-TDD/internal/service"
	"github.com/YAnkir9/SweetShop-TDD/internal/storetest"
)

func TestAdminUserManagementIsAudited(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := service.NewAdminService(m.Users, m.Audit, m.Stats)
	admin := seedUser(t, m, "admin", model.RoleAdmin, true)
	cust := seedUser(t, m, "cust", model.RoleCustomer, false)

	u, err := svc.SetVerified(ctx, admin.ID, cust.ID, true)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	u, err = svc.SetRole(ctx, admin.ID, cust.ID, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	_, err = svc.SetRole(ctx, admin.ID, cust.ID, "owner")
	var ve *service.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = svc.SetRole(ctx, admin.ID, admin.ID, model.RoleCustomer)
	assert.True(t, errors.As(err, &ve))

	_, err = svc.SetVerified(ctx, admin.ID, 9999, true)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	logs, err := svc.AuditLog(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditUserRole, logs[0].Action)
	assert.Equal(t, model.AuditUserVerify, logs[1].Action)
	assert.Equal(t, admin.ID, logs[0].UserID)
}

func TestAdminStats(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	admin := service.NewAdminService(m.Users, m.Audit, m.Stats)
	purchases := service.NewPurchaseService(m, m.Purchases, nil)
	seedUser(t, m, "a", model.RoleCustomer, true)
	seedUser(t, m, "b", model.RoleCustomer, false)
	plenty := seedSweet(t, m, "Barfi", "10.00", 50)
	seedSweet(t, m, "Jalebi", "4.00", 3)

	_, err := purchases.Create(ctx, 1, []service.LineRequest{{SweetID: plenty.ID, Quantity: 2}}, "")
	require.NoError(t, err)

	st, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Users)
	assert.Equal(t, 1, st.VerifiedUsers)
	assert.Equal(t, 2, st.Sweets)
	assert.Equal(t, 1, st.Purchases)
	assert.Equal(t, 1, st.PendingOrders)
	assert.Equal(t, "20.00", st.Revenue)
	assert.Equal(t, 1, st.LowStockSweets)
}
