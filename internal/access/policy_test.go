package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

func TestRules(t *testing.T) {
	customer := &Principal{UserID: 1, Role: model.RoleCustomer, Verified: true}
	admin := &Principal{UserID: 2, Role: model.RoleAdmin, Verified: true}
	unverifiedAdmin := &Principal{UserID: 3, Role: model.RoleAdmin}

	cases := []struct {
		name string
		rule Rule
		p    *Principal
		want error
	}{
		{"public anonymous", Public, nil, nil},
		{"verified anonymous", Verified, nil, ErrUnauthenticated},
		{"verified customer", Verified, customer, nil},
		{"verified unverified admin", Verified, unverifiedAdmin, ErrUnverified},
		{"admin customer", Admin, customer, ErrForbidden},
		{"admin admin", Admin, admin, nil},
		{"admin unverified admin", Admin, unverifiedAdmin, ErrUnverified},
		{"owner self", OwnerOrAdmin(1), customer, nil},
		{"owner other", OwnerOrAdmin(9), customer, ErrForbidden},
		{"owner admin", OwnerOrAdmin(9), admin, nil},
		{"owner unverified", OwnerOrAdmin(3), unverifiedAdmin, ErrUnverified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule(tc.p)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCheckStopsAtFirstFailure(t *testing.T) {
	calls := 0
	counting := func(*Principal) error { calls++; return nil }
	err := Check(nil, counting, Verified, counting)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 1, calls)
}
