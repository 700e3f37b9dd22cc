// Package access holds the caller principal and the capability rules that
// gate every route. Rules are plain predicates so a route table can declare
// them next to the handler and the middleware evaluates them uniformly
// before dispatch.
package access

import (
	"errors"

	"github.com/YAnkir9/SweetShop-TDD/internal/model"
)

var (
	// ErrUnauthenticated means no valid credential was presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUnverified means the account exists but its verification flag is off.
	ErrUnverified = errors.New("account is not verified")
	// ErrForbidden means the principal lacks the role or ownership required.
	ErrForbidden = errors.New("insufficient permissions")
)

// Principal is the resolved caller of a request.
type Principal struct {
	UserID   uint64
	Role     string
	Verified bool
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// Rule decides whether p may proceed. A nil p is an anonymous caller.
type Rule func(p *Principal) error

// Public admits everyone.
func Public(*Principal) error { return nil }

// Verified admits any authenticated principal whose account is verified,
// whatever its role.
func Verified(p *Principal) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.Verified {
		return ErrUnverified
	}
	return nil
}

// Admin admits verified admins only.
func Admin(p *Principal) error {
	if err := Verified(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// OwnerOrAdmin admits the verified owner of a resource or a verified admin.
func OwnerOrAdmin(ownerID uint64) Rule {
	return func(p *Principal) error {
		if err := Verified(p); err != nil {
			return err
		}
		if p.UserID != ownerID && !p.IsAdmin() {
			return ErrForbidden
		}
		return nil
	}
}

// Check evaluates rules in order and returns the first failure.
func Check(p *Principal, rules ...Rule) error {
	for _, r := range rules {
		if err := r(p); err != nil {
			return err
		}
	}
	return nil
}
