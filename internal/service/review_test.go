package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YAnkir9/SweetShop-TDD/internal/access"
	"github.com/YAnkir9/SweetShop-TDD/internal/model"
	"github.com/YAnkir9/SweetShop-TDD/internal/repository"
	"github.com/YAnkir9/SweetShop-TDD/internal/service"
	"github.com/YAnkir9/SweetShop-TDD/internal/storetest"
)

func TestReviewRatingBounds(t *testing.T) {
	ctx := context.Background()
	for _, rating := range []int{0, 6} {
		m := storetest.New()
		svc := service.NewReviewService(m.Reviews, m.Sweets)
		sw := seedSweet(t, m, "Barfi", "10.00", 1)
		u := seedUser(t, m, "critic", model.RoleCustomer, true)
		_, err := svc.Create(ctx, principal(u), sw.ID, rating, "")
		var ve *service.ValidationError
		assert.True(t, errors.As(err, &ve), "rating %d", rating)
	}
	for rating := 1; rating <= 5; rating++ {
		m := storetest.New()
		svc := service.NewReviewService(m.Reviews, m.Sweets)
		sw := seedSweet(t, m, "Barfi", "10.00", 1)
		u := seedUser(t, m, "critic", model.RoleCustomer, true)
		rv, err := svc.Create(ctx, principal(u), sw.ID, rating, "  tasty  ")
		require.NoError(t, err, "rating %d", rating)
		assert.Equal(t, "tasty", rv.Comment)
	}
}

func TestReviewCommentLength(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := service.NewReviewService(m.Reviews, m.Sweets)
	sw := seedSweet(t, m, "Jalebi", "10.00", 1)
	u := seedUser(t, m, "critic", model.RoleCustomer, true)

	// multi-byte runes count once each
	_, err := svc.Create(ctx, principal(u), sw.ID, 4, strings.Repeat("मी", 500))
	require.NoError(t, err)

	other := seedUser(t, m, "critic2", model.RoleCustomer, true)
	_, err = svc.Create(ctx, principal(other), sw.ID, 4, strings.Repeat("a", 1001))
	var ve *service.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestReviewDuplicateAndMissingSweet(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := service.NewReviewService(m.Reviews, m.Sweets)
	sw := seedSweet(t, m, "Peda", "10.00", 1)
	u := seedUser(t, m, "critic", model.RoleCustomer, true)

	_, err := svc.Create(ctx, principal(u), sw.ID, 5, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, principal(u), sw.ID, 3, "")
	assert.ErrorIs(t, err, repository.ErrDuplicateReview)

	_, err = svc.Create(ctx, principal(u), 777, 3, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	unverified := seedUser(t, m, "newbie", model.RoleCustomer, false)
	_, err = svc.Create(ctx, principal(unverified), sw.ID, 3, "")
	assert.ErrorIs(t, err, access.ErrUnverified)
}

func TestReviewOwnership(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := service.NewReviewService(m.Reviews, m.Sweets)
	sw := seedSweet(t, m, "Ladoo", "10.00", 1)
	author := seedUser(t, m, "author", model.RoleCustomer, true)
	stranger := seedUser(t, m, "stranger", model.RoleCustomer, true)
	admin := seedUser(t, m, "admin", model.RoleAdmin, true)

	rv, err := svc.Create(ctx, principal(author), sw.ID, 2, "meh")
	require.NoError(t, err)

	five := 5
	_, err = svc.Update(ctx, principal(stranger), rv.ID, &five, nil)
	assert.ErrorIs(t, err, access.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, principal(stranger), rv.ID), access.ErrForbidden)

	updated, err := svc.Update(ctx, principal(author), rv.ID, &five, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "meh", updated.Comment)

	zero := 0
	_, err = svc.Update(ctx, principal(author), rv.ID, &zero, nil)
	var ve *service.ValidationError
	assert.True(t, errors.As(err, &ve))

	require.NoError(t, svc.Delete(ctx, principal(admin), rv.ID))
	_, err = m.Reviews.Get(ctx, rv.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReviewSummary(t *testing.T) {
	ctx := context.Background()
	m := storetest.New()
	svc := service.NewReviewService(m.Reviews, m.Sweets)
	sw := seedSweet(t, m, "Halwa", "10.00", 1)

	sum, err := svc.Summary(ctx, sw.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.AverageRating)
	assert.Equal(t, 0, sum.ReviewCount)

	for i, rating := range []int{5, 4, 4} {
		u := seedUser(t, m, "user"+string(rune('a'+i)), model.RoleCustomer, true)
		_, err := svc.Create(ctx, principal(u), sw.ID, rating, "")
		require.NoError(t, err)
	}
	sum, err = svc.Summary(ctx, sw.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.33, sum.AverageRating)
	assert.Equal(t, 3, sum.ReviewCount)

	list, err := svc.ListForSweet(ctx, sw.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Greater(t, list[0].ID, list[2].ID)

	_, err = svc.Summary(ctx, 12345)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
