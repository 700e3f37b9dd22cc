package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokeByHashIsSingleUse(t *testing.T) {
	store, mock := newMockStore(t)
	revoke := regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ?")
	mock.ExpectExec(revoke).WithArgs("abc").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(revoke).WithArgs("abc").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Tokens.RevokeByHash(context.Background(), "abc"))
	assert.ErrorIs(t, store.Tokens.RevokeByHash(context.Background(), "abc"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshUnknown(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM refresh_tokens")).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := store.Tokens.ValidateRefresh(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
