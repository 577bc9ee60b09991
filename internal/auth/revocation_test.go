package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestRedisRevocationList(t *testing.T) {
	ctx := context.Background()
	token := "header.payload.signature"
	key := revocationKey(token)

	t.Run("revoke sets key with ttl", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		list := NewRedisRevocationList(db)

		mock.ExpectSet(key, "1", 30*time.Minute).SetVal("OK")

		assert.NoError(t, list.Revoke(ctx, token, 30*time.Minute))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("revoked token is reported", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		list := NewRedisRevocationList(db)

		mock.ExpectExists(key).SetVal(1)

		revoked, err := list.IsRevoked(ctx, token)
		assert.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("unknown token is not revoked", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		list := NewRedisRevocationList(db)

		mock.ExpectExists(key).SetVal(0)

		revoked, err := list.IsRevoked(ctx, token)
		assert.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("redis failure", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		list := NewRedisRevocationList(db)

		mock.ExpectSet(key, "1", time.Minute).SetErr(errors.New("connection refused"))

		assert.Error(t, list.Revoke(ctx, token, time.Minute))
	})

	t.Run("keys do not embed the raw token", func(t *testing.T) {
		assert.NotContains(t, key, token)
		assert.Contains(t, key, "blacklist:")
	})
}
