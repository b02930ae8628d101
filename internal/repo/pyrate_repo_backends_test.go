package repo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrates-identitydb/internal/core/database"
	"pyrates-identitydb/internal/domain"
	"pyrates-identitydb/internal/feature/pyrate"
)

// 同一组用例跑所有后端；redis / postgres 需要通过环境变量显式开启
func runRepoContract(t *testing.T, newRepo func(t *testing.T) domain.PyrateRepository) {
	t.Run("crud", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		require.NoError(t, r.Create(ctx, &domain.Pyrate{ID: "id-1", Email: "a@potc.live", CreatedAt: base}))
		require.NoError(t, r.Create(ctx, &domain.Pyrate{ID: "id-2", Email: "b@potc.live", Ship: domain.Str("Fancy"), CreatedAt: base.Add(time.Second)}))
		assert.ErrorIs(t, r.Create(ctx, &domain.Pyrate{ID: "id-3", Email: "a@potc.live", CreatedAt: base.Add(2 * time.Second)}), ErrDuplicateEmail)

		got, err := r.FindByEmail(ctx, "b@potc.live")
		require.NoError(t, err)
		assert.Equal(t, "id-2", got.ID)
		require.NotNil(t, got.Ship)
		assert.Equal(t, "Fancy", *got.Ship)

		got.Email = "c@potc.live"
		got.EmailVerified = true
		got.Ship = nil
		got.PasswordHash = "$2a$10$hash"
		require.NoError(t, r.Update(ctx, got))

		_, err = r.FindByEmail(ctx, "b@potc.live")
		assert.ErrorIs(t, err, ErrNotFound)
		got, err = r.FindByID(ctx, "id-2")
		require.NoError(t, err)
		assert.Equal(t, "c@potc.live", got.Email)
		assert.True(t, got.EmailVerified)
		assert.Nil(t, got.Ship)
		assert.Equal(t, "$2a$10$hash", got.PasswordHash)

		got.Email = "a@potc.live"
		assert.ErrorIs(t, r.Update(ctx, got), ErrDuplicateEmail)

		all, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "id-1", all[0].ID)
		assert.Equal(t, "id-2", all[1].ID)

		require.NoError(t, r.Delete(ctx, "id-1"))
		assert.ErrorIs(t, r.Delete(ctx, "id-1"), ErrNotFound)
		n, err := r.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
}

func TestRepoContract_Memory(t *testing.T) {
	runRepoContract(t, func(*testing.T) domain.PyrateRepository { return NewMemoryRepo() })
}

func TestRepoContract_Redis(t *testing.T) {
	addr := os.Getenv("IDENTITYDB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("IDENTITYDB_TEST_REDIS_ADDR not set")
	}
	runRepoContract(t, func(t *testing.T) domain.PyrateRepository {
		r := NewRedisRepo(addr, "", 15)
		ctx := context.Background()
		require.NoError(t, r.Ping(ctx))
		require.NoError(t, r.RDB.FlushDB(ctx).Err())
		t.Cleanup(func() { _ = r.RDB.FlushDB(ctx).Err(); _ = r.Close() })
		return r
	})
}

// failTx 让事务管道失败，普通命令照常执行
type failTx struct{}

func (failTx) DialHook(next redis.DialHook) redis.DialHook { return next }
func (failTx) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }
func (failTx) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(context.Context, []redis.Cmder) error { return errors.New("pipeline down") }
}

func TestRedisRepo_UpdateReleasesEmailOnFailure(t *testing.T) {
	addr := os.Getenv("IDENTITYDB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("IDENTITYDB_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r := NewRedisRepo(addr, "", 15)
	require.NoError(t, r.Ping(ctx))
	require.NoError(t, r.RDB.FlushDB(ctx).Err())
	t.Cleanup(func() { _ = r.RDB.FlushDB(ctx).Err(); _ = r.Close() })

	require.NoError(t, r.Create(ctx, &domain.Pyrate{ID: "id-1", Email: "a@potc.live"}))
	r.RDB.AddHook(failTx{})

	p, err := r.FindByID(ctx, "id-1")
	require.NoError(t, err)
	p.Email = "b@potc.live"
	assert.Error(t, r.Update(ctx, p))

	n, err := r.RDB.Exists(ctx, redisMailIndex+"b@potc.live").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	got, err := r.FindByEmail(ctx, "a@potc.live")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
}

func TestRepoContract_Postgres(t *testing.T) {
	dsn := os.Getenv("IDENTITYDB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IDENTITYDB_TEST_POSTGRES_DSN not set")
	}
	runRepoContract(t, func(t *testing.T) domain.PyrateRepository {
		db, err := database.NewGorm(database.Opts{Driver: "postgres", DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 2, LogLevel: "silent"}, nil)
		require.NoError(t, err)
		r := NewPyrateRepo(db)
		require.NoError(t, db.Migrator().DropTable(&pyrate.PyrateModel{}))
		require.NoError(t, r.AutoMigrate())
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
		return r
	})
}
