package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pyrates-identitydb/internal/domain"
)

const (
	redisSeqKey    = "pyrates:seq"
	redisRecPrefix = "pyrates:rec:"
	redisMailIndex = "pyrates:email:"
)

// redisRecord 存储格式；与 API 输出不同，这里保留口令哈希
type redisRecord struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	FirstName     *string   `json:"firstName,omitempty"`
	LastName      *string   `json:"lastName,omitempty"`
	Ship          *string   `json:"ship,omitempty"`
	PasswordHash  string    `json:"passwordHash,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RedisRepo 以 redis 为后端：记录存 JSON 字符串，email 建唯一索引键，插入顺序存在 list 里
type RedisRepo struct {
	RDB *redis.Client
}

func NewRedisRepo(addr, pass string, db int) *RedisRepo {
	return &RedisRepo{
		RDB: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
	}
}

func (r *RedisRepo) Ping(ctx context.Context) error { return r.RDB.Ping(ctx).Err() }

func (r *RedisRepo) Close() error { return r.RDB.Close() }

func (r *RedisRepo) List(ctx context.Context) ([]*domain.Pyrate, error) {
	ids, err := r.RDB.LRange(ctx, redisSeqKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Pyrate, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisRecPrefix + id
	}
	vals, err := r.RDB.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// 并发删除留下的空洞
			continue
		}
		p, err := decodeRedisRecord([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *RedisRepo) FindByID(ctx context.Context, id string) (*domain.Pyrate, error) {
	b, err := r.RDB.Get(ctx, redisRecPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRedisRecord(b)
}

func (r *RedisRepo) FindByEmail(ctx context.Context, email string) (*domain.Pyrate, error) {
	id, err := r.RDB.Get(ctx, redisMailIndex+email).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *RedisRepo) Create(ctx context.Context, p *domain.Pyrate) error {
	ok, err := r.RDB.SetNX(ctx, redisMailIndex+p.Email, p.ID, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateEmail
	}
	b, err := encodeRedisRecord(p)
	if err != nil {
		return err
	}
	_, err = r.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisRecPrefix+p.ID, b, 0)
		pipe.RPush(ctx, redisSeqKey, p.ID)
		return nil
	})
	if err != nil {
		_ = r.RDB.Del(ctx, redisMailIndex+p.Email).Err()
	}
	return err
}

func (r *RedisRepo) Update(ctx context.Context, p *domain.Pyrate) error {
	cur, err := r.FindByID(ctx, p.ID)
	if err != nil {
		return err
	}
	moved := cur.Email != p.Email
	claimed := false
	if moved {
		ok, err := r.RDB.SetNX(ctx, redisMailIndex+p.Email, p.ID, 0).Result()
		if err != nil {
			return err
		}
		if !ok {
			owner, err := r.RDB.Get(ctx, redisMailIndex+p.Email).Result()
			if err != nil || owner != p.ID {
				return ErrDuplicateEmail
			}
		}
		claimed = ok
	}
	// 写入失败时释放刚占用的新 email 索引
	release := func() {
		if claimed {
			_ = r.RDB.Del(ctx, redisMailIndex+p.Email).Err()
		}
	}
	b, err := encodeRedisRecord(p)
	if err != nil {
		release()
		return err
	}
	_, err = r.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisRecPrefix+p.ID, b, 0)
		if moved {
			pipe.Del(ctx, redisMailIndex+cur.Email)
		}
		return nil
	})
	if err != nil {
		release()
	}
	return err
}

func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	cur, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisRecPrefix+id, redisMailIndex+cur.Email)
		pipe.LRem(ctx, redisSeqKey, 0, id)
		return nil
	})
	return err
}

func (r *RedisRepo) Count(ctx context.Context) (int64, error) {
	return r.RDB.LLen(ctx, redisSeqKey).Result()
}

func encodeRedisRecord(p *domain.Pyrate) ([]byte, error) {
	return json.Marshal(redisRecord{
		ID:            p.ID,
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Ship:          p.Ship,
		PasswordHash:  p.PasswordHash,
		CreatedAt:     p.CreatedAt,
	})
}

func decodeRedisRecord(b []byte) (*domain.Pyrate, error) {
	var rec redisRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &domain.Pyrate{
		ID:            rec.ID,
		Email:         rec.Email,
		EmailVerified: rec.EmailVerified,
		FirstName:     rec.FirstName,
		LastName:      rec.LastName,
		Ship:          rec.Ship,
		PasswordHash:  rec.PasswordHash,
		CreatedAt:     rec.CreatedAt,
	}, nil
}
