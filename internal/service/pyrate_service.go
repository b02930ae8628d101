package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"pyrates-identitydb/internal/core/auth"
	"pyrates-identitydb/internal/domain"
	"pyrates-identitydb/internal/repo"
	"pyrates-identitydb/pkg/utils"
)

var recordsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "identitydb_records",
	Help: "Number of pyrate records in the store",
})

func init() { prometheus.MustRegister(recordsGauge) }

// PyrateService 身份库的 CRUD；所有操作先过 Verifier
type PyrateService struct {
	repo     domain.PyrateRepository
	verifier *auth.Verifier
	hasher   utils.PasswordHasher
	log      *zap.Logger

	// 写操作串行化，保证 email 唯一性检查与合并不产生竞态
	mu sync.Mutex
	// 同一 key 的并发查找合并为一次后端访问
	lookups singleflight.Group

	now   func() time.Time
	newID func() string
}

func NewPyrateService(r domain.PyrateRepository, v *auth.Verifier, h utils.PasswordHasher, l *zap.Logger) *PyrateService {
	if h == nil {
		h = utils.NewBcrypt()
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &PyrateService{
		repo:     r,
		verifier: v,
		hasher:   h,
		log:      l,
		now:      time.Now,
		newID:    utils.NewID,
	}
}

// UpdateResult PasswordChanged=true 时 HTTP 层返回 202
type UpdateResult struct {
	ID              string
	PasswordChanged bool
}

func (s *PyrateService) List(ctx context.Context, cred string) ([]domain.Public, error) {
	if err := s.authorize(cred, nil); err != nil {
		return nil, err
	}
	ps, err := s.repo.List(ctx)
	if err != nil {
		return nil, Internal(err)
	}
	out := make([]domain.Public, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Sanitize())
	}
	return out, nil
}

// Get 先查记录再鉴权，这样记录本人的口令也能通过
func (s *PyrateService) Get(ctx context.Context, cred, key string) (domain.Public, error) {
	p, err := s.resolve(ctx, domain.ParseKey(key))
	if err != nil {
		return domain.Public{}, err
	}
	if err := s.authorize(cred, p); err != nil {
		return domain.Public{}, err
	}
	if p == nil {
		return domain.Public{}, NotFound()
	}
	return p.Sanitize(), nil
}

func (s *PyrateService) Create(ctx context.Context, cred string, body []byte) (string, error) {
	if err := s.authorize(cred, nil); err != nil {
		return "", err
	}
	in, err := domain.DecodeInput(body)
	if err != nil {
		return "", BadRequest(err)
	}
	if !in.Email.Set || strings.TrimSpace(in.Email.Value) == "" {
		return "", BadRequest(errors.New("email is required"))
	}
	if existing, err := s.resolve(ctx, domain.Key{Value: in.Email.Value, ByEmail: true}); err != nil {
		return "", err
	} else if existing != nil {
		return "", Conflict()
	}

	p := &domain.Pyrate{ID: s.newID(), CreatedAt: s.now()}
	in.Apply(p)
	if in.Password.Set {
		h, err := s.hasher.Hash(in.Password.Value)
		if err != nil {
			s.log.Error("hash password failed", zap.Error(err))
			return "", Internal(err)
		}
		p.PasswordHash = h
	}

	s.mu.Lock()
	err = s.repo.Create(ctx, p)
	s.mu.Unlock()
	if err != nil {
		return "", s.storeErr("create", err)
	}
	s.log.Info("pyrate created", zap.String("id", p.ID), zap.Bool("password", p.HasPassword()))
	s.refreshGauge(ctx)
	return p.ID, nil
}

// Update 401 → 404 → 400 的判定顺序与读取一致（先解析记录再鉴权）
func (s *PyrateService) Update(ctx context.Context, cred, key string, body []byte) (UpdateResult, error) {
	p, err := s.admitUpdate(ctx, cred, key)
	if err != nil {
		return UpdateResult{}, err
	}
	in, err := domain.DecodeInput(body)
	if err != nil {
		return UpdateResult{}, BadRequest(err)
	}
	if in.Keys == 0 {
		return UpdateResult{}, BadRequest(domain.ErrEmptyBody)
	}
	if in.Email.Set && strings.TrimSpace(in.Email.Value) == "" {
		return UpdateResult{}, BadRequest(errors.New("email must not be empty"))
	}

	// 哈希放在锁外；失败时记录保持原样
	var hash string
	if in.Password.Set {
		if hash, err = s.hasher.Hash(in.Password.Value); err != nil {
			s.log.Error("hash password failed", zap.String("id", p.ID), zap.Error(err))
			return UpdateResult{}, Internal(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return UpdateResult{}, NotFound()
		}
		return UpdateResult{}, Internal(err)
	}
	in.Apply(cur)
	if in.Password.Set {
		cur.PasswordHash = hash
	}
	if err := s.repo.Update(ctx, cur); err != nil {
		return UpdateResult{}, s.storeErr("update", err)
	}
	s.log.Info("pyrate updated", zap.String("id", cur.ID), zap.Bool("password", in.Password.Set))
	return UpdateResult{ID: cur.ID, PasswordChanged: in.Password.Set}, nil
}

// Admit 只做读请求体之前的检查：key 为空按创建处理（只认服务密钥），否则按更新处理
func (s *PyrateService) Admit(ctx context.Context, cred, key string) error {
	if key == "" {
		return s.authorize(cred, nil)
	}
	_, err := s.admitUpdate(ctx, cred, key)
	return err
}

func (s *PyrateService) admitUpdate(ctx context.Context, cred, key string) (*domain.Pyrate, error) {
	p, err := s.resolve(ctx, domain.ParseKey(key))
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cred, p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NotFound()
	}
	return p, nil
}

// Delete 只接受服务密钥
func (s *PyrateService) Delete(ctx context.Context, cred, key string) error {
	if err := s.authorize(cred, nil); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolve(ctx, domain.ParseKey(key))
	if err != nil {
		return err
	}
	if p == nil {
		return NotFound()
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return s.storeErr("delete", err)
	}
	s.log.Info("pyrate deleted", zap.String("id", p.ID))
	s.refreshGauge(ctx)
	return nil
}

// Count 供启动日志与指标使用
func (s *PyrateService) Count(ctx context.Context) (int64, error) { return s.repo.Count(ctx) }

func (s *PyrateService) refreshGauge(ctx context.Context) {
	if n, err := s.repo.Count(ctx); err == nil {
		recordsGauge.Set(float64(n))
	}
}

// RefreshMetrics 启动后同步一次记录数
func (s *PyrateService) RefreshMetrics(ctx context.Context) { s.refreshGauge(ctx) }

// resolve 找不到时返回 (nil, nil)；返回的记录可能被并发调用方共享，只读
func (s *PyrateService) resolve(ctx context.Context, k domain.Key) (*domain.Pyrate, error) {
	sfKey := "id:" + k.Value
	if k.ByEmail {
		sfKey = "email:" + k.Value
	}
	v, err, _ := s.lookups.Do(sfKey, func() (any, error) {
		if k.ByEmail {
			return s.repo.FindByEmail(ctx, k.Value)
		}
		return s.repo.FindByID(ctx, k.Value)
	})
	p, _ := v.(*domain.Pyrate)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("lookup failed", zap.Bool("by_email", k.ByEmail), zap.Error(err))
		return nil, Internal(err)
	}
	return p, nil
}

func (s *PyrateService) authorize(cred string, target *domain.Pyrate) error {
	d, err := s.verifier.Verify(cred, target)
	if err != nil {
		s.log.Error("password verification failed", zap.Error(err))
		return Internal(err)
	}
	if !d.Allowed() {
		return Unauthorized()
	}
	return nil
}

func (s *PyrateService) storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repo.ErrDuplicateEmail):
		return Conflict()
	case errors.Is(err, repo.ErrNotFound):
		return NotFound()
	default:
		s.log.Error("store "+op+" failed", zap.Error(err))
		return Internal(err)
	}
}
