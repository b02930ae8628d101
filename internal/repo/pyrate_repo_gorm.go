package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"pyrates-identitydb/internal/domain"
	"pyrates-identitydb/internal/feature/pyrate"
)

type PyrateRepo struct{ db *gorm.DB }

func NewPyrateRepo(db *gorm.DB) *PyrateRepo { return &PyrateRepo{db: db} }

// AutoMigrate 建表（store.autoMigrate=true 时由启动流程调用）
func (r *PyrateRepo) AutoMigrate() error { return r.db.AutoMigrate(&pyrate.PyrateModel{}) }

func (r *PyrateRepo) List(ctx context.Context) ([]*domain.Pyrate, error) {
	var ms []pyrate.PyrateModel
	if err := r.db.WithContext(ctx).Order("created_at asc, id asc").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Pyrate, 0, len(ms))
	for i := range ms {
		out = append(out, ms[i].ToDomain())
	}
	return out, nil
}

func (r *PyrateRepo) FindByID(ctx context.Context, id string) (*domain.Pyrate, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PyrateRepo) FindByEmail(ctx context.Context, email string) (*domain.Pyrate, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *PyrateRepo) first(ctx context.Context, cond string, arg string) (*domain.Pyrate, error) {
	var m pyrate.PyrateModel
	err := r.db.WithContext(ctx).First(&m, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *PyrateRepo) Create(ctx context.Context, p *domain.Pyrate) error {
	err := r.db.WithContext(ctx).Create(pyrate.FromDomain(p)).Error
	if err != nil && isDupKey(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *PyrateRepo) Update(ctx context.Context, p *domain.Pyrate) error {
	m := pyrate.FromDomain(p)
	// 显式 Select，零值（email_verified=false、空指针）也会写回
	res := r.db.WithContext(ctx).Model(&pyrate.PyrateModel{ID: p.ID}).
		Select("email", "email_verified", "first_name", "last_name", "ship", "password_hash").
		Updates(m)
	if res.Error != nil {
		if isDupKey(res.Error) {
			return ErrDuplicateEmail
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PyrateRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&pyrate.PyrateModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PyrateRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&pyrate.PyrateModel{}).Count(&n).Error
	return n, err
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
