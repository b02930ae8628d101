package domain

import (
	"context"
	"strings"
	"time"
)

// Pyrate 身份库中的一条用户记录
type Pyrate struct {
	ID            string    `json:"_id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	FirstName     *string   `json:"firstName,omitempty"`
	LastName      *string   `json:"lastName,omitempty"`
	Ship          *string   `json:"ship,omitempty"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"-"`
}

// HasPassword 未设置口令的记录只能用服务密钥访问
func (p *Pyrate) HasPassword() bool { return p.PasswordHash != "" }

// Clone 返回深拷贝，仓储对外只交出副本
func (p *Pyrate) Clone() *Pyrate {
	if p == nil {
		return nil
	}
	c := *p
	c.FirstName = cloneStr(p.FirstName)
	c.LastName = cloneStr(p.LastName)
	c.Ship = cloneStr(p.Ship)
	return &c
}

// Public 去掉口令哈希后的视图
type Public struct {
	ID            string  `json:"_id"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"email_verified"`
	FirstName     *string `json:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty"`
	Ship          *string `json:"ship,omitempty"`
}

func (p *Pyrate) Sanitize() Public {
	return Public{
		ID:            p.ID,
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		FirstName:     cloneStr(p.FirstName),
		LastName:      cloneStr(p.LastName),
		Ship:          cloneStr(p.Ship),
	}
}

// Key 路径参数：含 @ 视为 email，否则为 id
type Key struct {
	Value   string
	ByEmail bool
}

func ParseKey(s string) Key {
	return Key{Value: s, ByEmail: strings.Contains(s, "@")}
}

// PyrateRepository 存储后端（memory / gorm / redis）
type PyrateRepository interface {
	// List 按插入顺序返回全部记录
	List(ctx context.Context) ([]*Pyrate, error)
	FindByID(ctx context.Context, id string) (*Pyrate, error)
	FindByEmail(ctx context.Context, email string) (*Pyrate, error)
	Create(ctx context.Context, p *Pyrate) error
	// Update 整条替换，ID 不变
	Update(ctx context.Context, p *Pyrate) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

func Str(s string) *string { return &s }

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
