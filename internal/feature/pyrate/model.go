package pyrate

import (
	"time"

	"pyrates-identitydb/internal/domain"
)

type PyrateModel struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)"`
	Email         string  `gorm:"uniqueIndex;size:255;not null"`
	EmailVerified bool    `gorm:"not null;default:false"`
	FirstName     *string `gorm:"size:64"`
	LastName      *string `gorm:"size:64"`
	Ship          *string `gorm:"size:128"`
	PasswordHash  string  `gorm:"size:100"`

	// 列表按插入顺序输出
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (PyrateModel) TableName() string { return "pyrates" }

func FromDomain(p *domain.Pyrate) *PyrateModel {
	return &PyrateModel{
		ID:            p.ID,
		Email:         p.Email,
		EmailVerified: p.EmailVerified,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Ship:          p.Ship,
		PasswordHash:  p.PasswordHash,
		CreatedAt:     p.CreatedAt,
	}
}

func (m *PyrateModel) ToDomain() *domain.Pyrate {
	return &domain.Pyrate{
		ID:            m.ID,
		Email:         m.Email,
		EmailVerified: m.EmailVerified,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Ship:          m.Ship,
		PasswordHash:  m.PasswordHash,
		CreatedAt:     m.CreatedAt,
	}
}
