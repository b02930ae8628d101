package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost 固定工作因子（与身份提供方的 $2y$10$ 哈希一致）
const BcryptCost = 10

// PasswordHasher 口令哈希后端；测试里可替换成会失败的实现
type PasswordHasher interface {
	Hash(pw string) (string, error)
	// Verify 返回 (false, nil) 表示不匹配；err 只代表后端故障
	Verify(pw, hashed string) (bool, error)
}

// MaxPasswordBytes bcrypt 只使用前 72 字节，超出部分截断（与身份提供方的实现一致）
const MaxPasswordBytes = 72

type Bcrypt struct{ Cost int }

func clip(pw string) []byte {
	b := []byte(pw)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}
	return b
}

func NewBcrypt() Bcrypt { return Bcrypt{Cost: BcryptCost} }

func (b Bcrypt) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = BcryptCost
	}
	h, err := bcrypt.GenerateFromPassword(clip(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (Bcrypt) Verify(pw, hashed string) (bool, error) {
	if hashed == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashed), clip(pw))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
