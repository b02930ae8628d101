package domain

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Field 带“是否提交”标记的可选字段；JSON null 视为未提交
type Field[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Field[T] { return Field[T]{Value: v, Set: true} }

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.Value, f.Set = v, true
	return nil
}

// PyrateInput 创建/更新请求体
type PyrateInput struct {
	Email         Field[string] `json:"email"`
	EmailVerified Field[bool]   `json:"email_verified"`
	FirstName     Field[string] `json:"firstName"`
	LastName      Field[string] `json:"lastName"`
	Ship          Field[string] `json:"ship"`
	Password      Field[string] `json:"password"`

	// Keys 请求体里出现的键数（含未知键）
	Keys int `json:"-"`
}

var (
	ErrEmptyBody   = errors.New("empty request body")
	ErrInvalidBody = errors.New("invalid request body")
)

// DecodeInput 解析请求体；空体返回 ErrEmptyBody，非 JSON 对象返回 ErrInvalidBody
func DecodeInput(raw []byte) (*PyrateInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyBody
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, errors.Join(ErrInvalidBody, err)
	}
	if keys == nil {
		// 字面量 null
		return nil, ErrEmptyBody
	}
	var in PyrateInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, errors.Join(ErrInvalidBody, err)
	}
	in.Keys = len(keys)
	// 空口令等同未提交：不设置口令
	if in.Password.Set && in.Password.Value == "" {
		in.Password = Field[string]{}
	}
	return &in, nil
}

// Apply 把已提交的字段合并到记录上（口令除外，由调用方哈希后写入）
func (in *PyrateInput) Apply(p *Pyrate) {
	if in.Email.Set {
		p.Email = in.Email.Value
	}
	if in.EmailVerified.Set {
		p.EmailVerified = in.EmailVerified.Value
	}
	if in.FirstName.Set {
		p.FirstName = Str(in.FirstName.Value)
	}
	if in.LastName.Set {
		p.LastName = Str(in.LastName.Value)
	}
	if in.Ship.Set {
		p.Ship = Str(in.Ship.Value)
	}
}
