package repo

import "errors"

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("pyrate not found")
	// ErrDuplicateEmail email 已被另一条记录占用
	ErrDuplicateEmail = errors.New("duplicate email")
)
