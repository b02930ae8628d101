package utils

import "github.com/google/uuid"

// NewID 生成记录 ID（uuid v4）
func NewID() string { return uuid.NewString() }
