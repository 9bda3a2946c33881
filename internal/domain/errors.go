package domain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound covers both "absent" and "outside the caller's scope"; callers must not
// distinguish the two.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized 未登录
var ErrUnauthorized = errors.New("unauthorized")

// ErrConflict unique key already taken (username, category name).
var ErrConflict = errors.New("already exists")

// ErrAmbiguous a lookup that must match one record matched several.
var ErrAmbiguous = errors.New("matches more than one record")

// ValidationError 字段级校验错误（field -> message）
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError 创建单字段校验错误
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records the first message for field.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = map[string]string{}
	}
	if _, exists := v.Fields[field]; !exists {
		v.Fields[field] = message
	}
}

// HasErrors 是否存在字段错误
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// OrNil returns v as an error only when it carries field errors.
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
