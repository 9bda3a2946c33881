package service

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// PasswordHasher bcrypt 封装；测试里可降低 cost
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher cost <= 0 uses bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Check returns a field message, or "" when the password is acceptable.
func (h *PasswordHasher) Check(password string) string {
	if password == "" {
		return "This field is required."
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength)
	}
	if len(password) > 72 {
		return "This password is too long."
	}
	return ""
}

// Hash 生成 bcrypt 哈希
func (h *PasswordHasher) Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Verify 校验密码；空哈希（未设置密码）永远不匹配
func (h *PasswordHasher) Verify(hash []byte, password string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
