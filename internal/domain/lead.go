package domain

import (
	"database/sql"
	"strings"
	"time"
)

// Lead 线索领域模型（对应 leads 表）
type Lead struct {
	LeadID         string `db:"lead_id"`
	OrganizationID string `db:"organization_id"`

	FirstName   string `db:"first_name"`   // max 50
	LastName    string `db:"last_name"`    // max 50
	Age         int    `db:"age"`          // SMALLINT, >= 0
	Email       string `db:"email"`
	PhoneNumber string `db:"phone_number"` // max 20
	Description string `db:"description"`

	AgentID        sql.NullString `db:"agent_id"`        // nullable, ON DELETE SET NULL
	CategoryID     sql.NullString `db:"category_id"`     // nullable, ON DELETE SET NULL
	ProfilePicture sql.NullString `db:"profile_picture"` // nullable, file handle

	DateAdded     time.Time    `db:"date_added"`     // immutable
	ConvertedDate sql.NullTime `db:"converted_date"` // set once
}

// FullName "first last"
func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// ApplyCategory moves the lead to newCategory and stamps ConvertedDate on the first
// entry into the organization's Converted category. An invalid convertedCategory
// (organization has none) never matches. Returns true when the stamp was set.
func (l *Lead) ApplyCategory(newCategory, convertedCategory sql.NullString, now time.Time) bool {
	old := l.CategoryID
	l.CategoryID = newCategory

	if !convertedCategory.Valid || !newCategory.Valid {
		return false
	}
	if newCategory.String != convertedCategory.String {
		return false
	}
	if old.Valid && old.String == convertedCategory.String {
		return false
	}
	if l.ConvertedDate.Valid {
		return false
	}
	l.ConvertedDate = sql.NullTime{Time: now, Valid: true}
	return true
}

// LeadFields 可编辑字段
type LeadFields struct {
	FirstName   string `json:"first_name" validate:"required,max=50"`
	LastName    string `json:"last_name" validate:"required,max=50"`
	Age         int    `json:"age" validate:"gte=0,lte=32767"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,max=20"`
	Description string `json:"description"`
}

// Validate 字段校验（与表约束一致）
func (f *LeadFields) Validate() *ValidationError {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	return checkStruct(f)
}

// ApplyTo copies the fields onto l.
func (f LeadFields) ApplyTo(l *Lead) {
	l.FirstName = f.FirstName
	l.LastName = f.LastName
	l.Age = f.Age
	l.Email = f.Email
	l.PhoneNumber = f.PhoneNumber
	l.Description = f.Description
}
