package domain

import "strings"

// ConvertedCategoryName marks won leads.
const ConvertedCategoryName = "Converted"

// Category 线索阶段（对应 categories 表），name 在组织内唯一
type Category struct {
	CategoryID     string `db:"category_id"`
	OrganizationID string `db:"organization_id"`
	Name           string `db:"name"`
}

// IsConverted 是否为 Converted 哨兵分类
func (c *Category) IsConverted() bool {
	return c != nil && c.Name == ConvertedCategoryName
}

type categoryFields struct {
	Name string `json:"name" validate:"required,max=30"`
}

// ValidateCategoryName 校验分类名称
func ValidateCategoryName(name string) *ValidationError {
	return checkStruct(&categoryFields{Name: strings.TrimSpace(name)})
}
