package domain

import (
	"database/sql"
	"fmt"
	"path"
	"strings"
	"time"
)

// FollowUp 跟进记录（对应 follow_ups 表），按 lead 追加
type FollowUp struct {
	FollowUpID string         `db:"follow_up_id"`
	LeadID     string         `db:"lead_id"`
	DateAdded  time.Time      `db:"date_added"` // immutable
	Notes      sql.NullString `db:"notes"`
	File       sql.NullString `db:"file"` // file handle
}

// uploadName 取上传文件名的最后一段；空名、"." 与 ".." 不可用
func uploadName(field, filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	switch name {
	case ".", "..", "/":
		return "", NewValidationError(field, "The submitted file has no usable name.")
	}
	return name, nil
}

// FollowUpFilePath storage key for a follow-up attachment.
func FollowUpFilePath(leadID, filename string) (string, error) {
	name, err := uploadName("file", filename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("lead_followups/lead_%s/%s", leadID, name), nil
}

// ProfilePicturePath storage key for a lead picture.
func ProfilePicturePath(leadID, filename string) (string, error) {
	name, err := uploadName("profile_picture", filename)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("profile_pictures/lead_%s/%s", leadID, name), nil
}
