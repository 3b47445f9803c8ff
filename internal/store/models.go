package store

import (
	"time"
)

// PromptTemplate is a stored revision of a named prompt. The highest version per name
// overrides the embedded default at startup.
type PromptTemplate struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:64;uniqueIndex:idx_prompt_templates_name_version"`
	Version   int    `gorm:"uniqueIndex:idx_prompt_templates_name_version"`
	Body      string `gorm:"type:text"`
	Author    string `gorm:"size:128"`
	CreatedAt time.Time
}

// APIClient is a caller allowed to use the prediction API. Only the SHA-256 of the key
// is stored.
type APIClient struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:128;uniqueIndex"`
	KeyPrefix  string `gorm:"size:16"`
	KeyHash    string `gorm:"size:64;uniqueIndex"`
	Revoked    bool   `gorm:"index"`
	LastUsedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
