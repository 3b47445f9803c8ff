package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrInvalidKey is returned for unknown or revoked API keys.
	ErrInvalidKey = errors.New("invalid api key")
)

const keyPrefix = "tmk_"

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&PromptTemplate{}, &APIClient{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePromptTemplate stores body as the next version of the named prompt.
func (d *Database) SavePromptTemplate(name, body, author string) (*PromptTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("prompt name is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("prompt body is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var row *PromptTemplate
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		var current int
		if err := tx.Model(&PromptTemplate{}).
			Where("name = ?", name).
			Select("COALESCE(MAX(version), 0)").
			Scan(&current).Error; err != nil {
			return err
		}
		// embedded defaults are version 1, stored revisions start above them
		next := current + 1
		if next < 2 {
			next = 2
		}
		row = &PromptTemplate{Name: name, Version: next, Body: body, Author: strings.TrimSpace(author)}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save prompt template %s: %w", name, err)
	}
	return row, nil
}

// LatestPromptTemplates returns the highest version of every stored prompt, ordered by name.
func (d *Database) LatestPromptTemplates() ([]PromptTemplate, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	var rows []PromptTemplate
	err := d.gorm.Raw(`SELECT p.* FROM prompt_templates p
		JOIN (SELECT name, MAX(version) AS version FROM prompt_templates GROUP BY name) latest
		ON latest.name = p.name AND latest.version = p.version
		ORDER BY p.name`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("latest prompt templates: %w", err)
	}
	return rows, nil
}

// PromptHistory lists every stored version of a prompt, newest first.
func (d *Database) PromptHistory(name string) ([]PromptTemplate, error) {
	var rows []PromptTemplate
	if err := d.gorm.Where("name = ?", strings.TrimSpace(name)).Order("version DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateAPIClient registers a caller and returns its plaintext key. The key is not
// recoverable afterwards.
func (d *Database) CreateAPIClient(name string) (string, *APIClient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, errors.New("client name is required")
	}
	key, err := generateKey()
	if err != nil {
		return "", nil, err
	}
	client := &APIClient{Name: name, KeyPrefix: key[:len(keyPrefix)+4], KeyHash: HashKey(key)}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.Create(client).Error; err != nil {
		return "", nil, fmt.Errorf("create api client %s: %w", name, err)
	}
	return key, client, nil
}

// Authenticate resolves a plaintext key to its active client and records the use.
func (d *Database) Authenticate(key string) (*APIClient, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}
	var client APIClient
	err := d.gorm.Where("key_hash = ? AND revoked = ?", HashKey(key), false).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	now := time.Now().UTC()
	if err := d.gorm.Model(&client).Update("last_used_at", now).Error; err != nil {
		logrus.WithError(err).WithField("client", client.Name).Warn("record api key use")
	} else {
		client.LastUsedAt = &now
	}
	return &client, nil
}

// RevokeAPIClient disables the named client's key.
func (d *Database) RevokeAPIClient(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Model(&APIClient{}).Where("name = ?", strings.TrimSpace(name)).Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("api client %q: %w", name, ErrNotFound)
	}
	return nil
}

// ListAPIClients returns all registered clients ordered by name.
func (d *Database) ListAPIClients() ([]APIClient, error) {
	var clients []APIClient
	if err := d.gorm.Order("name ASC").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// CountActiveClients returns the number of clients with usable keys.
func (d *Database) CountActiveClients() (int64, error) {
	var count int64
	if err := d.gorm.Model(&APIClient{}).Where("revoked = ?", false).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// HashKey returns the hex SHA-256 digest stored for an API key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

func generateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}
