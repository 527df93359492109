package db

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/terraincognita07/nestling/internal/logging"
	"gorm.io/gorm"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_.*\.sql$`)

// schemaMigration is one row of the ledger of applied migration files.
type schemaMigration struct {
	Version  int    `gorm:"column:version;primaryKey;autoIncrement:false"`
	Name     string `gorm:"column:name"`
	Checksum string `gorm:"column:checksum"`
}

func (schemaMigration) TableName() string { return "schema_migrations" }

type migrationFile struct {
	version    int
	name       string
	statements []string
	checksum   string
}

// migrate applies the migration files in fsys in version order. Each file runs
// in its own transaction together with its ledger row.
func migrate(database *gorm.DB, fsys fs.FS, logger logging.Logger) error {
	if err := database.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  checksum TEXT NOT NULL
)`).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := readMigrationFiles(fsys)
	if err != nil {
		return err
	}

	var applied []schemaMigration
	if err := database.Find(&applied).Error; err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	checksums := make(map[int]string, len(applied))
	for _, row := range applied {
		checksums[row.Version] = row.Checksum
	}

	for _, file := range files {
		if checksum, ok := checksums[file.version]; ok {
			if checksum != file.checksum {
				logger.Warnf("db: migration %s changed after it was applied", file.name)
			}
			continue
		}
		if err := applyMigrationFile(database, file); err != nil {
			return err
		}
		logger.Infof("db: applied migration %s", file.name)
	}
	return nil
}

func applyMigrationFile(database *gorm.DB, file migrationFile) error {
	return database.Transaction(func(tx *gorm.DB) error {
		for _, statement := range file.statements {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("migration %s: %w", file.name, err)
			}
		}
		record := schemaMigration{Version: file.version, Name: file.name, Checksum: file.checksum}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", file.name, err)
		}
		return nil
	})
}

func readMigrationFiles(fsys fs.FS) ([]migrationFile, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	files := make([]migrationFile, 0, len(names))
	owners := make(map[int]string, len(names))
	for _, name := range names {
		matches := migrationFilePattern.FindStringSubmatch(name)
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", name, err)
		}
		if owner, taken := owners[version]; taken {
			return nil, fmt.Errorf("migration version %d used by %s and %s", version, owner, name)
		}
		owners[version] = name

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		statements := splitStatements(string(content))
		if len(statements) == 0 {
			return nil, fmt.Errorf("migration %s has no statements", name)
		}
		sum := sha256.Sum256(content)
		files = append(files, migrationFile{
			version:    version,
			name:       name,
			statements: statements,
			checksum:   hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// splitStatements breaks a migration on semicolons. Migration files must not
// put semicolons inside string literals or triggers.
func splitStatements(content string) []string {
	var statements []string
	for _, part := range strings.Split(content, ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}
