package internal

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/near-expiry-food/internal/models"
	"go.uber.org/zap"
)

//go:embed sql/upsert_directory.sql
var upsertDirectorySQL string

//go:embed sql/lookup_directory.sql
var lookupDirectorySQL string

// StoreDirectory caches per-store metadata (address, phone) that a source
// would otherwise have to look up on every search.
type StoreDirectory interface {
	// Lookup returns the cached entry, if any; fresh reports whether it is
	// younger than maxAge (a zero maxAge never expires).
	Lookup(ctx context.Context, source models.SourceID, storeName string, maxAge time.Duration) (entry *models.DirectoryEntry, fresh bool, err error)
	Save(ctx context.Context, entry models.DirectoryEntry) error
	Close() error
}

type sqliteDirectory struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

func NewStoreDirectory(db *sql.DB, logger *zap.Logger) StoreDirectory {
	return &sqliteDirectory{
		db:     db,
		now:    time.Now,
		logger: logger,
	}
}

// OpenStoreDirectory connects to (and migrates) the SQLite database at dbPath.
func OpenStoreDirectory(dbPath string, logger *zap.Logger) (StoreDirectory, error) {
	db, err := Connect(dbPath, logger)
	if err != nil {
		return nil, err
	}

	if err := Migrate(dbPath); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to migrate SQL")
	}

	return NewStoreDirectory(db, logger), nil
}

func (repo *sqliteDirectory) Lookup(ctx context.Context, source models.SourceID, storeName string, maxAge time.Duration) (*models.DirectoryEntry, bool, error) {
	var entry models.DirectoryEntry
	var src string
	err := repo.db.QueryRowContext(ctx, lookupDirectorySQL, string(source), storeName).Scan(
		&src, &entry.StoreName, &entry.StoreNo, &entry.Address, &entry.Phone, &entry.FetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to query store directory")
	}
	entry.Source = models.SourceID(src)

	if maxAge > 0 && repo.now().Sub(entry.FetchedAt) > maxAge {
		return &entry, false, nil
	}
	return &entry, true, nil
}

func (repo *sqliteDirectory) Save(ctx context.Context, entry models.DirectoryEntry) error {
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = repo.now()
	}
	entry.FetchedAt = entry.FetchedAt.UTC()

	if _, err := repo.db.ExecContext(ctx, upsertDirectorySQL, entry.ToTuple()...); err != nil {
		return errors.Wrap(err, "failed to upsert store directory entry")
	}
	return nil
}

func (repo *sqliteDirectory) Close() error {
	return repo.db.Close()
}
