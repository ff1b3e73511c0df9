package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/dbx"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/models"
	"github.com/Individual-1/notifier/internal/repositories/configs"
	"github.com/Individual-1/notifier/internal/repositories/friends"
	"github.com/Individual-1/notifier/internal/repositories/users"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Store is the ConfigStore: schema-checked config entries plus the user and
// friends tables.
type Store struct {
	db      *sql.DB
	dialect dbx.Dialect
	log     logging.Logger
	now     func() time.Time
}

// Open connects to dsn with the driver for dialect and applies migrations.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", dialect, err)
	}
	if dialect == dbx.DialectSQLite {
		// one writer keeps SQLite from reporting SQLITE_BUSY under concurrent envelopes
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach %s store: %w", dialect, err)
	}

	if err := RunMigrations(ctx, db, dialect, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	return New(db, dialect, log), nil
}

// New wraps an already migrated database.
func New(db *sql.DB, dialect dbx.Dialect, log logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{
		db:      db,
		dialect: dialect,
		log:     log.With("module", "store"),
		now:     time.Now,
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) configs(db dbx.DBTX) configs.Repository {
	return configs.NewSQLRepository(db, s.dialect)
}

func (s *Store) users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, s.dialect)
}

func (s *Store) friends(db dbx.DBTX) friends.Repository {
	return friends.NewSQLRepository(db, s.dialect)
}

// Get returns the entry stored under key, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, key string) (*models.ConfigEntry, error) {
	if _, ok := models.Spec(key); !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownKey, key)
	}

	e, err := s.configs(s.db).Get(ctx, key)
	if err != nil || e == nil {
		return nil, err
	}

	if err := models.CheckValid(key, e); err != nil {
		s.log.Error(ctx, "stored config entry failed schema check", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrCorrupt, err)
	}
	return e, nil
}

// GetBulk returns one slot per key, nil where the key is absent.
func (s *Store) GetBulk(ctx context.Context, keys []string) ([]*models.ConfigEntry, error) {
	result := make([]*models.ConfigEntry, len(keys))
	for i, k := range keys {
		e, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// Put stores entry under its own key and returns that key.
func (s *Store) Put(ctx context.Context, entry *models.ConfigEntry) (string, error) {
	key := ""
	if entry != nil {
		key = entry.Key
	}
	if err := models.CheckValid(key, entry); err != nil {
		return "", err
	}

	if err := s.configs(s.db).Put(ctx, entry); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.configs(s.db).Delete(ctx, key)
}

// DeleteEncrypted removes saltCrypt, the client secret and both tokens.
func (s *Store) DeleteEncrypted(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.configs(tx).DeleteKeys(ctx, models.EncryptedKeys)
	})
}

// RotateSalt purges every encrypted entry and stores salt in one transaction.
func (s *Store) RotateSalt(ctx context.Context, salt []byte) error {
	entry := models.NewBytesEntry(models.KeySalt, salt)
	if err := models.CheckValid(models.KeySalt, entry); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.configs(tx)
		if err := repo.DeleteKeys(ctx, models.EncryptedKeys); err != nil {
			return err
		}
		return repo.Put(ctx, entry)
	})
}

// ResetVault deletes the salt and every encrypted entry in one transaction.
func (s *Store) ResetVault(ctx context.Context) error {
	keys := append([]string{models.KeySalt}, models.EncryptedKeys...)
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.configs(tx).DeleteKeys(ctx, keys)
	})
}

// GetUser returns (nil, nil) for an untracked user.
func (s *Store) GetUser(ctx context.Context, userName string) (*models.User, error) {
	return s.users(s.db).Get(ctx, userName)
}

// AddUser inserts a new user; common.ErrAlreadyExists on a name clash.
func (s *Store) AddUser(ctx context.Context, user *models.User) error {
	return s.users(s.db).Insert(ctx, user)
}

// PutUser updates cursor and flags of an existing user.
func (s *Store) PutUser(ctx context.Context, user *models.User) error {
	return s.users(s.db).Update(ctx, user)
}

func (s *Store) DeleteUser(ctx context.Context, userName string) (bool, error) {
	return s.users(s.db).Delete(ctx, userName)
}

func (s *Store) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.users(s.db).List(ctx)
}

func (s *Store) GetFriends(ctx context.Context) (*models.Friends, error) {
	return s.friends(s.db).Get(ctx)
}

func (s *Store) PutFriends(ctx context.Context, f *models.Friends) error {
	return s.friends(s.db).Put(ctx, f)
}

// UpdateFriends advances the friends cursors; false when the feed is off.
func (s *Store) UpdateFriends(ctx context.Context, f *models.Friends) (bool, error) {
	return s.friends(s.db).UpdateCursors(ctx, f)
}

func (s *Store) DeleteFriends(ctx context.Context) (bool, error) {
	return s.friends(s.db).Delete(ctx)
}

// Snapshot copies every row of the store. Rows that fail the schema check
// abort the snapshot.
func (s *Store) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		Version:   models.SnapshotVersion,
		CreatedAt: s.now().UTC(),
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		entries, err := s.configs(tx).List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := models.CheckValid(e.Key, e); err != nil {
				return fmt.Errorf("%w: %w", common.ErrCorrupt, err)
			}
			snap.Config = append(snap.Config, e.ToSnapshot())
		}

		if snap.Users, err = s.users(tx).List(ctx); err != nil {
			return err
		}

		snap.Friends, err = s.friends(tx).Get(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Restore replaces the whole store content with snap. Every config entry is
// validated before anything is written.
func (s *Store) Restore(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	if snap.Version != models.SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	entries := make([]*models.ConfigEntry, 0, len(snap.Config))
	for _, c := range snap.Config {
		e := c.Entry()
		if err := models.CheckValid(e.Key, e); err != nil {
			return err
		}
		entries = append(entries, e)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cfg, usr, fr := s.configs(tx), s.users(tx), s.friends(tx)

		if err := cfg.Clear(ctx); err != nil {
			return err
		}
		if err := usr.Clear(ctx); err != nil {
			return err
		}
		if _, err := fr.Delete(ctx); err != nil {
			return err
		}

		for _, e := range entries {
			if err := cfg.Put(ctx, e); err != nil {
				return err
			}
		}
		for i := range snap.Users {
			if err := usr.Insert(ctx, &snap.Users[i]); err != nil {
				return err
			}
		}
		if snap.Friends != nil {
			f := *snap.Friends
			if err := fr.Put(ctx, &f); err != nil {
				return err
			}
		}
		return nil
	})
}
