package database

import (
	"path/filepath"
	"testing"

	"github.com/Data-Corruption/lmdb-go/lmdb"
	"github.com/Data-Corruption/lmdb-go/wrap"
	"github.com/Data-Corruption/stdx/xlog"
)

func newTestLogger(t *testing.T) *xlog.Logger {
	t.Helper()
	logger, err := xlog.New(filepath.Join(t.TempDir(), "logs"), "debug")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")
	logger := newTestLogger(t)

	// database.New() migrates on its own, open raw so Migrate() is called explicitly.
	openRawDB := func() *wrap.DB {
		db, _, err := wrap.New(dbPath, DBINameList())
		if err != nil {
			t.Fatalf("Failed to open raw DB: %v", err)
		}
		cacheDBIs(db)
		return db
	}

	readVersion := func(db *wrap.DB) string {
		var version string
		if err := db.View(func(txn *lmdb.Txn) error {
			return TxnGetAndUnmarshal(txn, *ConfigDBI, []byte(ConfigVersionKey), &version)
		}); err != nil {
			t.Fatalf("Failed to read version: %v", err)
		}
		return version
	}

	t.Run("Initial Schema", func(t *testing.T) {
		db := openRawDB()
		defer db.Close()

		if err := Migrate(db, logger); err != nil {
			t.Fatalf("Migrate() failed: %v", err)
		}

		prefs, err := ViewPreferences(db)
		if err != nil {
			t.Fatalf("Failed to read preferences: %v", err)
		}
		if !prefs.UpdateNotifications {
			t.Errorf("Expected update notifications enabled by default")
		}
		if prefs.LatestSeen != "" {
			t.Errorf("Expected empty LatestSeen, got %q", prefs.LatestSeen)
		}
		if v := readVersion(db); v != "v1" {
			t.Errorf("Expected version v1, got %s", v)
		}
	})

	t.Run("Idempotency", func(t *testing.T) {
		db := openRawDB()
		defer db.Close()

		if err := UpdatePreferences(db, func(p *Preferences) error {
			p.UpdateNotifications = false
			return nil
		}); err != nil {
			t.Fatalf("UpdatePreferences() failed: %v", err)
		}

		if err := Migrate(db, logger); err != nil {
			t.Fatalf("Second Migrate() failed: %v", err)
		}
		if v := readVersion(db); v != "v1" {
			t.Errorf("Expected version v1, got %s", v)
		}
		prefs, err := ViewPreferences(db)
		if err != nil {
			t.Fatalf("Failed to read preferences: %v", err)
		}
		if prefs.UpdateNotifications {
			t.Errorf("Second migration must not reset preferences")
		}
	})

	t.Run("Unknown version", func(t *testing.T) {
		db := openRawDB()
		defer db.Close()

		if err := db.Update(func(txn *lmdb.Txn) error {
			return TxnMarshalAndPut(txn, *ConfigDBI, []byte(ConfigVersionKey), "v99")
		}); err != nil {
			t.Fatalf("Failed to write version: %v", err)
		}
		if err := Migrate(db, logger); err == nil {
			t.Errorf("Expected Migrate() to fail on a version it doesn't know")
		}
	})
}
