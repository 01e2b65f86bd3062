package database

import (
	"fmt"

	"lastautoindex/pkg/migrator"

	"github.com/Data-Corruption/lmdb-go/lmdb"
	"github.com/Data-Corruption/lmdb-go/wrap"
	"github.com/Data-Corruption/stdx/xlog"
)

func migrations() *migrator.Migrator {
	m := migrator.New()

	// Order matters!

	m.Add("v1", "Initial Schema", func(txn *lmdb.Txn) error {
		if err := TxnMarshalAndPut(txn, *ConfigDBI, []byte(ConfigDataKey), DefaultPreferences()); err != nil {
			return fmt.Errorf("failed to store initial preferences: %w", err)
		}
		return nil
	})

	return m
}

// Migrate brings the schema up to date. DBI handles must already be cached.
func Migrate(db *wrap.DB, logger *xlog.Logger) error {
	m := migrations()
	return db.Update(func(txn *lmdb.Txn) error {
		currentVer := ""
		if err := TxnGetAndUnmarshal(txn, *ConfigDBI, []byte(ConfigVersionKey), &currentVer); err != nil {
			if !lmdb.IsNotFound(err) {
				return fmt.Errorf("failed to get schema version: %w", err)
			}
			currentVer = ""
		}

		newVer, err := m.Run(txn, currentVer, logger)
		if err != nil {
			return err
		}
		if newVer == currentVer {
			return nil
		}

		if err := TxnMarshalAndPut(txn, *ConfigDBI, []byte(ConfigVersionKey), newVer); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
		logger.Infof("Migrated from %q to %q", currentVer, newVer)
		return nil
	})
}
