package database

import (
	"encoding/json"
	"fmt"

	"github.com/Data-Corruption/lmdb-go/lmdb"
	"github.com/Data-Corruption/lmdb-go/wrap"
)

// TxnMarshalAndPut marshals value and stores it under key.
func TxnMarshalAndPut(txn *lmdb.Txn, dbi lmdb.DBI, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Put(dbi, key, data, 0)
}

// TxnGetAndUnmarshal reads key and unmarshals it into value.
// lmdb.IsNotFound(err) will be true if the key was not found.
func TxnGetAndUnmarshal(txn *lmdb.Txn, dbi lmdb.DBI, key []byte, value any) error {
	buf, err := txn.Get(dbi, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, value)
}

// View returns a copy of the value stored under key.
//
// WARNING: Starts a transaction. Avoid nesting transactions (will deadlock).
func View[T any](db *wrap.DB, dbi lmdb.DBI, key []byte) (*T, error) {
	var v T
	if err := db.View(func(txn *lmdb.Txn) error {
		return TxnGetAndUnmarshal(txn, dbi, key, &v)
	}); err != nil {
		return nil, err
	}
	return &v, nil
}

// Update applies fn to the value stored under key and writes it back.
//
// WARNING: Starts a transaction. Avoid nesting transactions (will deadlock).
func Update[T any](db *wrap.DB, dbi lmdb.DBI, key []byte, fn func(v *T) error) error {
	return db.Update(func(txn *lmdb.Txn) error {
		var v T
		if err := TxnGetAndUnmarshal(txn, dbi, key, &v); err != nil {
			return fmt.Errorf("failed to get %q: %w", key, err)
		}
		if err := fn(&v); err != nil {
			return fmt.Errorf("update function failed: %w", err)
		}
		if err := TxnMarshalAndPut(txn, dbi, key, v); err != nil {
			return fmt.Errorf("failed to put %q: %w", key, err)
		}
		return nil
	})
}

// ViewPreferences returns a copy of the stored preferences.
func ViewPreferences(db *wrap.DB) (*Preferences, error) {
	return View[Preferences](db, *ConfigDBI, []byte(ConfigDataKey))
}

// UpdatePreferences edits the stored preferences in a single transaction.
func UpdatePreferences(db *wrap.DB, fn func(p *Preferences) error) error {
	return Update(db, *ConfigDBI, []byte(ConfigDataKey), fn)
}
