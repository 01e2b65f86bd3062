// Package database manages the LMDB environment that backs the CLI side of the app:
// persisted preferences and the update check state used when no browser is around.
package database

import (
	"github.com/Data-Corruption/lmdb-go/lmdb"
	"github.com/Data-Corruption/lmdb-go/wrap"
	"github.com/Data-Corruption/stdx/xlog"
)

/*
Notes on adding new DBIs:
  - Existing data is preserved, no migration is needed.
  - Removing a DBI from the list won't delete it from the LMDB file.
  - MaxNamedDBs is set to 128 in Data-Corruption/lmdb-go/wrap.
*/
var (
	ConfigDBI = register("config")
	StateDBI  = register("state")
)

/* KV Layout:

Config
    "version" -> schema version string (not app version)
    "data"    -> marshaled Preferences
State
    "<name>"  -> marshaled stateEntry, one per update cookie name

*/

const (
	ConfigVersionKey = "version"
	ConfigDataKey    = "data"
)

type dbiEntry struct {
	name   string
	handle *lmdb.DBI
}

// populated at init time via register()
var dbiRegistry []dbiEntry

func register(name string) *lmdb.DBI {
	handle := new(lmdb.DBI)
	dbiRegistry = append(dbiRegistry, dbiEntry{name: name, handle: handle})
	return handle
}

// DBINameList returns all registered DBI names.
func DBINameList() []string {
	names := make([]string, len(dbiRegistry))
	for i, entry := range dbiRegistry {
		names[i] = entry.name
	}
	return names
}

// New opens the environment in directory, caches DBI handles and migrates.
func New(directory string, logger *xlog.Logger) (*wrap.DB, error) {
	db, srClosed, err := wrap.New(directory, DBINameList())
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	logger.Infof("LMDB initialized at %s", directory)
	if srClosed > 0 {
		logger.Warnf("LMDB had %d stale readers which were closed", srClosed)
	}

	cacheDBIs(db)

	if err := Migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func cacheDBIs(db *wrap.DB) {
	dbis := db.GetDBis()
	for _, entry := range dbiRegistry {
		*entry.handle = dbis[entry.name]
	}
}
