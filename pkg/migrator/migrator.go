// Package migrator applies ordered, named schema steps inside one LMDB transaction.
package migrator

import (
	"fmt"

	"github.com/Data-Corruption/lmdb-go/lmdb"
	"github.com/Data-Corruption/stdx/xlog"
)

// Operation modifies the database.
type Operation func(txn *lmdb.Txn) error

// Migration is a single version step.
type Migration struct {
	ID   string // e.g. "v1", "20231012_add_users"
	Desc string // shown in logs
	Up   Operation
}

type Migrator struct {
	steps []Migration
	ids   map[string]int
}

func New() *Migrator {
	return &Migrator{ids: make(map[string]int)}
}

// Add appends a step. Steps run in the order they were added. Adding an ID
// twice panics, the history would be ambiguous.
func (m *Migrator) Add(id, desc string, op Operation) {
	if _, dup := m.ids[id]; dup {
		panic(fmt.Sprintf("migrator: duplicate migration id %q", id))
	}
	m.ids[id] = len(m.steps)
	m.steps = append(m.steps, Migration{ID: id, Desc: desc, Up: op})
}

// Latest returns the ID of the last step, or "" when there are none.
func (m *Migrator) Latest() string {
	if len(m.steps) == 0 {
		return ""
	}
	return m.steps[len(m.steps)-1].ID
}

// Pending returns the steps after current. An empty current means a fresh
// database. A current that isn't in the history is an error, the state of
// the database is unknown.
func (m *Migrator) Pending(current string) ([]Migration, error) {
	if current == "" {
		return m.steps, nil
	}
	i, ok := m.ids[current]
	if !ok {
		return nil, fmt.Errorf("current version %q not found in migration history; database state is unknown", current)
	}
	return m.steps[i+1:], nil
}

// Run applies all pending steps and returns the resulting version. On failure
// the returned version is the last step that succeeded. Callers should abort
// the transaction in that case.
func (m *Migrator) Run(txn *lmdb.Txn, current string, logger *xlog.Logger) (string, error) {
	pending, err := m.Pending(current)
	if err != nil {
		return current, err
	}
	version := current
	for _, step := range pending {
		if logger != nil {
			logger.Infof("Applying migration: %s - %s", step.ID, step.Desc)
		}
		if err := step.Up(txn); err != nil {
			return version, fmt.Errorf("failed to apply migration %q (%s): %w", step.ID, step.Desc, err)
		}
		version = step.ID
	}
	return version, nil
}
