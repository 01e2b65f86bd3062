package database

import (
	"time"

	"github.com/Data-Corruption/lmdb-go/lmdb"
	"github.com/Data-Corruption/lmdb-go/wrap"
)

type stateEntry struct {
	Value   string `json:"value"`
	Expires int64  `json:"expires,omitempty"` // unix seconds, 0 = never
}

// StateStore keeps update check state in the state DBI with cookie-like expiry,
// so the CLI throttles the same way a browser does.
type StateStore struct {
	DB  *wrap.DB
	Now func() time.Time // time.Now when nil
}

func NewStateStore(db *wrap.DB) *StateStore {
	return &StateStore{DB: db}
}

func (s *StateStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *StateStore) lookup(name string) (string, bool) {
	var e stateEntry
	err := s.DB.View(func(txn *lmdb.Txn) error {
		return TxnGetAndUnmarshal(txn, *StateDBI, []byte(name), &e)
	})
	if err != nil {
		return "", false
	}
	if e.Expires != 0 && !s.now().Before(time.Unix(e.Expires, 0)) {
		return "", false
	}
	return e.Value, true
}

func (s *StateStore) Exists(name string) bool {
	_, ok := s.lookup(name)
	return ok
}

func (s *StateStore) Get(name string) string {
	v, _ := s.lookup(name)
	return v
}

// Set stores value under name. A zero ttl never expires.
func (s *StateStore) Set(name, value string, ttl time.Duration) error {
	e := stateEntry{Value: value}
	if ttl > 0 {
		e.Expires = s.now().Add(ttl).Unix()
	}
	return s.DB.Update(func(txn *lmdb.Txn) error {
		return TxnMarshalAndPut(txn, *StateDBI, []byte(name), e)
	})
}

func (s *StateStore) Delete(name string) error {
	return s.DB.Update(func(txn *lmdb.Txn) error {
		if err := txn.Del(*StateDBI, []byte(name), nil); err != nil && !lmdb.IsNotFound(err) {
			return err
		}
		return nil
	})
}
