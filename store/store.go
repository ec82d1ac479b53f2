// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package store persists account snapshots in LevelDB, together with a pointer to the
// default account. Snapshots are encoded with the account's JSON form.
package store

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/log"
)

var logger = log.WithContext("pkg", "store")

var (
	ErrNotFound  = errors.New("account not stored")
	ErrNoDefault = errors.New("no default account")
)

// bucket provides a logical key space.
type bucket string

func (b bucket) key(k []byte) []byte {
	return append([]byte(b), k...)
}

const (
	accountBucket bucket = "a/"
	metaBucket    bucket = "m/"
)

var (
	defaultKey  = metaBucket.key([]byte("default"))
	keyIndexKey = metaBucket.key([]byte("keyIndex"))
)

// Store holds account snapshots keyed by address.
type Store struct {
	mu    sync.Mutex
	stg   storage.Storage // released on Close, leveldb does not own it
	db    *leveldb.DB
	cache *cache
}

// Open opens or creates the store under dir.
func Open(dir string, opts Options) (*Store, error) {
	stg, err := storage.OpenFile(dir, false)
	if err != nil {
		return nil, errors.Wrap(err, "open account store")
	}
	return open(stg, opts)
}

// OpenMem creates a store in memory.
func OpenMem(opts Options) (*Store, error) {
	return open(storage.NewMemStorage(), opts)
}

func open(stg storage.Storage, opts Options) (*Store, error) {
	db, err := openLevelDB(stg, opts.CacheSize)
	if err != nil {
		stg.Close()
		return nil, err
	}
	if opts.Entries <= 0 {
		opts.Entries = 64
	}
	c, err := newCache(opts.Entries)
	if err != nil {
		db.Close()
		stg.Close()
		return nil, err
	}
	return &Store{stg: stg, db: db, cache: c}, nil
}

// Close closes the store and releases its directory lock. Later operations will all fail.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		s.stg.Close()
		return err
	}
	return s.stg.Close()
}

// Put saves the snapshot of account, replacing any previous one. The first account stored
// becomes the default.
func (s *Store) Put(account *acct.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return errors.Wrap(err, "encode account")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := new(leveldb.Batch)
	batch.Put(accountBucket.key(account.Address[:]), data)
	if _, err := s.db.Get(defaultKey, &readOpt); isNotFound(err) {
		batch.Put(defaultKey, account.Address[:])
	} else if err != nil {
		return errors.Wrap(err, "read default account")
	}
	if err := s.db.Write(batch, &writeOpt); err != nil {
		return errors.Wrap(err, "write account")
	}
	s.cache.Add(account.Address, data)
	logger.Debug("account stored", "address", account.Address, "keyIndex", account.Key.Index)
	return nil
}

// Get returns the snapshot stored for address.
func (s *Store) Get(address common.Address) (*acct.Account, error) {
	v, err := s.cache.getOrLoad(address, func(any) (any, error) {
		data, err := s.db.Get(accountBucket.key(address[:]), &readOpt)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, errors.Wrap(err, "read account")
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return decode(v.([]byte))
}

// Has reports whether a snapshot is stored for address.
func (s *Store) Has(address common.Address) (bool, error) {
	return s.db.Has(accountBucket.key(address[:]), &readOpt)
}

// Delete removes the snapshot of address. Deleting the default account clears the pointer.
func (s *Store) Delete(address common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := new(leveldb.Batch)
	batch.Delete(accountBucket.key(address[:]))
	if def, err := s.db.Get(defaultKey, &readOpt); err == nil && common.BytesToAddress(def) == address {
		batch.Delete(defaultKey)
	}
	if err := s.db.Write(batch, &writeOpt); err != nil {
		return errors.Wrap(err, "delete account")
	}
	s.cache.Remove(address)
	return nil
}

// List returns every stored account ordered by address.
func (s *Store) List() ([]*acct.Account, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(accountBucket)), &readOpt)
	defer iter.Release()

	var accounts []*acct.Account
	for iter.Next() {
		account, err := decode(iter.Value())
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate accounts")
	}
	return accounts, nil
}

// SetDefault points the default account at address, which must be stored.
func (s *Store) SetDefault(address common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.db.Has(accountBucket.key(address[:]), &readOpt)
	if err != nil {
		return errors.Wrap(err, "read account")
	}
	if !ok {
		return ErrNotFound
	}
	return errors.Wrap(s.db.Put(defaultKey, address[:], &writeOpt), "write default account")
}

// Default returns the default account.
func (s *Store) Default() (*acct.Account, error) {
	def, err := s.db.Get(defaultKey, &readOpt)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoDefault
		}
		return nil, errors.Wrap(err, "read default account")
	}
	return s.Get(common.BytesToAddress(def))
}

// KeyIndex returns the next mnemonic derivation index, zero when none was recorded.
func (s *Store) KeyIndex() (uint32, error) {
	data, err := s.db.Get(keyIndexKey, &readOpt)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read key index")
	}
	if len(data) != 4 {
		return 0, errors.Errorf("malformed key index %x", data)
	}
	return binary.BigEndian.Uint32(data), nil
}

// SetKeyIndex records the next mnemonic derivation index.
func (s *Store) SetKeyIndex(index uint32) error {
	return errors.Wrap(s.db.Put(keyIndexKey, binary.BigEndian.AppendUint32(nil, index), &writeOpt), "write key index")
}

func decode(data []byte) (*acct.Account, error) {
	var account acct.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, errors.Wrap(err, "decode account")
	}
	return &account, nil
}
