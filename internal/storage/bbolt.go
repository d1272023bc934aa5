package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket      = []byte("config")      // KDF params, password check, timestamps
	IndexBucket       = []byte("index")       // Public collection summaries for ls/status - unencrypted
	CollectionsBucket = []byte("collections") // Collections of encrypted records
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigKDF      = []byte("kdf")
	ConfigCheck    = []byte("check")
	ConfigVaultID  = []byte("vault_id")
)

var ErrNotFound = errors.New("not found")

// Storage provides BBolt-based storage for a safe
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a safe database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure for a new safe and stores the
// KDF parameters and password check. Everything is written in one
// transaction, so a failed Initialize leaves the file uninitialized.
func (s *Storage) Initialize(kdf, check []byte) error {
	if len(kdf) == 0 || len(check) == 0 {
		return fmt.Errorf("kdf parameters and password check are required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, CollectionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigKDF, kdf); err != nil {
			return err
		}
		if err := config.Put(ConfigCheck, check); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		if err := config.Put(ConfigModified, created); err != nil {
			return err
		}
		// version marks the safe initialized, written last
		return config.Put(ConfigVersion, []byte("1"))
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// buckets returns the named buckets of tx, failing if any is missing
func buckets(tx *bolt.Tx, names ...[]byte) ([]*bolt.Bucket, error) {
	out := make([]*bolt.Bucket, len(names))
	for i, name := range names {
		out[i] = tx.Bucket(name)
		if out[i] == nil {
			return nil, fmt.Errorf("%s bucket not found", name)
		}
	}
	return out, nil
}

func (s *Storage) putConfig(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		return config.Put(key, value)
	})
}

func (s *Storage) getConfig(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(key)
		if data == nil {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		// Make a copy since the slice is only valid during the transaction
		value = append([]byte(nil), data...)
		return nil
	})
	return value, err
}

// SetKDF stores the encoded key derivation parameters
func (s *Storage) SetKDF(params []byte) error {
	return s.putConfig(ConfigKDF, params)
}

// GetKDF retrieves the encoded key derivation parameters
func (s *Storage) GetKDF() ([]byte, error) {
	return s.getConfig(ConfigKDF)
}

// SetCheck stores the encrypted password check value
func (s *Storage) SetCheck(check []byte) error {
	return s.putConfig(ConfigCheck, check)
}

// GetCheck retrieves the encrypted password check value
func (s *Storage) GetCheck() ([]byte, error) {
	return s.getConfig(ConfigCheck)
}

// UpdateModified updates the last modified timestamp
func (s *Storage) UpdateModified() error {
	modified, _ := time.Now().MarshalBinary()
	return s.putConfig(ConfigModified, modified)
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	data, err := s.getConfig(ConfigModified)
	if err != nil {
		return modified, err
	}
	err = modified.UnmarshalBinary(data)
	return modified, err
}

// GetVaultID retrieves the vault ID from config bucket
func (s *Storage) GetVaultID() (string, error) {
	data, err := s.getConfig(ConfigVaultID)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *Storage) GetOrCreateVaultID() (string, error) {
	vaultID, err := s.GetVaultID()
	if err == nil {
		return vaultID, nil
	}

	vaultID = uuid.NewString()
	if err := s.putConfig(ConfigVaultID, []byte(vaultID)); err != nil {
		return "", err
	}
	return vaultID, nil
}

// IndexEntry is the public summary of a collection
type IndexEntry struct {
	Name     string    `json:"name"`
	Records  int       `json:"records"`
	Modified time.Time `json:"modified"`
}

// PutCollection stores an encoded collection and updates its index entry
// in the same transaction
func (s *Storage) PutCollection(name string, data []byte, records int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		entry, err := json.Marshal(IndexEntry{
			Name:     name,
			Records:  records,
			Modified: time.Now(),
		})
		if err != nil {
			return err
		}
		b, err := buckets(tx, IndexBucket, CollectionsBucket)
		if err != nil {
			return err
		}
		if err := b[0].Put([]byte(name), entry); err != nil {
			return err
		}
		return b[1].Put([]byte(name), data)
	})
}

// GetCollection retrieves an encoded collection. Missing collections
// return ErrNotFound.
func (s *Storage) GetCollection(name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		collections := tx.Bucket(CollectionsBucket)
		if collections == nil {
			return fmt.Errorf("collections bucket not found")
		}
		v := collections.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("collection %s: %w", name, ErrNotFound)
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// GetAllCollections returns every encoded collection keyed by name
func (s *Storage) GetAllCollections() (map[string][]byte, error) {
	all := make(map[string][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		collections := tx.Bucket(CollectionsBucket)
		if collections == nil {
			return fmt.Errorf("collections bucket not found")
		}
		return collections.ForEach(func(k, v []byte) error {
			all[string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	return all, err
}

// DeleteCollection removes a collection and its index entry
func (s *Storage) DeleteCollection(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := buckets(tx, IndexBucket, CollectionsBucket)
		if err != nil {
			return err
		}
		index, collections := b[0], b[1]
		if collections.Get([]byte(name)) == nil {
			return fmt.Errorf("collection %s: %w", name, ErrNotFound)
		}
		if err := index.Delete([]byte(name)); err != nil {
			return err
		}
		return collections.Delete([]byte(name))
	})
}

// GetIndex returns all collection summaries sorted by name
func (s *Storage) GetIndex() ([]IndexEntry, error) {
	var entries []IndexEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		return index.ForEach(func(k, v []byte) error {
			var entry IndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, err
}

// ReplaceAll rewrites the KDF parameters, the password check and every
// collection atomically. Used when the password changes.
func (s *Storage) ReplaceAll(kdf, check []byte, collections map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := buckets(tx, ConfigBucket, CollectionsBucket)
		if err != nil {
			return err
		}
		config, bucket := b[0], b[1]
		if err := config.Put(ConfigKDF, kdf); err != nil {
			return err
		}
		if err := config.Put(ConfigCheck, check); err != nil {
			return err
		}
		for name, data := range collections {
			if err := bucket.Put([]byte(name), data); err != nil {
				return err
			}
		}
		modified, _ := time.Now().MarshalBinary()
		return config.Put(ConfigModified, modified)
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting collections to reclaim disk space.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = bolt.Compact(dst, s.db, 0)
	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
