package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/model"
	"github.com/illarion/safe/internal/security"
	"github.com/illarion/safe/internal/storage"
)

const (
	SafeFile            = ".safe"
	FilePermSecure      = 0600 // File: owner rw only
	passwordCheckString = "safe-password-check"
)

var (
	ErrNotInitialized   = errors.New("safe not initialized")
	ErrAlreadyExists    = errors.New("safe already exists")
	ErrWrongPassword    = errors.New("wrong password")
	ErrPasswordRequired = errors.New("password required")
	ErrNoCollection     = errors.New("no such collection")
)

// storedCollection is the persisted form of a model.Collection. Each record
// is JSON-encoded and encrypted on its own under the vault key.
type storedCollection struct {
	Name    string             `json:"name"`
	Records []crypto.Container `json:"records"`
}

// sealedRecord is the plaintext of one stored record. The record's place
// is encrypted along with it, so a record copied into another collection
// or slot fails to decrypt as that collection.
type sealedRecord struct {
	Collection string       `json:"collection"`
	Index      int          `json:"index"`
	Count      int          `json:"count"`
	Record     model.Record `json:"record"`
}

// Vault manages encrypted collections in a single bbolt file.
type Vault struct {
	path          string
	codec         *crypto.Codec
	keyLengthBits int
	logger        *slog.Logger
	validator     *security.PathValidator
}

// Option configures a Vault
type Option func(*Vault)

// WithCodec sets the codec used for key derivation and encryption
func WithCodec(c *crypto.Codec) Option {
	return func(v *Vault) {
		if c != nil {
			v.codec = c
		}
	}
}

// WithKeyLength sets the key size used for new vault keys and exports
func WithKeyLength(bits int) Option {
	return func(v *Vault) { v.keyLengthBits = bits }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(v *Vault) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Vault for the database at path. Export and import files
// are confined to the directory containing the database.
func New(path string, opts ...Option) (*Vault, error) {
	validator, err := security.New(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path validator: %w", err)
	}

	v := &Vault{
		path:          path,
		codec:         crypto.NewCodec(),
		keyLengthBits: crypto.DefaultKeyLengthBits,
		logger:        slog.New(slog.DiscardHandler),
		validator:     validator,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Close releases resources held by the Vault
func (v *Vault) Close() error {
	if v.validator != nil {
		return v.validator.Close()
	}
	return nil
}

// Path returns the database path
func (v *Vault) Path() string {
	return v.path
}

func (v *Vault) open() (*storage.Storage, error) {
	if _, err := os.Stat(v.path); err != nil {
		return nil, ErrNotInitialized
	}
	db, err := storage.Open(v.path)
	if err != nil {
		return nil, err
	}
	initialized, err := db.IsInitialized()
	if err != nil || !initialized {
		db.Close()
		return nil, ErrNotInitialized
	}
	return db, nil
}

// Init creates a new vault protected by password. The file is removed
// again if it cannot be fully initialized.
func (v *Vault) Init(password []byte) (err error) {
	if _, err := os.Stat(v.path); err == nil {
		return ErrAlreadyExists
	}

	kdf, check, key, err := v.newKey(password)
	if err != nil {
		return err
	}
	defer key.Destroy()

	db, err := storage.Open(v.path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer func() {
		db.Close()
		if err != nil {
			os.Remove(v.path)
		}
	}()

	if err := db.Initialize(kdf, check); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	v.logger.Debug("vault initialized", "path", v.path, "key", key)
	return nil
}

// newKey derives a key with a fresh salt and returns the encoded
// parameters, the encoded password check and the key itself.
func (v *Vault) newKey(password []byte) (kdf, check []byte, key *crypto.DerivedKey, err error) {
	key, err = v.codec.KDF().Derive(password, nil, v.keyLengthBits, 0)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to derive key: %w", err)
	}

	kdf, err = json.Marshal(key.Params())
	if err != nil {
		key.Destroy()
		return nil, nil, nil, fmt.Errorf("failed to encode kdf parameters: %w", err)
	}

	ct, err := v.codec.Cipher().Encrypt(key.Key, []byte(passwordCheckString))
	if err != nil {
		key.Destroy()
		return nil, nil, nil, fmt.Errorf("failed to encrypt password check: %w", err)
	}
	check, err = json.Marshal(ct)
	if err != nil {
		key.Destroy()
		return nil, nil, nil, fmt.Errorf("failed to encode password check: %w", err)
	}
	return kdf, check, key, nil
}

// unlock re-derives the vault key and verifies it against the stored check
func (v *Vault) unlock(db *storage.Storage, password []byte) (*crypto.DerivedKey, error) {
	if password == nil {
		return nil, ErrPasswordRequired
	}

	data, err := db.GetKDF()
	if err != nil {
		return nil, fmt.Errorf("failed to read kdf parameters: %w", err)
	}
	var params crypto.DerivationParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to decode kdf parameters: %w", err)
	}

	key, err := v.codec.KDF().DeriveParams(password, params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	checkData, err := db.GetCheck()
	if err != nil {
		key.Destroy()
		return nil, fmt.Errorf("failed to read password check: %w", err)
	}
	check, err := crypto.ParseContainer(checkData)
	if err != nil {
		key.Destroy()
		return nil, fmt.Errorf("failed to decode password check: %w", err)
	}

	plaintext, err := v.codec.Cipher().Decrypt(key.Key, check)
	if err != nil || !crypto.ConstantTimeCompare(plaintext, []byte(passwordCheckString)) {
		key.Destroy()
		return nil, ErrWrongPassword
	}
	return key, nil
}

// VerifyPassword checks if the password is correct for this vault
func (v *Vault) VerifyPassword(password []byte) error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	key, err := v.unlock(db, password)
	if err != nil {
		return err
	}
	key.Destroy()
	return nil
}

// encryptCollection encrypts every record of coll in parallel
func (v *Vault) encryptCollection(ctx context.Context, key []byte, coll *model.Collection) ([]byte, error) {
	stored := storedCollection{
		Name:    coll.Name,
		Records: make([]crypto.Container, len(coll.Records)),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, record := range coll.Records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plaintext, err := json.Marshal(sealedRecord{
				Collection: coll.Name,
				Index:      i,
				Count:      len(coll.Records),
				Record:     record,
			})
			if err != nil {
				return fmt.Errorf("failed to encode record %s: %w", record.Name, err)
			}
			defer crypto.ClearBytes(plaintext)

			ct, err := v.codec.Cipher().Encrypt(key, plaintext)
			if err != nil {
				return fmt.Errorf("failed to encrypt record %s: %w", record.Name, err)
			}
			stored.Records[i] = ct
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return json.Marshal(stored)
}

// decryptCollection reverses encryptCollection. data must have been
// stored as the collection called name.
func (v *Vault) decryptCollection(ctx context.Context, key []byte, name string, data []byte) (*model.Collection, error) {
	var stored storedCollection
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	if stored.Name != name {
		return nil, fmt.Errorf("%w: collection %s is stored as %q", crypto.ErrIntegrity, name, stored.Name)
	}

	coll := model.NewCollection(name)
	coll.Records = make([]model.Record, len(stored.Records))

	g, ctx := errgroup.WithContext(ctx)
	for i, ct := range stored.Records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plaintext, err := v.codec.Cipher().Decrypt(key, ct)
			if err != nil {
				return fmt.Errorf("failed to decrypt record %d of %s: %w", i, name, err)
			}
			defer crypto.ClearBytes(plaintext)

			var sealed sealedRecord
			if err := json.Unmarshal(plaintext, &sealed); err != nil {
				return fmt.Errorf("failed to decode record %d of %s: %w", i, name, err)
			}
			if sealed.Collection != name || sealed.Index != i || sealed.Count != len(stored.Records) {
				return fmt.Errorf("%w: record %d of %s is out of place", crypto.ErrIntegrity, i, name)
			}
			coll.Records[i] = sealed.Record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return coll, nil
}

// Fetch decrypts the named collection. A collection that was never saved
// is returned empty.
func (v *Vault) Fetch(ctx context.Context, name string, password []byte) (*model.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	key, err := v.unlock(db, password)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	return v.fetch(ctx, db, key.Key, name)
}

func (v *Vault) fetch(ctx context.Context, db *storage.Storage, key []byte, name string) (*model.Collection, error) {
	data, err := db.GetCollection(name)
	if errors.Is(err, storage.ErrNotFound) {
		return model.NewCollection(name), nil
	}
	if err != nil {
		return nil, err
	}
	return v.decryptCollection(ctx, key, name, data)
}

// Save encrypts and stores coll, replacing any previous version
func (v *Vault) Save(ctx context.Context, coll *model.Collection, password []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if coll.Name == "" {
		return fmt.Errorf("collection name is empty")
	}

	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	key, err := v.unlock(db, password)
	if err != nil {
		return err
	}
	defer key.Destroy()

	data, err := v.encryptCollection(ctx, key.Key, coll)
	if err != nil {
		return err
	}

	if err := db.PutCollection(coll.Name, data, coll.Len()); err != nil {
		return fmt.Errorf("failed to store collection: %w", err)
	}

	v.logger.Debug("collection saved", "collection", coll.Name, "records", coll.Len())
	return db.UpdateModified()
}

// RemoveCollection deletes a collection after verifying the password
func (v *Vault) RemoveCollection(ctx context.Context, name string, password []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	key, err := v.unlock(db, password)
	if err != nil {
		return err
	}
	key.Destroy()

	if err := db.DeleteCollection(name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNoCollection, name)
		}
		return err
	}
	return db.UpdateModified()
}

// ChangePassword re-encrypts every collection under a key derived from
// newPassword with a fresh salt. All changes are written in one transaction.
func (v *Vault) ChangePassword(ctx context.Context, currentPassword, newPassword []byte) error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	oldKey, err := v.unlock(db, currentPassword)
	if err != nil {
		return err
	}
	defer oldKey.Destroy()

	kdf, check, newKey, err := v.newKey(newPassword)
	if err != nil {
		return err
	}
	defer newKey.Destroy()

	all, err := db.GetAllCollections()
	if err != nil {
		return fmt.Errorf("failed to read collections: %w", err)
	}

	reencrypted := make(map[string][]byte, len(all))
	for name, data := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		coll, err := v.decryptCollection(ctx, oldKey.Key, name, data)
		if err != nil {
			return err
		}
		out, err := v.encryptCollection(ctx, newKey.Key, coll)
		if err != nil {
			return err
		}
		reencrypted[name] = out
	}

	if err := db.ReplaceAll(kdf, check, reencrypted); err != nil {
		return fmt.Errorf("failed to store re-encrypted vault: %w", err)
	}

	v.logger.Info("password changed", "collections", len(reencrypted))
	return nil
}

// Collections lists the collection summaries (no password required)
func (v *Vault) Collections() ([]storage.IndexEntry, error) {
	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.GetIndex()
}

// StatusInfo contains status information
type StatusInfo struct {
	Collections   []storage.IndexEntry
	Modified      time.Time
	Algorithm     string
	KDFIterations int
	KeyLengthBits int
}

// Status returns the current status (no password required)
func (v *Vault) Status(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	status := &StatusInfo{Algorithm: "PBKDF2-HMAC-SHA256 / AES-GCM"}

	// Not critical
	status.Modified, _ = db.GetModified()

	if data, err := db.GetKDF(); err == nil {
		var params crypto.DerivationParams
		if err := json.Unmarshal(data, &params); err == nil {
			status.KDFIterations = params.Iterations
			status.KeyLengthBits = params.KeyLengthBits
		}
	}

	status.Collections, err = db.GetIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return status, nil
}

// Compact compacts the database to reclaim unused space.
func (v *Vault) Compact() error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Compact()
}

// GetVaultID retrieves the vault ID from storage
func (v *Vault) GetVaultID() (string, error) {
	db, err := v.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetVaultID()
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (v *Vault) GetOrCreateVaultID() (string, error) {
	db, err := v.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetOrCreateVaultID()
}
