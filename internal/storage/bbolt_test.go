package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

var (
	testKDF   = []byte(`{"salt":"c2FsdA==","iterations":1000,"keyLengthBits":256}`)
	testCheck = []byte("check0")
)

func openTest(t *testing.T) *Storage {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.safe"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(testKDF, testCheck); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db
}

func TestOpenAndInitialize(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.safe"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(testKDF, testCheck); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}

	if _, err := db.GetModified(); err != nil {
		t.Errorf("Failed to get modified time: %v", err)
	}
}

func TestKDFAndCheck(t *testing.T) {
	db := openTest(t)

	// Initialize stores both values
	if got, err := db.GetKDF(); err != nil || string(got) != string(testKDF) {
		t.Errorf("GetKDF after Initialize = %s, %v", got, err)
	}
	if got, err := db.GetCheck(); err != nil || string(got) != string(testCheck) {
		t.Errorf("GetCheck after Initialize = %s, %v", got, err)
	}

	params := []byte(`{"salt":"c2FsdDI=","iterations":2000,"keyLengthBits":128}`)
	if err := db.SetKDF(params); err != nil {
		t.Fatalf("Failed to set kdf: %v", err)
	}
	got, err := db.GetKDF()
	if err != nil {
		t.Fatalf("Failed to get kdf: %v", err)
	}
	if string(got) != string(params) {
		t.Errorf("KDF mismatch: got %s, want %s", got, params)
	}

	check := []byte("encrypted check")
	if err := db.SetCheck(check); err != nil {
		t.Fatalf("Failed to set check: %v", err)
	}
	got, err = db.GetCheck()
	if err != nil {
		t.Fatalf("Failed to get check: %v", err)
	}
	if string(got) != string(check) {
		t.Errorf("Check mismatch: got %s, want %s", got, check)
	}
}

func TestVaultID(t *testing.T) {
	db := openTest(t)

	if _, err := db.GetVaultID(); err == nil {
		t.Error("Expected error before vault ID exists")
	}

	id, err := db.GetOrCreateVaultID()
	if err != nil {
		t.Fatalf("Failed to create vault ID: %v", err)
	}
	if id == "" {
		t.Fatal("Vault ID should not be empty")
	}

	again, err := db.GetOrCreateVaultID()
	if err != nil {
		t.Fatalf("Failed to get vault ID: %v", err)
	}
	if again != id {
		t.Errorf("Vault ID changed: got %s, want %s", again, id)
	}
}

func TestCollectionOperations(t *testing.T) {
	db := openTest(t)

	if err := db.PutCollection("work", []byte("work data"), 2); err != nil {
		t.Fatalf("Failed to put collection: %v", err)
	}
	if err := db.PutCollection("home", []byte("home data"), 1); err != nil {
		t.Fatalf("Failed to put collection: %v", err)
	}

	data, err := db.GetCollection("work")
	if err != nil {
		t.Fatalf("Failed to get collection: %v", err)
	}
	if string(data) != "work data" {
		t.Errorf("Data mismatch: got %s, want work data", data)
	}

	index, err := db.GetIndex()
	if err != nil {
		t.Fatalf("Failed to get index: %v", err)
	}
	if len(index) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(index))
	}
	if index[0].Name != "home" || index[1].Name != "work" {
		t.Errorf("Index not sorted: %+v", index)
	}
	if index[1].Records != 2 {
		t.Errorf("Record count mismatch: got %d, want 2", index[1].Records)
	}

	if err := db.DeleteCollection("work"); err != nil {
		t.Fatalf("Failed to delete collection: %v", err)
	}
	if _, err := db.GetCollection("work"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := db.DeleteCollection("work"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}

	index, err = db.GetIndex()
	if err != nil {
		t.Fatalf("Failed to get index: %v", err)
	}
	if len(index) != 1 {
		t.Errorf("Expected 1 entry after delete, got %d", len(index))
	}
}

func TestReplaceAll(t *testing.T) {
	db := openTest(t)

	if err := db.PutCollection("a", []byte("old"), 1); err != nil {
		t.Fatalf("Failed to put collection: %v", err)
	}

	err := db.ReplaceAll([]byte("kdf2"), []byte("check2"), map[string][]byte{"a": []byte("new")})
	if err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	data, _ := db.GetCollection("a")
	if string(data) != "new" {
		t.Errorf("Collection not replaced: %s", data)
	}
	kdf, _ := db.GetKDF()
	if string(kdf) != "kdf2" {
		t.Errorf("KDF not replaced: %s", kdf)
	}
	check, _ := db.GetCheck()
	if string(check) != "check2" {
		t.Errorf("Check not replaced: %s", check)
	}
}

func TestPersistenceAndCompact(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.safe")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Initialize(testKDF, testCheck); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	if err := db.PutCollection("keep", []byte("data"), 1); err != nil {
		t.Fatalf("Failed to put collection: %v", err)
	}
	if err := db.PutCollection("drop", make([]byte, 64*1024), 1); err != nil {
		t.Fatalf("Failed to put collection: %v", err)
	}
	if err := db.DeleteCollection("drop"); err != nil {
		t.Fatalf("Failed to delete collection: %v", err)
	}
	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	db.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	data, err := db2.GetCollection("keep")
	if err != nil {
		t.Fatalf("Failed to get collection: %v", err)
	}
	if string(data) != "data" {
		t.Error("Collection data not persisted correctly")
	}
}

func TestInitializeRequiresKDFAndCheck(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.safe"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(nil, testCheck); err == nil {
		t.Error("Initialize without kdf parameters should fail")
	}
	if err := db.Initialize(testKDF, nil); err == nil {
		t.Error("Initialize without password check should fail")
	}

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Failed Initialize must leave the database uninitialized")
	}
}

func TestMissingBucketsReturnErrors(t *testing.T) {
	// An opened but never initialized file has no buckets
	db, err := Open(filepath.Join(t.TempDir(), "test.safe"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.DeleteCollection("work"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteCollection: expected bucket error, got %v", err)
	}
	if err := db.PutCollection("work", []byte("data"), 1); err == nil {
		t.Error("PutCollection: expected bucket error")
	}
	if err := db.ReplaceAll(testKDF, testCheck, map[string][]byte{"work": []byte("data")}); err == nil {
		t.Error("ReplaceAll: expected bucket error")
	}
	if _, err := db.GetCollection("work"); err == nil {
		t.Error("GetCollection: expected bucket error")
	}
}
