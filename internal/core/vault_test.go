package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/model"
	"github.com/illarion/safe/internal/storage"
)

const testIterations = 1000

func newTestVault(t *testing.T, dir string) *Vault {
	t.Helper()
	v, err := New(filepath.Join(dir, SafeFile),
		WithCodec(crypto.NewCodec(crypto.WithIterations(testIterations))))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func initTestVault(t *testing.T, password []byte) (*Vault, string) {
	t.Helper()
	dir := t.TempDir()
	v := newTestVault(t, dir)
	if err := v.Init(password); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return v, dir
}

func sampleCollection(name string) *model.Collection {
	coll := model.NewCollection(name)
	coll.Add(
		model.NewRecord("github", model.Field{Name: "user", Value: "octo"}, model.Field{Name: "password", Value: "s3cret"}),
		model.NewRecord("mail", model.Field{Name: "password", Value: "hunter2"}),
	)
	return coll
}

func TestInit(t *testing.T) {
	password := []byte("test123")
	v, dir := initTestVault(t, password)

	if err := v.Init(password); err != ErrAlreadyExists {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, SafeFile)); err != nil {
		t.Errorf("Safe file should exist: %v", err)
	}

	if err := v.VerifyPassword(password); err != nil {
		t.Errorf("VerifyPassword failed: %v", err)
	}
	if err := v.VerifyPassword([]byte("wrong")); err != ErrWrongPassword {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	if err := v.VerifyPassword(nil); err != ErrPasswordRequired {
		t.Errorf("Expected ErrPasswordRequired, got %v", err)
	}
}

func TestInitFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SafeFile)

	bad, err := New(path,
		WithCodec(crypto.NewCodec(crypto.WithIterations(testIterations))),
		WithKeyLength(100))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer bad.Close()

	if err := bad.Init([]byte("test123")); !errors.Is(err, crypto.ErrInvalidParameter) {
		t.Fatalf("Expected ErrInvalidParameter, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Failed Init must not leave a safe file, stat: %v", err)
	}

	// A retry with valid settings succeeds
	v := newTestVault(t, dir)
	if err := v.Init([]byte("test123")); err != nil {
		t.Fatalf("Init after failed Init: %v", err)
	}
	if err := v.VerifyPassword([]byte("test123")); err != nil {
		t.Errorf("VerifyPassword failed: %v", err)
	}
}

func TestNotInitialized(t *testing.T) {
	v := newTestVault(t, t.TempDir())
	ctx := context.Background()

	if _, err := v.Fetch(ctx, "web", []byte("pw")); err != ErrNotInitialized {
		t.Errorf("Fetch: expected ErrNotInitialized, got %v", err)
	}
	if _, err := v.Collections(); err != ErrNotInitialized {
		t.Errorf("Collections: expected ErrNotInitialized, got %v", err)
	}
	if err := v.VerifyPassword([]byte("pw")); err != ErrNotInitialized {
		t.Errorf("VerifyPassword: expected ErrNotInitialized, got %v", err)
	}
}

func TestSaveFetch(t *testing.T) {
	password := []byte("test123")
	v, _ := initTestVault(t, password)
	ctx := context.Background()

	// Missing collections come back empty
	empty, err := v.Fetch(ctx, "web", password)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if empty.Name != "web" || empty.Len() != 0 {
		t.Errorf("Expected empty collection web, got %+v", empty)
	}

	coll := sampleCollection("web")
	if err := v.Save(ctx, coll, password); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := v.Fetch(ctx, "web", password)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("Expected 2 records, got %d", got.Len())
	}
	for i, record := range coll.Records {
		if got.Records[i].ID != record.ID || got.Records[i].Name != record.Name {
			t.Errorf("record %d: got %s/%s, want %s/%s", i, got.Records[i].ID, got.Records[i].Name, record.ID, record.Name)
		}
	}
	if pw, _ := got.Records[0].Get("password"); pw != "s3cret" {
		t.Errorf("Expected s3cret, got %q", pw)
	}

	if _, err := v.Fetch(ctx, "web", []byte("wrong")); err != ErrWrongPassword {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	if err := v.Save(ctx, coll, []byte("wrong")); err != ErrWrongPassword {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
}

func TestRecordsNotStoredInPlaintext(t *testing.T) {
	password := []byte("test123")
	v, dir := initTestVault(t, password)

	if err := v.Save(context.Background(), sampleCollection("web"), password); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, SafeFile))
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"s3cret", "hunter2"} {
		if strings.Contains(string(raw), secret) {
			t.Errorf("database contains plaintext %q", secret)
		}
	}
}

func TestTamperedCollectionsRejected(t *testing.T) {
	password := []byte("test123")
	ctx := context.Background()

	personal := model.NewCollection("personal")
	personal.Add(model.NewRecord("bank", model.Field{Name: "pin", Value: "1234"}))

	readStored := func(t *testing.T, db *storage.Storage, name string) storedCollection {
		t.Helper()
		data, err := db.GetCollection(name)
		if err != nil {
			t.Fatalf("GetCollection(%s): %v", name, err)
		}
		var stored storedCollection
		if err := json.Unmarshal(data, &stored); err != nil {
			t.Fatal(err)
		}
		return stored
	}
	writeStored := func(t *testing.T, db *storage.Storage, name string, stored storedCollection) {
		t.Helper()
		data, err := json.Marshal(stored)
		if err != nil {
			t.Fatal(err)
		}
		if err := db.PutCollection(name, data, len(stored.Records)); err != nil {
			t.Fatalf("PutCollection(%s): %v", name, err)
		}
	}

	tests := []struct {
		name     string
		tampered string
		tamper   func(t *testing.T, db *storage.Storage)
	}{
		{
			name:     "collection copied over another",
			tampered: "personal",
			tamper:   func(t *testing.T, db *storage.Storage) {
				writeStored(t, db, "personal", readStored(t, db, "work"))
			},
		},
		{
			name:     "records moved under another name",
			tampered: "personal",
			tamper:   func(t *testing.T, db *storage.Storage) {
				stored := readStored(t, db, "work")
				stored.Name = "personal"
				writeStored(t, db, "personal", stored)
			},
		},
		{
			name:     "records reordered",
			tampered: "work",
			tamper:   func(t *testing.T, db *storage.Storage) {
				stored := readStored(t, db, "work")
				stored.Records[0], stored.Records[1] = stored.Records[1], stored.Records[0]
				writeStored(t, db, "work", stored)
			},
		},
		{
			name:     "record dropped",
			tampered: "work",
			tamper:   func(t *testing.T, db *storage.Storage) {
				stored := readStored(t, db, "work")
				stored.Records = stored.Records[:1]
				writeStored(t, db, "work", stored)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, dir := initTestVault(t, password)
			if err := v.Save(ctx, sampleCollection("work"), password); err != nil {
				t.Fatalf("Save work failed: %v", err)
			}
			if err := v.Save(ctx, personal, password); err != nil {
				t.Fatalf("Save personal failed: %v", err)
			}

			db, err := storage.Open(filepath.Join(dir, SafeFile))
			if err != nil {
				t.Fatal(err)
			}
			tt.tamper(t, db)
			db.Close()

			for _, name := range []string{"work", "personal"} {
				coll, err := v.Fetch(ctx, name, password)
				if name == tt.tampered {
					if !errors.Is(err, crypto.ErrIntegrity) {
						t.Errorf("Fetch(%s): expected ErrIntegrity, got %v", name, err)
					}
					continue
				}
				if err != nil {
					t.Errorf("Fetch(%s) of untouched collection failed: %v", name, err)
				} else if coll.Name != name {
					t.Errorf("Fetch(%s) returned collection %q", name, coll.Name)
				}
			}
		})
	}
}

func TestCollectionsAndStatus(t *testing.T) {
	password := []byte("test123")
	v, _ := initTestVault(t, password)
	ctx := context.Background()

	for _, name := range []string{"web", "bank"} {
		if err := v.Save(ctx, sampleCollection(name), password); err != nil {
			t.Fatalf("Save %s failed: %v", name, err)
		}
	}

	entries, err := v.Collections()
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "bank" || entries[1].Name != "web" {
		t.Fatalf("Expected [bank web], got %+v", entries)
	}
	if entries[0].Records != 2 {
		t.Errorf("Expected 2 records, got %d", entries[0].Records)
	}

	status, err := v.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.KDFIterations != testIterations {
		t.Errorf("Expected %d iterations, got %d", testIterations, status.KDFIterations)
	}
	if status.KeyLengthBits != crypto.DefaultKeyLengthBits {
		t.Errorf("Expected %d bits, got %d", crypto.DefaultKeyLengthBits, status.KeyLengthBits)
	}
	if len(status.Collections) != 2 {
		t.Errorf("Expected 2 collections, got %d", len(status.Collections))
	}
}

func TestRemoveCollection(t *testing.T) {
	password := []byte("test123")
	v, _ := initTestVault(t, password)
	ctx := context.Background()

	if err := v.Save(ctx, sampleCollection("web"), password); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := v.RemoveCollection(ctx, "web", []byte("wrong")); err != ErrWrongPassword {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
	if err := v.RemoveCollection(ctx, "web", password); err != nil {
		t.Fatalf("RemoveCollection failed: %v", err)
	}
	if err := v.RemoveCollection(ctx, "web", password); !errors.Is(err, ErrNoCollection) {
		t.Errorf("Expected ErrNoCollection, got %v", err)
	}

	entries, _ := v.Collections()
	if len(entries) != 0 {
		t.Errorf("Expected no collections, got %+v", entries)
	}
}

func TestChangePassword(t *testing.T) {
	oldPassword := []byte("old-password")
	newPassword := []byte("new-password")
	v, _ := initTestVault(t, oldPassword)
	ctx := context.Background()

	for _, name := range []string{"web", "bank"} {
		if err := v.Save(ctx, sampleCollection(name), oldPassword); err != nil {
			t.Fatalf("Save %s failed: %v", name, err)
		}
	}

	if err := v.ChangePassword(ctx, []byte("wrong"), newPassword); err != ErrWrongPassword {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}

	if err := v.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if err := v.VerifyPassword(oldPassword); err != ErrWrongPassword {
		t.Errorf("old password should no longer work, got %v", err)
	}
	for _, name := range []string{"web", "bank"} {
		coll, err := v.Fetch(ctx, name, newPassword)
		if err != nil {
			t.Fatalf("Fetch %s with new password failed: %v", name, err)
		}
		if pw, _ := coll.Records[1].Get("password"); pw != "hunter2" {
			t.Errorf("%s: expected hunter2, got %q", name, pw)
		}
	}
}

func TestExportImport(t *testing.T) {
	password := []byte("test123")
	src, srcDir := initTestVault(t, password)
	ctx := context.Background()

	if err := src.Save(ctx, sampleCollection("web"), password); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := src.Export(ctx, "web", password, "web.json"); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	exported, err := os.ReadFile(filepath.Join(srcDir, "web.json"))
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	ct, err := crypto.ParseContainer(exported)
	if err != nil {
		t.Fatalf("export is not a container: %v", err)
	}
	if !ct.HasDerivationParams() {
		t.Error("export should carry derivation parameters")
	}

	// Re-import into the same vault under another name
	plan, err := src.Import(ctx, "web-copy", password, "web.json")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !plan.Changed() {
		t.Error("import into empty collection should be a change")
	}
	diff := plan.Diff(false)
	if !strings.Contains(diff, "+[github]") {
		t.Errorf("diff should add github record:\n%s", diff)
	}
	if strings.Contains(diff, "s3cret") {
		t.Errorf("masked diff leaks values:\n%s", diff)
	}
	if !strings.Contains(plan.Diff(true), "s3cret") {
		t.Error("revealed diff should contain values")
	}

	if err := src.Apply(ctx, plan, password); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	copied, err := src.Fetch(ctx, "web-copy", password)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if copied.Name != "web-copy" || copied.Len() != 2 {
		t.Errorf("unexpected imported collection %+v", copied)
	}

	// Importing the same data again is a no-op
	plan, err = src.Import(ctx, "web-copy", password, "web.json")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if plan.Changed() {
		t.Errorf("expected no change, got diff:\n%s", plan.Diff(true))
	}
}

func TestImportWrongExportPassword(t *testing.T) {
	password := []byte("test123")
	v, dir := initTestVault(t, password)
	ctx := context.Background()

	codec := crypto.NewCodec(crypto.WithIterations(testIterations))
	ct, err := codec.EncryptString([]byte("other"), `{"name":"x","records":[]}`, 0)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := ct.MarshalJSON()
	if err := os.WriteFile(filepath.Join(dir, "other.json"), data, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := v.Import(ctx, "web", password, "other.json"); !errors.Is(err, crypto.ErrIntegrity) {
		t.Errorf("Expected ErrIntegrity, got %v", err)
	}
}

func TestExportRejectsEscapingPath(t *testing.T) {
	password := []byte("test123")
	v, _ := initTestVault(t, password)

	err := v.Export(context.Background(), "web", password, "../web.json")
	if err == nil {
		t.Fatal("Export outside the vault directory should fail")
	}
}

func TestCanceledContext(t *testing.T) {
	password := []byte("test123")
	v, _ := initTestVault(t, password)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := v.Save(ctx, sampleCollection("web"), password); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCompactAndVaultID(t *testing.T) {
	password := []byte("test123")
	v, _ := initTestVault(t, password)
	ctx := context.Background()

	if _, err := v.GetVaultID(); err == nil {
		t.Error("vault ID should not exist before first use")
	}
	id, err := v.GetOrCreateVaultID()
	if err != nil {
		t.Fatalf("GetOrCreateVaultID failed: %v", err)
	}
	again, _ := v.GetVaultID()
	if again != id {
		t.Errorf("vault ID changed: %s != %s", again, id)
	}

	if err := v.Save(ctx, sampleCollection("web"), password); err != nil {
		t.Fatal(err)
	}
	if err := v.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if _, err := v.Fetch(ctx, "web", password); err != nil {
		t.Errorf("Fetch after compact failed: %v", err)
	}
}

func TestDiffCollections(t *testing.T) {
	a := model.NewCollection("web")
	a.Add(model.NewRecord("github", model.Field{Name: "password", Value: "one"}))
	b := model.NewCollection("web")
	b.Add(model.NewRecord("github", model.Field{Name: "password", Value: "two"}))

	if DiffCollections(a, a, true) != "" {
		t.Error("identical collections should produce no diff")
	}
	// Masked rendering hides value-only changes
	if DiffCollections(a, b, false) != "" {
		t.Error("masked diff should hide value changes")
	}
	diff := DiffCollections(a, b, true)
	if !strings.Contains(diff, "-password = one") || !strings.Contains(diff, "+password = two") {
		t.Errorf("unexpected diff:\n%s", diff)
	}
}
