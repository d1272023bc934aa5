package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/model"
)

// Export writes the named collection to file as a self-contained container.
// The container is encrypted with the vault password and carries its own
// derivation parameters, so it can be imported into any safe that uses the
// same password.
func (v *Vault) Export(ctx context.Context, name string, password []byte, file string) error {
	coll, err := v.Fetch(ctx, name, password)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(coll)
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}
	defer crypto.ClearBytes(plaintext)

	ct, err := v.codec.Encrypt(password, plaintext, v.keyLengthBits)
	if err != nil {
		return fmt.Errorf("failed to encrypt export: %w", err)
	}

	data, err := json.MarshalIndent(ct, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	if err := v.validator.WriteFile(file, append(data, '\n'), FilePermSecure); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}

	v.logger.Info("collection exported", "collection", name, "file", file, "records", coll.Len())
	return nil
}

// ImportPlan is the result of reading an export before it is applied
type ImportPlan struct {
	Current  *model.Collection
	Incoming *model.Collection
}

// Diff renders the change the plan would make
func (p *ImportPlan) Diff(reveal bool) string {
	return DiffCollections(p.Current, p.Incoming, reveal)
}

// Changed reports whether applying the plan modifies the collection
func (p *ImportPlan) Changed() bool {
	return DiffCollections(p.Current, p.Incoming, true) != ""
}

// Import reads an exported container from file and decrypts it. Nothing is
// written until the plan is passed to Apply. The imported collection takes
// the name given by the caller, not the one stored in the file.
func (v *Vault) Import(ctx context.Context, name string, password []byte, file string) (*ImportPlan, error) {
	current, err := v.Fetch(ctx, name, password)
	if err != nil {
		return nil, err
	}

	data, err := v.validator.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	ct, err := crypto.ParseContainer(data)
	if err != nil {
		return nil, err
	}

	plaintext, err := v.codec.Decrypt(password, ct)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(plaintext)

	var incoming model.Collection
	if err := json.Unmarshal(plaintext, &incoming); err != nil {
		return nil, fmt.Errorf("failed to decode imported collection: %w", err)
	}
	incoming.Name = name
	if incoming.Records == nil {
		incoming.Records = make([]model.Record, 0)
	}

	return &ImportPlan{Current: current, Incoming: &incoming}, nil
}

// Apply saves the imported collection, replacing the current one
func (v *Vault) Apply(ctx context.Context, plan *ImportPlan, password []byte) error {
	return v.Save(ctx, plan.Incoming, password)
}
