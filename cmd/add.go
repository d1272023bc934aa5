package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/model"
)

// ParseFields turns name=value arguments into fields. A value may itself
// contain '='.
func ParseFields(args []string) ([]model.Field, error) {
	fields := make([]model.Field, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, want name=value", arg)
		}
		fields = append(fields, model.Field{Name: name, Value: value})
	}
	return fields, nil
}

// Add stores a record in a collection. An existing record with the same name
// is updated in place; otherwise the new record is inserted at index at.
// A nil at appends.
func Add(ctx context.Context, env *Env, collection, name string, fieldArgs []string, at *int) {
	fields, err := ParseFields(fieldArgs)
	if err != nil {
		Fatalf("%s", err)
	}

	vault := env.OpenVault()
	defer vault.Close()

	password := env.unlockPassword(vault)
	defer crypto.ClearBytes(password)

	coll, err := vault.Fetch(ctx, collection, password)
	if err != nil {
		Fail(err, password)
	}

	if _, record := coll.Find(name); record != nil {
		for _, f := range fields {
			record.Set(f.Name, f.Value)
		}
		fmt.Printf("Updated %s/%s\n", collection, name)
	} else {
		record := model.NewRecord(name, fields...)
		if at != nil {
			coll.Insert(*at, record)
		} else {
			coll.Add(record)
		}
		fmt.Printf("Added %s/%s\n", collection, name)
	}

	if err := vault.Save(ctx, coll, password); err != nil {
		Fail(err, password)
	}
}
