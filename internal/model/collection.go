package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/illarion/safe/internal/util"
)

// Field is a single named value of a record, e.g. "username" or "password".
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one entry of a collection
type Record struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Fields  []Field   `json:"fields"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// NewRecord creates a record with a fresh ID
func NewRecord(name string, fields ...Field) Record {
	now := time.Now().UTC()
	return Record{
		ID:      uuid.NewString(),
		Name:    name,
		Fields:  append([]Field(nil), fields...),
		Created: now,
		Updated: now,
	}
}

// Get returns the value of the named field
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Set adds or replaces a field
func (r *Record) Set(name, value string) {
	r.Updated = time.Now().UTC()
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// Collection is a named, ordered list of records
type Collection struct {
	Name    string   `json:"name"`
	Records []Record `json:"records"`
}

// NewCollection creates an empty collection
func NewCollection(name string) *Collection {
	return &Collection{
		Name:    name,
		Records: make([]Record, 0),
	}
}

// Add appends records to the end of the collection
func (c *Collection) Add(records ...Record) {
	c.Records = append(c.Records, records...)
}

// Insert inserts records before index. Negative indexes count from the end.
func (c *Collection) Insert(index int, records ...Record) {
	c.Records = util.Insert(c.Records, index, records...)
}

// Remove removes the records from..to, inclusive. See util.Remove.
func (c *Collection) Remove(from, to int) {
	c.Records = util.Remove(c.Records, from, to)
}

// Find finds a record by name or ID
func (c *Collection) Find(key string) (int, *Record) {
	for i := range c.Records {
		if c.Records[i].Name == key || c.Records[i].ID == key {
			return i, &c.Records[i]
		}
	}
	return -1, nil
}

// Len returns the number of records
func (c *Collection) Len() int {
	return len(c.Records)
}
