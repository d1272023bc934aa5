// Package model defines the records and collections stored in a safe.
//
// Records are plain data. The vault serializes each record to JSON and
// encrypts it individually, so the model knows nothing about encryption.
package model
