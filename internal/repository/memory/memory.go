// Package memory provides in-process implementations of the repository
// interfaces. It backs the "memory" database driver and the service tests.
package memory

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
)

// clone deep-copies v through its BSON form so callers never share maps or
// slices with the store, and values look exactly as they would coming back from MongoDB.
func clone[T any](v *T) (*T, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("memory: encode %T: %w", v, err)
	}
	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(raw))
	if err != nil {
		return nil, err
	}
	dec.DefaultDocumentM()
	out := new(T)
	if err := dec.Decode(out); err != nil {
		return nil, fmt.Errorf("memory: decode %T: %w", v, err)
	}
	return out, nil
}

func mustClone[T any](v *T) *T {
	out, err := clone(v)
	if err != nil {
		panic(err)
	}
	return out
}
