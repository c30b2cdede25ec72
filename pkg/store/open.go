package store

import (
	"fmt"
	"io"
	"log"
)

// Open builds the record store for a backend name: memory, sqlite or consul.
// The returned closer releases the backend and is never nil.
func Open(backend, sqlitePath, consulAddr string) (RecordStore, io.Closer, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nopCloser{}, nil
	case "sqlite":
		kv, err := OpenSQLiteKV(sqlitePath)
		if err != nil {
			return nil, nopCloser{}, err
		}
		log.Printf("record store sqlite path=%s", sqlitePath)
		return NewKVStore(kv), kv, nil
	case "consul":
		kv, err := NewConsulKV(consulAddr)
		if err != nil {
			return nil, nopCloser{}, err
		}
		log.Printf("record store consul addr=%s", consulAddr)
		return NewKVStore(kv), nopCloser{}, nil
	default:
		return nil, nopCloser{}, fmt.Errorf("unsupported store type: %s", backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
