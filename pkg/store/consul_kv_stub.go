//go:build !consul

package store

import (
	"log"
)

// NewConsulKV returns a memory KV when the consul build tag is not enabled.
func NewConsulKV(addr string) (KV, error) {
	log.Printf("consul store requested (addr=%s) but consul build tag not enabled; using memory store", addr)
	return NewMemoryKV(), nil
}
