//go:build consul

package store

import (
	"context"
	"fmt"
	"log"
	"time"

	consulapi "github.com/hashicorp/consul/api"
)

// ConsulKV is a KV backed by Consul's key-value API.
type ConsulKV struct {
	cli *consulapi.Client
}

// NewConsulKV creates a Consul-backed KV (requires build tag consul).
func NewConsulKV(addr string) (KV, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	return &ConsulKV{cli: cli}, nil
}

func (c *ConsulKV) Get(key string) ([]byte, bool, error) {
	kv, _, err := c.cli.KV().Get(key, nil)
	if err != nil || kv == nil {
		return nil, false, err
	}
	return kv.Value, true, nil
}

func (c *ConsulKV) Put(key string, value []byte) error {
	_, err := c.cli.KV().Put(&consulapi.KVPair{Key: key, Value: value}, nil)
	return err
}

func (c *ConsulKV) List(prefix string) ([]KVPair, error) {
	pairs, _, err := c.cli.KV().List(prefix, nil)
	if err != nil {
		return nil, err
	}
	out := make([]KVPair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, KVPair{Key: p.Key, Value: p.Value})
	}
	return out, nil
}

// StartWatch runs a blocking query on the record prefix and calls onChange
// whenever another writer modifies it. Returns when ctx is done.
func (c *ConsulKV) StartWatch(ctx context.Context, onChange func()) {
	q := &consulapi.QueryOptions{}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, meta, err := c.cli.KV().List(keyRoot, q.WithContext(ctx))
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("consul watch failed: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if q.WaitIndex != 0 && meta.LastIndex != q.WaitIndex {
			onChange()
		}
		q.WaitIndex = meta.LastIndex
	}
}
