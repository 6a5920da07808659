package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/HatiCode/ratecast/cmd/ratecast/config"
	"github.com/HatiCode/ratecast/pkg/storage"
)

func TestNewStore_Memory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		ttl     time.Duration
		wantTTL time.Duration
	}{
		{"with report ttl", 2 * time.Hour, 2 * time.Hour},
		{"zero ttl keeps reports", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newStore(&config.Config{Storage: "memory", ReportTTL: tt.ttl}, logger)
			if err != nil {
				t.Fatalf("newStore() error = %v", err)
			}
			mem, ok := s.(*storage.MemoryStore)
			if !ok {
				t.Fatalf("newStore() = %T, want *storage.MemoryStore", s)
			}
			if mem.TTL() != tt.wantTTL {
				t.Errorf("TTL() = %v, want %v", mem.TTL(), tt.wantTTL)
			}

			closer, ok := s.(interface{ Close() error })
			if !ok {
				t.Fatal("memory store should be closable")
			}
			if err := closer.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestNewStore_RedisUnreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{Storage: "redis", RedisAddr: "127.0.0.1:1", ReportTTL: time.Hour}

	if _, err := newStore(cfg, logger); err == nil {
		t.Fatal("newStore() expected error for unreachable redis")
	}
}
