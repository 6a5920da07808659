package models

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/HatiCode/ratecast/cmd/ratecast/config"
	"github.com/HatiCode/ratecast/pkg/models"
	"github.com/HatiCode/ratecast/pkg/tls"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
		wantErr  bool
	}{
		{"baseline", config.Config{Model: config.ModelBaseline}, "baseline", false},
		{"linear", config.Config{Model: config.ModelLinear, Ridge: 1e-6}, "linear", false},
		{"byom", config.Config{Model: config.ModelBYOM, BYOMURL: "http://model:8080", BYOMTimeout: time.Second}, "byom", false},
		{"byom with broken tls", config.Config{Model: config.ModelBYOM, BYOMURL: "https://model", TLS: tls.Config{Enabled: true}}, "", true},
		{"unknown", config.Config{Model: "forest"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(&tt.cfg, logger)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if m.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", m.Name(), tt.wantName)
			}
			if _, ok := m.(*models.Pipeline); !ok {
				t.Errorf("New() = %T, want *models.Pipeline", m)
			}
		})
	}
}

func TestNew_FreshInstances(t *testing.T) {
	cfg := &config.Config{Model: config.ModelLinear}
	a, _ := New(cfg, nil)
	b, _ := New(cfg, nil)
	if a == b {
		t.Error("New() returned the same instance twice")
	}
}
