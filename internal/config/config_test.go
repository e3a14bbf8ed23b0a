package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMemoryStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SEAT_CAPACITY", "40")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")

	cfg := Load()
	if cfg.StoreDriver != StoreMemory || cfg.SeatCapacity != 40 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Location != time.UTC || cfg.AccessTTL() != 5*time.Minute || cfg.RefreshTTL() != 7*24*time.Hour {
		t.Fatalf("time settings = %v %v %v", cfg.Location, cfg.AccessTTL(), cfg.RefreshTTL())
	}
	if cfg.DB.Driver != "" {
		t.Fatalf("memory store got db options: %+v", cfg.DB)
	}
}

func TestLoadPostgres(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DB_USER", "bus")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_NAME", "busadmin")

	cfg := Load()
	if cfg.DB.Driver != StorePostgres || cfg.DB.Port != "5432" || cfg.DB.SSLMode != "disable" {
		t.Fatalf("db = %+v", cfg.DB)
	}
}

func TestRateLimitStrict(t *testing.T) {
	t.Setenv("RATE_LIMIT_STRICT_CAPACITY", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.TTL != 10*time.Second {
		t.Fatalf("ttl = %v, want raised to 5 refill intervals", cfg.TTL)
	}
	s := cfg.Strict()
	if s.Capacity != 3 || s.KeyStrategy != "ip" || s.Prefix != "rl:strict" {
		t.Fatalf("strict = %+v", s)
	}
	if cfg.Capacity != 60 {
		t.Fatalf("Strict modified the receiver: %+v", cfg)
	}
}

func TestLoadSeed(t *testing.T) {
	def, err := LoadSeed("")
	if err != nil || len(def.PickupPoints) != 4 || len(def.Destinations) != 6 {
		t.Fatalf("default seed = %+v, %v", def, err)
	}
	if def.Destinations[1].PriceCents() != 4000 {
		t.Fatalf("Accra fare = %d", def.Destinations[1].PriceCents())
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(good, []byte(`
pickup_points:
  - name: Apowa
destinations:
  - name: Kumasi
    price: 120.5
`), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSeed(good)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s.Destinations) != 1 || s.Destinations[0].PriceCents() != 12050 {
		t.Fatalf("seed = %+v", s)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("destinations:\n  - name: Free\n"), 0o600)
	if _, err := LoadSeed(bad); err == nil {
		t.Fatal("expected error for a destination without price")
	}
}
