package main

import (
	"os"
	"path/filepath"
	"testing"

	rn4871 "github.com/subrata05/RN4871-AVR-Library"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rn4871.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyUSB0"
baud = 115200
name = "thermo"
service_uuid = "ad11cf40-063f-11e5-be3e-0002a5d5c51b"
adv_power = 3

[[characteristic]]
uuid = "ad11cf40-163f-11e5-be3e-0002a5d5c51b"
properties = ["read", "notify"]
length = 2

[[characteristic]]
uuid = "2a37"
properties = ["write"]
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig = %v, want nil", err)
	}
	if cfg.Port != "/dev/ttyUSB0" || cfg.Baud != 115200 || cfg.Name != "thermo" {
		t.Errorf("port/baud/name = %q/%d/%q", cfg.Port, cfg.Baud, cfg.Name)
	}
	if cfg.AdvInterval != 200 {
		t.Errorf("AdvInterval = %d, want default 200", cfg.AdvInterval)
	}
	if cfg.AdvPower != 3 {
		t.Errorf("AdvPower = %d, want 3", cfg.AdvPower)
	}
	if cfg.Service.UUID != "AD11CF40063F11E5BE3E0002A5D5C51B" {
		t.Errorf("service UUID = %q, want normalized bare form", cfg.Service.UUID)
	}
	if len(cfg.Service.Characteristics) != 2 {
		t.Fatalf("characteristics = %d, want 2", len(cfg.Service.Characteristics))
	}
	first := cfg.Service.Characteristics[0]
	if first.UUID != "AD11CF40163F11E5BE3E0002A5D5C51B" {
		t.Errorf("characteristic UUID = %q, want normalized bare form", first.UUID)
	}
	if first.Properties != rn4871.CharPropRead|rn4871.CharPropNotify {
		t.Errorf("properties = %#02x, want read|notify", first.Properties)
	}
	if first.Len != 2 {
		t.Errorf("Len = %d, want 2", first.Len)
	}
	second := cfg.Service.Characteristics[1]
	if second.UUID != "2A37" {
		t.Errorf("short UUID = %q, want 2A37", second.UUID)
	}
	if second.Len != 1 {
		t.Errorf("omitted length = %d, want default 1", second.Len)
	}
}

func TestLoadConfigExplicitInterval(t *testing.T) {
	path := writeConfig(t, `
name = "n"
service_uuid = "2a00"
adv_interval_ms = 500

[[characteristic]]
uuid = "2a37"
properties = ["read"]
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig = %v, want nil", err)
	}
	if cfg.AdvInterval != 500 {
		t.Errorf("AdvInterval = %d, want 500", cfg.AdvInterval)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `
service_uuid = "2a00"
[[characteristic]]
uuid = "2a37"
properties = ["read"]
`},
		{"bad service uuid", `
name = "n"
service_uuid = "not-a-uuid"
[[characteristic]]
uuid = "2a37"
properties = ["read"]
`},
		{"no characteristics", `
name = "n"
service_uuid = "2a00"
`},
		{"unknown property", `
name = "n"
service_uuid = "2a00"
[[characteristic]]
uuid = "2a37"
properties = ["stream"]
`},
		{"empty properties", `
name = "n"
service_uuid = "2a00"
[[characteristic]]
uuid = "2a37"
properties = []
`},
		{"unknown key", `
name = "n"
service_uuid = "2a00"
advertising = true
[[characteristic]]
uuid = "2a37"
properties = ["read"]
`},
	}
	for _, tc := range tests {
		path := writeConfig(t, tc.body)
		if _, err := loadConfig(path); err == nil {
			t.Errorf("%s: loadConfig = nil, want error", tc.name)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("loadConfig on a missing file = nil, want error")
	}
}
