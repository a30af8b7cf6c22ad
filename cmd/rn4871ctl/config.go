package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	rn4871 "github.com/subrata05/RN4871-AVR-Library"
)

// fileConfig is the TOML shape of a provisioning profile:
//
//	port = "/dev/ttyUSB0"
//	baud = 115200
//	name = "thermo"
//	service_uuid = "ad11cf40-063f-11e5-be3e-0002a5d5c51b"
//	adv_interval_ms = 200
//	adv_power = 0
//
//	[[characteristic]]
//	uuid = "ad11cf40-163f-11e5-be3e-0002a5d5c51b"
//	properties = ["read", "notify"]
//	length = 2
type fileConfig struct {
	Port           string           `toml:"port"`
	Baud           int              `toml:"baud"`
	Name           string           `toml:"name"`
	ServiceUUID    string           `toml:"service_uuid"`
	AdvIntervalMs  uint16           `toml:"adv_interval_ms"`
	AdvPower       uint8            `toml:"adv_power"`
	Characteristic []characteristic `toml:"characteristic"`
}

type characteristic struct {
	UUID       string   `toml:"uuid"`
	Properties []string `toml:"properties"`
	Length     uint8    `toml:"length"`
}

// appConfig is the validated profile, UUIDs normalized and property names
// folded into bitmasks.
type appConfig struct {
	Port        string
	Baud        int
	Name        string
	AdvInterval uint16
	AdvPower    uint8
	Service     rn4871.Service
}

var propertyBits = map[string]uint8{
	"broadcast":         rn4871.CharPropBroadcast,
	"read":              rn4871.CharPropRead,
	"write-no-response": rn4871.CharPropWriteNoResponse,
	"write":             rn4871.CharPropWrite,
	"notify":            rn4871.CharPropNotify,
	"indicate":          rn4871.CharPropIndicate,
}

func loadConfig(path string) (*appConfig, error) {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	cfg := &appConfig{
		Port:        fc.Port,
		Baud:        fc.Baud,
		Name:        fc.Name,
		AdvInterval: fc.AdvIntervalMs,
		AdvPower:    fc.AdvPower,
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("config %s: name is required", path)
	}
	if !meta.IsDefined("adv_interval_ms") {
		cfg.AdvInterval = 200
	}

	cfg.Service.UUID, err = rn4871.NormalizeUUID(fc.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("service_uuid %q: %w", fc.ServiceUUID, err)
	}
	if len(fc.Characteristic) == 0 {
		return nil, fmt.Errorf("config %s: at least one [[characteristic]] is required", path)
	}
	for i, c := range fc.Characteristic {
		uuid, err := rn4871.NormalizeUUID(c.UUID)
		if err != nil {
			return nil, fmt.Errorf("characteristic %d uuid %q: %w", i, c.UUID, err)
		}
		props, err := parseProperties(c.Properties)
		if err != nil {
			return nil, fmt.Errorf("characteristic %d: %w", i, err)
		}
		length := c.Length
		if length == 0 {
			length = 1
		}
		cfg.Service.Characteristics = append(cfg.Service.Characteristics, rn4871.Characteristic{
			UUID:       uuid,
			Properties: props,
			Len:        length,
		})
	}
	return cfg, nil
}

func parseProperties(names []string) (uint8, error) {
	if len(names) == 0 {
		return 0, fmt.Errorf("properties list is empty")
	}
	var bits uint8
	for _, name := range names {
		bit, ok := propertyBits[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown property %q", name)
		}
		bits |= bit
	}
	return bits, nil
}
