// Command rn4871ctl provisions an RN4871 module from a TOML profile and
// then serves a small telemetry loop over the provisioned characteristics:
// a counter is pushed through the first readable characteristic and the
// first writable one is polled for commands from the peer.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	rn4871 "github.com/subrata05/RN4871-AVR-Library"
)

func main() {
	var (
		configPath = flag.String("config", "rn4871.toml", "provisioning profile")
		port       = flag.String("port", "", "serial port, overrides the profile")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	if err := run(log, *configPath, *port); err != nil {
		log.Fatal().Err(err).Msg("rn4871ctl failed")
	}
}

func run(log zerolog.Logger, configPath, portOverride string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if portOverride != "" {
		cfg.Port = portOverride
	}
	if cfg.Port == "" {
		return fmt.Errorf("no serial port: set port in %s or pass -port", configPath)
	}

	link, err := rn4871.OpenSerial(rn4871.SerialConfig{
		Port:     cfg.Port,
		BaudRate: cfg.Baud,
		Logger:   &log,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Port, err)
	}
	uart, err := rn4871.NewUART(link, rn4871.UARTConfig{Logger: &log})
	if err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	defer uart.Close()
	dev := rn4871.New(uart)

	log.Info().Str("port", cfg.Port).Msg("resetting module")
	if err := dev.Init(); err != nil {
		return fmt.Errorf("module reset: %w", err)
	}
	if err := dev.FirmwareVersion(); err == nil {
		log.Info().Str("firmware", dev.LastResponse()).Msg("module identified")
	}

	log.Info().Str("name", cfg.Name).Str("service", cfg.Service.UUID).Msg("provisioning")
	if err := dev.Provision(cfg.Name, &cfg.Service); err != nil {
		return fmt.Errorf("provision: %w", err)
	}
	for _, c := range cfg.Service.Characteristics {
		if c.Handle == 0 {
			return fmt.Errorf("characteristic %s: handle not resolved", c.UUID)
		}
		log.Info().Str("uuid", c.UUID).Uint16("handle", c.Handle).Msg("characteristic ready")
	}

	if err := dev.StartCustomAdvertising(cfg.AdvInterval); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}
	if err := dev.SetAdvPower(cfg.AdvPower); err != nil {
		return fmt.Errorf("set advertising power: %w", err)
	}
	log.Info().Uint16("interval_ms", cfg.AdvInterval).Msg("advertising")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	serve(log, dev, &cfg.Service, sig)

	log.Info().Msg("shutting down")
	dev.EnterDataMode()
	return nil
}

// serve drives the telemetry loop until a shutdown signal arrives.
func serve(log zerolog.Logger, dev *rn4871.Device, svc *rn4871.Service, sig <-chan os.Signal) {
	var outHandle, inHandle uint16
	for _, c := range svc.Characteristics {
		if outHandle == 0 && c.Properties&(rn4871.CharPropRead|rn4871.CharPropNotify) != 0 {
			outHandle = c.Handle
		}
		if inHandle == 0 && c.Properties&(rn4871.CharPropWrite|rn4871.CharPropWriteNoResponse) != 0 {
			inHandle = c.Handle
		}
	}

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	var counter uint16
	connected := false
	for {
		select {
		case <-sig:
			return
		case <-tick.C:
		}

		status := dev.ConnectionStatus()
		if isConnected := status == rn4871.StatusConnected; isConnected != connected {
			connected = isConnected
			log.Info().Stringer("status", status).Msg("connection state changed")
		}
		if status != rn4871.StatusConnected {
			continue
		}

		if outHandle != 0 {
			counter++
			if err := dev.WriteLocalCharacteristic(outHandle, fmt.Sprintf("%04X", counter)); err != nil {
				log.Warn().Err(err).Msg("telemetry write rejected")
			}
		}
		if inHandle != 0 {
			if err := dev.ReadLocalCharacteristic(inHandle); err != nil {
				log.Warn().Err(err).Msg("command read failed")
			} else {
				log.Debug().Str("value", dev.LastResponse()).Msg("peer command")
			}
		}
	}
}
