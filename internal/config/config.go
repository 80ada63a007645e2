// Package config loads the Link Band core's runtime configuration from
// an optional .env file plus the process environment, as described in
// spec.md §6. Unknown keys are ignored with a warning rather than
// rejected, matching the spec's tolerance for forward-compatible
// config additions.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full set of tunables spec.md §6 names.
type Config struct {
	WSHost               string
	WSPort               int
	ScanTimeoutS         float64
	ConnectTimeoutS      float64
	EegWindowS           float64
	PpgWindowS           float64
	AccWindowS           float64
	SubscriberQueueDepth int
	DataRoot             string
	DataFormat           string
}

// Defaults mirrors the values named throughout spec.md §4-§6.
func Defaults() Config {
	return Config{
		WSHost:               "127.0.0.1",
		WSPort:               18765,
		ScanTimeoutS:         10,
		ConnectTimeoutS:      30,
		EegWindowS:           4,
		PpgWindowS:           10,
		AccWindowS:           3,
		SubscriberQueueDepth: 256,
		DataRoot:             "data",
		DataFormat:           "json_lines",
	}
}

var knownKeys = map[string]bool{
	"WS_HOST": true, "WS_PORT": true, "SCAN_TIMEOUT_S": true,
	"CONNECT_TIMEOUT_S": true, "EEG_WINDOW_S": true, "PPG_WINDOW_S": true,
	"ACC_WINDOW_S": true, "SUBSCRIBER_QUEUE_DEPTH": true, "DATA_ROOT": true,
	"DATA_FORMAT": true,
}

// Load reads .env (if present, ignored if missing) and then the process
// environment, overlaying onto Defaults(). It never fails on an unknown
// key; it logs a warning instead, per spec.md §6.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] warning: failed to read %s: %v", dotenvPath, err)
	}

	cfg := Defaults()

	for _, kv := range os.Environ() {
		key, val := splitEnv(kv)
		if key == "" || !hasLinkBandPrefix(key) {
			continue
		}
		trimmed := trimPrefix(key)
		if !knownKeys[trimmed] {
			log.Printf("[config] warning: ignoring unknown config key %q", key)
			continue
		}
		applyKey(&cfg, trimmed, val)
	}

	return cfg, nil
}

func hasLinkBandPrefix(key string) bool {
	return len(key) > len("LINKBAND_") && key[:len("LINKBAND_")] == "LINKBAND_"
}

func trimPrefix(key string) string {
	return key[len("LINKBAND_"):]
}

func splitEnv(kv string) (string, string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return "", ""
}

func applyKey(cfg *Config, key, val string) {
	switch key {
	case "WS_HOST":
		cfg.WSHost = val
	case "WS_PORT":
		if n, err := strconv.Atoi(val); err == nil {
			cfg.WSPort = n
		}
	case "SCAN_TIMEOUT_S":
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.ScanTimeoutS = f
		}
	case "CONNECT_TIMEOUT_S":
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.ConnectTimeoutS = f
		}
	case "EEG_WINDOW_S":
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.EegWindowS = f
		}
	case "PPG_WINDOW_S":
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.PpgWindowS = f
		}
	case "ACC_WINDOW_S":
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.AccWindowS = f
		}
	case "SUBSCRIBER_QUEUE_DEPTH":
		if n, err := strconv.Atoi(val); err == nil {
			cfg.SubscriberQueueDepth = n
		}
	case "DATA_ROOT":
		cfg.DataRoot = val
	case "DATA_FORMAT":
		cfg.DataFormat = val
	}
}
