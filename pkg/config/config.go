// Package config resolves server settings from defaults, an optional TOML
// file, the environment (with .env support) and command-line flags, in that
// order of increasing precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"car-service/pkg/model"
)

type Config struct {
	Addr              string        `toml:"addr"`
	Token             string        `toml:"token"`
	Store             string        `toml:"store"` // memory|sqlite|consul
	SQLitePath        string        `toml:"sqlite_path"`
	ConsulAddr        string        `toml:"consul_addr"`
	UploadDir         string        `toml:"upload_dir"`
	UploadURLPrefix   string        `toml:"upload_url_prefix"`
	StampMode         string        `toml:"stamp_mode"`
	DefaultTechnician string        `toml:"default_technician"`
	ImageCacheTTL     time.Duration `toml:"image_cache_ttl"`
	TLSCert           string        `toml:"tls_cert"`
	TLSKey            string        `toml:"tls_key"`
}

func Default() Config {
	return Config{
		Addr:            ":8080",
		Store:           "memory",
		SQLitePath:      "/var/lib/car-service/records.db",
		ConsulAddr:      "127.0.0.1:8500",
		UploadURLPrefix: "/uploads/",
		ImageCacheTTL:   30 * time.Second,
	}
}

// LoadFile overlays a TOML file onto c. A missing path is not an error.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays CARSVC_* variables (and STAMP_MODE) onto c, reading .env first if present.
func (c *Config) LoadEnv() error {
	if err := loadDotEnv(); err != nil {
		return err
	}
	setString(&c.Addr, "CARSVC_ADDR")
	setString(&c.Token, "CARSVC_TOKEN")
	setString(&c.Store, "CARSVC_STORE")
	setString(&c.SQLitePath, "CARSVC_SQLITE_PATH")
	setString(&c.ConsulAddr, "CARSVC_CONSUL_ADDR")
	setString(&c.UploadDir, "CARSVC_UPLOAD_DIR")
	setString(&c.UploadURLPrefix, "CARSVC_UPLOAD_URL_PREFIX")
	setString(&c.StampMode, "STAMP_MODE")
	setString(&c.DefaultTechnician, "CARSVC_DEFAULT_TECHNICIAN")
	if v := os.Getenv("CARSVC_IMAGE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CARSVC_IMAGE_CACHE_TTL: %w", err)
		}
		c.ImageCacheTTL = d
	}
	return nil
}

// BindFlags registers flags whose defaults are the current values of c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar(&c.Token, "token", c.Token, "bootstrap auth token (optional)")
	fs.StringVar(&c.Store, "store", c.Store, "store backend: memory|sqlite|consul (consul requires build tag consul)")
	fs.StringVar(&c.SQLitePath, "sqlite-path", c.SQLitePath, "sqlite database path (when store=sqlite)")
	fs.StringVar(&c.ConsulAddr, "consul-addr", c.ConsulAddr, "consul address (when store=consul)")
	fs.StringVar(&c.UploadDir, "upload-dir", c.UploadDir, "directory watched for staff photo uploads (optional)")
	fs.StringVar(&c.StampMode, "stamp-mode", c.StampMode, "completed-only|legacy: whether in-progress also stamps completedDate")
	fs.StringVar(&c.DefaultTechnician, "default-technician", c.DefaultTechnician, "technician recorded when none is given")
	fs.DurationVar(&c.ImageCacheTTL, "image-cache-ttl", c.ImageCacheTTL, "how long visible-image lists are cached (0 disables)")
	fs.StringVar(&c.TLSCert, "tls-cert", c.TLSCert, "TLS cert path (enables HTTPS if set with --tls-key)")
	fs.StringVar(&c.TLSKey, "tls-key", c.TLSKey, "TLS key path (enables HTTPS if set with --tls-cert)")
}

// Validate normalizes and checks the resolved configuration.
func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case "memory", "sqlite", "consul":
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store)
	}
	switch model.StampMode(c.StampMode) {
	case "", model.StampCompletedOnly, model.StampLegacy:
	default:
		return fmt.Errorf("unsupported stamp mode: %s", c.StampMode)
	}
	if c.ImageCacheTTL < 0 {
		return fmt.Errorf("image-cache-ttl must not be negative")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("tls-cert and tls-key must be set together")
	}
	return nil
}

// Settings returns the service settings carried by the config; unset fields stay empty.
func (c Config) Settings() model.Settings {
	return model.Settings{StampMode: model.StampMode(c.StampMode), DefaultTechnician: c.DefaultTechnician}
}

// Load resolves the configuration for a binary from file, env and args.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()
	path := configPath(args)
	if err := cfg.LoadFile(path); err != nil {
		return cfg, err
	}
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}
	fs.String("config", path, "TOML config file (optional)")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// configPath finds -config/--config in args before flags are parsed, falling back to CARSVC_CONFIG.
func configPath(args []string) string {
	for i, a := range args {
		for _, p := range []string{"-config", "--config"} {
			if a == p && i+1 < len(args) {
				return args[i+1]
			}
			if strings.HasPrefix(a, p+"=") {
				return strings.TrimPrefix(a, p+"=")
			}
		}
	}
	return os.Getenv("CARSVC_CONFIG")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}
