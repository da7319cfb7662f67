package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the upstream endpoints and server settings.
type Config struct {
	TimetableUrl      string
	LmsUrl            string
	Timezone          string
	Location          *time.Location
	Timeout           time.Duration
	Listen            string
	AllowedOrigins    []string
	AllowedHosts      []string
	ScrapeConcurrency int
}

const (
	envPrefix         = "CHRONICLER_"
	defaultConfigPath = "~/.config/chronicler/config.toml"

	DefaultTimetableUrl      = "http://time-table.sicsr.ac.in/report.php"
	DefaultLmsUrl            = "https://lms.sicsr.ac.in/"
	DefaultTimezone          = "Asia/Kolkata"
	DefaultTimeout           = 30 * time.Second
	DefaultListen            = "127.0.0.1:8000"
	DefaultScrapeConcurrency = 8
)

var (
	DefaultAllowedOrigins = []string{
		"https://chronicler.zeffo.me",
		"https://chronicler.up.railway.app",
		"http://127.0.0.1",
		"http://localhost",
	}
	DefaultAllowedHosts = []string{
		"chronicler.up.railway.app",
		"chronicler.zeffo.me",
		"localhost",
		"127.0.0.1",
	}
)

type fileConfig struct {
	TimetableUrl      string   `toml:"timetable_url"`
	LmsUrl            string   `toml:"lms_url"`
	Timezone          string   `toml:"timezone"`
	Timeout           string   `toml:"timeout"`
	Listen            string   `toml:"listen"`
	AllowedOrigins    []string `toml:"allowed_origins"`
	AllowedHosts      []string `toml:"allowed_hosts"`
	ScrapeConcurrency int      `toml:"scrape_concurrency"`
}

func Default() Config {
	return Config{
		TimetableUrl:      DefaultTimetableUrl,
		LmsUrl:            DefaultLmsUrl,
		Timezone:          DefaultTimezone,
		Timeout:           DefaultTimeout,
		Listen:            DefaultListen,
		AllowedOrigins:    append([]string(nil), DefaultAllowedOrigins...),
		AllowedHosts:      append([]string(nil), DefaultAllowedHosts...),
		ScrapeConcurrency: DefaultScrapeConcurrency,
	}
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are skipped; variables already set are left alone.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
		log.Println("Loaded environment from", f)
	}
	return nil
}

// Load reads the TOML config at path (the default location when empty),
// then applies CHRONICLER_* environment overrides. A missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	raw, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	applyEnv(&raw)

	if v := strings.TrimSpace(raw.TimetableUrl); v != "" {
		cfg.TimetableUrl = v
	}
	if v := strings.TrimSpace(raw.LmsUrl); v != "" {
		cfg.LmsUrl = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.Listen); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(raw.Timeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid timeout %q", v)
		}
		cfg.Timeout = d
	}
	if origins := trimAll(raw.AllowedOrigins); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	if hosts := trimAll(raw.AllowedHosts); len(hosts) > 0 {
		cfg.AllowedHosts = hosts
	}
	if raw.ScrapeConcurrency < 0 {
		return Config{}, fmt.Errorf("invalid scrape_concurrency %d", raw.ScrapeConcurrency)
	}
	if raw.ScrapeConcurrency > 0 {
		cfg.ScrapeConcurrency = raw.ScrapeConcurrency
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	var raw fileConfig
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw, nil
		}
		return raw, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return raw, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return raw, fmt.Errorf("parse config: %w", err)
	}
	return raw, nil
}

func applyEnv(raw *fileConfig) {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set("TIMETABLE_URL", &raw.TimetableUrl)
	set("LMS_URL", &raw.LmsUrl)
	set("TIMEZONE", &raw.Timezone)
	set("TIMEOUT", &raw.Timeout)
	set("LISTEN", &raw.Listen)

	var origins, hosts, concurrency string
	set("ALLOWED_ORIGINS", &origins)
	set("ALLOWED_HOSTS", &hosts)
	set("SCRAPE_CONCURRENCY", &concurrency)
	if origins != "" {
		raw.AllowedOrigins = strings.Split(origins, ",")
	}
	if hosts != "" {
		raw.AllowedHosts = strings.Split(hosts, ",")
	}
	if concurrency != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(concurrency)); err == nil {
			raw.ScrapeConcurrency = n
		} else {
			log.Println("Warning: ignoring", envPrefix+"SCRAPE_CONCURRENCY:", err)
		}
	}
}

// Env returns the CHRONICLER_ prefixed variable key.
func Env(key string) string {
	return os.Getenv(envPrefix + key)
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
