package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-ini/ini"
	"github.com/soyunomas/dupefinder/internal/engine"
	"github.com/soyunomas/dupefinder/internal/entities"
	"github.com/soyunomas/dupefinder/internal/hasher"
	"github.com/soyunomas/dupefinder/internal/report"
)

// Config refleja el archivo INI. Los valores son texto tal como los escribe
// el usuario; Resolve los convierte y valida antes de cualquier E/S.
type Config struct {
	// [compare]
	ChunkSize string
	Digest    string
	Verify    string

	// [scan]
	Excludes   []string
	IgnoreFile string
	OnError    string
	Workers    int

	// [output]
	Format   string
	Mode     string
	Sort     string
	Relative bool

	// [log]
	LogLevel string
	LogFile  string
}

// Format del informe final.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatScript
)

func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "script", "sh":
		return FormatScript, nil
	default:
		return 0, fmt.Errorf("formato de salida desconocido: %s", name)
	}
}

// Resolved es la configuración ya validada que consume el resto del programa.
type Resolved struct {
	Compare  hasher.Options
	Policy   entities.ErrorPolicy
	Workers  int
	Format   Format
	Report   report.Options
	Excludes []string
}

func Default() *Config {
	return &Config{
		ChunkSize: fmt.Sprint(hasher.DefaultChunkSize),
		Digest:    hasher.DefaultAlgorithm.String(),
		Verify:    "exact",
		OnError:   "abort",
		Workers:   0,
		Format:    "text",
		Mode:      "duplicates",
		Sort:      "discovery",
		LogLevel:  "warn",
	}
}

// DefaultPath es $XDG_CONFIG_HOME/dupefinder/config.ini o su equivalente.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dupefinder", "config.ini")
}

// Load lee path sobre los valores por defecto. Si el archivo no existe y no
// fue pedido explícitamente se usan los valores por defecto.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("no se pudo cargar la configuración: %w", err)
	}
	if err := cfg.apply(iniFile); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse lee una configuración desde memoria.
func Parse(data []byte) (*Config, error) {
	iniFile, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("configuración ilegible: %w", err)
	}
	cfg := Default()
	if err := cfg.apply(iniFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(f *ini.File) error {
	setString := func(section, key string, dst *string) {
		sec := f.Section(section)
		if sec.HasKey(key) {
			*dst = strings.TrimSpace(sec.Key(key).String())
		}
	}

	setString("compare", "chunk_size", &c.ChunkSize)
	setString("compare", "digest", &c.Digest)
	setString("compare", "verify", &c.Verify)

	scan := f.Section("scan")
	if scan.HasKey("exclude") {
		for _, p := range scan.Key("exclude").Strings(",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Excludes = append(c.Excludes, p)
			}
		}
	}
	setString("scan", "ignore_file", &c.IgnoreFile)
	setString("scan", "on_error", &c.OnError)
	if scan.HasKey("workers") {
		n, err := scan.Key("workers").Int()
		if err != nil {
			return fmt.Errorf("scan.workers: %w", err)
		}
		c.Workers = n
	}

	setString("output", "format", &c.Format)
	setString("output", "mode", &c.Mode)
	setString("output", "sort", &c.Sort)
	if out := f.Section("output"); out.HasKey("relative") {
		b, err := out.Key("relative").Bool()
		if err != nil {
			return fmt.Errorf("output.relative: %w", err)
		}
		c.Relative = b
	}

	setString("log", "level", &c.LogLevel)
	setString("log", "file", &c.LogFile)
	return nil
}

// Resolve valida todos los valores. Cualquier error aquí es un error de
// configuración y debe abortar antes de leer archivos.
func (c *Config) Resolve() (*Resolved, error) {
	chunk, err := humanize.ParseBytes(c.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("chunk_size inválido %q: %w", c.ChunkSize, err)
	}
	if chunk == 0 || chunk > 1<<30 {
		return nil, fmt.Errorf("chunk_size fuera de rango: %s", c.ChunkSize)
	}

	alg, err := hasher.ParseAlgorithm(c.Digest)
	if err != nil {
		return nil, err
	}
	verify, err := hasher.ParseVerifyMode(c.Verify)
	if err != nil {
		return nil, err
	}
	if verify == hasher.VerifyDigest && !alg.Cryptographic() {
		return nil, fmt.Errorf("el modo digest exige un hash criptográfico, %s no lo es", alg)
	}

	policy, err := entities.ParseErrorPolicy(c.OnError)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	mode, err := report.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	order, err := engine.ParseClusterOrder(c.Sort)
	if err != nil {
		return nil, err
	}
	if c.Workers < 0 {
		return nil, fmt.Errorf("workers no puede ser negativo: %d", c.Workers)
	}

	return &Resolved{
		Compare: hasher.Options{
			Algorithm: alg,
			ChunkSize: int(chunk),
			Verify:    verify,
		},
		Policy:   policy,
		Workers:  c.Workers,
		Format:   format,
		Report:   report.Options{Mode: mode, Relative: c.Relative, Order: order},
		Excludes: c.Excludes,
	}, nil
}

// Save escribe la configuración como INI, creando el directorio si hace falta.
func (c *Config) Save(path string) error {
	f := ini.Empty()

	sections := []struct {
		name string
		keys [][2]string
	}{
		{"compare", [][2]string{
			{"chunk_size", c.ChunkSize},
			{"digest", c.Digest},
			{"verify", c.Verify},
		}},
		{"scan", [][2]string{
			{"exclude", strings.Join(c.Excludes, ",")},
			{"ignore_file", c.IgnoreFile},
			{"on_error", c.OnError},
			{"workers", fmt.Sprint(c.Workers)},
		}},
		{"output", [][2]string{
			{"format", c.Format},
			{"mode", c.Mode},
			{"sort", c.Sort},
			{"relative", fmt.Sprint(c.Relative)},
		}},
		{"log", [][2]string{
			{"level", c.LogLevel},
			{"file", c.LogFile},
		}},
	}

	for _, s := range sections {
		sec, err := f.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("no se pudo crear la sección %s: %w", s.name, err)
		}
		for _, kv := range s.keys {
			if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
				return fmt.Errorf("no se pudo escribir %s.%s: %w", s.name, kv[0], err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("no se pudo crear el directorio de configuración: %w", err)
	}
	return f.SaveTo(path)
}
