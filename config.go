package bpgsql

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/jackc/pgpassfile"
	"github.com/jackc/pgservicefile"
)

// Config carries everything needed to establish a session.  Zero-value
// fields are filled in by ParseConfig: host and port get platform
// defaults, and a missing password is looked up in the password file.
type Config struct {
	Host     string // hostname, or a path beginning with '/' for a unix socket
	Port     uint16
	Database string
	User     string
	Password string
	Options  string // command-line options passed to the backend

	Logger   Logger
	LogLevel LogLevel

	// NoticeHandler receives server notices.  When nil, notices go to
	// the configured logger.
	NoticeHandler func(notice string)

	// CopyIn is the line source for COPY ... FROM stdin; defaults to
	// os.Stdin.  CopyOut is the sink for COPY ... TO stdout; defaults
	// to os.Stdout.
	CopyIn  io.Reader
	CopyOut io.Writer
}

// Recognized DSN keys besides "service".
const (
	keyHost     = "host"
	keyPort     = "port"
	keyDatabase = "dbname"
	keyUser     = "user"
	keyPassword = "password"
	keyOptions  = "options"
)

func defaultHost() string {
	if runtime.GOOS == "windows" {
		return "127.0.0.1"
	}
	return "/tmp/.s.PGSQL.5432"
}

// ParseConfig builds a Config from a DSN.  Keys present in the DSN win;
// fields set on defaults (which may be nil) fill in any key the DSN
// does not mention.  A "service=name" key pulls settings for the named
// service from the pg_service file before the merge.
func ParseConfig(dsn string, defaults *Config) (*Config, error) {
	kv := ParseDSN(dsn)

	if service := kv["service"]; service != "" {
		if err := mergeServicefile(kv, service); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if defaults != nil {
		*cfg = *defaults
	}
	if v, ok := kv[keyHost]; ok {
		cfg.Host = v
	}
	if v, ok := kv[keyPort]; ok {
		p, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, interfaceErrorf("invalid port %q in connection string", v)
		}
		cfg.Port = uint16(p)
	}
	if v, ok := kv[keyDatabase]; ok {
		cfg.Database = v
	}
	if v, ok := kv[keyUser]; ok {
		cfg.User = v
	}
	if v, ok := kv[keyPassword]; ok {
		cfg.Password = v
	}
	if v, ok := kv[keyOptions]; ok {
		cfg.Options = v
	}

	if cfg.Host == "" {
		cfg.Host = defaultHost()
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.Password == "" {
		cfg.Password = passfilePassword(cfg)
	}
	return cfg, nil
}

// mergeServicefile fills keys absent from kv with the settings of the
// named service from PGSERVICEFILE (or ~/.pg_service.conf).
func mergeServicefile(kv map[string]string, service string) error {
	path := os.Getenv("PGSERVICEFILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(home, ".pg_service.conf")
	}
	sf, err := pgservicefile.ReadServicefile(path)
	if err != nil {
		return interfaceErrorf("reading service file %s: %v", path, err)
	}
	svc, err := sf.GetService(service)
	if err != nil {
		return interfaceErrorf("service %q not found in %s", service, path)
	}
	for k, v := range svc.Settings {
		if _, ok := kv[k]; !ok {
			kv[k] = v
		}
	}
	return nil
}

// passfilePassword looks the password up in PGPASSFILE (or ~/.pgpass).
// Lookup failures are not errors; the connection simply proceeds
// without a password.
func passfilePassword(cfg *Config) string {
	path := os.Getenv("PGPASSFILE")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		path = filepath.Join(home, ".pgpass")
	}
	pf, err := pgpassfile.ReadPassfile(path)
	if err != nil {
		return ""
	}
	return pf.FindPassword(cfg.Host, strconv.FormatUint(uint64(cfg.Port), 10), cfg.Database, cfg.User)
}
