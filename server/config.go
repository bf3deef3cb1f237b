package server

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// Mode selects how accepted connections are handled
type Mode string

const (
	ModeSingle     Mode = "single"     // one at a time
	ModeForking    Mode = "forking"    // process per connection
	ModeConcurrent Mode = "concurrent" // goroutine pool
)

var ErrBadConfig = errors.New("bad config")

type Config struct {
	Root            string // document root
	Port            string
	MimeTypesPath   string // mime.types style file
	DefaultMimeType string // for unknown extensions
	Mode            Mode
	Workers         int // goroutines for ModeConcurrent
}

func DefaultConfig() Config {
	return Config{
		Root:            ".",
		Port:            "9898",
		MimeTypesPath:   "/etc/mime.types",
		DefaultMimeType: "text/plain",
		Mode:            ModeSingle,
		Workers:         runtime.NumCPU(),
	}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeSingle, ModeForking, ModeConcurrent:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrBadConfig, c.Mode)
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("%w: port %q", ErrBadConfig, c.Port)
	}
	if c.Root == "" {
		return fmt.Errorf("%w: empty root", ErrBadConfig)
	}
	if c.Mode == ModeConcurrent && c.Workers < 1 {
		return fmt.Errorf("%w: %d workers", ErrBadConfig, c.Workers)
	}
	return nil
}

// environment variables carrying Config into worker processes
const (
	envRoot     = "SPIDEY_ROOT"
	envPort     = "SPIDEY_PORT"
	envMimePath = "SPIDEY_MIME_TYPES"
	envMimeDef  = "SPIDEY_DEFAULT_MIME_TYPE"
	envMode     = "SPIDEY_MODE"
)

// Environ encodes c as KEY=value pairs for a child environment
func (c Config) Environ() []string {
	return []string{
		envRoot + "=" + c.Root,
		envPort + "=" + c.Port,
		envMimePath + "=" + c.MimeTypesPath,
		envMimeDef + "=" + c.DefaultMimeType,
		envMode + "=" + string(c.Mode),
	}
}

// ConfigFromEnv is the inverse of Environ; unset variables keep their defaults
func ConfigFromEnv() Config {
	c := DefaultConfig()
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	set(&c.Root, envRoot)
	set(&c.Port, envPort)
	set(&c.MimeTypesPath, envMimePath)
	set(&c.DefaultMimeType, envMimeDef)

	if v, ok := os.LookupEnv(envMode); ok {
		c.Mode = Mode(v)
	}
	return c
}
