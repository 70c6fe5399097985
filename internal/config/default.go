package config

import (
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ServerName is the value of the Server response header and the process
// name used in diagnostics.
const ServerName = "gatehouse"

// Version is the released version string.
const Version = "0.1.0"

// Defaults applied when the configuration leaves an option out.
const (
	// DefaultBuffer is the streaming chunk size for response bodies.
	DefaultBuffer = 16 * 1024

	// DefaultCompressLevel applies when `compress` is enabled bare.
	DefaultCompressLevel = 3

	// DefaultProxyTimeout bounds an upstream call without an explicit
	// `timeout`.
	DefaultProxyTimeout = 5 * time.Second

	// DefaultTimeFormat is the strftime pattern of the autoindex
	// modification-time column.
	DefaultTimeFormat = "%Y-%m-%d %H:%M"

	// DefaultLogFormat is the access-log line when `log` gives no format.
	DefaultLogFormat = "${request_method} ${request_uri}"

	// DefaultStartAddr is the bind address of the `start` subcommand.
	DefaultStartAddr = "0.0.0.0:80"

	logMaxSizeMB  = 100
	logMaxBackups = 7
)

// DefaultIndex is probed when a request resolves to a directory and the
// site sets no `index`.
var DefaultIndex = []string{"index.html", "index.htm"}

// DefaultMethods allows GET and HEAD when no `method` is configured.
var DefaultMethods = []string{http.MethodGet, http.MethodHead}

// DefaultCompressExtensions is the whitelist used by a bare `compress on`.
var DefaultCompressExtensions = []string{"html", "css", "js", "json", "xml"}

// homeDir is the per-user state directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "."+ServerName)
}

// DefaultConfigPath is loaded when no -c flag is given.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), "config.conf")
}

// PidPath records the running process id for the stop command.
func PidPath() string {
	return filepath.Join(homeDir(), "pid")
}

// QuickStart builds the ephemeral single-site configuration of the
// `start` subcommand: serve root with the autoindex on, time and size
// columns enabled.
func QuickStart(root, listen string) *ServerConfig {
	layout, _ := strftimeLayout(DefaultTimeFormat)
	site := &SiteConfig{}
	site.Root = &root
	site.Directory = Value(Directory{TimeLayout: layout, Size: true})
	site.Method = Value(DefaultMethods)

	return &ServerConfig{
		Listen: listen,
		Sites:  []*SiteConfig{site},
		Buffer: DefaultBuffer,
	}
}
