// Package storedir resolves the per-user, per-application directory that holds
// persisted documents.
//
// On Linux the default root is ~/.local/share, on macOS ~/Library/Application
// Support and on Windows %LOCALAPPDATA%, following github.com/adrg/xdg.
package storedir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-audit/internal/mainqueue"
)

var (
	// ErrResolve wraps every failure to resolve or create the directory.
	ErrResolve = errors.New("resolve storage directory")
	// ErrNoAppName is returned when Config.AppName is blank.
	ErrNoAppName = errors.New("application name is required")
	// ErrNotDirectory is returned when the resolved path exists but is a file.
	ErrNotDirectory = errors.New("storage path is not a directory")
)

// ErrorReceiver is the hook that load-time failures are routed to.
type ErrorReceiver func(err error)

// Config locates the directory.
type Config struct {
	// Root overrides the platform data directory; empty means xdg.DataHome.
	Root string `mapstructure:"dir"`
	// AppName is the per-application directory under Root.
	AppName string `mapstructure:"app_name"`
	// PathComponents are appended under AppName, e.g. ["v1"].
	PathComponents []string `mapstructure:"path_components"`
}

// Directory resolves and creates the configured storage directory.
type Directory struct {
	cfg     Config
	onError ErrorReceiver
	logger  *zap.Logger
}

// New constructs a Directory. onError may be nil, in which case failures are
// logged and dropped.
func New(cfg Config, onError ErrorReceiver, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{cfg: cfg, onError: onError, logger: logger}
}

// Path returns the directory path without touching the filesystem.
func (d *Directory) Path() (string, error) {
	if strings.TrimSpace(d.cfg.AppName) == "" {
		return "", fmt.Errorf("%w: %w", ErrResolve, ErrNoAppName)
	}
	root := d.cfg.Root
	if strings.TrimSpace(root) == "" {
		root = xdg.DataHome
	}
	parts := append([]string{root, d.cfg.AppName}, d.cfg.PathComponents...)
	return filepath.Join(parts...), nil
}

// Resolve returns the directory path, creating it when missing.
func (d *Directory) Resolve() (string, error) {
	dir, err := d.Path()
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("%w: %s: %w", ErrResolve, dir, ErrNotDirectory)
	case err == nil:
		return dir, nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("%w: stat %s: %w", ErrResolve, dir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrResolve, dir, err)
	}
	return dir, nil
}

// UseOnQueue resolves the directory on a background goroutine and then runs fn
// on dispatch with the outcome. Failures are also passed to the error hook.
func (d *Directory) UseOnQueue(dispatch mainqueue.Dispatcher, fn func(dir string, err error)) {
	go func() {
		dir, err := d.Resolve()
		dispatch.Dispatch(func() {
			if err != nil {
				d.Report(err)
			}
			fn(dir, err)
		})
	}()
}

// Report forwards err to the error hook, or logs it when no hook is installed.
func (d *Directory) Report(err error) {
	if err == nil {
		return
	}
	if d.onError != nil {
		d.onError(err)
		return
	}
	d.logger.Warn("storage error dropped; no error receiver installed", zap.Error(err))
}
