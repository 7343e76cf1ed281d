// Package exporter writes per-zone DNS exports to local disk.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cfdnsbackup/cloudflare"
)

// DefaultOutputDir is where exports land unless overridden.
const DefaultOutputDir = "domains"

// ErrUnsafeZoneName indicates a zone name that cannot be used verbatim as a
// file name without escaping the output directory.
var ErrUnsafeZoneName = errors.New("zone name is not a safe file name")

// Fetcher retrieves the raw zone-file export for a zone ID.
// *cloudflare.Client satisfies it.
type Fetcher interface {
	ExportDNSRecords(ctx context.Context, zoneID string) ([]byte, error)
}

// Option configures Writer construction behavior.
type Option func(*Writer)

// WithOutputDir overrides the default output directory.
func WithOutputDir(dir string) Option {
	return func(w *Writer) {
		w.dir = strings.TrimSpace(dir)
	}
}

// WithLogf injects a line printer for per-zone progress output.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(w *Writer) {
		w.logf = logf
	}
}

// Failure records one zone whose export did not complete.
type Failure struct {
	Zone cloudflare.Zone
	Err  error
}

// Writer persists zone-file exports, one file per zone, named after the zone.
type Writer struct {
	fetcher Fetcher
	dir     string
	logf    func(format string, args ...any)
}

// NewWriter creates a Writer backed by fetcher.
func NewWriter(fetcher Fetcher, opts ...Option) *Writer {
	w := &Writer{
		fetcher: fetcher,
		dir:     DefaultOutputDir,
		logf:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.dir == "" {
		w.dir = DefaultOutputDir
	}
	return w
}

// OutputDir returns the directory exports are written to.
func (w *Writer) OutputDir() string {
	return w.dir
}

// EnsureOutputDir creates the output directory if it does not exist. Called
// once before the export loop; the per-zone path never creates directories.
func (w *Writer) EnsureOutputDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", w.dir, err)
	}
	return nil
}

// ExportZone fetches one zone's export and writes it verbatim to
// {dir}/{name}.txt, silently replacing any previous export. The fetch
// happens before the file is touched, so a failed fetch never clobbers an
// existing backup.
func (w *Writer) ExportZone(ctx context.Context, zone cloudflare.Zone) error {
	if err := checkZoneFileName(zone.Name); err != nil {
		return err
	}

	data, err := w.fetcher.ExportDNSRecords(ctx, zone.ID)
	if err != nil {
		var statusErr *cloudflare.HTTPStatusError
		if errors.As(err, &statusErr) {
			return fmt.Errorf("cloudflare returned status %d when fetching DNS records for %s: %w",
				statusErr.StatusCode, zone.Name, err)
		}
		return fmt.Errorf("fetch DNS records for %s: %w", zone.Name, err)
	}

	path := filepath.Join(w.dir, zone.Name+".txt")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write DNS records for %s: %w", zone.Name, err)
	}

	w.logf("Successfully exported DNS records for %s", zone.Name)
	return nil
}

// ExportAll exports every zone in order, best-effort: a failing zone is
// reported and recorded but does not stop the remaining zones. A canceled
// context stops the loop.
func (w *Writer) ExportAll(ctx context.Context, zones []cloudflare.Zone) []Failure {
	var failures []Failure
	for _, zone := range zones {
		if ctx.Err() != nil {
			failures = append(failures, Failure{Zone: zone, Err: ctx.Err()})
			continue
		}
		if err := w.ExportZone(ctx, zone); err != nil {
			w.logf("Error: %v", err)
			failures = append(failures, Failure{Zone: zone, Err: err})
		}
	}
	return failures
}

// checkZoneFileName rejects zone names that would resolve outside the output
// directory or cannot name a file at all. Names are rejected, not escaped: a
// silently renamed backup is worse than a reported one.
func checkZoneFileName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrUnsafeZoneName, name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrUnsafeZoneName, name)
	}
	return nil
}
