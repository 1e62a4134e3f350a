// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Config holds process-wide settings. It is loaded once at startup from the
// .env file and environment variables, and passed to components as a value;
// nothing mutates it after load.
type Config struct {
	// StorageAccountName is the Azure Storage account hosting the container.
	StorageAccountName string

	// ContainerName is the blob container holding source and target files.
	ContainerName string

	// InputPrefix is the blob-name prefix under which source files live.
	InputPrefix string

	// OutputPrefix is the blob-name prefix PDFs are written under. The
	// directory structure below InputPrefix is mirrored here.
	OutputPrefix string

	// OverwriteOutput allows uploads to replace existing target blobs even
	// without --force.
	OverwriteOutput bool

	// ExcludePrefixes lists directories under InputPrefix that are never
	// processed (e.g. "Logs/", "Mapping Tables/").
	ExcludePrefixes []string

	// OfficeTimeout bounds a single office-engine invocation.
	OfficeTimeout time.Duration

	// BrowserTimeout bounds a single headless-browser invocation.
	BrowserTimeout time.Duration

	// StorageRetries is the number of retry attempts for transient storage
	// faults before a file is recorded as failed.
	StorageRetries int

	// LogPath is the migration log file, appended to by every batch run.
	LogPath string

	// StateDBPath is the local run-ledger database.
	StateDBPath string
}

// Validate checks that the settings required for remote storage access are
// present. Local-only commands (convert, failures) do not call this.
func (c Config) Validate() error {
	missing := []string{}
	if c.StorageAccountName == "" {
		missing = append(missing, "STORAGE_ACCOUNT_NAME")
	}
	if c.ContainerName == "" {
		missing = append(missing, "CONTAINER_NAME")
	}
	if c.InputPrefix == "" {
		missing = append(missing, "INPUT_PREFIX")
	}
	if c.OutputPrefix == "" {
		missing = append(missing, "OUTPUT_PREFIX")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	return nil
}
