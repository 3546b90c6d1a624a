package tools

import (
	"log"

	"github.com/ccplugins/workbench/internal/archive"
	"github.com/ccplugins/workbench/internal/session"
)

// ArchiveBridge forwards the findings of successfully completed runs
// into the cross-project archive. It implements phases.RunObserver.
type ArchiveBridge struct {
	store   *archive.Store
	project string
}

// NewArchiveBridge creates a bridge into the archive. Returns nil if
// store is nil — callers should just assign it to a
// phases.RunObserver variable; the runner tolerates nil observers.
func NewArchiveBridge(store *archive.Store, project string) *ArchiveBridge {
	if store == nil {
		return nil
	}
	return &ArchiveBridge{store: store, project: project}
}

// RunCompleted archives the run's findings. Best-effort: archive
// failures are logged, never propagated — the run itself already
// succeeded and persisted.
func (b *ArchiveBridge) RunCompleted(command string, findings []session.Finding) {
	if b == nil {
		return
	}
	if _, err := b.store.RecordRun(command, b.project, findings); err != nil {
		log.Printf("WARNING: could not archive run of %s: %v", command, err)
	}
}
