package tasks

import "fmt"

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	ResolveCatalog Phase = iota
	ListPlaylists
	Snapshot
	Prune
)

func (p Phase) String() string {
	switch p {
	case ResolveCatalog:
		return "resolve_catalog"
	case ListPlaylists:
		return "list_playlists"
	case Snapshot:
		return "snapshot"
	case Prune:
		return "prune"
	default:
		return ""
	}
}

func resolveUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveCatalog,
		Step:    1,
		Total:   1,
		Message: "Resolving mix catalog...",
	}
}

func listPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListPlaylists,
		Step:    1,
		Total:   1,
		Message: "Listing library playlists...",
	}
}

func snapshotUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Snapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, title),
	}
}

func pruneStartUpdate(retentionDays int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Prune,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Scanning for snapshots older than %d days...", retentionDays),
	}
}

func pruneDeleteUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Prune,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Deleted: %s", name),
	}
}
