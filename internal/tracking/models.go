package tracking

import (
	"context"
	"time"
)

// Client is what hooks need from the tracking system.
type Client interface {
	RegisterPublish(ctx context.Context, file PublishedFile) (*PublishedFile, error)
	CreateVersion(ctx context.Context, version Version) (*Version, error)
	Upload(ctx context.Context, upload Upload) (*Upload, error)
	// NextVersionNumber returns one past the highest version published for
	// name in project, or 1.
	NextVersionNumber(ctx context.Context, project, name string) (int, error)
}

// PublishedFile is a registered publish of one file.
type PublishedFile struct {
	ID            int64     `json:"id"`
	Project       string    `json:"project"`
	EntityType    string    `json:"entity_type,omitempty"`
	EntityID      int64     `json:"entity_id,omitempty"`
	Task          string    `json:"task,omitempty"`
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	FileType      string    `json:"published_file_type"`
	VersionNumber int       `json:"version_number"`
	Comment       string    `json:"comment,omitempty"`
	User          string    `json:"user,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Version is a review version, optionally linked to a published file.
type Version struct {
	ID              int64     `json:"id"`
	Project         string    `json:"project"`
	EntityType      string    `json:"entity_type,omitempty"`
	EntityID        int64     `json:"entity_id,omitempty"`
	Code            string    `json:"code"`
	Description     string    `json:"description,omitempty"`
	PublishedFileID int64     `json:"published_file_id,omitempty"`
	PathToMovie     string    `json:"path_to_movie,omitempty"`
	PathToFrames    string    `json:"path_to_frames,omitempty"`
	User            string    `json:"user,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Upload attaches a file to a tracking record field, for example a
// thumbnail on a published file or a movie on a version.
type Upload struct {
	ID         int64     `json:"id"`
	EntityKind string    `json:"entity_kind"`
	EntityID   int64     `json:"entity_id"`
	Field      string    `json:"field"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunStatus is the outcome of a publish run.
type RunStatus string

const (
	RunRunning          RunStatus = "running"
	RunSucceeded        RunStatus = "succeeded"
	RunValidationFailed RunStatus = "validation_failed"
	RunFailed           RunStatus = "failed"
)

// Run is one recorded validate, publish, finalize pass.
type Run struct {
	ID         string     `json:"id"`
	Context    string     `json:"context,omitempty"`
	Status     RunStatus  `json:"status"`
	Tasks      int        `json:"tasks"`
	Failures   int        `json:"failures"`
	Phase      string     `json:"phase,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
