package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is the persisted record for one stored asset. Every edit
// operation produces a brand-new Image; existing rows are only ever
// touched to attach or detach tags.
type Image struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	StorageName      string     `json:"storage_name" db:"storage_name"`
	OriginalFilename string     `json:"original_filename" db:"original_filename"`
	FilePath         string     `json:"file_path" db:"file_path"`
	ThumbnailPath    string     `json:"thumbnail_path" db:"thumbnail_path"`
	Width            int        `json:"width" db:"width"`
	Height           int        `json:"height" db:"height"`
	FileSize         int64      `json:"file_size" db:"file_size"`
	Description      string     `json:"description" db:"description"`
	CaptureTime      *time.Time `json:"capture_time" db:"capture_time"`
	CaptureLocation  string     `json:"capture_location" db:"capture_location"`
	CaptureCamera    string     `json:"capture_camera" db:"capture_camera"`
	OwnerID          uuid.UUID  `json:"-" db:"owner_id"`
	UploadedAt       time.Time  `json:"uploaded_at" db:"uploaded_at"`

	Tags []Tag `json:"tags" db:"-"`
}

// Tag is a named label shared across owners. Tags are looked up or
// created by exact name and are never deleted, only detached.
type Tag struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}
