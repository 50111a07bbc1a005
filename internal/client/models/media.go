// Package models defines the gallery data types shared by the client layers.
package models

import (
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/mediatypes"
)

// MediaItem is a stored file as returned by the backend listing.
//
// Comment is nil, a legacy plain string, or a JSON-serialized comment list;
// use the comments package to interpret it.
type MediaItem struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	SizeBytes   int64     `json:"sizeBytes"`
	MimeType    string    `json:"mimeType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	IsFavorite  bool      `json:"isFavorite,omitempty"`
	Comment     *string   `json:"comment,omitempty"`
	IsEncrypted bool      `json:"isEncrypted,omitempty"`
	FolderID    *string   `json:"folderId,omitempty"`
}

// Type classifies the item by its filename extension.
func (m MediaItem) Type() mediatypes.FileType {
	return mediatypes.TypeOf(m.Filename)
}

// DisplayMimeType prefers the backend-reported MIME type and falls back to
// the extension mapping.
func (m MediaItem) DisplayMimeType() string {
	if m.MimeType != "" {
		return m.MimeType
	}
	return mediatypes.MimeTypeOf(m.Filename)
}

// Listing is one page of the file listing.
type Listing struct {
	Files   []MediaItem `json:"files"`
	Total   int         `json:"total"`
	HasMore bool        `json:"hasMore"`
}

// FileVersion describes one stored revision of a file.
type FileVersion struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}
