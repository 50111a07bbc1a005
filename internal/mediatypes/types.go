// Package mediatypes classifies gallery files by extension and maps them to
// MIME types. The mapping is closed: anything unknown is generic binary.
package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the gallery classification of a file.
type FileType string

const (
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents a file the gallery does not display.
	FileTypeOther FileType = "other"
)

// DefaultMimeType is used for extensions outside the mapping.
const DefaultMimeType = "application/octet-stream"

// ImageExtensions lists the supported image formats.
var ImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".svg": true, ".ico": true,
	".tiff": true, ".tif": true, ".heic": true, ".heif": true,
	".avif": true,
}

// VideoExtensions lists the supported video formats.
var VideoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".mpeg": true, ".mpg": true, ".3gp": true, ".ts": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// Ext returns the lowercase extension of filename including the dot.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// GetFileType returns the FileType for a lowercase extension such as ".jpg".
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a lowercase extension, or
// DefaultMimeType when the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return DefaultMimeType
}

// TypeOf classifies a filename.
func TypeOf(filename string) FileType {
	return GetFileType(Ext(filename))
}

// MimeTypeOf infers the MIME type of a filename from its extension.
func MimeTypeOf(filename string) string {
	return GetMimeType(Ext(filename))
}

// IsMediaFile reports whether the gallery displays filename.
func IsMediaFile(filename string) bool {
	return TypeOf(filename) != FileTypeOther
}
