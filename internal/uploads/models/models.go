package models

import "time"

// Upload describes a stored file
type Upload struct {
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// AllowedTypes maps accepted MIME types to the extension files are stored with
var AllowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// PublicPath is where stored files are served from
const PublicPath = "/uploads"
