package entity

import "time"

// UploadedFile is a registered upload awaiting processing. Entries live in
// the upload registry under the generated file ID and expire after a TTL so
// abandoned uploads do not accumulate.
type UploadedFile struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	OriginalName string    `json:"original_name"`
	DocumentType string    `json:"document_type"`
	ContentHash  string    `json:"content_hash"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedAt   time.Time `json:"uploaded_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}
