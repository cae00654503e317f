package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Application represents a loan application for data transfer between layers.
type Application struct {
	ID                 uuid.UUID       `json:"id"`
	ApplicantName      string          `json:"applicant_name"`
	Status             string          `json:"status"`
	ProcessingStatus   string          `json:"processing_status"`
	ExtractedJSON      json.RawMessage `json:"extracted_json,omitempty"`
	OCRConfidence      *float64        `json:"ocr_confidence,omitempty"`
	OCRMethod          *string         `json:"ocr_method,omitempty"`
	ErrorMessage       *string         `json:"error_message,omitempty"`
	IsManuallyVerified bool            `json:"is_manually_verified"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Documents          []DocumentRef   `json:"documents,omitempty"`
}

// DocumentRef is one uploaded document attached to an application.
type DocumentRef struct {
	ID            uuid.UUID `json:"id"`
	ApplicationID uuid.UUID `json:"application_id"`
	DocumentType  string    `json:"document_type"`
	OriginalName  string    `json:"original_name"`
	ContentHash   string    `json:"content_hash"`
	SizeBytes     int64     `json:"size_bytes"`
	UploadedAt    time.Time `json:"uploaded_at"`
}
