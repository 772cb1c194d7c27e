package entities

import "time"

type Attachment struct {
	ID           string    `json:"id" db:"id"`
	RequestID    *string   `json:"requestId" db:"request_id"`
	ClientID     *string   `json:"clientId" db:"client_id"`
	FileName     string    `json:"fileName" db:"file_name"`
	StorageKey   string    `json:"-" db:"storage_key"`
	MimeType     string    `json:"mimeType" db:"mime_type"`
	SizeBytes    int64     `json:"sizeBytes" db:"size_bytes"`
	UploadedByID string    `json:"uploadedById" db:"uploaded_by_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
