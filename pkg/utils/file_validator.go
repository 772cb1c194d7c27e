package utils

import (
	"fmt"
	"io"
	"slices"

	"github.com/gabriel-vasile/mimetype"
)

var AllowedAttachmentMimeTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/webp",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
	"application/vnd.ms-excel",
}

// DetectAndValidateFile sniffs the content type and rewinds the reader.
func DetectAndValidateFile(file io.ReadSeeker, size int64, maxSizeMB int64, allowed []string) (string, error) {
	if maxSizeMB > 0 && size > maxSizeMB*1024*1024 {
		return "", fmt.Errorf("file size %d KB exceeds the %d MB limit", size/1024, maxSizeMB)
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("detect file type: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}

	for m := mtype; m != nil; m = m.Parent() {
		if slices.Contains(allowed, m.String()) {
			return mtype.String(), nil
		}
	}
	return "", fmt.Errorf("file type %s is not allowed", mtype.String())
}
