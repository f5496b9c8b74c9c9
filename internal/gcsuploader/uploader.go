package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const uploadTimeout = 2 * time.Minute

// UploadBytes stores data in bucketName under objectName.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error) {
	return s.upload(ctx, bucketName, objectName, contentType, bytes.NewReader(data))
}

// UploadFile uploads a local file to a GCS bucket under the given object name.
func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	return s.upload(ctx, bucketName, objectName, "application/pdf", f)
}

func (s *GCSStorageService) upload(ctx context.Context, bucketName, objectName, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload: copy to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload: finalize %s/%s: %w", bucketName, objectName, err)
	}

	return "gs://" + bucketName + "/" + objectName, nil
}

// StatementObjectName builds a unique object name for a user's statement:
// statements/<user>/<uuid>-<file>.
func StatementObjectName(userID, filename string) string {
	base := sanitizeName(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if base == "" || base == "." {
		base = "statement.pdf"
	}
	user := sanitizeName(userID)
	if user == "" {
		user = "anonymous"
	}
	return "statements/" + user + "/" + uuid.New().String() + "-" + base
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		default:
			return -1
		}
	}, s)
}
