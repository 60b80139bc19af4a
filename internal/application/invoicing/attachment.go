package invoicing

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/erp/vendor-invoice/internal/domain/shared"
)

// ObjectStorage defines the interface for object storage operations.
// This interface is implemented by the infrastructure layer (S3, MinIO, etc.)
type ObjectStorage interface {
	// Upload stores attachment bytes under the given key
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// Delete removes an object from storage
	Delete(ctx context.Context, storageKey string) error

	// GenerateDownloadURL generates a presigned URL for downloading a file.
	// Returns the download URL and expiration time.
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// attachmentKeyPrefix is the object-key namespace for invoice attachments
const attachmentKeyPrefix = "purchase-invoice-file"

// maxSanitizedBaseLength caps the base name carried into the object key
const maxSanitizedBaseLength = 100

// allowedExtensions is the whitelist of attachment file types. Invoices are
// scans or exports; anything else is rejected outright.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// fileNamePattern is the charset accepted for submitted file names
var fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9 ._-]+$`)

// sanitizeStripPattern removes everything the object key may not carry
var sanitizeStripPattern = regexp.MustCompile(`[^a-z0-9._-]`)

// AttachmentPolicy validates attachment batches and derives object keys.
// Limits come from configuration; zero values fall back to the defaults
// below.
type AttachmentPolicy struct {
	MaxFiles     int
	MaxFileSize  int64
	MaxBatchSize int64
}

// DefaultAttachmentPolicy returns the default limits
func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxFiles:     10,
		MaxFileSize:  10 << 20,
		MaxBatchSize: 100 << 20,
	}
}

// ValidateBatch checks a whole attachment batch before any upload starts.
// One bad file fails the batch: partial uploads are never attempted.
func (p AttachmentPolicy) ValidateBatch(files []AttachmentUpload) error {
	maxFiles := p.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultAttachmentPolicy().MaxFiles
	}
	maxFileSize := p.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultAttachmentPolicy().MaxFileSize
	}
	maxBatchSize := p.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultAttachmentPolicy().MaxBatchSize
	}

	if len(files) > maxFiles {
		return shared.NewDomainError("TOO_MANY_ATTACHMENTS",
			fmt.Sprintf("At most %d attachments are allowed", maxFiles))
	}

	seen := make(map[string]struct{}, len(files))
	var totalSize int64
	for _, file := range files {
		if err := p.validateFile(file, maxFileSize); err != nil {
			return err
		}
		name := strings.ToLower(file.FileName)
		if _, dup := seen[name]; dup {
			return shared.NewDomainError("DUPLICATE_ATTACHMENT",
				fmt.Sprintf("Duplicate attachment name: %s", file.FileName))
		}
		seen[name] = struct{}{}
		totalSize += int64(len(file.Data))
	}
	if totalSize > maxBatchSize {
		return shared.NewDomainError("ATTACHMENTS_TOO_LARGE",
			fmt.Sprintf("Attachments exceed the %dMB batch limit", maxBatchSize>>20))
	}
	return nil
}

func (p AttachmentPolicy) validateFile(file AttachmentUpload, maxFileSize int64) error {
	if strings.TrimSpace(file.FileName) == "" {
		return shared.NewDomainError("INVALID_ATTACHMENT", "Attachment file name is required")
	}
	if !fileNamePattern.MatchString(file.FileName) {
		return shared.NewDomainError("INVALID_ATTACHMENT_NAME",
			fmt.Sprintf("File name %q contains unsupported characters", file.FileName))
	}
	ext := strings.ToLower(filepath.Ext(file.FileName))
	if _, ok := allowedExtensions[ext]; !ok {
		return shared.NewDomainError("UNSUPPORTED_ATTACHMENT_TYPE",
			fmt.Sprintf("File type %q is not allowed; use pdf, png, jpg or jpeg", ext))
	}
	if len(file.Data) == 0 {
		return shared.NewDomainError("EMPTY_ATTACHMENT",
			fmt.Sprintf("Attachment %s is empty", file.FileName))
	}
	if int64(len(file.Data)) > maxFileSize {
		return shared.NewDomainError("ATTACHMENT_TOO_LARGE",
			fmt.Sprintf("Attachment %s exceeds the %dMB limit", file.FileName, maxFileSize>>20))
	}
	return nil
}

// ContentTypeFor returns the content type for an accepted file name. The
// submitted Content-Type header is ignored; the extension decides.
func ContentTypeFor(fileName string) string {
	if ct, ok := allowedExtensions[strings.ToLower(filepath.Ext(fileName))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// SanitizeFileName lower-cases the name, turns spaces into underscores,
// strips everything outside [a-z0-9._-] and truncates the base name to 100
// characters while keeping the extension.
func SanitizeFileName(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	base = strings.ToLower(base)
	base = strings.ReplaceAll(base, " ", "_")
	base = sanitizeStripPattern.ReplaceAllString(base, "")
	if base == "" {
		base = "file"
	}
	if len(base) > maxSanitizedBaseLength {
		base = base[:maxSanitizedBaseLength]
	}
	return base + ext
}

// BuildStorageKey derives the object key for one file of a batch. The
// timestamp gets an index offset so files sharing a millisecond still get
// distinct keys.
func BuildStorageKey(now time.Time, index int, fileName string) string {
	millis := now.UnixMilli() + int64(index)
	return fmt.Sprintf("%s/%d_%s", attachmentKeyPrefix, millis, SanitizeFileName(fileName))
}
