package invoicing

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/vendor-invoice/internal/domain/shared"
)

func upload(name string, size int) AttachmentUpload {
	return AttachmentUpload{
		FileName:    name,
		ContentType: ContentTypeFor(name),
		Data:        make([]byte, size),
	}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

func TestAttachmentPolicyValidateBatch(t *testing.T) {
	policy := DefaultAttachmentPolicy()

	t.Run("valid batch passes", func(t *testing.T) {
		err := policy.ValidateBatch([]AttachmentUpload{
			upload("invoice.pdf", 1024),
			upload("scan 01.png", 2048),
			upload("photo.jpeg", 512),
		})
		assert.NoError(t, err)
	})

	t.Run("empty batch passes", func(t *testing.T) {
		assert.NoError(t, policy.ValidateBatch(nil))
	})

	t.Run("too many files", func(t *testing.T) {
		files := make([]AttachmentUpload, 11)
		for i := range files {
			files[i] = upload(fmt.Sprintf("file-%d.pdf", i), 100)
		}
		err := policy.ValidateBatch(files)
		assert.Equal(t, "TOO_MANY_ATTACHMENTS", domainCode(t, err))
	})

	t.Run("disallowed extension", func(t *testing.T) {
		err := policy.ValidateBatch([]AttachmentUpload{upload("malware.exe", 100)})
		assert.Equal(t, "UNSUPPORTED_ATTACHMENT_TYPE", domainCode(t, err))
	})

	t.Run("invalid characters in name", func(t *testing.T) {
		err := policy.ValidateBatch([]AttachmentUpload{upload("fa(ture.pdf", 100)})
		assert.Equal(t, "INVALID_ATTACHMENT_NAME", domainCode(t, err))
	})

	t.Run("empty file", func(t *testing.T) {
		err := policy.ValidateBatch([]AttachmentUpload{upload("empty.pdf", 0)})
		assert.Equal(t, "EMPTY_ATTACHMENT", domainCode(t, err))
	})

	t.Run("file over the per-file limit", func(t *testing.T) {
		small := AttachmentPolicy{MaxFileSize: 1000}
		err := small.ValidateBatch([]AttachmentUpload{upload("big.pdf", 1001)})
		assert.Equal(t, "ATTACHMENT_TOO_LARGE", domainCode(t, err))
	})

	t.Run("batch over the total limit", func(t *testing.T) {
		small := AttachmentPolicy{MaxFileSize: 1000, MaxBatchSize: 1500}
		err := small.ValidateBatch([]AttachmentUpload{
			upload("a.pdf", 800),
			upload("b.pdf", 800),
		})
		assert.Equal(t, "ATTACHMENTS_TOO_LARGE", domainCode(t, err))
	})

	t.Run("duplicate names are rejected case-insensitively", func(t *testing.T) {
		err := policy.ValidateBatch([]AttachmentUpload{
			upload("Invoice.pdf", 100),
			upload("invoice.PDF", 100),
		})
		assert.Equal(t, "DUPLICATE_ATTACHMENT", domainCode(t, err))
	})

	t.Run("one bad file fails the whole batch", func(t *testing.T) {
		err := policy.ValidateBatch([]AttachmentUpload{
			upload("good.pdf", 100),
			upload("bad.docx", 100),
		})
		assert.Error(t, err)
	})
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lower-cases", "Invoice.PDF", "invoice.pdf"},
		{"spaces become underscores", "scan 01 final.png", "scan_01_final.png"},
		{"strips disallowed runes", "fa(t)ure!.pdf", "fature.pdf"},
		{"keeps dots dashes underscores", "a_b-c.d.jpg", "a_b-c.d.jpg"},
		{"empty base falls back", "((.pdf", "file.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFileName(tt.input))
		})
	}

	t.Run("base truncated to 100 chars", func(t *testing.T) {
		long := strings.Repeat("a", 150) + ".pdf"
		got := SanitizeFileName(long)
		assert.Equal(t, strings.Repeat("a", 100)+".pdf", got)
	})
}

func TestBuildStorageKey(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	t.Run("key shape", func(t *testing.T) {
		key := BuildStorageKey(now, 0, "Invoice 01.pdf")
		assert.Equal(t, fmt.Sprintf("purchase-invoice-file/%d_invoice_01.pdf", now.UnixMilli()), key)
	})

	t.Run("index keeps keys distinct within one millisecond", func(t *testing.T) {
		a := BuildStorageKey(now, 0, "same.pdf")
		b := BuildStorageKey(now, 1, "same.pdf")
		assert.NotEqual(t, a, b)
	})
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor("a.pdf"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("b.JPG"))
	assert.Equal(t, "image/png", ContentTypeFor("c.png"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("d.bin"))
}
