package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	key := objectKey("/vendors/profile/", "/tmp/upload-123.JPG")

	assert.True(t, strings.HasPrefix(key, "vendors/profile/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, objectKey("vendors/profile", "/tmp/upload-123.JPG"))
}

func TestFileURL(t *testing.T) {
	s := NewS3Storage("ap-south-1", "localhunt-uploads", "key", "secret", "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/vendors/a.png", s.fileURL("vendors/a.png"))

	direct := NewS3Storage("ap-south-1", "localhunt-uploads", "key", "secret", "")
	assert.Equal(t, "https://localhunt-uploads.s3.ap-south-1.amazonaws.com/vendors/a.png", direct.fileURL("vendors/a.png"))
}

func TestValidateFileSize(t *testing.T) {
	assert.NoError(t, ValidateFileSize(1024, 5<<20))
	assert.Error(t, ValidateFileSize(6<<20, 5<<20))
}

func TestValidateContentType(t *testing.T) {
	assert.NoError(t, ValidateContentType("image/png", AllowedImageTypes))
	assert.Error(t, ValidateContentType("application/pdf", AllowedImageTypes))
}
