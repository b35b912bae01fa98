package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	apperrors "github.com/nearmi/localhunt-backend/internal/errors"
	"github.com/nearmi/localhunt-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	folder string
	err    error
}

func (f *fakePresigner) GeneratePresignedURLWithFolder(_ context.Context, filename, _, folder string) (*storage.PresignedURLResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.folder = folder
	key := folder + "/" + filename
	return &storage.PresignedURLResponse{
		UploadURL: "https://bucket.example.com/" + key + "?sig=1",
		FileURL:   "https://cdn.example.com/" + key,
		Key:       key,
	}, nil
}

func presign(t *testing.T, gen PresignedURLGenerator, req GeneratePresignedURLRequest) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/upload", NewUploadController(gen).GeneratePresignedURL)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)
	return w
}

func TestUploadController_DefaultsToGallery(t *testing.T) {
	gen := &fakePresigner{}
	w := presign(t, gen, GeneratePresignedURLRequest{Filename: "shop.jpg", ContentType: "image/jpeg"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, storage.FolderVendorGallery, gen.folder)
	body := decode(t, w)
	assert.Equal(t, storage.FolderVendorGallery+"/shop.jpg", body["key"])
	assert.NotEmpty(t, body["uploadUrl"])
}

func TestUploadController_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		req    GeneratePresignedURLRequest
		gen    *fakePresigner
		status int
		code   string
	}{
		{
			name:   "not an image",
			req:    GeneratePresignedURLRequest{Filename: "menu.pdf", ContentType: "application/pdf"},
			gen:    &fakePresigner{},
			status: http.StatusBadRequest,
			code:   apperrors.UploadInvalidFileType,
		},
		{
			name:   "unknown folder",
			req:    GeneratePresignedURLRequest{Filename: "a.png", ContentType: "image/png", Folder: "../etc"},
			gen:    &fakePresigner{},
			status: http.StatusBadRequest,
			code:   apperrors.ValidationInvalidInput,
		},
		{
			name:   "storage failure",
			req:    GeneratePresignedURLRequest{Filename: "a.png", ContentType: "image/png"},
			gen:    &fakePresigner{err: errors.New("no credentials")},
			status: http.StatusInternalServerError,
			code:   apperrors.InternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := presign(t, tt.gen, tt.req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCodeOf(t, w))
		})
	}
}
