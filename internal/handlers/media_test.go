package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

// pngHeader is enough of a PNG for a multipart body.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func multipartImage(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func uploadTestImage(t *testing.T, env *testEnv) string {
	t.Helper()

	body, contentType := multipartImage(t, formFieldImage, "photo.png", "image/png", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/image-upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body)
	}

	resp := decodeBody[UploadResponse](t, rec)
	if resp.ImageURL == "" {
		t.Fatal("upload returned empty imageUrl")
	}
	return resp.ImageURL
}

func TestUploadImage(t *testing.T) {
	env := newTestEnv(t)

	imageURL := uploadTestImage(t, env)
	if !strings.HasPrefix(imageURL, testBaseURL+"/uploads/") {
		t.Errorf("imageUrl = %q, want prefix %q", imageURL, testBaseURL+"/uploads/")
	}
	if env.fileStore.count() != 1 {
		t.Errorf("expected one stored object, got %d", env.fileStore.count())
	}
}

func TestUploadNonImage(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartImage(t, formFieldImage, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/image-upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if env.fileStore.count() != 0 {
		t.Error("non-image upload must not store anything")
	}
}

func TestUploadMissingFile(t *testing.T) {
	env := newTestEnv(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/image-upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeleteImage(t *testing.T) {
	env := newTestEnv(t)
	imageURL := uploadTestImage(t, env)

	rec := env.do(t, http.MethodDelete, "/delete-image?imageUrl="+imageURL, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if env.fileStore.count() != 0 {
		t.Error("expected object to be removed")
	}

	// Deleting an already-absent image still succeeds.
	rec = env.do(t, http.MethodDelete, "/delete-image?imageUrl="+imageURL, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("repeat delete status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDeleteImageMissingParam(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/delete-image", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServeImage(t *testing.T) {
	env := newTestEnv(t)
	imageURL := uploadTestImage(t, env)

	key := strings.TrimPrefix(imageURL, testBaseURL+"/uploads/")
	rec := env.do(t, http.MethodGet, "/uploads/"+key, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("content type = %q, want %q", got, "image/png")
	}
	data, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(data, pngHeader) {
		t.Error("served bytes differ from uploaded bytes")
	}
}

func TestServeImageNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/uploads/nope.png", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestServeImageBackendError(t *testing.T) {
	env := newTestEnv(t)
	env.fileStore.getErr = errors.New("backend unavailable")

	rec := env.do(t, http.MethodGet, "/uploads/any.png", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
