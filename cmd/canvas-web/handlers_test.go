package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dcarter/nova-canvas-studio/internal/nova"
)

var pngBlob = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x01}

type fakeInvoker struct {
	body []byte
	err  error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

// setupTest points the handler globals at a temp directory and a canned
// model response.
func setupTest(t *testing.T, blobs [][]byte) {
	t.Helper()
	outputBase = t.TempDir()
	archiveBucket = ""
	s3Client = nil
	presigner = nil

	images := make([]string, len(blobs))
	for i, b := range blobs {
		images[i] = base64.StdEncoding.EncodeToString(b)
	}
	body, err := json.Marshal(map[string]interface{}{"images": images})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	generator = nova.NewGenerator(&fakeInvoker{body: body}, "")
}

func createSession(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	handleSession(rec, httptest.NewRequest(http.MethodPost, "/api/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d", rec.Code)
	}
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	return resp.SessionID
}

func postGenerate(t *testing.T, req generateRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rec := httptest.NewRecorder()
	handleGenerate(rec, httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body)))
	return rec
}

func TestGenerateEndToEnd(t *testing.T) {
	blobA := append(append([]byte{}, pngBlob...), 'a')
	blobB := append(append([]byte{}, pngBlob...), 'b')
	setupTest(t, [][]byte{blobA, blobB})
	sessionID := createSession(t)

	rec := postGenerate(t, generateRequest{
		SessionID:      sessionID,
		Mode:           "text-to-image",
		Prompt:         "a red bicycle",
		NumberOfImages: 2,
		Quality:        "standard",
		Width:          1024,
		Height:         768,
		CfgScale:       7.0,
		Seed:           42,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Failed bool         `json:"failed"`
		Count  int          `json:"count"`
		Images []imageEntry `json:"images"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Failed {
		t.Fatal("generation reported failure")
	}
	if resp.Count != 2 || len(resp.Images) != 2 {
		t.Fatalf("count = %d, images = %d, want 2 and 2", resp.Count, len(resp.Images))
	}

	// Files are numbered 1..N in response order inside the session dir.
	sess, ok := getSession(sessionID)
	if !ok {
		t.Fatal("session disappeared")
	}
	wantFiles := map[string][]byte{
		"image_1.png": blobA,
		"image_2.png": blobB,
	}
	for i, wantName := range []string{"image_1.png", "image_2.png"} {
		if resp.Images[i].Name != wantName {
			t.Errorf("images[%d].Name = %q, want %q", i, resp.Images[i].Name, wantName)
		}
		data, err := os.ReadFile(filepath.Join(sess.OutputDir, wantName))
		if err != nil {
			t.Fatalf("read %s: %v", wantName, err)
		}
		if !bytes.Equal(data, wantFiles[wantName]) {
			t.Errorf("%s content does not match response order", wantName)
		}
	}
}

func TestGenerateValidationError(t *testing.T) {
	setupTest(t, [][]byte{pngBlob})
	sessionID := createSession(t)

	// Image-guided generation without a conditioning image must fail
	// before any model call.
	rec := postGenerate(t, generateRequest{
		SessionID:      sessionID,
		Mode:           "image-guided",
		Prompt:         "a person",
		NumberOfImages: 1,
		Quality:        "standard",
		Width:          1024,
		Height:         768,
		CfgScale:       7.0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateUnknownMode(t *testing.T) {
	setupTest(t, [][]byte{pngBlob})
	sessionID := createSession(t)

	rec := postGenerate(t, generateRequest{SessionID: sessionID, Mode: "sketch"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateUnknownSession(t *testing.T) {
	setupTest(t, [][]byte{pngBlob})

	rec := postGenerate(t, generateRequest{SessionID: "nope", Mode: "text-to-image", Prompt: "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateModelFailure(t *testing.T) {
	outputBase = t.TempDir()
	archiveBucket = ""
	s3Client = nil
	presigner = nil
	generator = nova.NewGenerator(&fakeInvoker{body: []byte(`{"error":"throttled"}`)}, "")
	sessionID := createSession(t)

	rec := postGenerate(t, generateRequest{
		SessionID:      sessionID,
		Mode:           "text-to-image",
		Prompt:         "a cat",
		NumberOfImages: 1,
		Quality:        "standard",
		Width:          512,
		Height:         512,
		CfgScale:       7.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with failure flag", rec.Code)
	}
	var resp struct {
		Failed bool   `json:"failed"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Failed || resp.Error == "" {
		t.Errorf("resp = %+v, want failed with message", resp)
	}
}

func TestSessionReuseAcrossRequests(t *testing.T) {
	setupTest(t, [][]byte{pngBlob})
	sessionID := createSession(t)
	sess, _ := getSession(sessionID)

	req := generateRequest{
		SessionID:      sessionID,
		Mode:           "text-to-image",
		Prompt:         "a cat",
		NumberOfImages: 1,
		Quality:        "standard",
		Width:          512,
		Height:         512,
		CfgScale:       7.0,
		RandomSeed:     true,
	}
	for i := 0; i < 2; i++ {
		if rec := postGenerate(t, req); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	// Both requests write into the same session directory.
	entries, err := os.ReadDir(sess.OutputDir)
	if err != nil {
		t.Fatalf("read session dir: %v", err)
	}
	if len(entries) == 0 {
		t.Error("session directory is empty after two generations")
	}
}

type fakePresigner struct {
	err error
}

func (p *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *params.Key}, nil
}

func TestArchiveLinks(t *testing.T) {
	setupTest(t, [][]byte{pngBlob})
	archiveBucket = "archive-bucket"
	presigner = &fakePresigner{}

	sessionID := createSession(t)
	sess, _ := getSession(sessionID)
	sess.addArchivedKeys([]string{
		sessionID + "/generated/image_1.png",
		sessionID + "/generated/image_2.png",
	})

	rec := httptest.NewRecorder()
	handleArchive(rec, httptest.NewRequest(http.MethodGet, "/api/archive?sessionId="+sessionID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Bucket string `json:"bucket"`
		Count  int    `json:"count"`
		Images []struct {
			Key string `json:"key"`
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Bucket != "archive-bucket" || resp.Count != 2 {
		t.Fatalf("resp = %+v, want bucket archive-bucket and count 2", resp)
	}
	for i, img := range resp.Images {
		wantKey := sessionID + "/generated/image_" + string(rune('1'+i)) + ".png"
		if img.Key != wantKey {
			t.Errorf("images[%d].Key = %s, want %s", i, img.Key, wantKey)
		}
		if img.URL != "https://signed.example/"+wantKey {
			t.Errorf("images[%d].URL = %s, want signed URL for key", i, img.URL)
		}
	}
}

func TestArchiveLinksDisabled(t *testing.T) {
	setupTest(t, [][]byte{pngBlob})
	sessionID := createSession(t)

	rec := httptest.NewRecorder()
	handleArchive(rec, httptest.NewRequest(http.MethodGet, "/api/archive?sessionId="+sessionID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when no archive bucket is configured", rec.Code)
	}
}
