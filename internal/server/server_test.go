package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matzehuels/gridcollage/pkg/blob"
	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/session"
	"github.com/matzehuels/gridcollage/pkg/studio"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	blobs, err := blob.OpenBadger("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { blobs.Close() })

	svc, err := studio.New(studio.Config{
		Sessions: session.NewMemoryStore(),
		Blobs:    blobs,
		Rand:     func() *rand.Rand { return grid.NewRand(1) },
	})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(New(Config{Studio: svc}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	return do(t, method, url, r, "application/json")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createSession(t *testing.T, ts *httptest.Server, template string) session.Session {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/sessions", map[string]string{"template": template})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	return decode[session.Session](t, resp)
}

func uploadImage(t *testing.T, ts *httptest.Server, sid, name string) session.Session {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", name)
	fw.Write(img.Bytes())
	mw.Close()

	resp := do(t, http.MethodPost, ts.URL+"/sessions/"+sid+"/images", &body, mw.FormDataContentType())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status %d", resp.StatusCode)
	}
	out := decode[struct {
		Session session.Session `json:"session"`
	}](t, resp)
	return out.Session
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestTemplates(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/templates", nil, "")
	out := decode[[]struct {
		Name    string `json:"name"`
		Slots   int    `json:"slots"`
		Preview string `json:"preview"`
	}](t, resp)

	if len(out) != 8 {
		t.Fatalf("got %d templates, want 8", len(out))
	}
	if out[0].Name != "grid-2x2" || out[0].Slots != 4 || out[0].Preview == "" {
		t.Errorf("first template = %+v", out[0])
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	sess := createSession(t, ts, "grid-2x2")
	base := ts.URL + "/sessions/" + sess.ID

	sess = uploadImage(t, ts, sess.ID, "a.png")
	sess = uploadImage(t, ts, sess.ID, "b.png")
	if len(sess.Images) != 2 || sess.Layout.Filled() != 2 {
		t.Fatalf("images = %d, filled = %d", len(sess.Images), sess.Layout.Filled())
	}

	resp := do(t, http.MethodGet, base+"/images/"+sess.Images[0].ID, nil, "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("get image: status %d, type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp = doJSON(t, http.MethodPut, base+"/cells/r0c0/span", map[string]int{"row_span": 1, "col_span": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("span: status %d", resp.StatusCode)
	}
	sess = decode[session.Session](t, resp)
	if len(sess.Layout.Cells) != 3 {
		t.Errorf("cells after span = %d, want 3", len(sess.Layout.Cells))
	}

	resp = doJSON(t, http.MethodPut, base+"/cells/r1c1/image", map[string]string{"image_id": sess.Images[1].ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, base+"/template", map[string]string{"template": "banner"})
	sess = decode[session.Session](t, resp)
	if sess.Template != "banner" || sess.Layout.Filled() != 2 {
		t.Errorf("switch: template %q, filled %d", sess.Template, sess.Layout.Filled())
	}

	resp = do(t, http.MethodGet, base+"/export?format=jpeg&width=300&height=200&gap=0&quality=80", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("export content type = %q", ct)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "collage.jpg") {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}

	resp = do(t, http.MethodDelete, base+"/images/"+sess.Images[0].ID, nil, "")
	sess = decode[session.Session](t, resp)
	if len(sess.Images) != 1 {
		t.Errorf("images after remove = %d", len(sess.Images))
	}

	resp = do(t, http.MethodDelete, base+"/images", nil, "")
	sess = decode[session.Session](t, resp)
	if len(sess.Images) != 0 || sess.Layout.Filled() != 0 {
		t.Errorf("after clear: images %d, filled %d", len(sess.Images), sess.Layout.Filled())
	}

	resp = do(t, http.MethodPost, base+"/autofill", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("autofill: status %d", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, base, nil, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: status %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, base, nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status %d", resp.StatusCode)
	}
}

func TestCreateSessionWithoutBody(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/sessions", nil, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	sess := decode[session.Session](t, resp)
	if sess.Template != "grid-2x2" {
		t.Errorf("template = %q, want grid-2x2", sess.Template)
	}
}

func TestErrorResponses(t *testing.T) {
	ts := newTestServer(t)
	sess := createSession(t, ts, "grid-3x3")
	base := ts.URL + "/sessions/" + sess.ID

	// Make the bottom row a single cell so a tall right column overlaps it.
	if resp := doJSON(t, http.MethodPut, base+"/cells/r2c0/span", map[string]int{"row_span": 1, "col_span": 3}); resp.StatusCode != http.StatusOK {
		t.Fatalf("setup span: status %d", resp.StatusCode)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown session", http.MethodGet, "/sessions/00000000-0000-0000-0000-000000000000", nil, 404, "SESSION_NOT_FOUND"},
		{"malformed session", http.MethodGet, "/sessions/nope", nil, 404, "SESSION_NOT_FOUND"},
		{"unknown template", http.MethodPost, "/sessions", map[string]string{"template": "nope"}, 404, "TEMPLATE_NOT_FOUND"},
		{"overlap", http.MethodPut, "/sessions/" + sess.ID + "/cells/r0c2/span", map[string]int{"row_span": 3, "col_span": 1}, 409, "OVERLAP"},
		{"unknown cell", http.MethodPut, "/sessions/" + sess.ID + "/cells/zz/span", map[string]int{"row_span": 1, "col_span": 1}, 404, "CELL_NOT_FOUND"},
		{"unknown image", http.MethodPut, "/sessions/" + sess.ID + "/cells/r0c0/image", map[string]string{"image_id": "x"}, 404, "IMAGE_NOT_FOUND"},
		{"unknown field", http.MethodPut, "/sessions/" + sess.ID + "/template", map[string]string{"name": "banner"}, 400, "INVALID_INPUT"},
		{"bad format", http.MethodGet, "/sessions/" + sess.ID + "/export?format=bmp", nil, 400, "UNSUPPORTED_FORMAT"},
		{"bad width", http.MethodGet, "/sessions/" + sess.ID + "/export?width=wide", nil, 400, "INVALID_OUTPUT_SPEC"},
		{"bad colour", http.MethodGet, "/sessions/" + sess.ID + "/export?background=red", nil, 400, "INVALID_COLOR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, tt.method, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decode[errorResponse](t, resp)
			if string(body.Code) != tt.code || body.Error == "" {
				t.Errorf("body = %+v, want code %s", body, tt.code)
			}
		})
	}
}

func TestUploadRequiresFile(t *testing.T) {
	ts := newTestServer(t)
	sess := createSession(t, ts, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "x")
	mw.Close()

	resp := do(t, http.MethodPost, ts.URL+"/sessions/"+sess.ID+"/images", &body, mw.FormDataContentType())
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
