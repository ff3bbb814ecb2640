package asset

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestLocalResource(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "models"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.scene"), []byte("main"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "models", "box.obj"), []byte("box"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewResource(filepath.Join(dir, "main.scene"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected local resource")
	}
	if res.Name() != "main.scene" {
		t.Fatalf("expected name main.scene; got %s", res.Name())
	}

	inc, err := NewResource("models/box.obj", res)
	if err != nil {
		t.Fatal(err)
	}
	defer inc.Close()

	data, err := io.ReadAll(inc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "box" {
		t.Fatalf("expected to read included resource; got %q", string(data))
	}
}

func TestHttpResource(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/scenes/main.scene", "/scenes/materials.mtl":
			w.Write([]byte("OK"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	res, err := NewResource(server.URL+"/scenes/main.scene", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if !res.IsRemote() || res.Name() != "main.scene" {
		t.Fatalf("expected remote resource named main.scene; got %s (remote: %t)", res.Name(), res.IsRemote())
	}

	inc, err := NewResource("materials.mtl", res)
	if err != nil {
		t.Fatal(err)
	}
	defer inc.Close()
	if inc.Path() != server.URL+"/scenes/materials.mtl" {
		t.Fatalf("expected include to resolve against the remote directory; got %s", inc.Path())
	}

	_, err = NewResource(server.URL+"/scenes/missing.scene", nil)
	if !errors.Is(err, ErrFetchFailed) || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected to get ErrFetchFailed with status 404; got %v", err)
	}

	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected server to receive 3 requests; got %d", got)
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	_, err := NewResource("gopher://digging.scene", nil)
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected to get ErrUnsupportedScheme; got %v", err)
	}
}

func TestResourceFromStream(t *testing.T) {
	res := NewResourceFromStream("inline.scene", strings.NewReader("sphere 0 0 0 1"))
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "sphere 0 0 0 1" || res.Name() != "inline.scene" {
		t.Fatalf("unexpected stream resource contents %q (name %s)", string(data), res.Name())
	}
}
