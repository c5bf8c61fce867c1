package convert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestValidateDownloadURLRejectsNonHTTPS(t *testing.T) {
	if err := validateDownloadURL("http://example.com/file.docx"); err == nil {
		t.Fatalf("expected non-https URL to be rejected")
	}
}

func TestValidateDownloadURLRejectsLocalAndPrivateHosts(t *testing.T) {
	cases := []string{
		"https://localhost/file.docx",
		"https://127.0.0.1/file.docx",
		"https://10.0.0.5/file.docx",
		"https://192.168.1.5/file.docx",
		"https://100.64.0.1/file.docx",
	}

	for _, c := range cases {
		if err := validateDownloadURL(c); err == nil {
			t.Fatalf("expected URL %q to be rejected", c)
		}
	}
}

func TestValidateDownloadURLAllowsPublicHTTPS(t *testing.T) {
	if err := validateDownloadURL("https://example.com/file.docx"); err != nil {
		t.Fatalf("expected public https URL to be allowed, got %v", err)
	}
}

func TestValidateDownloadURLAllowsPrivateLocalWhenEnabled(t *testing.T) {
	t.Setenv("ALLOW_PRIVATE_DOWNLOAD_URLS", "1")

	cases := []string{
		"http://localhost/file.docx",
		"http://127.0.0.1/file.docx",
		"https://10.0.0.5/file.docx",
	}
	for _, c := range cases {
		if err := validateDownloadURL(c); err != nil {
			t.Fatalf("expected URL %q to be allowed with private flag, got %v", c, err)
		}
	}
}

func TestValidateDownloadURLRejectsPublicHTTPWhenEnabled(t *testing.T) {
	t.Setenv("ALLOW_PRIVATE_DOWNLOAD_URLS", "1")

	if err := validateDownloadURL("http://example.com/file.docx"); err == nil {
		t.Fatalf("expected public http URL to remain rejected")
	}
}

func TestSaveBodyToTempAndCleanup(t *testing.T) {
	tf, err := SaveBodyToTemp(strings.NewReader("a,b\n1,2\n"), "../../load.csv", 1<<20)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if tf.FileName != "load.csv" {
		t.Fatalf("expected sanitized file name, got %q", tf.FileName)
	}
	if tf.Size != 8 {
		t.Fatalf("expected size 8, got %d", tf.Size)
	}
	if !strings.HasPrefix(tf.MIMEType, "text/") {
		t.Fatalf("expected text mime type, got %q", tf.MIMEType)
	}
	if _, err := os.Stat(tf.Path); err != nil {
		t.Fatalf("expected temp file to exist: %v", err)
	}

	tf.Cleanup()
	if _, err := os.Stat(tf.TempDir); !os.IsNotExist(err) {
		t.Fatalf("expected temp dir removed, got %v", err)
	}
}

func TestSaveBodyToTempRejectsOversize(t *testing.T) {
	_, err := SaveBodyToTemp(strings.NewReader(strings.Repeat("x", 64)), "big.csv", 16)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestDownloadToTemp(t *testing.T) {
	t.Setenv("ALLOW_PRIVATE_DOWNLOAD_URLS", "1")

	const payload = "Дисципліна;Шифр\nБази даних;205-1\n"
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	origTransport := http.DefaultTransport
	http.DefaultTransport = srv.Client().Transport
	defer func() {
		http.DefaultTransport = origTransport
	}()

	tf, err := DownloadToTemp(context.Background(), srv.URL+"/files/load.csv", "", 1<<20, 5*time.Second)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer tf.Cleanup()

	if tf.FileName != "load.csv" {
		t.Fatalf("expected file name from URL path, got %q", tf.FileName)
	}
	if tf.Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), tf.Size)
	}
	if tf.Job().LocalPath != tf.Path {
		t.Fatalf("job path mismatch")
	}
}
