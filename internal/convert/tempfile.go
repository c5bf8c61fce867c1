package convert

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// TempFile is a document copied into its own temporary directory.
type TempFile struct {
	TempDir  string
	Path     string
	FileName string
	MIMEType string
	Size     int64
}

func (f TempFile) Cleanup() {
	if f.TempDir != "" {
		_ = os.RemoveAll(f.TempDir)
	}
}

// Job returns the conversion job for the stored file.
func (f TempFile) Job() Job {
	return Job{LocalPath: f.Path, FileName: f.FileName, MIMEType: f.MIMEType, FileSize: f.Size}
}

// SaveBodyToTemp writes an upload body to a temp file and sniffs its MIME type.
func SaveBodyToTemp(body io.Reader, fileName string, maxBytes int64) (TempFile, error) {
	tmpDir, outPath, safeName, err := prepareTemp(fileName)
	if err != nil {
		return TempFile{}, err
	}

	n, err := writeLimited(outPath, body, maxBytes)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return TempFile{}, err
	}

	return TempFile{
		TempDir:  tmpDir,
		Path:     outPath,
		FileName: safeName,
		MIMEType: sniffMIMEType(outPath),
		Size:     n,
	}, nil
}

// DownloadToTemp fetches a document over HTTPS into a temp file.
func DownloadToTemp(ctx context.Context, rawURL string, fileName string, maxBytes int64, timeout time.Duration) (TempFile, error) {
	if err := validateDownloadURL(rawURL); err != nil {
		return TempFile{}, err
	}

	if strings.TrimSpace(fileName) == "" {
		if u, err := url.Parse(rawURL); err == nil {
			fileName = filepath.Base(u.Path)
		}
	}

	tmpDir, outPath, safeName, err := prepareTemp(fileName)
	if err != nil {
		return TempFile{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return TempFile{}, fmt.Errorf("download: %w", err)
	}
	req.Header.Set("User-Agent", "workload-parser/1.0")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return TempFile{}, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_ = os.RemoveAll(tmpDir)
		return TempFile{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	n, err := writeLimited(outPath, resp.Body, maxBytes)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return TempFile{}, err
	}

	mt := sniffMIMEType(outPath)
	if mt == "" || mt == "application/octet-stream" {
		if h := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type"))); h != "" {
			if i := strings.Index(h, ";"); i > 0 {
				h = strings.TrimSpace(h[:i])
			}
			mt = h
		}
	}

	return TempFile{
		TempDir:  tmpDir,
		Path:     outPath,
		FileName: safeName,
		MIMEType: mt,
		Size:     n,
	}, nil
}

func prepareTemp(fileName string) (tmpDir, outPath, safeName string, err error) {
	tmpDir, err = os.MkdirTemp("", "workload-*")
	if err != nil {
		return "", "", "", fmt.Errorf("temp dir: %w", err)
	}

	safeName = filepath.Base(strings.TrimSpace(fileName))
	if safeName == "" || safeName == "." || safeName == "/" {
		safeName = "input.bin"
	}
	return tmpDir, filepath.Join(tmpDir, safeName), safeName, nil
}

func writeLimited(path string, r io.Reader, maxBytes int64) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}
	defer f.Close()

	lr := &io.LimitedReader{R: r, N: maxBytes + 1}
	n, err := io.Copy(f, lr)
	if err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	if n > maxBytes {
		return 0, fmt.Errorf("%w: file exceeds %dMB limit", ErrTooLarge, maxBytes/(1<<20))
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync: %w", err)
	}
	return n, nil
}

func validateDownloadURL(rawURL string) error {
	allowPrivate := allowPrivateDownloadURLs()

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed == nil {
		return fmt.Errorf("invalid download URL")
	}

	host := strings.ToLower(strings.TrimSpace(parsed.Hostname()))
	if host == "" {
		return fmt.Errorf("download URL host is required")
	}

	isLocalName := host == "localhost" || strings.HasSuffix(host, ".localhost")
	isPrivateIP := false

	if ip := net.ParseIP(host); ip != nil {
		isPrivateIP = isPrivateOrLocalIP(ip)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https":
	case "http":
		if !(allowPrivate && (isLocalName || isPrivateIP)) {
			return fmt.Errorf("download URL must use https")
		}
	default:
		return fmt.Errorf("download URL must use https")
	}

	if isLocalName || isPrivateIP {
		if allowPrivate {
			return nil
		}
		return fmt.Errorf("download URL host is not allowed")
	}

	return nil
}

func allowPrivateDownloadURLs() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_PRIVATE_DOWNLOAD_URLS")))
	return v == "1" || v == "true" || v == "yes"
}

func isPrivateOrLocalIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalMulticast() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}

	// RFC6598 carrier-grade NAT range: 100.64.0.0/10
	if v4 := ip.To4(); v4 != nil && v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127 {
		return true
	}
	return false
}

func sniffMIMEType(path string) string {
	m, err := mimetype.DetectFile(path)
	if err == nil && m != nil {
		return strings.ToLower(strings.TrimSpace(m.String()))
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n <= 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(http.DetectContentType(buf[:n])))
}
