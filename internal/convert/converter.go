package convert

import "context"

// Job describes one document on local disk.
type Job struct {
	LocalPath string
	FileName  string
	MIMEType  string
	FileSize  int64
}

// Converter is implemented by every file-format handler.
type Converter interface {
	Convert(ctx context.Context, job Job) (Document, error)
	SupportedTypes() []string
	SupportedExtensions() []string
	Name() string
	MaxFileSize() int64
}
