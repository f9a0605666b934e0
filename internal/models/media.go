package models

import (
	"bytes"
	"io"
	"os"
)

// Origin distinguishes an unsent local file from a server-known resource
type Origin string

const (
	// OriginLocal marks media selected by the user but not yet submitted
	OriginLocal Origin = "local"
	// OriginRemote marks media already persisted by the backend
	OriginRemote Origin = "remote"
)

// Source provides the bytes of a local file on demand
type Source interface {
	Open() (io.ReadCloser, error)
}

// LocalFile describes a file selected by the user but not yet submitted
type LocalFile struct {
	Name      string
	MimeType  string
	SizeBytes int64
	Source    Source
}

// MediaItem is one unit of media pending or already attached to a record.
// LOCAL items carry a Local file and own a preview handle; REMOTE items
// carry the identifier/URL the backend already knows them by.
type MediaItem struct {
	Origin     Origin
	Name       string
	MimeType   string
	SizeBytes  int64
	PreviewURL string
	RemoteID   string
	Local      *LocalFile
}

// bytesSource serves a local file from an in-memory buffer
type bytesSource struct {
	data []byte
}

func (s *bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// NewBytesFile builds a LocalFile backed by an in-memory buffer
func NewBytesFile(name, mimeType string, data []byte) *LocalFile {
	return &LocalFile{
		Name:      name,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
		Source:    &bytesSource{data: data},
	}
}

// fileSource serves a local file from the filesystem
type fileSource struct {
	path string
}

func (s *fileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

// NewOSFile builds a LocalFile backed by a file on disk
func NewOSFile(path, name, mimeType string, sizeBytes int64) *LocalFile {
	return &LocalFile{
		Name:      name,
		MimeType:  mimeType,
		SizeBytes: sizeBytes,
		Source:    &fileSource{path: path},
	}
}
