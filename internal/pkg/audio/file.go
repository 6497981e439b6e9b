package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/google/uuid"
)

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".m4a" || ext == ".flac"
}

// Ext returns lowercased file extension
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Validate checks the upload. No remote service must be called for a failed upload
func Validate(upload *api.AudioUpload) error {
	if upload == nil || upload.Name == "" {
		return api.NewValidationError("no audio file")
	}
	ext := Ext(upload.Name)
	if ext == "" {
		return api.NewValidationError("no file extension")
	}
	if !SupportAudioExt(ext) {
		return api.NewValidationError("wrong file extension: " + ext)
	}
	if upload.Size == 0 {
		return api.NewValidationError("empty audio file")
	}
	return nil
}

// TempFile is an uploaded audio saved to local disk for one request
type TempFile struct {
	Path string
}

// NewTempFile saves upload into dir with an unique name
func NewTempFile(dir string, upload *api.AudioUpload) (*TempFile, error) {
	if err := Validate(upload); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("can't create temp dir: %w", err)
	}
	res := &TempFile{Path: filepath.Join(dir, uuid.NewString()+Ext(upload.Name))}
	f, err := os.OpenFile(res.Path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("can't create temp file: %w", err)
	}
	n, err := io.Copy(f, upload.Reader)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		_ = res.Remove()
		return nil, fmt.Errorf("can't write temp file: %w", err)
	}
	if n == 0 {
		_ = res.Remove()
		return nil, api.NewValidationError("empty audio file")
	}
	goapp.Log.Debug().Str("file", res.Path).Int64("bytes", n).Msg("saved temp file")
	return res, nil
}

// Remove deletes the file, it can be called several times
func (f *TempFile) Remove() error {
	return Remove(f.Path)
}

// Remove deletes file, missing file is not an error
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("can't remove %s: %w", path, err)
	}
	return nil
}

// FileExists check if file exists
func FileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
