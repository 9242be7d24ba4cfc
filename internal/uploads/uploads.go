// Package uploads stores product images on local disk.
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/storefront/internal/clock"
	"github.com/roach88/storefront/internal/domain"
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 5 << 20

// sniffLen is how much of the file http.DetectContentType inspects.
const sniffLen = 512

// Storage saves uploaded images under dir and addresses them as
// urlPrefix + "/" + name.
type Storage struct {
	dir       string
	urlPrefix string
	clock     clock.Clock
}

// New creates the upload directory if needed. clk stamps file names; nil
// means the system clock.
func New(dir, urlPrefix string, clk clock.Clock) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Storage{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		clock:     clk,
	}, nil
}

// Dir returns the directory served at URLPrefix.
func (s *Storage) Dir() string { return s.dir }

// URLPrefix returns the URL path images are served under, e.g. "/images".
func (s *Storage) URLPrefix() string { return s.urlPrefix }

// Save stores an uploaded file and returns its URL path.
// Content that does not sniff as image/* is a VALIDATION error on "image".
func (s *Storage) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", domain.Invalid("image", "Attached file is not an image.")
	}
	if fh.Size > MaxImageBytes {
		return "", domain.Invalid("image", "Image is too large.")
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	return s.SaveReader(f, fh.Filename)
}

// SaveReader stores r, using filename only for its extension.
func (s *Storage) SaveReader(r io.Reader, filename string) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	ctype := http.DetectContentType(head)
	if !strings.HasPrefix(ctype, "image/") {
		return "", domain.Invalid("image", "Attached file is not an image.")
	}

	name := s.fileName(filename, ctype)
	dst := filepath.Join(s.dir, name)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), MaxImageBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > MaxImageBytes {
		err = domain.Invalid("image", "Image is too large.")
	}
	if err != nil {
		os.Remove(dst)
		if domain.IsValidation(err) {
			return "", err
		}
		return "", fmt.Errorf("write image: %w", err)
	}

	return path.Join(s.urlPrefix, name), nil
}

// Delete removes the file behind a URL path returned by Save. Paths outside
// the prefix and missing files are ignored.
func (s *Storage) Delete(urlPath string) error {
	name, ok := s.nameOf(urlPath)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// fileName returns "<unix-ms>-<uuid><ext>". The extension comes from the
// client filename when it names an image type, else from the sniffed type.
func (s *Storage) fileName(original, ctype string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if t := mime.TypeByExtension(ext); ext == "" || !strings.HasPrefix(t, "image/") {
		ext = ""
		if exts, _ := mime.ExtensionsByType(ctype); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("%d-%s%s", s.clock.Now().UnixMilli(), uuid.NewString(), ext)
}

func (s *Storage) nameOf(urlPath string) (string, bool) {
	prefix := s.urlPrefix + "/"
	if !strings.HasPrefix(urlPath, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(urlPath, prefix)
	if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return "", false
	}
	return name, true
}
