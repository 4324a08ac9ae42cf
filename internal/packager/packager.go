package packager

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zip"

	"bookforge/internal/compose"
	"bookforge/internal/fileutil"
	"bookforge/internal/services"
	"bookforge/internal/textutil"
)

var now = time.Now

// Write streams the archive for b to w.
func Write(w io.Writer, b Bundle) error {
	if b.Session == nil || b.Result == nil {
		return services.Wrap(services.ErrPrerequisite, "package", "write", "session and stitched result are required", nil)
	}
	manifest := buildManifest(b, now())
	zw := zip.NewWriter(w)
	entries := newEntryWriter(zw, manifest.GeneratedAt)

	pages := b.Session.Pages()
	if err := entries.bytes(RawDir+"/00-cover.png", b.Session.Cover()); err != nil {
		return err
	}
	for _, page := range pages {
		name := fmt.Sprintf("%s/%02d-spread.png", RawDir, page.Number)
		if err := entries.bytes(name, page.Illustration); err != nil {
			return err
		}
	}

	if err := entries.image(PrintDir+"/00-cover.png", b.Result.Cover()); err != nil {
		return err
	}
	for i, spread := range b.Result.Spreads() {
		if err := entries.image(fmt.Sprintf("%s/%02d-spread.png", PrintDir, i+1), spread); err != nil {
			return err
		}
	}
	if err := entries.bytes(DocumentName, b.Result.Document()); err != nil {
		return err
	}

	for i, entry := range manifest.Logs {
		name := fmt.Sprintf("%s/%02d-%s", LogsDir, i+1, textutil.Token(entry.Stage))
		if entry.Spread > 0 {
			name += fmt.Sprintf("-spread-%02d", entry.Spread)
		} else if entry.Spread < 0 {
			name += "-cover"
		}
		name += fmt.Sprintf("-attempt%d.json", entry.Attempt)
		if err := entries.json(name, entry); err != nil {
			return err
		}
	}

	manifest.Files = entries.files
	if err := entries.bytes(ManifestText, []byte(renderText(manifest))); err != nil {
		return err
	}
	if err := entries.json(ManifestJSON, manifest); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return services.Wrap(services.ErrPackaging, "package", "close archive", "", err)
	}
	return nil
}

// WriteFile writes the archive atomically to target while holding an exclusive
// lock on target+".lock", so concurrent runs cannot write the same package.
func WriteFile(target string, b Bundle) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return services.Wrap(services.ErrPackaging, "package", "ensure directory", filepath.Dir(target), err)
	}
	lock := flock.New(target + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrPackaging, "package", "lock", target, err)
	}
	if !ok {
		return services.Wrap(services.ErrPackaging, "package", "lock", "archive is being written by another run: "+target, nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(target + ".lock")
	}()

	if err := fileutil.WriteAtomic(target, 0o644, func(w io.Writer) error { return Write(w, b) }); err != nil {
		return services.Wrap(services.ErrPackaging, "package", "write file", target, err)
	}
	return nil
}

type entryWriter struct {
	zw       *zip.Writer
	modified time.Time
	files    map[string][]string
}

func newEntryWriter(zw *zip.Writer, modified time.Time) *entryWriter {
	return &entryWriter{zw: zw, modified: modified, files: map[string][]string{}}
}

func (e *entryWriter) create(name string) (io.Writer, error) {
	w, err := e.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: e.modified})
	if err != nil {
		return nil, services.Wrap(services.ErrPackaging, "package", "create entry", name, err)
	}
	dir := path.Dir(name)
	if dir == "." {
		dir = "/"
	}
	e.files[dir] = append(e.files[dir], path.Base(name))
	return w, nil
}

func (e *entryWriter) bytes(name string, data []byte) error {
	if len(data) == 0 {
		return services.Wrap(services.ErrPackaging, "package", "write entry", name+" is empty", nil)
	}
	w, err := e.create(name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return services.Wrap(services.ErrPackaging, "package", "write entry", name, err)
	}
	return nil
}

func (e *entryWriter) image(name string, img image.Image) error {
	if img == nil {
		return services.Wrap(services.ErrPackaging, "package", "write entry", name+" is missing", nil)
	}
	data, err := compose.EncodePNG(img)
	if err != nil {
		return services.Wrap(services.ErrPackaging, "package", "encode", name, err)
	}
	return e.bytes(name, data)
}

func (e *entryWriter) json(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrPackaging, "package", "encode", name, err)
	}
	return e.bytes(name, data)
}
