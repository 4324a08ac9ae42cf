package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"path/filepath"

	"bookforge/internal/book"
	"bookforge/internal/fileutil"
)

// salvageRasters writes the illustrations a failed run had already rendered under
// <work_dir>/<runID>/illustrations, as spread-NN.<ext> and cover.<ext>. It
// returns the directory and the number of files written; an empty directory
// means there was nothing to keep.
func (p *Producer) salvageRasters(sess *book.Session, runID string) (string, int, error) {
	dir := filepath.Join(p.cfg.Paths.WorkDir, runID, "illustrations")
	written := 0
	for _, page := range sess.Pages() {
		if len(page.Illustration) == 0 {
			continue
		}
		name := fmt.Sprintf("spread-%02d.%s", page.Number, rasterExt(page.Illustration))
		if err := writeRaster(filepath.Join(dir, name), page.Illustration); err != nil {
			return dir, written, err
		}
		written++
	}
	if cover := sess.Cover(); len(cover) > 0 {
		if err := writeRaster(filepath.Join(dir, "cover."+rasterExt(cover)), cover); err != nil {
			return dir, written, err
		}
		written++
	}
	if written == 0 {
		return "", 0, nil
	}
	return dir, written, nil
}

func writeRaster(path string, raw []byte) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, err := w.Write(raw)
		return err
	})
}

// rasterExt names the encoding of raw, falling back to "bin" for formats no
// registered decoder recognises.
func rasterExt(raw []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	switch {
	case err != nil:
		return "bin"
	case format == "jpeg":
		return "jpg"
	default:
		return format
	}
}
