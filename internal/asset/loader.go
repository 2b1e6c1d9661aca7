package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Image is a decoded texture source.
type Image struct {
	Pix    *image.RGBA
	Format string
	Sum    [blake2b.Size256]byte // checksum of the encoded source
}

func (i *Image) Width() int  { return i.Pix.Bounds().Dx() }
func (i *Image) Height() int { return i.Pix.Bounds().Dy() }

// Loader turns a normalized key into pixels. Implementations must be safe
// for concurrent use; background decodes call Load from worker goroutines.
type Loader interface {
	Load(key string) (*Image, error)
}

// Extensions probed, in order, for keys without one.
var Extensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".webp"}

// FileLoader reads textures from a directory.
type FileLoader struct {
	dir     string
	maxSize int
}

// NewFileLoader returns a loader rooted at dir. Images larger than maxSize
// on either side are scaled down to fit; 0 disables scaling.
func NewFileLoader(dir string, maxSize int) *FileLoader {
	return &FileLoader{dir: dir, maxSize: maxSize}
}

func (f *FileLoader) Load(key string) (*Image, error) {
	if k := filepath.ToSlash(key); k == "" || path.IsAbs(k) || escapesRoot(path.Clean(k)) {
		return nil, fmt.Errorf("texture %q: %w", key, fs.ErrInvalid)
	}
	names := []string{key}
	if path.Ext(key) == "" {
		names = names[:0]
		for _, ext := range Extensions {
			names = append(names, key+ext)
		}
	}

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(f.dir, filepath.FromSlash(name)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return decode(name, data, f.maxSize)
	}
	return nil, fmt.Errorf("texture %q: %w", key, fs.ErrNotExist)
}

func decode(name string, data []byte, maxSize int) (*Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &Image{
		Pix:    toRGBA(src, maxSize),
		Format: format,
		Sum:    blake2b.Sum256(data),
	}, nil
}

func toRGBA(src image.Image, maxSize int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			w, h = maxSize, max(1, h*maxSize/w)
		} else {
			w, h = max(1, w*maxSize/h), maxSize
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
		return dst
	}
	if rgba, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}
