// Package source resolves font source projects and computes their
// content fingerprints.
//
// A source project is the input both toolchains compile: a UFO package,
// a Glyphs file or package, or a designspace document. The project's
// fingerprint is a content hash over its constituent files and is the
// primary input to build cache keys: a changed source invalidates every
// toolchain's cached artifact for that project.
package source

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/typetools/ttxdiff/pkg/errors"
)

// Format identifies the kind of font source.
type Format string

// Supported source formats.
const (
	FormatUFO           Format = "ufo"
	FormatGlyphs        Format = "glyphs"
	FormatGlyphsPackage Format = "glyphspackage"
	FormatDesignspace   Format = "designspace"
)

// Project identifies a resolved font source. It is immutable after
// Resolve: the path is absolute and the fingerprint is computed once.
type Project struct {
	path        string
	format      Format
	fingerprint string
}

// Resolve validates that path exists and is a supported source format,
// and computes the project's content fingerprint. This is the only
// constructor; it must be called before any build process is spawned.
func Resolve(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSource, err, "resolve path %q", path)
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeSourceNotFound, "no such source: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSource, err, "stat %q", path)
	}

	format, err := detectFormat(abs, info.IsDir())
	if err != nil {
		return nil, err
	}

	fp, err := fingerprint(abs, info.IsDir())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSource, err, "fingerprint %q", path)
	}

	return &Project{path: abs, format: format, fingerprint: fp}, nil
}

// Path returns the absolute path of the source.
func (p *Project) Path() string { return p.path }

// Format returns the detected source format.
func (p *Project) Format() Format { return p.format }

// Fingerprint returns the content hash of the source's constituent files.
func (p *Project) Fingerprint() string { return p.fingerprint }

// Name returns the base name of the source, for display and artifact naming.
func (p *Project) Name() string {
	base := filepath.Base(p.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (p *Project) String() string {
	return fmt.Sprintf("%s (%s)", p.path, p.format)
}

// detectFormat maps a path to its source format.
// UFO and Glyphs packages are directories; .glyphs and .designspace are files.
func detectFormat(path string, isDir bool) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ufo":
		if !isDir {
			return "", errors.New(errors.ErrCodeInvalidSource, "%s: a .ufo source must be a directory", path)
		}
		return FormatUFO, nil
	case ".glyphs":
		if isDir {
			return "", errors.New(errors.ErrCodeInvalidSource, "%s: a .glyphs source must be a file", path)
		}
		return FormatGlyphs, nil
	case ".glyphspackage":
		if !isDir {
			return "", errors.New(errors.ErrCodeInvalidSource, "%s: a .glyphspackage source must be a directory", path)
		}
		return FormatGlyphsPackage, nil
	case ".designspace":
		return FormatDesignspace, nil
	}
	return "", errors.New(errors.ErrCodeInvalidSource,
		"unsupported source format %q (expected .ufo, .glyphs, .glyphspackage or .designspace)", ext)
}

// fingerprint hashes the source's files: relative path, size and content
// of every regular file, walked in lexical order so the result is
// deterministic across runs and machines.
func fingerprint(path string, isDir bool) (string, error) {
	h := sha256.New()

	if !isDir {
		if err := hashFile(h, filepath.Base(path), path); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		// Forward slashes keep fingerprints portable across platforms.
		return hashFile(h, filepath.ToSlash(rel), p)
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(h io.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	io.WriteString(h, name)
	binary.Write(h, binary.LittleEndian, info.Size())
	_, err = io.Copy(h, f)
	return err
}
