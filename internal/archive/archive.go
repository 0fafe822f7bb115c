// Package archive builds the tar streams copied into containers.
package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
)

// BaseName returns the directory an archive extracts to: its file name
// without extension.
func BaseName(archivePath string) string {
	base := filepath.Base(archivePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Bundle writes files from fs into a tar stream, each under base/.
func Bundle(w io.Writer, fs billy.Filesystem, base string, files []string) error {
	tw := tar.NewWriter(w)
	for _, name := range files {
		if err := addFile(tw, fs, base, name); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func addFile(tw *tar.Writer, fs billy.Filesystem, base, name string) error {
	info, err := fs.Stat(name)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", name)
	}

	f, err := fs.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	hdr := &tar.Header{
		Name:    path.Join(base, path.Base(filepath.ToSlash(name))),
		Mode:    int64(info.Mode().Perm()),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return nil
}

// BundleFile builds the archive at archivePath in fs and returns its base
// name.
func BundleFile(fs billy.Filesystem, archivePath string, files []string) (string, error) {
	out, err := fs.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", archivePath, err)
	}

	base := BaseName(archivePath)
	if err := Bundle(out, fs, base, files); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", archivePath, err)
	}
	return base, nil
}

// Document returns a tar stream holding a single file with the given
// content. name is relative to the extraction directory.
func Document(name string, content []byte, mode int64) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name:    strings.TrimPrefix(name, "/"),
		Mode:    mode,
		Size:    int64(len(content)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if _, err := tw.Write(content); err != nil {
		return nil, fmt.Errorf("failed to archive %s: %w", name, err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Entry is a file read back from an archive.
type Entry struct {
	Name    string
	Content []byte
}

// Entries reads every regular file of a tar stream.
func Entries(r io.Reader) ([]Entry, error) {
	tr := tar.NewReader(r)
	var entries []Entry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", hdr.Name, err)
		}
		entries = append(entries, Entry{Name: hdr.Name, Content: content})
	}
}
