package snapshot

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveDirectory packs a directory tree into a compressed tar
// archive at destPath. Entry names are relative to srcDir so the
// archive unpacks cleanly anywhere.
func ArchiveDirectory(srcDir, destPath string, codec Codec, level int) (int64, int, error) {
	out, err := os.Create(destPath)
	if err != nil {
		return 0, 0, NewStorageError("failed to create archive file", err).WithContext("path", destPath)
	}
	defer out.Close()

	zw, err := codec.NewWriter(out, level)
	if err != nil {
		return 0, 0, err
	}
	tw := tar.NewWriter(zw)

	files := 0
	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		// Symlinks and other special files are not part of the
		// upload data model
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
		files++
		return nil
	})
	if walkErr != nil {
		tw.Close()
		zw.Close()
		return 0, 0, NewStorageError("failed to archive directory", walkErr).WithContext("source", srcDir)
	}

	if err := tw.Close(); err != nil {
		zw.Close()
		return 0, 0, NewCompressionError("failed to finalize tar stream", err)
	}
	if err := zw.Close(); err != nil {
		return 0, 0, NewCompressionError("failed to finalize compressed stream", err)
	}

	stat, err := out.Stat()
	if err != nil {
		return 0, files, NewStorageError("failed to stat archive", err).WithContext("path", destPath)
	}
	return stat.Size(), files, nil
}

// ExtractArchive unpacks a compressed tar archive into destDir.
// Entries that would escape destDir are rejected.
func ExtractArchive(archivePath, destDir string, codec Codec) error {
	in, err := os.Open(archivePath)
	if err != nil {
		return NewStorageError("failed to open archive", err).WithContext("path", archivePath)
	}
	defer in.Close()

	zr, err := codec.NewReader(in)
	if err != nil {
		return err
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return NewStorageError("failed to create destination directory", err).WithContext("path", destDir)
	}

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return NewCorruptionError("failed to read tar entry", err).WithContext("path", archivePath)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode)&0777); err != nil {
				return NewStorageError("failed to create directory", err).WithContext("path", target)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return NewStorageError("failed to create parent directory", err).WithContext("path", target)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode)&0777)
			if err != nil {
				return NewStorageError("failed to create file", err).WithContext("path", target)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return NewStorageError("failed to write file", err).WithContext("path", target)
			}
			if err := f.Close(); err != nil {
				return NewStorageError("failed to close file", err).WithContext("path", target)
			}
		default:
			// skip special entries
		}
	}
}

// safeJoin joins an archive entry name to the destination and rejects
// traversal outside of it.
func safeJoin(destDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", NewValidationError(fmt.Sprintf("archive entry escapes destination: %s", name), nil)
	}
	return filepath.Join(destDir, clean), nil
}
