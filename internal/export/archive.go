// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package export

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ArchiveDir writes a deterministic zip of every regular file under
// root to w. Entries are added in sorted path order with forward-slash
// names and zeroed timestamps, so archiving the same tree twice yields
// identical bytes. extra holds literal entries (archive name to
// contents) appended after the tree, also in sorted order; run bundles
// use it to inject their descriptor without touching the staging tree.
func ArchiveDir(root string, w io.Writer, extra map[string][]byte) (err error) {
	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.Type().IsRegular() {
			rel, rerr := filepath.Rel(root, path)
			if rerr != nil {
				return rerr
			}
			files = append(files, rel)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk staging tree: %w", walkErr)
	}
	sort.Strings(files)

	zw := zip.NewWriter(w)
	defer func() {
		closeErr := zw.Close()
		if err == nil {
			err = closeErr
		}
	}()

	for _, rel := range files {
		if err := addFileToArchive(zw, filepath.Join(root, rel), filepath.ToSlash(rel)); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ew, cerr := zw.CreateHeader(entryHeader(name))
		if cerr != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", name, cerr)
		}
		if _, werr := ew.Write(extra[name]); werr != nil {
			return fmt.Errorf("failed to write archive entry %s: %w", name, werr)
		}
	}
	return nil
}

// InjectIntoArchive rewrites the archive at src to w with the extra
// entries added. Existing entries are copied raw, without
// recompression; an extra entry shadows any existing entry of the same
// name. Run bundles use this to place run.json inside a finished
// export archive.
func InjectIntoArchive(src string, w io.Writer, extra map[string][]byte) (err error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open source archive: %w", err)
	}
	defer r.Close() //nolint:errcheck // Read-only reader

	zw := zip.NewWriter(w)
	defer func() {
		closeErr := zw.Close()
		if err == nil {
			err = closeErr
		}
	}()

	for _, f := range r.File {
		if _, shadowed := extra[f.Name]; shadowed {
			continue
		}
		if cerr := zw.Copy(f); cerr != nil {
			return fmt.Errorf("failed to copy archive entry %s: %w", f.Name, cerr)
		}
	}

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ew, cerr := zw.CreateHeader(entryHeader(name))
		if cerr != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", name, cerr)
		}
		if _, werr := ew.Write(extra[name]); werr != nil {
			return fmt.Errorf("failed to write archive entry %s: %w", name, werr)
		}
	}
	return nil
}

func addFileToArchive(zw *zip.Writer, srcPath, destPath string) error {
	file, err := os.Open(srcPath) //nolint:gosec // G304: path comes from our own staging walk
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	ew, err := zw.CreateHeader(entryHeader(destPath))
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", destPath, err)
	}
	if _, err := io.Copy(ew, file); err != nil {
		return fmt.Errorf("failed to copy %s to archive: %w", srcPath, err)
	}
	return nil
}

// entryHeader builds a header with no timestamp and a fixed mode so the
// archive bytes depend only on entry names and contents.
func entryHeader(name string) *zip.FileHeader {
	fh := &zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	}
	fh.SetMode(0o644)
	return fh
}
