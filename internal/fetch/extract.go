package fetch

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ExtractTarGz extracts a gzip-compressed tarball into dest, dropping the
// single top-level directory GitHub tarballs wrap their contents in
// (asciidoctor-2.0.7/lib/... becomes dest/lib/...). It returns the number of
// regular files written.
func ExtractTarGz(archivePath, dest string) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("open gzip stream: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return 0, err
	}
	// Containment is checked against the real path so that resolved
	// symlinks compare equal to it.
	if dest, err = filepath.EvalSymlinks(dest); err != nil {
		return 0, err
	}

	tr := tar.NewReader(gz)
	files := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return files, fmt.Errorf("read tar entry: %w", err)
		}

		if hdr.Typeflag == tar.TypeXGlobalHeader || hdr.Typeflag == tar.TypeXHeader {
			continue
		}

		rel := stripComponent(hdr.Name)
		if rel == "" {
			continue
		}
		target, err := safeJoin(dest, rel)
		if err != nil {
			return files, err
		}
		if err := checkParents(dest, target); err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return files, err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return files, err
			}
			files++
		case tar.TypeSymlink:
			if err := writeSymlink(dest, target, hdr.Linkname); err != nil {
				return files, err
			}
		default:
			// devices, fifos and hard links never occur in source tarballs
			continue
		}
	}
	return files, nil
}

// stripComponent removes the first path element of a tar entry name.
func stripComponent(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

func safeJoin(dest, rel string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(rel))
	if !isInside(dest, target) {
		return "", fmt.Errorf("tar entry %q escapes extraction directory", rel)
	}
	return target, nil
}

func isInside(root, p string) bool {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}

// checkParents rejects a target whose parent directories include a symlink
// already extracted to disk. Writing through one would follow the link.
func checkParents(root, target string) error {
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil || rel == "." {
		return err
	}
	cur := root
	for _, elem := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, elem)
		fi, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("tar entry %q passes through symlink %q", target, cur)
		}
	}
	return nil
}

// linkStaysInside walks linkname from dir one element at a time, following
// symlinks already on disk, and reports whether every step stays under root.
func linkStaysInside(root, dir, linkname string) bool {
	cur := dir
	for _, elem := range strings.Split(filepath.ToSlash(linkname), "/") {
		switch elem {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
		default:
			cur = filepath.Join(cur, elem)
		}
		if !isInside(root, cur) {
			return false
		}
		fi, err := os.Lstat(cur)
		if err != nil || fi.Mode()&os.ModeSymlink == 0 {
			continue
		}
		resolved, err := filepath.EvalSymlinks(cur)
		if err != nil || !isInside(root, resolved) {
			return false
		}
		cur = resolved
	}
	return true
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeSymlink(dest, target, linkname string) error {
	if filepath.IsAbs(linkname) || !linkStaysInside(dest, filepath.Dir(target), linkname) {
		return fmt.Errorf("symlink %q points outside extraction directory", linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	return os.Symlink(linkname, target)
}
