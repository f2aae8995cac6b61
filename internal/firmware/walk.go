package firmware

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"iifvs/internal/model"
	"iifvs/internal/utils"
)

var fileTypes = map[string]string{
	".bin":      "Binary data",
	".elf":      "ELF executable",
	".gz":       "gzip compressed data",
	".tar":      "tar archive",
	".squashfs": "Squashfs filesystem",
	".jffs2":    "JFFS2 filesystem",
	".cramfs":   "CramFS filesystem",
	".cpio":     "CPIO archive",
	".lzma":     "LZMA compressed data",
	".xz":       "XZ compressed data",
	".conf":     "Configuration file",
	".pem":      "PEM certificate",
	".key":      "Private key",
	".so":       "Shared library",
}

// FileType guesses a human readable type from the file extension.
func FileType(name string) string {
	if t, ok := fileTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "Unknown file type"
}

// WalkExtracted lists every regular file under dir. A missing dir yields
// no components and no error. Entries that cannot be read are logged and
// skipped; only a failure on dir itself is returned.
func WalkExtracted(dir string) ([]model.Component, error) {
	components := []model.Component{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				if errors.Is(err, fs.ErrNotExist) {
					return fs.SkipAll
				}
				return err
			}
			return skipUnreadable(dir, p, d, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return skipUnreadable(dir, p, d, err)
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return skipUnreadable(dir, p, d, err)
		}
		components = append(components, model.Component{
			Name: filepath.ToSlash(rel),
			Type: FileType(d.Name()),
			Size: utils.FormatSize(info.Size()),
		})
		return nil
	})
	return components, err
}

// skipUnreadable logs a walk error below root and skips the entry.
func skipUnreadable(root, p string, d fs.DirEntry, err error) error {
	rel, relErr := filepath.Rel(root, p)
	if relErr != nil {
		rel = filepath.Base(p)
	}
	slog.Warn("Skipping unreadable extracted entry", "path", filepath.ToSlash(rel), "error", err)
	if d != nil && d.IsDir() {
		return fs.SkipDir
	}
	return nil
}

// extractionDirs lists where the tool may have written its output, in
// lookup order.
func extractionDirs(uploadDir, imagePath string) []string {
	return []string{
		imagePath + ".extracted",
		filepath.Join(uploadDir, "_"+filepath.Base(imagePath)+".extracted"),
	}
}
