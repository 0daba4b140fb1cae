// Package modelcache discovers locally cached model weight files and
// materializes them as AliasModel aliases, without requiring the operator to
// hand-author a config entry for every file already sitting in the cache
// directory.
package modelcache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	gateway "github.com/bodhi-gateway/core/internal"
)

// snapshotPattern matches the cache layout a model download tool lays out:
//
//	models--{org}--{repo}/snapshots/{commit}/{filename}.gguf
var snapshotPattern = regexp.MustCompile(`models--([^/]+)--([^/]+)/snapshots/([^/]+)/(.+)\.gguf$`)

// Entry describes one discovered model file.
type Entry struct {
	Repo      string // "{org}/{repo}"
	Filename  string // "{name}.gguf"
	Commit    string
	Path      string // absolute path on disk
	Size      int64
	UpdatedAt time.Time
}

// ModelID is the identifier this entry resolves to as a model string, e.g.
// "org/repo:name.gguf".
func (e Entry) ModelID() string {
	return fmt.Sprintf("%s:%s", e.Repo, e.Filename)
}

// Scan walks root (typically HF_HOME or HF_HOME/hub) and returns one Entry
// per cached .gguf snapshot file found. A missing root is not an error -- it
// just yields no entries, since the cache directory may not exist until a
// model has been downloaded at least once.
func Scan(root string) ([]Entry, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := snapshotPattern.FindStringSubmatch(filepath.ToSlash(path))
		if m == nil {
			return nil
		}
		info, statErr := d.Info()
		var size int64
		var updated time.Time
		if statErr == nil {
			size = info.Size()
			updated = info.ModTime()
		}
		entries = append(entries, Entry{
			Repo:      m[1] + "/" + m[2],
			Commit:    m[3],
			Filename:  m[4] + ".gguf",
			Path:      path,
			Size:      size,
			UpdatedAt: updated,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan model cache: %w", err)
	}
	return entries, nil
}

// ToAliases converts scanned cache entries into AliasModel aliases, keyed by
// ModelID so the Model Router can resolve a "repo:filename" model string
// straight to its on-disk path without a prior admin-API registration step.
func ToAliases(entries []Entry) []*gateway.Alias {
	aliases := make([]*gateway.Alias, 0, len(entries))
	for _, e := range entries {
		aliases = append(aliases, &gateway.Alias{
			Name:      e.ModelID(),
			Source:    gateway.AliasModel,
			Repo:      e.Repo,
			Filename:  e.Filename,
			ModelPath: e.Path,
		})
	}
	return aliases
}
