// Package search implements recursive traversal with glob matching,
// exclude patterns, content grep, and depth/limit gates (spec §4.10
// search operation, C12).
package search

import (
	"bytes"
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vfscore/vfskernel/pkg/cas"
	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/store"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// Options configures one Search call.
type Options struct {
	Path          string // traversal root, default "/"
	Exclude       []string
	MaxDepth      int // 0 means unlimited
	ShowHidden    bool
	Limit         int // 0 means unlimited
	ContentSearch string
	CaseSensitive bool
}

// Match is one hit returned by Search.
type Match struct {
	Path       string
	Kind       posixmode.Kind
	MatchCount int
}

// Search traverses md from opts.Path (default "/"), returning entries
// whose path (relative to opts.Path) matches pattern and no exclude
// pattern, subject to opts.MaxDepth/opts.Limit. When opts.ContentSearch
// is set, only regular files containing the substring are returned, with
// MatchCount set to the number of occurrences.
func Search(ctx context.Context, md store.MetadataStore, blobs cas.BlobStore, pattern string, opts Options) ([]Match, error) {
	root := opts.Path
	if root == "" {
		root = "/"
	}
	root = vpath.Normalize(root)

	var results []Match
	var walk func(path string, depth int) error
	walk = func(path string, depth int) error {
		if opts.Limit > 0 && len(results) >= opts.Limit {
			return nil
		}
		children, err := md.Children(ctx, path)
		if err != nil {
			return err
		}
		for _, e := range children {
			if opts.Limit > 0 && len(results) >= opts.Limit {
				return nil
			}
			if !opts.ShowHidden && strings.HasPrefix(e.Name(), ".") {
				continue
			}

			rel := vpath.Relative(root, e.Path)

			if excluded(rel, opts.Exclude) {
				if e.Kind == posixmode.KindDirectory {
					continue
				}
				continue
			}

			matched, err := globMatch(pattern, rel, opts.CaseSensitive)
			if err != nil {
				return err
			}

			if matched {
				if opts.ContentSearch != "" {
					if e.Kind == posixmode.KindRegular && e.BlobRef != "" {
						count, err := countOccurrences(ctx, blobs, e, opts.ContentSearch, opts.CaseSensitive)
						if err != nil {
							return err
						}
						if count > 0 {
							results = append(results, Match{Path: e.Path, Kind: e.Kind, MatchCount: count})
						}
					}
				} else {
					results = append(results, Match{Path: e.Path, Kind: e.Kind})
				}
			}

			if e.Kind == posixmode.KindDirectory {
				if opts.MaxDepth > 0 && depth+1 > opts.MaxDepth {
					continue
				}
				if err := walk(e.Path, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return results, nil
}

func excluded(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	segs := strings.Split(rel, "/")
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
		for _, seg := range segs {
			if ok, _ := doublestar.Match(pat, seg); ok {
				return true
			}
		}
	}
	return false
}

func globMatch(pattern, rel string, caseSensitive bool) (bool, error) {
	p, target := pattern, rel
	if !caseSensitive {
		p = strings.ToLower(p)
		target = strings.ToLower(target)
	}
	return doublestar.Match(p, target)
}

func countOccurrences(ctx context.Context, blobs cas.BlobStore, e *entry.Entry, needle string, caseSensitive bool) (int, error) {
	data, err := blobs.Get(ctx, e.BlobRef)
	if err != nil {
		return 0, err
	}
	if !caseSensitive {
		return bytes.Count(bytes.ToLower(data), bytes.ToLower([]byte(needle))), nil
	}
	return bytes.Count(data, []byte(needle)), nil
}
