package archivers

import (
	"iter"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/infracollect/testpack/internal/engine"
	"github.com/spf13/afero"
)

// WalkEntry is a plain file found by Walk and the archive path it maps to.
type WalkEntry struct {
	Source string
	Dest   string
}

type pendingEntry struct {
	path      string
	isDir     bool
	isSymlink bool
}

// Walk yields every file under srcDir with its destination under destPrefix.
//
// The traversal is depth-first over an explicit stack, so depth is bounded by
// memory rather than the call stack. Directories are descended into but never
// yielded. Symlinks to directories are descended into only when follow is set;
// every other symlink is yielded as a leaf. Children are visited in lexical
// order. Iteration stops at the first error.
func Walk(fs afero.Fs, srcDir, destPrefix string, follow bool) iter.Seq2[WalkEntry, error] {
	return func(yield func(WalkEntry, error) bool) {
		stack := []pendingEntry{{path: srcDir, isDir: true}}

		for len(stack) > 0 {
			entry := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if entry.isDir || (entry.isSymlink && follow && isDir(fs, entry.path)) {
				children, err := readChildren(fs, entry.path)
				if err != nil {
					yield(WalkEntry{}, err)
					return
				}
				// Pushed in reverse so they pop in lexical order.
				for _, child := range slices.Backward(children) {
					stack = append(stack, child)
				}
				continue
			}

			rel, err := filepath.Rel(srcDir, entry.path)
			if err != nil {
				yield(WalkEntry{}, &engine.InputReadError{Path: entry.path, Kind: engine.InputFile, Err: err})
				return
			}

			if !yield(WalkEntry{Source: entry.path, Dest: path.Join(destPrefix, filepath.ToSlash(rel))}, nil) {
				return
			}
		}
	}
}

func readChildren(fs afero.Fs, dir string) ([]pendingEntry, error) {
	f, err := fs.Open(dir)
	if err != nil {
		return nil, &engine.InputReadError{Path: dir, Kind: engine.InputDir, Err: err}
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, &engine.DirEntryReadError{Path: dir, Err: err}
	}
	slices.Sort(names)

	children := make([]pendingEntry, 0, len(names))
	for _, name := range names {
		childPath := filepath.Join(dir, name)
		info, err := lstat(fs, childPath)
		if err != nil {
			return nil, &engine.InputReadError{Path: childPath, Kind: engine.InputUnknown, Err: err}
		}
		children = append(children, pendingEntry{
			path:      childPath,
			isDir:     info.IsDir(),
			isSymlink: info.Mode()&os.ModeSymlink != 0,
		})
	}

	return children, nil
}

// lstat describes name without following a final symlink when fs supports it.
func lstat(fs afero.Fs, name string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(name)
		return info, err
	}
	return fs.Stat(name)
}

func isDir(fs afero.Fs, name string) bool {
	info, err := fs.Stat(name)
	return err == nil && info.IsDir()
}
