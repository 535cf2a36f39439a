package assets

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/aria/engine/core"

	// Register decoders beyond the stdlib png/jpeg set.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type FileInfo struct {
	Path     string
	Size     int64
	LastSeen time.Time
}

// DirStore serves fetches from a directory tree where every logical folder
// maps to a subdirectory of the root. It keeps an fsnotify-backed index of
// the files it has seen so unknown paths fail fast and callers can list what
// exists without touching the disk again.
type DirStore struct {
	root  string
	files map[string]FileInfo

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewDirStore(root string) (*DirStore, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create directory watcher")
	}

	ds := &DirStore{
		root:     root,
		files:    make(map[string]FileInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}

	go ds.start()

	if err := ds.watchRecursive(root); err != nil {
		ds.Close()
		return nil, errors.Wrapf(err, "failed to index asset root %s", root)
	}

	core.LogInfo("directory store initialized with root '%s' (%d files)", root, ds.Count())
	return ds, nil
}

func (ds *DirStore) Close() error {
	ds.mutex.Lock()
	if ds.isClosed {
		ds.mutex.Unlock()
		return nil
	}
	ds.isClosed = true
	ds.mutex.Unlock()

	close(ds.done)
	return nil
}

func (ds *DirStore) Count() int {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return len(ds.files)
}

// Known lists the indexed file paths under the given logical folder, sorted.
func (ds *DirStore) Known(folder string) []string {
	prefix := filepath.Join(ds.root, folder) + string(filepath.Separator)

	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	var out []string
	for p := range ds.files {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			out = append(out, p[len(prefix):])
		}
	}
	sort.Strings(out)
	return out
}

func (ds *DirStore) FetchText(folder, path string) (string, error) {
	data, err := ds.read(folder, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (ds *DirStore) FetchBinary(folder, path string) ([]byte, error) {
	return ds.read(folder, path)
}

func (ds *DirStore) FetchImage(folder, path string) (image.Image, error) {
	data, err := ds.read(folder, path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s/%s", folder, path)
	}
	return img, nil
}

func (ds *DirStore) read(folder, path string) ([]byte, error) {
	full := filepath.Join(ds.root, folder, path)

	ds.mutex.RLock()
	_, known := ds.files[full]
	ds.mutex.RUnlock()
	if !known {
		// The index lags behind direct writes to the tree; only trust it for
		// the negative answer after a stat confirms the file is gone.
		if _, err := os.Stat(full); err != nil {
			return nil, errors.Wrapf(err, "no such asset %s/%s", folder, path)
		}
		ds.handleFileEvent(full)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read asset %s/%s", folder, path)
	}
	return data, nil
}

func (ds *DirStore) start() {
	for {
		select {
		case e := <-ds.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					ds.watchRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				ds.handleFileEvent(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				ds.removeFile(e.Name)
				ds.fsnotify.Remove(e.Name)
			}

		case err := <-ds.fsnotify.Errors:
			if err != nil {
				core.LogError("directory store watch error: %s", err.Error())
			}

		case <-ds.done:
			ds.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes every file it walks over.
func (ds *DirStore) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if err := ds.fsnotify.Add(walkPath); err != nil {
				return err
			}
		} else {
			ds.handleFileEvent(walkPath)
		}
		return nil
	})
}

func (ds *DirStore) handleFileEvent(path string) {
	s, err := os.Stat(path)
	if err != nil {
		return
	}

	ds.mutex.Lock()
	defer ds.mutex.Unlock()
	ds.files[path] = FileInfo{
		Path:     path,
		Size:     s.Size(),
		LastSeen: time.Now(),
	}
}

func (ds *DirStore) removeFile(path string) {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()
	delete(ds.files, path)
}
