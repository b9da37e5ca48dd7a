// Package media is the asset library behind image, gallery, audio and video
// settings. It stores uploads in a directory, keeps an index of the files
// there, and resolves an asset to the URL written into a section's settings.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAssetNotFound  = errors.New("asset not found")
	ErrInvalidDataURL = errors.New("invalid data URL")
	ErrUnsupported    = errors.New("unsupported media type")
)

// Asset is one file in the library. ID is its file name.
type Asset struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	MIME    string    `json:"mime"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

var extByMIME = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
	"audio/mpeg":    ".mp3",
	"audio/wav":     ".wav",
	"video/mp4":     ".mp4",
	"video/webm":    ".webm",
}

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// ChangeHandler is called after the index changed because of a file event.
type ChangeHandler func(a Asset, removed bool)

// Library indexes the media directory.
type Library struct {
	dir     string
	baseURL string
	logger  *zap.Logger

	mu       sync.RWMutex
	assets   map[string]Asset
	onChange ChangeHandler

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Option configures a Library.
type Option func(*Library)

func WithLogger(l *zap.Logger) Option {
	return func(lib *Library) {
		if l != nil {
			lib.logger = l
		}
	}
}

// OnChange registers the handler for watched file events.
func OnChange(fn ChangeHandler) Option {
	return func(lib *Library) {
		lib.onChange = fn
	}
}

// New opens the library rooted at dir, creating it if needed, and indexes
// the files already there. baseURL prefixes asset URLs.
func New(dir, baseURL string, opts ...Option) (*Library, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	lib := &Library{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
		assets:  make(map[string]Asset),
	}
	for _, opt := range opts {
		opt(lib)
	}
	if err := lib.Rescan(); err != nil {
		return nil, err
	}
	return lib, nil
}

func (l *Library) Dir() string { return l.dir }

// Rescan rebuilds the index from the directory.
func (l *Library) Rescan() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("read media directory: %w", err)
	}
	assets := make(map[string]Asset, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if a, ok := l.stat(filepath.Join(l.dir, e.Name())); ok {
			assets[a.ID] = a
		}
	}
	l.mu.Lock()
	l.assets = assets
	l.mu.Unlock()
	return nil
}

// Import decodes a base64 data URL ("data:image/png;base64,...") into a new
// file and returns the indexed asset. name is kept for display only.
func (l *Library) Import(name, dataURL string) (Asset, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return Asset{}, ErrInvalidDataURL
	}
	mimeType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	ext, ok := extByMIME[mimeType]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Asset{}, fmt.Errorf("decode base64: %w", err)
	}

	id := uuid.New().String() + ext
	path := filepath.Join(l.dir, id)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Asset{}, fmt.Errorf("write media file: %w", err)
	}
	a, ok := l.stat(path)
	if !ok {
		return Asset{}, fmt.Errorf("stat media file %s: %w", id, ErrAssetNotFound)
	}
	if name != "" {
		a.Name = name
	}
	l.mu.Lock()
	l.assets[a.ID] = a
	l.mu.Unlock()

	l.logger.Info("media imported", zap.String("asset_id", a.ID), zap.Int64("size", a.Size))
	return a, nil
}

// Resolve returns the URL of asset id.
func (l *Library) Resolve(id string) (string, error) {
	a, ok := l.Get(id)
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrAssetNotFound)
	}
	return a.URL, nil
}

func (l *Library) Get(id string) (Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.assets[id]
	return a, ok
}

// List returns the indexed assets sorted by id.
func (l *Library) List() []Asset {
	l.mu.RLock()
	out := make([]Asset, 0, len(l.assets))
	for _, a := range l.assets {
		out = append(out, a)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete removes the file of asset id.
func (l *Library) Delete(id string) error {
	if _, ok := l.Get(id); !ok {
		return fmt.Errorf("%s: %w", id, ErrAssetNotFound)
	}
	if err := os.Remove(filepath.Join(l.dir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	l.mu.Lock()
	delete(l.assets, id)
	l.mu.Unlock()
	return nil
}

// Watch keeps the index in sync with files added or removed outside the
// library until ctx is cancelled or Close is called.
func (l *Library) Watch(ctx context.Context) error {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	if l.watcher != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}
	l.watcher = watcher
	l.done = make(chan struct{})
	go l.watchLoop(ctx, watcher, l.done)
	l.logger.Info("media watcher started", zap.String("dir", l.dir))
	return nil
}

// Close stops the watcher.
func (l *Library) Close() error {
	l.watchMu.Lock()
	watcher, done := l.watcher, l.done
	l.watcher, l.done = nil, nil
	l.watchMu.Unlock()
	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (l *Library) watchLoop(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			l.handle(event)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("media watcher error", zap.Error(err))
		}
	}
}

func (l *Library) handle(event fsnotify.Event) {
	id := filepath.Base(event.Name)
	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		a, ok := l.stat(event.Name)
		if !ok {
			return
		}
		l.mu.Lock()
		if prev, exists := l.assets[id]; exists && prev.Name != id {
			a.Name = prev.Name
		}
		l.assets[id] = a
		fn := l.onChange
		l.mu.Unlock()
		if fn != nil {
			fn(a, false)
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		l.mu.Lock()
		a, existed := l.assets[id]
		delete(l.assets, id)
		fn := l.onChange
		l.mu.Unlock()
		if existed && fn != nil {
			fn(a, true)
		}
	}
}

// stat builds the asset for path when it is a supported media file.
func (l *Library) stat(path string) (Asset, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	mimeType, ok := mimeByExt[ext]
	if !ok {
		return Asset{}, false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Asset{}, false
	}
	id := filepath.Base(path)
	return Asset{
		ID:      id,
		Name:    id,
		URL:     l.baseURL + "/" + url.PathEscape(id),
		MIME:    mimeType,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, true
}
