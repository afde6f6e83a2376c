package discovery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// File watches a hosts file (one address per line, # comments) and re-emits
// the shard set whenever the file changes.
type File struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	hosts []string
}

// NewFile reads the hosts file once and returns the provider.
func NewFile(path string, logger *zap.Logger) (*File, error) {
	f := &File{path: path, logger: logger}
	hosts, err := readHostsFile(path)
	if err != nil {
		return nil, err
	}
	f.hosts = hosts
	return f, nil
}

// Hosts implements Provider.
func (f *File) Hosts() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.hosts))
	copy(out, f.hosts)
	return out
}

// Watch implements Provider. Emits on every membership change until ctx ends.
func (f *File) Watch(ctx context.Context) <-chan []string {
	ch := make(chan []string, 1)

	go func() {
		defer close(ch)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			f.logger.Error("hosts file watcher failed", zap.Error(err))
			return
		}
		defer watcher.Close()

		// Watch the directory: editors replace files via rename, which
		// drops a watch on the file itself.
		if err := watcher.Add(filepath.Dir(f.path)); err != nil {
			f.logger.Error("hosts file watch failed", zap.String("path", f.path), zap.Error(err))
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(f.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				hosts, err := readHostsFile(f.path)
				if err != nil {
					f.logger.Warn("hosts file reload failed", zap.Error(err))
					continue
				}
				if f.swap(hosts) {
					f.logger.Info("shard membership changed",
						zap.Strings("hosts", hosts))
					select {
					case ch <- hosts:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("hosts file watcher error", zap.Error(err))
			}
		}
	}()

	return ch
}

// swap installs a new host set and reports whether membership changed.
func (f *File) swap(hosts []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if equalHosts(f.hosts, hosts) {
		return false
	}
	f.hosts = hosts
	return true
}

func readHostsFile(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var hosts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	return normalize(hosts), nil
}
