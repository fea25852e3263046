package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// FileStorage persists the session as a JSON document, readable by viper.
// Writes go to a temporary file renamed over the original.
type FileStorage struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

var _ Storage = (*FileStorage)(nil)

// OpenFileStorage loads path if it exists. The file and its directory are created on first write.
// The extension picks the format (json, yaml, toml...); it defaults to json.
func OpenFileStorage(path string) (*FileStorage, error) {
	if filepath.Ext(path) == "" {
		path += ".json"
	}
	s := &FileStorage{path: path, values: make(map[string]string)}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrapf(err, "os.Stat(%s)", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading session file %s", path)
	}
	for _, key := range v.AllKeys() {
		s.values[key] = v.GetString(key)
	}
	return s, nil
}

func (s *FileStorage) Path() string { return s.path }

func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

func (s *FileStorage) Set(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyValues()
	for k, val := range values {
		next[strings.ToLower(k)] = val
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStorage) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyValues()
	for _, k := range keys {
		delete(next, strings.ToLower(k))
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStorage) copyValues() map[string]string {
	next := make(map[string]string, len(s.values))
	for k, val := range s.values {
		next[k] = val
	}
	return next
}

func (s *FileStorage) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "creating session directory")
	}

	ext := filepath.Ext(s.path)
	tmp := strings.TrimSuffix(s.path, ext) + ".tmp" + ext
	if err := writeValues(tmp, values); err != nil {
		return err
	}
	// a leftover tmp file keeps its old mode when truncated
	if err := os.Chmod(tmp, 0o600); err != nil {
		return errors.Wrap(err, "securing session file")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replacing session file")
}

// writeValues creates path readable by the owner only and writes values to it.
func writeValues(path string, values map[string]string) error {
	v := viper.New()
	v.SetConfigPermissions(0o600)
	for k, val := range values {
		v.Set(k, val)
	}
	return errors.Wrap(v.WriteConfigAs(path), "writing session file")
}
