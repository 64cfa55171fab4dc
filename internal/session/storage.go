package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage долговременное key/value хранилище клиента.
//
// Get возвращает found=false для отсутствующего ключа. Ошибка означает,
// что хранилище недоступно или повреждено.
type Storage interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// MemoryStorage хранилище в памяти процесса.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage создаёт пустое хранилище в памяти.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// ErrCorrupted файл хранилища не удалось разобрать.
var ErrCorrupted = errors.New("session storage is corrupted")

// FileStorage хранит ключи одним JSON-объектом в файле с правами 0600.
// Файл перечитывается при каждом обращении, запись идёт через временный
// файл и rename.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage создаёт файловое хранилище. Пустой path означает
// <UserConfigDir>/lms/session.json.
func NewFileStorage(path string) (*FileStorage, error) {
	const op = "session.NewFileStorage"
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		path = filepath.Join(dir, "lms", "session.json")
	}
	return &FileStorage{path: path}, nil
}

// Path путь к файлу хранилища.
func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return values, nil
}

func (f *FileStorage) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	const op = "session.FileStorage.Get"
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStorage) Set(key, value string) error {
	const op = "session.FileStorage.Set"
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if errors.Is(err, ErrCorrupted) {
		values = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	values[key] = value
	if err := f.write(values); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (f *FileStorage) Delete(keys ...string) error {
	const op = "session.FileStorage.Delete"
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if errors.Is(err, ErrCorrupted) {
		values = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, k := range keys {
		delete(values, k)
	}
	if err := f.write(values); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
