package objectstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data []byte
	info ObjectInfo
}

// Memory is an in-process Store used by tests and local runs. It keeps
// the listing order and delimiter semantics of Cloud Storage.
type Memory struct {
	bucket string

	mu      sync.Mutex
	objects map[string]*memObject
	uploads int
}

func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objects: make(map[string]*memObject)}
}

// Put seeds an object without counting it as an upload.
func (m *Memory) Put(name string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(name, data, contentType)
}

func (m *Memory) put(name string, data []byte, contentType string) {
	m.objects[name] = &memObject{
		data: append([]byte(nil), data...),
		info: ObjectInfo{Name: name, ContentType: contentType, Size: int64(len(data)), Updated: time.Now()},
	}
}

// Uploads reports how many times Upload succeeded.
func (m *Memory) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}

func (m *Memory) Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(name, data, contentType)
	m.uploads++
	return URI(m.bucket, name), nil
}

func (m *Memory) Prefixes(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var prefixes []string
	for name := range m.objects {
		i := strings.Index(name, "/")
		if i < 0 {
			continue
		}
		p := name[:i+1]
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []ObjectInfo
	for name, o := range m.objects {
		if strings.HasPrefix(name, prefix) {
			objects = append(objects, o.info)
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (m *Memory) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[name]
	if !ok {
		return ObjectInfo{}, ErrNotExist
	}
	return o.info, nil
}

func (m *Memory) Read(ctx context.Context, name string) ([]byte, ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[name]
	if !ok {
		return nil, ObjectInfo{}, ErrNotExist
	}
	return bytes.Clone(o.data), o.info, nil
}
