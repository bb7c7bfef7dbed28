package objectstore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMemory_UploadReturnsURI(t *testing.T) {
	m := NewMemory("bkt")
	uri, err := m.Upload(context.Background(), "job_1/a.mp3", strings.NewReader("abc"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if uri != "gs://bkt/job_1/a.mp3" {
		t.Errorf("uri = %q", uri)
	}
	if m.Uploads() != 1 {
		t.Errorf("Uploads = %d, want 1", m.Uploads())
	}

	info, err := m.Stat(context.Background(), "job_1/a.mp3")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.ContentType != "audio/mpeg" || info.Size != 3 {
		t.Errorf("info = %+v", info)
	}
}

func TestMemory_PrefixesSkipsRootObjects(t *testing.T) {
	m := NewMemory("bkt")
	m.Put("b/x.txt", nil, "")
	m.Put("a/y.mp3", nil, "")
	m.Put("a/z/deep.txt", nil, "")
	m.Put("root.txt", nil, "")

	got, err := m.Prefixes(context.Background())
	if err != nil {
		t.Fatalf("Prefixes: %v", err)
	}
	if strings.Join(got, ",") != "a/,b/" {
		t.Errorf("Prefixes = %v, want [a/ b/]", got)
	}
}

func TestMemory_ListOrdersByName(t *testing.T) {
	m := NewMemory("bkt")
	m.Put("a/2.txt", nil, "")
	m.Put("a/1.txt", nil, "")
	m.Put("ab/3.txt", nil, "")

	got, err := m.List(context.Background(), "a/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a/1.txt" || got[1].Name != "a/2.txt" {
		t.Errorf("List = %+v", got)
	}
}

func TestMemory_ReadMissing(t *testing.T) {
	m := NewMemory("bkt")
	if _, _, err := m.Read(context.Background(), "nope"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Read err = %v, want ErrNotExist", err)
	}
	if _, err := m.Stat(context.Background(), "nope"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Stat err = %v, want ErrNotExist", err)
	}
}

func TestMemory_ReadReturnsCopy(t *testing.T) {
	m := NewMemory("bkt")
	m.Put("a/r.txt", []byte("hello"), "text/plain")

	data, _, err := m.Read(context.Background(), "a/r.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	data[0] = 'J'

	again, _, _ := m.Read(context.Background(), "a/r.txt")
	if !bytes.Equal(again, []byte("hello")) {
		t.Errorf("stored data mutated: %q", again)
	}
}
