package transcribe

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My Song.mp3", "My_Song.mp3"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\Users\me\clip.mp4`, "C_Users_me_clip.mp4"},
		{"vidéo.webm", "video.webm"},
		{"  spaced   out .wav ", "spaced_out_.wav"},
		{"...hidden.ogg", "hidden.ogg"},
		{"日本.mp3", "mp3"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SecureFilename(tt.in); got != tt.want {
			t.Errorf("SecureFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAllowedFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.mp3", true},
		{"a.MP4", true},
		{"a.tar.m4a", true},
		{"a.exe", false},
		{"mp3", false},
		{"a.", false},
	}
	for _, tt := range tests {
		if got := AllowedFile(tt.name); got != tt.want {
			t.Errorf("AllowedFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUploadName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My Song.mp3", "My_Song.mp3"},
		{"日本.mp3", "untitled.mp3"},
		{"запись.WAV", "untitled.wav"},
		{"日本 talk.ogg", "talk.ogg"},
		{"..mp3", "untitled.mp3"},
	}
	for _, tt := range tests {
		got := UploadName(tt.in)
		if got != tt.want {
			t.Errorf("UploadName(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !AllowedFile(got) {
			t.Errorf("UploadName(%q) = %q lost its media extension", tt.in, got)
		}
	}
}

func TestURLBaseName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.youtube.com/watch?v=abc", "www.youtube.com_watch_v_abc"},
		{"http://example.com/a b", "example.com_a_b"},
		{"ftp://host/x", "ftp___host_x"},
		{"https://" + strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		if got := URLBaseName(tt.in); got != tt.want {
			t.Errorf("URLBaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJobID(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := JobID("talk", at); got != "talk_20240102-030405" {
		t.Errorf("JobID = %q", got)
	}
	if got := JobID("", at); got != "untitled_20240102-030405" {
		t.Errorf("JobID(empty) = %q", got)
	}
}

func TestJobID_FromUploadsHasNoSeparators(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Za-z0-9_.-]+_\d{8}-\d{6}$`)
	at := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	for _, name := range []string{"a/b/c.mp3", `..\..\evil.wav`, "weird name (1).flac", "ça.m4a"} {
		id := JobID(FileBaseName(SecureFilename(name)), at)
		if strings.ContainsAny(id, `/\`) {
			t.Errorf("id %q from %q contains a path separator", id, name)
		}
		if !pattern.MatchString(id) {
			t.Errorf("id %q from %q does not match %s", id, name, pattern)
		}
	}
}

func TestObjectName(t *testing.T) {
	if got := ObjectName("talk_20240102-030405", "talk.mp3"); got != "talk_20240102-030405/talk.mp3" {
		t.Errorf("ObjectName = %q", got)
	}
}
