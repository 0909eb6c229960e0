package accel

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestLoadLayoutRoundTrip(t *testing.T) {
	t.Parallel()

	def := DefaultLayout()
	data, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := LoadLayout(data)
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if got != def {
		t.Fatalf("got %+v, want %+v", got, def)
	}
}

func TestLoadLayoutRejectsVersion(t *testing.T) {
	t.Parallel()

	l := DefaultLayout()
	l.Version = 2
	data, _ := json.Marshal(l)
	if _, err := LoadLayout(data); !errors.Is(err, ErrLayoutVersion) {
		t.Fatalf("got %v, want ErrLayoutVersion", err)
	}
}

func TestLoadLayoutRejectsBadWindow(t *testing.T) {
	t.Parallel()

	l := DefaultLayout()
	l.JobSize = 32
	data, _ := json.Marshal(l)
	if _, err := LoadLayout(data); !errors.Is(err, ErrBadLayout) {
		t.Fatalf("short window: got %v, want ErrBadLayout", err)
	}

	l = DefaultLayout()
	l.JobOff = 0x8
	data, _ = json.Marshal(l)
	if _, err := LoadLayout(data); !errors.Is(err, ErrBadLayout) {
		t.Fatalf("overlapping window: got %v, want ErrBadLayout", err)
	}

	if _, err := LoadLayout([]byte("{")); err == nil {
		t.Fatal("truncated profile: want decode error")
	}
}
