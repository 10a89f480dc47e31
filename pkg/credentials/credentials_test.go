package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/placeskit/pkg/errors"
)

func writeKeyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	return path
}

func TestLoadRoundTrip(t *testing.T) {
	want := map[string]string{}
	var b strings.Builder
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("Api%d", i)
		secret := fmt.Sprintf("secret-%d-abcdef", i)
		want[name] = secret
		fmt.Fprintf(&b, "%s:%s\n", name, secret)
	}

	keys, err := Load(writeKeyFile(t, b.String()))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(keys) != len(want) {
		t.Fatalf("len(keys) = %d, want %d", len(keys), len(want))
	}
	for name, secret := range want {
		if keys[name] != secret {
			t.Errorf("keys[%q] = %q, want %q", name, keys[name], secret)
		}
	}
}

func TestLoadSplitsOnFirstColon(t *testing.T) {
	keys, err := Load(writeKeyFile(t, "Proxy:user:pass\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := keys["Proxy"]; got != "user:pass" {
		t.Errorf("keys[Proxy] = %q, want %q", got, "user:pass")
	}
}

func TestLoadSampleFormat(t *testing.T) {
	content := "GoogleMapsGeocoding: geo123\r\nGooglePlaces: places456\r\n\n"
	keys, err := Load(writeKeyFile(t, content))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if keys["GooglePlaces"] != "places456" {
		t.Errorf("GooglePlaces = %q, want %q", keys["GooglePlaces"], "places456")
	}
	if keys["GoogleMapsGeocoding"] != "geo123" {
		t.Errorf("GoogleMapsGeocoding = %q, want %q", keys["GoogleMapsGeocoding"], "geo123")
	}
}

func TestLoadLastLineWithoutNewline(t *testing.T) {
	keys, err := Load(writeKeyFile(t, "A:1\nB:2"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if keys["B"] != "2" {
		t.Errorf("keys[B] = %q, want %q", keys["B"], "2")
	}
}

func TestLoadFormatError(t *testing.T) {
	_, err := Load(writeKeyFile(t, "A:1\nmissing-colon\n"))
	if err == nil {
		t.Fatal("Load() should fail on a line without a colon")
	}
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q should name line 2", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestKeysGet(t *testing.T) {
	keys := Keys{"GooglePlaces": "abc"}

	v, err := keys.Get("GooglePlaces")
	if err != nil || v != "abc" {
		t.Errorf("Get() = %q, %v; want %q, nil", v, err, "abc")
	}

	if _, err := keys.Get("Other"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestKeysNames(t *testing.T) {
	keys := Keys{"b": "1", "a": "2", "c": "3"}
	got := strings.Join(keys.Names(), ",")
	if got != "a,b,c" {
		t.Errorf("Names() = %s, want a,b,c", got)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"abcdefgh", "****efgh"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
