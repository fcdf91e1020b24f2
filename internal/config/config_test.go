package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// testOptions mirrors the flat options struct of the camcore binary.
type testOptions struct {
	Config string

	CaptureDevice       string   `toml:"capture.device" env:"CAPTURE_DEVICE"`
	CaptureWidth        int      `toml:"capture.width" env:"CAPTURE_WIDTH"`
	CaptureStrictFormat bool     `toml:"capture.strict_format" env:"CAPTURE_STRICT_FORMAT"`
	CaptureGain         float64  `toml:"capture.gain" env:"CAPTURE_GAIN"`
	ServerOrigins       []string `toml:"server.origins" env:"SERVER_ORIGINS"`
	Untagged            string
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camcore.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTOML(t, `
[capture]
device = "/dev/video22"
width = 1920
strict_format = true
gain = 1.5

[server]
origins = ["http://a", "http://b"]
`)

	opts := &testOptions{Config: path, Untagged: "kept"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := &testOptions{
		Config:              path,
		CaptureDevice:       "/dev/video22",
		CaptureWidth:        1920,
		CaptureStrictFormat: true,
		CaptureGain:         1.5,
		ServerOrigins:       []string{"http://a", "http://b"},
		Untagged:            "kept",
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("got %+v\nwant %+v", opts, want)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("CAMCORE_CAPTURE_DEVICE", "/dev/video33")
	t.Setenv("CAMCORE_CAPTURE_WIDTH", "640")
	t.Setenv("CAMCORE_CAPTURE_STRICT_FORMAT", "false")
	t.Setenv("CAMCORE_CAPTURE_GAIN", "0.25")
	t.Setenv("CAMCORE_SERVER_ORIGINS", " a , b ")

	opts := &testOptions{CaptureStrictFormat: true}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.CaptureDevice != "/dev/video33" || opts.CaptureWidth != 640 {
		t.Errorf("device/width = %q/%d", opts.CaptureDevice, opts.CaptureWidth)
	}
	if opts.CaptureStrictFormat {
		t.Error("CaptureStrictFormat should be false")
	}
	if opts.CaptureGain != 0.25 {
		t.Errorf("CaptureGain = %v", opts.CaptureGain)
	}
	if !reflect.DeepEqual(opts.ServerOrigins, []string{"a", "b"}) {
		t.Errorf("ServerOrigins = %v", opts.ServerOrigins)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeTOML(t, `
[capture]
device = "/dev/from-toml"
width = 100
`)
	t.Setenv("CAMCORE_CAPTURE_WIDTH", "200")
	t.Setenv("CAMCORE_CAPTURE_DEVICE", "/dev/from-env")

	opts := &testOptions{Config: path}

	cmd := &cobra.Command{Use: "camcore"}
	cmd.Flags().StringVar(&opts.CaptureDevice, "capture-device", "/dev/video11", "")
	if err := cmd.Flags().Set("capture-device", "/dev/from-flag"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.CaptureDevice != "/dev/from-flag" {
		t.Errorf("flag should win, got %q", opts.CaptureDevice)
	}
	if opts.CaptureWidth != 200 {
		t.Errorf("env should beat file, got %d", opts.CaptureWidth)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "nope.toml"), CaptureWidth: 1056}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
	if opts.CaptureWidth != 1056 {
		t.Errorf("default overwritten: %d", opts.CaptureWidth)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeTOML(t, "[capture\ninvalid toml syntax\n")
	if err := LoadConfig(&testOptions{Config: path}, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Fatal("LoadConfig should reject a struct value")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Config":              "config",
		"CaptureDevice":       "capture-device",
		"CaptureStrictFormat": "capture-strict-format",
		"LoggingV4l2":         "logging-v4l2",
		"LoggingAPI":          "logging-api",
		"ServerJPEGQuality":   "server-jpeg-quality",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"capture": map[string]any{"device": "/dev/video11"},
		"flat":    "value",
	}

	if got := getNestedValue(data, "capture.device"); got != "/dev/video11" {
		t.Errorf("capture.device = %v", got)
	}
	if got := getNestedValue(data, "flat"); got != "value" {
		t.Errorf("flat = %v", got)
	}
	if got := getNestedValue(data, "flat.deeper"); got != nil {
		t.Errorf("flat.deeper = %v, want nil", got)
	}
	if got := getNestedValue(data, "missing.key"); got != nil {
		t.Errorf("missing.key = %v, want nil", got)
	}
}

func TestSetFieldValueIgnoresWrongTypes(t *testing.T) {
	var opts testOptions
	v := reflect.ValueOf(&opts).Elem()

	setFieldValue(v.FieldByName("CaptureWidth"), "not a number")
	setFieldValue(v.FieldByName("CaptureStrictFormat"), 1)
	setFieldValueFromString(v.FieldByName("CaptureWidth"), "abc")

	if opts.CaptureWidth != 0 || opts.CaptureStrictFormat {
		t.Errorf("wrong-typed values were applied: %+v", opts)
	}
}

func TestLoadConfigReloadIntoCopy(t *testing.T) {
	path := writeTOML(t, "[capture]\nwidth = 1056\n")
	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("[capture]\nwidth = 2112\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	next := *opts
	if err := LoadConfig(&next, nil); err != nil {
		t.Fatal(err)
	}
	if next.CaptureWidth != 2112 || opts.CaptureWidth != 1056 {
		t.Errorf("reload: copy=%d original=%d", next.CaptureWidth, opts.CaptureWidth)
	}
}
