package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelbox/internal/startup"
	"pixelbox/internal/storage"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func setTarget(t *testing.T) {
	t.Helper()
	t.Setenv("TARGET_WIDTH", "16")
	t.Setenv("TARGET_HEIGHT", "9")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WATCH", "false")
}

func TestRunProcessesDirectory(t *testing.T) {
	setTarget(t)
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writePNG(t, filepath.Join(in, "photo.png"), 64, 18)

	code := run([]string{in, out})
	assert.Equal(t, exitOK, code)

	f, err := os.Open(filepath.Join(out, "photo.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 9, cfg.Height)
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name        string
		failOnError string
		corrupt     bool
		want        int
	}{
		{name: "clean batch", failOnError: "true", want: exitOK},
		{name: "failures tolerated", failOnError: "false", corrupt: true, want: exitOK},
		{name: "failures fatal", failOnError: "true", corrupt: true, want: exitFileErrors},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTarget(t)
			t.Setenv("FAIL_ON_ERROR", tt.failOnError)
			in := t.TempDir()
			writePNG(t, filepath.Join(in, "good.png"), 20, 20)
			if tt.corrupt {
				require.NoError(t, os.WriteFile(filepath.Join(in, "bad.jpg"), []byte("nope"), 0o644))
			}

			assert.Equal(t, tt.want, run([]string{in, filepath.Join(t.TempDir(), "out")}))
		})
	}
}

func TestRunConfigErrors(t *testing.T) {
	setTarget(t)

	assert.Equal(t, exitConfigError, run([]string{"a", "b", "c"}))
	assert.Equal(t, exitConfigError, run([]string{filepath.Join(t.TempDir(), "missing")}))

	t.Setenv("TARGET_WIDTH", "0")
	assert.Equal(t, exitConfigError, run([]string{t.TempDir(), t.TempDir()}))
}

func TestRunWithLedgerAndReport(t *testing.T) {
	setTarget(t)
	dbDir := t.TempDir()
	report := filepath.Join(t.TempDir(), "report.json")
	t.Setenv("DATABASE_DIR", dbDir)
	t.Setenv("SKIP_UNCHANGED", "true")
	t.Setenv("REPORT_FILE", report)

	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 30, 30)

	require.Equal(t, exitOK, run([]string{in, out}))
	require.Equal(t, exitOK, run([]string{in, out}))

	assert.FileExists(t, filepath.Join(dbDir, "pixelbox.db"))
	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"skipped": 1`)
}

func TestNewOutputLocalOnly(t *testing.T) {
	config := &startup.Config{OutputDir: filepath.Join(t.TempDir(), "out")}

	out, err := newOutput(context.Background(), config)
	require.NoError(t, err)
	_, ok := out.(*storage.LocalSink)
	assert.True(t, ok)
	assert.DirExists(t, config.OutputDir)
}

func TestNewOutputWithMirror(t *testing.T) {
	config := &startup.Config{
		OutputDir: filepath.Join(t.TempDir(), "out"),
		S3: startup.S3Config{
			Bucket:          "outputs",
			Region:          "us-east-1",
			Endpoint:        "http://127.0.0.1:9000",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		},
	}

	out, err := newOutput(context.Background(), config)
	require.NoError(t, err)
	tee, ok := out.(*storage.Tee)
	require.True(t, ok)
	assert.Len(t, tee.Mirrors, 1)
}
