package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "plots"), 0755))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(base, "fits.csv"), false},
		{"nested new file", filepath.Join(base, "plots", "new", "ecc.png"), false},
		{"dot dot escape", filepath.Join(base, "..", "fits.csv"), true},
		{"absolute elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, base)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectorySymlink(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(base, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(link, "fits.db"), base))
}

func TestValidateOutputPath(t *testing.T) {
	assert.NoError(t, ValidateOutputPath("prf_fits.csv"))
	assert.NoError(t, ValidateOutputPath(filepath.Join(t.TempDir(), "prf.db")))
	assert.Error(t, ValidateOutputPath("/proc/self/prf.db"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"spatiotemporal_hrf", "spatiotemporal_hrf"},
		{"run 1/2: cosine", "run_1_2_cosine"},
		{"../../etc", "etc"},
		{"", "unknown"},
		{"///", "unknown"},
		{"9f1c2e34-aaaa-4bbb-8ccc-123456789abc", "9f1c2e34-aaaa-4bbb-8ccc-123456789abc"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, SanitizeFilename(string(long)), 128)
}
