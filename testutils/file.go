package testutils

import (
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/felipeek/gimmesh/gim"
	"github.com/felipeek/gimmesh/rimage"
)

// WriteGimFile writes img as name under dir in the native format and returns its path.
func WriteGimFile(t *testing.T, dir, name string, img *rimage.FloatImage) string {
	t.Helper()
	path := filepath.Join(dir, name)
	test.That(t, gim.ExportToGimFile(gim.New(img), path), test.ShouldBeNil)
	return path
}
