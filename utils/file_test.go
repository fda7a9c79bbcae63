package utils

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	err := WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "v 1 2 3\n")
		return err
	})
	test.That(t, err, test.ShouldBeNil)
	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual, "v 1 2 3\n")

	writeErr := errors.New("encoder failed")
	err = WriteFile(path, func(w io.Writer) error { return writeErr })
	test.That(t, errors.Is(err, writeErr), test.ShouldBeTrue)
	_, err = os.Stat(path)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	err = WriteFile(filepath.Join(t.TempDir(), "missing", "out.txt"), func(w io.Writer) error { return nil })
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, os.WriteFile(path, []byte("x"), 0o600), test.ShouldBeNil)
	RemoveFileNoError(path)
	_, err = os.Stat(path)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	RemoveFileNoError(path)
}
