package utils

import (
	"bufio"
	"io"
	"os"

	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// WriteFile creates (or truncates) the file at path and hands a buffered writer to write. The
// buffer is flushed and the file closed before returning; failures from every step are combined
// and leave no file behind.
func WriteFile(path string, write func(w io.Writer) error) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
		if err != nil {
			RemoveFileNoError(path)
		}
	}()

	buffered := bufio.NewWriter(f)
	if err = write(buffered); err != nil {
		return err
	}
	return buffered.Flush()
}

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	goutils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}
