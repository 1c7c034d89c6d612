package source

import (
	"os"
	"path/filepath"

	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
)

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 4096

// ValidateFilePath cleans a path and makes it absolute.
func ValidateFilePath(path string) (string, error) {
	if path == "" {
		return "", lferrors.New(lferrors.CodeOpenFailed, "empty file path")
	}

	if len(path) > MaxPathLength {
		return "", lferrors.New(lferrors.CodeOpenFailed, "path too long").
			WithContext("maxLength", MaxPathLength)
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", lferrors.Wrap(err, lferrors.CodeOpenFailed, "invalid path")
	}

	return abs, nil
}

// ValidateInputFile checks that path names a readable regular file and
// returns its cleaned absolute form.
func ValidateInputFile(path string) (string, error) {
	cleanPath, err := ValidateFilePath(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(cleanPath)
	if os.IsNotExist(err) {
		return "", lferrors.New(lferrors.CodeOpenFailed, "file not found").WithContext("location", path)
	}
	if err != nil {
		return "", lferrors.OpenFailed(path, err)
	}

	if info.IsDir() {
		return "", lferrors.New(lferrors.CodeOpenFailed, "path is a directory, expected file").
			WithContext("location", path)
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return "", lferrors.OpenFailed(path, err)
	}
	file.Close()

	return cleanPath, nil
}
