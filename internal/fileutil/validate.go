package fileutil

import (
	"fmt"
	"strings"

	"github.com/Ning0612/mercury/internal/domain"
)

const (
	// MaxFileNameLength is the maximum length of a file name in bytes
	MaxFileNameLength = 255

	// MaxRootDirectoryNameLength applies to directories created at the storage root
	MaxRootDirectoryNameLength = 127
)

// IsValidFileName reports whether name can be used for a file or directory
func IsValidFileName(name string) bool {
	return ValidateFileName(name) == nil
}

// ValidateFileName explains why a name is not a valid file name
func ValidateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", domain.ErrInvalidFileName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidFileName, name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("%w: %q contains a path separator", domain.ErrInvalidFileName, name)
	case len(name) > MaxFileNameLength:
		return fmt.Errorf("%w: name exceeds %d bytes", domain.ErrInvalidFileName, MaxFileNameLength)
	}
	return nil
}

// ValidateRootDirectoryName applies the stricter rules for top-level directories
func ValidateRootDirectoryName(name string) error {
	if err := ValidateFileName(name); err != nil {
		return err
	}
	if len(name) > MaxRootDirectoryNameLength {
		return fmt.Errorf("%w: root directory name exceeds %d characters", domain.ErrInvalidFileName, MaxRootDirectoryNameLength)
	}
	return nil
}

// ValidateNewPath validates the last segment of a path about to be created
func ValidateNewPath(p string) error {
	name := Basename(p)
	if ParentPath(p) == PathSeparator {
		return ValidateRootDirectoryName(name)
	}
	return ValidateFileName(name)
}
