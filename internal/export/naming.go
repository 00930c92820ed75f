package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/panbanda/corel/pkg/models"
)

// OnExists selects what happens when the export path already exists.
type OnExists string

const (
	// OnExistsError fails the export.
	OnExistsError OnExists = "error"
	// OnExistsOverride removes the existing file or directory.
	OnExistsOverride OnExists = "override"
	// OnExistsNumbering picks the first free name_N variant.
	OnExistsNumbering OnExists = "numbering"
)

// ErrExists is returned by ResolvePath under OnExistsError.
var ErrExists = errors.New("export path already exists")

// ParseOnExists converts a policy name, case-insensitively.
func ParseOnExists(s string) (OnExists, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return OnExistsError, nil
	case "override", "overwrite":
		return OnExistsOverride, nil
	case "", "numbering":
		return OnExistsNumbering, nil
	}
	return "", fmt.Errorf("unknown duplicated file handling %q: %w", s, models.ErrInvalidArgument)
}

var (
	trailingJunk = regexp.MustCompile(`[^a-zA-Z0-9]+$`)
	nonAlnumRun  = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// DefaultName derives an export name from the mined target: trailing
// non-alphanumerics are stripped, other non-alphanumeric runs become '_',
// and the type suffix is appended.
func DefaultName(target string, typ Type) string {
	name := trailingJunk.ReplaceAllString(target, "")
	name = nonAlnumRun.ReplaceAllString(name, "_")
	if name == "" {
		name = "corel"
	}
	switch typ {
	case TypeSQLite:
		return name + ".sqlite"
	default:
		return name + "_csv"
	}
}

// ResolvePath applies policy when path already exists and returns the path
// to write to.
func ResolvePath(path string, policy OnExists) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path, nil
	} else if err != nil {
		return "", err
	}

	switch policy {
	case OnExistsError:
		return "", fmt.Errorf("%s: %w", path, ErrExists)
	case OnExistsOverride:
		if err := os.RemoveAll(path); err != nil {
			return "", fmt.Errorf("failed to remove %s: %w", path, err)
		}
		return path, nil
	case OnExistsNumbering, "":
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(path, ext)
		for i := 1; ; i++ {
			candidate := base + "_" + strconv.Itoa(i) + ext
			if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
				return candidate, nil
			} else if err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("unknown duplicated file handling %q: %w", policy, models.ErrInvalidArgument)
}
