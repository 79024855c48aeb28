// Package crawlconf patches the external crawler's config file for a single
// run and puts the original bytes back afterwards.
package crawlconf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

const (
	KeyKeywords = "KEYWORDS"
	KeyMaxCount = "CRAWLER_MAX_NOTES_COUNT"
)

var (
	keywordsLine = regexp.MustCompile(`(?m)^KEYWORDS = [^\r\n]*`)
	maxCountLine = regexp.MustCompile(`(?m)^CRAWLER_MAX_NOTES_COUNT = [^\r\n]*`)
	assignLine   = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*?)\s*$`)
)

// ErrInvalidKeyword is returned for keywords that cannot be written into an
// assignment line without corrupting it.
var ErrInvalidKeyword = errors.New("invalid crawl keyword")

// ConfigIOError reports a config file that could not be read or written.
type ConfigIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigIOError) Error() string {
	return fmt.Sprintf("crawler config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigIOError) Unwrap() error { return e.Err }

// Snapshot holds the original content of a patched config file.
type Snapshot struct {
	path     string
	original []byte
	mode     os.FileMode

	once sync.Once
	err  error
}

// Path returns the file the snapshot was taken from.
func (s *Snapshot) Path() string { return s.path }

// Original returns the bytes that Restore writes back.
func (s *Snapshot) Original() []byte { return s.original }

// Restore writes the original bytes back. Only the first call does any work;
// later calls return the first call's result.
func (s *Snapshot) Restore() error {
	s.once.Do(func() {
		if err := writeFile(s.path, s.original, s.mode); err != nil {
			s.err = &ConfigIOError{Op: "restore", Path: s.path, Err: err}
		}
	})
	return s.err
}

// ValidateKeyword rejects keywords that would break the quoted KEYWORDS line.
func ValidateKeyword(keyword string) error {
	if strings.TrimSpace(keyword) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKeyword)
	}
	for _, r := range keyword {
		if r == '"' || r == '\\' || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKeyword, keyword, r)
		}
	}
	return nil
}

// Patch rewrites the KEYWORDS and CRAWLER_MAX_NOTES_COUNT lines of the file at
// path and returns a snapshot of what was there before. All other lines are
// left byte-for-byte untouched.
func Patch(path, keyword string, maxCount int) (*Snapshot, error) {
	if err := ValidateKeyword(keyword); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return nil, fmt.Errorf("max count must be positive, got %d", maxCount)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ConfigIOError{Op: "read", Path: path, Err: err}
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigIOError{Op: "read", Path: path, Err: err}
	}

	patched := keywordsLine.ReplaceAllLiteral(original, []byte(fmt.Sprintf(`%s = "%s"`, KeyKeywords, keyword)))
	patched = maxCountLine.ReplaceAllLiteral(patched, []byte(fmt.Sprintf(`%s = %d`, KeyMaxCount, maxCount)))

	snap := &Snapshot{path: path, original: original, mode: info.Mode().Perm()}
	// writeFile renames into place, so a failure here leaves the original.
	if err := writeFile(path, patched, snap.mode); err != nil {
		return nil, &ConfigIOError{Op: "write", Path: path, Err: err}
	}
	return snap, nil
}

// writeFile replaces path atomically via a temp file in the same directory.
func writeFile(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Values is the parsed set of assignments in a crawler config file.
type Values map[string]string

// Int returns the integer value of key, or def when absent or malformed.
func (v Values) Int(key string, def int) int {
	n, err := strconv.Atoi(v[key])
	if err != nil {
		return def
	}
	return n
}

// List splits a comma-separated value, dropping blanks.
func (v Values) List(key string) []string {
	var out []string
	for _, part := range strings.Split(v[key], ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ReadValues parses the simple KEY = value lines of a crawler config file.
// Quoted values are unquoted; comments and anything else are ignored.
func ReadValues(path string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigIOError{Op: "read", Path: path, Err: err}
	}

	vals := make(Values)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		m := assignLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		val := m[2]
		if i := strings.Index(val, " #"); i >= 0 && !strings.HasPrefix(val, `"`) && !strings.HasPrefix(val, `'`) {
			val = strings.TrimSpace(val[:i])
		}
		vals[m[1]] = unquote(val)
	}
	if err := sc.Err(); err != nil {
		return nil, &ConfigIOError{Op: "read", Path: path, Err: err}
	}
	return vals, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
