package timezones

import (
	"bufio"
	"embed"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed data/iana_timezones.txt
var dataFS embed.FS

const defaultListPath = "data/iana_timezones.txt"

// ErrNoReader marks LoadZones calls without input.
var ErrNoReader = errors.New("timezones: missing reader")

var (
	defaultOnce  sync.Once
	defaultZones []string
	defaultErr   error
)

// DefaultZones returns a copy of the embedded zone list.
func DefaultZones() ([]string, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultListPath)
		if err != nil {
			defaultErr = goerr.Wrap(err, "failed to open embedded zones")
			return
		}
		defer func() { _ = f.Close() }()
		defaultZones, defaultErr = LoadZones(f)
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return append([]string(nil), defaultZones...), nil
}

// LoadZones reads one zone per line, skipping blanks and # comments, and
// returns the unique names sorted.
func LoadZones(r io.Reader) ([]string, error) {
	if r == nil {
		return nil, ErrNoReader
	}
	scanner := bufio.NewScanner(r)
	seen := make(map[string]struct{})
	var zones []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		zones = append(zones, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to scan zones")
	}
	sort.Strings(zones)
	return zones, nil
}
