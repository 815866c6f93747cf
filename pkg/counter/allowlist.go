package counter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// AllowList is a set of commit ids. A nil AllowList counts every commit.
type AllowList map[string]struct{}

// NewAllowList builds an allow-list from ids.
func NewAllowList(ids ...string) AllowList {
	list := make(AllowList, len(ids))
	for _, id := range ids {
		list[id] = struct{}{}
	}

	return list
}

// Contains reports whether id is on the list.
func (a AllowList) Contains(id string) bool {
	_, ok := a[id]

	return ok
}

// ParseAllowList reads one commit id per line, trimming whitespace and
// skipping blank lines.
func ParseAllowList(r io.Reader) (AllowList, error) {
	list := AllowList{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			list[id] = struct{}{}
		}
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("read allow-list: %w", err)
	}

	return list, nil
}

// LoadAllowList reads an allow-list file.
func LoadAllowList(path string) (AllowList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open allow-list: %w", err)
	}
	defer f.Close()

	return ParseAllowList(f)
}
