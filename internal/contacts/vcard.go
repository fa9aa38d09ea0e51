package contacts

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Book maps normalized phone keys to display names.
type Book map[string]string

// Lookup returns the name stored for an already-normalized key.
func (b Book) Lookup(key string) (string, bool) {
	name, ok := b[key]
	return name, ok
}

// Name returns the name for key, or fallback when the book has no entry.
func (b Book) Name(key, fallback string) string {
	if name, ok := b[key]; ok {
		return name
	}
	return fallback
}

// Entry is one phone/name pair, used for listing.
type Entry struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// Entries returns the book sorted by name, then phone.
func (b Book) Entries() []Entry {
	out := make([]Entry, 0, len(b))
	for phone, name := range b {
		out = append(out, Entry{Phone: phone, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Phone < out[j].Phone
	})
	return out
}

// Parse reads vCard text. Within a card the latest FN line is the current
// name; each TEL line contributes normalize(value) -> name only when a name
// has already been seen in that card. Later cards overwrite earlier keys.
func Parse(r io.Reader, n Normalizer) (Book, error) {
	book := Book{}
	sc := bufio.NewScanner(r)
	// PHOTO lines in exported address books can be very long.
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var current string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "BEGIN:VCARD"):
			current = ""
		case strings.HasPrefix(upper, "FN:"):
			current = strings.TrimSpace(line[3:])
		case strings.HasPrefix(upper, "TEL"):
			_, value, ok := strings.Cut(line, ":")
			if !ok || current == "" {
				continue
			}
			book[n.Normalize(strings.TrimSpace(value))] = current
		case strings.HasPrefix(upper, "END:VCARD"):
			current = ""
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}
	return book, nil
}

// LoadFile parses the contact book at path. A missing file is not an error
// and yields an empty book.
func LoadFile(path string, n Normalizer) (Book, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Book{}, nil
		}
		return nil, fmt.Errorf("failed to open contacts: %w", err)
	}
	defer f.Close()

	return Parse(f, n)
}
