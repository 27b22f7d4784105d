package link

// archive.go splits an `ar`-format archive into its member objects
// (spec.md §4.1: "Archive detection is purely by file extension `.a`").
// The format itself has no ELF content and no third-party parser appears
// anywhere in the retrieved corpus, so it is hand-decoded here the same
// way the original linker's ObjectFile::read_from does for its Rust `ar`
// crate equivalent.

import (
	"fmt"
	"strconv"
	"strings"
)

const arMagic = "!<arch>\n"
const arHeaderSize = 60

// arMember is one entry split out of an `ar` archive.
type arMember struct {
	Name string
	Data []byte
}

// splitArchive parses the full contents of an `ar` archive into its
// member files, resolving GNU-style long file names via the "//" table.
func splitArchive(data []byte) ([]arMember, error) {
	if len(data) < len(arMagic) || string(data[:len(arMagic)]) != arMagic {
		return nil, fmt.Errorf("not an ar archive (bad magic)")
	}
	pos := len(arMagic)

	var longNames []byte
	var members []arMember

	for pos < len(data) {
		if pos+arHeaderSize > len(data) {
			return nil, fmt.Errorf("truncated ar header at offset %d", pos)
		}
		hdr := data[pos : pos+arHeaderSize]
		pos += arHeaderSize

		if hdr[58] != '`' || hdr[59] != '\n' {
			return nil, fmt.Errorf("malformed ar header terminator at offset %d", pos-arHeaderSize)
		}

		rawName := strings.TrimRight(string(hdr[0:16]), " ")
		sizeStr := strings.TrimSpace(string(hdr[48:58]))
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("malformed ar member size %q: %w", sizeStr, err)
		}
		if pos+size > len(data) {
			return nil, fmt.Errorf("ar member overruns archive (size %d at offset %d)", size, pos)
		}
		body := data[pos : pos+size]
		pos += size
		if size%2 == 1 && pos < len(data) {
			pos++ // padding byte to keep entries 2-byte aligned
		}

		switch {
		case rawName == "/":
			// GNU symbol index; irrelevant to this linker's resolution
			// strategy (it re-derives everything from each member's own
			// symbol table), so it is skipped.
			continue
		case rawName == "//":
			longNames = body
			continue
		case strings.HasPrefix(rawName, "/"):
			off, err := strconv.Atoi(rawName[1:])
			if err != nil {
				return nil, fmt.Errorf("malformed long-name reference %q: %w", rawName, err)
			}
			name, err := longNameAt(longNames, off)
			if err != nil {
				return nil, err
			}
			members = append(members, arMember{Name: name, Data: body})
		default:
			members = append(members, arMember{Name: strings.TrimSuffix(rawName, "/"), Data: body})
		}
	}
	return members, nil
}

// longNameAt reads a "/"-terminated entry out of the GNU long-name table.
func longNameAt(table []byte, off int) (string, error) {
	if off < 0 || off >= len(table) {
		return "", fmt.Errorf("long-name offset %d out of range", off)
	}
	end := off
	for end < len(table) && table[end] != '\n' {
		end++
	}
	return strings.TrimSuffix(string(table[off:end]), "/"), nil
}
