package goruntime

import (
	"bufio"
	"bytes"
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bitdrift/crashreport/internal/crashreport"
)

const (
	noteTypeGNUBuildID = 3
	noteTypeGoBuildID  = 4
	loadCmdUUID        = 0x1b
)

var errNoBuildID = errors.New("goruntime: executable has no build id")

// Symbolicator resolves addresses inside the running executable. Everything
// it needs is read once by NewSymbolicator.
type Symbolicator struct {
	path    string
	base    uint64
	uuid    uuid.UUID
	hasUUID bool
}

// NewSymbolicator inspects the running executable. Failing to read a build
// id is not an error; frames are then written without a binary UUID.
func NewSymbolicator() (*Symbolicator, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("could not locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	s := &Symbolicator{path: path}

	if f, err := os.Open("/proc/self/maps"); err == nil {
		s.base, _ = imageBase(f, path)
		f.Close()
	}

	id, err := executableUUID(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("binary UUID unavailable")
	} else {
		s.uuid = id
		s.hasUUID = true
	}
	return s, nil
}

func (s *Symbolicator) Path() string {
	return s.path
}

func (s *Symbolicator) Lookup(address uint64, info *crashreport.SymbolInfo) bool {
	if address == 0 {
		return false
	}
	// Callers reports return addresses; the call itself is one byte back.
	f := runtime.FuncForPC(uintptr(address - 1))
	if f == nil {
		return false
	}
	info.BinaryPath = s.path
	info.BinaryBase = s.base
	info.SymbolAddress = uint64(f.Entry())
	return true
}

func (s *Symbolicator) BinaryImage(base uint64, path string, image *crashreport.BinaryImage) bool {
	if !s.hasUUID || base != s.base || path != s.path {
		return false
	}
	image.Name = filepath.Base(path)
	image.Base = base
	image.UUID = s.uuid
	return true
}

// imageBase finds the start of the first mapping of path in a
// /proc/<pid>/maps listing.
func imageBase(maps io.Reader, path string) (uint64, bool) {
	scanner := bufio.NewScanner(maps)
	for scanner.Scan() {
		// start-end perms offset dev inode path
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 || fields[5] != path || strings.Trim(fields[2], "0") != "" {
			continue
		}
		start, _, _ := strings.Cut(fields[0], "-")
		base, err := strconv.ParseUint(start, 16, 64)
		if err != nil {
			continue
		}
		return base, true
	}
	return 0, false
}

// executableUUID returns the build UUID of the executable at path: the
// leading bytes of the GNU build id, the Mach-O LC_UUID, or a name based
// UUID derived from the Go build id.
func executableUUID(path string) (uuid.UUID, error) {
	if f, err := elf.Open(path); err == nil {
		defer f.Close()
		return elfUUID(f)
	}
	if f, err := macho.Open(path); err == nil {
		defer f.Close()
		return machoUUID(f)
	}
	return uuid.Nil, fmt.Errorf("%s: unsupported executable format", path)
}

func elfUUID(f *elf.File) (uuid.UUID, error) {
	var goBuildID []byte
	for _, section := range f.Sections {
		if section.Type != elf.SHT_NOTE {
			continue
		}
		data, err := section.Data()
		if err != nil {
			continue
		}
		for _, n := range parseNotes(data, f.ByteOrder) {
			switch {
			case n.kind == noteTypeGNUBuildID && n.name == "GNU" && len(n.desc) >= 16:
				return uuid.FromBytes(n.desc[:16])
			case n.kind == noteTypeGoBuildID && n.name == "Go":
				goBuildID = n.desc
			}
		}
	}
	if len(goBuildID) > 0 {
		return uuid.NewSHA1(uuid.NameSpaceOID, goBuildID), nil
	}
	return uuid.Nil, errNoBuildID
}

func machoUUID(f *macho.File) (uuid.UUID, error) {
	for _, load := range f.Loads {
		raw := load.Raw()
		if len(raw) < 24 || f.ByteOrder.Uint32(raw) != loadCmdUUID {
			continue
		}
		return uuid.FromBytes(raw[8:24])
	}
	return uuid.Nil, errNoBuildID
}

type note struct {
	name string
	kind uint32
	desc []byte
}

// parseNotes splits an ELF note section. Names and descriptors are padded to
// four bytes.
func parseNotes(data []byte, order binary.ByteOrder) []note {
	var notes []note
	for len(data) >= 12 {
		nameSize := int(order.Uint32(data[0:]))
		descSize := int(order.Uint32(data[4:]))
		kind := order.Uint32(data[8:])
		data = data[12:]

		nameEnd := align4(nameSize)
		if nameSize < 0 || nameEnd > len(data) {
			break
		}
		name := string(bytes.TrimRight(data[:nameSize], "\x00"))
		data = data[nameEnd:]

		descEnd := align4(descSize)
		if descSize < 0 || descEnd > len(data) {
			break
		}
		notes = append(notes, note{name: name, kind: kind, desc: data[:descSize]})
		data = data[descEnd:]
	}
	return notes
}

func align4(n int) int {
	return (n + 3) &^ 3
}
