package upld

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"os"
)

// SectionName is the ELF section holding the info header in a built payload.
const SectionName = ".upld_info"

// ErrNoSection is returned when an ELF file has no .upld_info section.
var ErrNoSection = errors.New("upld: no " + SectionName + " section")

var elfMagic = []byte(elf.ELFMAG)

// WriteFile writes the header for name to path in a single write,
// truncating any existing file.
func WriteFile(path, name string) error {
	if err := os.WriteFile(path, Encode(name), 0o644); err != nil {
		return fmt.Errorf("upld: write %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes a raw header file.
func ReadFile(path string) (*InfoHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("upld: read %s: %w", path, err)
	}
	return Decode(data)
}

// FindInELF decodes the header stored in the .upld_info section of an ELF
// payload.
func FindInELF(path string) (*InfoHeader, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upld: open %s: %w", path, err)
	}
	defer f.Close()

	sec := f.Section(SectionName)
	if sec == nil {
		return nil, ErrNoSection
	}
	data, err := sec.Data()
	if err != nil {
		return nil, fmt.Errorf("upld: read %s: %w", SectionName, err)
	}
	return Decode(data)
}

// Load decodes a header from either a raw header file or an ELF payload,
// detected from the file's magic bytes.
func Load(path string) (*InfoHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upld: open %s: %w", path, err)
	}
	magic := make([]byte, len(elfMagic))
	n, _ := f.Read(magic)
	f.Close()

	if n == len(elfMagic) && bytes.Equal(magic, elfMagic) {
		return FindInELF(path)
	}
	return ReadFile(path)
}
