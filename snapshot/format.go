package snapshot

import "fmt"

const (
	// Magic identifies kvs data files (ASCII: "KVS1").
	Magic = "KVS1"
	// Version is the current data file format version.
	Version = 1

	// HeaderSize is the size of the fixed data file header in bytes.
	HeaderSize = 8
)

// Format selects the payload encoding of a data file.
type Format uint8

const (
	// FormatJSON stores the overrides as a typed JSON object (default).
	FormatJSON Format = 1
	// FormatBinary stores the overrides in the compact binary encoding.
	FormatBinary Format = 2
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat maps a configuration name to a Format. The empty string selects
// FormatJSON.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "json":
		return FormatJSON, nil
	case "binary":
		return FormatBinary, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown format %q", name)
	}
}

// Compression selects how the payload is compressed.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses Zstandard.
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a configuration name to a Compression. The empty
// string selects CompressionNone.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown compression %q", name)
	}
}

// Header is the fixed 8-byte prefix of every data file.
//
//	offset 0: magic "KVS1"
//	offset 4: version
//	offset 5: payload format
//	offset 6: compression
//	offset 7: reserved, zero
type Header struct {
	Version     uint8
	Format      Format
	Compression Compression
}

func (h Header) append(buf []byte) []byte {
	buf = append(buf, Magic...)
	return append(buf, h.Version, byte(h.Format), byte(h.Compression), 0)
}

// ReadHeader parses and validates the header at the start of data.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, decodeErr("header", ErrTruncated)
	}
	if string(data[:4]) != Magic {
		return Header{}, decodeErr("header", ErrInvalidMagic)
	}
	h := Header{
		Version:     data[4],
		Format:      Format(data[5]),
		Compression: Compression(data[6]),
	}
	if h.Version != Version {
		return Header{}, decodeErr("header", fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version))
	}
	switch h.Format {
	case FormatJSON, FormatBinary:
	default:
		return Header{}, decodeErr("header", fmt.Errorf("%w: %s", ErrUnknownFormat, h.Format))
	}
	switch h.Compression {
	case CompressionNone, CompressionLZ4, CompressionZSTD:
	default:
		return Header{}, decodeErr("header", fmt.Errorf("%w: %s", ErrUnknownCompression, h.Compression))
	}
	if data[7] != 0 {
		return Header{}, decodeErr("header", ErrReservedBits)
	}
	return h, nil
}
