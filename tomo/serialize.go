/*
	This file supports serialization and compression of payloads at rest.
	Stores that keep whole payloads as single values (e.g. the Badger
	backend) wrap them in this format; file-oriented stores keep payloads
	as plain files.
*/

package tomo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/golang/snappy"
)

// Compression is the format of compression for storing data.
// NOTE: Should be no more than 8 (3 bits) of compression types.
type Compression uint8

const (
	Uncompressed Compression = 0
	Snappy       Compression = 1
	Gzip         Compression = 2
)

func (compress Compression) String() string {
	switch compress {
	case Uncompressed:
		return "No compression"
	case Snappy:
		return "Snappy compression"
	case Gzip:
		return "Gzip compression"
	default:
		return "Unknown compression"
	}
}

// Checksum is the type of checksum employed for error checking stored data.
// NOTE: Should be no more than 4 (2 bits) of checksum types.
type Checksum uint8

const (
	NoChecksum Checksum = 0
	CRC32      Checksum = 1
)

func (checksum Checksum) String() string {
	switch checksum {
	case NoChecksum:
		return "No checksum"
	case CRC32:
		return "CRC32 checksum"
	default:
		return "Unknown checksum"
	}
}

// SerializationFormat is a single byte combining both compression and checksum methods.
type SerializationFormat uint8

func EncodeSerializationFormat(compress Compression, checksum Checksum) SerializationFormat {
	a := (uint8(compress) & 0x07) << 5
	b := (uint8(checksum) & 0x03) << 3
	return SerializationFormat(a | b)
}

func DecodeSerializationFormat(s SerializationFormat) (compress Compression, checksum Checksum) {
	compress = Compression(uint8(s) >> 5)
	checksum = Checksum((uint8(s) >> 3) & 0x03)
	return
}

// SerializeData serializes a slice of bytes using optional compression and checksum.
func SerializeData(data []byte, compress Compression, checksum Checksum) (s []byte, err error) {
	var buffer bytes.Buffer

	// Store the requested compression and checksum.
	format := EncodeSerializationFormat(compress, checksum)
	if err = binary.Write(&buffer, binary.LittleEndian, format); err != nil {
		return
	}

	var byteData []byte
	switch compress {
	case Uncompressed:
		byteData = data
	case Snappy:
		byteData = snappy.Encode(nil, data)
	case Gzip:
		var gzBuf bytes.Buffer
		gz := gzip.NewWriter(&gzBuf)
		if _, err = gz.Write(data); err != nil {
			return
		}
		if err = gz.Close(); err != nil {
			return
		}
		byteData = gzBuf.Bytes()
	default:
		err = fmt.Errorf("illegal compression (%s) during serialization", compress)
	}
	if err != nil {
		return
	}

	switch checksum {
	case NoChecksum:
	case CRC32:
		crcChecksum := crc32.ChecksumIEEE(byteData)
		err = binary.Write(&buffer, binary.LittleEndian, crcChecksum)
	default:
		err = fmt.Errorf("illegal checksum (%s) during serialization", checksum)
	}
	if err == nil {
		// The actual data is written last, after any checksum, so we don't
		// have to worry about length when deserializing.
		if _, err = buffer.Write(byteData); err == nil {
			s = buffer.Bytes()
		}
	}
	return
}

// DeserializeData deserializes a slice of bytes using the stored
// compression and checksum formats.
func DeserializeData(s []byte) (data []byte, compress Compression, err error) {
	if len(s) == 0 {
		err = fmt.Errorf("cannot deserialize empty buffer")
		return
	}
	var checksum Checksum
	compress, checksum = DecodeSerializationFormat(SerializationFormat(s[0]))
	stored := s[1:]

	switch checksum {
	case NoChecksum:
	case CRC32:
		if len(stored) < 4 {
			err = fmt.Errorf("serialized data too short for CRC32 checksum")
			return
		}
		crcChecksum := binary.LittleEndian.Uint32(stored[:4])
		stored = stored[4:]
		if crcChecksum != crc32.ChecksumIEEE(stored) {
			err = fmt.Errorf("bad checksum on deserialization")
			return
		}
	default:
		err = fmt.Errorf("illegal checksum (%s) during deserialization", checksum)
		return
	}

	switch compress {
	case Uncompressed:
		data = stored
	case Snappy:
		data, err = snappy.Decode(nil, stored)
	case Gzip:
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(bytes.NewReader(stored)); err != nil {
			return
		}
		data, err = io.ReadAll(gz)
		if err == nil {
			err = gz.Close()
		}
	default:
		err = fmt.Errorf("illegal compression (%s) during deserialization", compress)
	}
	return
}
