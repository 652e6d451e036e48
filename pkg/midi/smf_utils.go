package midi

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxVarLen is the longest variable-length quantity allowed in a file.
const maxVarLen = 4

// add offset
func (d *FileReader) readByte() (byte, error) {
	var b byte
	err := binary.Read(d.r, binary.BigEndian, &b)
	if err == nil {
		d.offset += 1 // read byte
	}
	return b, err
}

func (d *FileReader) uint7() (uint8, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	return b & 0x7f, nil
}

// varLen returns the variable length value at the exact parser location.
func (d *FileReader) varLen() (uint32, error) {
	buf := make([]byte, 0, maxVarLen)

	for {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		buf = append(buf, b)
		if b&0x80 == 0 {
			break
		}
		if len(buf) == maxVarLen {
			return 0, fmt.Errorf("%w - variable length quantity longer than %d bytes", ErrUnexpectedData, maxVarLen)
		}
	}

	val, _ := decodeVarint(buf)
	return val, nil
}

// varLenTxt skips a length-prefixed block.
func (d *FileReader) varLenTxt() error {
	l, err := d.varLen()
	if err != nil {
		return err
	}
	d.offset += int64(l)
	_, err = d.r.Seek(d.offset, io.SeekStart)
	return err
}

// varLenData reads a length-prefixed block.
func (d *FileReader) varLenData() ([]byte, error) {
	l, err := d.varLen()
	if err != nil {
		return nil, err
	}
	if d.offset+int64(l) > d.trackEnd {
		return nil, fmt.Errorf("%w - block of %d bytes overruns track", ErrUnexpectedData, l)
	}

	data := make([]byte, l)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, err
	}
	d.offset += int64(l)
	return data, nil
}

// IDnSize reads a chunk header.
func (d *FileReader) IDnSize() ([4]byte, uint32, error) {
	var ID [4]byte
	if err := binary.Read(d.r, binary.BigEndian, &ID); err != nil {
		return ID, 0, err
	}
	d.offset += 4 // [4]byte ID

	var size uint32
	if err := binary.Read(d.r, binary.BigEndian, &size); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return ID, 0, err
	}
	d.offset += 4 // uint32 blockSize

	return ID, size, nil
}

func decodeVarint(buf []byte) (x uint32, n int) {
	for _, b := range buf {
		x = x << 7
		x |= uint32(b) & 0x7F
		n++
		if b&0x80 == 0 {
			return x, n
		}
	}

	return x, n
}

func isVoiceMsgType(b byte) bool {
	return 0x8 <= b && b <= 0xE
}
