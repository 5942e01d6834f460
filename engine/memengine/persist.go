package memengine

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/cespare/xxhash"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/cryodb/cryo/engine"
)

// File layout:
//
//	00: magic "cryomem1"
//	08: u16 format
//	0a: u32 schema version
//	0e: u64 database version
//	16: u8 flags (0x1 = encrypted)
//	17: payload (plain codec, or nonce || AEAD-sealed codec)
//	 last 8 bytes: xxhash64 over everything before them
//
// The whole state is rewritten on every commit via tmp file + rename, so a
// torn write can never leave a half-new file behind.

var fileMagic = []byte("cryomem1")

const (
	fileFormat    = uint16(1)
	flagEncrypted = byte(0x1)
	headerLen     = 8 + 2 + 4 + 8 + 1
)

const (
	tagNil = byte(iota)
	tagString
	tagBool
	tagInt64
	tagFloat64
	tagBytes
)

func persist(s *store, st *state, version uint64) error {
	if s.path == "" {
		return nil
	}
	payload, err := encodeState(st)
	if err != nil {
		return err
	}

	buf := make([]byte, headerLen, headerLen+len(payload)+8)
	copy(buf, fileMagic)
	binary.BigEndian.PutUint16(buf[8:], fileFormat)
	binary.BigEndian.PutUint32(buf[10:], s.schema)
	binary.BigEndian.PutUint64(buf[14:], version)
	if len(s.key) > 0 {
		buf[22] = flagEncrypted
		sealed, err := seal(s.key, buf[:headerLen], payload)
		if err != nil {
			return err
		}
		buf = append(buf, sealed...)
	} else {
		buf = append(buf, payload...)
	}
	buf = binary.BigEndian.AppendUint64(buf, xxhash.Sum64(buf))

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, buf, 0o600); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrFileAccess, err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrFileAccess, err)
	}
	return nil
}

// loadFile reads the store's file if it exists and fills in state, version
// and the persisted schema version.
func loadFile(s *store) (loaded bool, schema uint32, err error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", engine.ErrFileAccess, err)
	}
	if len(data) < headerLen+8 || !bytes.Equal(data[:8], fileMagic) {
		return false, 0, fmt.Errorf("%w: bad header", engine.ErrCorrupted)
	}
	body, sumBytes := data[:len(data)-8], data[len(data)-8:]
	if xxhash.Sum64(body) != binary.BigEndian.Uint64(sumBytes) {
		return false, 0, fmt.Errorf("%w: checksum mismatch", engine.ErrCorrupted)
	}
	if format := binary.BigEndian.Uint16(data[8:]); format != fileFormat {
		return false, 0, fmt.Errorf("%w: unknown file format %d", engine.ErrCorrupted, format)
	}
	schema = binary.BigEndian.Uint32(data[10:])
	version := binary.BigEndian.Uint64(data[14:])
	encrypted := data[22]&flagEncrypted != 0
	payload := body[headerLen:]

	if encrypted != (len(s.key) > 0) {
		return false, 0, engine.ErrEncryption
	}
	if encrypted {
		if payload, err = open(s.key, data[:headerLen], payload); err != nil {
			return false, 0, err
		}
	}
	st, err := decodeState(payload)
	if err != nil {
		return false, 0, err
	}
	s.state = st
	s.version = version
	return true, schema, nil
}

func seal(key, header, payload []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrEncryption, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrEncryption, err)
	}
	return append(nonce, aead.Seal(nil, nonce, payload, header)...), nil
}

func open(key, header, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrEncryption, err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: truncated payload", engine.ErrCorrupted)
	}
	plain, err := aead.Open(nil, sealed[:aead.NonceSize()], sealed[aead.NonceSize():], header)
	if err != nil {
		return nil, engine.ErrEncryption
	}
	return plain, nil
}

func encodeState(st *state) ([]byte, error) {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(st.collections)))
	for name, coll := range st.collections {
		writeString(&buf, name)
		writeUint32(&buf, uint32(len(coll)))
		for id, obj := range coll {
			writeString(&buf, id)
			writeUint32(&buf, uint32(len(obj)))
			for k, v := range obj {
				writeString(&buf, k)
				if err := writeValue(&buf, v); err != nil {
					return nil, err
				}
			}
		}
	}
	return buf.Bytes(), nil
}

func decodeState(data []byte) (*state, error) {
	r := &reader{data: data}
	st := newState()
	nColl := r.uint32()
	for i := uint32(0); i < nColl && r.err == nil; i++ {
		name := r.string()
		nObj := r.uint32()
		coll := make(map[string]engine.Object, nObj)
		for j := uint32(0); j < nObj && r.err == nil; j++ {
			id := r.string()
			nProp := r.uint32()
			obj := make(engine.Object, nProp)
			for k := uint32(0); k < nProp && r.err == nil; k++ {
				key := r.string()
				obj[key] = r.value()
			}
			coll[id] = obj
		}
		st.collections[name] = coll
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrCorrupted, r.err)
	}
	return st, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteByte(tagNil)
	case string:
		buf.WriteByte(tagString)
		writeString(buf, x)
	case bool:
		buf.WriteByte(tagBool)
		if x {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case int64:
		buf.WriteByte(tagInt64)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(x))
		buf.Write(b[:])
	case float64:
		buf.WriteByte(tagFloat64)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(x))
		buf.Write(b[:])
	case []byte:
		buf.WriteByte(tagBytes)
		writeUint32(buf, uint32(len(x)))
		buf.Write(x)
	default:
		return fmt.Errorf("memengine: unsupported property type %T", v)
	}
	return nil
}

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("unexpected end of payload at %d", r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) string() string {
	return string(r.take(int(r.uint32())))
}

func (r *reader) value() any {
	tag := r.take(1)
	if tag == nil {
		return nil
	}
	switch tag[0] {
	case tagNil:
		return nil
	case tagString:
		return r.string()
	case tagBool:
		b := r.take(1)
		return b != nil && b[0] == 1
	case tagInt64:
		b := r.take(8)
		if b == nil {
			return nil
		}
		return int64(binary.BigEndian.Uint64(b))
	case tagFloat64:
		b := r.take(8)
		if b == nil {
			return nil
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	case tagBytes:
		return append([]byte(nil), r.take(int(r.uint32()))...)
	default:
		r.err = fmt.Errorf("unknown value tag %d", tag[0])
		return nil
	}
}
