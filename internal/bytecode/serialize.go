package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// magic and wireVersion implement spec §6's "versionless, self-describing"
// wire format requirement with a 4-byte magic followed by a uint16 version,
// so a reader can reject "this isn't a bytecode file" before attempting a
// full parse — the same spirit as the teacher's own //go:generate comment
// gating generated code on a recognizable header.
var magic = [4]byte{'B', 'L', 'Z', 'B'}

const wireVersion uint16 = 1

const (
	tagNull byte = iota
	tagInt
	tagFloat
	tagBool
	tagChar
	tagString
	tagFunc
	tagArrayProg
	tagObjectProg
	tagNative
)

// Write serializes code as a self-describing byte stream: magic, version,
// the instruction stream and constant pool, then the symbol table, matching
// spec §6's wire format `{constant-pool, instructions, symbol-table}`.
func Write(w io.Writer, code *ByteCode) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, wireVersion); err != nil {
		return err
	}
	if err := writeByteCode(w, code); err != nil {
		return err
	}
	return writeSymbols(w, code.Symbols)
}

func writeSymbols(w io.Writer, syms map[SymIdx]string) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(syms))); err != nil {
		return err
	}
	for idx, name := range syms {
		if err := binary.Write(w, binary.BigEndian, uint16(idx)); err != nil {
			return err
		}
		if err := writeString(w, name); err != nil {
			return err
		}
	}
	return nil
}

func writeByteCode(w io.Writer, code *ByteCode) error {
	if err := writeBytes(w, code.Code); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(code.Consts))); err != nil {
		return err
	}
	for _, k := range code.Consts {
		if err := writeConst(w, k); err != nil {
			return err
		}
	}
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func writeString(w io.Writer, s string) error { return writeBytes(w, []byte(s)) }

func writeConst(w io.Writer, k Const) error {
	switch c := k.(type) {
	case ConstValue:
		return writeValue(w, c.V)
	case ConstArray:
		if _, err := w.Write([]byte{tagArrayProg}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(c.Elements))); err != nil {
			return err
		}
		for _, el := range c.Elements {
			if err := writeByteCode(w, el); err != nil {
				return err
			}
		}
		return nil
	case ConstObject:
		if _, err := w.Write([]byte{tagObjectProg}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(c.Fields))); err != nil {
			return err
		}
		for sym, prog := range c.Fields {
			if err := binary.Write(w, binary.BigEndian, uint16(sym)); err != nil {
				return err
			}
			if err := writeByteCode(w, prog); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("bytecode: unknown constant-pool entry %T", k)
	}
}

func writeValue(w io.Writer, v Value) error {
	switch val := v.(type) {
	case Null:
		_, err := w.Write([]byte{tagNull})
		return err
	case Int:
		if _, err := w.Write([]byte{tagInt}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, int64(val))
	case Float:
		if _, err := w.Write([]byte{tagFloat}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, float64(val))
	case Bool:
		b := byte(0)
		if val {
			b = 1
		}
		_, err := w.Write([]byte{tagBool, b})
		return err
	case Char:
		if _, err := w.Write([]byte{tagChar}); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, int32(val))
	case String:
		if _, err := w.Write([]byte{tagString}); err != nil {
			return err
		}
		return writeString(w, string(val))
	case Func:
		if _, err := w.Write([]byte{tagFunc}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint16(len(val.Params))); err != nil {
			return err
		}
		for _, p := range val.Params {
			if err := binary.Write(w, binary.BigEndian, uint16(p)); err != nil {
				return err
			}
		}
		if err := binary.Write(w, binary.BigEndian, uint16(val.Soul)); err != nil {
			return err
		}
		return writeByteCode(w, val.Code)
	case Native:
		if _, err := w.Write([]byte{tagNative}); err != nil {
			return err
		}
		if err := writeString(w, val.Name); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, uint32(val.Arity))
	default:
		return fmt.Errorf("bytecode: value kind %v has no wire encoding", v.Kind())
	}
}

// Read parses a byte stream produced by Write, refusing anything truncated
// or carrying an unrecognized magic/version (spec §6). It buffers the full
// stream into memory first so the constant-pool reader below can peek a tag
// byte without consuming it.
func Read(r io.Reader) (*ByteCode, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	br := bytes.NewReader(data)

	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, fmt.Errorf("bytecode: truncated header: %w", err)
	}
	if got != magic {
		return nil, fmt.Errorf("bytecode: not a Blaze bytecode file (bad magic)")
	}
	var version uint16
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("bytecode: truncated header: %w", err)
	}
	if version != wireVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", version)
	}
	code, err := readByteCode(br)
	if err != nil {
		return nil, err
	}
	syms, err := readSymbols(br)
	if err != nil {
		return nil, err
	}
	code.Symbols = syms
	return code, nil
}

func readSymbols(r *bytes.Reader) (map[SymIdx]string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("bytecode: truncated symbol-table count: %w", err)
	}
	syms := make(map[SymIdx]string, n)
	for i := uint32(0); i < n; i++ {
		var idx uint16
		if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
			return nil, fmt.Errorf("bytecode: truncated symbol index: %w", err)
		}
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		syms[SymIdx(idx)] = name
	}
	return syms, nil
}

func readByteCode(r *bytes.Reader) (*ByteCode, error) {
	code, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("bytecode: truncated constant count: %w", err)
	}
	consts := make([]Const, n)
	for i := range consts {
		c, err := readConst(r)
		if err != nil {
			return nil, err
		}
		consts[i] = c
	}
	return &ByteCode{Code: code, Consts: consts}, nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("bytecode: truncated length prefix: %w", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("bytecode: truncated payload: %w", err)
	}
	return buf, nil
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

func readTag(r *bytes.Reader) (byte, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return 0, fmt.Errorf("bytecode: truncated tag: %w", err)
	}
	return tag[0], nil
}

func readConst(r *bytes.Reader) (Const, error) {
	tag, err := peekTag(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagArrayProg:
		if _, err := readTag(r); err != nil {
			return nil, err
		}
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		elems := make([]*ByteCode, n)
		for i := range elems {
			bc, err := readByteCode(r)
			if err != nil {
				return nil, err
			}
			elems[i] = bc
		}
		return ConstArray{Elements: elems}, nil
	case tagObjectProg:
		if _, err := readTag(r); err != nil {
			return nil, err
		}
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		fields := make(map[SymIdx]*ByteCode, n)
		for i := uint32(0); i < n; i++ {
			var sym uint16
			if err := binary.Read(r, binary.BigEndian, &sym); err != nil {
				return nil, err
			}
			bc, err := readByteCode(r)
			if err != nil {
				return nil, err
			}
			fields[SymIdx(sym)] = bc
		}
		return ConstObject{Fields: fields}, nil
	default:
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		return ConstValue{V: v}, nil
	}
}

// peekTag reads the next tag byte without consuming it, so readConst can
// decide array/object-vs-scalar before dispatching. Read always hands
// readConst a *bytes.Reader (it buffers the whole stream up front), so
// ReadByte/UnreadByte gives us that peek cheaply.
func peekTag(r *bytes.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("bytecode: truncated tag: %w", err)
	}
	if err := r.UnreadByte(); err != nil {
		return 0, err
	}
	return b, nil
}

func readValue(r *bytes.Reader) (Value, error) {
	tag, err := readTag(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNull:
		return Null{}, nil
	case tagInt:
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return Int(v), nil
	case tagFloat:
		var v float64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return Float(v), nil
	case tagBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		return Bool(b[0] != 0), nil
	case tagChar:
		var v int32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return Char(v), nil
	case tagString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case tagFunc:
		var nparams uint16
		if err := binary.Read(r, binary.BigEndian, &nparams); err != nil {
			return nil, err
		}
		params := make([]SymIdx, nparams)
		for i := range params {
			var p uint16
			if err := binary.Read(r, binary.BigEndian, &p); err != nil {
				return nil, err
			}
			params[i] = SymIdx(p)
		}
		var soul uint16
		if err := binary.Read(r, binary.BigEndian, &soul); err != nil {
			return nil, err
		}
		code, err := readByteCode(r)
		if err != nil {
			return nil, err
		}
		return Func{Params: params, Soul: SymIdx(soul), Code: code}, nil
	case tagNative:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		var arity uint32
		if err := binary.Read(r, binary.BigEndian, &arity); err != nil {
			return nil, err
		}
		return Native{Name: name, Arity: int(arity)}, nil
	default:
		return nil, fmt.Errorf("bytecode: unrecognized value tag %#x", tag)
	}
}

// ReadAll is an alias for Read.
func ReadAll(r io.Reader) (*ByteCode, error) { return Read(r) }
