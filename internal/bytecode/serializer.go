package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// imageMagic identifies a compiled BASIC bytecode image on disk. imageVersion
// is bumped whenever the section layout below changes incompatibly.
var imageMagic = [4]byte{'Q', 'B', 'C', 0}

const imageVersion uint8 = 1

// Serializer writes and reads the binary bytecode image format: a short
// header followed by length-prefixed sections, each written with
// encoding/binary so the format is portable across architectures.
type Serializer struct{}

func NewSerializer() *Serializer { return &Serializer{} }

// SerializeChunk encodes chunk as a self-contained binary image.
func (s *Serializer) SerializeChunk(chunk *Chunk) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.writeHeader(&buf); err != nil {
		return nil, err
	}
	if err := s.writeString(&buf, chunk.Name); err != nil {
		return nil, err
	}
	if err := s.writeInstructions(&buf, chunk.Code); err != nil {
		return nil, err
	}
	if err := s.writeConstants(&buf, chunk.Constants); err != nil {
		return nil, err
	}
	if err := s.writeLineInfos(&buf, chunk.Lines); err != nil {
		return nil, err
	}
	if err := s.writeStrings(&buf, chunk.GlobalNames); err != nil {
		return nil, err
	}
	if err := s.writeProcs(&buf, chunk.Procs); err != nil {
		return nil, err
	}
	if err := s.writeArrays(&buf, chunk.Arrays); err != nil {
		return nil, err
	}
	if err := s.writeRecords(&buf, chunk.Records); err != nil {
		return nil, err
	}
	if err := s.writeConstants(&buf, chunk.DataPool); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeChunk decodes a binary image previously written by
// SerializeChunk back into a Chunk.
func (s *Serializer) DeserializeChunk(data []byte) (*Chunk, error) {
	r := bytes.NewReader(data)
	if err := s.readHeader(r); err != nil {
		return nil, err
	}
	chunk := &Chunk{}
	var err error
	if chunk.Name, err = s.readString(r); err != nil {
		return nil, err
	}
	if chunk.Code, err = s.readInstructions(r); err != nil {
		return nil, err
	}
	if chunk.Constants, err = s.readConstants(r); err != nil {
		return nil, err
	}
	if chunk.Lines, err = s.readLineInfos(r); err != nil {
		return nil, err
	}
	if chunk.GlobalNames, err = s.readStrings(r); err != nil {
		return nil, err
	}
	if chunk.Procs, err = s.readProcs(r); err != nil {
		return nil, err
	}
	if chunk.Arrays, err = s.readArrays(r); err != nil {
		return nil, err
	}
	if chunk.Records, err = s.readRecords(r); err != nil {
		return nil, err
	}
	if chunk.DataPool, err = s.readConstants(r); err != nil {
		return nil, err
	}
	return chunk, nil
}

func (s *Serializer) writeHeader(w io.Writer) error {
	if _, err := w.Write(imageMagic[:]); err != nil {
		return err
	}
	return s.writeUint8(w, imageVersion)
}

func (s *Serializer) readHeader(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("reading image header: %w", err)
	}
	if magic != imageMagic {
		return fmt.Errorf("not a recognized bytecode image (bad magic %x)", magic)
	}
	version, err := s.readUint8(r)
	if err != nil {
		return err
	}
	if version != imageVersion {
		return fmt.Errorf("unsupported image version %d (expected %d)", version, imageVersion)
	}
	return nil
}

// --- primitive helpers -----------------------------------------------------

func (s *Serializer) writeUint8(w io.Writer, v uint8) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func (s *Serializer) readUint8(r io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func (s *Serializer) writeUint16(w io.Writer, v uint16) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func (s *Serializer) readUint16(r io.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func (s *Serializer) writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func (s *Serializer) readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func (s *Serializer) writeInt64(w io.Writer, v int64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func (s *Serializer) readInt64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func (s *Serializer) writeFloat64(w io.Writer, v float64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func (s *Serializer) readFloat64(r io.Reader) (float64, error) {
	var v float64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func (s *Serializer) writeBool(w io.Writer, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return s.writeUint8(w, b)
}

func (s *Serializer) readBool(r io.Reader) (bool, error) {
	b, err := s.readUint8(r)
	return b != 0, err
}

func (s *Serializer) writeString(w io.Writer, v string) error {
	if err := s.writeInt32(w, int32(len(v))); err != nil {
		return err
	}
	_, err := io.WriteString(w, v)
	return err
}

func (s *Serializer) readString(r io.Reader) (string, error) {
	n, err := s.readInt32(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (s *Serializer) writeStrings(w io.Writer, names []string) error {
	if err := s.writeInt32(w, int32(len(names))); err != nil {
		return err
	}
	for _, n := range names {
		if err := s.writeString(w, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) readStrings(r io.Reader) ([]string, error) {
	n, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = s.readString(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --- instructions ------------------------------------------------------

func (s *Serializer) writeInstructions(w io.Writer, code []Instruction) error {
	if err := s.writeInt32(w, int32(len(code))); err != nil {
		return err
	}
	for _, inst := range code {
		if err := binary.Write(w, binary.LittleEndian, uint32(inst)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) readInstructions(r io.Reader) ([]Instruction, error) {
	n, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]Instruction, n)
	for i := range out {
		var raw uint32
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, err
		}
		out[i] = Instruction(raw)
	}
	return out, nil
}

// --- values --------------------------------------------------------------

// writeValue writes a type tag followed by only the field(s) that type
// kind actually uses. Array and record values never reach the constant
// pool or DATA pool — both are always constructed at runtime (OpNewArray,
// OpNewRecord), never loaded as a literal — so TypeArray/TypeRecord never
// appear here.
func (s *Serializer) writeValue(w io.Writer, v Value) error {
	if err := s.writeUint8(w, uint8(v.Type)); err != nil {
		return err
	}
	switch v.Type {
	case TypeEmpty:
		return nil
	case TypeInt16, TypeInt32, TypeInt64, TypeUInt32:
		return s.writeInt64(w, v.Int)
	case TypeSingle, TypeDouble:
		return s.writeFloat64(w, v.Flt)
	case TypeString, TypeFixedString:
		return s.writeString(w, v.Str)
	default:
		return fmt.Errorf("serializer: value type %v has no constant-pool encoding", v.Type)
	}
}

func (s *Serializer) readValue(r io.Reader) (Value, error) {
	tag, err := s.readUint8(r)
	if err != nil {
		return Value{}, err
	}
	t := ValueType(tag)
	switch t {
	case TypeEmpty:
		return EmptyValue(), nil
	case TypeInt16, TypeInt32, TypeInt64, TypeUInt32:
		i, err := s.readInt64(r)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Int: i}, nil
	case TypeSingle, TypeDouble:
		f, err := s.readFloat64(r)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Flt: f}, nil
	case TypeString, TypeFixedString:
		str, err := s.readString(r)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Str: str}, nil
	default:
		return Value{}, fmt.Errorf("serializer: unknown constant-pool value type tag %d", tag)
	}
}

func (s *Serializer) writeConstants(w io.Writer, constants []Value) error {
	if err := s.writeInt32(w, int32(len(constants))); err != nil {
		return err
	}
	for _, v := range constants {
		if err := s.writeValue(w, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) readConstants(r io.Reader) ([]Value, error) {
	n, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]Value, n)
	for i := range out {
		if out[i], err = s.readValue(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --- line info -------------------------------------------------------------

func (s *Serializer) writeLineInfos(w io.Writer, lines []LineInfo) error {
	if err := s.writeInt32(w, int32(len(lines))); err != nil {
		return err
	}
	for _, li := range lines {
		if err := s.writeInt32(w, int32(li.Offset)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(li.Line)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) readLineInfos(r io.Reader) ([]LineInfo, error) {
	n, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]LineInfo, n)
	for i := range out {
		offset, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		line, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		out[i] = LineInfo{Offset: int(offset), Line: int(line)}
	}
	return out, nil
}

// --- procs / arrays / records -----------------------------------------------

func (s *Serializer) writeProcs(w io.Writer, procs []ProcSpec) error {
	if err := s.writeInt32(w, int32(len(procs))); err != nil {
		return err
	}
	for _, p := range procs {
		if err := s.writeString(w, p.Name); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(p.Entry)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(len(p.ParamSlots))); err != nil {
			return err
		}
		for i, slot := range p.ParamSlots {
			if err := s.writeInt32(w, int32(slot)); err != nil {
				return err
			}
			byVal := i < len(p.ByVal) && p.ByVal[i]
			if err := s.writeBool(w, byVal); err != nil {
				return err
			}
		}
		if err := s.writeBool(w, p.IsFunction); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(p.ReturnSlot)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(p.LocalCount)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) readProcs(r io.Reader) ([]ProcSpec, error) {
	n, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]ProcSpec, n)
	for i := range out {
		p := ProcSpec{}
		if p.Name, err = s.readString(r); err != nil {
			return nil, err
		}
		entry, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		p.Entry = int(entry)
		paramCount, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		p.ParamSlots = make([]int, paramCount)
		p.ByVal = make([]bool, paramCount)
		for j := range p.ParamSlots {
			slot, err := s.readInt32(r)
			if err != nil {
				return nil, err
			}
			p.ParamSlots[j] = int(slot)
			if p.ByVal[j], err = s.readBool(r); err != nil {
				return nil, err
			}
		}
		if p.IsFunction, err = s.readBool(r); err != nil {
			return nil, err
		}
		returnSlot, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		p.ReturnSlot = int(returnSlot)
		localCount, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		p.LocalCount = int(localCount)
		out[i] = p
	}
	return out, nil
}

func (s *Serializer) writeArrays(w io.Writer, arrays []ArraySpec) error {
	if err := s.writeInt32(w, int32(len(arrays))); err != nil {
		return err
	}
	for _, a := range arrays {
		if err := s.writeUint8(w, uint8(a.ElemType)); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(a.Dims)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Serializer) readArrays(r io.Reader) ([]ArraySpec, error) {
	n, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]ArraySpec, n)
	for i := range out {
		elemType, err := s.readUint8(r)
		if err != nil {
			return nil, err
		}
		dims, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		out[i] = ArraySpec{ElemType: ValueType(elemType), Dims: int(dims)}
	}
	return out, nil
}

func (s *Serializer) writeRecords(w io.Writer, records []RecordSpec) error {
	if err := s.writeInt32(w, int32(len(records))); err != nil {
		return err
	}
	for _, rec := range records {
		if err := s.writeString(w, rec.Name); err != nil {
			return err
		}
		if err := s.writeInt32(w, int32(len(rec.Fields))); err != nil {
			return err
		}
		for _, f := range rec.Fields {
			if err := s.writeString(w, f.Name); err != nil {
				return err
			}
			if err := s.writeUint8(w, uint8(f.Type)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Serializer) readRecords(r io.Reader) ([]RecordSpec, error) {
	n, err := s.readInt32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]RecordSpec, n)
	for i := range out {
		rec := RecordSpec{}
		if rec.Name, err = s.readString(r); err != nil {
			return nil, err
		}
		fieldCount, err := s.readInt32(r)
		if err != nil {
			return nil, err
		}
		rec.Fields = make([]FieldSpec, fieldCount)
		for j := range rec.Fields {
			name, err := s.readString(r)
			if err != nil {
				return nil, err
			}
			typeTag, err := s.readUint8(r)
			if err != nil {
				return nil, err
			}
			rec.Fields[j] = FieldSpec{Name: name, Type: ValueType(typeTag)}
		}
		out[i] = rec
	}
	return out, nil
}
