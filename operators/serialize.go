package operators

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

/*
Spill format for pipeline-breaking operations (sort, join, aggregation) when
a collected table will not fit in RAM.

FILE:
┌────────────────────────┐
│ SCHEMA BLOCK           │
│   numberOfFields       │
│   (field entries...)   │
├────────────────────────┤
│ TABLE CHUNK #1         │
│   per column:          │
│     arrayLength        │
│     numBuffers         │
│     buffers[...]       │
├────────────────────────┤
│ TABLE CHUNK #2         │
│   ...                  │
└────────────────────────┘

Every chunk shares the schema written once at the start; the on-disk schema
block exists only for validation against the in-memory schema. Between
columns the in-memory schema dictates the data type used for decoding.
*/

type serializer struct {
	schema *arrow.Schema // schema is always attached to the serializer
}

func NewSerializer(schema *arrow.Schema) (*serializer, error) {
	return &serializer{schema: schema}, nil
}

func (ss *serializer) Schema() *arrow.Schema {
	return ss.schema
}

// SerializeTableColumns writes one chunk worth of column blocks. The input
// schema must match the serializer's; the serializer schema is the source of
// truth.
func (ss *serializer) SerializeTableColumns(t *Table) ([]byte, error) {
	if !ss.schema.Equal(t.Schema) {
		return nil, ErrInvalidSchema("serializer schema and table schema are not aligned")
	}
	return ss.columnsToDisk(t.Columns)
}

func (ss *serializer) SerializeSchema(s *arrow.Schema) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(s.Fields()))); err != nil {
		return nil, err
	}

	for _, f := range s.Fields() {
		nameBytes := []byte(f.Name)
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(nameBytes))); err != nil {
			return nil, err
		}
		if _, err := buf.Write(nameBytes); err != nil {
			return nil, err
		}

		typeBytes := []byte(f.Type.String())
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(typeBytes))); err != nil {
			return nil, err
		}
		if _, err := buf.Write(typeBytes); err != nil {
			return nil, err
		}

		var nullable uint8
		if f.Nullable {
			nullable = 1
		}
		if err := binary.Write(buf, binary.LittleEndian, nullable); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func (ss *serializer) columnsToDisk(columns []arrow.Array) ([]byte, error) {
	buf := new(bytes.Buffer)

	for _, col := range columns {
		data := col.Data()

		if err := binary.Write(buf, binary.LittleEndian, int64(data.Len())); err != nil {
			return nil, err
		}

		buffers := data.Buffers()
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(buffers))); err != nil {
			return nil, err
		}

		for _, b := range buffers {
			if b == nil || b.Len() == 0 {
				if err := binary.Write(buf, binary.LittleEndian, uint64(0)); err != nil {
					return nil, err
				}
				continue
			}

			if err := binary.Write(buf, binary.LittleEndian, uint64(b.Len())); err != nil {
				return nil, err
			}
			if _, err := buf.Write(b.Bytes()); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

func (ss *serializer) DeserializeSchema(data io.Reader) (*arrow.Schema, error) {
	return ss.schemaFromDisk(data)
}

// after reading the schema, columns come back one at a time
func (ss *serializer) DeserializeNextColumn(r io.Reader, dt arrow.DataType) (arrow.Array, error) {
	var length int64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}

	var numBuffers uint32
	if err := binary.Read(r, binary.LittleEndian, &numBuffers); err != nil {
		return nil, err
	}

	buffers := make([]*memory.Buffer, numBuffers)
	for i := uint32(0); i < numBuffers; i++ {
		var size uint64
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}

		if size == 0 {
			buffers[i] = nil
			continue
		}

		raw := make([]byte, size)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, err
		}
		buffers[i] = memory.NewBufferBytes(raw)
	}

	arrData := array.NewData(
		dt,
		int(length),
		buffers,
		nil, // children (none for primitive)
		-1,  // null count computed lazily
		0,
	)
	return array.MakeFromData(arrData), nil
}

// DecodeTable reads one chunk back; ss.DeserializeSchema must run first.
func (ss *serializer) DecodeTable(r io.Reader, schema *arrow.Schema) (*Table, error) {
	if !ss.schema.Equal(schema) {
		return nil, ErrInvalidSchema("serializer schema and provided schema do not match")
	}
	arrays := make([]arrow.Array, len(schema.Fields()))
	for i, field := range schema.Fields() {
		arr, err := ss.DeserializeNextColumn(r, field.Type)
		if err != nil {
			return nil, err
		}
		arrays[i] = arr
	}
	var rows uint64
	if len(arrays) > 0 {
		rows = uint64(arrays[0].Len())
	}
	return &Table{
		Schema:   schema,
		Columns:  arrays,
		RowCount: rows,
		Chunks:   1,
	}, nil
}

func (ss *serializer) schemaFromDisk(data io.Reader) (*arrow.Schema, error) {
	var num uint32
	if err := binary.Read(data, binary.LittleEndian, &num); err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, 0, num)
	for i := uint32(0); i < num; i++ {
		var nameLen uint32
		if err := binary.Read(data, binary.LittleEndian, &nameLen); err != nil {
			return nil, err
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(data, nameBytes); err != nil {
			return nil, err
		}

		var typeLen uint32
		if err := binary.Read(data, binary.LittleEndian, &typeLen); err != nil {
			return nil, err
		}
		typeBytes := make([]byte, typeLen)
		if _, err := io.ReadFull(data, typeBytes); err != nil {
			return nil, err
		}
		typ, err := BasicArrowTypeFromString(string(typeBytes))
		if err != nil {
			return nil, err
		}

		var nullable uint8
		if err := binary.Read(data, binary.LittleEndian, &nullable); err != nil {
			return nil, err
		}

		fields = append(fields, arrow.Field{
			Name:     string(nameBytes),
			Type:     typ,
			Nullable: nullable == 1,
		})
	}

	return arrow.NewSchema(fields, nil), nil
}

func BasicArrowTypeFromString(s string) (arrow.DataType, error) {
	switch s {
	case "null":
		return arrow.Null, nil
	case "bool":
		return arrow.FixedWidthTypes.Boolean, nil

	case "int8":
		return arrow.PrimitiveTypes.Int8, nil
	case "int16":
		return arrow.PrimitiveTypes.Int16, nil
	case "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil

	case "uint8":
		return arrow.PrimitiveTypes.Uint8, nil
	case "uint16":
		return arrow.PrimitiveTypes.Uint16, nil
	case "uint32":
		return arrow.PrimitiveTypes.Uint32, nil
	case "uint64":
		return arrow.PrimitiveTypes.Uint64, nil

	case "float32":
		return arrow.PrimitiveTypes.Float32, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil

	case "string", "utf8":
		return arrow.BinaryTypes.String, nil
	case "large_string", "large_utf8":
		return arrow.BinaryTypes.LargeString, nil

	case "binary":
		return arrow.BinaryTypes.Binary, nil
	case "large_binary":
		return arrow.BinaryTypes.LargeBinary, nil
	}

	return nil, fmt.Errorf("unsupported arrow type: %s", s)
}
