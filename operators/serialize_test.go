package operators

import (
	"bytes"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/array"
)

func TestSerializeRoundTrip(t *testing.T) {
	tbl := TableFromColumns([]Column{
		{Name: "id", Arr: GenIntArray(1, 2, 3)},
		{Name: "name", Arr: GenStringArray("a", "b", "c")},
		{Name: "score", Arr: GenFloatArray(1.5, 2.5, 3.5)},
	})

	ss, err := NewSerializer(tbl.Schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	schemaBytes, err := ss.SerializeSchema(tbl.Schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunkBytes, err := ss.SerializeTableColumns(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := bytes.NewReader(append(schemaBytes, chunkBytes...))
	schema, err := ss.DeserializeSchema(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !schema.Equal(tbl.Schema) {
		t.Fatalf("schema did not survive the round trip: %v vs %v", schema, tbl.Schema)
	}

	decoded, err := ss.DecodeTable(r, schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.RowCount != 3 {
		t.Fatalf("expected 3 rows, got %d", decoded.RowCount)
	}
	ids := decoded.Columns[0].(*array.Int64)
	names := decoded.Columns[1].(*array.String)
	scores := decoded.Columns[2].(*array.Float64)
	for i := 0; i < 3; i++ {
		if ids.Value(i) != int64(i+1) {
			t.Errorf("row %d: expected id %d, got %d", i, i+1, ids.Value(i))
		}
	}
	if names.Value(1) != "b" || scores.Value(2) != 3.5 {
		t.Errorf("unexpected decoded values: %s %v", names.Value(1), scores.Value(2))
	}
}

func TestSerializeSchemaMismatch(t *testing.T) {
	tbl := TableFromColumns([]Column{{Name: "a", Arr: GenIntArray(1)}})
	other := TableFromColumns([]Column{{Name: "b", Arr: GenStringArray("x")}})

	ss, err := NewSerializer(tbl.Schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ss.SerializeTableColumns(other); err == nil {
		t.Error("expected error when the table schema does not match the serializer schema")
	}
}

func TestBasicArrowTypeFromString(t *testing.T) {
	if _, err := BasicArrowTypeFromString("int64"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := BasicArrowTypeFromString("decimal128(10, 2)"); err == nil {
		t.Error("expected error for an unsupported type string")
	}
}
