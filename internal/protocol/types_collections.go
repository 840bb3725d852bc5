package protocol

import "fmt"

// MapEntry is one key/value pair of a CQL map, used instead of a Go map
// type so callers can use non-comparable or typed keys.
type MapEntry struct {
	Key   any
	Value any
}

func encodeList(v any, t TypeInfo) ([]byte, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, &MalformedValue{Type: t.Kind.String(), Msg: "value is not a []any"}
	}
	if t.Elem == nil {
		return nil, &MalformedValue{Type: t.Kind.String(), Msg: "missing element type"}
	}

	w := NewWriter()
	w.WriteInt(int32(len(items)))
	for _, item := range items {
		if item == nil {
			w.WriteInt(-1)
			continue
		}
		elemBytes, err := EncodeValue(item, *t.Elem)
		if err != nil {
			return nil, err
		}
		w.WriteBytes(elemBytes)
	}
	return w.Bytes(), nil
}

func decodeList(b []byte, t TypeInfo) (out any, err error) {
	defer Recover(&err)

	if t.Elem == nil {
		return nil, &MalformedValue{Type: t.Kind.String(), Msg: "missing element type"}
	}
	r := NewReader(b)
	n := r.ReadInt()
	if n < 0 {
		return nil, &MalformedValue{Type: t.Kind.String(), Msg: "negative collection count"}
	}
	items := make([]any, n)
	for i := range items {
		elemBytes := r.ReadBytes()
		if elemBytes == nil {
			items[i] = nil
			continue
		}
		v, err := DecodeValue(elemBytes, *t.Elem)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func encodeMap(v any, t TypeInfo) ([]byte, error) {
	entries, ok := v.([]MapEntry)
	if !ok {
		return nil, &MalformedValue{Type: "map", Msg: "value is not a []MapEntry"}
	}
	if t.KeyType == nil || t.ValType == nil {
		return nil, &MalformedValue{Type: "map", Msg: "missing key/value type"}
	}

	w := NewWriter()
	w.WriteInt(int32(len(entries)))
	for _, e := range entries {
		kb, err := EncodeValue(e.Key, *t.KeyType)
		if err != nil {
			return nil, err
		}
		w.WriteBytes(kb)

		if e.Value == nil {
			w.WriteInt(-1)
			continue
		}
		vb, err := EncodeValue(e.Value, *t.ValType)
		if err != nil {
			return nil, err
		}
		w.WriteBytes(vb)
	}
	return w.Bytes(), nil
}

func decodeMap(b []byte, t TypeInfo) (out any, err error) {
	defer Recover(&err)

	if t.KeyType == nil || t.ValType == nil {
		return nil, &MalformedValue{Type: "map", Msg: "missing key/value type"}
	}
	r := NewReader(b)
	n := r.ReadInt()
	if n < 0 {
		return nil, &MalformedValue{Type: "map", Msg: "negative collection count"}
	}
	entries := make([]MapEntry, n)
	for i := range entries {
		kb := r.ReadBytes()
		key, err := DecodeValue(kb, *t.KeyType)
		if err != nil {
			return nil, err
		}

		vb := r.ReadBytes()
		var val any
		if vb != nil {
			val, err = DecodeValue(vb, *t.ValType)
			if err != nil {
				return nil, err
			}
		}
		entries[i] = MapEntry{Key: key, Value: val}
	}
	return entries, nil
}

func encodeTuple(v any, t TypeInfo) ([]byte, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, &MalformedValue{Type: "tuple", Msg: "value is not a []any"}
	}
	if len(items) > len(t.Elems) {
		return nil, &MalformedValue{Type: "tuple", Msg: fmt.Sprintf("tuple has %d fields, got %d values", len(t.Elems), len(items))}
	}

	w := NewWriter()
	for i, fieldType := range t.Elems {
		if i >= len(items) || items[i] == nil {
			w.WriteInt(-1)
			continue
		}
		fb, err := EncodeValue(items[i], fieldType)
		if err != nil {
			return nil, err
		}
		w.WriteBytes(fb)
	}
	return w.Bytes(), nil
}

func decodeTuple(b []byte, t TypeInfo) (out any, err error) {
	defer Recover(&err)

	r := NewReader(b)
	items := make([]any, len(t.Elems))
	for i, fieldType := range t.Elems {
		// Missing trailing fields decode as NULL.
		if r.Remaining() == 0 {
			items[i] = nil
			continue
		}
		fb := r.ReadBytes()
		if fb == nil {
			items[i] = nil
			continue
		}
		v, err := DecodeValue(fb, fieldType)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func encodeUDT(v any, t TypeInfo) ([]byte, error) {
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, &MalformedValue{Type: "udt", Msg: "value is not a map[string]any"}
	}

	w := NewWriter()
	for _, f := range t.Fields {
		val, present := fields[f.Name]
		if !present || val == nil {
			w.WriteInt(-1)
			continue
		}
		fb, err := EncodeValue(val, f.Type)
		if err != nil {
			return nil, err
		}
		w.WriteBytes(fb)
	}
	return w.Bytes(), nil
}

func decodeUDT(b []byte, t TypeInfo) (out any, err error) {
	defer Recover(&err)

	r := NewReader(b)
	result := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		// Missing trailing fields decode as NULL.
		if r.Remaining() == 0 {
			result[f.Name] = nil
			continue
		}
		fb := r.ReadBytes()
		if fb == nil {
			result[f.Name] = nil
			continue
		}
		v, err := DecodeValue(fb, f.Type)
		if err != nil {
			return nil, err
		}
		result[f.Name] = v
	}
	return result, nil
}
