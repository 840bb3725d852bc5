package protocol

import "fmt"

// optionID is the wire type id used in column specs and PREPARE metadata.
type optionID uint16

const (
	optCustom    optionID = 0x0000
	optAscii     optionID = 0x0001
	optBigint    optionID = 0x0002
	optBlob      optionID = 0x0003
	optBoolean   optionID = 0x0004
	optCounter   optionID = 0x0005
	optDecimal   optionID = 0x0006
	optDouble    optionID = 0x0007
	optFloat     optionID = 0x0008
	optInt       optionID = 0x0009
	optTimestamp optionID = 0x000B
	optUUID      optionID = 0x000C
	optVarchar   optionID = 0x000D
	optVarint    optionID = 0x000E
	optTimeUUID  optionID = 0x000F
	optInet      optionID = 0x0010
	optDate      optionID = 0x0011
	optTime      optionID = 0x0012
	optSmallint  optionID = 0x0013
	optTinyint   optionID = 0x0014
	optDuration  optionID = 0x0015
	optList      optionID = 0x0020
	optMap       optionID = 0x0021
	optSet       optionID = 0x0022
	optUDT       optionID = 0x0030
	optTuple     optionID = 0x0031
)

// writeOption writes an [option]: [short id][option contents if any].
// Request-side encoding is only needed for the kinds this driver can
// bind as a column type ahead of the server telling it, which is the
// same closed set Kind enumerates.
func writeOption(w *Writer, t TypeInfo) error {
	switch t.Kind {
	case KindAscii:
		w.WriteShort(uint16(optAscii))
	case KindBigint:
		w.WriteShort(uint16(optBigint))
	case KindBlob:
		w.WriteShort(uint16(optBlob))
	case KindBoolean:
		w.WriteShort(uint16(optBoolean))
	case KindCounter:
		w.WriteShort(uint16(optCounter))
	case KindDecimal:
		w.WriteShort(uint16(optDecimal))
	case KindDouble:
		w.WriteShort(uint16(optDouble))
	case KindFloat:
		w.WriteShort(uint16(optFloat))
	case KindInt:
		w.WriteShort(uint16(optInt))
	case KindTimestamp:
		w.WriteShort(uint16(optTimestamp))
	case KindUUID:
		w.WriteShort(uint16(optUUID))
	case KindText:
		w.WriteShort(uint16(optVarchar))
	case KindVarint:
		w.WriteShort(uint16(optVarint))
	case KindTimeUUID:
		w.WriteShort(uint16(optTimeUUID))
	case KindInet:
		w.WriteShort(uint16(optInet))
	case KindDate:
		w.WriteShort(uint16(optDate))
	case KindTime:
		w.WriteShort(uint16(optTime))
	case KindSmallint:
		w.WriteShort(uint16(optSmallint))
	case KindTinyint:
		w.WriteShort(uint16(optTinyint))
	case KindDuration:
		w.WriteShort(uint16(optDuration))
	case KindList:
		w.WriteShort(uint16(optList))
		return writeOption(w, *t.Elem)
	case KindSet:
		w.WriteShort(uint16(optSet))
		return writeOption(w, *t.Elem)
	case KindMap:
		w.WriteShort(uint16(optMap))
		if err := writeOption(w, *t.KeyType); err != nil {
			return err
		}
		return writeOption(w, *t.ValType)
	case KindTuple:
		w.WriteShort(uint16(optTuple))
		w.WriteShort(uint16(len(t.Elems)))
		for _, e := range t.Elems {
			if err := writeOption(w, e); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("xandra: cannot encode a type descriptor for %s", t.Kind)
	}
	return nil
}

// readOption parses a [option]; see writeOption for the inverse.
func readOption(r *Reader) (TypeInfo, error) {
	id := optionID(r.ReadShort())
	switch id {
	case optAscii:
		return Simple(KindAscii), nil
	case optBigint:
		return Simple(KindBigint), nil
	case optBlob:
		return Simple(KindBlob), nil
	case optBoolean:
		return Simple(KindBoolean), nil
	case optCounter:
		return Simple(KindCounter), nil
	case optDecimal:
		return Simple(KindDecimal), nil
	case optDouble:
		return Simple(KindDouble), nil
	case optFloat:
		return Simple(KindFloat), nil
	case optInt:
		return Simple(KindInt), nil
	case optTimestamp:
		return Simple(KindTimestamp), nil
	case optUUID:
		return Simple(KindUUID), nil
	case optVarchar, optCustom:
		return Simple(KindText), nil
	case optVarint:
		return Simple(KindVarint), nil
	case optTimeUUID:
		return Simple(KindTimeUUID), nil
	case optInet:
		return Simple(KindInet), nil
	case optDate:
		return Simple(KindDate), nil
	case optTime:
		return Simple(KindTime), nil
	case optSmallint:
		return Simple(KindSmallint), nil
	case optTinyint:
		return Simple(KindTinyint), nil
	case optDuration:
		return Simple(KindDuration), nil
	case optList:
		elem, err := readOption(r)
		if err != nil {
			return TypeInfo{}, err
		}
		return ListOf(elem), nil
	case optSet:
		elem, err := readOption(r)
		if err != nil {
			return TypeInfo{}, err
		}
		return SetOf(elem), nil
	case optMap:
		k, err := readOption(r)
		if err != nil {
			return TypeInfo{}, err
		}
		v, err := readOption(r)
		if err != nil {
			return TypeInfo{}, err
		}
		return MapOf(k, v), nil
	case optTuple:
		n := int(r.ReadShort())
		elems := make([]TypeInfo, n)
		for i := range elems {
			e, err := readOption(r)
			if err != nil {
				return TypeInfo{}, err
			}
			elems[i] = e
		}
		return TupleOf(elems...), nil
	case optUDT:
		ks := r.ReadString()
		name := r.ReadString()
		n := int(r.ReadShort())
		fields := make([]UDTField, n)
		for i := range fields {
			fname := r.ReadString()
			ftype, err := readOption(r)
			if err != nil {
				return TypeInfo{}, err
			}
			fields[i] = UDTField{Name: fname, Type: ftype}
		}
		return TypeInfo{Kind: KindUDT, Keyspace: ks, UDTName: name, Fields: fields}, nil
	default:
		return TypeInfo{}, &ProtocolViolation{Msg: fmt.Sprintf("unknown option id 0x%04x", id)}
	}
}

// BoundValue is one already-encoded value ready to place on the wire,
// optionally named (EXECUTE against a Prepared statement with bound
// column metadata) and optionally "not set".
type BoundValue struct {
	Name   string
	Bytes  []byte
	IsNull bool
	NotSet bool
}

func writeValues(w *Writer, values []BoundValue, withNames bool) {
	w.WriteShort(uint16(len(values)))
	for _, v := range values {
		if withNames {
			w.WriteString(v.Name)
		}
		w.WriteValueBytes(v.Bytes, v.NotSet)
	}
}

// QueryParams holds the query options shared by QUERY and EXECUTE.
type QueryParams struct {
	Consistency       Consistency
	Values            []BoundValue
	NamesForValues    bool
	SkipMetadata      bool
	PageSize          int32
	HasPageSize       bool
	PagingState       []byte
	SerialConsistency SerialConsistency
	HasSerialConsist  bool
	DefaultTimestamp  int64
	HasDefaultTS      bool
}

func (p QueryParams) flags() byte {
	var f byte
	if len(p.Values) > 0 {
		f |= QueryFlagValues
	}
	if p.SkipMetadata {
		f |= QueryFlagSkipMetadata
	}
	if p.HasPageSize {
		f |= QueryFlagPageSize
	}
	if p.PagingState != nil {
		f |= QueryFlagWithPagingState
	}
	if p.HasSerialConsist {
		f |= QueryFlagWithSerialConsist
	}
	if p.HasDefaultTS {
		f |= QueryFlagWithDefaultTS
	}
	if p.NamesForValues {
		f |= QueryFlagWithNamesForValues
	}
	return f
}

func writeQueryParams(w *Writer, p QueryParams) {
	w.WriteShort(uint16(p.Consistency))
	w.WriteByte(p.flags())
	if len(p.Values) > 0 {
		writeValues(w, p.Values, p.NamesForValues)
	}
	if p.HasPageSize {
		w.WriteInt(p.PageSize)
	}
	if p.PagingState != nil {
		w.WriteBytes(p.PagingState)
	}
	if p.HasSerialConsist {
		w.WriteShort(uint16(p.SerialConsistency))
	}
	if p.HasDefaultTS {
		w.WriteLong(p.DefaultTimestamp)
	}
}

// StartupBody builds a STARTUP request body.
func StartupBody(compression string) []byte {
	w := NewWriter()
	opts := map[string]string{"CQL_VERSION": CQLVersion}
	if compression != "" {
		opts["COMPRESSION"] = compression
	}
	w.WriteStringMap(opts)
	return w.Bytes()
}

// OptionsBody builds an OPTIONS request body (always empty).
func OptionsBody() []byte { return nil }

// SupportedBody builds a SUPPORTED response body. It exists for the
// server side of a handshake - this driver's own connection code only
// ever reads one - so a nil or empty m still produces a well-formed
// empty multimap rather than an empty body.
func SupportedBody(m map[string][]string) []byte {
	w := NewWriter()
	w.WriteStringMultimap(m)
	return w.Bytes()
}

// AuthResponseBody builds an AUTH_RESPONSE request body carrying token.
func AuthResponseBody(token []byte) []byte {
	w := NewWriter()
	w.WriteBytes(token)
	return w.Bytes()
}

// RegisterBody builds a REGISTER request body for the given event types.
func RegisterBody(eventTypes []string) []byte {
	w := NewWriter()
	w.WriteStringList(eventTypes)
	return w.Bytes()
}

// QueryBody builds a QUERY request body for a Simple statement.
func QueryBody(query string, params QueryParams) []byte {
	w := NewWriter()
	w.WriteLongString(query)
	writeQueryParams(w, params)
	return w.Bytes()
}

// PrepareBody builds a PREPARE request body.
func PrepareBody(query string) []byte {
	w := NewWriter()
	w.WriteLongString(query)
	return w.Bytes()
}

// ExecuteBody builds an EXECUTE request body against a previously
// prepared statement id.
func ExecuteBody(preparedID []byte, params QueryParams) []byte {
	w := NewWriter()
	w.WriteShortBytes(preparedID)
	writeQueryParams(w, params)
	return w.Bytes()
}

// BatchChild is one statement within a BATCH body. Only
// positional values are allowed in a batch - the caller (internal/cassandra)
// rejects named maps with InvalidArguments before reaching here.
type BatchChild struct {
	Kind        BatchStatementKind
	QueryText   string // used when Kind == BatchKindSimple
	PreparedID  []byte // used when Kind == BatchKindPrepared
	Values      []BoundValue
}

// BatchBody builds a BATCH request body.
func BatchBody(batchType BatchType, children []BatchChild, consistency Consistency) []byte {
	w := NewWriter()
	w.WriteByte(byte(batchType))
	w.WriteShort(uint16(len(children)))
	for _, c := range children {
		w.WriteByte(byte(c.Kind))
		if c.Kind == BatchKindSimple {
			w.WriteLongString(c.QueryText)
		} else {
			w.WriteShortBytes(c.PreparedID)
		}
		writeValues(w, c.Values, false)
	}
	w.WriteShort(uint16(consistency))
	w.WriteByte(0) // no serial consistency / default timestamp flags set
	return w.Bytes()
}

// ColumnSpec describes one column of a rows result or one bound/result
// parameter of a prepared statement.
type ColumnSpec struct {
	Keyspace string
	Table    string
	Name     string
	Type     TypeInfo
}

// RowsMetadata is the metadata preceding row data in a RESULT{kind=rows}
// body, and the metadata carried by PREPARE's bound/result columns.
type RowsMetadata struct {
	Flags       uint32
	Columns     []ColumnSpec
	PagingState []byte
}

func readRowsMetadata(r *Reader) (RowsMetadata, error) {
	meta := RowsMetadata{}
	meta.Flags = uint32(r.ReadInt())
	colCount := int(r.ReadInt())

	var globalKeyspace, globalTable string
	hasGlobal := meta.Flags&RowsFlagGlobalTablesSpec != 0
	if hasGlobal {
		globalKeyspace = r.ReadString()
		globalTable = r.ReadString()
	}

	if meta.Flags&RowsFlagHasMorePages != 0 {
		meta.PagingState = r.ReadBytes()
	}

	if meta.Flags&RowsFlagNoMetadata != 0 {
		return meta, nil
	}

	meta.Columns = make([]ColumnSpec, colCount)
	for i := range meta.Columns {
		spec := ColumnSpec{Keyspace: globalKeyspace, Table: globalTable}
		if !hasGlobal {
			spec.Keyspace = r.ReadString()
			spec.Table = r.ReadString()
		}
		spec.Name = r.ReadString()
		t, err := readOption(r)
		if err != nil {
			return meta, err
		}
		spec.Type = t
		meta.Columns[i] = t.wrapSpec(spec)
	}
	return meta, nil
}

func (t TypeInfo) wrapSpec(spec ColumnSpec) ColumnSpec {
	spec.Type = t
	return spec
}

// RowData is one row of raw, still-encoded cell bytes; nil means NULL.
type RowData [][]byte

// RowsResult is the decoded body of RESULT{kind=rows}.
type RowsResult struct {
	Metadata RowsMetadata
	Rows     []RowData
}

func readRowsResult(r *Reader) (*RowsResult, error) {
	meta, err := readRowsMetadata(r)
	if err != nil {
		return nil, err
	}
	rowCount := int(r.ReadInt())
	colCount := len(meta.Columns)

	rows := make([]RowData, rowCount)
	for i := range rows {
		row := make(RowData, colCount)
		for c := 0; c < colCount; c++ {
			row[c] = r.ReadBytes()
		}
		rows[i] = row
	}
	return &RowsResult{Metadata: meta, Rows: rows}, nil
}

// PreparedResult is the decoded body of RESULT{kind=prepared}.
type PreparedResult struct {
	ID            []byte
	BoundColumns  []ColumnSpec
	ResultColumns []ColumnSpec
}

func readPreparedResult(r *Reader) (*PreparedResult, error) {
	id := r.ReadShortBytes()
	boundMeta, err := readRowsMetadata(r)
	if err != nil {
		return nil, err
	}
	resultMeta, err := readRowsMetadata(r)
	if err != nil {
		return nil, err
	}
	return &PreparedResult{ID: id, BoundColumns: boundMeta.Columns, ResultColumns: resultMeta.Columns}, nil
}

// SchemaChangeResult is the decoded body of RESULT{kind=schema_change}.
type SchemaChangeResult struct {
	ChangeType string
	Target     string
	Keyspace   string
	Object     string
}

func readSchemaChangeResult(r *Reader) *SchemaChangeResult {
	sc := &SchemaChangeResult{
		ChangeType: r.ReadString(),
		Target:     r.ReadString(),
	}
	sc.Keyspace = r.ReadString()
	if sc.Target != "KEYSPACE" {
		sc.Object = r.ReadString()
	}
	return sc
}

// Result is the decoded body of a RESULT response, one variant populated
// per Kind.
type Result struct {
	Kind         ResultKind
	SetKeyspace  string
	Rows         *RowsResult
	Prepared     *PreparedResult
	SchemaChange *SchemaChangeResult
}

// ParseResult decodes a RESULT response body.
func ParseResult(body []byte) (res *Result, err error) {
	defer Recover(&err)

	r := NewReader(body)
	kind := ResultKind(r.ReadInt())
	res = &Result{Kind: kind}

	switch kind {
	case ResultVoid:
	case ResultSetKeyspace:
		res.SetKeyspace = r.ReadString()
	case ResultRows:
		res.Rows, err = readRowsResult(r)
	case ResultPrepared:
		res.Prepared, err = readPreparedResult(r)
	case ResultSchemaChange:
		res.SchemaChange = readSchemaChangeResult(r)
	default:
		return nil, &ProtocolViolation{Msg: fmt.Sprintf("unknown RESULT kind 0x%04x", kind)}
	}
	return res, err
}

// ErrorBody is the decoded body of an ERROR response.
type ErrorBody struct {
	Code        ErrorCode
	Message     string
	Consistency uint16
	Required    int32
	Alive       int32
	Received    int32
	BlockFor    int32
	WriteType   string
	DataPresent bool
	Keyspace    string
	Table       string
	UnpreparedID []byte
}

// ParseErrorBody decodes an ERROR response body, including the extra
// fields some error codes carry (grounded on gocql's parseErrorFrame).
func ParseErrorBody(body []byte) (eb *ErrorBody, err error) {
	defer Recover(&err)

	r := NewReader(body)
	eb = &ErrorBody{
		Code:    ErrorCode(uint32(r.ReadInt())),
		Message: r.ReadString(),
	}

	switch eb.Code {
	case ErrCodeUnavailable:
		eb.Consistency = r.ReadShort()
		eb.Required = r.ReadInt()
		eb.Alive = r.ReadInt()
	case ErrCodeWriteTimeout:
		eb.Consistency = r.ReadShort()
		eb.Received = r.ReadInt()
		eb.BlockFor = r.ReadInt()
		eb.WriteType = r.ReadString()
	case ErrCodeReadTimeout:
		eb.Consistency = r.ReadShort()
		eb.Received = r.ReadInt()
		eb.BlockFor = r.ReadInt()
		eb.DataPresent = r.ReadByte() != 0
	case ErrCodeAlreadyExists:
		eb.Keyspace = r.ReadString()
		eb.Table = r.ReadString()
	case ErrCodeUnprepared:
		eb.UnpreparedID = r.ReadShortBytes()
	}
	return eb, nil
}

// ParseSupported decodes a SUPPORTED response body.
func ParseSupported(body []byte) (options map[string][]string, err error) {
	defer Recover(&err)
	r := NewReader(body)
	return r.ReadStringMultimap(), nil
}

// ParseAuthenticate decodes an AUTHENTICATE response body.
func ParseAuthenticate(body []byte) (authenticator string, err error) {
	defer Recover(&err)
	r := NewReader(body)
	return r.ReadString(), nil
}

// AuthenticateBody builds an AUTHENTICATE response body naming
// authenticator. Only the server side of a handshake ever writes one.
func AuthenticateBody(authenticator string) []byte {
	w := NewWriter()
	w.WriteString(authenticator)
	return w.Bytes()
}

// ParseAuthChallenge decodes an AUTH_CHALLENGE response body.
func ParseAuthChallenge(body []byte) (token []byte, err error) {
	defer Recover(&err)
	r := NewReader(body)
	return r.ReadBytes(), nil
}

// Event is a decoded server-initiated EVENT body.
type Event struct {
	Type string // "STATUS_CHANGE", "TOPOLOGY_CHANGE", "SCHEMA_CHANGE"

	// STATUS_CHANGE, TOPOLOGY_CHANGE
	ChangeEffect string // "UP", "DOWN", "NEW_NODE", "REMOVED_NODE"
	Address      string

	// SCHEMA_CHANGE
	SchemaChange *SchemaChangeResult
}

// ParseEvent decodes an EVENT response body.
func ParseEvent(body []byte) (ev *Event, err error) {
	defer Recover(&err)

	r := NewReader(body)
	ev = &Event{Type: r.ReadString()}

	switch ev.Type {
	case "STATUS_CHANGE", "TOPOLOGY_CHANGE":
		ev.ChangeEffect = r.ReadString()
		ip, port := r.ReadInetAddr()
		ev.Address = fmt.Sprintf("%s:%d", ip, port)
	case "SCHEMA_CHANGE":
		ev.SchemaChange = readSchemaChangeResult(r)
	default:
		return nil, &ProtocolViolation{Msg: "unknown event type " + ev.Type}
	}
	return ev, nil
}
