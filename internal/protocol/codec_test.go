package protocol

import (
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/inf.v0"
)

// fixtureGen generates random but well-formed values for each CQL type,
// the role the teacher's DataGen plays for row fixtures.
type fixtureGen struct {
	*gofakeit.Faker
}

func newFixtureGen(seed uint64) *fixtureGen {
	return &fixtureGen{Faker: gofakeit.New(int64(seed))}
}

// roundTripCase pairs a random value with the TypeInfo it should encode
// and decode against.
type roundTripCase struct {
	name string
	typ  TypeInfo
	v    any
}

func scalarCases(g *fixtureGen) []roundTripCase {
	return []roundTripCase{
		{"ascii", Simple(KindAscii), g.LetterN(12)},
		{"text", Simple(KindText), g.Sentence(5)},
		{"blob", Simple(KindBlob), []byte(g.LetterN(20))},
		{"boolean", Simple(KindBoolean), g.Bool()},
		{"int", Simple(KindInt), int32(g.IntRange(-1<<30, 1<<30))},
		{"bigint", Simple(KindBigint), int64(g.IntRange(-1<<40, 1<<40))},
		{"counter", Simple(KindCounter), int64(g.IntRange(-1<<40, 1<<40))},
		{"smallint", Simple(KindSmallint), int16(g.IntRange(-1<<14, 1<<14))},
		{"tinyint", Simple(KindTinyint), int8(g.IntRange(-100, 100))},
		{"float", Simple(KindFloat), g.Float32Range(-1e6, 1e6)},
		{"double", Simple(KindDouble), g.Float64Range(-1e12, 1e12)},
		{"uuid", Simple(KindUUID), UUID(uuidBytes(g))},
		{"timeuuid", Simple(KindTimeUUID), UUID(uuidBytes(g))},
		{"inet4", Simple(KindInet), net.ParseIP(g.IPv4Address()).To4()},
		{"inet6", Simple(KindInet), net.ParseIP(g.IPv6Address()).To16()},
		{"varint", Simple(KindVarint), big.NewInt(int64(g.IntRange(-1<<40, 1<<40)))},
		{"decimal", Simple(KindDecimal), inf.NewDec(int64(g.IntRange(-1<<30, 1<<30)), inf.Scale(g.IntRange(0, 8)))},
		{"date", Simple(KindDate), time.Date(g.Year(), time.Month(g.Month()), g.Day(), 0, 0, 0, 0, time.UTC)},
		{"time", Simple(KindTime), time.Duration(g.IntRange(0, 24*60*60*1000)) * time.Millisecond},
		{"duration", Simple(KindDuration), Duration{
			Months:      int32(g.IntRange(-24, 24)),
			Days:        int32(g.IntRange(-31, 31)),
			Nanoseconds: int64(g.IntRange(-1<<40, 1<<40)),
		}},
		{"timestamp", Simple(KindTimestamp), int64(g.IntRange(0, 1<<41))},
	}
}

func uuidBytes(g *fixtureGen) [16]byte {
	var u [16]byte
	copy(u[:], g.LetterN(16))
	return u
}

// TestCodec_ScalarRoundTrip exercises the round-trip law spec.md §8
// requires: Decode(Encode(v)) reproduces the value encoded, for every
// scalar type in the closed set, using gofakeit-generated fixtures
// rather than a handful of hand-picked literals.
func TestCodec_ScalarRoundTrip(t *testing.T) {
	g := newFixtureGen(1)

	for _, c := range scalarCases(g) {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := EncodeValue(c.v, c.typ)
			require.NoError(t, err)

			decoded, err := DecodeValue(encoded, c.typ)
			require.NoError(t, err)

			switch want := c.v.(type) {
			case net.IP:
				assert.True(t, want.Equal(decoded.(net.IP)))
			case *big.Int:
				assert.Equal(t, 0, want.Cmp(decoded.(*big.Int)))
			case *inf.Dec:
				assert.Equal(t, 0, want.Cmp(decoded.(*inf.Dec)))
			case time.Time:
				assert.True(t, want.Equal(decoded.(time.Time)))
			default:
				assert.Equal(t, c.v, decoded)
			}
		})
	}
}

// TestCodec_ListRoundTrip round-trips a random-length list of ints.
func TestCodec_ListRoundTrip(t *testing.T) {
	g := newFixtureGen(2)
	typ := ListOf(Simple(KindInt))

	items := make([]any, g.IntRange(1, 10))
	for i := range items {
		items[i] = int32(g.IntRange(-1000, 1000))
	}

	encoded, err := EncodeValue(items, typ)
	require.NoError(t, err)

	decoded, err := DecodeValue(encoded, typ)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

// TestCodec_MapRoundTrip round-trips a random set of text->int entries.
func TestCodec_MapRoundTrip(t *testing.T) {
	g := newFixtureGen(3)
	typ := MapOf(Simple(KindText), Simple(KindInt))

	entries := make([]MapEntry, g.IntRange(1, 8))
	for i := range entries {
		entries[i] = MapEntry{Key: g.Word(), Value: int32(g.IntRange(-1000, 1000))}
	}

	encoded, err := EncodeValue(entries, typ)
	require.NoError(t, err)

	decoded, err := DecodeValue(encoded, typ)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

// TestCodec_TupleRoundTrip round-trips a fixed-shape (int, text, boolean) tuple.
func TestCodec_TupleRoundTrip(t *testing.T) {
	g := newFixtureGen(4)
	typ := TupleOf(Simple(KindInt), Simple(KindText), Simple(KindBoolean))
	items := []any{int32(g.IntRange(-1000, 1000)), g.Word(), g.Bool()}

	encoded, err := EncodeValue(items, typ)
	require.NoError(t, err)

	decoded, err := DecodeValue(encoded, typ)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

// TestCodec_UDTRoundTrip round-trips a user-defined type with two fields.
func TestCodec_UDTRoundTrip(t *testing.T) {
	g := newFixtureGen(5)
	typ := TypeInfo{
		Kind:     KindUDT,
		Keyspace: "ks",
		UDTName:  "address",
		Fields: []UDTField{
			{Name: "city", Type: Simple(KindText)},
			{Name: "zip", Type: Simple(KindInt)},
		},
	}
	fields := map[string]any{"city": g.City(), "zip": int32(g.IntRange(10000, 99999))}

	encoded, err := EncodeValue(fields, typ)
	require.NoError(t, err)

	decoded, err := DecodeValue(encoded, typ)
	require.NoError(t, err)
	assert.Equal(t, fields, decoded)
}

// TestCodec_NegativeVarintMinimalLength checks the byte-boundary edge
// case of spec.md §4.A's "minimal length" requirement: a negative value
// whose magnitude is an exact power of two encodes to exactly enough
// bytes, never one more for padding.
func TestCodec_NegativeVarintMinimalLength(t *testing.T) {
	cases := []struct {
		n       int64
		wantLen int
	}{
		{-1, 1},
		{-128, 1},
		{-129, 2},
		{-32768, 2},
		{-32769, 3},
	}
	for _, c := range cases {
		encoded, err := EncodeValue(big.NewInt(c.n), Simple(KindVarint))
		require.NoError(t, err)
		assert.Len(t, encoded, c.wantLen, "n=%d", c.n)

		decoded, err := DecodeValue(encoded, Simple(KindVarint))
		require.NoError(t, err)
		assert.Equal(t, 0, big.NewInt(c.n).Cmp(decoded.(*big.Int)), "n=%d", c.n)
	}
}

// TestFrame_RoundTrip exercises the frame codec: EncodeRequest produces
// bytes that DecodeHeader/DecodeBody parse back into the original body.
func TestFrame_RoundTrip(t *testing.T) {
	g := newFixtureGen(6)
	body := []byte(g.Sentence(10))

	encoded, err := EncodeRequest(7, OpQuery, body, nil)
	require.NoError(t, err)
	require.Equal(t, ProtocolVersionRequest, encoded[0])

	// DecodeHeader only accepts the response-direction version byte -
	// flip the high bit the way a real server's request-side parser
	// would, then undo it on the parsed header.
	flipped := append([]byte{}, encoded[:HeaderLength]...)
	flipped[0] |= 0x80
	header, err := DecodeHeader(flipped)
	require.NoError(t, err)
	header.Version = encoded[0]

	assert.Equal(t, int16(7), header.Stream)
	assert.Equal(t, OpQuery, header.Opcode)
	assert.EqualValues(t, len(body), header.Length)

	decodedBody, err := DecodeBody(header, encoded[HeaderLength:], nil)
	require.NoError(t, err)
	assert.Equal(t, body, decodedBody)
}
