package att

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilders(t *testing.T) {
	cases := []struct {
		name string
		got  []byte
		want string
	}{
		{name: "mtu req 185", got: MtuReq(185), want: "02b900"},
		{name: "mtu resp 23", got: MtuResp(23), want: "031700"},
		{name: "read 0x2e", got: ReadReq(0x2e), want: "0a2e00"},
		{name: "read blob 0x2e @22", got: ReadBlobReq(0x2e, 22), want: "0c2e001600"},
		{name: "write 0x2e <- 02", got: WriteReq(0x2e, []byte{2}), want: "122e0002"},
		{name: "write cmd 0x0102 <- abcd", got: WriteCmd(0x0102, []byte{0xab, 0xcd}), want: "520201abcd"},
		{name: "read by type [1,ffff] 2803", got: ReadByTypeReq(1, 0xffff, []byte{0x03, 0x28}), want: "080100ffff0328"},
		{name: "read by group [1,ffff] 2800", got: ReadByGroupReq(1, 0xffff, []byte{0x00, 0x28}), want: "100100ffff0028"},
		{name: "find info [1,a]", got: FindInfoReq(1, 10), want: "0401000a00"},
		{name: "error resp", got: ErrorResp(OpWriteReq, 0x2e, EcodeInvalidHandle), want: "01122e0001"},
		{name: "confirmation", got: HandleCnf(), want: "1e"},
	}
	for _, tt := range cases {
		if got := hex.EncodeToString(tt.got); got != tt.want {
			t.Errorf("%s: got %s want %s", tt.name, got, tt.want)
		}
	}
}

func TestErrorResponseRoundTrip(t *testing.T) {
	b, _ := hex.DecodeString("01120300" + "03")
	var e ErrorResponse
	require.NoError(t, e.Unmarshal(b))
	assert.Equal(t, ErrorResponse{Opcode: OpWriteReq, Handle: 3, Code: EcodeWriteNotPerm}, e)

	assert.ErrorIs(t, e.Unmarshal([]byte{OpError, 0x12}), ErrShortPDU)
	assert.ErrorIs(t, e.Unmarshal([]byte{OpReadResp, 1, 2, 3, 4}), ErrShortPDU)
}

func TestParseReadByTypeResp(t *testing.T) {
	// two characteristic declarations, 7 bytes each
	b, _ := hex.DecodeString("0907" + "0200020300002a" + "0400020500012a")
	hv, err := ParseReadByTypeResp(b)
	require.NoError(t, err)
	require.Len(t, hv, 2)
	assert.Equal(t, uint16(2), hv[0].Handle)
	assert.Equal(t, "020300002a", hex.EncodeToString(hv[0].Value))
	assert.Equal(t, uint16(4), hv[1].Handle)

	_, err = ParseReadByTypeResp([]byte{OpReadByTypeResp, 7, 1, 2, 3})
	assert.ErrorIs(t, err, ErrShortPDU)
}

func TestParseReadByGroupResp(t *testing.T) {
	b, _ := hex.DecodeString("1106" + "010005000018" + "060009000118")
	gv, err := ParseReadByGroupResp(b)
	require.NoError(t, err)
	require.Len(t, gv, 2)
	assert.Equal(t, GroupValue{Handle: 1, EndHandle: 5, Value: []byte{0x00, 0x18}}, gv[0])
	assert.Equal(t, GroupValue{Handle: 6, EndHandle: 9, Value: []byte{0x01, 0x18}}, gv[1])

	_, err = ParseReadByGroupResp([]byte{OpReadByGroupResp, 2})
	assert.ErrorIs(t, err, ErrShortPDU)
}

func TestParseFindInfoResp(t *testing.T) {
	b, _ := hex.DecodeString("0501" + "0100002802000328")
	hv, err := ParseFindInfoResp(b)
	require.NoError(t, err)
	require.Len(t, hv, 2)
	assert.Equal(t, HandleValue{Handle: 1, Value: []byte{0x00, 0x28}}, hv[0])
	assert.Equal(t, HandleValue{Handle: 2, Value: []byte{0x03, 0x28}}, hv[1])

	b, _ = hex.DecodeString("0502" + "0900" + "1bc5d5a50200c8b8e31111c1800dfe16")
	hv, err = ParseFindInfoResp(b)
	require.NoError(t, err)
	require.Len(t, hv, 1)
	assert.Len(t, hv[0].Value, 16)

	_, err = ParseFindInfoResp([]byte{OpFindInfoResp, 3, 1, 0, 0, 0x28})
	assert.ErrorIs(t, err, ErrShortPDU)
	_, err = ParseFindInfoResp([]byte{OpFindInfoResp, 1, 1, 0, 0})
	assert.ErrorIs(t, err, ErrShortPDU)
}

func TestOpcodeClasses(t *testing.T) {
	assert.True(t, IsRequest(OpWriteReq))
	assert.False(t, IsRequest(OpWriteCmd))
	assert.True(t, IsCommand(OpWriteCmd))
	assert.True(t, IsCommand(OpSignedWriteCmd))
	assert.False(t, IsCommand(OpReadReq))
	assert.True(t, IsResponse(OpError))
	assert.True(t, IsResponse(OpWriteResp))
	assert.False(t, IsResponse(OpHandleNotify))

	r, ok := ResponseFor(OpReadByGroupReq)
	assert.True(t, ok)
	assert.Equal(t, byte(OpReadByGroupResp), r)
}

func TestEcodeString(t *testing.T) {
	assert.Equal(t, "invalid handle", EcodeString(EcodeInvalidHandle))
	assert.Equal(t, "application error 0x80", EcodeString(0x80))
	assert.Equal(t, "error 0x42", EcodeString(0x42))
}
