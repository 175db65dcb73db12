package proto

import (
	"testing"
)

func TestCmdHeaderRoundTrip(t *testing.T) {
	h := NewCmdHeader(OpCodeDspWrite, 4096, 0)
	var raw [CmdHeaderSize]byte
	if err := h.Encode(raw[:]); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := DecodeCmdHeader(raw[:])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != h {
		t.Errorf("round trip mismatch: sent %+v got %+v", h, got)
	}
}

func TestDecodeCmdHeaderBadMagic(t *testing.T) {
	h := NewCmdHeader(OpCodeDspRead, 0, 128)
	var raw [CmdHeaderSize]byte
	h.Encode(raw[:])
	EncByteOrder.PutUint32(raw[0:4], 0x12345678)
	if _, err := DecodeCmdHeader(raw[:]); err != ErrMalformedFrame {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeCmdHeaderWrongSize(t *testing.T) {
	for _, n := range []int{0, 1, CmdHeaderSize - 1, CmdHeaderSize + 1} {
		raw := make([]byte, n)
		if _, err := DecodeCmdHeader(raw); err != ErrMalformedFrame {
			t.Errorf("size %d: expected ErrMalformedFrame, got %v", n, err)
		}
	}
}

func TestReplyHeaderRoundTrip(t *testing.T) {
	h := NewReplyHeader(Result(16), 16)
	var raw [ReplyHeaderSize]byte
	if err := h.Encode(raw[:]); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := DecodeReplyHeader(raw[:])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != h {
		t.Errorf("round trip mismatch: sent %+v got %+v", h, got)
	}
}

func TestNewReplyHeaderSuppressesDoutOnError(t *testing.T) {
	h := NewReplyHeader(ErrUnknownOpcode.Result(), 512)
	if h.DoutSize != 0 {
		t.Errorf("negative result must zero dout_size, got %d", h.DoutSize)
	}
	if !h.Result.IsError() {
		t.Errorf("expected error result")
	}
}

func TestNegativeReplyResultRoundTrip(t *testing.T) {
	h := NewReplyHeader(ErrNoMem.Result(), 0)
	var raw [ReplyHeaderSize]byte
	h.Encode(raw[:])
	got, err := DecodeReplyHeader(raw[:])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Result != ErrNoMem.Result() {
		t.Errorf("result mismatch: sent %v got %v", ErrNoMem.Result(), got.Result)
	}
	if got.Result.Errno() != ErrNoMem.Errno() {
		t.Errorf("errno mismatch: %v != %v", got.Result.Errno(), ErrNoMem.Errno())
	}
}

func TestArgSizesBounds(t *testing.T) {
	for op := OpCode(0); op < NumOpCodes; op++ {
		if _, err := ArgSizes(op); err != nil {
			t.Errorf("op %v: unexpected error %v", op, err)
		}
	}
	if _, err := ArgSizes(NumOpCodes); err != ErrUnknownOpcode {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
	if _, err := ArgSizes(OpCode(0xffffffff)); err != ErrUnknownOpcode {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestArgSizesDescriptorFlags(t *testing.T) {
	withFD := map[OpCode]bool{
		OpCodeDspPoll: true,
		OpCodeDspMmap: true,
	}
	for op := OpCode(0); op < NumOpCodes; op++ {
		ent, _ := ArgSizes(op)
		if ent.HasFD != withFD[op] {
			t.Errorf("op %v: HasFD = %v", op, ent.HasFD)
		}
	}
}

func TestMixerArgRoundTrip(t *testing.T) {
	a := MixerArg{Set: 1, Vol: [2]int32{75, 80}}
	var raw [MixerArgSize]byte
	if err := a.Encode(raw[:]); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var got MixerArg
	if err := got.Decode(raw[:]); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != a {
		t.Errorf("round trip mismatch: %+v != %+v", got, a)
	}
}

func TestDspOpenArgShortBuffer(t *testing.T) {
	var a DspOpenArg
	if err := a.Decode(make([]byte, DspOpenArgSize-1)); err != ErrMalformedFrame {
		t.Errorf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	n := NewNotification(NotifyVolChange)
	var raw [NotifySize]byte
	if err := n.Encode(raw[:]); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := DecodeNotification(raw[:])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != n {
		t.Errorf("round trip mismatch: %+v != %+v", got, n)
	}
}
