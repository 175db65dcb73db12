package proto

const (
	// CmdHeaderSize is the wire size of a command header:
	// magic, opcode, din_size, dout_size.
	CmdHeaderSize = 16
	// ReplyHeaderSize is the wire size of a reply header:
	// magic, result, dout_size.
	ReplyHeaderSize = 12
	// NotifySize is the wire size of a notification frame: magic, code.
	NotifySize = 8
)

type (
	// CmdHeader is the fixed request header received at the start of
	// every command message.
	CmdHeader struct {
		Magic    uint32
		Op       OpCode
		DinSize  uint32
		DoutSize uint32
	}

	// ReplyHeader is the fixed header framing every reply. DoutSize is
	// meaningful only when Result is non-negative.
	ReplyHeader struct {
		Magic    uint32
		Result   Result
		DoutSize uint32
	}

	// Notification is an async event frame sent on the notify channel.
	Notification struct {
		Magic uint32
		Code  NotifyCode
	}
)

// ArgSizes resolves the fixed argument sizes and the descriptor
// expectation for the header's opcode. Out-of-range opcodes fail with
// ErrUnknownOpcode.
func (h *CmdHeader) ArgSizes() (*ArgSizeEntry, error) {
	if h.Op >= NumOpCodes {
		return nil, ErrUnknownOpcode
	}
	return &argSizeTbl[h.Op], nil
}

func NewCmdHeader(op OpCode, dinSize, doutSize uint32) CmdHeader {
	return CmdHeader{Magic: kCmdMagic, Op: op, DinSize: dinSize, DoutSize: doutSize}
}

// NewReplyHeader frames a command result. A negative result forces
// DoutSize to zero so stale output buffer content is never announced.
func NewReplyHeader(result Result, doutSize uint32) ReplyHeader {
	h := ReplyHeader{Magic: kReplyMagic, Result: result}
	if result >= 0 {
		h.DoutSize = doutSize
	}
	return h
}

func NewNotification(code NotifyCode) Notification {
	return Notification{Magic: kNotifyMagic, Code: code}
}
