// Package wire packs and unpacks the fixed 64-bit request/response
// descriptor used by the object-store protocol. It performs no I/O; byte
// order conversion belongs to the transport.
//
// Bit layout (most significant first):
//
//	63-32  object identifier (0 = not yet assigned)
//	31-28  operation code
//	27-4   payload length in bytes
//	3-1    flags
//	0      result (responses only; 0 = success)
package wire

// Op is the 4-bit operation code field.
type Op uint8

const (
	OpInit Op = iota
	OpFormat
	OpCreate
	OpRead
	OpUpdate
	OpDelete
	OpClose
)

func (op Op) String() string {
	switch op {
	case OpInit:
		return "INIT"
	case OpFormat:
		return "FORMAT"
	case OpCreate:
		return "CREATE"
	case OpRead:
		return "READ"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	case OpClose:
		return "CLOSE"
	}
	return "UNKNOWN"
}

// CarriesRequestPayload reports whether a request descriptor with this op is
// followed by Length payload bytes on the wire.
func (op Op) CarriesRequestPayload() bool {
	return op == OpCreate || op == OpUpdate
}

// CarriesResponsePayload reports whether a response descriptor with this op
// is followed by Length payload bytes on the wire.
func (op Op) CarriesResponsePayload() bool {
	return op == OpRead
}

// Flags is the 3-bit operation modifier field.
type Flags uint8

const (
	FlagNone Flags = 0

	// FlagPriorityObject marks the distinguished directory object, which is
	// addressed by this flag rather than by a well-known identifier.
	FlagPriorityObject Flags = 1
)

// Result is the 1-bit result field.
type Result uint8

const (
	ResultOK      Result = 0
	ResultFailure Result = 1
)

// Field widths and masks.
const (
	opBits     = 4
	lengthBits = 24
	flagBits   = 3

	opMask     = 1<<opBits - 1
	lengthMask = 1<<lengthBits - 1
	flagMask   = 1<<flagBits - 1
	resultMask = 1

	opShift     = 28
	lengthShift = 4
	flagShift   = 1
	objectShift = 32
)

// MaxPayload is the largest payload size the 24-bit length field can carry.
const MaxPayload = lengthMask

// Descriptor is the decoded form of one protocol word.
type Descriptor struct {
	ObjectID uint32
	Op       Op
	Length   uint32
	Flags    Flags
	Result   Result
}

// Encode packs the descriptor into a single 64-bit word. Out-of-range field
// values are silently truncated to their declared widths; callers are
// responsible for supplying in-range values if they care about round trips.
func (d Descriptor) Encode() uint64 {
	word := uint64(d.ObjectID) << objectShift
	word |= uint64(d.Op&opMask) << opShift
	word |= uint64(d.Length&lengthMask) << lengthShift
	word |= uint64(d.Flags&flagMask) << flagShift
	word |= uint64(d.Result & resultMask)
	return word
}

// Decode unpacks a 64-bit protocol word into its descriptor fields.
func Decode(word uint64) Descriptor {
	return Descriptor{
		ObjectID: uint32(word >> objectShift),
		Op:       Op(word >> opShift & opMask),
		Length:   uint32(word >> lengthShift & lengthMask),
		Flags:    Flags(word >> flagShift & flagMask),
		Result:   Result(word & resultMask),
	}
}
