package wire

// NodeKind is the type of a tree element.
type NodeKind uint8

const (
	NodeKindUnknown   NodeKind = 0
	NodeKindContainer NodeKind = 1
	NodeKindParameter NodeKind = 2
	NodeKindFunction  NodeKind = 3
	NodeKindMatrix    NodeKind = 4
)

// String returns the lower-case kind name.
func (k NodeKind) String() string {
	switch k {
	case NodeKindContainer:
		return "container"
	case NodeKindParameter:
		return "parameter"
	case NodeKindFunction:
		return "function"
	case NodeKindMatrix:
		return "matrix"
	default:
		return "unknown"
	}
}

// Access describes which operations a parameter allows.
type Access uint8

const (
	AccessNone      Access = 0
	AccessRead      Access = 1
	AccessWrite     Access = 2
	AccessReadWrite Access = AccessRead | AccessWrite
)

// CanRead reports whether the value may be read.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite reports whether the value may be written.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// String returns the access name.
func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "readWrite"
	default:
		return "none"
	}
}

// NodeInfo describes one tree element as seen by the provider.
//
// CBOR encoding:
//
//	{
//	  1: number,          // child number within the parent
//	  2: path,            // numeric path, e.g. "0.1.2"
//	  3: identifierPath,  // e.g. "Device.Audio.Gain"
//	  4: identifier,
//	  5: description,
//	  6: kind,
//	  7: value,           // parameters only
//	  8: access,          // parameters only
//	  9: childCount
//	}
type NodeInfo struct {
	Number         uint32   `cbor:"1,keyasint"`
	Path           string   `cbor:"2,keyasint"`
	IdentifierPath string   `cbor:"3,keyasint,omitempty"`
	Identifier     string   `cbor:"4,keyasint,omitempty"`
	Description    string   `cbor:"5,keyasint,omitempty"`
	Kind           NodeKind `cbor:"6,keyasint"`
	Value          any      `cbor:"7,keyasint,omitempty"`
	Access         Access   `cbor:"8,keyasint,omitempty"`
	ChildCount     uint32   `cbor:"9,keyasint,omitempty"`
}
