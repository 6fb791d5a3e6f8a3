package wire

// Operation represents a tree protocol request operation.
type Operation uint8

const (
	// OpResolve looks up a single node by path.
	OpResolve Operation = 1

	// OpGetDirectory lists the immediate children of a node.
	// An empty path lists the root.
	OpGetDirectory Operation = 2

	// OpSetValue writes a parameter value and returns the updated node.
	OpSetValue Operation = 3

	// OpSubscribe registers for value change notifications on a parameter.
	OpSubscribe Operation = 4

	// OpUnsubscribe cancels a subscription registered with OpSubscribe.
	OpUnsubscribe Operation = 5
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpResolve:
		return "Resolve"
	case OpGetDirectory:
		return "GetDirectory"
	case OpSetValue:
		return "SetValue"
	case OpSubscribe:
		return "Subscribe"
	case OpUnsubscribe:
		return "Unsubscribe"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is known.
func (o Operation) IsValid() bool {
	return o >= OpResolve && o <= OpUnsubscribe
}
