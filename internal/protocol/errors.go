package protocol

import "github.com/lexhide/xandra/internal/xerrors"

// ProtocolViolation and MalformedValue are aliases onto the shared error
// kinds in internal/xerrors (see that package's doc comment for why);
// every constructor in this package that builds one of these can keep
// using the plain, unqualified name.
type (
	ProtocolViolation = xerrors.ProtocolViolation
	MalformedValue    = xerrors.MalformedValue
)
