package xandra

import "github.com/lexhide/xandra/internal/xerrors"

// The seven closed-set error kinds are defined once in internal/xerrors
// so the wire codec and connection/cluster layers can construct and
// return them without importing this package; these aliases are the
// public names callers of this module see and match against with
// errors.As.
type (
	ConnectionError     = xerrors.ConnectionError
	ProtocolViolation   = xerrors.ProtocolViolation
	MalformedValue      = xerrors.MalformedValue
	AuthenticationError = xerrors.AuthenticationError
	ServerError         = xerrors.ServerError
	InvalidArguments    = xerrors.InvalidArguments
	TimeoutError        = xerrors.TimeoutError
)
