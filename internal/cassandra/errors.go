package cassandra

import "github.com/lexhide/xandra/internal/xerrors"

// Lowercase-spelled aliases for the shared error kinds, so connection and
// cluster code can construct them the way it constructs any other local
// type without a package qualifier on every call site.
type (
	connectionError     = xerrors.ConnectionError
	protocolViolation   = xerrors.ProtocolViolation
	authenticationError = xerrors.AuthenticationError
	timeoutError        = xerrors.TimeoutError
	serverError         = xerrors.ServerError
	invalidArguments    = xerrors.InvalidArguments
)
