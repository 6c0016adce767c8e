package tokengate

import "errors"

var (
	// ErrIdentityNotFound is returned by IdentityStore lookups that find nothing.
	ErrIdentityNotFound = errors.New("tokengate: identity not found")

	// ErrUnauthenticated wraps every failure to establish a principal from a
	// presented credential.
	ErrUnauthenticated = errors.New("tokengate: unauthenticated")

	// ErrNoCredentials means the request carried no usable credential.
	ErrNoCredentials = errors.New("tokengate: missing credentials")
)
