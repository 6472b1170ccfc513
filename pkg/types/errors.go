package types

import "errors"

// Error kinds. Concrete failures wrap one of these so callers can use errors.Is.
var (
	ErrTransport     = errors.New("transport error")
	ErrEncoding      = errors.New("response is not valid UTF-8")
	ErrFormat        = errors.New("unexpected response format")
	ErrAmbiguousLink = errors.New("commit is linked to more than one pull request")
	ErrConfig        = errors.New("invalid configuration")
)
