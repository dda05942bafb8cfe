package gitver

import "errors"

var (
	// ErrUnknownPolicy reports a lookup policy name that no selection
	// rule implements.
	ErrUnknownPolicy = errors.New("unknown lookup policy")

	// ErrNoRepository reports that a Calculator was built without a
	// repository.
	ErrNoRepository = errors.New("repository is required")
)
