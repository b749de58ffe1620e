package schema

import "errors"

// ErrArtifactLoad reports an absent, unreadable or malformed trained artifact.
var ErrArtifactLoad = errors.New("artifact load failed")
