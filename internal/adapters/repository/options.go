package repository

import "github.com/okian/coachfit/pkg/logger"

type storeOptions struct {
	log logger.Logger
}

// Option applies a configuration option to NewStore.
type Option func(*storeOptions)

// WithLogger sets the logger used to report the load.
func WithLogger(l logger.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.log = l
		}
	}
}
