package graph

import "github.com/Royleong31/Blog-APIs/internal/sdk/errs"

// resolverError shows clients only the classified message; the kind and any
// field violations travel in the extensions.
type resolverError struct {
	e *errs.Error
}

func (r *resolverError) Error() string {
	return r.e.Message
}

func (r *resolverError) Unwrap() error {
	return r.e
}

func (r *resolverError) Extensions() map[string]interface{} {
	return r.e.Extensions()
}

func resolverErr(err error) error {
	if err == nil {
		return nil
	}
	return &resolverError{e: errs.From(err)}
}
