package hls

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrMalformedURL is matched by every *MalformedURLError.
var ErrMalformedURL = errors.New("malformed url")

// MalformedURLError reports a base/reference pair that could not be composed
// into an absolute URL.
type MalformedURLError struct {
	Base string
	Ref  string
	Err  error
}

func (e *MalformedURLError) Error() string {
	return fmt.Sprintf("resolve %q against base %q: %v", e.Ref, e.Base, e.Err)
}

func (e *MalformedURLError) Unwrap() error { return e.Err }

func (e *MalformedURLError) Is(target error) bool { return target == ErrMalformedURL }

// ResolveURL returns ref unchanged when it already carries a scheme, otherwise
// ref resolved against base following RFC 3986.
func ResolveURL(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", &MalformedURLError{Base: base, Ref: ref, Err: err}
	}
	if r.IsAbs() {
		return ref, nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", &MalformedURLError{Base: base, Ref: ref, Err: err}
	}
	if !b.IsAbs() {
		return "", &MalformedURLError{Base: base, Ref: ref, Err: errors.New("base is not an absolute url")}
	}

	return b.ResolveReference(r).String(), nil
}
