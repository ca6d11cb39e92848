package domain

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so the HTTP layer can map them to a status.
type Kind string

const (
	KindInput     Kind = "input"
	KindFetch     Kind = "fetch"
	KindDecode    Kind = "decode"
	KindGeometry  Kind = "geometry"
	KindSaliency  Kind = "saliency"
	KindTransform Kind = "transform"
	KindEncode    Kind = "encode"
	KindInternal  Kind = "internal"
)

var (
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrRectOutOfBounds   = errors.New("crop rectangle out of bounds")
	ErrWindowTooLarge    = errors.New("saliency window exceeds image")
	ErrImageTooLarge     = errors.New("image exceeds pixel limit")
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with kind. An err that already carries a Kind keeps it.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
