package store

import (
	"errors"
	"fmt"

	"github.com/seckatie/linksaver/internal/core"
)

var (
	// ErrValidation marks requests refused before touching the document.
	// The document is left unchanged.
	ErrValidation = errors.New("validation failed")
	// ErrPersistence marks a write the gateway refused. The attempted change
	// is discarded; callers should re-read to show the persisted state.
	ErrPersistence = errors.New("persistence failed")
	// ErrInvalidDocument is returned when the persisted categories do not
	// match the document schema.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrRevisionsUnsupported is returned by New when optimistic revisions
	// are requested on a gateway without compare-and-set.
	ErrRevisionsUnsupported = errors.New("optimistic revisions need a gateway with compare-and-set")
)

var (
	ErrUnsortedProtected = fmt.Errorf("%w: default category %q cannot be removed", ErrValidation, core.UnsortedCategory)
	ErrReservedCategory  = fmt.Errorf("%w: category name %q is reserved", ErrValidation, core.AllCategories)
	ErrBlankCategory     = fmt.Errorf("%w: category name is empty", ErrValidation)
	ErrEmptyURL          = fmt.Errorf("%w: URL is empty", ErrValidation)
)
