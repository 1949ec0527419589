package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed search or ingestion request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRankerUnavailable signals a ranking oracle failure. Never reaches API callers.
	ErrRankerUnavailable = errors.New("ranker unavailable")
	// ErrUpstreamUnavailable signals a catalog API failure.
	ErrUpstreamUnavailable = errors.New("upstream catalog unavailable")
)

// Kind classifies an Error by the pipeline stage that produced it.
type Kind string

// Error kinds.
const (
	KindIngestion     Kind = "ingestion"
	KindNormalization Kind = "normalization"
	KindPersistence   Kind = "persistence"
	KindIndexing      Kind = "indexing"
	KindEmbedding     Kind = "embedding"
	KindVectorStore   Kind = "vector_store"
	KindRetrieval     Kind = "retrieval"
	KindConfiguration Kind = "configuration"
)

// Error implements error so that errors.Is(err, domain.KindRetrieval) works.
func (k Kind) Error() string { return string(k) }

// Error is a classified failure carrying structured context (counts, identifiers)
// and the causing error.
type Error struct {
	Kind    Kind
	Msg     string
	Context map[string]any
	Err     error
}

// NewError creates a classified error.
func NewError(kind Kind, msg string, cause error, kv ...any) *Error {
	e := &Error{Kind: kind, Msg: msg, Err: cause}
	if len(kv) > 0 {
		e.Context = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				key = fmt.Sprint(kv[i])
			}
			e.Context[key] = kv[i+1]
		}
	}
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's Kind, so callers can test the classification without errors.As.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the outermost Kind in the chain, or "" if err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
