package usecase

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the step at which a publish failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidRequest
	KindAuthenticationFailed
	KindBucketNotFound
	KindLocalFileNotFound
	KindLocalFileUnreadable
	KindUploadFailed
	KindMetadataSetFailed
	KindAclSetFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindBucketNotFound:
		return "BucketNotFound"
	case KindLocalFileNotFound:
		return "LocalFileNotFound"
	case KindLocalFileUnreadable:
		return "LocalFileUnreadable"
	case KindUploadFailed:
		return "UploadFailed"
	case KindMetadataSetFailed:
		return "MetadataSetFailed"
	case KindAclSetFailed:
		return "AclSetFailed"
	default:
		return "Unknown"
	}
}

// PublishError は publish の失敗ステップと原因を保持します。
type PublishError struct {
	Kind ErrorKind
	Op   string // 失敗した操作名（"upload" など）
	Key  string // 対象オブジェクトキー（確定前は空）
	Err  error
}

func (e *PublishError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Key != "" {
		msg += " (" + e.Key + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PublishError) Unwrap() error { return e.Err }

// Is matches sentinel kind errors such as ErrBucketNotFound.
func (e *PublishError) Is(target error) bool {
	t, ok := target.(*PublishError)
	if !ok {
		return false
	}
	return t.Err == nil && t.Op == "" && t.Key == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidRequest       = &PublishError{Kind: KindInvalidRequest}
	ErrAuthenticationFailed = &PublishError{Kind: KindAuthenticationFailed}
	ErrBucketNotFound       = &PublishError{Kind: KindBucketNotFound}
	ErrLocalFileNotFound    = &PublishError{Kind: KindLocalFileNotFound}
	ErrLocalFileUnreadable  = &PublishError{Kind: KindLocalFileUnreadable}
	ErrUploadFailed         = &PublishError{Kind: KindUploadFailed}
	ErrMetadataSetFailed    = &PublishError{Kind: KindMetadataSetFailed}
	ErrAclSetFailed         = &PublishError{Kind: KindAclSetFailed}
)

// ErrVerifyMismatch is returned by Verify when remote attributes differ from the request.
var ErrVerifyMismatch = errors.New("remote object does not match request")

// KindOf returns the kind of the first PublishError in err's chain.
func KindOf(err error) ErrorKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

func newError(kind ErrorKind, op, key string, err error) error {
	return &PublishError{Kind: kind, Op: op, Key: key, Err: err}
}

func mismatch(field, want, got string) error {
	return fmt.Errorf("%w: %s is %q, want %q", ErrVerifyMismatch, field, got, want)
}
