package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidUsername    = errors.New("username must be between 3 and 10 characters")
	ErrInvalidPassword    = errors.New("password must be between 6 and 20 characters")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownUser        = errors.New("unknown user")
	ErrRetrieval          = errors.New("retrieval failed")
)

// Retrieval stages, recorded in RetrievalError.Stage.
const (
	StageFetch      = "fetch"
	StageEmbed      = "embed"
	StageClear      = "clear"
	StageUpsert     = "upsert"
	StageEmbedQuery = "embed_query"
	StageQuery      = "query"
)

// RetrievalError reports which external step of a chat request failed.
// It matches both ErrRetrieval and the underlying cause.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed at %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() []error {
	return []error{ErrRetrieval, e.Err}
}
