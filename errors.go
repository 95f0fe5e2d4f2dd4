package uniqw

import "errors"

// ErrDuplicateTask is returned when Enqueue is called with an ID that already exists for the queue.
var ErrDuplicateTask = errors.New("uniqw: duplicate task id")

// ErrUnknownState is returned when an invalid state is used.
var ErrUnknownState = errors.New("uniqw: unknown state")

// ErrTaskNotFound is returned when a task is no longer stored where it was fetched from.
var ErrTaskNotFound = errors.New("uniqw: task not found")

// ErrQueueClosed is returned by a queue handle after Close.
var ErrQueueClosed = errors.New("uniqw: queue closed")

// ErrMissingConnection is returned when no connection URL is configured.
var ErrMissingConnection = errors.New("uniqw: missing connection url")

// ErrInvalidConnection is returned when a connection URL cannot be parsed.
var ErrInvalidConnection = errors.New("uniqw: invalid connection url")

// ErrMalformedDeadLetter is returned for dead-letter entries missing a required field.
var ErrMalformedDeadLetter = errors.New("uniqw: malformed dead-letter payload")
