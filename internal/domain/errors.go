package domain

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrNotOwner           = errors.New("file does not belong to caller")
	ErrNoFile             = errors.New("no file provided")
	ErrModelNotFound      = errors.New("model not found")
	ErrProviderNotReady   = errors.New("provider is not configured")
	ErrEmptyResponse      = errors.New("empty response from model")
	ErrRoundLimit         = errors.New("tool-calling round limit reached")
	ErrLinkExpired        = errors.New("signed link expired or invalid")
)
