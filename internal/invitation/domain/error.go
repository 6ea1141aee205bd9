package domain

import "errors"

var (
	ErrNotFound            = errors.New("invite_not_found")
	ErrExpired             = errors.New("invite_expired")
	ErrAlreadyAccepted     = errors.New("invite_already_accepted")
	ErrRevoked             = errors.New("invite_revoked")
	ErrEmailMismatch       = errors.New("invite_email_mismatch")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidUser         = errors.New("invalid_user")
)
