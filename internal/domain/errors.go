package domain

import (
	"net/http"

	apperrors "github.com/Muhsiinn/JonasV2/pkg/errors"
)

// Typed errors surfaced by the auth core. Registration conflicts map to 400
// (the API treats them as bad input, not resource conflicts); everything on
// the credential/token path collapses to 401 so responses carry no signal
// about which check failed.
var (
	ErrEmailAlreadyRegistered = &apperrors.AppError{
		Code:    "EMAIL_ALREADY_REGISTERED",
		Message: "email already registered",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrAlreadyExists,
	}

	ErrUsernameTaken = &apperrors.AppError{
		Code:    "USERNAME_TAKEN",
		Message: "username already taken",
		Status:  http.StatusBadRequest,
		Err:     apperrors.ErrAlreadyExists,
	}

	ErrInvalidCredentials = &apperrors.AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: "incorrect email or password",
		Status:  http.StatusUnauthorized,
		Err:     apperrors.ErrUnauthorized,
	}

	ErrInvalidToken = &apperrors.AppError{
		Code:    "INVALID_TOKEN",
		Message: "invalid or expired token",
		Status:  http.StatusUnauthorized,
		Err:     apperrors.ErrUnauthorized,
	}

	ErrWrongTokenType = &apperrors.AppError{
		Code:    "WRONG_TOKEN_TYPE",
		Message: "invalid token type",
		Status:  http.StatusUnauthorized,
		Err:     apperrors.ErrUnauthorized,
	}

	ErrMissingSubject = &apperrors.AppError{
		Code:    "MISSING_SUBJECT",
		Message: "invalid token payload",
		Status:  http.StatusUnauthorized,
		Err:     apperrors.ErrUnauthorized,
	}

	ErrUserNotFound = &apperrors.AppError{
		Code:    "USER_NOT_FOUND",
		Message: "user not found or inactive",
		Status:  http.StatusUnauthorized,
		Err:     apperrors.ErrUnauthorized,
	}
)
