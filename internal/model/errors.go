package model

import "errors"

// Application-wide standard errors
var (
	// Common resource errors
	ErrNotFound      = errors.New("resource not found")
	ErrStoryNotFound = errors.New("story not found")

	// Owner & credits errors
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInsufficientCredits = errors.New("insufficient credits for this story")

	// Generation pipeline errors
	ErrScriptGeneration     = errors.New("script generation returned no parseable payload")
	ErrGenerationInProgress = errors.New("generation is already in progress for this owner")
	ErrStoryAlreadyComplete = errors.New("story is already complete")

	// Asset errors
	ErrAssetDecode       = errors.New("asset decode failed")
	ErrStoragePermission = errors.New("storage permission denied")

	// Token errors
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")

	// General request/server errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
