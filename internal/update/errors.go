package update

import (
	"errors"

	apperrors "autoupdater/internal/errors"
)

// Error variables for specific error conditions.
var (
	ErrInvalidManifest  = errors.New("invalid manifest")
	ErrCheckFailed      = errors.New("failed to fetch update manifest")
	ErrUpdateInProgress = errors.New("update already in progress")
	ErrCancelled        = errors.New("update cancelled")
)

func transportError(msg string, err error) error {
	return apperrors.New(apperrors.CodeTransport, msg, err)
}

func installError(msg string, err error) error {
	return apperrors.New(apperrors.CodeInstall, msg, err)
}

// IsFormatError reports whether err came from parsing a version or manifest.
func IsFormatError(err error) bool {
	return apperrors.IsCode(err, apperrors.CodeFormat)
}

// IsTransportError reports whether err came from fetching data over the network.
func IsTransportError(err error) bool {
	return apperrors.IsCode(err, apperrors.CodeTransport)
}

// IsInstallError reports whether err came from launching the self-replace helper.
func IsInstallError(err error) bool {
	return apperrors.IsCode(err, apperrors.CodeInstall)
}
