package jam

import (
	"errors"

	"github.com/MrEthical07/jam/errs"
	"github.com/MrEthical07/jam/oauth2"
)

var (
	// ErrModuleNotConfigured is returned when a method needs a module whose
	// Config section was nil.
	ErrModuleNotConfigured = errors.New("module not configured")
	// ErrProviderNotConfigured is returned by OAuth2 for unknown provider names.
	ErrProviderNotConfigured = errors.New("oauth2 provider not configured")
	// ErrOTPInvalid is returned by OTPVerify when the code does not match.
	ErrOTPInvalid = errors.New("invalid otp code")
	// ErrOTPRateLimited is returned by OTPVerifySubject once the subject has
	// used its attempt budget for the current window.
	ErrOTPRateLimited = errors.New("otp attempts exceeded")
	// ErrBuilderUsed is returned by Build on a second call.
	ErrBuilderUsed = errors.New("builder already used")
)

// Error kinds shared with the codec packages, re-exported for callers that
// only import jam.
var (
	ErrConfiguration     = errs.ErrConfiguration
	ErrEncoding          = errs.ErrEncoding
	ErrFormat            = errs.ErrFormat
	ErrVerification      = errs.ErrVerification
	ErrAlgorithmMismatch = errs.ErrAlgorithmMismatch
	ErrCapability        = errs.ErrCapability
	ErrListed            = errs.ErrListed
	ErrExpired           = errs.ErrExpired
	ErrOAuth2Exchange    = oauth2.ErrExchange
)
