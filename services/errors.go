package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed    = errors.New("validation failed")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrInvalidEmail        = errors.New("email address is invalid")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRank         = errors.New("unknown rank")
	ErrRankRequired        = errors.New("player has no verified rank")
	ErrRankGapTooLarge     = errors.New("rank gap is too large for a challenge")
	ErrInvalidStake        = errors.New("stake amount is not one of the allowed tiers")
	ErrInvalidScore        = errors.New("scores do not describe a finished race")
	ErrChallengeSelf       = errors.New("cannot challenge yourself")
	ErrChallengeNotPending = errors.New("challenge is no longer pending")
	ErrChallengeExpired    = errors.New("challenge has expired")
	ErrChallengeNotActive  = errors.New("challenge is not accepted")
	ErrAppealTooShort      = errors.New("appeal text must be at least 50 characters")
	ErrPenaltyNotAppealed  = errors.New("penalty has no pending appeal")
	ErrPenaltyNotActive    = errors.New("penalty can no longer be appealed")
	ErrEvidenceRequired    = errors.New("rank evidence file is required")
	ErrFileTooLarge        = errors.New("file is too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrRequestNotPending   = errors.New("rank request was already reviewed")

	// Tournaments
	ErrTournamentInvalidSize             = errors.New("bracket size must be 4, 8, 16 or 32")
	ErrTournamentInvalidDateRange        = errors.New("registration must end before the tournament starts")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrRegistrationNotOpen               = errors.New("tournament registration is not open")
	ErrTournamentFull                    = errors.New("tournament registration is full")
	ErrBracketNotFull                    = errors.New("bracket can only be generated once every slot has a registered player")
	ErrBracketAlreadyGenerated           = errors.New("bracket already generated")
	ErrMatchNotReady                     = errors.New("match does not have both players yet")
	ErrMatchAlreadyCompleted             = errors.New("match is already completed")
	ErrInvalidMatchWinner                = errors.New("winner must be one of the match players")

	// Conflicts
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrRegistrationConflict   = errors.New("player is already registered for this tournament")
	ErrTournamentSlugConflict = errors.New("tournament slug already exists")
	ErrRankRequestPending     = errors.New("a rank request is already pending")
	ErrConcurrentUpdate       = errors.New("resource was modified concurrently")

	// Authentication and authorization
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrUserBanned           = errors.New("user is banned")

	// Entities
	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrChallengeNotFound   = errors.New("challenge not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrPenaltyNotFound     = errors.New("penalty not found")
	ErrRankRequestNotFound = errors.New("rank request not found")
	ErrRegistrationMissing = errors.New("player is not registered for this tournament")
)
