package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/storage"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtr(v int) *int {
	return &v
}

func populateUserDetailsFunc(user *models.User, uploader storage.FileUploader) {
	if user == nil {
		return
	}
	user.PasswordHash = ""
	if user.AvatarKey != nil && *user.AvatarKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*user.AvatarKey)
		if url != "" {
			user.AvatarURL = &url
		}
	}
}

func populateTournamentLogoURLFunc(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament != nil && tournament.LogoKey != nil && *tournament.LogoKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*tournament.LogoKey)
		if url != "" {
			tournament.LogoURL = &url
		}
	}
}

func populateRankRequestURLFunc(req *models.RankRequest, uploader storage.FileUploader) {
	if req != nil && req.EvidenceKey != "" && uploader != nil {
		url := uploader.GetPublicURL(req.EvidenceKey)
		if url != "" {
			req.EvidenceURL = &url
		}
	}
}

// MaxUploadSize bounds avatar, logo and evidence files.
const MaxUploadSize = 5 << 20

// GetExtensionFromContentType maps the image types we store to a file
// extension.
func GetExtensionFromContentType(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedFileType, contentType)
	}
}

// FileInput is an uploaded file as handed over by the HTTP layer.
type FileInput struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

func (f *FileInput) validate() (string, error) {
	if f == nil || f.Reader == nil || f.Size == 0 {
		return "", fmt.Errorf("%w: empty file", ErrValidationFailed)
	}
	if f.Size > MaxUploadSize {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, f.Size, MaxUploadSize)
	}
	return GetExtensionFromContentType(f.ContentType)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func canManageTournament(actor Actor, t *models.Tournament) bool {
	return actor.IsAdmin() || (actor.Role == models.RoleOrganizer && t.OrganizerID == actor.UserID)
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentUpcoming:     {models.TournamentRegistration, models.TournamentCancelled},
		models.TournamentRegistration: {models.TournamentOngoing, models.TournamentCancelled},
		models.TournamentOngoing:      {models.TournamentCompleted, models.TournamentCancelled},
		models.TournamentCompleted:    {},
		models.TournamentCancelled:    {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}
