package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"bloodlink/internal/storage"
	"bloodlink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/sirupsen/logrus"
)

const maxProfileImageBytes = 5 << 20

// donorView is a donor as listed in the directory.
type donorView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	BloodGroup   string  `json:"bloodGroup"`
	Location     string  `json:"location"`
	Availability string  `json:"availability"`
	Verified     bool    `json:"verified"`
	ProfileImage *string `json:"profileImage"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
}

func newDonorView(donor *types.Donor) *donorView {
	return &donorView{
		ID:           donor.ID,
		Name:         donor.Name,
		BloodGroup:   donor.BloodType.String(),
		Location:     donorLocation(donor, "N/A"),
		Availability: string(donor.AvailabilityStatus),
		Verified:     donor.IsVerified,
		ProfileImage: donor.ProfileImage,
		Phone:        donor.Phone,
		Email:        donor.Email,
	}
}

func (s *Service) handleListDonors(w http.ResponseWriter, r *http.Request) {
	var filter types.DonorListFilter
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	if filter.BloodType != "" {
		bloodType, err := types.ParseBloodType(string(filter.BloodType))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bloodType must be one of "+joinBloodTypes())
			return
		}
		filter.BloodType = bloodType
	}

	if filter.Availability != "" && !filter.Availability.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid availability")
		return
	}

	donors, err := s.donors.List(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("failed to list donors")
		writeError(w, http.StatusInternalServerError, "Failed to fetch donors")
		return
	}

	views := make([]*donorView, 0, len(donors))
	for _, donor := range donors {
		views = append(views, newDonorView(donor))
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: views})
}

func (s *Service) handleGetDonor(w http.ResponseWriter, r *http.Request) {
	donorID := flow.Param(r.Context(), "id")

	donor, err := s.donors.Donor(r.Context(), donorID)
	if err != nil {
		if errors.Is(err, types.ErrDonorNotFound) {
			writeError(w, http.StatusNotFound, "Donor not found")
			return
		}
		s.logger.WithError(err).WithField("donor_id", donorID).Error("failed to fetch donor")
		writeError(w, http.StatusInternalServerError, "Failed to fetch donor")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: newDonorView(donor)})
}

type pushTokenInput struct {
	FCMToken string `form:"fcmToken" json:"fcmToken"`
}

func (s *Service) handlePostPushToken(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input pushTokenInput
	if err := decodeInput(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	token := strings.TrimSpace(input.FCMToken)
	if token == "" {
		writeError(w, http.StatusBadRequest, "Token is required")
		return
	}

	err = s.donors.UpdatePushToken(r.Context(), identity.UserID, token)
	if err != nil {
		if errors.Is(err, types.ErrDonorNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.logger.WithError(err).WithField("user_id", identity.UserID).Error("failed to update push token")
		writeError(w, http.StatusInternalServerError, "Failed to update token")
		return
	}

	s.logger.WithField("user_id", identity.UserID).Info("push token updated")

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Token updated"})
}

func (s *Service) handlePutDonorPhoto(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	donorID := flow.Param(r.Context(), "id")
	if identity.UserID != donorID && identity.Role != RoleAdmin {
		writeError(w, http.StatusForbidden, "You do not have permission to update this profile")
		return
	}

	if s.images == nil || !s.images.Configured() {
		writeError(w, http.StatusServiceUnavailable, "Image storage is not configured")
		return
	}

	ctx := r.Context()

	donor, err := s.donors.Donor(ctx, donorID)
	if err != nil {
		if errors.Is(err, types.ErrDonorNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.logger.WithError(err).WithField("donor_id", donorID).Error("failed to load donor for photo update")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProfileImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxProfileImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}

	file, header, err := r.FormFile("profileImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, _ := io.ReadFull(file, sniff)
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			writeError(w, http.StatusBadRequest, "No image file provided")
			return
		}
	}

	entry := s.logger.WithFields(logrus.Fields{
		"donor_id":     donorID,
		"content_type": contentType,
	})

	_, imageURL, err := s.images.Upload(ctx, donorID, contentType, file)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			writeError(w, http.StatusBadRequest, "Profile image must be a JPEG, PNG or WebP file")
			return
		}
		entry.WithError(err).Error("failed to upload profile image")
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	if err := s.donors.UpdateProfileImage(ctx, donorID, imageURL); err != nil {
		entry.WithError(err).Error("failed to store profile image url")
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	if donor.ProfileImage != nil && *donor.ProfileImage != imageURL {
		if err := s.images.Delete(ctx, *donor.ProfileImage); err != nil {
			entry.WithError(err).Warn("failed to delete previous profile image")
		}
	}

	entry.Info("profile image updated")

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Profile image updated",
		Data:    map[string]string{"profileImage": imageURL},
	})
}
