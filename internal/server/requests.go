package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/sirupsen/logrus"
)

type publishInput struct {
	PatientName   string         `form:"patientName" json:"patientName"`
	BloodType     string         `form:"bloodType" json:"bloodType"`
	Units         int            `form:"units" json:"units"`
	Urgency       string         `form:"urgency" json:"urgency"`
	HospitalName  string         `form:"hospitalName" json:"hospitalName"`
	Location      string         `form:"location" json:"location"`
	Geolocation   types.GeoPoint `form:"geolocation" json:"geolocation"`
	RequesterName string         `form:"requesterName" json:"requesterName"`
	Phone         string         `form:"phone" json:"phone"`
	Notes         string         `form:"notes" json:"notes"`
}

// toRequest validates the input and returns the request to persist, or a
// message describing the first problem found.
func (in *publishInput) toRequest(creatorID string) (*types.BloodRequest, string) {
	bloodType, err := types.ParseBloodType(in.BloodType)
	if err != nil {
		return nil, "bloodType must be one of " + joinBloodTypes()
	}

	if in.Units < 1 {
		return nil, "units must be at least 1"
	}

	required := []struct{ name, value string }{
		{"patientName", in.PatientName},
		{"urgency", in.Urgency},
		{"hospitalName", in.HospitalName},
		{"location", in.Location},
		{"requesterName", in.RequesterName},
		{"phone", in.Phone},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return nil, field.name + " is required"
		}
	}

	request := &types.BloodRequest{
		PatientName:   strings.TrimSpace(in.PatientName),
		BloodType:     bloodType,
		Units:         in.Units,
		Urgency:       strings.TrimSpace(in.Urgency),
		HospitalName:  strings.TrimSpace(in.HospitalName),
		Location:      strings.TrimSpace(in.Location),
		RequesterName: strings.TrimSpace(in.RequesterName),
		Phone:         strings.TrimSpace(in.Phone),
		CreatorID:     creatorID,
		GeoPoint:      in.Geolocation,
	}

	if notes := strings.TrimSpace(in.Notes); notes != "" {
		request.Notes = utils.StringPtr(notes)
	}

	return request, ""
}

func joinBloodTypes() string {
	all := types.AllBloodTypes()
	names := make([]string, 0, len(all))
	for _, t := range all {
		names = append(names, t.String())
	}
	return strings.Join(names, ", ")
}

// bestMatchView is the closest matched donor as shown to the requester.
type bestMatchView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	BloodGroup   string  `json:"bloodGroup"`
	Location     string  `json:"location"`
	Distance     string  `json:"distance"`
	Verified     bool    `json:"verified"`
	Availability string  `json:"availability"`
	ProfileImage *string `json:"profileImage"`
}

func newBestMatchView(match *types.Match) *bestMatchView {
	if match == nil || match.Donor == nil {
		return nil
	}

	donor := match.Donor
	return &bestMatchView{
		ID:           donor.ID,
		Name:         donor.Name,
		BloodGroup:   donor.BloodType.String(),
		Location:     donorLocation(donor, "Matching Location"),
		Distance:     match.Distance.String(),
		Verified:     donor.IsVerified,
		Availability: string(donor.AvailabilityStatus),
		ProfileImage: donor.ProfileImage,
	}
}

func donorLocation(donor *types.Donor, fallback string) string {
	var parts []string
	for _, p := range []*string{donor.City, donor.State} {
		if v := strings.TrimSpace(utils.PtrString(p)); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}

	if address := strings.TrimSpace(utils.PtrString(donor.Address)); address != "" {
		return address
	}

	return fallback
}

func (s *Service) handlePublishRequest(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input publishInput
	if err := decodeInput(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	request, problem := input.toRequest(identity.UserID)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	if err := s.requests.Create(r.Context(), request); err != nil {
		s.logger.WithError(err).WithField("creator_id", identity.UserID).Error("failed to create request")
		writeError(w, http.StatusInternalServerError, "Failed to publish request")
		return
	}

	if s.metrics != nil {
		s.metrics.RequestsCreated.Inc()
	}

	entry := s.logger.WithFields(logrus.Fields{
		"request_id": request.ID,
		"blood_type": request.BloodType,
		"creator_id": identity.UserID,
	})
	entry.Info("request published")

	// the request is already stored; a client disconnect must not cut the
	// notification run short
	matchCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), time.Duration(s.config.MatchTimeoutSec)*time.Second)
	defer cancel()

	var bestMatch *bestMatchView
	result, err := s.matcher.Run(matchCtx, request)
	if err != nil {
		entry.WithError(err).Error("matching failed")
		result = nil
	} else {
		bestMatch = newBestMatchView(result.BestMatch)
	}

	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: publishMessage(result),
		Data: map[string]any{
			"request":   request,
			"bestMatch": bestMatch,
		},
	})
}

// publishMessage describes what happened after the request was stored.
func publishMessage(result *types.MatchResult) string {
	if result == nil || len(result.Matches) == 0 {
		return "Request published, no matching donors found yet"
	}

	for _, outcome := range result.Outcomes {
		if outcome.Success {
			return "Request published and donors notified successfully"
		}
	}

	return "Request published, matching donors found but none could be notified"
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := flow.Param(r.Context(), "id")

	request, err := s.requests.Request(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, types.ErrRequestNotFound) {
			writeError(w, http.StatusNotFound, "Request not found")
			return
		}
		s.logger.WithError(err).WithField("request_id", requestID).Error("failed to fetch request")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]any{"request": request}})
}

func (s *Service) handleListRequests(w http.ResponseWriter, r *http.Request) {
	filter, problem := s.decodeRequestFilter(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	if filter.Status == "" {
		filter.Statuses = types.OpenRequestStatuses()
	}

	s.listRequests(w, r, filter)
}

func (s *Service) handleListMyRequests(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filter, problem := s.decodeRequestFilter(r)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}
	filter.CreatorID = identity.UserID

	s.listRequests(w, r, filter)
}

func (s *Service) decodeRequestFilter(r *http.Request) (types.RequestFilter, string) {
	var filter types.RequestFilter
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		return filter, "Invalid query parameters"
	}

	if filter.BloodType != "" {
		bloodType, err := types.ParseBloodType(string(filter.BloodType))
		if err != nil {
			return filter, "bloodType must be one of " + joinBloodTypes()
		}
		filter.BloodType = bloodType
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return filter, "Invalid status"
	}

	return filter, ""
}

func (s *Service) listRequests(w http.ResponseWriter, r *http.Request, filter types.RequestFilter) {
	requests, err := s.requests.List(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("failed to list requests")
		writeError(w, http.StatusInternalServerError, "Failed to fetch requests")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: requests})
}

type statusInput struct {
	Status string `form:"status" json:"status"`
}

func (s *Service) handleUpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	requestID := flow.Param(r.Context(), "id")

	var input statusInput
	if err := decodeInput(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	status := types.RequestStatus(strings.TrimSpace(input.Status))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	request, err := s.requests.UpdateStatus(r.Context(), requestID, identity.UserID, status)
	if err != nil {
		if errors.Is(err, types.ErrRequestNotFound) {
			writeError(w, http.StatusNotFound, "Request not found or unauthorized")
			return
		}
		s.logger.WithError(err).WithField("request_id", requestID).Error("failed to update request status")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"status":     status,
	}).Info("request status updated")

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Status updated successfully",
		Data:    map[string]any{"request": request},
	})
}
