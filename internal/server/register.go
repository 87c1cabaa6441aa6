package server

import (
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sirupsen/logrus"
)

type registerDonorInput struct {
	Name                    string         `form:"name" json:"name"`
	Email                   string         `form:"email" json:"email"`
	Phone                   string         `form:"phone" json:"phone"`
	Password                string         `form:"password" json:"password"`
	ConfirmPassword         string         `form:"confirmPassword" json:"confirmPassword"`
	BloodType               string         `form:"bloodType" json:"bloodType"`
	Address                 string         `form:"address" json:"address"`
	City                    string         `form:"city" json:"city"`
	State                   string         `form:"state" json:"state"`
	Geolocation             types.GeoPoint `form:"geolocation" json:"geolocation"`
	AvailabilityStatus      string         `form:"availabilityStatus" json:"availabilityStatus"`
	PreferredDistanceLimit  int            `form:"preferredDistanceLimit" json:"preferredDistanceLimit"`
	NotifyForNearbyRequests bool           `form:"notifyForNearbyRequests" json:"notifyForNearbyRequests"`
	FCMToken                string         `form:"fcmToken" json:"fcmToken"`
}

type fieldErrorResponse struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// handlePostRegisterDonor signs the donor up with Cognito and stores an
// unverified donor profile keyed by the Cognito user sub.
func (s *Service) handlePostRegisterDonor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input registerDonorInput
	if err := decodeInput(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid registration payload")
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)

	fieldErrs := validateRegisterInput(&input)
	if len(fieldErrs) > 0 {
		s.logger.WithField("field_errors", fieldErrs).Info("validation errors during donor registration")
		writeJSON(w, http.StatusBadRequest, fieldErrorResponse{Message: "Please fix the highlighted fields.", FieldErrors: fieldErrs})
		return
	}

	attributes := []ctypes.AttributeType{
		{Name: aws.String("email"), Value: aws.String(input.Email)},
		{Name: aws.String("name"), Value: aws.String(input.Name)},
	}
	if strings.HasPrefix(s.config.CognitoRoleClaim, "custom:") {
		attributes = append(attributes, ctypes.AttributeType{Name: aws.String(s.config.CognitoRoleClaim), Value: aws.String(RoleDonor)})
	}

	out, err := s.cognitoClient.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:       aws.String(s.config.CognitoClientID),
		Username:       aws.String(input.Email),
		Password:       aws.String(input.Password),
		UserAttributes: attributes,
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to signup donor")

		status, message, fieldErrs := s.mapCognitoSignUpError(err)
		writeJSON(w, status, fieldErrorResponse{Message: message, FieldErrors: fieldErrs})
		return
	}

	bloodType, _ := types.ParseBloodType(input.BloodType)

	donor := &types.Donor{
		ID:                      aws.ToString(out.UserSub),
		Name:                    input.Name,
		Email:                   utils.StringPtr(input.Email),
		Phone:                   utils.StringPtr(input.Phone),
		BloodType:               bloodType,
		AvailabilityStatus:      types.AvailabilityAvailable,
		NotifyForNearbyRequests: input.NotifyForNearbyRequests,
		PreferredDistanceLimit:  utils.IntPtr(types.DefaultDistanceLimitKm),
		Address:                 optionalString(input.Address),
		City:                    optionalString(input.City),
		State:                   optionalString(input.State),
		PushToken:               optionalString(input.FCMToken),
		GeoPoint:                input.Geolocation,
	}

	if input.AvailabilityStatus == string(types.AvailabilityUnavailable) {
		donor.AvailabilityStatus = types.AvailabilityUnavailable
	}
	if input.PreferredDistanceLimit > 0 {
		donor.PreferredDistanceLimit = utils.IntPtr(input.PreferredDistanceLimit)
	}

	if err := s.donors.Upsert(ctx, donor); err != nil {
		s.logger.WithError(err).WithField("donor_id", donor.ID).Error("failed to store registered donor")
		writeError(w, http.StatusInternalServerError, "Failed to register donor")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"donor_id":   donor.ID,
		"blood_type": donor.BloodType,
	}).Info("donor registered")

	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: "Donor registered successfully. Check your email for a confirmation code.",
		Data:    map[string]any{"donor": donor},
	})
}

type confirmInput struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"code" json:"code"`
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	var input confirmInput
	if err := decodeInput(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid confirmation payload")
		return
	}

	_, err := s.cognitoClient.ConfirmSignUp(r.Context(), &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(s.config.CognitoClientID),
		Username:         aws.String(strings.TrimSpace(input.Email)),
		ConfirmationCode: aws.String(strings.TrimSpace(input.Code)),
	})
	if err != nil {
		s.logger.WithError(err).Error("failed to confirm user signup")

		var codeMismatch *ctypes.CodeMismatchException
		if errors.As(err, &codeMismatch) {
			writeError(w, http.StatusBadRequest, "Invalid confirmation code. Please check the code and try again.")
			return
		}

		writeError(w, http.StatusBadRequest, "Unable to confirm account. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Account confirmed. You can now log in."})
}

type verifyInput struct {
	Verified bool `form:"verified" json:"verified"`
}

func (s *Service) handlePutDonorVerify(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil || identity.Role != RoleAdmin {
		writeError(w, http.StatusForbidden, "Only admins can verify donors")
		return
	}

	donorID := flow.Param(r.Context(), "id")

	var input verifyInput
	if err := decodeInput(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	donor, err := s.donors.SetVerified(r.Context(), donorID, input.Verified)
	if err != nil {
		if errors.Is(err, types.ErrDonorNotFound) {
			writeError(w, http.StatusNotFound, "Donor not found")
			return
		}
		s.logger.WithError(err).WithField("donor_id", donorID).Error("failed to update donor verification")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	message := "Donor unverified successfully"
	if input.Verified {
		message = "Donor verified successfully"
	}

	s.logger.WithFields(logrus.Fields{
		"donor_id": donorID,
		"verified": input.Verified,
		"admin_id": identity.UserID,
	}).Info("donor verification updated")

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: message, Data: map[string]any{"donor": donor}})
}

var (
	hasUpperReg  = regexp.MustCompile(`[A-Z]`)
	hasLowerReg  = regexp.MustCompile(`[a-z]`)
	hasDigitReg  = regexp.MustCompile(`[0-9]`)
	hasSymbolReg = regexp.MustCompile(`[^A-Za-z0-9]`)
)

func validateRegisterInput(input *registerDonorInput) map[string]string {
	errs := map[string]string{}

	if input.Name == "" {
		errs["name"] = "Name is required."
	}

	if input.Phone == "" {
		errs["phone"] = "Phone is required."
	}

	if _, err := types.ParseBloodType(input.BloodType); err != nil {
		errs["bloodType"] = "Select a valid blood type."
	}

	if input.Email == "" {
		errs["email"] = "Email is required."
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		errs["email"] = "Enter a valid email address."
	}

	if input.Password != input.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match."
	}

	password := input.Password
	hasUpper := hasUpperReg.MatchString(password)
	hasLower := hasLowerReg.MatchString(password)
	hasDigit := hasDigitReg.MatchString(password)
	hasSymbol := hasSymbolReg.MatchString(password)

	if len(password) < 12 || !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		errs["password"] = "Password must be at least 12 characters and include uppercase, lowercase, number, and symbol."
	}

	if input.PreferredDistanceLimit < 0 {
		errs["preferredDistanceLimit"] = "Distance limit must be positive."
	}

	return errs
}

func (s *Service) mapCognitoSignUpError(err error) (int, string, map[string]string) {
	fieldErrs := map[string]string{}

	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		fieldErrs["password"] = "Password must include uppercase, lowercase, number, and symbol (min 12)."
		return http.StatusBadRequest, "Please fix the highlighted fields.", fieldErrs
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		fieldErrs["email"] = "An account with this email already exists."
		return http.StatusConflict, "Try logging in instead.", fieldErrs
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return http.StatusBadRequest, "Some details are invalid. Please review and try again.", fieldErrs
	}

	s.logger.WithError(err).Error("unhandled cognito signup error")

	return http.StatusInternalServerError, "Unable to create account right now. Please try again.", fieldErrs
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
