package server

import (
	"net/http"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

func validRegistration() map[string]any {
	return map[string]any{
		"name":                    "Anitha Krishnan",
		"email":                   "anitha@example.com",
		"phone":                   "+91 98400 00000",
		"password":                "Str0ng!Passw0rd",
		"confirmPassword":         "Str0ng!Passw0rd",
		"bloodType":               "o-",
		"city":                    "Chengalpattu",
		"state":                   "Tamil Nadu",
		"geolocation":             map[string]float64{"lat": 12.6165, "lng": 79.9747},
		"notifyForNearbyRequests": true,
	}
}

func (s *ServerSuite) TestRegisterDonor() {
	rec := s.do(http.MethodPost, "/register/donor", "", validRegistration())
	s.Require().Equal(http.StatusCreated, rec.Code)

	s.Require().Len(s.cognito.signUps, 1)
	signUp := s.cognito.signUps[0]
	s.Equal("anitha@example.com", aws.ToString(signUp.Username))

	attrs := make(map[string]string)
	for _, a := range signUp.UserAttributes {
		attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	s.Equal(RoleDonor, attrs["custom:role"])

	donor := s.donors.donors["sub-new-donor"]
	s.Require().NotNil(donor)
	s.Equal(types.BloodTypeONeg, donor.BloodType)
	s.False(donor.IsVerified)
	s.True(donor.NotifyForNearbyRequests)
	s.Equal(types.AvailabilityAvailable, donor.AvailabilityStatus)
	s.Equal(types.DefaultDistanceLimitKm, utils.PtrInt(donor.PreferredDistanceLimit))
	s.True(donor.GeoPoint.Valid())
	s.Nil(donor.PushToken)
}

func (s *ServerSuite) TestRegisterDonorValidation() {
	body := validRegistration()
	body["bloodType"] = "X"
	body["confirmPassword"] = "different"
	body["email"] = "not-an-email"

	rec := s.do(http.MethodPost, "/register/donor", "", body)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	fieldErrors := s.decode(rec)["fieldErrors"].(map[string]any)
	s.Contains(fieldErrors, "bloodType")
	s.Contains(fieldErrors, "confirmPassword")
	s.Contains(fieldErrors, "email")
	s.Empty(s.cognito.signUps)
}

func (s *ServerSuite) TestRegisterDonorExistingAccount() {
	s.cognito.signUpErr = &ctypes.UsernameExistsException{Message: aws.String("exists")}

	rec := s.do(http.MethodPost, "/register/donor", "", validRegistration())
	s.Equal(http.StatusConflict, rec.Code)
	s.NotContains(s.donors.donors, "sub-new-donor")
}

func (s *ServerSuite) TestRegisterConfirm() {
	rec := s.do(http.MethodPost, "/register/confirm", "", map[string]string{"email": "anitha@example.com", "code": "123456"})
	s.Equal(http.StatusOK, rec.Code)

	s.cognito.confirmErr = &ctypes.CodeMismatchException{Message: aws.String("mismatch")}
	rec = s.do(http.MethodPost, "/register/confirm", "", map[string]string{"email": "anitha@example.com", "code": "000000"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestVerifyDonorAdminOnly() {
	rec := s.do(http.MethodPut, "/donors/donor-2/verify", "token-donor-1", map[string]bool{"verified": true})
	s.Equal(http.StatusForbidden, rec.Code)
	s.False(s.donors.donors["donor-2"].IsVerified)

	rec = s.do(http.MethodPut, "/donors/donor-2/verify", "token-admin", map[string]bool{"verified": true})
	s.Equal(http.StatusOK, rec.Code)
	s.True(s.donors.donors["donor-2"].IsVerified)

	rec = s.do(http.MethodPut, "/donors/nobody/verify", "token-admin", map[string]bool{"verified": true})
	s.Equal(http.StatusNotFound, rec.Code)
}
