package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"bloodlink/internal/metrics"
	"bloodlink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type RequestStore interface {
	Create(ctx context.Context, request *types.BloodRequest) error
	Request(ctx context.Context, requestID string) (*types.BloodRequest, error)
	List(ctx context.Context, filter types.RequestFilter) ([]*types.BloodRequest, error)
	UpdateStatus(ctx context.Context, requestID, creatorID string, status types.RequestStatus) (*types.BloodRequest, error)
}

type DonorStore interface {
	Donor(ctx context.Context, donorID string) (*types.Donor, error)
	List(ctx context.Context, filter types.DonorListFilter) ([]*types.Donor, error)
	UpdatePushToken(ctx context.Context, donorID, token string) error
	UpdateProfileImage(ctx context.Context, donorID, imageURL string) error
	Upsert(ctx context.Context, donor *types.Donor) error
	SetVerified(ctx context.Context, donorID string, verified bool) (*types.Donor, error)
}

type MatchRunner interface {
	Run(ctx context.Context, req *types.BloodRequest) (*types.MatchResult, error)
}

type ImageStore interface {
	Configured() bool
	Upload(ctx context.Context, donorID, contentType string, body io.Reader) (key, url string, err error)
	Delete(ctx context.Context, imageURL string) error
}

type Authenticator interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
}

type Service struct {
	logger  *logrus.Logger
	config  *types.Config
	metrics *metrics.Metrics

	requests RequestStore
	donors   DonorStore
	matcher  MatchRunner
	images   ImageStore

	cognitoClient Authenticator
	verifier      TokenVerifier
	cookie        *securecookie.SecureCookie

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	requests RequestStore,
	donors DonorStore,
	matcher MatchRunner,
	images ImageStore,
	cognitoClient Authenticator,
	verifier TokenVerifier,
	m *metrics.Metrics,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	s := &Service{
		logger:  logger,
		config:  config,
		metrics: m,

		requests: requests,
		donors:   donors,
		matcher:  matcher,
		images:   images,

		cognitoClient: cognitoClient,
		verifier:      verifier,
		cookie:        securecookie.New(hashKey, blockKey),

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)

	r.HandleFunc("/register/donor", s.handlePostRegisterDonor, http.MethodPost)
	r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)

	r.HandleFunc("/requests", s.handleListRequests, http.MethodGet)
	r.HandleFunc("/requests/:id", s.handleGetRequest, http.MethodGet)
	r.HandleFunc("/donors", s.handleListDonors, http.MethodGet)
	r.HandleFunc("/donors/:id", s.handleGetDonor, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/requests", s.handlePublishRequest, http.MethodPost)
		r.HandleFunc("/requests/:id/status", s.handleUpdateRequestStatus, http.MethodPatch)
		r.HandleFunc("/me/requests", s.handleListMyRequests, http.MethodGet)
		r.HandleFunc("/me/push-token", s.handlePostPushToken, http.MethodPost)
		r.HandleFunc("/donors/:id/photo", s.handlePutDonorPhoto, http.MethodPut)
		r.HandleFunc("/donors/:id/verify", s.handlePutDonorVerify, http.MethodPut)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) identityFromContext(ctx context.Context) (*Identity, error) {
	identity, ok := ctx.Value(contextKeyIdentity).(*Identity)
	if !ok || identity == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}
