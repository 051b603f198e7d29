package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"chainalert/internal/directory"
	dErrors "chainalert/pkg/domain-errors"
	"chainalert/pkg/testutil"
)

type stubService struct {
	enrollIn  directory.EnrollInput
	token     string
	enrollErr error
	pushToken string
	pushErr   error
}

func (s *stubService) Enroll(_ context.Context, in directory.EnrollInput) (string, error) {
	s.enrollIn = in
	return s.token, s.enrollErr
}

func (s *stubService) UpdatePushToken(_ context.Context, pushToken string) error {
	s.pushToken = pushToken
	return s.pushErr
}

type DeviceHandlerSuite struct {
	suite.Suite
	svc     *stubService
	handler *Handler
}

func TestDeviceHandlerSuite(t *testing.T) {
	suite.Run(t, new(DeviceHandlerSuite))
}

func (s *DeviceHandlerSuite) SetupTest() {
	s.svc = &stubService{}
	s.handler = New(s.svc, slog.New(slog.DiscardHandler), nil, nil)
}

func (s *DeviceHandlerSuite) TestHandleEnroll() {
	s.svc.token = "signed.jwt.token"

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/devices", enrollRequest{
		DeviceID:    "4f2cdbb1-9c41-4c8e-8727-d50e81ba6d7f",
		DisplayName: "Alice",
		PushToken:   "fcm-token",
	})
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleEnroll), req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[enrollResponse](s.T(), rr)
	s.Equal("signed.jwt.token", resp.AccessToken)
	s.Equal("Alice", s.svc.enrollIn.DisplayName)
	s.Equal("fcm-token", s.svc.enrollIn.PushToken)
}

func (s *DeviceHandlerSuite) TestHandleEnrollInvalid() {
	s.svc.enrollErr = dErrors.New(dErrors.CodeInvalidInput, "deviceId must be at least 16 characters")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/devices", enrollRequest{DeviceID: "short"})
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleEnroll), req)

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidInput))
}

func (s *DeviceHandlerSuite) TestHandleUpdatePushToken() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/v1/devices/push-token", pushTokenRequest{PushToken: "fcm-2"})
	req = testutil.WithAuth(req, "device-1", "Alice")
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleUpdatePushToken), req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Equal("fcm-2", s.svc.pushToken)
}
