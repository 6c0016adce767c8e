// Package mocks holds gomock doubles for the host contracts in package
// tokengate (CredentialValidator, IdentityStore, SessionBridge,
// ActivityLogger). The file follows mockgen's layout; running
//
//	go generate ./...
//
// from the module root replaces it with mockgen's output.
package mocks

import (
	context "context"
	reflect "reflect"

	tokengate "github.com/chimerakang/tokengate-go"
	gomock "go.uber.org/mock/gomock"
)

// MockCredentialValidator is a mock of CredentialValidator interface.
type MockCredentialValidator struct {
	ctrl     *gomock.Controller
	recorder *MockCredentialValidatorMockRecorder
	isgomock struct{}
}

// MockCredentialValidatorMockRecorder is the mock recorder for MockCredentialValidator.
type MockCredentialValidatorMockRecorder struct {
	mock *MockCredentialValidator
}

// NewMockCredentialValidator creates a new mock instance.
func NewMockCredentialValidator(ctrl *gomock.Controller) *MockCredentialValidator {
	mock := &MockCredentialValidator{ctrl: ctrl}
	mock.recorder = &MockCredentialValidatorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockCredentialValidator) EXPECT() *MockCredentialValidatorMockRecorder {
	return m.recorder
}

// ValidateCredentials mocks base method.
func (m *MockCredentialValidator) ValidateCredentials(ctx context.Context, username, password string) (tokengate.LoginOutcome, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ValidateCredentials", ctx, username, password)
	ret0, _ := ret[0].(tokengate.LoginOutcome)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ValidateCredentials indicates an expected call of ValidateCredentials.
func (mr *MockCredentialValidatorMockRecorder) ValidateCredentials(ctx, username, password any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ValidateCredentials", reflect.TypeOf((*MockCredentialValidator)(nil).ValidateCredentials), ctx, username, password)
}

// MockIdentityStore is a mock of IdentityStore interface.
type MockIdentityStore struct {
	ctrl     *gomock.Controller
	recorder *MockIdentityStoreMockRecorder
	isgomock struct{}
}

// MockIdentityStoreMockRecorder is the mock recorder for MockIdentityStore.
type MockIdentityStoreMockRecorder struct {
	mock *MockIdentityStore
}

// NewMockIdentityStore creates a new mock instance.
func NewMockIdentityStore(ctrl *gomock.Controller) *MockIdentityStore {
	mock := &MockIdentityStore{ctrl: ctrl}
	mock.recorder = &MockIdentityStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockIdentityStore) EXPECT() *MockIdentityStoreMockRecorder {
	return m.recorder
}

// GetByEmail mocks base method.
func (m *MockIdentityStore) GetByEmail(ctx context.Context, email string) (*tokengate.Identity, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByEmail", ctx, email)
	ret0, _ := ret[0].(*tokengate.Identity)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByEmail indicates an expected call of GetByEmail.
func (mr *MockIdentityStoreMockRecorder) GetByEmail(ctx, email any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByEmail", reflect.TypeOf((*MockIdentityStore)(nil).GetByEmail), ctx, email)
}

// GetByID mocks base method.
func (m *MockIdentityStore) GetByID(ctx context.Context, id int64) (*tokengate.Identity, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*tokengate.Identity)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockIdentityStoreMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockIdentityStore)(nil).GetByID), ctx, id)
}

// GetByUsername mocks base method.
func (m *MockIdentityStore) GetByUsername(ctx context.Context, username string) (*tokengate.Identity, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByUsername", ctx, username)
	ret0, _ := ret[0].(*tokengate.Identity)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByUsername indicates an expected call of GetByUsername.
func (mr *MockIdentityStoreMockRecorder) GetByUsername(ctx, username any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByUsername", reflect.TypeOf((*MockIdentityStore)(nil).GetByUsername), ctx, username)
}

// MockSessionBridge is a mock of SessionBridge interface.
type MockSessionBridge struct {
	ctrl     *gomock.Controller
	recorder *MockSessionBridgeMockRecorder
	isgomock struct{}
}

// MockSessionBridgeMockRecorder is the mock recorder for MockSessionBridge.
type MockSessionBridgeMockRecorder struct {
	mock *MockSessionBridge
}

// NewMockSessionBridge creates a new mock instance.
func NewMockSessionBridge(ctrl *gomock.Controller) *MockSessionBridge {
	mock := &MockSessionBridge{ctrl: ctrl}
	mock.recorder = &MockSessionBridgeMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSessionBridge) EXPECT() *MockSessionBridgeMockRecorder {
	return m.recorder
}

// RememberSession mocks base method.
func (m *MockSessionBridge) RememberSession(ctx context.Context, identity *tokengate.Identity) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RememberSession", ctx, identity)
	ret0, _ := ret[0].(error)
	return ret0
}

// RememberSession indicates an expected call of RememberSession.
func (mr *MockSessionBridgeMockRecorder) RememberSession(ctx, identity any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RememberSession", reflect.TypeOf((*MockSessionBridge)(nil).RememberSession), ctx, identity)
}

// MockActivityLogger is a mock of ActivityLogger interface.
type MockActivityLogger struct {
	ctrl     *gomock.Controller
	recorder *MockActivityLoggerMockRecorder
	isgomock struct{}
}

// MockActivityLoggerMockRecorder is the mock recorder for MockActivityLogger.
type MockActivityLoggerMockRecorder struct {
	mock *MockActivityLogger
}

// NewMockActivityLogger creates a new mock instance.
func NewMockActivityLogger(ctrl *gomock.Controller) *MockActivityLogger {
	mock := &MockActivityLogger{ctrl: ctrl}
	mock.recorder = &MockActivityLoggerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockActivityLogger) EXPECT() *MockActivityLoggerMockRecorder {
	return m.recorder
}

// Append mocks base method.
func (m *MockActivityLogger) Append(ctx context.Context, identity *tokengate.Identity, eventName, description string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Append", ctx, identity, eventName, description)
	ret0, _ := ret[0].(error)
	return ret0
}

// Append indicates an expected call of Append.
func (mr *MockActivityLoggerMockRecorder) Append(ctx, identity, eventName, description any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Append", reflect.TypeOf((*MockActivityLogger)(nil).Append), ctx, identity, eventName, description)
}
