package credentials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/storage-config-detail/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCredentialStore implements interfaces.CredentialStore for testing
type MockCredentialStore struct {
	mock.Mock
	name string
}

func (m *MockCredentialStore) GetByID(ctx context.Context, id string) (*interfaces.CredentialRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.CredentialRecord), args.Error(1)
}

func (m *MockCredentialStore) Name() string {
	return m.name
}

func newTestResolver() (*Resolver, *MockCredentialStore, *MockCredentialStore) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	system := &MockCredentialStore{name: "system"}
	tenant := &MockCredentialStore{name: "tenant"}
	return NewResolver(system, tenant, logger), system, tenant
}

func TestResolve_System(t *testing.T) {
	resolver, system, tenant := newTestResolver()

	system.On("GetByID", mock.Anything, "cred-1").Return(&interfaces.CredentialRecord{
		ID:           "cred-1",
		Name:         "Shared S3",
		ProviderCode: "aws",
		AuthType:     "access_key",
		Payload:      interfaces.Settings{"secret_key": "s3cr3t", "access_key": "AKIA"},
		IsActive:     false,
	}, nil)

	res, err := resolver.Resolve(context.Background(), "cred-1")
	require.NoError(t, err)

	assert.Equal(t, System, res.Kind)
	require.NotNil(t, res.Credential)
	assert.Equal(t, interfaces.SystemScope, res.Credential.Scope)
	assert.Nil(t, res.Credential.TenantID)
	assert.Nil(t, res.Credential.SystemCredentialID)
	assert.False(t, res.Credential.IsActive, "inactive credentials are still resolved")
	assert.Equal(t, []string{"access_key", "secret_key"}, res.Credential.PayloadKeys)
	assert.NotEmpty(t, res.Credential.PayloadFingerprint)

	system.AssertExpectations(t)
	tenant.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResolve_TenantFallback(t *testing.T) {
	resolver, system, tenant := newTestResolver()

	systemID := "cred-sys"
	system.On("GetByID", mock.Anything, "cred-2").Return(nil, interfaces.ErrNotFound)
	tenant.On("GetByID", mock.Anything, "cred-2").Return(&interfaces.CredentialRecord{
		ID:                 "cred-2",
		TenantID:           "tenant-9",
		Name:               "Tenant bucket key",
		OverrideSystem:     true,
		SystemCredentialID: &systemID,
		IsActive:           true,
	}, nil)

	res, err := resolver.Resolve(context.Background(), "cred-2")
	require.NoError(t, err)

	assert.Equal(t, Tenant, res.Kind)
	require.NotNil(t, res.Credential)
	assert.Equal(t, interfaces.TenantScope, res.Credential.Scope)
	require.NotNil(t, res.Credential.TenantID)
	assert.Equal(t, "tenant-9", *res.Credential.TenantID)
	assert.True(t, res.Credential.OverrideSystem)
	require.NotNil(t, res.Credential.SystemCredentialID)
	assert.Equal(t, "cred-sys", *res.Credential.SystemCredentialID)
	assert.Empty(t, res.Credential.PayloadFingerprint)

	system.AssertExpectations(t)
	tenant.AssertExpectations(t)
}

func TestResolve_TenantCredentialWithoutTenant(t *testing.T) {
	resolver, system, tenant := newTestResolver()

	system.On("GetByID", mock.Anything, "cred-3").Return(nil, interfaces.ErrNotFound)
	tenant.On("GetByID", mock.Anything, "cred-3").Return(&interfaces.CredentialRecord{
		ID:   "cred-3",
		Name: "orphaned key",
	}, nil)

	res, err := resolver.Resolve(context.Background(), "cred-3")
	require.NoError(t, err)

	assert.Equal(t, Tenant, res.Kind)
	require.NotNil(t, res.Credential)
	assert.Equal(t, interfaces.TenantScope, res.Credential.Scope)
	assert.Nil(t, res.Credential.TenantID)
}

func TestResolve_NotFound(t *testing.T) {
	resolver, system, tenant := newTestResolver()

	system.On("GetByID", mock.Anything, "missing").Return(nil, interfaces.ErrNotFound)
	tenant.On("GetByID", mock.Anything, "missing").Return(nil, interfaces.ErrNotFound)

	res, err := resolver.Resolve(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.Kind)
	assert.False(t, res.Found())
	assert.Nil(t, res.Credential)
}

func TestResolve_EmptyID(t *testing.T) {
	resolver, system, tenant := newTestResolver()

	res, err := resolver.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.Kind)

	system.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	tenant.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestResolve_TransientFailures(t *testing.T) {
	tests := []struct {
		name        string
		systemErr   error
		tenantErr   error
		tenantProbe bool
	}{
		{
			name:      "system store unavailable stops the chain",
			systemErr: errors.New("connection refused"),
		},
		{
			name:        "tenant store unavailable",
			systemErr:   interfaces.ErrNotFound,
			tenantErr:   errors.Join(interfaces.ErrTransientFetch, errors.New("timeout")),
			tenantProbe: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver, system, tenant := newTestResolver()

			system.On("GetByID", mock.Anything, "cred-3").Return(nil, tt.systemErr)
			if tt.tenantProbe {
				tenant.On("GetByID", mock.Anything, "cred-3").Return(nil, tt.tenantErr)
			}

			_, err := resolver.Resolve(context.Background(), "cred-3")
			require.Error(t, err)
			assert.ErrorIs(t, err, interfaces.ErrTransientFetch)
			assert.NotErrorIs(t, err, interfaces.ErrNotFound)

			if !tt.tenantProbe {
				tenant.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestResolve_NilTenantStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	system := &MockCredentialStore{name: "system"}
	system.On("GetByID", mock.Anything, "cred-4").Return(nil, interfaces.ErrNotFound)

	res, err := NewResolver(system, nil, logger).Resolve(context.Background(), "cred-4")
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.Kind)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(interfaces.Settings{"access_key": "AKIA", "secret_key": "x"})
	b := Fingerprint(interfaces.Settings{"secret_key": "x", "access_key": "AKIA"})
	c := Fingerprint(interfaces.Settings{"access_key": "AKIA", "secret_key": "y"})

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Empty(t, Fingerprint(nil))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "system", System.String())
	assert.Equal(t, "tenant", Tenant.String())
	assert.Equal(t, "not_found", NotFound.String())
}
