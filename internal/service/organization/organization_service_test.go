package organization

import (
	"context"
	"testing"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/organization"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService() *OrganizationService {
	store := testutil.NewInMemoryOrganizationStore()
	cfg := &config.AppConfig{PhoneCountryCode: "254"}
	return NewOrganizationService(store, cfg, zap.NewNop())
}

func TestCreateOrganization_NormalizesPhone(t *testing.T) {
	svc := newService()

	org, err := svc.CreateOrganization(context.Background(), &organization.CreateOrganizationRequest{
		Name:  "Acme Ltd",
		Email: "billing@acme.co.ke",
		Phone: "0712 345 678",
		City:  "Nairobi",
	})
	require.NoError(t, err)

	assert.Equal(t, "254712345678", org.Phone)
	require.True(t, org.City.Valid)
	assert.Equal(t, "Nairobi", org.City.String)
	assert.False(t, org.AddressLine.Valid)
}

func TestCreateOrganization_InvalidPhone(t *testing.T) {
	svc := newService()

	_, err := svc.CreateOrganization(context.Background(), &organization.CreateOrganizationRequest{
		Name:  "Acme Ltd",
		Email: "billing@acme.co.ke",
		Phone: "not-a-number",
	})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestUpdateOrganization_PatchSemantics(t *testing.T) {
	svc := newService()

	org, err := svc.CreateOrganization(context.Background(), &organization.CreateOrganizationRequest{
		Name:  "Acme Ltd",
		Email: "billing@acme.co.ke",
		Phone: "0712345678",
		City:  "Nairobi",
	})
	require.NoError(t, err)

	name := "Acme Limited"
	updated, err := svc.UpdateOrganization(context.Background(), org.ID, &organization.UpdateOrganizationRequest{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Acme Limited", updated.Name)
	assert.Equal(t, org.Email, updated.Email, "unset fields are left alone")

	empty := ""
	updated, err = svc.UpdateOrganization(context.Background(), org.ID, &organization.UpdateOrganizationRequest{City: &empty})
	require.NoError(t, err)
	assert.False(t, updated.City.Valid, "explicit empty string clears the field")
}

func TestUpdateOrganization_NotFound(t *testing.T) {
	svc := newService()
	name := "Nobody"
	_, err := svc.UpdateOrganization(context.Background(), 42, &organization.UpdateOrganizationRequest{Name: &name})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
