package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleAdmin.Can(CapabilityManageBackups))
	assert.True(t, RoleAdmin.Can(CapabilityManageReports))
	assert.True(t, RoleAdmin.Can(CapabilityManageUsers))
	assert.True(t, RoleEmployee.Can(CapabilityOperateStore))
	assert.False(t, RoleEmployee.Can(CapabilityManageBackups))
	assert.False(t, RoleEmployee.Can(CapabilityManageUsers))
	assert.False(t, Role("owner").Can(CapabilityOperateStore))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}

func TestRecordStatusTransitions(t *testing.T) {
	assert.True(t, RecordStatusPending.CanTransitionTo(RecordStatusCompleted))
	assert.True(t, RecordStatusPending.CanTransitionTo(RecordStatusFailed))
	assert.False(t, RecordStatusPending.CanTransitionTo(RecordStatusPending))
	assert.False(t, RecordStatusCompleted.CanTransitionTo(RecordStatusFailed))
	assert.False(t, RecordStatusFailed.CanTransitionTo(RecordStatusCompleted))
}

func TestParsePaymentMethodDefaultsToCash(t *testing.T) {
	method, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCash, method)

	method, err = ParsePaymentMethod("CARD")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCard, method)

	_, err = ParsePaymentMethod("crypto")
	assert.Error(t, err)
}

func TestReportFormatHelpers(t *testing.T) {
	format, err := ParseReportFormat("excel")
	require.NoError(t, err)
	assert.Equal(t, ReportFormatXLSX, format)
	assert.False(t, format.Previewable())
	assert.Equal(t, "xlsx", format.Extension())

	assert.True(t, ReportFormatPDF.Previewable())
	assert.Equal(t, "application/pdf", ReportFormatPDF.ContentType())

	_, err = ParseReportType("inventory")
	assert.Error(t, err)
}

func TestParseProductDeletePolicy(t *testing.T) {
	policy, err := ParseProductDeletePolicy("")
	require.NoError(t, err)
	assert.Equal(t, ProductDeleteCascade, policy)

	policy, err = ParseProductDeletePolicy("RESTRICT")
	require.NoError(t, err)
	assert.Equal(t, ProductDeleteRestrict, policy)

	_, err = ParseProductDeletePolicy("soft")
	assert.Error(t, err)
}
