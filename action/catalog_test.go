package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRMCreateContactDedupesOnEmail(t *testing.T) {
	crm := NewMemoryCRMClient()
	exec := NewCRMExecutor(crm)

	params := map[string]any{"subAction": "create_contact", "email": "Ada@Example.com", "name": "Ada"}
	first, err := exec.Execute(context.Background(), params, CallContext{})
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.Equal(t, false, first.Data["alreadyExisted"])

	// Same address with different casing resolves to the same contact.
	params["email"] = "ada@example.com"
	second, err := exec.Execute(context.Background(), params, CallContext{})
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.Equal(t, true, second.Data["alreadyExisted"])
	assert.Equal(t, first.Data["contactId"], second.Data["contactId"])
	assert.Equal(t, 1, crm.ContactCount())
}

func TestCRMUnknownSubAction(t *testing.T) {
	exec := NewCRMExecutor(NewMemoryCRMClient())
	_, err := exec.Execute(context.Background(), map[string]any{"subAction": "explode"}, CallContext{})
	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, CodeValidationError, actionErr.Code)
}

func TestCheckOutboundURLBlocksInternalTargets(t *testing.T) {
	blocked := []string{
		"ftp://example.com/file",
		"http://localhost:8080/admin",
		"http://db.localhost/query",
		"http://127.0.0.1/",
		"http://10.0.0.5/secrets",
		"http://169.254.169.254/latest/meta-data/",
		"http://metadata.google.internal/computeMetadata/v1/",
		"http://vault.service.internal/",
		"http://0.0.0.0/",
	}
	for _, u := range blocked {
		assert.Error(t, checkOutboundURL(u), u)
	}

	allowed := []string{
		"https://api.example.com/v1/orders",
		"http://example.com/webhook",
	}
	for _, u := range allowed {
		assert.NoError(t, checkOutboundURL(u), u)
	}
}

func TestValidateParamTypes(t *testing.T) {
	def := Definition{Parameters: []ParameterSpec{
		{Name: "email", Type: TypeEmail},
		{Name: "amount", Type: TypeNumber},
		{Name: "confirmed", Type: TypeBoolean},
		{Name: "date", Type: TypeDatetime},
	}}

	assert.NoError(t, validateParams(def, map[string]any{
		"email":     "a@b.co",
		"amount":    "12.5",
		"confirmed": "true",
		"date":      "2026-03-01T10:00:00Z",
	}))
	assert.NoError(t, validateParams(def, map[string]any{"date": "2026-03-01"}))

	assert.Error(t, validateParams(def, map[string]any{"email": "nope"}))
	assert.Error(t, validateParams(def, map[string]any{"amount": "twelve"}))
	assert.Error(t, validateParams(def, map[string]any{"confirmed": "maybe"}))
	assert.Error(t, validateParams(def, map[string]any{"date": "tomorrow"}))
}

func TestDefaultRegistryCatalog(t *testing.T) {
	r := NewDefaultRegistry(CatalogClients{})
	ids := make(map[string]bool)
	for _, def := range r.Definitions() {
		ids[def.ID] = true
	}
	for _, want := range []string{"create_booking", "create_ticket", "crm.manage", "ecommerce.manage", "custom_api_call"} {
		assert.True(t, ids[want], want)
	}
	// send_email is only registered when an email backend is configured.
	assert.False(t, ids["send_email"])
}
