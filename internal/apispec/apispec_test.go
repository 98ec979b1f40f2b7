package apispec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	spec, err := Load()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(spec.JSON(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])

	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	for _, p := range []string{"/verify", "/verify/number-verification", "/verify/sim-swap"} {
		assert.Contains(t, paths, p)
	}
}

func TestValidateRequestBody(t *testing.T) {
	spec, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		body    string
		wantErr bool
	}{
		{name: "minimal", path: "/verify", body: `{"phoneNumber":"15551234567"}`},
		{name: "mock with plus", path: "/verify", body: `{"phoneNumber":"+15551234567","mockMode":true}`},
		{name: "with kyc data", path: "/verify", body: `{"phoneNumber":"15551234567","kycData":{"givenName":"Ada"}}`},
		{name: "sim swap", path: "/verify/sim-swap", body: `{"phoneNumber":"15551234567"}`},
		{name: "number verification", path: "/verify/number-verification", body: `{"phoneNumber":"15551234567","mockMode":false}`},
		{name: "missing phone", path: "/verify", body: `{"mockMode":true}`, wantErr: true},
		{name: "empty phone", path: "/verify", body: `{"phoneNumber":""}`, wantErr: true},
		{name: "letters in phone", path: "/verify/sim-swap", body: `{"phoneNumber":"call-me"}`, wantErr: true},
		{name: "phone as number", path: "/verify", body: `{"phoneNumber":15551234567}`, wantErr: true},
		{name: "mock mode as string", path: "/verify", body: `{"phoneNumber":"1555","mockMode":"yes"}`, wantErr: true},
		{name: "kyc data as array", path: "/verify", body: `{"phoneNumber":"1555","kycData":[]}`, wantErr: true},
		{name: "not json", path: "/verify", body: `phoneNumber=1555`, wantErr: true},
		{name: "unknown path", path: "/kyc-match", body: `{"phoneNumber":"1555"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := spec.ValidateRequestBody(tt.path, []byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
