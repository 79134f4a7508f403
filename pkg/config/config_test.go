package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgvault/imgvault/pkg/errors"
)

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvAccountID, "acct123")
	t.Setenv(EnvBucket, "images")
	t.Setenv(EnvAccessKeyID, "AKIA")
	t.Setenv(EnvSecretAccessKey, "secret")
	t.Setenv(EnvEndpoint, "")

	s, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "acct123", s.AccountID)
	assert.Equal(t, "images", s.Bucket)
	assert.Equal(t, "https://acct123.r2.cloudflarestorage.com", s.EndpointURL())
}

func TestFromEnvMissing(t *testing.T) {
	t.Setenv(EnvAccountID, "")
	t.Setenv(EnvBucket, "")
	t.Setenv(EnvAccessKeyID, "")
	t.Setenv(EnvSecretAccessKey, "")
	t.Setenv(EnvEndpoint, "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		storage Storage
		wantErr bool
	}{
		{
			name: "complete with account id",
			storage: Storage{
				AccountID:       "acct",
				Bucket:          "b",
				AccessKeyID:     "k",
				SecretAccessKey: "s",
			},
		},
		{
			name: "complete with endpoint override",
			storage: Storage{
				Endpoint:        "http://localhost:9000",
				Bucket:          "b",
				AccessKeyID:     "k",
				SecretAccessKey: "s",
			},
		},
		{
			name: "missing bucket",
			storage: Storage{
				AccountID:       "acct",
				AccessKeyID:     "k",
				SecretAccessKey: "s",
			},
			wantErr: true,
		},
		{
			name: "missing credentials",
			storage: Storage{
				AccountID: "acct",
				Bucket:    "b",
			},
			wantErr: true,
		},
		{
			name: "no account id and no endpoint",
			storage: Storage{
				Bucket:          "b",
				AccessKeyID:     "k",
				SecretAccessKey: "s",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.storage.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeConfig))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestEndpointURLOverride(t *testing.T) {
	s := Storage{AccountID: "acct", Endpoint: "http://localhost:9000"}
	assert.Equal(t, "http://localhost:9000", s.EndpointURL())
}
