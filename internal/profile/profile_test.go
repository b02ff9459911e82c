package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	dev, prod := Dev(), Prod()

	require.NoError(t, dev.Validate())
	require.NoError(t, prod.Validate())

	assert.Equal(t, "10.0.0.0/16", dev.VpcCIDR)
	assert.Equal(t, "10.1.0.0/16", prod.VpcCIDR)
	assert.Equal(t, 90, dev.AuditRetentionDays)
	assert.Equal(t, 2555, prod.AuditRetentionDays)
	assert.Equal(t, "Development", dev.Tags["Environment"])
	assert.Equal(t, "Production", prod.Tags["Environment"])
	assert.Equal(t, dev.ServiceEndpoints, prod.ServiceEndpoints)
	assert.Len(t, dev.ServiceEndpoints, 3)

	// Each call returns an independent copy.
	dev.Tags["Environment"] = "changed"
	assert.Equal(t, "Development", Dev().Tags["Environment"])
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: "dev"},
		{name: "dev", want: "dev"},
		{name: "prod", want: "prod"},
		{name: "staging", wantErr: true},
		{name: "PROD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Select(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownEnvironment))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestAccountFromEnv(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		t.Setenv(AccountEnvVar, "123456789012")
		account, err := AccountFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "123456789012", account)
	})

	t.Run("empty", func(t *testing.T) {
		t.Setenv(AccountEnvVar, "")
		_, err := AccountFromEnv()
		assert.ErrorIs(t, err, ErrAccountMissing)
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv(AccountEnvVar, "")
		require.NoError(t, os.Unsetenv(AccountEnvVar))
		_, err := AccountFromEnv()
		assert.ErrorIs(t, err, ErrAccountMissing)
	})

	t.Run("not digits", func(t *testing.T) {
		t.Setenv(AccountEnvVar, "12345678901x")
		_, err := AccountFromEnv()
		assert.ErrorIs(t, err, ErrAccountInvalid)
	})

	t.Run("too short", func(t *testing.T) {
		t.Setenv(AccountEnvVar, "1234")
		_, err := AccountFromEnv()
		assert.ErrorIs(t, err, ErrAccountInvalid)
	})
}

func TestEndpointID(t *testing.T) {
	assert.Equal(t, "BedrockRuntime", EndpointID("bedrock-runtime"))
	assert.Equal(t, "Q", EndpointID("q"))
	assert.Equal(t, "EcrApi", EndpointID("ecr.api"))
	assert.Equal(t, "Logs", EndpointID("logs"))
}

func TestServiceName(t *testing.T) {
	p := Dev()
	assert.Equal(t, "bedrock-runtime", p.ServiceName("com.amazonaws.ap-southeast-1.bedrock-runtime"))
	assert.Equal(t, "vpce-svc-0123456789abcdef0", p.ServiceName("com.amazonaws.vpce.ap-southeast-1.vpce-svc-0123456789abcdef0"))
	assert.Equal(t, "com.amazonaws.ap-southeast-1.kms", p.EndpointService("kms"))
}

func TestValidate_EndpointService(t *testing.T) {
	p := Dev()
	p.ServiceEndpoints = append(p.ServiceEndpoints, "com.amazonaws.vpce.ap-southeast-1.vpce-svc-0123456789abcdef0")
	assert.NoError(t, p.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr string
	}{
		{
			name:    "malformed cidr",
			mutate:  func(p *Profile) { p.VpcCIDR = "10.0.0.0" },
			wantErr: "vpcCidr",
		},
		{
			name:    "cidr too large",
			mutate:  func(p *Profile) { p.VpcCIDR = "10.0.0.0/8" },
			wantErr: "between /16 and /24",
		},
		{
			name:    "cidr with host bits",
			mutate:  func(p *Profile) { p.VpcCIDR = "10.0.1.0/16" },
			wantErr: "host bits",
		},
		{
			name:    "ipv6 cidr",
			mutate:  func(p *Profile) { p.VpcCIDR = "2001:db8::/56" },
			wantErr: "not IPv4",
		},
		{
			name:    "no tags",
			mutate:  func(p *Profile) { p.Tags = nil },
			wantErr: "tags must not be empty",
		},
		{
			name:    "reserved tag prefix",
			mutate:  func(p *Profile) { p.Tags["aws:owner"] = "x" },
			wantErr: "reserved aws: prefix",
		},
		{
			name: "endpoint in other region",
			mutate: func(p *Profile) {
				p.ServiceEndpoints = append(p.ServiceEndpoints, "com.amazonaws.us-east-1.q")
			},
			wantErr: "must start with com.amazonaws.ap-southeast-1.",
		},
		{
			name: "malformed endpoint service id",
			mutate: func(p *Profile) {
				p.ServiceEndpoints = append(p.ServiceEndpoints, "com.amazonaws.vpce.ap-southeast-1.vpce-svc-XYZ")
			},
			wantErr: "invalid service name",
		},
		{
			name: "endpoint service in other region",
			mutate: func(p *Profile) {
				p.ServiceEndpoints = append(p.ServiceEndpoints, "com.amazonaws.vpce.us-east-1.vpce-svc-0123456789abcdef0")
			},
			wantErr: "must start with",
		},
		{
			name: "endpoint duplicates fixed service",
			mutate: func(p *Profile) {
				p.ServiceEndpoints = append(p.ServiceEndpoints, "com.amazonaws.ap-southeast-1.kms")
			},
			wantErr: "already provided by the fixed infrastructure endpoints",
		},
		{
			name: "duplicate endpoint",
			mutate: func(p *Profile) {
				p.ServiceEndpoints = append(p.ServiceEndpoints, "com.amazonaws.ap-southeast-1.q")
			},
			wantErr: "duplicates",
		},
		{
			name:    "zero retention",
			mutate:  func(p *Profile) { p.AuditRetentionDays = 0 },
			wantErr: "auditRetentionDays must be at least 1",
		},
		{
			name:    "bad name",
			mutate:  func(p *Profile) { p.Name = "Dev_1" },
			wantErr: "name",
		},
		{
			name:    "bad region",
			mutate:  func(p *Profile) { p.Region = "singapore" },
			wantErr: "not a region name",
		},
		{
			name:    "bad bundle",
			mutate:  func(p *Profile) { p.WorkspaceBundleID = "bundle" },
			wantErr: "not a bundle ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Dev()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidProfile)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_FullDocument(t *testing.T) {
	doc := `
name: uat
region: ap-southeast-1
vpcCidr: 10.2.0.0/16
tags:
  Environment: UAT
  Project: kiro-banking
serviceEndpoints:
  - com.amazonaws.ap-southeast-1.q
auditRetentionDays: 365
enableSecurityChecks: true
`
	p, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "uat", p.Name)
	assert.Equal(t, "10.2.0.0/16", p.VpcCIDR)
	assert.Equal(t, 365, p.AuditRetentionDays)
	assert.Equal(t, []string{"com.amazonaws.ap-southeast-1.q"}, p.ServiceEndpoints)
	assert.True(t, p.EnableSecurityChecks)
}

func TestParse_SecurityChecksDefaultOn(t *testing.T) {
	doc := `
name: uat
region: ap-southeast-1
vpcCidr: 10.2.0.0/16
tags:
  Environment: UAT
serviceEndpoints:
  - com.amazonaws.ap-southeast-1.q
auditRetentionDays: 365
`
	p, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.True(t, p.EnableSecurityChecks)

	p, err = Parse([]byte(doc + "enableSecurityChecks: false\n"))
	require.NoError(t, err)
	assert.False(t, p.EnableSecurityChecks)

	p, err = Parse([]byte("base: dev\nenableSecurityChecks: false\n"))
	require.NoError(t, err)
	assert.False(t, p.EnableSecurityChecks)
}

func TestParse_BaseOverride(t *testing.T) {
	doc := `
base: dev
tags:
  CostCentre: "1234"
serviceEndpoints:
  - com.amazonaws.ap-southeast-1.q
  - com.amazonaws.ap-southeast-1.codewhisperer
  - com.amazonaws.ap-southeast-1.bedrock-runtime
  - com.amazonaws.ap-southeast-1.secretsmanager
`
	p, err := Parse([]byte(doc))
	require.NoError(t, err)

	dev := Dev()
	assert.Equal(t, "dev", p.Name)
	assert.Equal(t, dev.VpcCIDR, p.VpcCIDR)
	assert.Equal(t, dev.AuditRetentionDays, p.AuditRetentionDays)
	assert.Len(t, p.ServiceEndpoints, 4)
	assert.Equal(t, "1234", p.Tags["CostCentre"])
	assert.Equal(t, "Development", p.Tags["Environment"])
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":        "base: dev\nnatGateways: 1\n",
		"unknown base":         "base: staging\n",
		"wrong type":           "base: dev\nauditRetentionDays: ninety\n",
		"missing fields":       "name: uat\nregion: ap-southeast-1\n",
		"non-string tag":       "base: dev\ntags:\n  Version: 1\n",
		"negative retention":   "base: dev\nauditRetentionDays: -1\n",
		"fractional retention": "base: dev\nauditRetentionDays: 1.5\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidProfile)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte(""))
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base: prod\nauditRetentionDays: 3650\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", p.Name)
	assert.Equal(t, 3650, p.AuditRetentionDays)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
