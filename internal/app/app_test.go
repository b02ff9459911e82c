package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/kiro-banking-go/internal/nag"
	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/stacks/compliance"
)

const account = "123456789012"

func synth(t *testing.T, p profile.Profile) *stack.Assembly {
	t.Helper()
	out, err := Synth(p, account, nag.Options{})
	require.NoError(t, err)
	return out.Assembly
}

func TestBuild_MissingAccount(t *testing.T) {
	app, err := Build(profile.Dev(), "")
	assert.Nil(t, app)
	assert.True(t, errors.Is(err, profile.ErrAccountMissing))
}

func TestBuild_InvalidProfile(t *testing.T) {
	p := profile.Dev()
	p.VpcCIDR = "10.0.0.1/16"

	app, err := Build(p, account)
	assert.Nil(t, app)
	assert.True(t, errors.Is(err, profile.ErrInvalidProfile))
}

func TestBuild_Environment(t *testing.T) {
	app, err := Build(profile.Prod(), account)
	require.NoError(t, err)

	assert.Equal(t, stack.Environment{Name: "prod", Account: account, Region: "ap-southeast-1"}, app.Environment())
	assert.Equal(t, profile.Prod().Tags, app.Tags())
	assert.Len(t, app.Stacks(), 4)
}

func TestSynth_StackOrder(t *testing.T) {
	a := synth(t, profile.Dev())

	assert.Equal(t, []string{
		"KiroBanking-Encryption-dev",
		"KiroBanking-Network-dev",
		"KiroBanking-Monitoring-dev",
		"KiroBanking-Compliance-dev",
	}, a.StackNames())
	assert.Equal(t, []string{"KiroBanking-Encryption-dev"}, a.Stack("KiroBanking-Monitoring-dev").Dependencies)
	assert.Empty(t, a.Stack("KiroBanking-Network-dev").Dependencies)
}

func TestSynth_Counts(t *testing.T) {
	for _, p := range []profile.Profile{profile.Dev(), profile.Prod()} {
		t.Run(p.Name, func(t *testing.T) {
			counts := synth(t, p).CountByType()

			assert.Equal(t, 3, counts["AWS::KMS::Key"])
			assert.Equal(t, len(p.ServiceEndpoints)+len(profile.InfrastructureServices)+1, counts["AWS::EC2::VPCEndpoint"])
			assert.Equal(t, 2, counts["AWS::EC2::SecurityGroup"])
			assert.Zero(t, counts["AWS::EC2::InternetGateway"])
			assert.Zero(t, counts["AWS::EC2::NatGateway"])
			assert.Equal(t, 1, counts["AWS::CloudTrail::Trail"])
			assert.Equal(t, 2, counts["AWS::S3::Bucket"])
			assert.Equal(t, 4, counts["AWS::CloudWatch::Alarm"])
			assert.Equal(t, 1, counts["AWS::SNS::Topic"])
			assert.Equal(t, 18, counts["AWS::Config::ConfigRule"])
		})
	}
}

func TestSynth_DevAndProdShareStructure(t *testing.T) {
	dev := synth(t, profile.Dev())
	prod := synth(t, profile.Prod())

	assert.Equal(t, dev.CountByType(), prod.CountByType())
	assert.Equal(t, 78, dev.ResourceCount())

	devVpc := dev.Stack("KiroBanking-Network-dev").Template.Resources["Vpc"]
	prodVpc := prod.Stack("KiroBanking-Network-prod").Template.Resources["Vpc"]
	assert.Equal(t, "10.0.0.0/16", devVpc.Properties["CidrBlock"])
	assert.Equal(t, "10.1.0.0/16", prodVpc.Properties["CidrBlock"])
}

func TestSynth_AddedServiceAddsOneEndpoint(t *testing.T) {
	base := synth(t, profile.Dev()).CountByType()

	p := profile.Dev()
	p.ServiceEndpoints = append(append([]string(nil), p.ServiceEndpoints...), "com.amazonaws.ap-southeast-1.secretsmanager")
	added := synth(t, p).CountByType()

	assert.Equal(t, base["AWS::EC2::VPCEndpoint"]+1, added["AWS::EC2::VPCEndpoint"])
	added["AWS::EC2::VPCEndpoint"]--
	assert.Equal(t, base, added)
}

var taggableTypes = []string{
	"AWS::KMS::Key",
	"AWS::EC2::VPC",
	"AWS::EC2::Subnet",
	"AWS::EC2::RouteTable",
	"AWS::EC2::SecurityGroup",
	"AWS::EC2::NetworkAcl",
	"AWS::EC2::FlowLog",
	"AWS::S3::Bucket",
	"AWS::SNS::Topic",
	"AWS::Logs::LogGroup",
	"AWS::CloudTrail::Trail",
	"AWS::IAM::Role",
	"AWS::CloudWatch::Alarm",
	"AWS::EC2::VPCEndpoint",
}

func TestSynth_TagsEveryTaggableResource(t *testing.T) {
	p := profile.Prod()
	a := synth(t, p)

	isTaggable := make(map[string]bool, len(taggableTypes))
	for _, typ := range taggableTypes {
		isTaggable[typ] = true
	}

	tagged := 0
	for _, s := range a.Stacks {
		for id, res := range s.Template.Resources {
			if !isTaggable[res.Type] {
				continue
			}
			tagged++

			tags := make(map[string]any)
			list, _ := res.Properties["Tags"].([]any)
			for _, raw := range list {
				tag, _ := raw.(map[string]any)
				key, _ := tag["Key"].(string)
				tags[key] = tag["Value"]
			}
			for k, v := range p.Tags {
				assert.Equal(t, v, tags[k], "%s/%s tag %s", s.Name, id, k)
			}
		}
	}
	assert.Greater(t, tagged, 20)
}

func TestSynth_TagsAlarmsAndEndpoints(t *testing.T) {
	p := profile.Prod()
	a := synth(t, p)

	counts := map[string]int{}
	for _, s := range a.Stacks {
		for id, res := range s.Template.Resources {
			if res.Type != "AWS::CloudWatch::Alarm" && res.Type != "AWS::EC2::VPCEndpoint" {
				continue
			}
			counts[res.Type]++

			list, ok := res.Properties["Tags"].([]any)
			require.True(t, ok, "%s has no tags", id)
			tags := make(map[string]any, len(list))
			for _, raw := range list {
				tag := raw.(map[string]any)
				tags[tag["Key"].(string)] = tag["Value"]
			}
			assert.Equal(t, "MAS-TRM", tags["Compliance"], id)
			assert.Equal(t, "Production", tags["Environment"], id)
		}
	}
	assert.Equal(t, 4, counts["AWS::CloudWatch::Alarm"])
	assert.Equal(t, len(p.ServiceEndpoints)+len(profile.InfrastructureServices)+1, counts["AWS::EC2::VPCEndpoint"])
}

func TestSynth_SecurityChecksClean(t *testing.T) {
	for _, p := range []profile.Profile{profile.Dev(), profile.Prod()} {
		t.Run(p.Name, func(t *testing.T) {
			out, err := Synth(p, account, nag.Options{})
			require.NoError(t, err)
			require.NotNil(t, out.Checks)

			assert.Empty(t, out.Checks.Findings)
			assert.Empty(t, out.Warnings())
			assert.Len(t, out.Checks.Suppressed, 3)
		})
	}
}

func TestSynth_ChecksDisabled(t *testing.T) {
	p := profile.Dev()
	p.EnableSecurityChecks = false

	out, err := Synth(p, account, nag.Options{})
	require.NoError(t, err)
	assert.Nil(t, out.Checks)
	assert.Nil(t, out.Warnings())
}

func TestSynth_DeclaredPropertiesAreCovered(t *testing.T) {
	a := synth(t, profile.Dev())

	var props []compliance.Property
	for _, s := range a.Stacks {
		props = append(props, compliance.DeclaredProperties(s.Template)...)
	}
	assert.NotEmpty(t, props)
	assert.Empty(t, compliance.Uncovered(props))
}
