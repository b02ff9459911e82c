package nag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/stacks/compliance"
	"github.com/lex00/kiro-banking-go/internal/stacks/encryption"
	"github.com/lex00/kiro-banking-go/internal/stacks/monitoring"
	"github.com/lex00/kiro-banking-go/internal/stacks/network"
)

func tmpl(resources map[string]kb.ResourceDef) *kb.Template {
	return &kb.Template{Resources: resources}
}

func ruleIDs(findings []Finding) []string {
	var ids []string
	for _, f := range findings {
		ids = append(ids, f.Rule)
	}
	return ids
}

func tlsDenyPolicy(bucket string) kb.ResourceDef {
	return kb.ResourceDef{Type: "AWS::S3::BucketPolicy", Properties: map[string]any{
		"Bucket": map[string]any{"Ref": bucket},
		"PolicyDocument": map[string]any{"Statement": []any{map[string]any{
			"Effect":    "Deny",
			"Condition": map[string]any{"Bool": map[string]any{"aws:SecureTransport": "false"}},
		}}},
	}}
}

func compliantBucket() kb.ResourceDef {
	return kb.ResourceDef{Type: "AWS::S3::Bucket", Properties: map[string]any{
		"BucketEncryption": map[string]any{"ServerSideEncryptionConfiguration": []any{
			map[string]any{"ServerSideEncryptionByDefault": map[string]any{"SSEAlgorithm": "aws:kms"}},
		}},
		"PublicAccessBlockConfiguration": map[string]any{
			"BlockPublicAcls":       true,
			"BlockPublicPolicy":     true,
			"IgnorePublicAcls":      true,
			"RestrictPublicBuckets": true,
		},
		"LoggingConfiguration": map[string]any{"DestinationBucketName": "logs"},
	}}
}

func TestAllRules(t *testing.T) {
	rules := AllRules()
	require.Len(t, rules, 16)

	seen := make(map[string]bool)
	for _, r := range rules {
		assert.False(t, seen[r.ID()], "duplicate rule %s", r.ID())
		seen[r.ID()] = true
		assert.NotEmpty(t, r.Description(), r.ID())
	}
	assert.Equal(t, "KBS001", rules[0].ID())
	assert.Equal(t, "KBS016", rules[15].ID())
	assert.Equal(t, SeverityWarning, LogGroupEncryption.Severity())
	assert.Equal(t, SeverityError, BucketTLSOnly{}.Severity())
}

func TestKeyRules(t *testing.T) {
	template := tmpl(map[string]kb.ResourceDef{
		"GoodKey": {
			Type:                "AWS::KMS::Key",
			Properties:          map[string]any{"EnableKeyRotation": true},
			DeletionPolicy:      "Retain",
			UpdateReplacePolicy: "Retain",
		},
		"BadKey": {
			Type:           "AWS::KMS::Key",
			Properties:     map[string]any{"EnableKeyRotation": false},
			DeletionPolicy: "Retain",
		},
	})

	rotation := KeyRotation.Check("s", template)
	require.Len(t, rotation, 1)
	assert.Equal(t, "BadKey", rotation[0].Resource)
	assert.Equal(t, "s", rotation[0].File)
	assert.Equal(t, "BadKey: key rotation is not enabled", rotation[0].Message)

	retained := KeyRetained.Check("s", template)
	require.Len(t, retained, 1)
	assert.Equal(t, "BadKey", retained[0].Resource)
}

func TestBucketRules(t *testing.T) {
	t.Run("compliant", func(t *testing.T) {
		template := tmpl(map[string]kb.ResourceDef{
			"Bucket":       compliantBucket(),
			"BucketPolicy": tlsDenyPolicy("Bucket"),
		})
		assert.Empty(t, CheckTemplate("s", template, Options{}).Findings)
	})

	t.Run("bare bucket", func(t *testing.T) {
		template := tmpl(map[string]kb.ResourceDef{
			"Bucket": {Type: "AWS::S3::Bucket", Properties: map[string]any{}},
		})
		result := CheckTemplate("s", template, Options{})
		assert.Equal(t, []string{"KBS003", "KBS004", "KBS005", "KBS006", "KBS016"}, ruleIDs(result.Findings))
		assert.Len(t, result.Errors(), 4)
		assert.Len(t, result.Warnings(), 1)
		assert.True(t, result.HasErrors())
	})

	t.Run("partial public access block", func(t *testing.T) {
		bucket := compliantBucket()
		bucket.Properties["PublicAccessBlockConfiguration"] = map[string]any{"BlockPublicAcls": true}
		findings := BucketPublicAccessBlock.Check("s", tmpl(map[string]kb.ResourceDef{"Bucket": bucket}))
		assert.Len(t, findings, 1)
	})

	t.Run("policy on another bucket", func(t *testing.T) {
		template := tmpl(map[string]kb.ResourceDef{
			"Bucket":      compliantBucket(),
			"Other":       compliantBucket(),
			"OtherPolicy": tlsDenyPolicy("Other"),
		})
		findings := BucketTLSOnly{}.Check("s", template)
		require.Len(t, findings, 1)
		assert.Equal(t, "Bucket", findings[0].Resource)
	})

	t.Run("SSE-S3", func(t *testing.T) {
		bucket := compliantBucket()
		bucket.Properties["BucketEncryption"] = map[string]any{"ServerSideEncryptionConfiguration": []any{
			map[string]any{"ServerSideEncryptionByDefault": map[string]any{"SSEAlgorithm": "AES256"}},
		}}
		template := tmpl(map[string]kb.ResourceDef{"Bucket": bucket})
		assert.Empty(t, BucketEncryption.Check("s", template))
		assert.Len(t, BucketCustomerKey.Check("s", template), 1)
	})
}

func TestNoInternetGateway(t *testing.T) {
	template := tmpl(map[string]kb.ResourceDef{
		"Igw": {Type: "AWS::EC2::InternetGateway"},
		"Nat": {Type: "AWS::EC2::NatGateway", Properties: map[string]any{}},
		"Vpc": {Type: "AWS::EC2::VPC", Properties: map[string]any{}},
	})
	findings := NoInternetGateway{}.Check("s", template)

	var resources []string
	for _, f := range findings {
		resources = append(resources, f.Resource)
	}
	assert.Equal(t, []string{"Igw", "Nat"}, resources)
}

func TestVpcFlowLogs(t *testing.T) {
	template := tmpl(map[string]kb.ResourceDef{
		"Logged":   {Type: "AWS::EC2::VPC", Properties: map[string]any{}},
		"Unlogged": {Type: "AWS::EC2::VPC", Properties: map[string]any{}},
		"FlowLog": {Type: "AWS::EC2::FlowLog", Properties: map[string]any{
			"ResourceId": map[string]any{"Ref": "Logged"},
		}},
	})
	findings := VpcFlowLogs{}.Check("s", template)
	require.Len(t, findings, 1)
	assert.Equal(t, "Unlogged", findings[0].Resource)
}

func TestSecurityGroupRules(t *testing.T) {
	closed := []any{map[string]any{"CidrIp": "255.255.255.255/32", "IpProtocol": "icmp"}}
	template := tmpl(map[string]kb.ResourceDef{
		"Closed": {Type: "AWS::EC2::SecurityGroup", Properties: map[string]any{
			"SecurityGroupEgress": closed,
		}},
		"DefaultEgress": {Type: "AWS::EC2::SecurityGroup", Properties: map[string]any{}},
		"OpenSsh": {Type: "AWS::EC2::SecurityGroup", Properties: map[string]any{
			"SecurityGroupEgress":  closed,
			"SecurityGroupIngress": []any{map[string]any{"CidrIp": "0.0.0.0/0", "FromPort": 22.0, "ToPort": 22.0}},
		}},
		"OpenIngress": {Type: "AWS::EC2::SecurityGroupIngress", Properties: map[string]any{
			"CidrIpv6": "::/0",
		}},
		"ScopedIngress": {Type: "AWS::EC2::SecurityGroupIngress", Properties: map[string]any{
			"SourceSecurityGroupId": map[string]any{"Ref": "Closed"},
		}},
		"OpenEgress": {Type: "AWS::EC2::SecurityGroupEgress", Properties: map[string]any{
			"CidrIp":     "0.0.0.0/0",
			"IpProtocol": "-1",
		}},
	})

	var ingress []string
	for _, f := range (UnrestrictedIngress{}).Check("s", template) {
		ingress = append(ingress, f.Resource)
	}
	assert.Equal(t, []string{"OpenSsh", "OpenIngress"}, ingress)

	var egress []string
	for _, f := range (AllowAllEgress{}).Check("s", template) {
		egress = append(egress, f.Resource)
	}
	assert.Equal(t, []string{"DefaultEgress", "OpenEgress"}, egress)
}

func TestTrailRules(t *testing.T) {
	template := tmpl(map[string]kb.ResourceDef{
		"Trail": {Type: "AWS::CloudTrail::Trail", Properties: map[string]any{
			"EnableLogFileValidation": true,
			"IsMultiRegionTrail":      false,
		}},
	})
	assert.Len(t, TrailValidation.Check("s", template), 1)
	assert.Len(t, TrailEncryption.Check("s", template), 1)
}

func TestWarningRules(t *testing.T) {
	template := tmpl(map[string]kb.ResourceDef{
		"Topic":    {Type: "AWS::SNS::Topic", Properties: map[string]any{}},
		"LogGroup": {Type: "AWS::Logs::LogGroup", Properties: map[string]any{}},
		"Quiet": {Type: "AWS::CloudWatch::Alarm", Properties: map[string]any{
			"TreatMissingData": "notBreaching",
		}},
		"Noisy": {Type: "AWS::CloudWatch::Alarm", Properties: map[string]any{
			"TreatMissingData": "breaching",
		}},
	})
	result := CheckTemplate("s", template, Options{})

	assert.Equal(t, []string{"KBS013"}, ruleIDs(result.Errors()))
	assert.Equal(t, []string{"KBS014", "KBS015"}, ruleIDs(result.Warnings()))
	assert.Equal(t, "Noisy", result.Warnings()[1].Resource)
}

func suppressed(id, reason string) map[string]any {
	return map[string]any{stack.MetadataKey: map[string]any{
		"rules_to_suppress": []any{map[string]any{"id": id, "reason": reason}},
	}}
}

func TestSuppressions(t *testing.T) {
	t.Run("with reason", func(t *testing.T) {
		template := tmpl(map[string]kb.ResourceDef{
			"LogGroup": {
				Type:       "AWS::Logs::LogGroup",
				Properties: map[string]any{},
				Metadata:   suppressed("KBS014", "Encrypted by the service key"),
			},
		})
		result := CheckTemplate("s", template, Options{})

		assert.Empty(t, result.Findings)
		require.Len(t, result.Suppressed, 1)
		assert.Equal(t, "KBS014", result.Suppressed[0].Rule)
		assert.Equal(t, "Encrypted by the service key", result.Suppressed[0].Reason)
	})

	t.Run("short reason", func(t *testing.T) {
		template := tmpl(map[string]kb.ResourceDef{
			"LogGroup": {
				Type:       "AWS::Logs::LogGroup",
				Properties: map[string]any{},
				Metadata:   suppressed("KBS014", "ok"),
			},
		})
		result := CheckTemplate("s", template, Options{})

		assert.Equal(t, []string{SuppressionRuleID, "KBS014"}, ruleIDs(result.Findings))
		assert.Empty(t, result.Suppressed)
		assert.True(t, result.HasErrors())
	})

	t.Run("other rule", func(t *testing.T) {
		template := tmpl(map[string]kb.ResourceDef{
			"LogGroup": {
				Type:       "AWS::Logs::LogGroup",
				Properties: map[string]any{},
				Metadata:   suppressed("KBS013", "Not the rule that fires"),
			},
		})
		result := CheckTemplate("s", template, Options{})
		assert.Equal(t, []string{"KBS014"}, ruleIDs(result.Findings))
	})
}

func TestDisabledRules(t *testing.T) {
	template := tmpl(map[string]kb.ResourceDef{
		"Topic":    {Type: "AWS::SNS::Topic", Properties: map[string]any{}},
		"LogGroup": {Type: "AWS::Logs::LogGroup", Properties: map[string]any{}},
	})
	result := CheckTemplate("s", template, Options{DisabledRules: []string{"KBS013"}})
	assert.Equal(t, []string{"KBS014"}, ruleIDs(result.Findings))
}

func assembly(t *testing.T, p profile.Profile) *stack.Assembly {
	t.Helper()
	app := stack.NewApp(stack.Environment{Name: p.Name, Account: "123456789012", Region: p.Region})
	keys := encryption.Declare(app, p)
	network.Declare(app, p)
	monitoring.Declare(app, p, keys.AuditKeyArn)
	compliance.Declare(app, p)

	a, err := app.Synth()
	require.NoError(t, err)
	return a
}

func TestRun_DeclaredStacksAreClean(t *testing.T) {
	for _, p := range []profile.Profile{profile.Dev(), profile.Prod()} {
		t.Run(p.Name, func(t *testing.T) {
			result := Run(assembly(t, p), Options{})

			assert.Empty(t, result.Findings)
			assert.ElementsMatch(t, []string{"KBS006", "KBS016", "KBS014"}, ruleIDs(suppressedFindings(result)))
		})
	}
}

func suppressedFindings(r *Result) []Finding {
	out := make([]Finding, 0, len(r.Suppressed))
	for _, s := range r.Suppressed {
		out = append(out, s.Finding)
	}
	return out
}
