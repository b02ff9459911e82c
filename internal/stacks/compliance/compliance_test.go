package compliance

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/assertions"
	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
)

func synth(t *testing.T, p profile.Profile) *kb.Template {
	t.Helper()
	app := stack.NewApp(stack.Environment{Name: p.Name, Account: "123456789012", Region: p.Region})
	c := Declare(app, p)

	assembly, err := app.Synth()
	require.NoError(t, err)
	return assembly.Stack(c.Stack.Name()).Template
}

func TestRuleCount(t *testing.T) {
	for _, p := range []profile.Profile{profile.Dev(), profile.Prod()} {
		t.Run(p.Name, func(t *testing.T) {
			tmpl := synth(t, p)

			assertions.ResourceCountIs(t, tmpl, "AWS::Config::ConfigRule", 18)
			assert.Len(t, tmpl.Resources, len(Rules()))
			require.Contains(t, tmpl.Outputs, "ComplianceRuleCount")
			assert.Equal(t, strconv.Itoa(len(Rules())), tmpl.Outputs["ComplianceRuleCount"].Value)
			assertions.AllResourcesProperties(t, tmpl, "AWS::Config::ConfigRule", map[string]any{
				"Source": map[string]any{"Owner": "AWS"},
			})
		})
	}
}

func TestCatalogue(t *testing.T) {
	ids := make(map[string]bool)
	identifiers := make(map[string]bool)
	names := make(map[string]bool)
	for _, r := range Rules() {
		assert.False(t, ids[r.ID], "duplicate ID %s", r.ID)
		assert.False(t, identifiers[r.Identifier], "duplicate identifier %s", r.Identifier)
		assert.False(t, names[r.Name("dev")], "duplicate name %s", r.Name("dev"))
		ids[r.ID] = true
		identifiers[r.Identifier] = true
		names[r.Name("dev")] = true

		assert.NotEmpty(t, r.Description, r.ID)
		assert.Contains(t, []string{MASTRM, PDPA}, r.Framework, r.ID)
		if r.Framework == MASTRM {
			assert.NotEmpty(t, r.Section, r.ID)
		}
	}
}

func TestRuleNames(t *testing.T) {
	tmpl := synth(t, profile.Prod())

	assert.Equal(t, "mas-trm-10-kms-rotation-prod", tmpl.Resources["KmsKeyRotation"].Properties["ConfigRuleName"])
	assert.Equal(t, "pdpa-rds-encryption-prod", tmpl.Resources["RdsEncryption"].Properties["ConfigRuleName"])
	assert.Equal(t, map[string]any{"Owner": "AWS", "SourceIdentifier": "CLOUD_TRAIL_ENCRYPTION_ENABLED"},
		tmpl.Resources["CloudTrailEncrypted"].Properties["Source"])
}

func TestPasswordPolicy(t *testing.T) {
	tmpl := synth(t, profile.Dev())

	assert.Equal(t, map[string]any{
		"RequireUppercaseCharacters": "true",
		"RequireLowercaseCharacters": "true",
		"RequireSymbols":             "true",
		"RequireNumbers":             "true",
		"MinimumPasswordLength":      "14",
		"PasswordReusePrevention":    "24",
		"MaxPasswordAge":             "90",
	}, tmpl.Resources["IamPasswordPolicy"].Properties["InputParameters"])
	assert.NotContains(t, tmpl.Resources["RootAccountMfa"].Properties, "InputParameters")
}

func TestScope(t *testing.T) {
	tmpl := synth(t, profile.Dev())

	assert.Equal(t, map[string]any{"ComplianceResourceTypes": []any{"AWS::S3::Bucket"}},
		tmpl.Resources["S3SslOnly"].Properties["Scope"])
	assert.NotContains(t, tmpl.Resources["CloudTrailEnabled"].Properties, "Scope")
}

func TestCoverage(t *testing.T) {
	coverage := Coverage()
	assert.Equal(t, "CMK_BACKING_KEY_ROTATION_ENABLED", coverage[KeyRotation])
	assert.Equal(t, "S3_BUCKET_LEVEL_PUBLIC_ACCESS_PROHIBITED", coverage[BucketPublicAccess])
	assert.Equal(t, "S3_BUCKET_SSL_REQUESTS_ONLY", coverage[BucketTLSOnly])
	assert.Equal(t, "INCOMING_SSH_DISABLED", coverage[RestrictedSSH])

	assert.Empty(t, Uncovered([]Property{KeyRotation, BucketEncryption, TrailValidation}))
	assert.Equal(t, []Property{"rds-backups"}, Uncovered([]Property{KeyRotation, "rds-backups"}))
}

func TestDeclaredProperties(t *testing.T) {
	tmpl := &kb.Template{Resources: map[string]kb.ResourceDef{
		"Key":          {Type: "AWS::KMS::Key", Properties: map[string]any{"EnableKeyRotation": true}},
		"UnrotatedKey": {Type: "AWS::KMS::Key", Properties: map[string]any{}},
		"Trail": {Type: "AWS::CloudTrail::Trail", Properties: map[string]any{
			"EnableLogFileValidation": true,
		}},
		"Policy": {Type: "AWS::S3::BucketPolicy", Properties: map[string]any{
			"PolicyDocument": map[string]any{"Statement": []any{map[string]any{
				"Effect":    "Deny",
				"Condition": map[string]any{"Bool": map[string]any{"aws:SecureTransport": "false"}},
			}}},
		}},
	}}

	assert.Equal(t, []Property{TrailEnabled, TrailValidation, KeyRotation, BucketTLSOnly},
		DeclaredProperties(tmpl))
}
