package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/assertions"
	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/stacks/encryption"
)

func synth(t *testing.T, p profile.Profile) (*Monitoring, *stack.Assembly) {
	t.Helper()
	app := stack.NewApp(stack.Environment{Name: p.Name, Account: "123456789012", Region: p.Region})
	keys := encryption.Declare(app, p)
	m := Declare(app, p, keys.AuditKeyArn)

	assembly, err := app.Synth()
	require.NoError(t, err)
	return m, assembly
}

func template(t *testing.T, p profile.Profile) *kb.Template {
	t.Helper()
	m, assembly := synth(t, p)
	return assembly.Stack(m.Stack.Name()).Template
}

var auditKeyImport = map[string]any{"Fn::ImportValue": "KiroBanking-AuditKeyArn-dev"}

func TestDependsOnEncryption(t *testing.T) {
	m, assembly := synth(t, profile.Dev())

	assert.Equal(t, []string{"KiroBanking-Encryption-dev", "KiroBanking-Monitoring-dev"}, assembly.StackNames())
	assert.Equal(t, []string{"KiroBanking-Encryption-dev"}, assembly.Stack(m.Stack.Name()).Dependencies)
}

func TestTrail(t *testing.T) {
	tmpl := template(t, profile.Dev())

	assertions.ResourceCountIs(t, tmpl, "AWS::CloudTrail::Trail", 1)
	assertions.HasResourceProperties(t, tmpl, "AWS::CloudTrail::Trail", map[string]any{
		"TrailName":                  "kiro-banking-audit-dev",
		"S3BucketName":               map[string]any{"Ref": "AuditLogBucket"},
		"S3KeyPrefix":                TrailKeyPrefix,
		"IsLogging":                  true,
		"IsMultiRegionTrail":         true,
		"IncludeGlobalServiceEvents": true,
		"EnableLogFileValidation":    true,
		"KMSKeyId":                   auditKeyImport,
		"CloudWatchLogsLogGroupArn":  map[string]any{"Fn::GetAtt": []any{"TrailLogGroup", "Arn"}},
	})
	assert.ElementsMatch(t, []string{"AuditLogBucketPolicy", "TrailLogsRolePolicy"},
		tmpl.Resources["KiroAuditTrail"].DependsOn)
}

func TestBuckets(t *testing.T) {
	tmpl := template(t, profile.Dev())

	assertions.ResourceCountIs(t, tmpl, "AWS::S3::Bucket", 2)
	assertions.AllResourcesProperties(t, tmpl, "AWS::S3::Bucket", map[string]any{
		"PublicAccessBlockConfiguration": map[string]any{
			"BlockPublicAcls":       true,
			"BlockPublicPolicy":     true,
			"IgnorePublicAcls":      true,
			"RestrictPublicBuckets": true,
		},
	})
	assertions.AllResources(t, tmpl, "AWS::S3::Bucket", map[string]any{
		"DeletionPolicy":      "Retain",
		"UpdateReplacePolicy": "Retain",
	})

	audit := tmpl.Resources["AuditLogBucket"].Properties
	assert.Equal(t, map[string]any{"Fn::Sub": "kiro-banking-audit-logs-dev-${AWS::AccountId}"}, audit["BucketName"])
	assert.Equal(t, true, audit["ObjectLockEnabled"])
	assert.Equal(t, map[string]any{"Status": "Enabled"}, audit["VersioningConfiguration"])
	assert.Equal(t, map[string]any{
		"DestinationBucketName": map[string]any{"Ref": "AccessLogBucket"},
		"LogFilePrefix":         AccessLogPrefix,
	}, audit["LoggingConfiguration"])
	assertions.HasResourceProperties(t, tmpl, "AWS::S3::Bucket", map[string]any{
		"BucketEncryption": map[string]any{
			"ServerSideEncryptionConfiguration": []any{map[string]any{
				"ServerSideEncryptionByDefault": map[string]any{
					"SSEAlgorithm":   "aws:kms",
					"KMSMasterKeyID": auditKeyImport,
				},
			}},
		},
	})

	access := tmpl.Resources["AccessLogBucket"]
	assert.Equal(t, map[string]any{
		"ServerSideEncryptionConfiguration": []any{map[string]any{
			"ServerSideEncryptionByDefault": map[string]any{"SSEAlgorithm": "AES256"},
		}},
	}, access.Properties["BucketEncryption"])
	assert.NotContains(t, access.Properties, "LoggingConfiguration")
	require.Contains(t, access.Metadata, stack.MetadataKey)
}

func TestBucketPolicies(t *testing.T) {
	tmpl := template(t, profile.Dev())

	assertions.ResourceCountIs(t, tmpl, "AWS::S3::BucketPolicy", 2)
	for _, id := range assertions.LogicalIDs(tmpl, "AWS::S3::BucketPolicy") {
		sids := statementIDs(t, tmpl.Resources[id].Properties["PolicyDocument"])
		assert.Contains(t, sids, "DenyInsecureTransport", id)
	}

	audit := statementIDs(t, tmpl.Resources["AuditLogBucketPolicy"].Properties["PolicyDocument"])
	assert.Equal(t, []string{"DenyInsecureTransport", "AWSCloudTrailAclCheck", "AWSCloudTrailWrite"}, audit)

	access := statementIDs(t, tmpl.Resources["AccessLogBucketPolicy"].Properties["PolicyDocument"])
	assert.Equal(t, []string{"DenyInsecureTransport", "AllowServerAccessLogDelivery"}, access)
}

func statementIDs(t *testing.T, doc any) []string {
	t.Helper()
	var sids []string
	for _, raw := range doc.(map[string]any)["Statement"].([]any) {
		sids = append(sids, raw.(map[string]any)["Sid"].(string))
	}
	return sids
}

func TestAuditLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		retention int
		classes   []string
	}{
		{"dev drops glacier at expiry", 90, []string{"STANDARD_IA"}},
		{"prod keeps both", 2555, []string{"STANDARD_IA", "GLACIER"}},
		{"short retention drops both", 30, nil},
		{"just past glacier", 91, []string{"STANDARD_IA", "GLACIER"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := AuditLifecycle(tt.retention)
			assert.Equal(t, tt.retention, rule.ExpirationInDays)

			var classes []string
			for _, tr := range rule.Transitions {
				classes = append(classes, tr.StorageClass)
				assert.Less(t, tr.TransitionInDays, tt.retention)
			}
			assert.Equal(t, tt.classes, classes)
		})
	}
}

func TestTrailLogGroup(t *testing.T) {
	tmpl := template(t, profile.Prod())

	assertions.HasResourceProperties(t, tmpl, "AWS::Logs::LogGroup", map[string]any{
		"LogGroupName":    "/kiro-banking/cloudtrail/prod",
		"RetentionInDays": TrailLogRetentionDays,
		"KmsKeyId":        map[string]any{"Fn::ImportValue": "KiroBanking-AuditKeyArn-prod"},
	})
	assert.Equal(t, "Retain", tmpl.Resources["TrailLogGroup"].DeletionPolicy)
}

func TestAlarms(t *testing.T) {
	m, assembly := synth(t, profile.Dev())
	tmpl := assembly.Stack(m.Stack.Name()).Template

	assertions.ResourceCountIs(t, tmpl, "AWS::SNS::Topic", 1)
	assertions.ResourceCountIs(t, tmpl, "AWS::CloudWatch::Alarm", 4)
	assertions.ResourceCountIs(t, tmpl, "AWS::Logs::MetricFilter", 4)
	assertions.HasResourceProperties(t, tmpl, "AWS::SNS::Topic", map[string]any{
		"TopicName":      "kiro-banking-security-alerts-dev",
		"KmsMasterKeyId": auditKeyImport,
	})
	assertions.AllResourcesProperties(t, tmpl, "AWS::CloudWatch::Alarm", map[string]any{
		"Namespace":          MetricNamespace,
		"Statistic":          "Sum",
		"Period":             300,
		"EvaluationPeriods":  1,
		"ComparisonOperator": "GreaterThanOrEqualToThreshold",
		"TreatMissingData":   "notBreaching",
		"AlarmActions":       []any{map[string]any{"Ref": "SecurityAlertsTopic"}},
	})
	assertions.AllResourcesProperties(t, tmpl, "AWS::Logs::MetricFilter", map[string]any{
		"LogGroupName": map[string]any{"Ref": "TrailLogGroup"},
	})

	thresholds := map[string]float64{}
	for _, id := range m.AlarmIDs {
		props := tmpl.Resources[id].Properties
		thresholds[props["AlarmName"].(string)] = props["Threshold"].(float64)
	}
	assert.Equal(t, map[string]float64{
		"kiro-banking-unauthorized-api-dev":  5,
		"kiro-banking-no-mfa-signin-dev":     1,
		"kiro-banking-iam-policy-change-dev": 1,
		"kiro-banking-sg-change-dev":         1,
	}, thresholds)
}

func TestTopicPolicy(t *testing.T) {
	tmpl := template(t, profile.Dev())

	doc := tmpl.Resources["SecurityAlertsTopicPolicy"].Properties["PolicyDocument"]
	assert.Equal(t, []string{"AllowCloudWatchAlarms", "DenyInsecureTransport"}, statementIDs(t, doc))
}

func TestResourceTotalAndOutputs(t *testing.T) {
	for _, p := range []profile.Profile{profile.Dev(), profile.Prod()} {
		t.Run(p.Name, func(t *testing.T) {
			tmpl := template(t, p)
			assert.Len(t, tmpl.Resources, 18)
			for _, name := range []string{"AuditLogBucketName", "TrailArn", "SecurityTopicArn"} {
				assert.Contains(t, tmpl.Outputs, name)
			}
			assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"KiroAuditTrail", "Arn"}}, tmpl.Outputs["TrailArn"].Value)
		})
	}
}
