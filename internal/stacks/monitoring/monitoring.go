// Package monitoring declares the audit trail, its storage and the security
// alarms.
//
// The trail writes to a KMS-encrypted, versioned, object-locked bucket and to
// a CloudWatch log group. Four metric filters on that log group feed alarms
// that notify the security topic.
package monitoring

import (
	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/stacks"
	. "github.com/lex00/kiro-banking-go/intrinsics"
	"github.com/lex00/kiro-banking-go/resources/cloudtrail"
	"github.com/lex00/kiro-banking-go/resources/cloudwatch"
	"github.com/lex00/kiro-banking-go/resources/iam"
	"github.com/lex00/kiro-banking-go/resources/logs"
	"github.com/lex00/kiro-banking-go/resources/s3"
	"github.com/lex00/kiro-banking-go/resources/sns"
)

const (
	// MetricNamespace holds every security metric.
	MetricNamespace = "KiroBanking/Security"
	// TrailLogRetentionDays is two years.
	TrailLogRetentionDays = 731
	// AccessLogExpirationDays is how long server access logs are kept.
	AccessLogExpirationDays = 365
	// AccessLogPrefix is where the audit bucket's access logs land.
	AccessLogPrefix = "audit-bucket-access/"
	// TrailKeyPrefix is the S3 prefix the trail writes under.
	TrailKeyPrefix = "cloudtrail"

	alarmPeriodSeconds = 300
)

// Alarm describes one security alarm and the metric filter feeding it.
type Alarm struct {
	ID          string
	Name        string
	Description string
	Metric      string
	Pattern     string
	Threshold   float64
}

// Alarms is the security alarm catalogue.
var Alarms = []Alarm{
	{
		ID:          "UnauthorizedApi",
		Name:        "unauthorized-api",
		Description: "MAS TRM 9.1: Alert on unauthorized API calls to Kiro services",
		Metric:      "UnauthorizedApiCalls",
		Pattern:     `{ ($.errorCode = "*UnauthorizedAccess") || ($.errorCode = "AccessDenied*") }`,
		Threshold:   5,
	},
	{
		ID:          "NoMfaSignIn",
		Name:        "no-mfa-signin",
		Description: "MAS TRM 9.1: Alert on console sign-in without MFA",
		Metric:      "ConsoleSignInWithoutMfa",
		Pattern:     `{ ($.eventName = "ConsoleLogin") && ($.additionalEventData.MFAUsed != "Yes") }`,
		Threshold:   1,
	},
	{
		ID:          "IamPolicyChange",
		Name:        "iam-policy-change",
		Description: "MAS TRM 9.1: Alert on IAM policy modifications",
		Metric:      "IamPolicyChanges",
		Pattern: "{ ($.eventName = CreatePolicy) || ($.eventName = DeletePolicy) || " +
			"($.eventName = AttachRolePolicy) || ($.eventName = DetachRolePolicy) || " +
			"($.eventName = AttachUserPolicy) || ($.eventName = DetachUserPolicy) || " +
			"($.eventName = PutUserPolicy) || ($.eventName = PutRolePolicy) }",
		Threshold: 1,
	},
	{
		ID:          "SgChange",
		Name:        "sg-change",
		Description: "MAS TRM 11.2: Alert on security group modifications",
		Metric:      "SecurityGroupChanges",
		Pattern: "{ ($.eventName = AuthorizeSecurityGroupIngress) || ($.eventName = AuthorizeSecurityGroupEgress) || " +
			"($.eventName = RevokeSecurityGroupIngress) || ($.eventName = RevokeSecurityGroupEgress) || " +
			"($.eventName = CreateSecurityGroup) || ($.eventName = DeleteSecurityGroup) }",
		Threshold: 1,
	},
}

// Monitoring is the declared audit stack.
type Monitoring struct {
	Stack *stack.Stack

	Topic           *sns.Topic
	AccessLogBucket *s3.Bucket
	AuditLogBucket  *s3.Bucket
	TrailLogGroup   *logs.LogGroup
	Trail           *cloudtrail.Trail

	// AlarmIDs are the alarm logical IDs in catalogue order.
	AlarmIDs []string
}

// Declare adds the monitoring stack to app. auditKey is the exported ARN
// of the key that encrypts the trail, its bucket, log group and topic.
func Declare(app *stack.App, p profile.Profile, auditKey stack.Exported) *Monitoring {
	s := app.NewStack(stacks.StackName(stacks.Monitoring, p.Name),
		"CloudTrail audit logging and CloudWatch alarms for Kiro (MAS TRM Section 12, 15)")
	m := &Monitoring{Stack: s}
	key := s.Import(auditKey)

	topic := m.declareTopic(s, p, key)
	accessLogs := m.declareAccessLogBucket(s, p)
	auditLogs := m.declareAuditLogBucket(s, p, key, accessLogs)
	group := m.declareTrail(s, p, key, auditLogs)
	m.declareAlarms(s, p, group, topic)

	s.Output("AuditLogBucketName", auditLogs, "S3 bucket for CloudTrail audit logs")
	s.Output("TrailArn", m.Trail.Arn, "CloudTrail trail ARN")
	s.Output("SecurityTopicArn", topic, "SNS topic ARN for security alerts")

	return m
}

func (m *Monitoring) declareTopic(s *stack.Stack, p profile.Profile, key any) Ref {
	m.Topic = &sns.Topic{
		TopicName:      stacks.PhysicalName(p.Name, "security-alerts"),
		DisplayName:    "Kiro Banking Security Alerts",
		KmsMasterKeyId: key,
	}
	topic := s.Add("SecurityAlertsTopic", m.Topic)

	s.Add("SecurityAlertsTopicPolicy", &sns.TopicPolicy{
		Topics: Any(topic),
		PolicyDocument: NewPolicyDocument(
			PolicyStatement{
				Sid:       "AllowCloudWatchAlarms",
				Effect:    "Allow",
				Principal: ServicePrincipal{"cloudwatch.amazonaws.com"},
				Action:    "sns:Publish",
				Resource:  topic,
				Condition: Json{
					StringEquals: Json{"aws:SourceAccount": AWS_ACCOUNT_ID},
				},
			},
			DenyInsecureTransport("sns:Publish", topic),
		),
	})
	return topic
}

// declareAccessLogBucket is the destination of the audit bucket's server
// access logs. It cannot log to itself and S3 log delivery only writes to
// SSE-S3 buckets, hence the two suppressions.
func (m *Monitoring) declareAccessLogBucket(s *stack.Stack, p profile.Profile) Ref {
	m.AccessLogBucket = &s3.Bucket{
		BucketName: Sub{String: stacks.PhysicalName(p.Name, "access-logs") + "-${AWS::AccountId}"},
		BucketEncryption: &s3.Bucket_BucketEncryption{
			ServerSideEncryptionConfiguration: []s3.Bucket_ServerSideEncryptionRule{{
				ServerSideEncryptionByDefault: &s3.Bucket_ServerSideEncryptionByDefault{SSEAlgorithm: "AES256"},
			}},
		},
		PublicAccessBlockConfiguration: s3.BlockAll(),
		OwnershipControls:              bucketOwnerEnforced(),
		LifecycleConfiguration: &s3.Bucket_LifecycleConfiguration{
			Rules: []s3.Bucket_Rule{{
				Id:               "ExpireAccessLogs",
				Status:           "Enabled",
				ExpirationInDays: AccessLogExpirationDays,
				Transitions:      []s3.Bucket_Transition{{StorageClass: "GLACIER", TransitionInDays: 90}},
			}},
		},
	}
	return s.Add("AccessLogBucket", m.AccessLogBucket, stack.Retain(),
		stack.Suppress("KBS006", "This is the access log bucket and cannot log to itself"),
		stack.Suppress("KBS016", "S3 server access log delivery requires SSE-S3 on the destination bucket"))
}

func (m *Monitoring) declareAuditLogBucket(s *stack.Stack, p profile.Profile, key any, accessLogs Ref) Ref {
	m.AuditLogBucket = &s3.Bucket{
		BucketName: Sub{String: stacks.PhysicalName(p.Name, "audit-logs") + "-${AWS::AccountId}"},
		BucketEncryption: &s3.Bucket_BucketEncryption{
			ServerSideEncryptionConfiguration: []s3.Bucket_ServerSideEncryptionRule{{
				ServerSideEncryptionByDefault: &s3.Bucket_ServerSideEncryptionByDefault{
					SSEAlgorithm:   "aws:kms",
					KMSMasterKeyID: key,
				},
				BucketKeyEnabled: true,
			}},
		},
		PublicAccessBlockConfiguration: s3.BlockAll(),
		OwnershipControls:              bucketOwnerEnforced(),
		VersioningConfiguration:        &s3.Bucket_VersioningConfiguration{Status: "Enabled"},
		ObjectLockEnabled:              true,
		LoggingConfiguration: &s3.Bucket_LoggingConfiguration{
			DestinationBucketName: accessLogs,
			LogFilePrefix:         AccessLogPrefix,
		},
		LifecycleConfiguration: &s3.Bucket_LifecycleConfiguration{
			Rules: []s3.Bucket_Rule{AuditLifecycle(p.AuditRetentionDays)},
		},
	}
	bucket := s.Add("AuditLogBucket", m.AuditLogBucket, stack.Retain())

	s.Add("AccessLogBucketPolicy", &s3.BucketPolicy{
		Bucket: accessLogs,
		PolicyDocument: NewPolicyDocument(
			DenyInsecureTransport("s3:*", m.AccessLogBucket.Arn, objects(m.AccessLogBucket.Arn)),
			PolicyStatement{
				Sid:       "AllowServerAccessLogDelivery",
				Effect:    "Allow",
				Principal: ServicePrincipal{"logging.s3.amazonaws.com"},
				Action:    "s3:PutObject",
				Resource:  objects(m.AccessLogBucket.Arn),
				Condition: Json{
					ArnLike:      Json{"aws:SourceArn": m.AuditLogBucket.Arn},
					StringEquals: Json{"aws:SourceAccount": AWS_ACCOUNT_ID},
				},
			},
		),
	})

	trailArn := Sub{String: "arn:${AWS::Partition}:cloudtrail:${AWS::Region}:${AWS::AccountId}:trail/" + trailName(p)}
	s.Add("AuditLogBucketPolicy", &s3.BucketPolicy{
		Bucket: bucket,
		PolicyDocument: NewPolicyDocument(
			DenyInsecureTransport("s3:*", m.AuditLogBucket.Arn, objects(m.AuditLogBucket.Arn)),
			PolicyStatement{
				Sid:       "AWSCloudTrailAclCheck",
				Effect:    "Allow",
				Principal: ServicePrincipal{"cloudtrail.amazonaws.com"},
				Action:    "s3:GetBucketAcl",
				Resource:  m.AuditLogBucket.Arn,
				Condition: Json{StringEquals: Json{"aws:SourceArn": trailArn}},
			},
			PolicyStatement{
				Sid:       "AWSCloudTrailWrite",
				Effect:    "Allow",
				Principal: ServicePrincipal{"cloudtrail.amazonaws.com"},
				Action:    "s3:PutObject",
				Resource: Join{Delimiter: "", Values: []any{
					m.AuditLogBucket.Arn, "/" + TrailKeyPrefix + "/AWSLogs/", AWS_ACCOUNT_ID, "/*",
				}},
				Condition: Json{StringEquals: Json{
					"s3:x-amz-acl":  "bucket-owner-full-control",
					"aws:SourceArn": trailArn,
				}},
			},
		),
	})
	return bucket
}

// AuditLifecycle moves audit logs to STANDARD_IA at 30 days and GLACIER at
// 90, then expires them after retentionDays. A transition that would not
// happen strictly before expiry is left out.
func AuditLifecycle(retentionDays int) s3.Bucket_Rule {
	rule := s3.Bucket_Rule{
		Id:               "AuditLogRetention",
		Status:           "Enabled",
		ExpirationInDays: retentionDays,
	}
	for _, t := range []s3.Bucket_Transition{
		{StorageClass: "STANDARD_IA", TransitionInDays: 30},
		{StorageClass: "GLACIER", TransitionInDays: 90},
	} {
		if t.TransitionInDays < retentionDays {
			rule.Transitions = append(rule.Transitions, t)
		}
	}
	return rule
}

func (m *Monitoring) declareTrail(s *stack.Stack, p profile.Profile, key any, bucket Ref) Ref {
	m.TrailLogGroup = &logs.LogGroup{
		LogGroupName:    "/kiro-banking/cloudtrail/" + p.Name,
		RetentionInDays: TrailLogRetentionDays,
		KmsKeyId:        key,
	}
	group := s.Add("TrailLogGroup", m.TrailLogGroup, stack.Retain())

	role := &iam.Role{
		Description: "Delivers CloudTrail events to CloudWatch Logs",
		AssumeRolePolicyDocument: NewPolicyDocument(PolicyStatement{
			Effect:    "Allow",
			Principal: ServicePrincipal{"cloudtrail.amazonaws.com"},
			Action:    "sts:AssumeRole",
		}),
	}
	roleRef := s.Add("TrailLogsRole", role)
	s.Add("TrailLogsRolePolicy", &iam.Policy{
		PolicyName: "cloudtrail-log-delivery",
		PolicyDocument: NewPolicyDocument(PolicyStatement{
			Effect:   "Allow",
			Action:   []any{"logs:CreateLogStream", "logs:PutLogEvents"},
			Resource: m.TrailLogGroup.Arn,
		}),
		Roles: Any(roleRef),
	})

	m.Trail = &cloudtrail.Trail{
		TrailName:                  trailName(p),
		S3BucketName:               bucket,
		S3KeyPrefix:                TrailKeyPrefix,
		IsLogging:                  true,
		IsMultiRegionTrail:         true,
		IncludeGlobalServiceEvents: true,
		EnableLogFileValidation:    true,
		KMSKeyId:                   key,
		CloudWatchLogsLogGroupArn:  m.TrailLogGroup.Arn,
		CloudWatchLogsRoleArn:      role.Arn,
	}
	s.Add("KiroAuditTrail", m.Trail, stack.DependsOn("AuditLogBucketPolicy", "TrailLogsRolePolicy"))

	return group
}

func (m *Monitoring) declareAlarms(s *stack.Stack, p profile.Profile, group, topic Ref) {
	for _, a := range Alarms {
		s.Add(a.ID+"Filter", &logs.MetricFilter{
			LogGroupName:  group,
			FilterPattern: a.Pattern,
			MetricTransformations: []logs.MetricFilter_MetricTransformation{{
				MetricName:      a.Metric,
				MetricNamespace: MetricNamespace,
				MetricValue:     "1",
			}},
		})

		id := a.ID + "Alarm"
		s.Add(id, &cloudwatch.Alarm{
			AlarmName:          stacks.PhysicalName(p.Name, a.Name),
			AlarmDescription:   a.Description,
			MetricName:         a.Metric,
			Namespace:          MetricNamespace,
			Statistic:          "Sum",
			Period:             alarmPeriodSeconds,
			EvaluationPeriods:  1,
			Threshold:          a.Threshold,
			ComparisonOperator: "GreaterThanOrEqualToThreshold",
			TreatMissingData:   "notBreaching",
			AlarmActions:       Any(topic),
		}, stack.DependsOn(a.ID+"Filter"))
		m.AlarmIDs = append(m.AlarmIDs, id)
	}
}

func trailName(p profile.Profile) string {
	return stacks.PhysicalName(p.Name, "audit")
}

func objects(bucketArn any) Join {
	return Join{Delimiter: "", Values: []any{bucketArn, "/*"}}
}

func bucketOwnerEnforced() *s3.Bucket_OwnershipControls {
	return &s3.Bucket_OwnershipControls{
		Rules: []s3.Bucket_OwnershipControlsRule{{ObjectOwnership: "BucketOwnerEnforced"}},
	}
}
