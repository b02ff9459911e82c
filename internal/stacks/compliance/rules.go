package compliance

// Framework names.
const (
	MASTRM = "MAS TRM"
	PDPA   = "PDPA"
)

// Property is a security property the other groupings declare and a rule
// checks against live state.
type Property string

// Declared security properties.
const (
	KeyRotation        Property = "kms-key-rotation"
	BucketEncryption   Property = "s3-bucket-encryption"
	BucketPublicAccess Property = "s3-public-access-block"
	BucketTLSOnly      Property = "s3-tls-only"
	VpcFlowLogs        Property = "vpc-flow-logs"
	RestrictedSSH      Property = "restricted-ssh"
	DefaultSGClosed    Property = "default-sg-closed"
	TrailEnabled       Property = "cloudtrail-enabled"
	TrailValidation    Property = "cloudtrail-log-validation"
	TrailEncryption    Property = "cloudtrail-encryption"
)

// Rule is one managed AWS Config rule mapped to the control it satisfies.
type Rule struct {
	// ID is the logical ID of the rule resource.
	ID string
	// Framework is MASTRM or PDPA.
	Framework string
	// Section is the MAS TRM section, empty for PDPA.
	Section string
	// Identifier is the AWS managed rule identifier.
	Identifier  string
	Slug        string
	Description string
	// InputParameters are passed to the managed rule as strings.
	InputParameters map[string]string
	// ResourceTypes scopes change-triggered rules. Periodic rules leave it
	// empty.
	ResourceTypes []string
	// Covers lists the declared properties this rule checks.
	Covers []Property
}

// Name returns the physical rule name for env, e.g.
// "mas-trm-10-kms-rotation-dev" or "pdpa-rds-encryption-dev".
func (r Rule) Name(env string) string {
	if r.Framework == PDPA {
		return "pdpa-" + r.Slug + "-" + env
	}
	return "mas-trm-" + r.Section + "-" + r.Slug + "-" + env
}

// Rules returns the rule catalogue in declaration order.
func Rules() []Rule {
	return []Rule{
		// Section 9: access control
		{
			ID:          "IamRootAccessKeyCheck",
			Framework:   MASTRM,
			Section:     "9",
			Identifier:  "IAM_ROOT_ACCESS_KEY_CHECK",
			Slug:        "iam-root-key",
			Description: "MAS TRM 9.1: Ensure root account does not have access keys",
		},
		{
			ID:          "MfaEnabledForConsole",
			Framework:   MASTRM,
			Section:     "9",
			Identifier:  "MFA_ENABLED_FOR_IAM_CONSOLE_ACCESS",
			Slug:        "mfa-console",
			Description: "MAS TRM 9.1: Ensure MFA is enabled for all IAM users with console access",
		},
		{
			ID:          "RootAccountMfa",
			Framework:   MASTRM,
			Section:     "9",
			Identifier:  "ROOT_ACCOUNT_MFA_ENABLED",
			Slug:        "root-mfa",
			Description: "MAS TRM 9.1: Ensure root account has MFA enabled",
		},
		{
			ID:          "IamPasswordPolicy",
			Framework:   MASTRM,
			Section:     "9",
			Identifier:  "IAM_PASSWORD_POLICY",
			Slug:        "password-policy",
			Description: "MAS TRM 9.1: Ensure IAM password policy meets banking standards",
			InputParameters: map[string]string{
				"RequireUppercaseCharacters": "true",
				"RequireLowercaseCharacters": "true",
				"RequireSymbols":             "true",
				"RequireNumbers":             "true",
				"MinimumPasswordLength":      "14",
				"PasswordReusePrevention":    "24",
				"MaxPasswordAge":             "90",
			},
		},
		{
			ID:            "IamNoInlinePolicy",
			Framework:     MASTRM,
			Section:       "9",
			Identifier:    "IAM_USER_NO_POLICIES_CHECK",
			Slug:          "no-user-policies",
			Description:   "MAS TRM 9.1: IAM policies should be attached to groups/roles, not users",
			ResourceTypes: []string{"AWS::IAM::User"},
		},

		// Section 10: cryptography
		{
			ID:          "KmsKeyRotation",
			Framework:   MASTRM,
			Section:     "10",
			Identifier:  "CMK_BACKING_KEY_ROTATION_ENABLED",
			Slug:        "kms-rotation",
			Description: "MAS TRM 10.1: Ensure KMS customer-managed key rotation is enabled",
			Covers:      []Property{KeyRotation},
		},

		// Section 11: data and network security
		{
			ID:            "S3BucketEncryption",
			Framework:     MASTRM,
			Section:       "11",
			Identifier:    "S3_BUCKET_SERVER_SIDE_ENCRYPTION_ENABLED",
			Slug:          "s3-encryption",
			Description:   "MAS TRM 11.1: Ensure all S3 buckets have server-side encryption",
			ResourceTypes: []string{"AWS::S3::Bucket"},
			Covers:        []Property{BucketEncryption},
		},
		{
			ID:            "S3PublicAccessProhibited",
			Framework:     MASTRM,
			Section:       "11",
			Identifier:    "S3_BUCKET_LEVEL_PUBLIC_ACCESS_PROHIBITED",
			Slug:          "s3-no-public-access",
			Description:   "MAS TRM 11.1: Ensure S3 buckets block public read and write access",
			ResourceTypes: []string{"AWS::S3::Bucket"},
			Covers:        []Property{BucketPublicAccess},
		},
		{
			ID:            "S3SslOnly",
			Framework:     MASTRM,
			Section:       "11",
			Identifier:    "S3_BUCKET_SSL_REQUESTS_ONLY",
			Slug:          "s3-ssl-only",
			Description:   "MAS TRM 10.1: Ensure S3 buckets require SSL/TLS connections",
			ResourceTypes: []string{"AWS::S3::Bucket"},
			Covers:        []Property{BucketTLSOnly},
		},
		{
			ID:          "VpcFlowLogsEnabled",
			Framework:   MASTRM,
			Section:     "11",
			Identifier:  "VPC_FLOW_LOGS_ENABLED",
			Slug:        "vpc-flow-logs",
			Description: "MAS TRM 11.2: Ensure VPC flow logs are enabled for network monitoring",
			Covers:      []Property{VpcFlowLogs},
		},
		{
			ID:            "NoUnrestrictedSsh",
			Framework:     MASTRM,
			Section:       "11",
			Identifier:    "INCOMING_SSH_DISABLED",
			Slug:          "no-open-ssh",
			Description:   "MAS TRM 11.2: Ensure security groups do not allow unrestricted SSH",
			ResourceTypes: []string{"AWS::EC2::SecurityGroup"},
			Covers:        []Property{RestrictedSSH},
		},
		{
			ID:            "RestrictDefaultSg",
			Framework:     MASTRM,
			Section:       "11",
			Identifier:    "VPC_DEFAULT_SECURITY_GROUP_CLOSED",
			Slug:          "default-sg-closed",
			Description:   "MAS TRM 11.2: Ensure default security group restricts all traffic",
			ResourceTypes: []string{"AWS::EC2::SecurityGroup"},
			Covers:        []Property{DefaultSGClosed},
		},
		{
			ID:          "EbsEncryption",
			Framework:   MASTRM,
			Section:     "11",
			Identifier:  "EC2_EBS_ENCRYPTION_BY_DEFAULT",
			Slug:        "ebs-encryption",
			Description: "MAS TRM 11.1: Ensure EBS volume encryption is enabled by default",
		},

		// Section 15: IT audit
		{
			ID:          "CloudTrailEnabled",
			Framework:   MASTRM,
			Section:     "15",
			Identifier:  "CLOUD_TRAIL_ENABLED",
			Slug:        "cloudtrail-enabled",
			Description: "MAS TRM 15.1: Ensure CloudTrail is enabled for audit logging",
			Covers:      []Property{TrailEnabled},
		},
		{
			ID:          "CloudTrailLogValidation",
			Framework:   MASTRM,
			Section:     "15",
			Identifier:  "CLOUD_TRAIL_LOG_FILE_VALIDATION_ENABLED",
			Slug:        "log-validation",
			Description: "MAS TRM 15.1: Ensure CloudTrail log file integrity validation is enabled",
			Covers:      []Property{TrailValidation},
		},
		{
			ID:          "CloudTrailEncrypted",
			Framework:   MASTRM,
			Section:     "15",
			Identifier:  "CLOUD_TRAIL_ENCRYPTION_ENABLED",
			Slug:        "cloudtrail-encrypted",
			Description: "MAS TRM 15.1/10.1: Ensure CloudTrail logs are encrypted with KMS",
			Covers:      []Property{TrailEncryption},
		},

		// PDPA: data protection
		{
			ID:            "RdsEncryption",
			Framework:     PDPA,
			Identifier:    "RDS_STORAGE_ENCRYPTED",
			Slug:          "rds-encryption",
			Description:   "PDPA: Ensure RDS instances have encryption at rest for personal data protection",
			ResourceTypes: []string{"AWS::RDS::DBInstance"},
		},
		{
			ID:            "RdsNoPublicAccess",
			Framework:     PDPA,
			Identifier:    "RDS_INSTANCE_PUBLIC_ACCESS_CHECK",
			Slug:          "rds-no-public",
			Description:   "PDPA: Ensure RDS instances are not publicly accessible",
			ResourceTypes: []string{"AWS::RDS::DBInstance"},
		},
	}
}

// Coverage maps each property to the identifier of the rule checking it.
func Coverage() map[Property]string {
	out := make(map[Property]string)
	for _, r := range Rules() {
		for _, p := range r.Covers {
			out[p] = r.Identifier
		}
	}
	return out
}

// Uncovered returns the properties no rule checks, in input order.
func Uncovered(props []Property) []Property {
	coverage := Coverage()
	var gaps []Property
	for _, p := range props {
		if _, ok := coverage[p]; !ok {
			gaps = append(gaps, p)
		}
	}
	return gaps
}
