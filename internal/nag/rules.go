package nag

import (
	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/template"
)

// AllRules returns every rule in ID order.
func AllRules() []Rule {
	return []Rule{
		KeyRotation,
		KeyRetained,
		BucketPublicAccessBlock,
		BucketTLSOnly{},
		BucketEncryption,
		BucketAccessLogs,
		NoInternetGateway{},
		VpcFlowLogs{},
		UnrestrictedIngress{},
		AllowAllEgress{},
		TrailValidation,
		TrailEncryption,
		TopicEncryption,
		LogGroupEncryption,
		AlarmMissingData,
		BucketCustomerKey,
	}
}

// propertyRule flags every resource of one type whose properties fail ok.
type propertyRule struct {
	id          string
	description string
	severity    Severity
	cfnType     string
	message     string
	suggestion  string
	ok          func(res kb.ResourceDef) bool
}

func (r propertyRule) ID() string          { return r.id }
func (r propertyRule) Description() string { return r.description }
func (r propertyRule) Severity() Severity  { return r.severity }

func (r propertyRule) Check(stackName string, tmpl *kb.Template) []Finding {
	var findings []Finding
	for _, id := range resourcesOfType(tmpl, r.cfnType) {
		if !r.ok(tmpl.Resources[id]) {
			findings = append(findings, finding(stackName, id, r.id, r.severity, r.message, r.suggestion))
		}
	}
	return findings
}

// KeyRotation requires automatic rotation on KMS keys.
var KeyRotation = propertyRule{
	id:          "KBS001",
	description: "KMS keys rotate",
	severity:    SeverityError,
	cfnType:     "AWS::KMS::Key",
	message:     "key rotation is not enabled",
	suggestion:  "Set EnableKeyRotation: true",
	ok:          func(res kb.ResourceDef) bool { return res.Properties["EnableKeyRotation"] == true },
}

// KeyRetained requires keys to survive stack deletion and replacement.
var KeyRetained = propertyRule{
	id:          "KBS002",
	description: "KMS keys are retained",
	severity:    SeverityError,
	cfnType:     "AWS::KMS::Key",
	message:     "key would be deleted with the stack",
	suggestion:  "Declare the key with stack.Retain()",
	ok: func(res kb.ResourceDef) bool {
		return res.DeletionPolicy == "Retain" && res.UpdateReplacePolicy == "Retain"
	},
}

// BucketPublicAccessBlock requires all four public access blocks.
var BucketPublicAccessBlock = propertyRule{
	id:          "KBS003",
	description: "Buckets block all public access",
	severity:    SeverityError,
	cfnType:     "AWS::S3::Bucket",
	message:     "bucket does not block all public access",
	suggestion:  "Set PublicAccessBlockConfiguration: s3.BlockAll()",
	ok: func(res kb.ResourceDef) bool {
		block, _ := res.Properties["PublicAccessBlockConfiguration"].(map[string]any)
		for _, key := range []string{"BlockPublicAcls", "BlockPublicPolicy", "IgnorePublicAcls", "RestrictPublicBuckets"} {
			if block[key] != true {
				return false
			}
		}
		return true
	},
}

// BucketEncryption requires default server-side encryption.
var BucketEncryption = propertyRule{
	id:          "KBS005",
	description: "Buckets are encrypted",
	severity:    SeverityError,
	cfnType:     "AWS::S3::Bucket",
	message:     "bucket has no default encryption",
	suggestion:  "Set BucketEncryption with SSE-KMS or SSE-S3",
	ok: func(res kb.ResourceDef) bool {
		return sseAlgorithm(res) != ""
	},
}

// BucketAccessLogs requires server access logging.
var BucketAccessLogs = propertyRule{
	id:          "KBS006",
	description: "Buckets write server access logs",
	severity:    SeverityError,
	cfnType:     "AWS::S3::Bucket",
	message:     "bucket does not write server access logs",
	suggestion:  "Set LoggingConfiguration to the access log bucket",
	ok: func(res kb.ResourceDef) bool {
		_, ok := res.Properties["LoggingConfiguration"]
		return ok
	},
}

// TrailValidation requires log file validation on a multi-region trail.
var TrailValidation = propertyRule{
	id:          "KBS011",
	description: "Trails validate log files in every region",
	severity:    SeverityError,
	cfnType:     "AWS::CloudTrail::Trail",
	message:     "trail must validate log files and cover every region",
	suggestion:  "Set EnableLogFileValidation and IsMultiRegionTrail",
	ok: func(res kb.ResourceDef) bool {
		return res.Properties["EnableLogFileValidation"] == true && res.Properties["IsMultiRegionTrail"] == true
	},
}

// TrailEncryption requires KMS encryption of delivered logs.
var TrailEncryption = propertyRule{
	id:          "KBS012",
	description: "Trails are KMS encrypted",
	severity:    SeverityError,
	cfnType:     "AWS::CloudTrail::Trail",
	message:     "trail logs are not KMS encrypted",
	suggestion:  "Set KMSKeyId to the audit key",
	ok:          hasProperty("KMSKeyId"),
}

// TopicEncryption requires KMS encryption on topics.
var TopicEncryption = propertyRule{
	id:          "KBS013",
	description: "Topics are KMS encrypted",
	severity:    SeverityError,
	cfnType:     "AWS::SNS::Topic",
	message:     "topic is not KMS encrypted",
	suggestion:  "Set KmsMasterKeyId",
	ok:          hasProperty("KmsMasterKeyId"),
}

// LogGroupEncryption prefers a customer-managed key on log groups.
var LogGroupEncryption = propertyRule{
	id:          "KBS014",
	description: "Log groups use a customer-managed key",
	severity:    SeverityWarning,
	cfnType:     "AWS::Logs::LogGroup",
	message:     "log group uses the service-owned key",
	suggestion:  "Set KmsKeyId",
	ok:          hasProperty("KmsKeyId"),
}

// AlarmMissingData requires alarms to stay quiet when no data arrives.
var AlarmMissingData = propertyRule{
	id:          "KBS015",
	description: "Alarms treat missing data as not breaching",
	severity:    SeverityWarning,
	cfnType:     "AWS::CloudWatch::Alarm",
	message:     "alarm does not treat missing data as not breaching",
	suggestion:  `Set TreatMissingData: "notBreaching"`,
	ok: func(res kb.ResourceDef) bool {
		return res.Properties["TreatMissingData"] == "notBreaching"
	},
}

// BucketCustomerKey prefers SSE-KMS over SSE-S3.
var BucketCustomerKey = propertyRule{
	id:          "KBS016",
	description: "Buckets use a customer-managed key",
	severity:    SeverityWarning,
	cfnType:     "AWS::S3::Bucket",
	message:     "bucket is not encrypted with a customer-managed key",
	suggestion:  `Use SSEAlgorithm "aws:kms" with KMSMasterKeyID`,
	ok: func(res kb.ResourceDef) bool {
		return sseAlgorithm(res) == "aws:kms"
	},
}

func hasProperty(name string) func(kb.ResourceDef) bool {
	return func(res kb.ResourceDef) bool {
		_, ok := res.Properties[name]
		return ok
	}
}

func sseAlgorithm(res kb.ResourceDef) string {
	enc, _ := res.Properties["BucketEncryption"].(map[string]any)
	rules, _ := enc["ServerSideEncryptionConfiguration"].([]any)
	for _, raw := range rules {
		rule, _ := raw.(map[string]any)
		def, _ := rule["ServerSideEncryptionByDefault"].(map[string]any)
		if alg, _ := def["SSEAlgorithm"].(string); alg != "" {
			return alg
		}
	}
	return ""
}

// BucketTLSOnly requires a bucket policy that denies requests without TLS.
type BucketTLSOnly struct{}

func (r BucketTLSOnly) ID() string          { return "KBS004" }
func (r BucketTLSOnly) Description() string { return "Buckets deny requests without TLS" }
func (r BucketTLSOnly) Severity() Severity  { return SeverityError }

func (r BucketTLSOnly) Check(stackName string, tmpl *kb.Template) []Finding {
	enforced := make(map[string]bool)
	for _, id := range resourcesOfType(tmpl, "AWS::S3::BucketPolicy") {
		props := tmpl.Resources[id].Properties
		if bucket := refName(props["Bucket"]); bucket != "" && template.DeniesInsecureTransport(props["PolicyDocument"]) {
			enforced[bucket] = true
		}
	}

	var findings []Finding
	for _, id := range resourcesOfType(tmpl, "AWS::S3::Bucket") {
		if !enforced[id] {
			findings = append(findings, finding(stackName, id, r.ID(), r.Severity(),
				"no bucket policy denies requests without TLS",
				"Add a bucket policy with intrinsics.DenyInsecureTransport"))
		}
	}
	return findings
}

// NoInternetGateway forbids any path to the public internet.
type NoInternetGateway struct{}

func (r NoInternetGateway) ID() string          { return "KBS007" }
func (r NoInternetGateway) Description() string { return "No internet or NAT gateways" }
func (r NoInternetGateway) Severity() Severity  { return SeverityError }

var internetPathTypes = []string{
	"AWS::EC2::InternetGateway",
	"AWS::EC2::NatGateway",
	"AWS::EC2::EgressOnlyInternetGateway",
	"AWS::EC2::VPCGatewayAttachment",
}

func (r NoInternetGateway) Check(stackName string, tmpl *kb.Template) []Finding {
	var findings []Finding
	for _, cfnType := range internetPathTypes {
		for _, id := range resourcesOfType(tmpl, cfnType) {
			findings = append(findings, finding(stackName, id, r.ID(), r.Severity(),
				cfnType+" opens a path to the public internet",
				"Reach AWS services through VPC endpoints instead"))
		}
	}
	return findings
}

// VpcFlowLogs requires a flow log on every VPC.
type VpcFlowLogs struct{}

func (r VpcFlowLogs) ID() string          { return "KBS008" }
func (r VpcFlowLogs) Description() string { return "VPCs have flow logs" }
func (r VpcFlowLogs) Severity() Severity  { return SeverityError }

func (r VpcFlowLogs) Check(stackName string, tmpl *kb.Template) []Finding {
	logged := make(map[string]bool)
	for _, id := range resourcesOfType(tmpl, "AWS::EC2::FlowLog") {
		if vpc := refName(tmpl.Resources[id].Properties["ResourceId"]); vpc != "" {
			logged[vpc] = true
		}
	}

	var findings []Finding
	for _, id := range resourcesOfType(tmpl, "AWS::EC2::VPC") {
		if !logged[id] {
			findings = append(findings, finding(stackName, id, r.ID(), r.Severity(),
				"VPC has no flow log", "Add an ec2.FlowLog with ResourceId referencing the VPC"))
		}
	}
	return findings
}

// UnrestrictedIngress forbids ingress from any address.
type UnrestrictedIngress struct{}

func (r UnrestrictedIngress) ID() string          { return "KBS009" }
func (r UnrestrictedIngress) Description() string { return "No unrestricted security group ingress" }
func (r UnrestrictedIngress) Severity() Severity  { return SeverityError }

func (r UnrestrictedIngress) Check(stackName string, tmpl *kb.Template) []Finding {
	var findings []Finding
	report := func(id string) {
		findings = append(findings, finding(stackName, id, r.ID(), r.Severity(),
			"ingress is open to any address", "Restrict ingress to a security group or VPC CIDR"))
	}

	for _, id := range resourcesOfType(tmpl, "AWS::EC2::SecurityGroup") {
		rules, _ := tmpl.Resources[id].Properties["SecurityGroupIngress"].([]any)
		for _, raw := range rules {
			if rule, _ := raw.(map[string]any); openToWorld(rule) {
				report(id)
				break
			}
		}
	}
	for _, id := range resourcesOfType(tmpl, "AWS::EC2::SecurityGroupIngress") {
		if openToWorld(tmpl.Resources[id].Properties) {
			report(id)
		}
	}
	return findings
}

// AllowAllEgress forbids the default allow-all egress rule and any egress
// to every address.
type AllowAllEgress struct{}

func (r AllowAllEgress) ID() string          { return "KBS010" }
func (r AllowAllEgress) Description() string { return "No allow-all security group egress" }
func (r AllowAllEgress) Severity() Severity  { return SeverityError }

func (r AllowAllEgress) Check(stackName string, tmpl *kb.Template) []Finding {
	var findings []Finding
	report := func(id, message string) {
		findings = append(findings, finding(stackName, id, r.ID(), r.Severity(), message,
			"Declare explicit egress rules to known destinations"))
	}

	for _, id := range resourcesOfType(tmpl, "AWS::EC2::SecurityGroup") {
		rules, ok := tmpl.Resources[id].Properties["SecurityGroupEgress"].([]any)
		if !ok || len(rules) == 0 {
			report(id, "security group keeps the default allow-all egress rule")
			continue
		}
		for _, raw := range rules {
			if rule, _ := raw.(map[string]any); openToWorld(rule) {
				report(id, "egress is open to any address")
				break
			}
		}
	}
	for _, id := range resourcesOfType(tmpl, "AWS::EC2::SecurityGroupEgress") {
		if openToWorld(tmpl.Resources[id].Properties) {
			report(id, "egress is open to any address")
		}
	}
	return findings
}

func openToWorld(rule map[string]any) bool {
	return rule["CidrIp"] == "0.0.0.0/0" || rule["CidrIpv6"] == "::/0"
}

// refName returns the logical ID of a {"Ref": id} value.
func refName(v any) string {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return ""
	}
	name, _ := m["Ref"].(string)
	return name
}
