// Package cloudtrail contains AWS::CloudTrail resource types.
package cloudtrail

import (
	kb "github.com/lex00/kiro-banking-go"
)

// Trail is an AWS::CloudTrail::Trail.
type Trail struct {
	TrailName                  string `json:"TrailName,omitempty"`
	S3BucketName               any    `json:"S3BucketName,omitempty"`
	S3KeyPrefix                string `json:"S3KeyPrefix,omitempty"`
	IsLogging                  bool   `json:"IsLogging"`
	IsMultiRegionTrail         bool   `json:"IsMultiRegionTrail,omitempty"`
	IncludeGlobalServiceEvents bool   `json:"IncludeGlobalServiceEvents,omitempty"`
	EnableLogFileValidation    bool   `json:"EnableLogFileValidation,omitempty"`
	KMSKeyId                   any    `json:"KMSKeyId,omitempty"`
	CloudWatchLogsLogGroupArn  any    `json:"CloudWatchLogsLogGroupArn,omitempty"`
	CloudWatchLogsRoleArn      any    `json:"CloudWatchLogsRoleArn,omitempty"`
	Tags                       []any  `json:"Tags,omitempty"`

	Arn kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Trail) ResourceType() string { return "AWS::CloudTrail::Trail" }
