// Package sns contains AWS::SNS resource types.
package sns

import (
	kb "github.com/lex00/kiro-banking-go"
)

// Topic is an AWS::SNS::Topic.
type Topic struct {
	TopicName      string `json:"TopicName,omitempty"`
	DisplayName    string `json:"DisplayName,omitempty"`
	KmsMasterKeyId any    `json:"KmsMasterKeyId,omitempty"`
	Tags           []any  `json:"Tags,omitempty"`

	TopicArn kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Topic) ResourceType() string { return "AWS::SNS::Topic" }

// TopicPolicy is an AWS::SNS::TopicPolicy.
type TopicPolicy struct {
	PolicyDocument any   `json:"PolicyDocument,omitempty"`
	Topics         []any `json:"Topics,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (TopicPolicy) ResourceType() string { return "AWS::SNS::TopicPolicy" }
