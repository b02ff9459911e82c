// Package kms contains AWS::KMS resource types.
package kms

import (
	kb "github.com/lex00/kiro-banking-go"
)

// Key is an AWS::KMS::Key.
type Key struct {
	Description         string `json:"Description,omitempty"`
	Enabled             bool   `json:"Enabled,omitempty"`
	EnableKeyRotation   bool   `json:"EnableKeyRotation,omitempty"`
	KeySpec             string `json:"KeySpec,omitempty"`
	KeyUsage            string `json:"KeyUsage,omitempty"`
	KeyPolicy           any    `json:"KeyPolicy,omitempty"`
	PendingWindowInDays int    `json:"PendingWindowInDays,omitempty"`
	Tags                []any  `json:"Tags,omitempty"`

	Arn   kb.AttrRef `json:"-"`
	KeyId kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Key) ResourceType() string { return "AWS::KMS::Key" }

// Alias is an AWS::KMS::Alias.
type Alias struct {
	AliasName   string `json:"AliasName,omitempty"`
	TargetKeyId any    `json:"TargetKeyId,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Alias) ResourceType() string { return "AWS::KMS::Alias" }
