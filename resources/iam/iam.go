// Package iam contains AWS::IAM resource types.
package iam

import (
	kb "github.com/lex00/kiro-banking-go"
)

// Role is an AWS::IAM::Role.
type Role struct {
	RoleName                 string `json:"RoleName,omitempty"`
	Description              string `json:"Description,omitempty"`
	AssumeRolePolicyDocument any    `json:"AssumeRolePolicyDocument,omitempty"`
	Tags                     []any  `json:"Tags,omitempty"`

	Arn kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Role) ResourceType() string { return "AWS::IAM::Role" }

// Policy is an AWS::IAM::Policy attached to roles.
type Policy struct {
	PolicyName     string `json:"PolicyName,omitempty"`
	PolicyDocument any    `json:"PolicyDocument,omitempty"`
	Roles          []any  `json:"Roles,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (Policy) ResourceType() string { return "AWS::IAM::Policy" }
