// Package intrinsics provides CloudFormation intrinsic functions.
// This file contains IAM policy document types and helpers.
package intrinsics

import (
	"encoding/json"
)

// Json is a shorthand for map[string]any.
// Used for inline JSON objects like Condition blocks.
//
// Example:
//
//	Condition: Json{
//	    Bool: Json{"aws:SecureTransport": false},
//	}
type Json = map[string]any

// Any creates a []any slice from the given items.
// Use for fields typed as []any that accept mixed types or intrinsics.
//
// Example:
//
//	SubnetIds: Any(EndpointsSubnet1, EndpointsSubnet2),
func Any(items ...any) []any {
	return items
}

// PolicyDocument represents an IAM policy document.
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...any) PolicyDocument {
	return PolicyDocument{Version: "2012-10-17", Statement: statements}
}

// Statements returns the statements as PolicyStatement values, skipping
// anything that is not a PolicyStatement or DenyStatement.
func (d PolicyDocument) Statements() []PolicyStatement {
	var out []PolicyStatement
	for _, s := range d.Statement {
		switch st := s.(type) {
		case PolicyStatement:
			out = append(out, st)
		case DenyStatement:
			out = append(out, PolicyStatement(st))
		}
	}
	return out
}

// PolicyStatement represents an IAM policy statement.
//
// Example:
//
//	var AllowCloudTrailEncrypt = PolicyStatement{
//	    Effect:    "Allow",
//	    Principal: ServicePrincipal{"cloudtrail.amazonaws.com"},
//	    Action:    []any{"kms:GenerateDataKey*", "kms:DescribeKey"},
//	    Resource:  "*",
//	}
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
	Condition Json   `json:"Condition,omitempty"`
}

// DenyStatement is a PolicyStatement with Effect="Deny".
type DenyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
	Condition Json   `json:"Condition,omitempty"`
}

// NewDenyStatement creates a DenyStatement with Effect pre-set.
func NewDenyStatement() DenyStatement {
	return DenyStatement{Effect: "Deny"}
}

// DenyInsecureTransport denies every action on the given resources when the
// request was not made over TLS.
func DenyInsecureTransport(action string, resources ...any) DenyStatement {
	deny := NewDenyStatement()
	deny.Sid = "DenyInsecureTransport"
	deny.Principal = AWSPrincipal{AllPrincipal}
	deny.Action = action
	deny.Resource = resources
	deny.Condition = Json{
		Bool: Json{"aws:SecureTransport": "false"},
	}
	return deny
}

// --- Principal Helpers ---

// ServicePrincipal represents a service principal (e.g., cloudtrail.amazonaws.com).
// Serializes to {"Service": ...} format.
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}

// AWSPrincipal represents an AWS account/role/user principal.
// Serializes to {"AWS": ...} format.
//
// Examples:
//
//	AWSPrincipal{AccountRootARN}
//	AWSPrincipal{"*"}
type AWSPrincipal []any

// MarshalJSON serializes to {"AWS": ...} format.
func (p AWSPrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"AWS": p[0]})
	}
	return json.Marshal(map[string]any{"AWS": []any(p)})
}

// AllPrincipal represents the wildcard principal "*".
const AllPrincipal = "*"

// --- IAM Condition Operator Constants ---
// Use these as keys in Condition maps.

const (
	StringEquals = "StringEquals"
	StringLike   = "StringLike"
	Bool         = "Bool"
	ArnLike      = "ArnLike"
)
