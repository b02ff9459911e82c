package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/intrinsics"
	"github.com/lex00/kiro-banking-go/resources/kms"
	"github.com/lex00/kiro-banking-go/resources/s3"
)

func TestResource_SimpleStruct(t *testing.T) {
	props, err := Resource(kms.Alias{AliasName: "alias/kiro-banking-data-dev"})
	require.NoError(t, err)

	assert.Equal(t, "alias/kiro-banking-data-dev", props["AliasName"])
	assert.NotContains(t, props, "TargetKeyId")
}

func TestResource_OmitsAttrRefFields(t *testing.T) {
	key := kms.Key{
		EnableKeyRotation: true,
		Arn:               kb.AttrRef{Resource: "DataKey", Attribute: "Arn"},
	}

	props, err := Resource(&key)
	require.NoError(t, err)

	assert.Equal(t, true, props["EnableKeyRotation"])
	assert.NotContains(t, props, "Arn")
	assert.NotContains(t, props, "KeyId")
}

func TestResource_WithNestedStruct(t *testing.T) {
	bucket := s3.Bucket{
		VersioningConfiguration: &s3.Bucket_VersioningConfiguration{Status: "Enabled"},
	}

	props, err := Resource(bucket)
	require.NoError(t, err)

	versioning := props["VersioningConfiguration"].(map[string]any)
	assert.Equal(t, "Enabled", versioning["Status"])
	assert.NotContains(t, props, "PublicAccessBlockConfiguration")
}

func TestResource_WithIntrinsics(t *testing.T) {
	alias := kms.Alias{
		AliasName:   "alias/kiro-banking-audit-dev",
		TargetKeyId: intrinsics.Ref{LogicalName: "AuditKey"},
	}

	props, err := Resource(alias)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Ref": "AuditKey"}, props["TargetKeyId"])
}

func TestResource_WithAttrRefValue(t *testing.T) {
	alias := kms.Alias{
		TargetKeyId: kb.AttrRef{Resource: "AuditKey", Attribute: "Arn"},
	}

	props, err := Resource(alias)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"AuditKey", "Arn"}}, props["TargetKeyId"])
}

func TestResource_NonStruct(t *testing.T) {
	props, err := Resource("not a struct")
	require.NoError(t, err)
	assert.Nil(t, props)
}

func TestProperties_NormalizesNumbers(t *testing.T) {
	key := kms.Key{PendingWindowInDays: 30}

	props, err := Properties(key)
	require.NoError(t, err)
	assert.Equal(t, float64(30), props["PendingWindowInDays"])
}

func TestProperties_PolicyDocument(t *testing.T) {
	key := kms.Key{
		KeyPolicy: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
			Sid:       "AllowWorkSpacesEncrypt",
			Effect:    "Allow",
			Principal: intrinsics.ServicePrincipal{"workspaces.amazonaws.com"},
			Action:    []any{"kms:Encrypt", "kms:Decrypt"},
			Resource:  "*",
		}),
	}

	props, err := Properties(key)
	require.NoError(t, err)

	policy := props["KeyPolicy"].(map[string]any)
	assert.Equal(t, "2012-10-17", policy["Version"])
	statements := policy["Statement"].([]any)
	require.Len(t, statements, 1)
	stmt := statements[0].(map[string]any)
	assert.Equal(t, map[string]any{"Service": "workspaces.amazonaws.com"}, stmt["Principal"])
	assert.NotContains(t, stmt, "Condition")
}

func TestProperties_RejectsNonStruct(t *testing.T) {
	_, err := Properties(42)
	assert.Error(t, err)
}
