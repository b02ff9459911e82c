package s3

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceTypes(t *testing.T) {
	assert.Equal(t, "AWS::S3::Bucket", Bucket{}.ResourceType())
	assert.Equal(t, "AWS::S3::BucketPolicy", BucketPolicy{}.ResourceType())
}

func TestBlockAll(t *testing.T) {
	block := BlockAll()
	assert.True(t, block.BlockPublicAcls)
	assert.True(t, block.BlockPublicPolicy)
	assert.True(t, block.IgnorePublicAcls)
	assert.True(t, block.RestrictPublicBuckets)
}

func TestBucketSerialization(t *testing.T) {
	bucket := Bucket{
		BucketName: "kiro-banking-access-logs-dev",
		BucketEncryption: &Bucket_BucketEncryption{
			ServerSideEncryptionConfiguration: []Bucket_ServerSideEncryptionRule{{
				ServerSideEncryptionByDefault: &Bucket_ServerSideEncryptionByDefault{SSEAlgorithm: "AES256"},
			}},
		},
		PublicAccessBlockConfiguration: BlockAll(),
		LifecycleConfiguration: &Bucket_LifecycleConfiguration{
			Rules: []Bucket_Rule{{
				Status:           "Enabled",
				ExpirationInDays: 365,
				Transitions:      []Bucket_Transition{{StorageClass: "GLACIER", TransitionInDays: 90}},
			}},
		},
	}

	data, err := json.Marshal(bucket)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "kiro-banking-access-logs-dev", parsed["BucketName"])
	assert.NotContains(t, parsed, "VersioningConfiguration")
	assert.NotContains(t, parsed, "ObjectLockEnabled")

	block := parsed["PublicAccessBlockConfiguration"].(map[string]any)
	assert.Len(t, block, 4)

	rules := parsed["LifecycleConfiguration"].(map[string]any)["Rules"].([]any)
	require.Len(t, rules, 1)
	assert.Equal(t, float64(365), rules[0].(map[string]any)["ExpirationInDays"])
}
