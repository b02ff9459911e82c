// Package s3 contains AWS::S3 resource types.
package s3

import (
	kb "github.com/lex00/kiro-banking-go"
)

// Bucket is an AWS::S3::Bucket.
type Bucket struct {
	BucketName                     any                                    `json:"BucketName,omitempty"`
	BucketEncryption               *Bucket_BucketEncryption               `json:"BucketEncryption,omitempty"`
	PublicAccessBlockConfiguration *Bucket_PublicAccessBlockConfiguration `json:"PublicAccessBlockConfiguration,omitempty"`
	VersioningConfiguration        *Bucket_VersioningConfiguration        `json:"VersioningConfiguration,omitempty"`
	ObjectLockEnabled              bool                                   `json:"ObjectLockEnabled,omitempty"`
	LoggingConfiguration           *Bucket_LoggingConfiguration           `json:"LoggingConfiguration,omitempty"`
	LifecycleConfiguration         *Bucket_LifecycleConfiguration         `json:"LifecycleConfiguration,omitempty"`
	OwnershipControls              *Bucket_OwnershipControls              `json:"OwnershipControls,omitempty"`
	Tags                           []any                                  `json:"Tags,omitempty"`

	Arn kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Bucket) ResourceType() string { return "AWS::S3::Bucket" }

// Bucket_BucketEncryption holds the default encryption rules.
type Bucket_BucketEncryption struct {
	ServerSideEncryptionConfiguration []Bucket_ServerSideEncryptionRule `json:"ServerSideEncryptionConfiguration"`
}

// Bucket_ServerSideEncryptionRule is a single default encryption rule.
type Bucket_ServerSideEncryptionRule struct {
	ServerSideEncryptionByDefault *Bucket_ServerSideEncryptionByDefault `json:"ServerSideEncryptionByDefault,omitempty"`
	BucketKeyEnabled              bool                                  `json:"BucketKeyEnabled,omitempty"`
}

// Bucket_ServerSideEncryptionByDefault selects AES256 or aws:kms.
type Bucket_ServerSideEncryptionByDefault struct {
	SSEAlgorithm   string `json:"SSEAlgorithm"`
	KMSMasterKeyID any    `json:"KMSMasterKeyID,omitempty"`
}

// Bucket_PublicAccessBlockConfiguration covers the four public access
// dimensions.
type Bucket_PublicAccessBlockConfiguration struct {
	BlockPublicAcls       bool `json:"BlockPublicAcls"`
	BlockPublicPolicy     bool `json:"BlockPublicPolicy"`
	IgnorePublicAcls      bool `json:"IgnorePublicAcls"`
	RestrictPublicBuckets bool `json:"RestrictPublicBuckets"`
}

// BlockAll blocks every public access dimension.
func BlockAll() *Bucket_PublicAccessBlockConfiguration {
	return &Bucket_PublicAccessBlockConfiguration{
		BlockPublicAcls:       true,
		BlockPublicPolicy:     true,
		IgnorePublicAcls:      true,
		RestrictPublicBuckets: true,
	}
}

// Bucket_VersioningConfiguration is "Enabled" or "Suspended".
type Bucket_VersioningConfiguration struct {
	Status string `json:"Status"`
}

// Bucket_LoggingConfiguration sends server access logs to another bucket.
type Bucket_LoggingConfiguration struct {
	DestinationBucketName any    `json:"DestinationBucketName,omitempty"`
	LogFilePrefix         string `json:"LogFilePrefix,omitempty"`
}

// Bucket_LifecycleConfiguration is an ordered set of lifecycle rules.
type Bucket_LifecycleConfiguration struct {
	Rules []Bucket_Rule `json:"Rules"`
}

// Bucket_Rule is a single lifecycle rule.
type Bucket_Rule struct {
	Id                             string                                 `json:"Id,omitempty"`
	Status                         string                                 `json:"Status"`
	ExpirationInDays               int                                    `json:"ExpirationInDays,omitempty"`
	Transitions                    []Bucket_Transition                    `json:"Transitions,omitempty"`
	NoncurrentVersionExpiration    *Bucket_NoncurrentVersionExpiration    `json:"NoncurrentVersionExpiration,omitempty"`
	AbortIncompleteMultipartUpload *Bucket_AbortIncompleteMultipartUpload `json:"AbortIncompleteMultipartUpload,omitempty"`
}

// Bucket_Transition moves objects to another storage class.
type Bucket_Transition struct {
	StorageClass     string `json:"StorageClass"`
	TransitionInDays int    `json:"TransitionInDays,omitempty"`
}

// Bucket_NoncurrentVersionExpiration expires old object versions.
type Bucket_NoncurrentVersionExpiration struct {
	NoncurrentDays int `json:"NoncurrentDays"`
}

// Bucket_AbortIncompleteMultipartUpload cleans up abandoned uploads.
type Bucket_AbortIncompleteMultipartUpload struct {
	DaysAfterInitiation int `json:"DaysAfterInitiation"`
}

// Bucket_OwnershipControls sets object ownership.
type Bucket_OwnershipControls struct {
	Rules []Bucket_OwnershipControlsRule `json:"Rules"`
}

// Bucket_OwnershipControlsRule is "BucketOwnerEnforced" for ACL-less buckets.
type Bucket_OwnershipControlsRule struct {
	ObjectOwnership string `json:"ObjectOwnership"`
}

// BucketPolicy is an AWS::S3::BucketPolicy.
type BucketPolicy struct {
	Bucket         any `json:"Bucket,omitempty"`
	PolicyDocument any `json:"PolicyDocument,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (BucketPolicy) ResourceType() string { return "AWS::S3::BucketPolicy" }
