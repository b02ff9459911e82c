// Package publish uploads a written assembly to S3 so a deployment
// pipeline can pick the templates up.
//
// Objects land under <prefix>/<env>/ and are always encrypted with SSE-KMS.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	kb "github.com/lex00/kiro-banking-go"
	"github.com/lex00/kiro-banking-go/internal/stack"
)

// ErrBucketRequired is returned when no destination bucket is configured.
var ErrBucketRequired = errors.New("publish: bucket is required")

// PutObjectAPI is the part of the S3 client the publisher uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config configures a Publisher.
type Config struct {
	Bucket string
	// Prefix is prepended to every key. It may be empty.
	Prefix string
	// KMSKeyID selects the encryption key. Empty uses the bucket's default
	// aws:kms key.
	KMSKeyID string
	// Region overrides the region from the default credential chain.
	Region string
}

// Publisher uploads assemblies.
type Publisher struct {
	client PutObjectAPI
	cfg    Config
}

// New creates a publisher around an existing client.
func New(client PutObjectAPI, cfg Config) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}
	return &Publisher{client: client, cfg: cfg}, nil
}

// NewFromEnv creates a publisher using the default AWS configuration chain.
func NewFromEnv(ctx context.Context, cfg Config) (*Publisher, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return New(s3.NewFromConfig(awsCfg), cfg)
}

// Object is one uploaded file.
type Object struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

// KeyPrefix returns the key prefix objects for env are written under.
func (p *Publisher) KeyPrefix(env string) string {
	prefix := strings.Trim(p.cfg.Prefix, "/")
	if prefix == "" {
		return env + "/"
	}
	return prefix + "/" + env + "/"
}

// Publish uploads the templates listed in dir's manifest, then the
// manifest itself, so a reader never sees a manifest before its templates.
func (p *Publisher) Publish(ctx context.Context, dir string) ([]Object, error) {
	manifest, err := os.ReadFile(filepath.Join(dir, stack.ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m kb.Manifest
	if err := json.Unmarshal(manifest, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	prefix := p.KeyPrefix(m.Environment)
	var uploaded []Object
	for _, entry := range m.Stacks {
		data, err := os.ReadFile(filepath.Join(dir, entry.TemplateFile))
		if err != nil {
			return uploaded, fmt.Errorf("reading %s: %w", entry.TemplateFile, err)
		}
		obj, err := p.put(ctx, path.Join(prefix, entry.TemplateFile), data, contentType(entry.TemplateFile))
		if err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, obj)
	}

	obj, err := p.put(ctx, path.Join(prefix, stack.ManifestFile), manifest, "application/json")
	if err != nil {
		return uploaded, err
	}
	return append(uploaded, obj), nil
}

func (p *Publisher) put(ctx context.Context, key string, data []byte, ct string) (Object, error) {
	input := &s3.PutObjectInput{
		Bucket:               aws.String(p.cfg.Bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(ct),
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	}
	if p.cfg.KMSKeyID != "" {
		input.SSEKMSKeyId = aws.String(p.cfg.KMSKeyID)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("s3 put failed for %s: %w", key, err)
	}
	return Object{Key: key, Size: len(data)}, nil
}

func contentType(file string) string {
	if strings.HasSuffix(file, ".yaml") {
		return "application/x-yaml"
	}
	return "application/json"
}
