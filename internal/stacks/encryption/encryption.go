// Package encryption declares the customer-managed keys.
//
// Each key has rotation on, a 30 day deletion window and a retain policy.
// Key policies grant the account root administration and nothing else
// except the services that consume that particular key:
//
//	audit       cloudtrail, logs.<region>, cloudwatch (alarm notifications)
//	data        none
//	workspaces  workspaces
package encryption

import (
	"fmt"

	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/stacks"
	. "github.com/lex00/kiro-banking-go/intrinsics"
	"github.com/lex00/kiro-banking-go/resources/kms"
)

// PendingWindowInDays is the deletion waiting period of every key.
const PendingWindowInDays = 30

// Keys is the declared key material.
type Keys struct {
	Stack *stack.Stack

	Audit      *kms.Key
	Data       *kms.Key
	Workspaces *kms.Key

	AuditKeyArn      stack.Exported
	DataKeyArn       stack.Exported
	WorkspacesKeyArn stack.Exported
}

// Declare adds the encryption stack to app.
func Declare(app *stack.App, p profile.Profile) *Keys {
	env := app.Environment()
	s := app.NewStack(stacks.StackName(stacks.Encryption, p.Name),
		"KMS customer-managed keys for Kiro banking environment (MAS TRM Section 10)")

	keys := &Keys{Stack: s}

	keys.Audit = declareKey(s, p, "Audit", "audit",
		"Encrypts CloudTrail logs and audit data (MAS TRM Section 15)",
		allowCloudTrail(env), allowCloudWatchLogs(env), allowCloudWatchAlarms())
	keys.Data = declareKey(s, p, "Data", "data",
		"Encrypts Kiro data and code artifacts (MAS TRM Section 11.1)")
	keys.Workspaces = declareKey(s, p, "Workspaces", "workspaces",
		"Encrypts WorkSpaces root and user volumes (MAS TRM Section 8.5)",
		allowWorkSpaces())

	keys.AuditKeyArn = s.Export("AuditKeyArn", keys.Audit.Arn,
		stacks.ExportName("AuditKeyArn", p.Name), "KMS key ARN for audit log encryption")
	keys.DataKeyArn = s.Export("DataKeyArn", keys.Data.Arn,
		stacks.ExportName("DataKeyArn", p.Name), "KMS key ARN for data encryption")
	keys.WorkspacesKeyArn = s.Export("WorkspacesKeyArn", keys.Workspaces.Arn,
		stacks.ExportName("WorkspacesKeyArn", p.Name), "KMS key ARN for WorkSpaces encryption")

	return keys
}

func declareKey(s *stack.Stack, p profile.Profile, id, purpose, description string, grants ...any) *kms.Key {
	statements := append([]any{rootAdministration()}, grants...)
	key := &kms.Key{
		Description:         description,
		Enabled:             true,
		EnableKeyRotation:   true,
		KeySpec:             "SYMMETRIC_DEFAULT",
		KeyUsage:            "ENCRYPT_DECRYPT",
		PendingWindowInDays: PendingWindowInDays,
		KeyPolicy:           NewPolicyDocument(statements...),
	}
	s.Add(id+"Key", key, stack.Retain())
	s.Add(id+"KeyAlias", &kms.Alias{
		AliasName:   "alias/" + stacks.PhysicalName(p.Name, purpose),
		TargetKeyId: key.Arn,
	})
	return key
}

func rootAdministration() PolicyStatement {
	return PolicyStatement{
		Sid:       "EnableRootAccountAdministration",
		Effect:    "Allow",
		Principal: AWSPrincipal{AccountRootARN},
		Action:    "kms:*",
		Resource:  "*",
	}
}

func allowCloudTrail(env stack.Environment) PolicyStatement {
	return PolicyStatement{
		Sid:       "AllowCloudTrailEncrypt",
		Effect:    "Allow",
		Principal: ServicePrincipal{"cloudtrail.amazonaws.com"},
		Action:    []any{"kms:GenerateDataKey*", "kms:DescribeKey"},
		Resource:  "*",
		Condition: Json{
			StringLike: Json{
				"kms:EncryptionContext:aws:cloudtrail:arn": fmt.Sprintf("arn:aws:cloudtrail:%s:%s:trail/*", env.Region, env.Account),
			},
		},
	}
}

func allowCloudWatchLogs(env stack.Environment) PolicyStatement {
	return PolicyStatement{
		Sid:       "AllowCloudWatchLogs",
		Effect:    "Allow",
		Principal: ServicePrincipal{"logs." + env.Region + ".amazonaws.com"},
		Action: []any{
			"kms:Encrypt*",
			"kms:Decrypt*",
			"kms:ReEncrypt*",
			"kms:GenerateDataKey*",
			"kms:Describe*",
		},
		Resource: "*",
		Condition: Json{
			ArnLike: Json{
				"kms:EncryptionContext:aws:logs:arn": fmt.Sprintf("arn:aws:logs:%s:%s:log-group:*", env.Region, env.Account),
			},
		},
	}
}

func allowCloudWatchAlarms() PolicyStatement {
	return PolicyStatement{
		Sid:       "AllowCloudWatchAlarmNotifications",
		Effect:    "Allow",
		Principal: ServicePrincipal{"cloudwatch.amazonaws.com"},
		Action:    []any{"kms:Decrypt", "kms:GenerateDataKey*"},
		Resource:  "*",
	}
}

func allowWorkSpaces() PolicyStatement {
	return PolicyStatement{
		Sid:       "AllowWorkSpacesEncrypt",
		Effect:    "Allow",
		Principal: ServicePrincipal{"workspaces.amazonaws.com"},
		Action: []any{
			"kms:Encrypt",
			"kms:Decrypt",
			"kms:ReEncrypt*",
			"kms:GenerateDataKey*",
			"kms:CreateGrant",
			"kms:DescribeKey",
		},
		Resource: "*",
	}
}
