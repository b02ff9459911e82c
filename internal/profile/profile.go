// Package profile holds the environment profiles the infrastructure is
// synthesized for.
//
// A profile is selected once per invocation, by name (dev, prod) or from a
// YAML file, and is never mutated afterwards.
package profile

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"regexp"
	"sort"
	"strings"
)

// AccountEnvVar is the environment variable holding the target account ID.
const AccountEnvVar = "AWS_ACCOUNT_ID"

var (
	// ErrAccountMissing is returned when AWS_ACCOUNT_ID is not set.
	ErrAccountMissing = errors.New(AccountEnvVar + " is not set")
	// ErrAccountInvalid is returned when AWS_ACCOUNT_ID is not a 12 digit ID.
	ErrAccountInvalid = errors.New(AccountEnvVar + " must be a 12 digit account ID")
	// ErrUnknownEnvironment is returned by Select for names other than dev and prod.
	ErrUnknownEnvironment = errors.New("unknown environment")
	// ErrInvalidProfile wraps every profile validation failure.
	ErrInvalidProfile = errors.New("invalid profile")
)

// InfrastructureServices are the endpoint services every environment gets
// regardless of profile. S3 is reached through a gateway endpoint instead.
var InfrastructureServices = []string{"logs", "kms", "sso", "sts"}

// GatewayService is the service reached through the gateway endpoint.
const GatewayService = "s3"

var (
	accountPattern = regexp.MustCompile(`^[0-9]{12}$`)
	namePattern    = regexp.MustCompile(`^[a-z][a-z0-9-]{0,15}$`)
	regionPattern  = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-[0-9]$`)
	servicePattern = regexp.MustCompile(`^[a-z0-9]+([.-][a-z0-9]+)*$`)
	vpceSvcPattern = regexp.MustCompile(`^vpce-svc-[0-9a-f]{8,17}$`)
	bundlePattern  = regexp.MustCompile(`^wsb-[0-9a-z]{8,63}$`)
)

// Profile is a named configuration bundle for one deployment environment.
type Profile struct {
	Name                 string            `yaml:"name" json:"name"`
	Region               string            `yaml:"region" json:"region"`
	VpcCIDR              string            `yaml:"vpcCidr" json:"vpcCidr"`
	Tags                 map[string]string `yaml:"tags" json:"tags"`
	ServiceEndpoints     []string          `yaml:"serviceEndpoints" json:"serviceEndpoints"`
	WorkspaceBundleID    string            `yaml:"workspaceBundleId,omitempty" json:"workspaceBundleId,omitempty"`
	AuditRetentionDays   int               `yaml:"auditRetentionDays" json:"auditRetentionDays"`
	EnableSecurityChecks bool              `yaml:"enableSecurityChecks" json:"enableSecurityChecks"`
}

func kiroEndpoints(region string) []string {
	return []string{
		"com.amazonaws." + region + ".q",
		"com.amazonaws." + region + ".codewhisperer",
		"com.amazonaws." + region + ".bedrock-runtime",
	}
}

// Dev is the development profile.
func Dev() Profile {
	return Profile{
		Name:    "dev",
		Region:  "ap-southeast-1",
		VpcCIDR: "10.0.0.0/16",
		Tags: map[string]string{
			"Environment": "Development",
			"Project":     "kiro-banking",
			"Compliance":  "MAS-TRM",
			"ManagedBy":   "kiro-banking",
		},
		ServiceEndpoints:     kiroEndpoints("ap-southeast-1"),
		AuditRetentionDays:   90,
		EnableSecurityChecks: true,
	}
}

// Prod is the production profile. Audit records are kept for seven years.
func Prod() Profile {
	return Profile{
		Name:    "prod",
		Region:  "ap-southeast-1",
		VpcCIDR: "10.1.0.0/16",
		Tags: map[string]string{
			"Environment": "Production",
			"Project":     "kiro-banking",
			"Compliance":  "MAS-TRM",
			"ManagedBy":   "kiro-banking",
		},
		ServiceEndpoints:     kiroEndpoints("ap-southeast-1"),
		WorkspaceBundleID:    "wsb-gm4b5tx0y",
		AuditRetentionDays:   2555,
		EnableSecurityChecks: true,
	}
}

// Names lists the built-in profile names.
func Names() []string {
	return []string{"dev", "prod"}
}

// Select returns a built-in profile by name. An empty name selects dev.
func Select(name string) (Profile, error) {
	switch name {
	case "", "dev":
		return Dev(), nil
	case "prod":
		return Prod(), nil
	default:
		return Profile{}, fmt.Errorf("%w %q (want one of %s)", ErrUnknownEnvironment, name, strings.Join(Names(), ", "))
	}
}

// AccountFromEnv reads the target account from AWS_ACCOUNT_ID.
func AccountFromEnv() (string, error) {
	account, ok := os.LookupEnv(AccountEnvVar)
	account = strings.TrimSpace(account)
	if !ok || account == "" {
		return "", ErrAccountMissing
	}
	if !accountPattern.MatchString(account) {
		return "", fmt.Errorf("%w, got %q", ErrAccountInvalid, account)
	}
	return account, nil
}

// ServiceName returns the short name of an endpoint service identifier:
// the part after "com.amazonaws.<region>." for AWS services, or the
// "vpce-svc-..." ID for PrivateLink endpoint services published as
// "com.amazonaws.vpce.<region>.vpce-svc-...".
func (p Profile) ServiceName(endpoint string) string {
	if name, ok := strings.CutPrefix(endpoint, p.endpointServicePrefix()); ok {
		return name
	}
	return strings.TrimPrefix(endpoint, p.awsServicePrefix())
}

func (p Profile) awsServicePrefix() string { return "com.amazonaws." + p.Region + "." }

func (p Profile) endpointServicePrefix() string { return "com.amazonaws.vpce." + p.Region + "." }

// EndpointService returns the full service identifier for a short name.
func (p Profile) EndpointService(name string) string {
	return "com.amazonaws." + p.Region + "." + name
}

// EndpointID turns a short service name into the PascalCase suffix of the
// endpoint's logical ID: "bedrock-runtime" becomes "BedrockRuntime".
func EndpointID(service string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(service, func(r rune) bool { return r == '-' || r == '.' }) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// Prefix parses VpcCIDR.
func (p Profile) Prefix() (netip.Prefix, error) {
	return netip.ParsePrefix(p.VpcCIDR)
}

// TagKeys returns the tag keys in sorted order.
func (p Profile) TagKeys() []string {
	keys := make([]string, 0, len(p.Tags))
	for k := range p.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate reports every problem with the profile at once.
func (p Profile) Validate() error {
	var errs []error

	if !namePattern.MatchString(p.Name) {
		errs = append(errs, fmt.Errorf("name %q must be lowercase alphanumeric with hyphens", p.Name))
	}
	if !regionPattern.MatchString(p.Region) {
		errs = append(errs, fmt.Errorf("region %q is not a region name", p.Region))
	}

	prefix, err := p.Prefix()
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("vpcCidr: %w", err))
	case !prefix.Addr().Is4():
		errs = append(errs, fmt.Errorf("vpcCidr %s is not IPv4", p.VpcCIDR))
	case prefix.Bits() < 16 || prefix.Bits() > 24:
		errs = append(errs, fmt.Errorf("vpcCidr %s must be between /16 and /24", p.VpcCIDR))
	case prefix.Masked() != prefix:
		errs = append(errs, fmt.Errorf("vpcCidr %s has host bits set (want %s)", p.VpcCIDR, prefix.Masked()))
	}

	if len(p.Tags) == 0 {
		errs = append(errs, errors.New("tags must not be empty"))
	}
	for _, k := range p.TagKeys() {
		switch {
		case k == "" || len(k) > 128:
			errs = append(errs, fmt.Errorf("tag key %q must be 1 to 128 characters", k))
		case strings.HasPrefix(strings.ToLower(k), "aws:"):
			errs = append(errs, fmt.Errorf("tag key %q uses the reserved aws: prefix", k))
		}
		if len(p.Tags[k]) > 256 {
			errs = append(errs, fmt.Errorf("tag %s value exceeds 256 characters", k))
		}
	}

	errs = append(errs, p.validateEndpoints()...)

	if p.AuditRetentionDays < 1 {
		errs = append(errs, fmt.Errorf("auditRetentionDays must be at least 1, got %d", p.AuditRetentionDays))
	}
	if p.WorkspaceBundleID != "" && !bundlePattern.MatchString(p.WorkspaceBundleID) {
		errs = append(errs, fmt.Errorf("workspaceBundleId %q is not a bundle ID", p.WorkspaceBundleID))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidProfile, p.Name, err)
	}
	return nil
}

func (p Profile) validateEndpoints() []error {
	var errs []error

	reserved := make(map[string]bool, len(InfrastructureServices)+1)
	for _, svc := range InfrastructureServices {
		reserved[EndpointID(svc)] = true
	}
	reserved[EndpointID(GatewayService)] = true

	seen := make(map[string]string, len(p.ServiceEndpoints))
	for _, endpoint := range p.ServiceEndpoints {
		var valid bool
		switch {
		case strings.HasPrefix(endpoint, p.endpointServicePrefix()):
			valid = vpceSvcPattern.MatchString(p.ServiceName(endpoint))
		case strings.HasPrefix(endpoint, p.awsServicePrefix()):
			valid = servicePattern.MatchString(p.ServiceName(endpoint))
		default:
			errs = append(errs, fmt.Errorf("service endpoint %q must start with %s or %s",
				endpoint, p.awsServicePrefix(), p.endpointServicePrefix()))
			continue
		}
		if !valid {
			errs = append(errs, fmt.Errorf("service endpoint %q has an invalid service name", endpoint))
			continue
		}
		name := p.ServiceName(endpoint)
		id := EndpointID(name)
		if reserved[id] {
			errs = append(errs, fmt.Errorf("service endpoint %q is already provided by the fixed infrastructure endpoints", endpoint))
			continue
		}
		if prev, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("service endpoint %q duplicates %q", endpoint, prev))
			continue
		}
		seen[id] = endpoint
	}
	return errs
}
