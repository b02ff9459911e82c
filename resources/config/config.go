// Package config contains AWS::Config resource types.
package config

// ConfigRule is an AWS::Config::ConfigRule.
type ConfigRule struct {
	ConfigRuleName  string             `json:"ConfigRuleName,omitempty"`
	Description     string             `json:"Description,omitempty"`
	Source          *ConfigRule_Source `json:"Source,omitempty"`
	InputParameters map[string]any     `json:"InputParameters,omitempty"`
	Scope           *ConfigRule_Scope  `json:"Scope,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (ConfigRule) ResourceType() string { return "AWS::Config::ConfigRule" }

// ConfigRule_Source names the rule implementation. Owner "AWS" selects a
// managed rule by SourceIdentifier.
type ConfigRule_Source struct {
	Owner            string `json:"Owner"`
	SourceIdentifier string `json:"SourceIdentifier"`
}

// ConfigRule_Scope limits evaluation to the listed resource types.
type ConfigRule_Scope struct {
	ComplianceResourceTypes []string `json:"ComplianceResourceTypes,omitempty"`
}
