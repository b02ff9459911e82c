// Package logs contains AWS::Logs resource types.
package logs

import (
	kb "github.com/lex00/kiro-banking-go"
)

// LogGroup is an AWS::Logs::LogGroup.
type LogGroup struct {
	LogGroupName    string `json:"LogGroupName,omitempty"`
	RetentionInDays int    `json:"RetentionInDays,omitempty"`
	KmsKeyId        any    `json:"KmsKeyId,omitempty"`
	Tags            []any  `json:"Tags,omitempty"`

	Arn kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (LogGroup) ResourceType() string { return "AWS::Logs::LogGroup" }

// MetricFilter is an AWS::Logs::MetricFilter.
type MetricFilter struct {
	FilterName            string                            `json:"FilterName,omitempty"`
	LogGroupName          any                               `json:"LogGroupName,omitempty"`
	FilterPattern         string                            `json:"FilterPattern"`
	MetricTransformations []MetricFilter_MetricTransformation `json:"MetricTransformations"`
}

// ResourceType returns the CloudFormation type.
func (MetricFilter) ResourceType() string { return "AWS::Logs::MetricFilter" }

// MetricFilter_MetricTransformation publishes a metric for each match.
type MetricFilter_MetricTransformation struct {
	MetricName      string `json:"MetricName"`
	MetricNamespace string `json:"MetricNamespace"`
	MetricValue     string `json:"MetricValue"`
}
