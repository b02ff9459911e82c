// Package cloudwatch contains AWS::CloudWatch resource types.
package cloudwatch

import (
	kb "github.com/lex00/kiro-banking-go"
)

// Alarm is an AWS::CloudWatch::Alarm on a single metric.
type Alarm struct {
	AlarmName          string  `json:"AlarmName,omitempty"`
	AlarmDescription   string  `json:"AlarmDescription,omitempty"`
	MetricName         string  `json:"MetricName,omitempty"`
	Namespace          string  `json:"Namespace,omitempty"`
	Statistic          string  `json:"Statistic,omitempty"`
	Period             int     `json:"Period,omitempty"`
	EvaluationPeriods  int     `json:"EvaluationPeriods"`
	Threshold          float64 `json:"Threshold"`
	ComparisonOperator string  `json:"ComparisonOperator"`
	TreatMissingData   string  `json:"TreatMissingData,omitempty"`
	AlarmActions       []any   `json:"AlarmActions,omitempty"`
	Tags               []any   `json:"Tags,omitempty"`

	Arn kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Alarm) ResourceType() string { return "AWS::CloudWatch::Alarm" }
