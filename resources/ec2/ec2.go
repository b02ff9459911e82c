// Package ec2 contains the AWS::EC2 networking resource types.
package ec2

import (
	kb "github.com/lex00/kiro-banking-go"
)

// VPC is an AWS::EC2::VPC.
type VPC struct {
	CidrBlock          any    `json:"CidrBlock,omitempty"`
	EnableDnsHostnames bool   `json:"EnableDnsHostnames,omitempty"`
	EnableDnsSupport   bool   `json:"EnableDnsSupport,omitempty"`
	InstanceTenancy    string `json:"InstanceTenancy,omitempty"`
	Tags               []any  `json:"Tags,omitempty"`

	DefaultSecurityGroup kb.AttrRef `json:"-"`
	VpcId                kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (VPC) ResourceType() string { return "AWS::EC2::VPC" }

// Subnet is an AWS::EC2::Subnet.
type Subnet struct {
	VpcId               any   `json:"VpcId,omitempty"`
	CidrBlock           any   `json:"CidrBlock,omitempty"`
	AvailabilityZone    any   `json:"AvailabilityZone,omitempty"`
	MapPublicIpOnLaunch bool  `json:"MapPublicIpOnLaunch,omitempty"`
	Tags                []any `json:"Tags,omitempty"`

	SubnetId kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (Subnet) ResourceType() string { return "AWS::EC2::Subnet" }

// RouteTable is an AWS::EC2::RouteTable.
type RouteTable struct {
	VpcId any   `json:"VpcId,omitempty"`
	Tags  []any `json:"Tags,omitempty"`

	RouteTableId kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (RouteTable) ResourceType() string { return "AWS::EC2::RouteTable" }

// SubnetRouteTableAssociation is an AWS::EC2::SubnetRouteTableAssociation.
type SubnetRouteTableAssociation struct {
	RouteTableId any `json:"RouteTableId,omitempty"`
	SubnetId     any `json:"SubnetId,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (SubnetRouteTableAssociation) ResourceType() string {
	return "AWS::EC2::SubnetRouteTableAssociation"
}

// SecurityGroup is an AWS::EC2::SecurityGroup.
type SecurityGroup struct {
	GroupDescription     string                  `json:"GroupDescription,omitempty"`
	GroupName            string                  `json:"GroupName,omitempty"`
	VpcId                any                     `json:"VpcId,omitempty"`
	SecurityGroupIngress []SecurityGroup_Ingress `json:"SecurityGroupIngress,omitempty"`
	SecurityGroupEgress  []SecurityGroup_Egress  `json:"SecurityGroupEgress,omitempty"`
	Tags                 []any                   `json:"Tags,omitempty"`

	GroupId kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (SecurityGroup) ResourceType() string { return "AWS::EC2::SecurityGroup" }

// SecurityGroup_Ingress is an inline ingress rule.
type SecurityGroup_Ingress struct {
	CidrIp                string `json:"CidrIp,omitempty"`
	Description           string `json:"Description,omitempty"`
	IpProtocol            string `json:"IpProtocol"`
	FromPort              int    `json:"FromPort,omitempty"`
	ToPort                int    `json:"ToPort,omitempty"`
	SourceSecurityGroupId any    `json:"SourceSecurityGroupId,omitempty"`
}

// SecurityGroup_Egress is an inline egress rule.
type SecurityGroup_Egress struct {
	CidrIp                     string `json:"CidrIp,omitempty"`
	Description                string `json:"Description,omitempty"`
	IpProtocol                 string `json:"IpProtocol"`
	FromPort                   int    `json:"FromPort,omitempty"`
	ToPort                     int    `json:"ToPort,omitempty"`
	DestinationSecurityGroupId any    `json:"DestinationSecurityGroupId,omitempty"`
}

// SecurityGroupIngress is a standalone AWS::EC2::SecurityGroupIngress rule.
type SecurityGroupIngress struct {
	GroupId               any    `json:"GroupId,omitempty"`
	Description           string `json:"Description,omitempty"`
	IpProtocol            string `json:"IpProtocol"`
	FromPort              int    `json:"FromPort,omitempty"`
	ToPort                int    `json:"ToPort,omitempty"`
	CidrIp                string `json:"CidrIp,omitempty"`
	SourceSecurityGroupId any    `json:"SourceSecurityGroupId,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (SecurityGroupIngress) ResourceType() string { return "AWS::EC2::SecurityGroupIngress" }

// SecurityGroupEgress is a standalone AWS::EC2::SecurityGroupEgress rule.
type SecurityGroupEgress struct {
	GroupId                    any    `json:"GroupId,omitempty"`
	Description                string `json:"Description,omitempty"`
	IpProtocol                 string `json:"IpProtocol"`
	FromPort                   int    `json:"FromPort,omitempty"`
	ToPort                     int    `json:"ToPort,omitempty"`
	CidrIp                     string `json:"CidrIp,omitempty"`
	DestinationSecurityGroupId any    `json:"DestinationSecurityGroupId,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (SecurityGroupEgress) ResourceType() string { return "AWS::EC2::SecurityGroupEgress" }

// VPCEndpoint is an AWS::EC2::VPCEndpoint. VpcEndpointType is "Interface"
// or "Gateway".
type VPCEndpoint struct {
	ServiceName       any    `json:"ServiceName,omitempty"`
	VpcEndpointType   string `json:"VpcEndpointType,omitempty"`
	VpcId             any    `json:"VpcId,omitempty"`
	SubnetIds         []any  `json:"SubnetIds,omitempty"`
	SecurityGroupIds  []any  `json:"SecurityGroupIds,omitempty"`
	RouteTableIds     []any  `json:"RouteTableIds,omitempty"`
	PrivateDnsEnabled bool   `json:"PrivateDnsEnabled,omitempty"`
	PolicyDocument    any    `json:"PolicyDocument,omitempty"`
	Tags              []any  `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (VPCEndpoint) ResourceType() string { return "AWS::EC2::VPCEndpoint" }

// NetworkAcl is an AWS::EC2::NetworkAcl.
type NetworkAcl struct {
	VpcId any   `json:"VpcId,omitempty"`
	Tags  []any `json:"Tags,omitempty"`

	Id kb.AttrRef `json:"-"`
}

// ResourceType returns the CloudFormation type.
func (NetworkAcl) ResourceType() string { return "AWS::EC2::NetworkAcl" }

// NetworkAclEntry is an AWS::EC2::NetworkAclEntry. Protocol 6 is TCP.
type NetworkAclEntry struct {
	NetworkAclId any                        `json:"NetworkAclId,omitempty"`
	RuleNumber   int                        `json:"RuleNumber"`
	Protocol     int                        `json:"Protocol"`
	RuleAction   string                     `json:"RuleAction,omitempty"`
	Egress       bool                       `json:"Egress,omitempty"`
	CidrBlock    any                        `json:"CidrBlock,omitempty"`
	PortRange    *NetworkAclEntry_PortRange `json:"PortRange,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (NetworkAclEntry) ResourceType() string { return "AWS::EC2::NetworkAclEntry" }

// NetworkAclEntry_PortRange is an inclusive port range.
type NetworkAclEntry_PortRange struct {
	From int `json:"From"`
	To   int `json:"To"`
}

// SubnetNetworkAclAssociation is an AWS::EC2::SubnetNetworkAclAssociation.
type SubnetNetworkAclAssociation struct {
	NetworkAclId any `json:"NetworkAclId,omitempty"`
	SubnetId     any `json:"SubnetId,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (SubnetNetworkAclAssociation) ResourceType() string {
	return "AWS::EC2::SubnetNetworkAclAssociation"
}

// FlowLog is an AWS::EC2::FlowLog.
type FlowLog struct {
	ResourceId               any    `json:"ResourceId,omitempty"`
	ResourceType_            string `json:"ResourceType,omitempty"`
	TrafficType              string `json:"TrafficType,omitempty"`
	LogDestinationType       string `json:"LogDestinationType,omitempty"`
	LogGroupName             any    `json:"LogGroupName,omitempty"`
	DeliverLogsPermissionArn any    `json:"DeliverLogsPermissionArn,omitempty"`
	MaxAggregationInterval   int    `json:"MaxAggregationInterval,omitempty"`
	Tags                     []any  `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation type.
func (FlowLog) ResourceType() string { return "AWS::EC2::FlowLog" }
