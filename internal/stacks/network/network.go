// Package network declares the isolated VPC the workspaces run in.
//
// Topology for the dev profile:
//
//	VPC 10.0.0.0/16 (no internet gateway, no NAT gateway)
//	|
//	+-- WorkspacesSubnet1  10.0.0.0/24  AZ a  tier restricted
//	+-- WorkspacesSubnet2  10.0.1.0/24  AZ b  tier restricted
//	+-- EndpointsSubnet1   10.0.2.0/24  AZ a  tier isolated, endpoint NACL
//	+-- EndpointsSubnet2   10.0.3.0/24  AZ b  tier isolated, endpoint NACL
//
// Workspaces reach AWS only through interface endpoints in the endpoint
// subnets, on tcp/443, plus the S3 gateway endpoint on every route table.
package network

import (
	"strconv"
	"strings"

	"github.com/lex00/kiro-banking-go/internal/profile"
	"github.com/lex00/kiro-banking-go/internal/stack"
	"github.com/lex00/kiro-banking-go/internal/stacks"
	. "github.com/lex00/kiro-banking-go/intrinsics"
	"github.com/lex00/kiro-banking-go/resources/ec2"
	"github.com/lex00/kiro-banking-go/resources/iam"
	"github.com/lex00/kiro-banking-go/resources/logs"
)

const (
	// HTTPSPort is the only port allowed between the tiers.
	HTTPSPort = 443
	// FlowLogRetentionDays is how long VPC flow logs are kept.
	FlowLogRetentionDays = 365

	subnetCount = 4
	azCount     = 2
)

// Subnet group names.
const (
	WorkspacesGroup = "Workspaces"
	EndpointsGroup  = "Endpoints"
)

// disallowAll is the egress placeholder that replaces the default allow-all
// egress rule. It matches no real traffic.
var disallowAll = ec2.SecurityGroup_Egress{
	CidrIp:      "255.255.255.255/32",
	Description: "Disallow all traffic",
	IpProtocol:  "icmp",
	FromPort:    252,
	ToPort:      86,
}

// Network is the declared network topology.
type Network struct {
	Stack *stack.Stack

	Vpc          *ec2.VPC
	EndpointSG   *ec2.SecurityGroup
	WorkspacesSG *ec2.SecurityGroup

	WorkspacesSubnets []*ec2.Subnet
	EndpointSubnets   []*ec2.Subnet

	// InterfaceEndpoints are the logical IDs of the interface endpoints in
	// declaration order: profile services first, then the fixed services.
	InterfaceEndpoints []string
	GatewayEndpoint    string

	VpcId                     stack.Exported
	WorkspacesSecurityGroupId stack.Exported
}

// Declare adds the network stack to app.
func Declare(app *stack.App, p profile.Profile) *Network {
	s := app.NewStack(stacks.StackName(stacks.Network, p.Name),
		"VPC with PrivateLink endpoints for Kiro (MAS TRM Section 11.2)")
	n := &Network{Stack: s}

	n.Vpc = &ec2.VPC{
		CidrBlock:          p.VpcCIDR,
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
		Tags:               Tags(map[string]string{"Name": stacks.PhysicalName(p.Name, "vpc")}),
	}
	vpc := s.Add("Vpc", n.Vpc)

	routeTables := n.declareSubnets(s, p, vpc)
	n.declareSecurityGroups(s, p, vpc)
	n.declareEndpoints(s, p, vpc, routeTables)
	n.declareNetworkAcl(s, p, vpc)
	n.declareFlowLogs(s, p, vpc)

	n.VpcId = s.Export("VpcId", vpc, stacks.ExportName("VpcId", p.Name),
		"VPC ID for Kiro banking environment")
	s.Output("EndpointSecurityGroupId", n.EndpointSG.GroupId,
		"Security group ID for VPC endpoints")
	n.WorkspacesSecurityGroupId = s.Export("WorkspacesSecurityGroupId", n.WorkspacesSG.GroupId,
		stacks.ExportName("WorkspacesSecurityGroupId", p.Name), "Security group ID for WorkSpaces")
	if p.WorkspaceBundleID != "" {
		s.Output("WorkspaceBundleId", p.WorkspaceBundleID, "WorkSpaces bundle provisioned into the restricted subnets")
	}

	return n
}

// subnetHostBits sizes subnets at /24, or smaller when the VPC is too small
// to hold four /24s.
func subnetHostBits(p profile.Profile) int {
	prefix, err := p.Prefix()
	if err != nil {
		return 8
	}
	if bits := 32 - (prefix.Bits() + 2); bits < 8 {
		return bits
	}
	return 8
}

// declareSubnets creates the four isolated subnets, each with its own route
// table holding only the local route. It returns the route table refs.
func (n *Network) declareSubnets(s *stack.Stack, p profile.Profile, vpc Ref) []any {
	cidrs := Cidr{IPBlock: p.VpcCIDR, Count: subnetCount, CidrBits: subnetHostBits(p)}

	var routeTables []any
	for i := 0; i < subnetCount; i++ {
		group, tier, subnets := WorkspacesGroup, "restricted", &n.WorkspacesSubnets
		if i >= azCount {
			group, tier, subnets = EndpointsGroup, "isolated", &n.EndpointSubnets
		}
		az := i % azCount
		id := group + "Subnet" + strconv.Itoa(az+1)

		subnet := &ec2.Subnet{
			VpcId:            vpc,
			CidrBlock:        Select{Index: i, List: cidrs},
			AvailabilityZone: Select{Index: az, List: GetAZs{}},
			Tags: Tags(map[string]string{
				"Name":        stacks.PhysicalName(p.Name, strings.ToLower(group), strconv.Itoa(az+1)),
				"SubnetGroup": group,
				"SubnetTier":  tier,
			}),
		}
		subnetRef := s.Add(id, subnet)
		*subnets = append(*subnets, subnet)

		routeTable := s.Add(id+"RouteTable", &ec2.RouteTable{
			VpcId: vpc,
			Tags:  Tags(map[string]string{"Name": stacks.PhysicalName(p.Name, strings.ToLower(group), "rt", strconv.Itoa(az+1))}),
		})
		s.Add(id+"RouteTableAssociation", &ec2.SubnetRouteTableAssociation{
			RouteTableId: routeTable,
			SubnetId:     subnetRef,
		})
		routeTables = append(routeTables, routeTable)
	}
	return routeTables
}

// declareSecurityGroups pairs the two groups: workspaces may only send
// tcp/443 to endpoints, endpoints only accept tcp/443 from workspaces. The
// cross references live in standalone rules so neither group depends on the
// other.
func (n *Network) declareSecurityGroups(s *stack.Stack, p profile.Profile, vpc Ref) {
	n.EndpointSG = &ec2.SecurityGroup{
		GroupName:           "kiro-vpc-endpoint-sg-" + p.Name,
		GroupDescription:    "Security group for Kiro VPC endpoints - HTTPS only from WorkSpaces",
		VpcId:               vpc,
		SecurityGroupEgress: []ec2.SecurityGroup_Egress{disallowAll},
	}
	s.Add("EndpointSecurityGroup", n.EndpointSG)

	n.WorkspacesSG = &ec2.SecurityGroup{
		GroupName:           "kiro-workspaces-sg-" + p.Name,
		GroupDescription:    "Security group for WorkSpaces - outbound to VPC endpoints only",
		VpcId:               vpc,
		SecurityGroupEgress: []ec2.SecurityGroup_Egress{disallowAll},
	}
	s.Add("WorkspacesSecurityGroup", n.WorkspacesSG)

	s.Add("WorkspacesToEndpointsEgress", &ec2.SecurityGroupEgress{
		GroupId:                    n.WorkspacesSG.GroupId,
		Description:                "Allow HTTPS to Kiro VPC endpoints",
		IpProtocol:                 "tcp",
		FromPort:                   HTTPSPort,
		ToPort:                     HTTPSPort,
		DestinationSecurityGroupId: n.EndpointSG.GroupId,
	})
	s.Add("EndpointsFromWorkspacesIngress", &ec2.SecurityGroupIngress{
		GroupId:               n.EndpointSG.GroupId,
		Description:           "Allow HTTPS from WorkSpaces",
		IpProtocol:            "tcp",
		FromPort:              HTTPSPort,
		ToPort:                HTTPSPort,
		SourceSecurityGroupId: n.WorkspacesSG.GroupId,
	})
}

// declareEndpoints adds one interface endpoint per profile service, the
// fixed infrastructure endpoints and the S3 gateway endpoint.
func (n *Network) declareEndpoints(s *stack.Stack, p profile.Profile, vpc Ref, routeTables []any) {
	subnets := make([]any, 0, len(n.EndpointSubnets))
	for _, subnet := range n.EndpointSubnets {
		subnets = append(subnets, subnet.SubnetId)
	}

	// Profile endpoints keep their full identifier; only the fixed
	// infrastructure services are expanded from short names.
	services := make([]string, 0, len(p.ServiceEndpoints)+len(profile.InfrastructureServices))
	services = append(services, p.ServiceEndpoints...)
	for _, svc := range profile.InfrastructureServices {
		services = append(services, p.EndpointService(svc))
	}

	for _, svc := range services {
		id := "Endpoint" + profile.EndpointID(p.ServiceName(svc))
		s.Add(id, &ec2.VPCEndpoint{
			ServiceName:       svc,
			VpcEndpointType:   "Interface",
			VpcId:             vpc,
			SubnetIds:         subnets,
			SecurityGroupIds:  Any(n.EndpointSG.GroupId),
			PrivateDnsEnabled: true,
		})
		n.InterfaceEndpoints = append(n.InterfaceEndpoints, id)
	}

	n.GatewayEndpoint = "Endpoint" + profile.EndpointID(profile.GatewayService)
	s.Add(n.GatewayEndpoint, &ec2.VPCEndpoint{
		ServiceName:     p.EndpointService(profile.GatewayService),
		VpcEndpointType: "Gateway",
		VpcId:           vpc,
		RouteTableIds:   routeTables,
	})
}

// declareNetworkAcl repeats the port restriction at the subnet level for the
// endpoint subnets: tcp/443 and ephemeral return traffic, VPC CIDR only.
func (n *Network) declareNetworkAcl(s *stack.Stack, p profile.Profile, vpc Ref) {
	acl := s.Add("EndpointNetworkAcl", &ec2.NetworkAcl{
		VpcId: vpc,
		Tags:  Tags(map[string]string{"Name": "kiro-endpoint-nacl-" + p.Name}),
	})

	entries := []struct {
		id     string
		rule   int
		egress bool
		ports  ec2.NetworkAclEntry_PortRange
	}{
		{"InboundHttps", 100, false, ec2.NetworkAclEntry_PortRange{From: HTTPSPort, To: HTTPSPort}},
		{"InboundEphemeral", 110, false, ec2.NetworkAclEntry_PortRange{From: 1024, To: 65535}},
		{"OutboundHttps", 100, true, ec2.NetworkAclEntry_PortRange{From: HTTPSPort, To: HTTPSPort}},
		{"OutboundEphemeral", 110, true, ec2.NetworkAclEntry_PortRange{From: 1024, To: 65535}},
	}
	for _, e := range entries {
		ports := e.ports
		s.Add("EndpointNetworkAcl"+e.id, &ec2.NetworkAclEntry{
			NetworkAclId: acl,
			RuleNumber:   e.rule,
			Protocol:     6,
			RuleAction:   "allow",
			Egress:       e.egress,
			CidrBlock:    p.VpcCIDR,
			PortRange:    &ports,
		})
	}

	for i, subnet := range n.EndpointSubnets {
		s.Add("EndpointsSubnet"+strconv.Itoa(i+1)+"NetworkAclAssociation", &ec2.SubnetNetworkAclAssociation{
			NetworkAclId: acl,
			SubnetId:     subnet.SubnetId,
		})
	}
}

// declareFlowLogs sends ALL traffic records to a CloudWatch log group
// through a role only the flow logs service can assume.
func (n *Network) declareFlowLogs(s *stack.Stack, p profile.Profile, vpc Ref) {
	group := &logs.LogGroup{
		LogGroupName:    "/kiro-banking/vpc-flow-logs/" + p.Name,
		RetentionInDays: FlowLogRetentionDays,
	}
	groupRef := s.Add("FlowLogGroup", group,
		stack.Suppress("KBS014", "Flow log group is encrypted with the service key so the network stack does not depend on the encryption stack"))

	role := &iam.Role{
		Description: "Delivers VPC flow logs to CloudWatch Logs",
		AssumeRolePolicyDocument: NewPolicyDocument(PolicyStatement{
			Effect:    "Allow",
			Principal: ServicePrincipal{"vpc-flow-logs.amazonaws.com"},
			Action:    "sts:AssumeRole",
			Condition: Json{
				StringEquals: Json{"aws:SourceAccount": AWS_ACCOUNT_ID},
			},
		}),
	}
	roleRef := s.Add("FlowLogRole", role)

	s.Add("FlowLogPolicy", &iam.Policy{
		PolicyName: "flow-log-delivery",
		PolicyDocument: NewPolicyDocument(PolicyStatement{
			Effect: "Allow",
			Action: []any{
				"logs:CreateLogStream",
				"logs:PutLogEvents",
				"logs:DescribeLogGroups",
				"logs:DescribeLogStreams",
			},
			Resource: group.Arn,
		}),
		Roles: Any(roleRef),
	})

	s.Add("VpcFlowLog", &ec2.FlowLog{
		ResourceId:               vpc,
		ResourceType_:            "VPC",
		TrafficType:              "ALL",
		LogDestinationType:       "cloud-watch-logs",
		LogGroupName:             groupRef,
		DeliverLogsPermissionArn: role.Arn,
	}, stack.DependsOn("FlowLogPolicy"))
}
