// Package server exposes the gateway operations over the Model Context
// Protocol, on stdio or streamable-HTTP transports.
package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/inventory"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/ops"
	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/version"
)

type commandArgs struct {
	RouterName string `json:"router_name" jsonschema:"The name of the router"`
	Command    string `json:"command" jsonschema:"The command to execute on the router"`
	Timeout    int    `json:"timeout,omitempty" jsonschema:"Command timeout in seconds"`
}

type routerArgs struct {
	RouterName string `json:"router_name" jsonschema:"The name of the router"`
	Timeout    int    `json:"timeout,omitempty" jsonschema:"Connection timeout in seconds"`
}

type diffArgs struct {
	RouterName string `json:"router_name" jsonschema:"The name of the router"`
	Version    int    `json:"version,omitempty" jsonschema:"Rollback version to compare against (1-49)"`
	Timeout    int    `json:"timeout,omitempty" jsonschema:"Command timeout in seconds"`
}

type commitArgs struct {
	RouterName    string `json:"router_name" jsonschema:"The name of the router"`
	ConfigText    string `json:"config_text" jsonschema:"The configuration text to load"`
	ConfigFormat  string `json:"config_format,omitempty" jsonschema:"Format: set, text, or xml"`
	CommitComment string `json:"commit_comment,omitempty" jsonschema:"Commit comment"`
	Timeout       int    `json:"timeout,omitempty" jsonschema:"Commit timeout in seconds"`
}

type templateArgs struct {
	RouterName    string `json:"router_name" jsonschema:"The name of the router"`
	Template      string `json:"template_content" jsonschema:"Configuration template to render"`
	Vars          string `json:"vars_content,omitempty" jsonschema:"YAML variables to render the template with"`
	ConfigFormat  string `json:"config_format,omitempty" jsonschema:"Format: set, text, or xml"`
	CommitComment string `json:"commit_comment,omitempty" jsonschema:"Commit comment"`
	Timeout       int    `json:"timeout,omitempty" jsonschema:"Commit timeout in seconds"`
}

type listArgs struct{}

type addDeviceArgs struct {
	DeviceName     string `json:"device_name" jsonschema:"Device name/identifier"`
	DeviceIP       string `json:"device_ip" jsonschema:"Device IP address"`
	DevicePort     int    `json:"device_port,omitempty" jsonschema:"SSH port (default 22)"`
	Username       string `json:"username" jsonschema:"Username for authentication"`
	Password       string `json:"password,omitempty" jsonschema:"Password, for password authentication"`
	SSHKeyPath     string `json:"ssh_key_path,omitempty" jsonschema:"Path to SSH private key file"`
	Passphrase     string `json:"passphrase,omitempty" jsonschema:"Passphrase for the private key"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"Per-operation timeout in seconds"`
	Overwrite      bool   `json:"overwrite,omitempty" jsonschema:"Replace an existing entry with the same name"`
	TestConnection bool   `json:"test_connection,omitempty" jsonschema:"Verify connectivity before adding"`
}

// New builds the MCP server and registers every gateway operation as a
// tool. The server carries no per-session state, so one instance serves
// all transports and connections.
func New(gw *ops.Gateway) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "junos-mcp-gateway",
		Version: version.Version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        ops.OpExecuteCommand,
		Description: "Execute a Junos command on the router",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args commandArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(gw.Dispatch(ctx, ops.OpExecuteCommand, &ops.Request{
			Device:         args.RouterName,
			Command:        args.Command,
			TimeoutSeconds: args.Timeout,
		}))
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ops.OpGetConfig,
		Description: "Get the configuration of the router",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args routerArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(gw.Dispatch(ctx, ops.OpGetConfig, &ops.Request{
			Device:         args.RouterName,
			TimeoutSeconds: args.Timeout,
		}))
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ops.OpConfigDiff,
		Description: "Get the configuration diff against a rollback version",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args diffArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(gw.Dispatch(ctx, ops.OpConfigDiff, &ops.Request{
			Device:         args.RouterName,
			Revision:       args.Version,
			TimeoutSeconds: args.Timeout,
		}))
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ops.OpGatherFacts,
		Description: "Gather Junos device facts from the router",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args routerArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(gw.Dispatch(ctx, ops.OpGatherFacts, &ops.Request{
			Device:         args.RouterName,
			TimeoutSeconds: args.Timeout,
		}))
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ops.OpLoadAndCommit,
		Description: "Load and commit configuration on a Junos router",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args commitArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(gw.Dispatch(ctx, ops.OpLoadAndCommit, &ops.Request{
			Device:         args.RouterName,
			Config:         args.ConfigText,
			Format:         args.ConfigFormat,
			Comment:        args.CommitComment,
			TimeoutSeconds: args.Timeout,
		}))
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ops.OpRenderTemplate,
		Description: "Render a configuration template and apply it to the router",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args templateArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(gw.Dispatch(ctx, ops.OpRenderTemplate, &ops.Request{
			Device:         args.RouterName,
			Template:       args.Template,
			VarsYAML:       args.Vars,
			Format:         args.ConfigFormat,
			Comment:        args.CommitComment,
			TimeoutSeconds: args.Timeout,
		}))
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ops.OpListDevices,
		Description: "Get list of available Junos devices",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(gw.Dispatch(ctx, ops.OpListDevices, &ops.Request{}))
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        ops.OpAddDevice,
		Description: "Add a new Junos device to the running gateway",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args addDeviceArgs) (*mcp.CallToolResult, any, error) {
		return toolResult(gw.Dispatch(ctx, ops.OpAddDevice, &ops.Request{
			Device:         args.DeviceName,
			NewDevice:      descriptorFromArgs(args),
			Overwrite:      args.Overwrite,
			TestConnection: args.TestConnection,
		}))
	})

	return s
}

// descriptorFromArgs maps the tool arguments onto a descriptor; auth type
// follows from which credential fields are set.
func descriptorFromArgs(args addDeviceArgs) *inventory.DeviceDescriptor {
	port := args.DevicePort
	if port == 0 {
		port = 22
	}
	d := &inventory.DeviceDescriptor{
		IP:             args.DeviceIP,
		Port:           port,
		Username:       args.Username,
		TimeoutSeconds: args.TimeoutSeconds,
	}
	if args.SSHKeyPath != "" {
		d.Auth = &inventory.Auth{
			Type:           inventory.AuthSSHKey,
			PrivateKeyPath: args.SSHKeyPath,
			Passphrase:     args.Passphrase,
		}
	} else {
		d.Auth = &inventory.Auth{
			Type:     inventory.AuthPassword,
			Password: args.Password,
		}
	}
	return d
}

// toolResult shapes a dispatch outcome into a tool response. Failures
// come back as error-flagged text content rather than protocol errors, so
// the caller sees the classified message.
func toolResult(res *ops.Result) (*mcp.CallToolResult, any, error) {
	if !res.OK() {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: res.Failure.Kind + ": " + res.Failure.Message}},
		}, nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: res.Output}},
	}, nil, nil
}
