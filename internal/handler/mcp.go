// MCP transport handler using the official MCP Go SDK.
// Exposes the address-book operations as tools so ops agents can inspect
// and repair customer address books over the same adapter as the REST API.
package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"storefront-bridge/internal/model"
)

// === MCP Tool Input/Output Types ===

// ListAddressesInput is the input schema for the list_addresses tool.
type ListAddressesInput struct {
	Email string `json:"email" jsonschema:"customer email address,required"`
}

// ImportAddressesInput is the input schema for the import_addresses tool.
type ImportAddressesInput struct {
	Email     string          `json:"email" jsonschema:"customer email address,required"`
	Addresses []model.Address `json:"addresses" jsonschema:"address records to import,required"`
}

// ValidateDistributionInput is the input schema for the
// validate_distribution tool.
type ValidateDistributionInput struct {
	Email string                   `json:"email" jsonschema:"customer email address,required"`
	Lines []model.DistributionLine `json:"lines" jsonschema:"distribution lines with address and quantity,required"`
}

// DistributionOutput is the result of validate_distribution: every line
// annotated with its resolved address identifier.
type DistributionOutput struct {
	Lines []model.DistributionLine `json:"lines"`
}

// NewMCPServer creates an MCP server with the address tools registered.
// The tools expose the same operations as the REST API.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "storefront-bridge",
			Version: serviceVersion,
		},
		&mcp.ServerOptions{
			Instructions: "Address book and distribution operations for a storefront's " +
				"customers. Use these tools to inspect address books, import address " +
				"batches, and resolve distribution lists to shippable addresses.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_addresses",
		Description: "List a customer's saved addresses (deduplicated, default entry first).",
	}, h.mcpListAddresses)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_addresses",
		Description: "Import address records into a customer's address book. Existing addresses are skipped, records with an id are updated, the rest are created.",
	}, h.mcpImportAddresses)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_distribution",
		Description: "Resolve distribution lines to address identifiers, creating missing address-book entries. Fails as a whole if any line cannot be resolved.",
	}, h.mcpValidateDistribution)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpListAddresses(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListAddressesInput,
) (*mcp.CallToolResult, *model.AddressBook, error) {
	if input.Email == "" {
		return nil, nil, fmt.Errorf("email is required")
	}

	book, err := h.fetchBook(ctx, input.Email)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, dedupeBook(book), nil
}

func (h *Handler) mcpImportAddresses(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ImportAddressesInput,
) (*mcp.CallToolResult, *model.ImportSummary, error) {
	if input.Email == "" {
		return nil, nil, fmt.Errorf("email is required")
	}
	if len(input.Addresses) == 0 {
		return nil, nil, fmt.Errorf("at least one address is required")
	}

	records := make([]model.Address, 0, len(input.Addresses))
	for _, addr := range input.Addresses {
		h.extractor.ApplyDefaults(&addr)
		if !addr.Valid() {
			return nil, nil, fmt.Errorf("record %q is missing required fields", addr.Summary())
		}
		records = append(records, addr)
	}

	customerID, err := h.upstream.ResolveCustomer(ctx, input.Email)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	summary, err := h.reconciler.Import(ctx, customerID, records)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, summary, nil
}

func (h *Handler) mcpValidateDistribution(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ValidateDistributionInput,
) (*mcp.CallToolResult, *DistributionOutput, error) {
	if input.Email == "" {
		return nil, nil, fmt.Errorf("email is required")
	}
	if len(input.Lines) == 0 {
		return nil, nil, fmt.Errorf("at least one line is required")
	}

	customerID, err := h.upstream.ResolveCustomer(ctx, input.Email)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}

	resolved, err := h.reconciler.ResolveDistribution(ctx, customerID, input.Lines)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return nil, &DistributionOutput{Lines: resolved}, nil
}

// mcpError converts adapter errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	if apiErr, ok := err.(*model.APIError); ok {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
