// Package handler exposes the nomination pipeline as MCP tools.
package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/tejzpr/eloy-nominator/internal/db"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

// Submitter is the pipeline the tools drive.
type Submitter interface {
	Submit(ctx context.Context, req nomination.Request) nomination.Outcome
	FetchCategories(ctx context.Context) []string
}

// Lister reads the submission ledger.
type Lister interface {
	ListAll(ctx context.Context) ([]db.Submission, error)
}

// Tools binds MCP tool calls to the pipeline.
type Tools struct {
	submitter Submitter
	ledger    Lister
	logger    *zap.Logger
}

func NewTools(submitter Submitter, ledger Lister, log *zap.Logger) *Tools {
	return &Tools{submitter: submitter, ledger: ledger, logger: log}
}

// requestFields lists the string arguments of submit_nomination, keyed by
// their JSON name. All are optional and pass through verbatim, matching
// POST /api/submit.
var requestFields = []struct {
	name string
	desc string
	set  func(*nomination.Request, string)
}{
	{"nominator_first", "Nominator first name", func(r *nomination.Request, v string) { r.NominatorFirst = v }},
	{"nominator_last", "Nominator last name", func(r *nomination.Request, v string) { r.NominatorLast = v }},
	{"nominator_phone", "Nominator phone", func(r *nomination.Request, v string) { r.NominatorPhone = v }},
	{"nominator_email", "Nominator email", func(r *nomination.Request, v string) { r.NominatorEmail = v }},
	{"category", "Category value as returned by list_categories", func(r *nomination.Request, v string) { r.Category = v }},
	{"nominee_first", "Nominee first name", func(r *nomination.Request, v string) { r.NomineeFirst = v }},
	{"nominee_last", "Nominee last name", func(r *nomination.Request, v string) { r.NomineeLast = v }},
	{"nominee_email", "Nominee email", func(r *nomination.Request, v string) { r.NomineeEmail = v }},
	{"nominee_phone", "Nominee phone", func(r *nomination.Request, v string) { r.NomineePhone = v }},
	{"nominee_website", "Nominee website", func(r *nomination.Request, v string) { r.NomineeWebsite = v }},
	{"nominee_instagram", "Nominee Instagram handle", func(r *nomination.Request, v string) { r.NomineeInstagram = v }},
	{"nominee_linkedin", "Nominee LinkedIn profile", func(r *nomination.Request, v string) { r.NomineeLinkedIn = v }},
	{"reason", "Why the nominee deserves the award", func(r *nomination.Request, v string) { r.Reason = v }},
}

// Register adds list_categories, submit_nomination and list_submissions to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("Fetch the award categories currently offered by the live nomination form."),
	), t.ListCategories)

	opts := []mcp.ToolOption{
		mcp.WithDescription("Submit a nomination to the live form. Every call fetches a fresh form token and records the attempt locally."),
	}
	for _, f := range requestFields {
		opts = append(opts, mcp.WithString(f.name, mcp.Description(f.desc)))
	}
	s.AddTool(mcp.NewTool("submit_nomination", opts...), t.SubmitNomination)

	s.AddTool(mcp.NewTool("list_submissions",
		mcp.WithDescription("List every recorded submission attempt, most recent first."),
	), t.ListSubmissions)
}

func (t *Tools) ListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string][]string{"categories": t.submitter.FetchCategories(ctx)})
}

func (t *Tools) SubmitNomination(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var req nomination.Request
	for _, f := range requestFields {
		f.set(&req, request.GetString(f.name, ""))
	}

	out := t.submitter.Submit(ctx, req)
	if !out.Success {
		t.logger.Warn("Tool submission failed", zap.String("failure", string(out.Failure)))
		return mcp.NewToolResultError(out.Detail), nil
	}
	return mcp.NewToolResultText(out.Detail), nil
}

func (t *Tools) ListSubmissions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subs, err := t.ledger.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return jsonResult(map[string][]db.Submission{"submissions": subs})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
