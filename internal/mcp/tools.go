// Package mcp exposes read-only inspection tools over MCP stdio transport:
// run history, per-run transaction logs, and test plan inspection.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gateway-fm/txforge/internal/abi"
	"github.com/gateway-fm/txforge/internal/plan"
	"github.com/gateway-fm/txforge/internal/storage"
)

// RegisterTools registers all inspection tools on the MCP server.
func RegisterTools(s *server.MCPServer, db storage.Storage) {
	registerRuns(s, db)
	registerRunTxs(s, db)
	registerContract(s, db)
	registerPlanInspect(s)
	registerPlanValidate(s)
}

func registerRuns(s *server.MCPServer, db storage.Storage) {
	tool := gomcp.NewTool("txforge_runs",
		gomcp.WithDescription("List recorded spam runs, newest first."),
		gomcp.WithNumber("limit",
			gomcp.Description("Max results to return (default: 10, max: 100)"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit < 1 || limit > 100 {
			limit = 10
		}
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("List runs failed: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatRuns(runs)), nil
	})
}

func registerRunTxs(s *server.MCPServer, db storage.Storage) {
	tool := gomcp.NewTool("txforge_run_txs",
		gomcp.WithDescription("Get transaction hashes recorded for a spam run."),
		gomcp.WithNumber("run_id",
			gomcp.Required(),
			gomcp.Description("Run ID"),
		),
		gomcp.WithNumber("limit",
			gomcp.Description("Max transactions to return (default: 50)"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		runID := req.GetInt("run_id", 0)
		if runID <= 0 {
			return gomcp.NewToolResultError("run_id must be positive"), nil
		}
		limit := req.GetInt("limit", 50)
		txs, err := db.RunTxs(ctx, int64(runID))
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Run transactions failed: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatRunTxs(int64(runID), txs, limit)), nil
	})
}

func registerContract(s *server.MCPServer, db storage.Storage) {
	tool := gomcp.NewTool("txforge_contract",
		gomcp.WithDescription("Look up a deployed contract address by its plan name."),
		gomcp.WithString("name",
			gomcp.Required(),
			gomcp.Description("Contract name from the plan's create phase"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return gomcp.NewToolResultError("name is required"), nil
		}
		return contractResult(ctx, db, name), nil
	})
}

// contractResult looks up a deployed contract by name. An unknown name is a
// nil row from storage, not an error, and gets a not-found result.
func contractResult(ctx context.Context, db storage.Storage, name string) *gomcp.CallToolResult {
	contract, err := db.NamedContract(ctx, name)
	if err != nil {
		return gomcp.NewToolResultError(fmt.Sprintf("Contract lookup failed: %v", err))
	}
	if contract == nil {
		return gomcp.NewToolResultError(fmt.Sprintf("No contract named %q has been recorded", name))
	}
	return gomcp.NewToolResultText(joinLines(
		section("Contract: "+contract.Name),
		kv("Address", contract.Address),
		kv("Deploy TX", contract.TxHash),
	))
}

func registerPlanInspect(s *server.MCPServer) {
	tool := gomcp.NewTool("txforge_plan_inspect",
		gomcp.WithDescription("Summarize a TOML test plan: env vars, contracts, setup and spam steps."),
		gomcp.WithString("path",
			gomcp.Required(),
			gomcp.Description("Path to the plan file"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return gomcp.NewToolResultError("path is required"), nil
		}
		cfg, err := plan.LoadFile(path)
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Plan load failed: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatPlan(path, cfg)), nil
	})
}

func registerPlanValidate(s *server.MCPServer) {
	tool := gomcp.NewTool("txforge_plan_validate",
		gomcp.WithDescription("Validate a TOML test plan: parse function signatures and check fuzz directives."),
		gomcp.WithString("path",
			gomcp.Required(),
			gomcp.Description("Path to the plan file"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return gomcp.NewToolResultError("path is required"), nil
		}
		cfg, err := plan.LoadFile(path)
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Plan load failed: %v", err)), nil
		}

		problems := validatePlan(cfg)
		if len(problems) == 0 {
			return gomcp.NewToolResultText(joinLines(
				section("Plan Valid"),
				kv("Path", path),
			)), nil
		}
		lines := section("Plan Problems")
		for _, p := range problems {
			lines += "\n  - " + p
		}
		return gomcp.NewToolResultText(lines), nil
	})
}

// validatePlan checks every call definition's signature, argument arity,
// and fuzz directives without touching the chain.
func validatePlan(cfg *plan.Config) []string {
	var problems []string

	check := func(phase string, steps []plan.FunctionCallDefinition) {
		for i, step := range steps {
			label := fmt.Sprintf("%s[%d]", phase, i)
			fn, err := abi.ParseSignature(step.Signature)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", label, err))
				continue
			}
			if len(step.Args) != len(fn.Params) {
				problems = append(problems, fmt.Sprintf("%s: %d args for %d params", label, len(step.Args), len(fn.Params)))
			}
			for _, fp := range step.Fuzz {
				idx := fn.ParamIndex(fp.Param)
				if idx < 0 {
					problems = append(problems, fmt.Sprintf("%s: fuzzed param %q not in signature", label, fp.Param))
					continue
				}
				if _, _, err := abi.UnsignedBounds(fn.Params[idx].Type); err != nil {
					problems = append(problems, fmt.Sprintf("%s: %v", label, err))
				}
			}
		}
	}

	if steps, err := cfg.SetupSteps(); err == nil {
		check("setup", steps)
	}
	if steps, err := cfg.SpamSteps(); err == nil {
		check("spam", steps)
	}
	if creates, err := cfg.CreateSteps(); err == nil {
		for i, c := range creates {
			if c.Name == "" {
				problems = append(problems, fmt.Sprintf("create[%d]: missing contract name", i))
			}
			if c.Bytecode == "" {
				problems = append(problems, fmt.Sprintf("create[%d]: missing bytecode", i))
			}
		}
	}
	return problems
}

// Response formatting functions

func formatRuns(runs []storage.Run) string {
	lines := joinLines(
		section("Spam Runs"),
		kv("Total", len(runs)),
		"",
	)
	if len(runs) == 0 {
		return lines + "No runs recorded."
	}
	for _, r := range runs {
		lines += fmt.Sprintf("\n  [%d] %-24s %s", r.ID, r.Name, formatTimestamp(r.TimestampMs))
	}
	return lines
}

func formatRunTxs(runID int64, txs []storage.RunTx, limit int) string {
	lines := joinLines(
		section(fmt.Sprintf("Run %d Transactions", runID)),
		kv("Total", len(txs)),
		"",
	)
	if len(txs) == 0 {
		return lines + "No transactions recorded."
	}
	for i, tx := range txs {
		if i >= limit {
			lines += fmt.Sprintf("\n... and %d more", len(txs)-limit)
			break
		}
		lines += fmt.Sprintf("\n  [%d] %s  %s", i, tx.TxHash, formatTimestamp(tx.TimestampMs))
	}
	return lines
}

func formatPlan(path string, cfg *plan.Config) string {
	lines := joinLines(
		section("Plan: "+path),
		kv("Env Vars", len(cfg.Env)),
		kv("Create Steps", len(cfg.Create)),
		kv("Setup Steps", len(cfg.Setup)),
		kv("Spam Steps", len(cfg.Spam)),
	)

	if len(cfg.Create) > 0 {
		lines += "\n\n" + section("Contracts")
		for _, c := range cfg.Create {
			lines += "\n" + kv(c.Name, fmt.Sprintf("%d bytecode chars", len(c.Bytecode)))
		}
	}
	if len(cfg.Spam) > 0 {
		lines += "\n\n" + section("Spam Steps")
		for i, step := range cfg.Spam {
			fuzzed := ""
			if len(step.Fuzz) > 0 {
				fuzzed = fmt.Sprintf("  (%d fuzzed)", len(step.Fuzz))
			}
			lines += fmt.Sprintf("\n  [%d] %s -> %s%s", i, step.Signature, step.To, fuzzed)
		}
	}
	return lines
}
