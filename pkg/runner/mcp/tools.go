package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerCreateEntryTool(srv, svc)
	registerListEntriesTool(srv, svc)
	registerGetEntryTool(srv, svc)
	registerPinEntryTool(srv, svc)
	registerFavoriteEntryTool(srv, svc)
	registerChangeBackgroundTool(srv, svc)
	registerDeleteEntryTool(srv, svc)
	registerStreakTool(srv, svc)
}

func registerCreateEntryTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"create_entry",
		mcp.WithDescription("Journal a session: a mood, up to three prompt answers and an optional mantra."),
		mcp.WithString("mood",
			mcp.Required(),
			mcp.Description("How the user feels, e.g. calm, anxious, grateful."),
		),
		mcp.WithArray("prompts",
			mcp.Description("Answers to the guided prompts, at most three. Empty strings keep a slot."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("questions",
			mcp.Description("The question shown for each prompt answer, same order and length."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("text",
			mcp.Description("Mantra text. Generated from the mood and answers when omitted."),
		),
		mcp.WithBoolean("free",
			mcp.Description("Free writing instead of guided prompts."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Mood      string   `json:"mood"`
			Prompts   []string `json:"prompts"`
			Questions []string `json:"questions"`
			Text      string   `json:"text"`
			Free      bool     `json:"free"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		dto, err := svc.CreateEntry(ctx, CreateEntryOptions{
			Mood:      args.Mood,
			Prompts:   args.Prompts,
			Questions: args.Questions,
			Text:      args.Text,
			Free:      args.Free,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerListEntriesTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_entries",
		mcp.WithDescription("List journal entries, newest first."),
		mcp.WithString("mood",
			mcp.Description("Only entries with this mood."),
		),
		mcp.WithBoolean("favorites",
			mcp.Description("Only favorited entries."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entries, err := svc.ListEntries(ctx, ListEntriesOptions{
			Mood:          request.GetString("mood", ""),
			FavoritesOnly: request.GetBool("favorites", false),
			Limit:         request.GetInt("limit", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"count":   len(entries),
			"entries": entries,
		})
	})
}

func registerGetEntryTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_entry",
		mcp.WithDescription("Fetch a single entry by id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry identifier."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.EntryByID(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerPinEntryTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"pin_entry",
		mcp.WithDescription("Pin an entry to the widget. Any other pinned entry is unpinned."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry identifier to pin."),
		),
		mcp.WithBoolean("off",
			mcp.Description("Unpin instead of pin."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.SetPinned(ctx, id, !request.GetBool("off", false))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerFavoriteEntryTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"favorite_entry",
		mcp.WithDescription("Mark an entry as favorite."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry identifier."),
		),
		mcp.WithBoolean("off",
			mcp.Description("Remove the favorite mark instead."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.SetFavorited(ctx, id, !request.GetBool("off", false))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerChangeBackgroundTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"change_background",
		mcp.WithDescription("Change the background image and text color of an entry."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry identifier."),
		),
		mcp.WithString("background",
			mcp.Required(),
			mcp.Description("Background image name."),
		),
		mcp.WithString("text_color",
			mcp.Description("Text color as hex, e.g. #1B1B1B."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		bg, err := request.RequireString("background")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.ChangeBackground(ctx, id, bg, request.GetString("text_color", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerDeleteEntryTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"delete_entry",
		mcp.WithDescription("Delete an entry."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Entry identifier to delete."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.DeleteEntry(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"deleted": dto})
	})
}

func registerStreakTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_streak",
		mcp.WithDescription("Current journaling streak in days, and the pinned entry."),
	)

	srv.AddTool(tool, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toJSONResult(svc.Streak(ctx))
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
