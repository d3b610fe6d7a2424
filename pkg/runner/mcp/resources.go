package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerResources(srv *server.MCPServer, svc *Service) {
	registerEntriesResource(srv, svc)
	registerEntryTemplate(srv, svc)
	registerMoodTemplate(srv, svc)
}

func registerEntriesResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"whisper://entries",
		"Entries",
		mcp.WithResourceDescription("Every journal entry, newest first, with the current streak."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries, err := svc.ListEntries(ctx, ListEntriesOptions{})
		if err != nil {
			return nil, err
		}
		payload := map[string]any{
			"count":   len(entries),
			"entries": entries,
			"streak":  svc.Streak(ctx).Days,
			"moods":   svc.Moods(ctx),
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func registerEntryTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"whisper://entries/{id}",
		"Entry Details",
		mcp.WithTemplateDescription("A single journal entry with its prompts."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := argument(request, "id")
		if id == "" {
			return nil, fmt.Errorf("entry id is required")
		}
		dto, err := svc.EntryByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, map[string]any{"entry": dto})
	})
}

func registerMoodTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"whisper://moods/{mood}",
		"Entries by Mood",
		mcp.WithTemplateDescription("Entries logged with one mood, newest first."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		mood := argument(request, "mood")
		if mood == "" {
			return nil, fmt.Errorf("mood is required")
		}
		entries, err := svc.ListEntries(ctx, ListEntriesOptions{Mood: mood})
		if err != nil {
			return nil, err
		}
		payload := map[string]any{
			"mood":    mood,
			"count":   len(entries),
			"entries": entries,
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

// argument reads a URI template variable; depending on the matcher it is a
// string or a single-element slice.
func argument(request mcp.ReadResourceRequest, name string) string {
	switch v := request.Params.Arguments[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
