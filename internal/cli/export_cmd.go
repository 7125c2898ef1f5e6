// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - Conversation export.
//
// Command: export FRIEND [--format md|json] [--output DIR|-] [--no-timestamps]
package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/ztachat-tui/internal/export"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
)

// ExportData is the JSON form of export.
type ExportData struct {
	Path     string `json:"path"`
	Format   string `json:"format"`
	Messages int    `json:"messages"`
}

// HandleExport fetches the conversation with args.Peer and writes it out.
func HandleExport(ctx context.Context, app *App, args Args) error {
	opts := export.DefaultOptions()
	opts.OutputDir = args.Output
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	opts.IncludeTimestamps = !args.NoTimes
	opts.Stdout = app.Out

	exporter, err := export.ForFormat(args.Format, opts)
	if err != nil {
		return NewValidationError("format", args.Format, err.Error())
	}
	if args.JSON && opts.OutputDir == "-" {
		return NewValidationError("output", "-", "cannot combine with --json")
	}

	target, err := app.ResolveTarget(ctx, args.Peer)
	if err != nil {
		return NewCommandError("export", "", err)
	}

	rec := app.NewReconciler()
	rec.SetTarget(target.ConversationID)
	msgs, err := rec.LoadHistory(ctx, target.ConversationID)
	if err != nil {
		return NewCommandError("export", "history", err)
	}

	path, err := export.ToFile(&export.Transcript{
		ConversationID: target.ConversationID,
		LocalID:        target.ParticipantID,
		LocalName:      target.Me.Username,
		PeerName:       target.Peer.Username,
		Messages:       msgs,
	}, exporter, opts)
	if err != nil {
		return NewCommandError("export", "write", err)
	}

	if args.JSON {
		return NewJSONResponse("export", ExportData{
			Path:     path,
			Format:   exporter.FileExtension()[1:],
			Messages: len(msgs),
		}).Write(app.Out)
	}
	if path != "-" && !args.Quiet {
		fmt.Fprintln(app.Out, styles.RenderSuccess(fmt.Sprintf("Exported %d messages to %s", len(msgs), path)))
	}
	return nil
}
