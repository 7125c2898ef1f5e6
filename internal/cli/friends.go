// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// friends.go - Friends, users and friend requests.
//
// Subcommands:
//
//	list (default)      friends of the logged-in account
//	users               every user
//	search PREFIX       users whose name starts with PREFIX
//	request USER        send a friend request to USER
//	requests            pending requests sent to you
//	accept ID USER      accept request ID sent by USER
//	conversation USER   show the conversation ID shared with USER
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/ztachat-tui/internal/model"
	"github.com/jeranaias/ztachat-tui/internal/ui/styles"
	"github.com/jeranaias/ztachat-tui/internal/util"
)

// HandleFriends dispatches the friends subcommands.
func HandleFriends(ctx context.Context, app *App, args Args) error {
	p := NewArgParser(args.Raw)
	sub := strings.ToLower(p.Subcommand())
	if sub == "" {
		sub = "list"
	}

	me, err := app.Identity(ctx)
	if err != nil {
		return err
	}

	var run func() (any, error)
	switch sub {
	case "list", "ls":
		run = func() (any, error) {
			friends, err := app.Client.Friends(ctx, me.Username)
			if err == nil && !args.JSON {
				printProfiles(app.Out, "Friends", friends)
			}
			return friends, err
		}

	case "users":
		run = func() (any, error) {
			users, err := app.Client.Users(ctx)
			if err == nil && !args.JSON {
				printProfiles(app.Out, "Users", users)
			}
			return users, err
		}

	case "search", "find":
		prefix := p.Positional(1)
		if prefix == "" {
			return ErrMissingArgument("prefix", "ztachat friends search al")
		}
		run = func() (any, error) {
			users, err := app.Client.SearchUsers(ctx, prefix)
			if err == nil && !args.JSON {
				printProfiles(app.Out, "Users matching "+prefix, users)
			}
			return users, err
		}

	case "request", "add":
		to := strings.TrimPrefix(p.Positional(1), "@")
		if to == "" {
			return ErrMissingArgument("username", "ztachat friends request bob")
		}
		if to == me.Username {
			return NewValidationError("username", to, "cannot befriend yourself")
		}
		run = func() (any, error) {
			err := app.Client.SendFriendRequest(ctx, me.Username, to)
			if err == nil && !args.JSON {
				fmt.Fprintln(app.Out, styles.RenderSuccess("Friend request sent to "+to))
			}
			return map[string]string{"to": to}, err
		}

	case "requests", "pending":
		run = func() (any, error) {
			reqs, err := app.Client.FriendRequests(ctx, me.Username)
			if err == nil && !args.JSON {
				printRequests(app.Out, reqs)
			}
			return reqs, err
		}

	case "accept":
		id, sender := p.Positional(1), strings.TrimPrefix(p.Positional(2), "@")
		if id == "" || sender == "" {
			return ErrMissingArgument("request", "ztachat friends accept 12 bob")
		}
		if _, err := model.ID(id).Uint(); err != nil {
			return NewValidationError("request id", id, "must be a number")
		}
		run = func() (any, error) {
			err := app.Client.AcceptFriendRequest(ctx, model.ID(id), sender, me.Username)
			if err == nil && !args.JSON {
				fmt.Fprintln(app.Out, styles.RenderSuccess("You and "+sender+" are now friends"))
			}
			return map[string]string{"request_id": id, "sender": sender}, err
		}

	case "conversation", "conv":
		peer := strings.TrimPrefix(p.Positional(1), "@")
		if peer == "" {
			return ErrMissingArgument("username", "ztachat friends conversation bob")
		}
		run = func() (any, error) {
			conv, err := app.Client.Conversation(ctx, me.Username, peer)
			if err == nil && !args.JSON {
				fmt.Fprintln(app.Out, RenderField("Conversation", conv.ID.String()))
				fmt.Fprintln(app.Out, RenderField("With", conv.Peer(me.ProfileID).Username))
			}
			return conv, err
		}

	default:
		return NewValidationErrorWithExample("subcommand", sub, "unknown friends subcommand", "ztachat friends list")
	}

	return NewCommandError("friends", sub, OutputJSON(app.Out, args.JSON, "friends "+sub, run))
}

func printProfiles(w io.Writer, title string, profiles []model.Profile) {
	fmt.Fprintln(w, TitleStyle.Render(title))
	if len(profiles) == 0 {
		fmt.Fprintln(w, DimStyle.Render("  (none)"))
		return
	}
	for _, p := range profiles {
		status := string(p.Status)
		if status == "" {
			status = string(model.StatusOffline)
		}
		line := "  " + util.PadRight(p.Username, 20) + util.PadRight(status, 9)
		if !p.LastSeen.IsZero() && p.Status != model.StatusOnline {
			line += DimStyle.Render("last seen " + p.LastSeen.Local().Format(time.DateTime))
		}
		fmt.Fprintln(w, line)
	}
}

func printRequests(w io.Writer, reqs []model.FriendRequest) {
	fmt.Fprintln(w, TitleStyle.Render("Pending requests"))
	if len(reqs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("  (none)"))
		return
	}
	for _, r := range reqs {
		from := r.Requester.Username
		if from == "" {
			from = "#" + r.RequesterID.String()
		}
		fmt.Fprintf(w, "  %s from %s  %s\n",
			util.PadRight("#"+r.ID.String(), 6), from,
			DimStyle.Render("ztachat friends accept "+r.ID.String()+" "+from))
	}
}
