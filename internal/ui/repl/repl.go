// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repl provides the plain line-based interface used when the
// terminal cannot host the full TUI or the user passes --plain. It
// drives the same orchestrator; streamed text prints incrementally.
package repl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	core "github.com/rexcorp1/rexpro-ai/internal/chat"
	"github.com/rexcorp1/rexpro-ai/internal/config"
	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/router"
	"github.com/rexcorp1/rexpro-ai/internal/storage"
)

// historyFile under the config dir keeps readline history across runs.
const historyFile = "history"

// REPL is the plain-text interactive loop.
type REPL struct {
	orch *core.Orchestrator
	line *liner.State

	// pending holds /attach files until the next send consumes them.
	pending []model.Attachment
}

// New creates a REPL over the orchestrator.
func New(orch *core.Orchestrator) *REPL {
	return &REPL{orch: orch}
}

// Run reads prompts until EOF, /quit, or context cancellation.
func (r *REPL) Run(ctx context.Context) error {
	r.line = liner.NewLiner()
	defer r.line.Close()
	r.line.SetCtrlCAborts(true)

	histPath := r.historyPath()
	if f, err := os.Open(histPath); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	defer r.saveHistory(histPath)

	fmt.Println("rexpro (plain mode). /help for commands, /quit to exit.")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		input, err := r.line.Prompt("> ")
		if err != nil {
			// Ctrl+C aborts the prompt, EOF ends the loop.
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if done := r.runCommand(input); done {
				return nil
			}
			continue
		}

		r.sendAndPrint(ctx, input)
	}
}

// sendAndPrint streams a reply to stdout, printing only the delta of
// each accumulated update.
func (r *REPL) sendAndPrint(ctx context.Context, prompt string) {
	printed := 0
	attachments := r.pending
	r.pending = nil
	err := r.orch.Send(ctx, prompt, attachments, func(u core.Update) {
		if len(u.Content) > printed {
			fmt.Print(u.Content[printed:])
			printed = len(u.Content)
		}
	})
	fmt.Println()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}

	sess := r.orch.Store().Active()
	if sess == nil {
		return
	}
	last := sess.LastMessage()
	if last == nil {
		return
	}
	for _, att := range last.Attachments {
		fmt.Println("attachment:", att.Name)
	}
	if last.ProjectFilesUpdate && sess.Project != nil {
		fmt.Println(sess.Project.RenderTree())
	}
}

// runCommand handles slash commands; returns true to exit.
func (r *REPL) runCommand(input string) bool {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/new":
		r.orch.Store().ClearActive()
		fmt.Println("New session.")

	case "/sessions":
		metas := r.orch.Store().List()
		if len(args) > 0 {
			metas = r.orch.Store().Search(strings.Join(args, " "))
		}
		for _, meta := range metas {
			fmt.Printf("%s  %s (%d msg)\n", meta.ID, meta.Title, meta.MessageCount)
		}

	case "/open":
		if len(args) == 0 {
			fmt.Println("usage: /open <session-id>")
			break
		}
		if err := r.orch.Store().SetActive(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}

	case "/model":
		if len(args) == 0 {
			id := r.orch.Selector().MediaModelOverride()
			if id == "" {
				id = r.orch.Selector().ModelID()
			}
			fmt.Println("model:", id)
			break
		}
		if err := r.orch.Selector().SetModel(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}

	case "/attach":
		if len(args) == 0 {
			fmt.Println("usage: /attach <path>")
			break
		}
		att, err := model.LoadAttachment(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			break
		}
		r.pending = append(r.pending, att)
		fmt.Println("attached:", att.Name)

	case "/project":
		on := !r.orch.Selector().ProjectMode()
		r.orch.Selector().SetProjectMode(on)
		fmt.Println("project mode:", on)

	case "/toggle":
		if len(args) == 0 {
			fmt.Println("usage: /toggle code|research|image|video|search")
			break
		}
		toggle, ok := map[string]router.Toggle{
			"code":     router.ToggleCodeInterpreter,
			"research": router.ToggleDeepResearch,
			"image":    router.ToggleImageTool,
			"video":    router.ToggleVideoTool,
			"search":   router.ToggleSearch,
		}[args[0]]
		if !ok {
			fmt.Println("unknown toggle:", args[0])
			break
		}
		now := !r.orch.Selector().Toggles().Get(toggle)
		r.orch.Selector().SetToggle(toggle, now)
		fmt.Printf("%s: %v\n", args[0], now)

	case "/export":
		sess := r.orch.Store().Active()
		if sess == nil {
			fmt.Println("no active session")
			break
		}
		path := sess.ID + ".md"
		if len(args) > 0 {
			path = args[0]
		}
		if err := storage.ExportMarkdown(sess, path); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		} else {
			fmt.Println("exported to", path)
		}

	case "/help":
		fmt.Println(`/new            start a new session
/sessions [q]   list sessions, optionally filtered
/open <id>      switch session
/model [name]   show or set the active model
/attach <path>  attach a file to the next send
/project        toggle project mode
/toggle <name>  code, research, image, video, search
/export [path]  export session as markdown
/quit           exit`)

	default:
		fmt.Println("unknown command:", cmd)
	}
	return false
}

func (r *REPL) historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(dir, historyFile)
}

func (r *REPL) saveHistory(path string) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}
