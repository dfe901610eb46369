package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"arxenbot/internal/chat"
	"arxenbot/internal/kb"
)

func (a *app) askCmd() *cobra.Command {
	var (
		history []string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Print the reply the chat widget would give",
		Example: `  arxenbot ask how much does a kitchen remodel cost
  arxenbot ask --history "hello" --history "hello" hello`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := kb.LoadDir(a.cfg.KB.Dir)
			if err != nil {
				return fmt.Errorf("failed to load knowledge base: %w", err)
			}
			svc := chat.NewService(c, chat.NewDispatcher(a.cfg.Estimate), nil, a.logger)

			reply, err := svc.Reply(cmd.Context(), chat.Request{
				Message: strings.Join(args, " "),
				History: history,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reply)
			}

			fmt.Fprintln(out, reply.Response)
			for _, b := range reply.Buttons {
				target := b.URL
				if b.Action != kb.ActionNone {
					if dir, err := svc.Dispatch(b.Action); err == nil && dir.Target != "" {
						target = dir.Target
					} else {
						target = string(b.Action)
					}
				}
				fmt.Fprintf(out, "  [%s] %s\n", b.Text, target)
			}
			switch {
			case reply.Ref != nil:
				fmt.Fprintf(out, "(%s %s)\n", reply.Source, reply.Ref)
			default:
				fmt.Fprintf(out, "(%s: %s)\n", reply.Source, reply.Category)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&history, "history", nil, "earlier user messages, oldest first (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the reply as JSON")
	return cmd
}
