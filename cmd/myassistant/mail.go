package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/google"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show today's calendar events",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(func(a *app) error {
			res := a.fetcher.FetchCalendarEvents(cmd.Context())
			if res.Error != "" {
				return errors.New(res.Error)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res.Events)
			}
			printEvents(cmd.OutOrStdout(), res.Events)
			return nil
		})
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List recent inbox messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(func(a *app) error {
			res := a.fetcher.FetchEmails(cmd.Context())
			if res.Error != "" {
				return errors.New(res.Error)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res.Emails)
			}
			printInbox(cmd.OutOrStdout(), res.Emails)
			return nil
		})
	},
}

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Read, send and mark email",
}

var emailShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		return withApp(func(a *app) error {
			res := a.fetcher.FetchEmail(cmd.Context(), args[0])
			if res.Error != "" {
				return errors.New(res.Error)
			}
			printEmail(cmd.OutOrStdout(), *res.Email, raw)
			return nil
		})
	},
}

var emailReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a message as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			res := a.fetcher.MarkRead(cmd.Context(), args[0])
			if res.Error != "" {
				return errors.New(res.Error)
			}
			printSuccess("Marked %s as read", args[0])
			return nil
		})
	},
}

var emailSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message or a reviewed draft",
	Long: `Send a message, or a draft prepared by the personal assistant.

Examples:
  myassistant email send --to sam@example.com --subject "Lunch" --body "Noon works."
  myassistant email send --draft 1700000000000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		subject, _ := cmd.Flags().GetString("subject")
		body, _ := cmd.Flags().GetString("body")
		thread, _ := cmd.Flags().GetString("thread")
		draftID, _ := cmd.Flags().GetInt64("draft")

		return withApp(func(a *app) error {
			if draftID != 0 {
				return sendDraft(cmd.Context(), a, draftID)
			}
			if to == "" || subject == "" || body == "" {
				return errors.New("--to, --subject and --body are required (or use --draft)")
			}
			res := a.fetcher.SendEmail(cmd.Context(), to, subject, body, thread)
			if !res.Success {
				return errors.New(res.Error)
			}
			printSuccess("Sent to %s (message %s)", to, res.MessageID)
			return nil
		})
	},
}

func init() {
	calendarCmd.Flags().Bool("json", false, "print events as JSON")
	inboxCmd.Flags().Bool("json", false, "print messages as JSON")
	emailShowCmd.Flags().Bool("raw", false, "print HTML bodies unconverted")
	emailSendCmd.Flags().String("to", "", "recipient address")
	emailSendCmd.Flags().String("subject", "", "subject line")
	emailSendCmd.Flags().String("body", "", "message body (HTML allowed)")
	emailSendCmd.Flags().String("thread", "", "thread ID to reply in")
	emailSendCmd.Flags().Int64("draft", 0, "send the stored draft with this ID")
	emailCmd.AddCommand(emailShowCmd, emailReadCmd, emailSendCmd)
}

// sendDraft sends a stored draft and removes it only once the send landed.
func sendDraft(ctx context.Context, a *app, id int64) error {
	var draft *domain.Draft
	for _, d := range a.store.Personal().Drafts {
		if d.ID == id {
			draft = &d
			break
		}
	}
	if draft == nil {
		return fmt.Errorf("no draft with id %d", id)
	}

	res := a.fetcher.SendEmail(ctx, draft.To, draft.Subject, draft.Body, "")
	if !res.Success {
		return errors.New(res.Error)
	}
	if _, _, err := a.store.TakeDraft(id); err != nil {
		printWarning("sent, but could not remove the draft: %v", err)
	}
	printSuccess("Sent %q to %s", draft.Subject, draft.To)
	return nil
}

func printEvents(w io.Writer, events []google.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events today.")
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %s\n", colorize(colorCyan, eventWhen(e)), colorize(colorBold, e.Title))
		if e.Location != "" {
			fmt.Fprintf(w, "    %s\n", e.Location)
		}
		if e.MeetLink != "" {
			fmt.Fprintf(w, "    %s\n", e.MeetLink)
		}
	}
}

func eventWhen(e google.Event) string {
	if e.AllDay {
		return "all day      "
	}
	start, err := time.Parse(time.RFC3339, e.Start)
	if err != nil {
		return e.Start
	}
	end, err := time.Parse(time.RFC3339, e.End)
	if err != nil {
		return start.Local().Format("15:04")
	}
	return start.Local().Format("15:04") + "-" + end.Local().Format("15:04")
}

func printInbox(w io.Writer, emails []google.EmailSummary) {
	if len(emails) == 0 {
		fmt.Fprintln(w, "Inbox is empty.")
		return
	}
	for _, e := range emails {
		mark := " "
		if !e.Read {
			mark = colorize(colorCyan, "●")
		}
		if e.Priority {
			mark = colorize(colorRed, "!")
		}
		from := e.From
		if from == "" {
			from = e.FromEmail
		}
		fmt.Fprintf(w, "%s %-20s %s  %s\n", mark, truncate(from, 20), truncate(e.Subject, 60), colorize(colorFaint, e.Time))
		fmt.Fprintf(w, "  %s\n", colorize(colorFaint, e.ID))
	}
}

func printEmail(w io.Writer, e google.EmailDetail, raw bool) {
	fmt.Fprintf(w, "%s %s <%s>\n", colorize(colorBold, "From:"), e.From, e.FromEmail)
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "To:"), e.To)
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Date:"), e.Date)
	fmt.Fprintf(w, "%s %s\n\n", colorize(colorBold, "Subject:"), e.Subject)

	body := e.Body
	if e.IsHTML && !raw {
		body = google.PlainText(body)
	}
	fmt.Fprintln(w, strings.TrimSpace(body))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
