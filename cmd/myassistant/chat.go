package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/proxy"
	"github.com/kalambet/myassistant/internal/responder"
	"github.com/kalambet/myassistant/internal/tokens"
)

var chatCmd = &cobra.Command{
	Use:   "chat <agent> [message]",
	Short: "Talk to an agent, or show its transcript",
	Long: `Talk to the personal, health, financial or learning agent.

Without a message, the agent's transcript is printed. Replies come from
OpenRouter when an API key is configured and fall back to offline answers
built from your data.

Examples:
  myassistant chat health "how much water today?"
  myassistant chat personal what is on my schedule
  myassistant chat personal`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offline, _ := cmd.Flags().GetBool("offline")
		model, _ := cmd.Flags().GetString("model")

		agent, ok := domain.ParseAgent(strings.ToLower(args[0]))
		if !ok {
			return errNoAgent
		}

		return withApp(func(a *app) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				history, err := a.store.ChatHistory(agent)
				if err != nil {
					return err
				}
				printTranscript(out, history)
				return nil
			}

			if model == "" {
				model = a.cfg.Proxy.DefaultModel
			}
			input := strings.Join(args[1:], " ")
			return chat(cmd.Context(), a, out, agent, input, offline, model)
		})
	},
}

func init() {
	chatCmd.Flags().Bool("offline", false, "answer from local data only")
	chatCmd.Flags().String("model", "", "OpenRouter model (default from config)")
}

func chat(ctx context.Context, a *app, out io.Writer, agent domain.Agent, input string, offline bool, model string) error {
	c, err := responder.BuildContext(a.store, agent, a.profile.GetSummary(), a.now())
	if err != nil {
		return err
	}
	if agent == domain.AgentPersonal {
		loadGoogleContext(ctx, a, &c)
	}

	var streamed strings.Builder
	gen := newGenerator(a, offline, model, func(delta string) {
		streamed.WriteString(delta)
		fmt.Fprint(out, delta)
	})

	reply, err := responder.Respond(ctx, a.store, gen, input, c)
	if err != nil {
		return err
	}

	switch {
	case streamed.Len() == 0:
		fmt.Fprintln(out, reply.Text)
	case streamed.String() != reply.Text:
		// The stream broke off and the offline reply took over.
		fmt.Fprintf(out, "\n%s\n", reply.Text)
	default:
		fmt.Fprintln(out)
	}
	return nil
}

func newGenerator(a *app, offline bool, model string, onDelta func(string)) responder.Generator {
	if offline || a.cfg.Proxy.OpenRouterAPIKey == "" {
		return responder.Rules{}
	}
	return responder.Fallback{
		Primary: responder.LLM{
			Client:  proxy.NewClient(a.cfg.Proxy.OpenRouterAPIKey),
			Model:   model,
			OnDelta: onDelta,
		},
		Secondary: responder.Rules{},
	}
}

// loadGoogleContext adds today's events and the inbox when signed in.
// Failures leave the fields empty.
func loadGoogleContext(ctx context.Context, a *app, c *responder.Context) {
	if a.tokens.State() == tokens.Invalid {
		return
	}
	// Resolve the token before fanning out.
	if _, ok := a.tokens.GetValidAccessToken(ctx); !ok {
		return
	}

	var g errgroup.Group
	g.Go(func() error {
		if res := a.fetcher.FetchCalendarEvents(ctx); res.Error == "" {
			c.Events = res.Events
		}
		return nil
	})
	g.Go(func() error {
		if res := a.fetcher.FetchEmails(ctx); res.Error == "" {
			c.Emails = res.Emails
		}
		return nil
	})
	g.Wait()
}

func printTranscript(w io.Writer, history []domain.ChatMessage) {
	if len(history) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, m := range history {
		who := colorize(colorCyan, "agent")
		if m.Sender == domain.SenderUser {
			who = colorize(colorBold, "you  ")
		}
		fmt.Fprintf(w, "%s %s  %s\n", colorize(colorFaint, fmt.Sprintf("%8s", m.Time)), who, m.Text)
	}
}
