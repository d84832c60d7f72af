package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mindful-assistant/internal/client"
	"mindful-assistant/internal/config"
	"mindful-assistant/internal/logger"
	"mindful-assistant/internal/prompt"
	"mindful-assistant/internal/session"
)

const emergencyNotice = "If you're in immediate danger, please contact emergency services by dialing 911."

type rootOptions struct {
	gateway         string
	meditationVideo string
	maxTranscript   int
}

func newRootCmd() *cobra.Command {
	cfg, cfgErr := config.LoadClient()
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "mindful-chat",
		Short:        "Talk to the mental health assistant from a terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(cfg.Log)
			if cfgErr == nil {
				return nil
			}
			// An explicit --gateway replaces whatever GATEWAY_URL held.
			if cmd.Flags().Changed("gateway") {
				log.Warn().Err(cfgErr).Msg("[chat] ignoring client config error, --gateway given")
				return nil
			}
			return cfgErr
		},
	}
	root.PersistentFlags().StringVarP(&opts.gateway, "gateway", "g", cfg.GatewayURL, "completion gateway base URL (env: GATEWAY_URL)")

	assistant := &cobra.Command{
		Use:   "assistant",
		Short: "Single-answer assistant: each question replaces the last answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.gateway)
			a := session.NewAssistant(c, loadTemplate(cmd.Context(), c))
			return runAssistant(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	widget := &cobra.Command{
		Use:   "widget",
		Short: "Chatbot with a running transcript, mood and meditation suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.gateway)
			w := session.NewWidget(c, loadTemplate(cmd.Context(), c), session.WidgetOptions{
				MeditationVideo: opts.meditationVideo,
				MaxTranscript:   opts.maxTranscript,
			})
			return runWidget(cmd.Context(), w, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	widget.Flags().StringVar(&opts.meditationVideo, "meditation-video", session.DefaultMeditationVideo, "embed URL offered with meditation suggestions")

	widget.Flags().IntVar(&opts.maxTranscript, "max-transcript", 0, "keep only the newest N transcript entries (0 keeps all)")
	widget.PreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.maxTranscript < 0 {
			return fmt.Errorf("--max-transcript must not be negative, got %d", opts.maxTranscript)
		}
		return nil
	}

	root.AddCommand(assistant, widget)
	return root
}

type templateSource interface {
	DefaultPrompt(ctx context.Context) (prompt.Template, error)
}

// loadTemplate asks the gateway for its prompt and falls back to the embedded
// one when the gateway is unreachable or serves something invalid.
func loadTemplate(ctx context.Context, src templateSource) prompt.Template {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tmpl, err := src.DefaultPrompt(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("[chat] using embedded prompt")
		return prompt.Default()
	}
	log.Debug().Str("prompt", tmpl.Name).Msg("[chat] using gateway prompt")
	return tmpl
}
