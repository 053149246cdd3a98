package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/showcase-dev/showcase/internal/conversation"
	"github.com/showcase-dev/showcase/internal/logging"
)

var (
	replayScripts int
	replaySpeed   float64
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().IntVar(&replayScripts, "scripts", 0, "number of scripts to play (0 plays each script once)")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "playback speed multiplier")
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay scripted conversations to stdout",
	Long:  "Play the scripted multi-agent conversations headlessly, printing each message as it is revealed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		lib, err := conversation.LoadLibrary(cfg.Player.ScriptsDir)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		return replay(ctx, cmd.OutOrStdout(), lib, replayOptions{
			scripts: replayScripts,
			speed:   replaySpeed,
			dwell:   cfg.Player.Dwell,
			settle:  cfg.Player.Settle,
			json:    IsJSONOutput(),
		})
	},
}

type replayOptions struct {
	scripts int
	speed   float64
	dwell   time.Duration
	settle  time.Duration
	json    bool
}

type replayLine struct {
	Script  string   `json:"script"`
	Role    string   `json:"role"`
	Speaker string   `json:"speaker"`
	Content string   `json:"content"`
	Docs    []string `json:"docs,omitempty"`
}

// replay plays opts.scripts finished scripts and returns, or returns early
// when ctx is canceled.
func replay(ctx context.Context, out io.Writer, lib conversation.Library, opts replayOptions) error {
	if opts.speed <= 0 {
		return fmt.Errorf("speed must be greater than 0, got %v", opts.speed)
	}
	playable := 0
	for _, s := range lib {
		if s.Len() > 0 {
			playable++
		}
	}
	target := opts.scripts
	if target <= 0 {
		target = playable
	}

	scaled := scaleLibrary(lib, opts.speed)
	snaps := make(chan conversation.Snapshot, 16)
	done := make(chan struct{})
	defer close(done)

	playerOpts := []conversation.Option{
		conversation.WithDwell(scaleDuration(opts.dwell, opts.speed)),
		conversation.WithSettle(scaleDuration(opts.settle, opts.speed)),
		conversation.WithLogger(logging.Component("player")),
		conversation.WithObserver(func(s conversation.Snapshot) {
			select {
			case snaps <- s:
			case <-done:
			}
		}),
	}
	player, err := conversation.NewPlayer(scaled, playerOpts...)
	if err != nil {
		return err
	}
	defer player.Stop()
	go player.Start()

	current, printed, finished := -1, 0, 0
	headed, anyPrinted := false, false
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-snaps:
			if snap.ScriptIndex != current || len(snap.Visible) < printed {
				current, printed, headed = snap.ScriptIndex, 0, false
			}
			if len(snap.Visible) > printed && !headed && !opts.json {
				header := fmt.Sprintf("── %s ──", snap.ScriptName)
				if anyPrinted {
					header = "\n" + header
				}
				fmt.Fprintln(out, header)
				headed = true
			}
			for _, msg := range snap.Visible[printed:] {
				if err := printReplayMessage(out, snap.ScriptName, msg, opts.json); err != nil {
					return err
				}
			}
			if len(snap.Visible) > printed {
				anyPrinted = true
			}
			printed = len(snap.Visible)

			if snap.Phase == conversation.PhaseFinished {
				finished++
				if finished >= target {
					return nil
				}
			}
		}
	}
}

func printReplayMessage(out io.Writer, script string, msg conversation.Message, asJSON bool) error {
	persona := msg.Role.Persona()
	if asJSON {
		data, err := json.Marshal(replayLine{
			Script:  script,
			Role:    msg.Role.String(),
			Speaker: persona.Name,
			Content: msg.Content,
			Docs:    msg.ReferenceDocs,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	speaker := colorize(persona.Icon+" "+persona.Name, roleColor(msg.Role))
	fmt.Fprintf(out, "%s: %s\n", speaker, strings.TrimSpace(msg.Content))
	for _, doc := range msg.ReferenceDocs {
		fmt.Fprintf(out, "    %s\n", doc)
	}
	return nil
}

func scaleLibrary(lib conversation.Library, speed float64) conversation.Library {
	out := make(conversation.Library, len(lib))
	for i, s := range lib {
		msgs := make([]conversation.Message, len(s.Messages))
		for j, m := range s.Messages {
			m.Delay = scaleDuration(m.Delay, speed)
			msgs[j] = m
		}
		out[i] = conversation.Script{Name: s.Name, Source: s.Source, Messages: msgs}
	}
	return out
}

func scaleDuration(d time.Duration, speed float64) time.Duration {
	return time.Duration(float64(d) / speed)
}
