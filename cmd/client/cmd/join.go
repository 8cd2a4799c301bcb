package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkeye/Meet/internal/client"
	"github.com/dkeye/Meet/internal/client/media"
)

var (
	flagServer  string
	flagName    string
	flagHost    bool
	flagNoAudio bool
	flagNoVideo bool
	flagSTUN    []string
	flagTimeout time.Duration
)

var joinCmd = &cobra.Command{
	Use:   "join <meeting-id>",
	Short: "Join a meeting",
	Long: `Join a meeting by id. While in the meeting, stdin is a command prompt:

  /share      request the screen-share slot
  /unshare    stop presenting
  /mute       toggle microphone
  /video      toggle camera
  /end        end the meeting for everyone (host only)
  /quit       leave
  anything else is sent as a chat message`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin(args[0])
	},
}

func runJoin(meetingID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	capturer, err := media.NewDeviceCapturer()
	if err != nil {
		return fmt.Errorf("media init: %w", err)
	}

	session, err := client.Dial(ctx, client.Options{
		ServerURL:      flagServer,
		MeetingID:      meetingID,
		Name:           flagName,
		Host:           flagHost,
		Audio:          !flagNoAudio,
		Video:          !flagNoVideo,
		ICEServers:     flagSTUN,
		ConnectTimeout: flagTimeout,
	}, capturer, client.NewLogRenderer())
	if err != nil {
		return err
	}

	go readCommands(session)

	return session.Run(ctx)
}

func readCommands(session *client.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "/share":
			session.Command(client.Command{Kind: client.CmdStartShare})
		case "/unshare":
			session.Command(client.Command{Kind: client.CmdStopShare})
		case "/mute":
			session.Command(client.Command{Kind: client.CmdToggleAudio})
		case "/video":
			session.Command(client.Command{Kind: client.CmdToggleVideo})
		case "/end":
			session.Command(client.Command{Kind: client.CmdEndMeeting})
		case "/quit":
			session.Command(client.Command{Kind: client.CmdQuit})
			return
		default:
			session.Command(client.Command{Kind: client.CmdChat, Body: line})
		}
	}
}

func init() {
	joinCmd.Flags().StringVarP(&flagServer, "server", "s", "http://localhost:8080", "meeting server base URL")
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "guest", "display name")
	joinCmd.Flags().BoolVar(&flagHost, "host", false, "join as the meeting host")
	joinCmd.Flags().BoolVar(&flagNoAudio, "no-audio", false, "join without a microphone")
	joinCmd.Flags().BoolVar(&flagNoVideo, "no-video", false, "join without a camera")
	joinCmd.Flags().StringSliceVar(&flagSTUN, "stun", []string{"stun:stun.l.google.com:19302"}, "STUN/TURN server URIs")
	joinCmd.Flags().DurationVar(&flagTimeout, "connect-timeout", 30*time.Second, "per-peer connect deadline")

	rootCmd.AddCommand(joinCmd)
}
