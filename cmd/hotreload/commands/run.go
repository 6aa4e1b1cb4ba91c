package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/hotreload"
	"github.com/gogpu/hotreload/backend/native"
	"github.com/gogpu/hotreload/session"
)

func (c *CLI) newRunCmd() *cobra.Command {
	var (
		shaderDir  string
		modulePath string
		slots      []string
		width      int
		height     int
		interval   time.Duration
		noWatch    bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live-reload session loop",
		Long: `Run opens a GPU device, builds every shader slot, loads the
application module, and then drives the frame loop until interrupted.
Edits to the shader tree or the module source take effect on the next
frame without restarting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			hotreload.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))

			slotMap, err := parseSlots(slots)
			if err != nil {
				return err
			}

			adapter, err := native.Open()
			if err != nil {
				return fmt.Errorf("open GPU device: %w", err)
			}
			defer adapter.Close()

			sess, err := session.New(session.Config{
				ShaderRoot:    shaderDir,
				ModulePath:    modulePath,
				Slots:         slotMap,
				Width:         width,
				Height:        height,
				FrameInterval: interval,
				DisableWatch:  noWatch,
			}, adapter, adapter)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = sess.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&shaderDir, "shaders", "s", "shaders", "Shader tree root directory")
	cmd.Flags().StringVarP(&modulePath, "module", "m", "logic.go", "Path to the reloadable module source")
	cmd.Flags().StringArrayVar(&slots, "slot", []string{"main=main.wgsl"}, "Shader slot as name=root.wgsl (repeatable)")
	cmd.Flags().IntVar(&width, "width", 1280, "Surface width")
	cmd.Flags().IntVar(&height, "height", 720, "Surface height")
	cmd.Flags().DurationVar(&interval, "interval", session.DefaultFrameInterval, "Frame interval")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable file watching (shaders and module load once)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

// parseSlots turns repeated name=path flags into the session slot map.
func parseSlots(specs []string) (map[string]string, error) {
	slots := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, root, ok := strings.Cut(spec, "=")
		if !ok || name == "" || root == "" {
			return nil, fmt.Errorf("invalid slot %q, want name=root.wgsl", spec)
		}
		if _, dup := slots[name]; dup {
			return nil, fmt.Errorf("duplicate slot %q", name)
		}
		slots[name] = root
	}
	return slots, nil
}
