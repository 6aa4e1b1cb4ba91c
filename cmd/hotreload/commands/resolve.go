package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/hotreload/shader"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	var shaderDir string

	cmd := &cobra.Command{
		Use:   "resolve <root.wgsl>",
		Short: "Flatten a shader tree and print the expanded WGSL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := shader.Resolve(os.DirFS(shaderDir), args[0])
			if err != nil {
				return err
			}
			cmd.Print(resolved.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&shaderDir, "shaders", "s", ".", "Shader tree root directory")

	return cmd
}
