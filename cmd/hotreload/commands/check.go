package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/hotreload/shader"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	var shaderDir string

	cmd := &cobra.Command{
		Use:   "check <root.wgsl>...",
		Short: "Resolve and compile shader trees without a GPU",
		Long: `Check flattens each shader tree and runs it through the WGSL
compiler. It needs no GPU device, which makes it suitable for CI.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, root := range args {
				resolved, err := shader.Resolve(os.DirFS(shaderDir), root)
				if err != nil {
					return err
				}
				words, err := shader.Compile(resolved.Text)
				if err != nil {
					return err
				}
				cmd.Printf("%s: ok (%d files, %d SPIR-V words)\n",
					root, len(resolved.Paths), len(words))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&shaderDir, "shaders", "s", ".", "Shader tree root directory")

	return cmd
}
