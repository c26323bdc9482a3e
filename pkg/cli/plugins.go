package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/flint/pkg/plugins"
)

// PluginInfo describes an installed plugin
type PluginInfo struct {
	ID         string   `yaml:"id" json:"id"`
	Kind       string   `yaml:"kind" json:"kind"`
	Version    string   `yaml:"version" json:"version"`
	Author     string   `yaml:"author" json:"author"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	Path       string   `yaml:"path" json:"path"`
}

func newPluginInfo(p *plugins.Plugin) PluginInfo {
	return PluginInfo{
		ID:         p.ID(),
		Kind:       p.Kind.String(),
		Version:    p.Manifest.Version,
		Author:     p.Manifest.Author,
		Extensions: p.Manifest.Extensions,
		Path:       p.Root,
	}
}

func newPluginsCommand(a *app) *cobra.Command {
	var (
		ext        string
		kind       string
		outputYAML bool
	)

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}

			registry := e.Registry()
			found := registry.All()
			if kind != "" {
				k, err := plugins.ParseKind(kind)
				if err != nil {
					return err
				}
				found = registry.ByKind(k)
			}
			if ext != "" {
				found = intersect(found, registry.ByExtension(ext))
			}

			infos := make([]PluginInfo, len(found))
			for i, p := range found {
				infos[i] = newPluginInfo(p)
			}

			out := cmd.OutOrStdout()
			if outputYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(infos)
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tVERSION\tAUTHOR\tEXTENSIONS")
			fmt.Fprintln(w, "──\t────\t───────\t──────\t──────────")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					info.ID,
					info.Kind,
					info.Version,
					info.Author,
					strings.Join(info.Extensions, ", "),
				)
			}
			w.Flush()

			fmt.Fprintf(out, "\nTotal: %d plugins\n", len(infos))
			if kind == "" && ext == "" && registry.Len() > 0 {
				fmt.Fprintf(out, "Extensions: %s\n", strings.Join(registry.Extensions(), ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ext, "ext", "", "Only list plugins handling this file extension")
	cmd.Flags().StringVar(&kind, "kind", "", "Only list plugins of this kind (lint, test, ci, report)")
	cmd.Flags().BoolVar(&outputYAML, "yaml", false, "Output in YAML format")

	return cmd
}

// intersect keeps the plugins of a that also appear in b, in a's order
func intersect(a, b []*plugins.Plugin) []*plugins.Plugin {
	in := make(map[*plugins.Plugin]bool, len(b))
	for _, p := range b {
		in[p] = true
	}
	var out []*plugins.Plugin
	for _, p := range a {
		if in[p] {
			out = append(out, p)
		}
	}
	return out
}
