package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/designview/internal/logger"
	"github.com/taigrr/designview/pkg/catalog"
)

func (a *app) catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage materials, requirements and designs",
	}
	cmd.AddCommand(
		a.catalogListCmd(),
		a.addMaterialCmd(),
		a.removeMaterialCmd(),
		a.addRequirementCmd(),
		a.removeRequirementCmd(),
		a.addDesignCmd(),
		a.removeDesignCmd(),
	)
	return cmd
}

// edit loads the catalog, applies fn and saves it if fn succeeds.
func (a *app) edit(fn func(c *catalog.Catalog) error) error {
	c, err := catalog.Load(a.cfg.Catalog.Path)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return c.SaveTo(a.cfg.Catalog.Path)
}

func (a *app) storage() catalog.Storage {
	return catalog.Storage{Dir: a.cfg.Catalog.StorageDir}
}

func (a *app) catalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "list [materials|requirements|designs]",
		Short:     "List catalog records, newest first",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"materials", "requirements", "designs"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(a.cfg.Catalog.Path)
			if err != nil {
				return err
			}
			kind := ""
			if len(args) == 1 {
				kind = args[0]
			}
			return printCatalog(cmd.OutOrStdout(), c, kind)
		},
	}
}

func printCatalog(out io.Writer, c *catalog.Catalog, kind string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	show := func(k string) bool { return kind == "" || kind == k }

	switch kind {
	case "", "materials", "requirements", "designs":
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}

	if show("materials") {
		fmt.Fprintln(tw, "MATERIAL ID\tNAME\tCREATED")
		for _, m := range c.Materials() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Name, m.CreatedAt.Format(time.DateTime))
		}
		fmt.Fprintln(tw)
	}
	if show("requirements") {
		fmt.Fprintln(tw, "REQUIREMENT ID\tNAME\tOPTIONS\tCREATED")
		for _, r := range c.Requirements() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.OptionsCSV(), r.CreatedAt.Format(time.DateTime))
		}
		fmt.Fprintln(tw)
	}
	if show("designs") {
		names := map[string]string{}
		for _, m := range c.Materials() {
			names[m.ID] = m.Name
		}
		fmt.Fprintln(tw, "DESIGN ID\tMATERIAL\tSPECIFICATIONS\tFILE\tCREATED")
		for _, d := range c.Designs() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, names[d.MaterialID], formatSpecs(d.Specifications), d.File, d.CreatedAt.Format(time.DateTime))
		}
	}
	return tw.Flush()
}

func formatSpecs(specs map[string]string) string {
	if len(specs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(specs))
	for k, v := range specs {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func (a *app) addMaterialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-material <name>",
		Short: "Add a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(c *catalog.Catalog) error {
				m, err := c.AddMaterial(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), m.ID)
				return nil
			})
		},
	}
}

func (a *app) removeMaterialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-material <id>",
		Short: "Remove a material no design uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(c *catalog.Catalog) error {
				return c.RemoveMaterial(args[0])
			})
		},
	}
}

func (a *app) addRequirementCmd() *cobra.Command {
	var options string
	cmd := &cobra.Command{
		Use:   "add-requirement <name>",
		Short: "Add a requirement with comma separated options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(c *catalog.Catalog) error {
				r, err := c.AddRequirement(args[0], options)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), r.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&options, "options", "", `options, e.g. "Red, Green, Blue"`)
	return cmd
}

func (a *app) removeRequirementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-requirement <id>",
		Short: "Remove a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(c *catalog.Catalog) error {
				return c.RemoveRequirement(args[0])
			})
		},
	}
}

func (a *app) addDesignCmd() *cobra.Command {
	var (
		material string
		specs    []string
		file     string
	)
	cmd := &cobra.Command{
		Use:   "add-design",
		Short: "Upload a design file for a material and specification set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := catalog.ParseSpecifications(specs)
			if err != nil {
				return err
			}
			if file == "" {
				return catalog.ErrFileRequired
			}
			store := a.storage()

			return a.edit(func(c *catalog.Catalog) error {
				// Check before copying so a rejected design leaves no file behind.
				if _, err := c.Material(material); err != nil {
					return err
				}
				if d, err := c.Lookup(material, parsed); err == nil {
					return fmt.Errorf("add design: %w (existing %s)", catalog.ErrDuplicateDesign, d.ID)
				}

				name, err := store.Import(file)
				if err != nil {
					return err
				}
				d, err := c.AddDesign(material, parsed, name)
				if err != nil {
					_ = store.Remove(name)
					return err
				}
				logger.Log.Info("design added", zap.String("id", d.ID), zap.String("file", name))
				fmt.Fprintln(cmd.OutOrStdout(), d.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&material, "material", "", "material ID")
	cmd.Flags().StringArrayVar(&specs, "spec", nil, "specification as key=value (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "design file to upload (glb, gltf, stl, step)")
	_ = cmd.MarkFlagRequired("material")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) removeDesignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-design <id>",
		Short: "Remove a design and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed catalog.Design
			err := a.edit(func(c *catalog.Catalog) error {
				d, err := c.RemoveDesign(args[0])
				removed = d
				return err
			})
			if err != nil {
				return err
			}
			return a.storage().Remove(removed.File)
		},
	}
}
