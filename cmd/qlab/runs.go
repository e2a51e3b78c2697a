package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/qlab/internal/config"
	"github.com/san-kum/qlab/internal/storage"
	"github.com/san-kum/qlab/internal/store"
	"github.com/san-kum/qlab/internal/tui"
	"github.com/san-kum/qlab/internal/viz"
)

var exportOutput string

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		RunE:  listRuns,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := runStore.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tCIRCUIT\tBACKEND\tQUBITS\tSHOTS\tTIMESTAMP")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.Kind,
			run.Circuit,
			run.Backend,
			run.Qubits,
			run.Shots,
			run.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}

// loadRun resolves an explicit run id or, without one, the latest run.
func loadRun(args []string) (*storage.Run, error) {
	if len(args) == 1 {
		return runStore.LoadRun(args[0])
	}
	runs, err := runStore.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs in %s", storage.ErrRunNotFound, dataDir)
	}
	return runStore.LoadRun(runs[len(runs)-1].ID)
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run]",
		Short: "Show a stored run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args)
			if err != nil {
				return err
			}
			m := run.Meta

			fmt.Println(viz.TitleStyle.Render(m.ID))
			rows := [][]string{
				{"kind", string(m.Kind)},
				{"backend", m.Backend},
				{"qubits", fmt.Sprint(m.Qubits)},
				{"seed", fmt.Sprint(m.Seed)},
				{"time", m.Timestamp.Format("2006-01-02 15:04:05")},
			}
			if m.Circuit != "" {
				rows = append(rows, []string{"circuit", m.Circuit})
			}
			if m.Shots > 0 {
				rows = append(rows, []string{"shots", fmt.Sprint(m.Shots)})
			}
			if m.Precision > 0 {
				rows = append(rows, []string{"precision", fmt.Sprint(m.Precision)})
			}
			if len(m.Parameters) > 0 {
				rows = append(rows, []string{"parameters", fmt.Sprint(m.Parameters)})
			}
			if m.JobID != "" {
				rows = append(rows, []string{"job", m.JobID})
			}
			keys := make([]string, 0, len(m.Metrics))
			for k := range m.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				rows = append(rows, []string{k, fmt.Sprintf("%g", m.Metrics[k])})
			}
			fmt.Println(viz.Table([]string{"field", "value"}, rows))

			if len(run.Counts) > 0 {
				fmt.Println(viz.Histogram("counts", run.Counts, chartWidth))
			}
			if len(run.Values) > 0 {
				bars := make([]viz.Bar, len(run.Values))
				for i, v := range run.Values {
					bars[i] = viz.Bar{Label: v.Label, Value: v.Value}
				}
				fmt.Println(viz.BarChart("values", bars, chartWidth))
			}
			return nil
		},
	}
}

func exportJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run]",
		Short: "Export a run as JSON (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args)
			if err != nil {
				return err
			}
			if exportOutput == "" {
				return store.ExportJSONStdout(run)
			}
			return store.ExportJSON(exportOutput, run)
		},
	}
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (stdout by default)")
	return cmd
}

func exportCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-csv [run]",
		Short: "Export the counts or values of a run as CSV (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args)
			if err != nil {
				return err
			}
			if exportOutput == "" {
				return store.WriteCSV(os.Stdout, run)
			}
			return store.ExportCSV(exportOutput, run)
		},
	}
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (stdout by default)")
	return cmd
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [kind]",
		Short: "List the built-in presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]string, 0, len(config.Presets))
			for kind := range config.Presets {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			if len(args) == 1 {
				if _, ok := config.Presets[args[0]]; !ok {
					return fmt.Errorf("unknown preset kind %q (have %s)", args[0], strings.Join(kinds, ", "))
				}
				kinds = args
			}
			for _, kind := range kinds {
				fmt.Printf("%s %s\n", viz.LabelStyle.Render(kind+":"), strings.Join(config.ListPresets(kind), ", "))
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON schema of the config file",
			RunE: func(cmd *cobra.Command, args []string) error {
				schema, err := config.Schema()
				if err != nil {
					return err
				}
				fmt.Println(string(schema))
				return nil
			},
		},
		&cobra.Command{
			Use:   "init [path]",
			Short: "Write the effective configuration to a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.Save(args[0], cfg); err != nil {
					return err
				}
				fmt.Printf("wrote %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func exploreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Apply gates to one qubit interactively on the Bloch sphere",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunExplorer()
		},
	}
}
