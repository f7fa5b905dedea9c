package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/natsel/internal/export"
	"github.com/san-kum/natsel/internal/storage"
)

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.DataDir), nil
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTRAIT\tTIME\tSTEPS\tENDED\tPEAK")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\t%.0f\n",
					run.ID,
					run.Trait,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Steps,
					run.Ended,
					run.Metrics["peak_population"],
				)
			}
			return w.Flush()
		},
	}
}

func plotCommand() *cobra.Command {
	var svgPath string
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			samples, err := st.LoadSamples(args[0])
			if err != nil {
				return err
			}
			if len(samples) < 2 {
				return fmt.Errorf("run %s: not enough samples to plot", meta.ID)
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("trait: %s\n", meta.Trait)
			fmt.Printf("samples: %d\n\n", len(samples))

			series := []struct {
				caption string
				value   func(storage.Sample) float64
			}{
				{"population", func(s storage.Sample) float64 { return float64(s.Population) }},
				{"food", func(s storage.Sample) float64 { return s.FoodTotal }},
				{"mean trait", func(s storage.Sample) float64 { return s.MeanTrait }},
				{"diversity", func(s storage.Sample) float64 { return s.Diversity }},
			}
			for _, s := range series {
				data := make([]float64, len(samples))
				for i, sample := range samples {
					data[i] = s.value(sample)
				}
				graph := asciigraph.Plot(data,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption(s.caption),
				)
				fmt.Println(graph)
				fmt.Println()

				if svgPath != "" && s.caption == "population" {
					if err := os.WriteFile(svgPath, []byte(export.SeriesSVG(data, 800, 300, "#4caf50")), 0644); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&svgPath, "svg", "", "also write the population curve as an svg image")
	return cmd
}

func exportCommand() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a recorded run as csv or json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			data, err := st.Export(args[0])
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "csv":
				err = storage.ExportCSV(w, data)
			case "json":
				err = storage.ExportJSON(w, data)
			default:
				return fmt.Errorf("unknown format %q: want csv or json", format)
			}
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(os.Stderr, "exported %d samples to %s\n", len(data.Samples), output)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
