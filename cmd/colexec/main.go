// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/apache/arrow/go/v8/arrow"
	"github.com/apache/arrow/go/v8/arrow/array"
	"github.com/apache/arrow/go/v8/arrow/memory"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/zeroshade/colexec/compute"
	"github.com/zeroshade/colexec/config"
	"github.com/zeroshade/colexec/expr"
	"github.com/zeroshade/colexec/plan"
	"github.com/zeroshade/colexec/session"
)

var (
	configPath string
	values     []int64
	partitions int
	bias       int64
	batchSize  int64
	columnar   bool
	useUDF     bool
)

var rootCmd = &cobra.Command{
	Use:   "colexec",
	Short: "Rewrite and run a projection over an in-memory table",
	Long: `colexec projects "col + 1" (or a row-only UDF with --udf) over a single
int64 column, prints the plan before and after the columnar rewrite and
then the projected rows.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.Flags().Int64SliceVarP(&values, "values", "v", []int64{100, 200, 300}, "Values of the input column")
	rootCmd.Flags().IntVarP(&partitions, "partitions", "p", 1, "Number of input partitions")
	rootCmd.Flags().Int64Var(&bias, "bias", 0, "Bias added by the vectorized add kernel")
	rootCmd.Flags().Int64Var(&batchSize, "batch-size", compute.DefaultBatchSize, "Rows per batch when converting rows to batches")
	rootCmd.Flags().BoolVar(&columnar, "columnar", true, "Enable the columnar rewrite")
	rootCmd.Flags().BoolVar(&useUDF, "udf", false, "Project a row-only UDF instead of col + 1")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("bias") {
		cfg.Columnar.AddBias = bias
	}
	if flags.Changed("columnar") {
		cfg.Columnar.Enabled = columnar
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if partitions <= 0 {
		return fmt.Errorf("--partitions must be positive, got %d", partitions)
	}

	mem := memory.NewGoAllocator()
	sess, err := session.New(cfg, session.WithAllocator(mem))
	if err != nil {
		return err
	}

	scan, err := buildScan(mem, values, partitions)
	if err != nil {
		return err
	}
	defer scan.Release()

	root, err := buildProjection(sess, scan)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "== Plan ==\n%s\n== Prepared ==\n%s\n", plan.Explain(root), plan.Explain(sess.Prepare(root)))

	rows, err := sess.Collect(cmd.Context(), root)
	if err != nil {
		return err
	}
	printRows(out, root.Output(), rows)
	return nil
}

var schema = arrow.NewSchema([]arrow.Field{{Name: "col", Type: arrow.PrimitiveTypes.Int64, Nullable: true}}, nil)

// buildScan splits vals into n contiguous partitions of one batch each.
func buildScan(mem memory.Allocator, vals []int64, n int) (*plan.Scan, error) {
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()

	parts := make([][]arrow.Record, n)
	per := (len(vals) + n - 1) / n
	for i := range parts {
		lo, hi := min(i*per, len(vals)), min((i+1)*per, len(vals))
		bldr.Field(0).(*array.Int64Builder).AppendValues(vals[lo:hi], nil)
		parts[i] = []arrow.Record{bldr.NewRecord()}
	}
	defer func() {
		for _, p := range parts {
			p[0].Release()
		}
	}()

	return plan.NewScan("values", schema, parts)
}

func buildProjection(sess *session.Session, child plan.Node) (plan.Node, error) {
	col := child.Output()[0]
	if !useUDF {
		return plan.NewProjection([]expr.NamedExpression{expr.NewAlias(expr.NewAdd(col, expr.Lit(1)), "col_plus_one")}, child), nil
	}

	err := sess.Registry().AddFunction(&expr.FunctionDef{
		Name:       "double",
		ReturnType: arrow.PrimitiveTypes.Int64,
		Fn: func(args []any) (any, error) {
			if args[0] == nil {
				return nil, nil
			}
			return args[0].(int64) * 2, nil
		},
	}, false)
	if err != nil {
		return nil, err
	}

	call, err := sess.Registry().Call("double", col)
	if err != nil {
		return nil, err
	}
	return plan.NewProjection([]expr.NamedExpression{expr.NewAlias(call, "doubled")}, child), nil
}

func printRows(w io.Writer, attrs expr.AttributeSeq, rows []expr.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = false

	header := make(table.Row, len(attrs))
	for i, a := range attrs {
		header[i] = a.Name()
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			if v == nil {
				v = "NULL"
			}
			row[i] = v
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(rows))})
	t.Render()
}
